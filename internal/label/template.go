package label

import "fmt"

// Template 是一张标签的完整描述：画布尺寸（毫米）与元素列表。
type Template struct {
	ID           string
	Name         string
	Width        float64
	Height       float64
	Elements     []Element
	LastModified int64
}

// Element returns the element with id, or nil.
func (t *Template) Element(id string) Element {
	for _, e := range t.Elements {
		if e.Base().ID == id {
			return e
		}
	}
	return nil
}

type defaultSize struct{ width, height float64 }

// 各类型元素的默认尺寸（毫米），条码比文本更高。
var defaultSizes = map[Kind]defaultSize{
	KindText:       {width: 40, height: 8},
	KindBarcode:    {width: 50, height: 15},
	KindLine:       {width: 50, height: 1},
	KindRectangle:  {width: 30, height: 20},
	KindLabelValue: {width: 50, height: 8},
	KindTable:      {width: 60, height: 30},
}

// DefaultSize returns the default width and height for kind.
func DefaultSize(kind Kind) (width, height float64) {
	s, ok := defaultSizes[kind]
	if !ok {
		return 40, 8
	}
	return s.width, s.height
}

// Size returns the effective element size: explicit width/height or the kind default.
func Size(e Element) (width, height float64) {
	width, height = DefaultSize(e.Kind())
	base := e.Base()
	if base.Width != nil {
		width = *base.Width
	}
	if base.Height != nil {
		height = *base.Height
	}
	return width, height
}

// NewElement 按类型构造带默认样式与尺寸的新元素。
func NewElement(kind Kind, id string, x, y float64) (Element, error) {
	w, h := DefaultSize(kind)
	common := Common{ID: id, X: x, Y: y, Width: floatPtr(w), Height: floatPtr(h)}

	switch kind {
	case KindText:
		common.Value = "Text"
		return &Text{Common: common, FontSize: 12, FontFamily: "Arial", FontWeight: "normal", TextAlign: "left"}, nil
	case KindBarcode:
		common.Value = "123456789"
		return &Barcode{Common: common, Symbology: SymbologyCode128, FontFamily: "Libre Barcode 128", ShowText: true}, nil
	case KindLine:
		return &Line{Common: common, Thickness: 1, Style: "solid", Color: "#000000", Orientation: LayoutHorizontal}, nil
	case KindRectangle:
		return &Rectangle{Common: common, BorderWidth: 1, BorderStyle: "solid", BorderColor: "#000000", Fill: "transparent"}, nil
	case KindLabelValue:
		common.Value = "Value"
		return &LabelValue{Common: common, Label: "Label", Separator: ":", Layout: LayoutHorizontal, LabelBold: true, FontSize: 10}, nil
	case KindTable:
		cells := make([][]string, 3)
		for i := range cells {
			cells[i] = make([]string, 3)
		}
		return &Table{Common: common, Rows: 3, Columns: 3, Cells: cells, ShowBorder: true, HeaderRow: true, FontSize: 9}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// UsesAutoNumber reports whether any element binds the auto-number system key,
// meaning every physical label consumes one sequence value.
func UsesAutoNumber(t Template) bool {
	for _, e := range t.Elements {
		if base := e.Base(); base.IsDynamic() && base.Binding.Key == KeyCIPLNumber {
			return true
		}
	}
	return false
}

// Clone 深拷贝一个元素，几何修复等操作在副本上进行。
func Clone(e Element) Element {
	switch v := e.(type) {
	case *Text:
		c := *v
		c.Common = cloneCommon(v.Common)
		return &c
	case *Barcode:
		c := *v
		c.Common = cloneCommon(v.Common)
		return &c
	case *Line:
		c := *v
		c.Common = cloneCommon(v.Common)
		return &c
	case *Rectangle:
		c := *v
		c.Common = cloneCommon(v.Common)
		return &c
	case *LabelValue:
		c := *v
		c.Common = cloneCommon(v.Common)
		return &c
	case *Table:
		c := *v
		c.Common = cloneCommon(v.Common)
		if v.Cells != nil {
			c.Cells = make([][]string, len(v.Cells))
			for i, row := range v.Cells {
				c.Cells[i] = append([]string(nil), row...)
			}
		}
		return &c
	default:
		return e
	}
}

// CloneTemplate returns a deep copy of t.
func CloneTemplate(t Template) Template {
	out := t
	if t.Elements != nil {
		out.Elements = make([]Element, len(t.Elements))
		for i, e := range t.Elements {
			out.Elements[i] = Clone(e)
		}
	}
	return out
}

func cloneCommon(c Common) Common {
	out := c
	if c.Width != nil {
		out.Width = floatPtr(*c.Width)
	}
	if c.Height != nil {
		out.Height = floatPtr(*c.Height)
	}
	if c.Binding != nil {
		b := *c.Binding
		out.Binding = &b
	}
	return out
}

func floatPtr(v float64) *float64 {
	return &v
}
