package label

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned for an element type the engine does not know.
var ErrUnknownKind = errors.New("unknown element kind")

// wireTemplate 是模板交换格式（JSON）的顶层结构。
type wireTemplate struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Width        float64           `json:"width"`
	Height       float64           `json:"height"`
	Elements     []json.RawMessage `json:"elements"`
	LastModified int64             `json:"lastModified"`
}

// wireElement 保持交换格式的扁平结构：公共字段、绑定字段与各类型字段并列。
type wireElement struct {
	ID     string   `json:"id"`
	Type   Kind     `json:"type"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Value  string   `json:"value"`

	IsDynamic   bool       `json:"isDynamic,omitempty"`
	BindingKey  string     `json:"bindingKey,omitempty"`
	SchemaLabel string     `json:"schemaLabel,omitempty"`
	Format      FormatKind `json:"format,omitempty"`

	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	TextAlign  string  `json:"textAlign,omitempty"`

	Symbology string `json:"symbology,omitempty"`
	ShowText  bool   `json:"showText,omitempty"`

	Thickness   float64 `json:"thickness,omitempty"`
	Style       string  `json:"style,omitempty"`
	Color       string  `json:"color,omitempty"`
	Orientation string  `json:"orientation,omitempty"`

	BorderWidth  float64 `json:"borderWidth,omitempty"`
	BorderStyle  string  `json:"borderStyle,omitempty"`
	BorderColor  string  `json:"borderColor,omitempty"`
	Fill         string  `json:"fill,omitempty"`
	CornerRadius float64 `json:"cornerRadius,omitempty"`

	Label     string `json:"label,omitempty"`
	Separator string `json:"separator,omitempty"`
	Layout    string `json:"layout,omitempty"`
	LabelBold bool   `json:"labelBold,omitempty"`

	Rows       int        `json:"rows,omitempty"`
	Columns    int        `json:"columns,omitempty"`
	Cells      [][]string `json:"cells,omitempty"`
	ShowBorder bool       `json:"showBorder,omitempty"`
	AutoNumber bool       `json:"autoNumber,omitempty"`
	HeaderRow  bool       `json:"headerRow,omitempty"`
}

// MarshalJSON encodes the template in the exchange format.
func (t Template) MarshalJSON() ([]byte, error) {
	wire := wireTemplate{
		ID:           t.ID,
		Name:         t.Name,
		Width:        t.Width,
		Height:       t.Height,
		Elements:     make([]json.RawMessage, 0, len(t.Elements)),
		LastModified: t.LastModified,
	}
	for _, e := range t.Elements {
		data, err := MarshalElement(e)
		if err != nil {
			return nil, err
		}
		wire.Elements = append(wire.Elements, data)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the exchange format.
func (t *Template) UnmarshalJSON(data []byte) error {
	var wire wireTemplate
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode template: %w", err)
	}

	elements := make([]Element, 0, len(wire.Elements))
	for i, raw := range wire.Elements {
		e, err := UnmarshalElement(raw)
		if err != nil {
			return fmt.Errorf("decode element %d: %w", i, err)
		}
		elements = append(elements, e)
	}

	*t = Template{
		ID:           wire.ID,
		Name:         wire.Name,
		Width:        wire.Width,
		Height:       wire.Height,
		Elements:     elements,
		LastModified: wire.LastModified,
	}
	return nil
}

// MarshalElement encodes a single element in the flat exchange shape.
func MarshalElement(e Element) ([]byte, error) {
	base := e.Base()
	w := wireElement{
		ID:     base.ID,
		Type:   e.Kind(),
		X:      base.X,
		Y:      base.Y,
		Width:  base.Width,
		Height: base.Height,
		Value:  base.Value,
	}
	if base.Binding != nil {
		w.IsDynamic = true
		w.BindingKey = base.Binding.Key
		w.SchemaLabel = base.Binding.SchemaLabel
		w.Format = base.Binding.Format
	}

	switch v := e.(type) {
	case *Text:
		w.FontSize, w.FontFamily, w.FontWeight, w.TextAlign = v.FontSize, v.FontFamily, v.FontWeight, v.TextAlign
	case *Barcode:
		w.Symbology, w.FontFamily, w.ShowText = v.Symbology, v.FontFamily, v.ShowText
	case *Line:
		w.Thickness, w.Style, w.Color, w.Orientation = v.Thickness, v.Style, v.Color, v.Orientation
	case *Rectangle:
		w.BorderWidth, w.BorderStyle, w.BorderColor = v.BorderWidth, v.BorderStyle, v.BorderColor
		w.Fill, w.CornerRadius = v.Fill, v.CornerRadius
	case *LabelValue:
		w.Label, w.Separator, w.Layout, w.LabelBold, w.FontSize = v.Label, v.Separator, v.Layout, v.LabelBold, v.FontSize
	case *Table:
		w.Rows, w.Columns, w.Cells = v.Rows, v.Columns, v.Cells
		w.ShowBorder, w.AutoNumber, w.HeaderRow, w.FontSize = v.ShowBorder, v.AutoNumber, v.HeaderRow, v.FontSize
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind())
	}

	return json.Marshal(w)
}

// UnmarshalElement decodes a single element, dispatching on its "type" field.
func UnmarshalElement(data []byte) (Element, error) {
	var w wireElement
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	common := Common{
		ID:     w.ID,
		X:      w.X,
		Y:      w.Y,
		Width:  w.Width,
		Height: w.Height,
		Value:  w.Value,
	}
	if w.IsDynamic {
		common.Binding = &Binding{Key: w.BindingKey, SchemaLabel: w.SchemaLabel, Format: w.Format}
	}

	switch w.Type {
	case KindText:
		return &Text{Common: common, FontSize: w.FontSize, FontFamily: w.FontFamily, FontWeight: w.FontWeight, TextAlign: w.TextAlign}, nil
	case KindBarcode:
		return &Barcode{Common: common, Symbology: w.Symbology, FontFamily: w.FontFamily, ShowText: w.ShowText}, nil
	case KindLine:
		return &Line{Common: common, Thickness: w.Thickness, Style: w.Style, Color: w.Color, Orientation: w.Orientation}, nil
	case KindRectangle:
		return &Rectangle{
			Common:       common,
			BorderWidth:  w.BorderWidth,
			BorderStyle:  w.BorderStyle,
			BorderColor:  w.BorderColor,
			Fill:         w.Fill,
			CornerRadius: w.CornerRadius,
		}, nil
	case KindLabelValue:
		return &LabelValue{Common: common, Label: w.Label, Separator: w.Separator, Layout: w.Layout, LabelBold: w.LabelBold, FontSize: w.FontSize}, nil
	case KindTable:
		return &Table{
			Common:     common,
			Rows:       w.Rows,
			Columns:    w.Columns,
			Cells:      w.Cells,
			ShowBorder: w.ShowBorder,
			AutoNumber: w.AutoNumber,
			HeaderRow:  w.HeaderRow,
			FontSize:   w.FontSize,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, w.Type)
	}
}

// Parse decodes a template from its exchange JSON.
func Parse(data []byte) (Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return Template{}, err
	}
	return t, nil
}
