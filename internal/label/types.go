package label

// Kind 标识元素的类型，对应交换格式中的 "type" 字段。
type Kind string

const (
	KindText       Kind = "text"
	KindBarcode    Kind = "barcode"
	KindLine       Kind = "line"
	KindRectangle  Kind = "rectangle"
	KindLabelValue Kind = "label-value"
	KindTable      Kind = "table"
)

// FormatKind selects the value formatter applied to a bound element.
type FormatKind string

const (
	FormatNone        FormatKind = "none"
	FormatCurrencyIDR FormatKind = "currency_idr"
	FormatCurrencyUSD FormatKind = "currency_usd"
	FormatDateShort   FormatKind = "date_short"
	FormatDateLong    FormatKind = "date_long"
)

// Binding 描述动态元素的数据绑定。
type Binding struct {
	Key         string
	SchemaLabel string
	Format      FormatKind
}

// Element is implemented by every element variant.
type Element interface {
	Kind() Kind
	Base() *Common
}

// Common 是所有元素共有的字段，尺寸单位均为毫米。
// Width/Height 为空时使用该类型的默认尺寸。
type Common struct {
	ID      string
	X       float64
	Y       float64
	Width   *float64
	Height  *float64
	Value   string
	Binding *Binding
}

// Base returns the shared fields of an element.
func (c *Common) Base() *Common { return c }

// IsDynamic reports whether the element is bound to a non-empty key.
func (c *Common) IsDynamic() bool {
	return c.Binding != nil && c.Binding.Key != ""
}

// BindingKey returns the raw binding key, or "" for static elements.
func (c *Common) BindingKey() string {
	if c.Binding == nil {
		return ""
	}
	return c.Binding.Key
}

type Text struct {
	Common
	FontSize   float64
	FontFamily string
	FontWeight string
	TextAlign  string
}

type Barcode struct {
	Common
	Symbology  string
	FontFamily string
	ShowText   bool
}

type Line struct {
	Common
	Thickness   float64
	Style       string
	Color       string
	Orientation string
}

type Rectangle struct {
	Common
	BorderWidth  float64
	BorderStyle  string
	BorderColor  string
	Fill         string
	CornerRadius float64
}

type LabelValue struct {
	Common
	Label     string
	Separator string
	Layout    string
	LabelBold bool
	FontSize  float64
}

type Table struct {
	Common
	Rows       int
	Columns    int
	Cells      [][]string
	ShowBorder bool
	AutoNumber bool
	HeaderRow  bool
	FontSize   float64
}

func (*Text) Kind() Kind       { return KindText }
func (*Barcode) Kind() Kind    { return KindBarcode }
func (*Line) Kind() Kind       { return KindLine }
func (*Rectangle) Kind() Kind  { return KindRectangle }
func (*LabelValue) Kind() Kind { return KindLabelValue }
func (*Table) Kind() Kind      { return KindTable }

// 条码符号体系。
const (
	SymbologyCode128 = "code128"
	SymbologyQR      = "qr"
)

// LabelValue 布局方向。
const (
	LayoutHorizontal = "horizontal"
	LayoutVertical   = "vertical"
)
