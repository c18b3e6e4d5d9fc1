package render

import (
	"fmt"
	"html/template"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"labelDesk/internal/label"
)

// DefaultFontSizePt 元素未指定字号时使用。
const DefaultFontSizePt = 10.0

var (
	safeCSSValue   = regexp.MustCompile(`^[#a-zA-Z0-9 ,.%'()\-]*$`)
	unsafeCSSWords = regexp.MustCompile(`(?i)url|expression|import`)
)

type elementView struct {
	ID       string
	Kind     label.Kind
	Style    template.CSS
	Unlinked bool

	Text    string
	Image   template.URL
	Caption string

	Label     string
	Separator string
	LabelBold bool
	Vertical  bool

	Bordered bool
	Rows     [][]cellView
}

type cellView struct {
	Text   string
	Header bool
}

func (r *HTMLRenderer) elementView(e label.Element, value string, unlinked bool) elementView {
	base := e.Base()
	w, h := label.Size(e)
	box := fmt.Sprintf("left:%s;top:%s;width:%s;height:%s;", mm(base.X), mm(base.Y), mm(w), mm(h))
	v := elementView{ID: base.ID, Kind: e.Kind(), Unlinked: unlinked}

	switch el := e.(type) {
	case *label.Text:
		v.Text = r.sanitize(value)
		size := FitFontSize(v.Text, fontSizeOr(el.FontSize), w, h)
		v.Style = template.CSS(box + "font-size:" + pt(size) + ";" +
			cssDecl("font-family", el.FontFamily) +
			cssDecl("font-weight", el.FontWeight) +
			cssDecl("text-align", el.TextAlign))

	case *label.Barcode:
		v.Style = template.CSS(box + cssDecl("font-family", el.FontFamily))
		image, err := BarcodeDataURI(el.Symbology, value, w, h, r.printerDPI)
		if err != nil {
			r.logger.Warn("barcode encode failed, rendering text instead",
				slog.String("element_id", base.ID),
				slog.String("symbology", el.Symbology),
				slog.Any("error", err),
			)
			v.Text = r.sanitize(value)
			break
		}
		v.Image = image
		v.Text = r.sanitize(value)
		if el.ShowText {
			v.Caption = v.Text
		}

	case *label.Line:
		thickness := el.Thickness
		if thickness <= 0 {
			thickness = 0.3
		}
		side := "border-top"
		if el.Orientation == label.LayoutVertical {
			side = "border-left"
		}
		v.Style = template.CSS(box + fmt.Sprintf("%s:%s %s %s;", side, mm(thickness),
			cssValueOr(el.Style, "solid"), cssValueOr(el.Color, "black")))

	case *label.Rectangle:
		style := box
		if el.BorderWidth > 0 {
			style += fmt.Sprintf("border:%s %s %s;", mm(el.BorderWidth),
				cssValueOr(el.BorderStyle, "solid"), cssValueOr(el.BorderColor, "black"))
		}
		if el.CornerRadius > 0 {
			style += "border-radius:" + mm(el.CornerRadius) + ";"
		}
		style += cssDecl("background", el.Fill)
		v.Style = template.CSS(style)

	case *label.LabelValue:
		v.Label = r.sanitize(el.Label)
		v.Separator = el.Separator
		v.LabelBold = el.LabelBold
		v.Vertical = el.Layout == label.LayoutVertical
		v.Text = r.sanitize(value)
		size := FitFontSize(v.Label+v.Separator+v.Text, fontSizeOr(el.FontSize), w, h)
		if v.Vertical {
			size = FitFontSize(longest(v.Label+v.Separator, v.Text), fontSizeOr(el.FontSize), w, h/2)
		}
		v.Style = template.CSS(box + "font-size:" + pt(size) + ";")

	case *label.Table:
		v.Bordered = el.ShowBorder
		v.Rows = r.tableRows(el)
		v.Style = template.CSS(box + "font-size:" + pt(fontSizeOr(el.FontSize)) + ";")

	default:
		v.Style = template.CSS(box)
		v.Text = r.sanitize(value)
	}
	return v
}

// tableRows 生成表格单元格；开启 AutoNumber 时在首列加行号，表头行不计号。
func (r *HTMLRenderer) tableRows(t *label.Table) [][]cellView {
	rows := make([][]cellView, 0, t.Rows)
	number := 0
	for i := 0; i < t.Rows; i++ {
		header := t.HeaderRow && i == 0
		cells := make([]cellView, 0, t.Columns+1)
		if t.AutoNumber {
			text := "No"
			if !header {
				number++
				text = strconv.Itoa(number)
			}
			cells = append(cells, cellView{Text: text, Header: header})
		}
		for j := 0; j < t.Columns; j++ {
			var text string
			if i < len(t.Cells) && j < len(t.Cells[i]) {
				text = r.sanitize(t.Cells[i][j])
			}
			cells = append(cells, cellView{Text: text, Header: header})
		}
		rows = append(rows, cells)
	}
	return rows
}

// cssDecl 返回 "prop:value;"；值为空或含不安全字符时返回空串。
func cssDecl(prop, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || !isSafeCSSValue(value) {
		return ""
	}
	return prop + ":" + value + ";"
}

func cssValueOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" || !isSafeCSSValue(value) {
		return fallback
	}
	return value
}

func isSafeCSSValue(value string) bool {
	return safeCSSValue.MatchString(value) && !unsafeCSSWords.MatchString(value)
}

func fontSizeOr(size float64) float64 {
	if size <= 0 {
		return DefaultFontSizePt
	}
	return size
}

func longest(a, b string) string {
	if len([]rune(b)) > len([]rune(a)) {
		return b
	}
	return a
}
