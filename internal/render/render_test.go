package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelDesk/internal/label"
	"labelDesk/internal/units"
)

func materialTemplate() label.Template {
	w, h := 60.0, 15.0
	return label.Template{
		ID:     "tpl-1",
		Name:   "Material",
		Width:  100,
		Height: 50,
		Elements: []label.Element{
			&label.Text{
				Common:   label.Common{ID: "text", X: 5, Y: 5, Binding: &label.Binding{Key: "material"}},
				FontSize: 12,
			},
			&label.Barcode{
				Common:    label.Common{ID: "barcode", X: 5, Y: 20, Width: &w, Height: &h, Binding: &label.Binding{Key: "material"}},
				Symbology: label.SymbologyCode128,
				ShowText:  true,
			},
			&label.Line{Common: label.Common{ID: "rule", X: 0, Y: 45}, Thickness: 0.5},
		},
	}
}

func newRenderer(t *testing.T) *HTMLRenderer {
	t.Helper()
	r, err := NewHTMLRenderer(nil, units.PrinterDPI203)
	require.NoError(t, err)
	return r
}

func TestRenderProducesOnePagePerLabelAtCanvasSize(t *testing.T) {
	r := newRenderer(t)
	doc := Document{
		Template: materialTemplate(),
		Labels: []Label{
			{Values: map[string]string{"text": "ABC123", "barcode": "ABC123"}},
			{Values: map[string]string{"text": "XYZ789", "barcode": "XYZ789"}},
		},
	}

	surface, err := r.Render(doc)
	require.NoError(t, err)

	assert.Equal(t, 2, surface.Pages)
	assert.Equal(t, 100.0, surface.WidthMM)
	assert.Equal(t, 50.0, surface.HeightMM)
	assert.NotEmpty(t, surface.ID)

	html := surface.HTML
	assert.Contains(t, html, "size: 100mm 50mm")
	assert.Contains(t, html, "margin: 0;")
	assert.Contains(t, html, "body > :not(#print-surface)")
	assert.Equal(t, 2, strings.Count(html, `<div class="label">`))
	assert.Equal(t, 2, strings.Count(html, "data:image/png;base64,"))
	assert.Less(t, strings.Index(html, "ABC123"), strings.Index(html, "XYZ789"), "labels keep row order")
	assert.Contains(t, html, "left:5mm;top:20mm;width:60mm;height:15mm;")
	assert.Contains(t, html, "border-top:0.5mm solid black;")
}

func TestRenderRejectsInvalidCanvas(t *testing.T) {
	r := newRenderer(t)
	_, err := r.Render(Document{Template: label.Template{Width: 0, Height: 10}})
	assert.ErrorIs(t, err, ErrInvalidCanvas)
}

func TestRenderSanitizesValuesAndStyles(t *testing.T) {
	r := newRenderer(t)
	tpl := label.Template{Width: 50, Height: 20, Elements: []label.Element{
		&label.Text{
			Common:     label.Common{ID: "t", Binding: &label.Binding{Key: "name"}},
			FontFamily: "x;background:url(javascript:alert(1))",
			FontWeight: "bold",
		},
	}}
	surface, err := r.Render(Document{
		Template: tpl,
		Labels:   []Label{{Values: map[string]string{"t": "<script>alert(1)</script>Bob & Co"}}},
	})
	require.NoError(t, err)

	assert.NotContains(t, surface.HTML, "<script>")
	assert.NotContains(t, surface.HTML, "javascript")
	assert.Contains(t, surface.HTML, "Bob &amp; Co")
	assert.Contains(t, surface.HTML, "font-weight:bold;")
}

func TestRenderMarksUnlinkedElements(t *testing.T) {
	r := newRenderer(t)
	surface, err := r.Render(Document{
		Template: materialTemplate(),
		Labels:   []Label{{Values: map[string]string{}}},
		Unlinked: []string{"text"},
	})
	require.NoError(t, err)
	assert.Contains(t, surface.HTML, `class="el el-text unlinked"`)
	assert.Contains(t, surface.HTML, `class="barcode-error"`, "empty barcode falls back to text")
}

func TestTableRowsAutoNumberSkipsHeader(t *testing.T) {
	r := newRenderer(t)
	rows := r.tableRows(&label.Table{
		Rows:       3,
		Columns:    2,
		HeaderRow:  true,
		AutoNumber: true,
		Cells:      [][]string{{"Item", "Qty"}, {"Bolt", "4"}},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, []cellView{{"No", true}, {"Item", true}, {"Qty", true}}, rows[0])
	assert.Equal(t, []cellView{{"1", false}, {"Bolt", false}, {"4", false}}, rows[1])
	assert.Equal(t, []cellView{{"2", false}, {"", false}, {"", false}}, rows[2])
}

func TestBarcodeEncoding(t *testing.T) {
	uri, err := BarcodeDataURI(label.SymbologyCode128, "ABC123", 50, 15, units.PrinterDPI203)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(uri), "data:image/png;base64,"))

	code, err := EncodeBarcode(label.SymbologyCode128, "ABC123", 50, 15, units.PrinterDPI203)
	require.NoError(t, err)
	assert.Equal(t, 400, code.Bounds().Dx())

	qrCode, err := EncodeBarcode(label.SymbologyQR, "https://example.com/p/1", 20, 30, units.PrinterDPI203)
	require.NoError(t, err)
	assert.Equal(t, qrCode.Bounds().Dx(), qrCode.Bounds().Dy())

	_, err = EncodeBarcode(label.SymbologyCode128, "  ", 50, 15, units.PrinterDPI203)
	assert.ErrorIs(t, err, ErrEmptyBarcode)

	_, err = EncodeBarcode("ean13", "123", 50, 15, units.PrinterDPI203)
	assert.Error(t, err)
}

func TestFitFontSize(t *testing.T) {
	assert.Equal(t, 10.0, FitFontSize("A", 10, 40, 8))
	assert.Equal(t, DefaultFontSizePt, FitFontSize("A", 0, 40, 8))
	assert.Equal(t, MinFontSizePt, FitFontSize(strings.Repeat("W", 100), 10, 40, 8))

	shrunk := FitFontSize("ABCDEFGHIJ", 10, 15, 8)
	assert.InDelta(t, 15/(6*mmPerPt), shrunk, 1e-9)

	assert.Less(t, FitFontSize("漢字漢字漢字", 12, 20, 10), FitFontSize("abcdef", 12, 20, 10))
}

func TestSVGPreview(t *testing.T) {
	out, err := SVG(materialTemplate(), map[string]string{"text": "ABC123", "barcode": "ABC123"}, []string{"barcode"})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<svg")
	assert.Contains(t, s, `width="378"`)
	assert.Contains(t, s, "ABC123")
	assert.Contains(t, s, "<title>Material</title>")
	assert.Equal(t, 1, strings.Count(s, "stroke-dasharray:4,2"))

	_, err = SVG(label.Template{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCanvas)
}
