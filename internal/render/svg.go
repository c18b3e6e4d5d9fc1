package render

import (
	"bytes"
	"fmt"
	"html"
	"math"

	svg "github.com/ajstarks/svgo"

	"labelDesk/internal/label"
	"labelDesk/internal/units"
)

// SVG 以 96 DPI 生成模板的设计预览：条码以占位框表示，未链接的元素加红色虚线框。
func SVG(t label.Template, values map[string]string, unlinked []string) ([]byte, error) {
	if t.Width <= 0 || t.Height <= 0 {
		return nil, fmt.Errorf("%w: %vx%v mm", ErrInvalidCanvas, t.Width, t.Height)
	}

	flagged := make(map[string]bool, len(unlinked))
	for _, id := range unlinked {
		flagged[id] = true
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(px(t.Width), px(t.Height))
	if t.Name != "" {
		canvas.Title(t.Name)
	}
	canvas.Rect(0, 0, px(t.Width), px(t.Height), "fill:white;stroke:#9e9e9e;stroke-width:1")

	for _, e := range t.Elements {
		base := e.Base()
		w, h := label.Size(e)
		x, y, pw, ph := px(base.X), px(base.Y), px(w), px(h)
		value := values[base.ID]

		canvas.Gid(html.EscapeString(base.ID))
		switch el := e.(type) {
		case *label.Text:
			size := FitFontSize(value, fontSizeOr(el.FontSize), w, h)
			canvas.Text(x, y+ph/2, value, textStyle(size, el.FontFamily, el.FontWeight)+"dominant-baseline:middle")
		case *label.Barcode:
			canvas.Rect(x, y, pw, ph, "fill:#eeeeee;stroke:#616161;stroke-width:1")
			canvas.Text(x+pw/2, y+ph/2, value, "font-size:10px;text-anchor:middle;dominant-baseline:middle;fill:#212121")
		case *label.Line:
			stroke := fmt.Sprintf("stroke:%s;stroke-width:%d", cssValueOr(el.Color, "black"), max(1, px(el.Thickness)))
			if el.Orientation == label.LayoutVertical {
				canvas.Line(x, y, x, y+ph, stroke)
			} else {
				canvas.Line(x, y, x+pw, y, stroke)
			}
		case *label.Rectangle:
			style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%d",
				cssValueOr(el.Fill, "none"), cssValueOr(el.BorderColor, "black"), max(0, px(el.BorderWidth)))
			if r := px(el.CornerRadius); r > 0 {
				canvas.Roundrect(x, y, pw, ph, r, r, style)
			} else {
				canvas.Rect(x, y, pw, ph, style)
			}
		case *label.LabelValue:
			size := fontSizeOr(el.FontSize)
			weight := ""
			if el.LabelBold {
				weight = "bold"
			}
			if el.Layout == label.LayoutVertical {
				canvas.Text(x, y+ph/4, el.Label+el.Separator, textStyle(size, "", weight)+"dominant-baseline:middle")
				canvas.Text(x, y+3*ph/4, value, textStyle(size, "", "")+"dominant-baseline:middle")
			} else {
				canvas.Text(x, y+ph/2, el.Label+el.Separator+" "+value, textStyle(size, "", "")+"dominant-baseline:middle")
			}
		case *label.Table:
			drawTable(canvas, el, x, y, pw, ph)
		}
		if flagged[base.ID] {
			canvas.Rect(x, y, pw, ph, "fill:none;stroke:#d32f2f;stroke-width:1;stroke-dasharray:4,2")
		}
		canvas.Gend()
	}

	canvas.End()
	return buf.Bytes(), nil
}

func drawTable(canvas *svg.SVG, t *label.Table, x, y, w, h int) {
	canvas.Rect(x, y, w, h, "fill:none;stroke:black;stroke-width:1")
	if t.Rows <= 0 || t.Columns <= 0 {
		return
	}
	cellW := w / t.Columns
	cellH := h / t.Rows
	if t.ShowBorder {
		for i := 1; i < t.Rows; i++ {
			canvas.Line(x, y+i*cellH, x+w, y+i*cellH, "stroke:black;stroke-width:1")
		}
		for j := 1; j < t.Columns; j++ {
			canvas.Line(x+j*cellW, y, x+j*cellW, y+h, "stroke:black;stroke-width:1")
		}
	}
	size := fontSizeOr(t.FontSize)
	for i := 0; i < t.Rows && i < len(t.Cells); i++ {
		weight := ""
		if t.HeaderRow && i == 0 {
			weight = "bold"
		}
		for j := 0; j < t.Columns && j < len(t.Cells[i]); j++ {
			canvas.Text(x+j*cellW+2, y+i*cellH+cellH/2, t.Cells[i][j], textStyle(size, "", weight)+"dominant-baseline:middle")
		}
	}
}

func textStyle(sizePt float64, family, weight string) string {
	return fmt.Sprintf("font-size:%.1fpt;", sizePt) + cssDecl("font-family", family) + cssDecl("font-weight", weight)
}

func px(mmValue float64) int {
	return int(math.Round(units.MMToPxAt96(mmValue)))
}
