// Package render 将已解析的标签值渲染成打印面（HTML，每张标签一页、尺寸与画布一致），
// 并提供设计预览用的 SVG。
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"labelDesk/internal/label"
	"labelDesk/internal/units"
)

// ErrInvalidCanvas 表示模板画布尺寸非正，无法生成打印面。
var ErrInvalidCanvas = errors.New("invalid canvas")

// Label 是一张物理标签的解析结果，按元素 ID 索引。
type Label struct {
	Values map[string]string `json:"values"`
}

// Document is the input of one render pass.
type Document struct {
	Template label.Template
	Labels   []Label
	// Unlinked 中的元素以"未链接"样式显示。
	Unlinked []string
}

// Surface is a rendered print surface.
type Surface struct {
	ID       string  `json:"id"`
	HTML     string  `json:"-"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	Pages    int     `json:"pages"`
}

// HTMLRenderer renders documents through html/template.
type HTMLRenderer struct {
	logger     *slog.Logger
	policy     *bluemonday.Policy
	printerDPI float64
	tmpl       *template.Template
}

// NewHTMLRenderer 创建渲染器；printerDPI 决定条码图片的像素密度，非正值使用参考分辨率。
func NewHTMLRenderer(logger *slog.Logger, printerDPI float64) (*HTMLRenderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if printerDPI <= 0 {
		printerDPI = units.ReferenceDPI
	}
	tmpl, err := template.New("surface").Parse(surfaceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse surface template: %w", err)
	}
	return &HTMLRenderer{
		logger:     logger,
		policy:     bluemonday.StrictPolicy(),
		printerDPI: printerDPI,
		tmpl:       tmpl,
	}, nil
}

type surfaceView struct {
	ID     string
	Width  template.CSS
	Height template.CSS
	Labels [][]elementView
}

// Render 按顺序渲染 doc 中的每张标签，第 i 张标签对应第 i 页。
func (r *HTMLRenderer) Render(doc Document) (Surface, error) {
	t := doc.Template
	if t.Width <= 0 || t.Height <= 0 {
		return Surface{}, fmt.Errorf("%w: %vx%v mm", ErrInvalidCanvas, t.Width, t.Height)
	}

	unlinked := make(map[string]bool, len(doc.Unlinked))
	for _, id := range doc.Unlinked {
		unlinked[id] = true
	}

	view := surfaceView{
		ID:     uuid.NewString(),
		Width:  template.CSS(mm(t.Width)),
		Height: template.CSS(mm(t.Height)),
		Labels: make([][]elementView, 0, len(doc.Labels)),
	}
	for _, l := range doc.Labels {
		elements := make([]elementView, 0, len(t.Elements))
		for _, e := range t.Elements {
			elements = append(elements, r.elementView(e, l.Values[e.Base().ID], unlinked[e.Base().ID]))
		}
		view.Labels = append(view.Labels, elements)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return Surface{}, fmt.Errorf("execute surface template: %w", err)
	}

	return Surface{
		ID:       view.ID,
		HTML:     buf.String(),
		WidthMM:  t.Width,
		HeightMM: t.Height,
		Pages:    len(doc.Labels),
	}, nil
}

// sanitize 去掉解析值中的标签，实体还原后交给 html/template 统一转义。
func (r *HTMLRenderer) sanitize(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(r.policy.Sanitize(s))
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}

func pt(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "pt"
}
