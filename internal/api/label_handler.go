package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"labelDesk/internal/api/middleware"
	"labelDesk/internal/binding"
	"labelDesk/internal/datasource"
	"labelDesk/internal/geometry"
	"labelDesk/internal/label"
	"labelDesk/internal/render"
)

// LabelHandler 暴露绑定解析、模板校验与 SVG 设计预览，全部为同步纯计算。
type LabelHandler struct {
	resolver *binding.Resolver
}

func NewLabelHandler(resolver *binding.Resolver) *LabelHandler {
	return &LabelHandler{resolver: resolver}
}

type resolveRequest struct {
	Template label.Template  `json:"template"`
	Mode     binding.Mode    `json:"mode"`
	Session  binding.Session `json:"session"`
	Row      *datasource.Row `json:"row"`
	// Schema 为空时不检查断开的绑定。
	Schema []label.SchemaField `json:"schema"`
}

type resolveResponse struct {
	Values         map[string]string `json:"values"`
	BrokenLinks    []string          `json:"broken_links"`
	MissingColumns []string          `json:"missing_columns,omitempty"`
}

func (r *resolveRequest) bind(c *gin.Context, defaultMode binding.Mode) bool {
	if err := c.ShouldBindJSON(r); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	if r.Mode == "" {
		r.Mode = defaultMode
	}
	switch r.Mode {
	case binding.ModeDesign, binding.ModePreview, binding.ModePrintRow:
	default:
		BadRequest(c, "unknown mode "+string(r.Mode))
		return false
	}
	return true
}

func (r *resolveRequest) brokenLinks() []string {
	if r.Schema == nil {
		return []string{}
	}
	broken := binding.BrokenLinks(r.Template, label.MergeSchema(r.Schema))
	if broken == nil {
		return []string{}
	}
	return broken
}

// Resolve 返回模板中每个元素的显示字符串。
func (h *LabelHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if !req.bind(c, binding.ModeDesign) {
		return
	}

	resp := resolveResponse{
		Values: h.resolver.ResolveTemplate(req.Template, binding.Context{
			Mode:    req.Mode,
			Session: req.Session,
			Row:     req.Row,
		}),
		BrokenLinks: req.brokenLinks(),
	}
	if req.Row != nil {
		resp.MissingColumns = binding.MissingColumns(req.Template, *req.Row)
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewSVG 以预览模式解析并返回 SVG 设计图，断开的绑定以虚线框标出。
func (h *LabelHandler) PreviewSVG(c *gin.Context) {
	var req resolveRequest
	if !req.bind(c, binding.ModePreview) {
		return
	}

	values := h.resolver.ResolveTemplate(req.Template, binding.Context{
		Mode:    req.Mode,
		Session: req.Session,
		Row:     req.Row,
	})
	data, err := render.SVG(req.Template, values, req.brokenLinks())
	if err != nil {
		middleware.LoggerFromContext(c).Warn("render svg preview failed", slog.Any("error", err))
		BadRequest(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", data)
}

type validateRequest struct {
	Template label.Template `json:"template"`
}

// ValidateTemplate 返回模板问题及几何修复后的副本；画布非法时副本不做修复。
func (h *LabelHandler) ValidateTemplate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	repaired, violations := geometry.Repair(req.Template)
	if violations == nil {
		violations = []label.Violation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":            len(violations) == 0,
		"violations":       violations,
		"template":         repaired,
		"uses_auto_number": label.UsesAutoNumber(req.Template),
	})
}
