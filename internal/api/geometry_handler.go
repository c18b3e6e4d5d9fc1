package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labelDesk/internal/geometry"
)

// GeometryHandler 暴露移动、缩放与键盘微调的约束计算。
type GeometryHandler struct {
	snapGridMM float64
}

// NewGeometryHandler 创建处理器；snapGridMM 是请求未指定网格时的默认值。
func NewGeometryHandler(snapGridMM float64) *GeometryHandler {
	return &GeometryHandler{snapGridMM: snapGridMM}
}

// dragRequest 的 dx/dy 是自拖拽开始以来的累计位移；unit 为 px 时按 zoom 换算。
type dragRequest struct {
	Canvas geometry.Canvas `json:"canvas"`
	Rect   geometry.Rect   `json:"rect"`
	DX     float64         `json:"dx"`
	DY     float64         `json:"dy"`
	Unit   string          `json:"unit"`
	Zoom   float64         `json:"zoom"`
	Snap   *geometry.Snap  `json:"snap"`
}

func (h *GeometryHandler) bindDrag(c *gin.Context) (dragRequest, bool) {
	var req dragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return req, false
	}
	if req.Canvas.Width <= 0 || req.Canvas.Height <= 0 {
		BadRequest(c, "canvas width and height must be positive")
		return req, false
	}
	switch req.Unit {
	case "", "mm":
	case "px":
		req.DX, req.DY = geometry.PointerDelta(req.DX, req.DY, req.Zoom)
	default:
		BadRequest(c, "unit must be mm or px")
		return req, false
	}
	if req.Snap == nil {
		req.Snap = &geometry.Snap{}
	} else if req.Snap.Enabled && req.Snap.GridSizeMM <= 0 {
		req.Snap.GridSizeMM = h.snapGridMM
	}
	return req, true
}

// Move 返回拖拽后的位置。
func (h *GeometryHandler) Move(c *gin.Context) {
	req, ok := h.bindDrag(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, geometry.Move(req.Rect, req.DX, req.DY, req.Canvas, *req.Snap))
}

// Resize 返回缩放后的尺寸（右下角拖拽）。
func (h *GeometryHandler) Resize(c *gin.Context) {
	req, ok := h.bindDrag(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, geometry.Resize(req.Rect, req.DX, req.DY, req.Canvas, *req.Snap))
}

type nudgeRequest struct {
	Canvas    geometry.Canvas   `json:"canvas"`
	Rect      geometry.Rect     `json:"rect"`
	Direction string            `json:"direction"`
	Modifier  geometry.Modifier `json:"modifier"`
}

// Nudge 按方向键微调一步，不吸附网格。
func (h *GeometryHandler) Nudge(c *gin.Context) {
	var req nudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Canvas.Width <= 0 || req.Canvas.Height <= 0 {
		BadRequest(c, "canvas width and height must be positive")
		return
	}
	dir, err := geometry.ParseDirection(req.Direction)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	switch req.Modifier {
	case geometry.ModifierNone, geometry.ModifierCoarse, geometry.ModifierFine:
	default:
		BadRequest(c, "modifier must be empty, coarse or fine")
		return
	}
	c.JSON(http.StatusOK, geometry.Nudge(req.Rect, dir, req.Modifier, req.Canvas))
}
