// Package geometry 将指针位移转换为元素的新位置与尺寸（毫米），并负责画布边界与网格吸附。
// 所有函数均为纯函数，返回新几何信息，由调用方写回模板。
package geometry

import (
	"math"

	"labelDesk/internal/label"
	"labelDesk/internal/units"
)

// MinSizeMM 是缩放时每个方向允许的最小尺寸。
const MinSizeMM = 5.0

// Canvas is the label canvas in millimeters.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CanvasOf returns the canvas of t.
func CanvasOf(t label.Template) Canvas {
	return Canvas{Width: t.Width, Height: t.Height}
}

// Rect is an element's geometry in millimeters.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectOf returns the effective geometry of e, using kind defaults for a missing size.
func RectOf(e label.Element) Rect {
	w, h := label.Size(e)
	base := e.Base()
	return Rect{X: base.X, Y: base.Y, Width: w, Height: h}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Snap 网格吸附设置。
type Snap struct {
	Enabled    bool    `json:"enabled"`
	GridSizeMM float64 `json:"grid_size_mm"`
}

func (s Snap) active() bool {
	return s.Enabled && s.GridSizeMM > 0
}

// SnapValue rounds v to the nearest multiple of grid. A non-positive grid returns v.
func SnapValue(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// Move 返回原几何加上总位移后的位置，限制在 [0, W-w]×[0, H-h] 内；
// 开启吸附时先按未吸附的位移计算并限制，再吸附，最后再次限制。
func Move(orig Rect, dx, dy float64, canvas Canvas, snap Snap) Point {
	maxX := canvas.Width - orig.Width
	maxY := canvas.Height - orig.Height

	x := clamp(orig.X+dx, 0, maxX)
	y := clamp(orig.Y+dy, 0, maxY)
	if snap.active() {
		x = clamp(SnapValue(x, snap.GridSizeMM), 0, maxX)
		y = clamp(SnapValue(y, snap.GridSizeMM), 0, maxY)
	}
	return Point{X: x, Y: y}
}

// Resize 返回原尺寸加上总位移后的尺寸：每个方向不小于 MinSizeMM，远端边缘不超出画布。
// 元素离画布边缘不足 MinSizeMM 时以最小尺寸为准，越界部分由 Repair 处理。
func Resize(orig Rect, dx, dy float64, canvas Canvas, snap Snap) Size {
	maxW := math.Max(MinSizeMM, canvas.Width-orig.X)
	maxH := math.Max(MinSizeMM, canvas.Height-orig.Y)

	w := clamp(orig.Width+dx, MinSizeMM, maxW)
	h := clamp(orig.Height+dy, MinSizeMM, maxH)
	if snap.active() {
		w = clamp(SnapValue(w, snap.GridSizeMM), MinSizeMM, maxW)
		h = clamp(SnapValue(h, snap.GridSizeMM), MinSizeMM, maxH)
	}
	return Size{Width: w, Height: h}
}

// clamp 限制 v 在 [lo, hi] 内；hi < lo（元素比画布大）时返回 lo。
func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// DragSession captures an element's geometry when a drag begins.
// Update is a pure function of the original geometry and the total delta since the start.
type DragSession struct {
	origin Rect
	canvas Canvas
	snap   Snap
}

func BeginDrag(e label.Element, canvas Canvas, snap Snap) *DragSession {
	return &DragSession{origin: RectOf(e), canvas: canvas, snap: snap}
}

// Origin returns the geometry captured at session start.
func (s *DragSession) Origin() Rect { return s.origin }

// Update returns the position for a total pointer delta in millimeters.
func (s *DragSession) Update(totalDx, totalDy float64) Point {
	return Move(s.origin, totalDx, totalDy, s.canvas, s.snap)
}

// UpdatePointer 接受屏幕像素位移与当前缩放比例。
func (s *DragSession) UpdatePointer(dxPx, dyPx, zoom float64) Point {
	dx, dy := PointerDelta(dxPx, dyPx, zoom)
	return s.Update(dx, dy)
}

// ResizeSession 与 DragSession 相同，但作用于尺寸。
type ResizeSession struct {
	origin Rect
	canvas Canvas
	snap   Snap
}

func BeginResize(e label.Element, canvas Canvas, snap Snap) *ResizeSession {
	return &ResizeSession{origin: RectOf(e), canvas: canvas, snap: snap}
}

func (s *ResizeSession) Origin() Rect { return s.origin }

func (s *ResizeSession) Update(totalDx, totalDy float64) Size {
	return Resize(s.origin, totalDx, totalDy, s.canvas, s.snap)
}

func (s *ResizeSession) UpdatePointer(dxPx, dyPx, zoom float64) Size {
	dx, dy := PointerDelta(dxPx, dyPx, zoom)
	return s.Update(dx, dy)
}

// PointerDelta 把屏幕像素位移换算为画布毫米位移；zoom 非正时按 1 处理。
func PointerDelta(dxPx, dyPx, zoom float64) (float64, float64) {
	if zoom <= 0 {
		zoom = 1
	}
	return units.PxToMMAt96(dxPx) / zoom, units.PxToMMAt96(dyPx) / zoom
}
