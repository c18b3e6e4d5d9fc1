package geometry

import (
	"labelDesk/internal/label"
)

// Repair 返回修复后的模板副本以及修复前发现的问题。
// 越界元素被移回画布内，超出画布的尺寸被缩小到画布尺寸，非正尺寸恢复为该类型的默认值。
// 画布自身尺寸非法时无法修复几何，只返回副本与问题列表。
func Repair(t label.Template) (label.Template, []label.Violation) {
	violations := label.Validate(t)
	out := label.CloneTemplate(t)
	if out.Width <= 0 || out.Height <= 0 {
		return out, violations
	}

	for _, e := range out.Elements {
		base := e.Base()
		defW, defH := label.DefaultSize(e.Kind())
		w, h := label.Size(e)

		if w <= 0 {
			w = defW
			base.Width = floatPtr(w)
		}
		if h <= 0 {
			h = defH
			base.Height = floatPtr(h)
		}
		if w > out.Width {
			w = out.Width
			base.Width = floatPtr(w)
		}
		if h > out.Height {
			h = out.Height
			base.Height = floatPtr(h)
		}

		base.X = clamp(base.X, 0, out.Width-w)
		base.Y = clamp(base.Y, 0, out.Height-h)
	}
	return out, violations
}

func floatPtr(v float64) *float64 {
	return &v
}
