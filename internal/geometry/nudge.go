package geometry

import "fmt"

// Direction 键盘方向键。
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Modifier selects the nudge step.
type Modifier string

const (
	ModifierNone   Modifier = ""
	ModifierCoarse Modifier = "coarse"
	ModifierFine   Modifier = "fine"
)

// 微调步长（毫米）。
const (
	NudgeStepMM       = 1.0
	NudgeCoarseStepMM = 10.0
	NudgeFineStepMM   = 0.1
)

// Step returns the step in millimeters for m.
func Step(m Modifier) float64 {
	switch m {
	case ModifierCoarse:
		return NudgeCoarseStepMM
	case ModifierFine:
		return NudgeFineStepMM
	default:
		return NudgeStepMM
	}
}

// ParseDirection 校验来自请求的方向字符串。
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down, Left, Right:
		return d, nil
	default:
		return "", fmt.Errorf("unknown nudge direction %q", s)
	}
}

// Nudge moves orig one step in dir using the same clamping as Move. Nudging never snaps.
func Nudge(orig Rect, dir Direction, m Modifier, canvas Canvas) Point {
	step := Step(m)
	var dx, dy float64
	switch dir {
	case Up:
		dy = -step
	case Down:
		dy = step
	case Left:
		dx = -step
	case Right:
		dx = step
	}
	return Move(orig, dx, dy, canvas, Snap{})
}
