package label

import "fmt"

// 校验问题代码。
const (
	ViolationNonPositiveWidth  = "non_positive_width"
	ViolationNonPositiveHeight = "non_positive_height"
	ViolationEmptyID           = "empty_id"
	ViolationDuplicateID       = "duplicate_id"
	ViolationMissingBindingKey = "missing_binding_key"
	ViolationOutOfCanvas       = "out_of_canvas"
)

// Violation 描述模板中的一处问题。几何问题由 geometry 包修复，不会导致拒绝渲染。
type Violation struct {
	Code      string `json:"code"`
	ElementID string `json:"element_id,omitempty"`
	Message   string `json:"message"`
}

// Validate 检查模板并返回全部问题；不会返回错误。
func Validate(t Template) []Violation {
	var violations []Violation

	if t.Width <= 0 {
		violations = append(violations, Violation{
			Code:    ViolationNonPositiveWidth,
			Message: fmt.Sprintf("template width must be positive, got %v", t.Width),
		})
	}
	if t.Height <= 0 {
		violations = append(violations, Violation{
			Code:    ViolationNonPositiveHeight,
			Message: fmt.Sprintf("template height must be positive, got %v", t.Height),
		})
	}

	seen := make(map[string]struct{}, len(t.Elements))
	for _, e := range t.Elements {
		base := e.Base()
		if base.ID == "" {
			violations = append(violations, Violation{Code: ViolationEmptyID, Message: "element id is empty"})
		} else if _, dup := seen[base.ID]; dup {
			violations = append(violations, Violation{
				Code:      ViolationDuplicateID,
				ElementID: base.ID,
				Message:   fmt.Sprintf("element id %q is not unique", base.ID),
			})
		}
		seen[base.ID] = struct{}{}

		if base.Binding != nil && base.Binding.Key == "" {
			violations = append(violations, Violation{
				Code:      ViolationMissingBindingKey,
				ElementID: base.ID,
				Message:   "dynamic element has no binding key",
			})
		}

		if t.Width > 0 && t.Height > 0 {
			w, h := Size(e)
			if base.X < 0 || base.Y < 0 || base.X+w > t.Width || base.Y+h > t.Height {
				violations = append(violations, Violation{
					Code:      ViolationOutOfCanvas,
					ElementID: base.ID,
					Message:   fmt.Sprintf("element %q exceeds the %vx%v mm canvas", base.ID, t.Width, t.Height),
				})
			}
		}
	}

	return violations
}

// IsValid reports whether Validate finds no violations.
func IsValid(t Template) bool {
	return len(Validate(t)) == 0
}
