// Package binding 决定每个元素最终显示的字符串：静态文本、会话变量或数据行字段，
// 并按需套用格式化器。解析永不失败：无法解析的绑定降级为占位符或空串。
package binding

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"labelDesk/internal/datasource"
	"labelDesk/internal/label"
)

// Mode 表示解析发生的场景。
type Mode string

const (
	ModeDesign   Mode = "design"
	ModePreview  Mode = "preview"
	ModePrintRow Mode = "print-row"
)

// Session 是当前操作员会话中的值。
type Session struct {
	OperatorName string            `json:"operator_name"`
	Department   string            `json:"department"`
	Inputs       map[string]string `json:"inputs,omitempty"`
	// AutoNumber 是本张标签已领取的单号；为空表示尚未领取。
	AutoNumber *int64 `json:"auto_number,omitempty"`
}

// WithAutoNumber returns a copy of s carrying n as the drawn auto-number.
func (s Session) WithAutoNumber(n int64) Session {
	s.AutoNumber = &n
	return s
}

// Context carries everything a resolution may read.
type Context struct {
	Mode    Mode
	Session Session
	Row     *datasource.Row
	// Now 为零值时使用当前时间。
	Now time.Time
}

// 会话字段未填写时显示的占位符，使"已绑定但为空"与"有意留空"可区分。
var systemPlaceholders = map[string]string{
	label.KeyOperatorName: "[Operator]",
	label.KeyInputQty:     "[Qty]",
	label.KeySalesOrder:   "[Sales Order]",
	label.KeyPlanBatch:    "[Plan/Batch]",
	label.KeyRemarks:      "[Remarks]",
	label.KeyDepartment:   "[Department]",
	label.KeyCIPLNumber:   "[CIPL No]",
}

// Resolver resolves element display strings. The zero value is not usable; use NewResolver.
type Resolver struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver 创建解析器；logger 为空时使用 slog.Default()。
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger, now: time.Now}
}

// Resolve returns the string displayed for e under ctx. It never fails.
func (r *Resolver) Resolve(e label.Element, ctx Context) string {
	base := e.Base()
	if !base.IsDynamic() {
		return base.Value
	}

	key := base.Binding.Key
	if label.IsSystemKey(key) {
		return r.resolveSystem(key, ctx)
	}

	if ctx.Mode == ModeDesign && ctx.Row == nil {
		return "[" + key + "]"
	}

	if ctx.Row == nil {
		return ""
	}
	value, ok := ctx.Row.Get(key)
	if !ok {
		return ""
	}

	format := base.Binding.Format
	if format == "" || format == label.FormatNone {
		return Stringify(value)
	}

	formatted, err := Format(value, format)
	if err != nil {
		r.logger.Warn("format failure, falling back to raw value",
			slog.String("element_id", base.ID),
			slog.String("binding_key", key),
			slog.String("format", string(format)),
			slog.Any("error", err),
		)
		return Stringify(value)
	}
	return formatted
}

// ResolveTemplate resolves every element of t, keyed by element id.
func (r *Resolver) ResolveTemplate(t label.Template, ctx Context) map[string]string {
	values := make(map[string]string, len(t.Elements))
	for _, e := range t.Elements {
		values[e.Base().ID] = r.Resolve(e, ctx)
	}
	return values
}

// Key exposes the raw binding key so callers can classify broken links.
func Key(e label.Element) string {
	return e.Base().BindingKey()
}

func (r *Resolver) resolveSystem(key string, ctx Context) string {
	session := ctx.Session
	switch key {
	case label.KeyOperatorName:
		return orPlaceholder(session.OperatorName, key)
	case label.KeyDepartment:
		return orPlaceholder(session.Department, key)
	case label.KeyPrintDate:
		now := ctx.Now
		if now.IsZero() {
			now = r.now()
		}
		return now.Format(shortDateLayout)
	case label.KeyCIPLNumber:
		if session.AutoNumber == nil {
			return systemPlaceholders[key]
		}
		return strconv.FormatInt(*session.AutoNumber, 10)
	default:
		return orPlaceholder(session.Inputs[key], key)
	}
}

func orPlaceholder(value, key string) string {
	if strings.TrimSpace(value) == "" {
		return systemPlaceholders[key]
	}
	return value
}

// defaultResolver backs the package-level Resolve.
var defaultResolver = NewResolver(nil)

// Resolve resolves e with a resolver logging to slog.Default().
func Resolve(e label.Element, ctx Context) string {
	return defaultResolver.Resolve(e, ctx)
}
