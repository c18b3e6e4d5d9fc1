package label

// 系统绑定键。operator_name 与 input_qty 为保留键，始终存在且不可修改；
// 其余键由解析器按约定识别，可被可编辑的 schema 条目引用。
const (
	KeyOperatorName = "operator_name"
	KeyInputQty     = "input_qty"
	KeySalesOrder   = "sales_order"
	KeyPlanBatch    = "plan_batch"
	KeyRemarks      = "remarks"
	KeyPrintDate    = "print_date"
	KeyDepartment   = "department"
	KeyCIPLNumber   = "cipl_number"
)

// SchemaField describes one bindable key known to the editor.
type SchemaField struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	IsSystem bool   `json:"isSystem,omitempty"`
	IsCustom bool   `json:"isCustom,omitempty"`
}

var systemKeys = map[string]struct{}{
	KeyOperatorName: {},
	KeyInputQty:     {},
	KeySalesOrder:   {},
	KeyPlanBatch:    {},
	KeyRemarks:      {},
	KeyPrintDate:    {},
	KeyDepartment:   {},
	KeyCIPLNumber:   {},
}

// IsSystemKey reports whether key is resolved from the session rather than a data row.
func IsSystemKey(key string) bool {
	_, ok := systemKeys[key]
	return ok
}

// IsReservedKey reports whether key is one of the two immutable schema entries.
func IsReservedKey(key string) bool {
	return key == KeyOperatorName || key == KeyInputQty
}

// SystemFields 返回新建 schema 时预置的保留字段。
func SystemFields() []SchemaField {
	return []SchemaField{
		{ID: "sys-" + KeyOperatorName, Key: KeyOperatorName, Label: "Operator", Type: "text", IsSystem: true},
		{ID: "sys-" + KeyInputQty, Key: KeyInputQty, Label: "Qty", Type: "number", IsSystem: true},
	}
}

// MergeSchema prepends the system fields to persisted and never drops them.
// Persisted entries that redefine a reserved key are ignored; for duplicate keys the first entry wins.
func MergeSchema(persisted []SchemaField) []SchemaField {
	merged := SystemFields()
	seen := make(map[string]struct{}, len(merged)+len(persisted))
	for _, f := range merged {
		seen[f.Key] = struct{}{}
	}
	for _, f := range persisted {
		if f.Key == "" {
			continue
		}
		if _, ok := seen[f.Key]; ok {
			continue
		}
		seen[f.Key] = struct{}{}
		merged = append(merged, f)
	}
	return merged
}

// SchemaKeys returns the set of keys in fields.
func SchemaKeys(fields []SchemaField) map[string]struct{} {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		keys[f.Key] = struct{}{}
	}
	return keys
}
