package binding

import (
	"labelDesk/internal/datasource"
	"labelDesk/internal/label"
)

// BrokenLinks 返回绑定键不在当前 schema 中的元素 ID（系统键始终视为有效）。
// 判定依据是 schema 而不是数据行：schema 中存在但本次数据缺少的列不会被标记，
// 这部分由 MissingColumns 单独报告。
func BrokenLinks(t label.Template, schema []label.SchemaField) []string {
	keys := label.SchemaKeys(schema)
	var broken []string
	for _, e := range t.Elements {
		base := e.Base()
		if !base.IsDynamic() {
			continue
		}
		key := base.Binding.Key
		if label.IsSystemKey(key) {
			continue
		}
		if _, ok := keys[key]; !ok {
			broken = append(broken, base.ID)
		}
	}
	return broken
}

// MissingColumns returns the non-system binding keys of t that row does not carry,
// in element order without duplicates.
func MissingColumns(t label.Template, row datasource.Row) []string {
	seen := make(map[string]struct{})
	var missing []string
	for _, e := range t.Elements {
		base := e.Base()
		if !base.IsDynamic() || label.IsSystemKey(base.Binding.Key) {
			continue
		}
		key := base.Binding.Key
		if _, ok := row.Get(key); ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, key)
	}
	return missing
}
