// Package datasource 定义外部导入的数据行，以及导入方与解析器共用的表头规范化函数。
package datasource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonKeyChars   = regexp.MustCompile(`[^a-z0-9_]`)
)

// SanitizeHeader 将表头转换为绑定键：小写、去首尾空白、连续空白折叠为单个下划线、
// 去掉 [a-z0-9_] 以外的字符。导入端与解析器必须共用此函数。
func SanitizeHeader(header string) string {
	key := strings.ToLower(strings.TrimSpace(header))
	key = whitespaceRun.ReplaceAllString(key, "_")
	return nonKeyChars.ReplaceAllString(key, "")
}

// Row is one ordered record keyed by sanitized header.
// On the wire it is a plain JSON object whose member order is the column order.
type Row struct {
	Keys   []string
	Values map[string]any
}

// MarshalJSON writes the row as an object in Keys order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(r.Values[key])
		if err != nil {
			return fmt.Errorf("encode column %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	seen := make(map[string]struct{}, len(r.Keys))
	for _, key := range r.Keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if err := write(key); err != nil {
			return nil, err
		}
	}
	// 不在 Keys 中的值按键名排在最后
	var extra []string
	for key := range r.Values {
		if _, ok := seen[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		if err := write(key); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping member order. Numbers decode as json.Number.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode row: expected object, got %v", tok)
	}

	row := Row{Values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode row: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode row: expected column name, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode column %q: %w", key, err)
		}
		row.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}

	*r = row
	return nil
}

// NewRow builds a row from already-sanitized key/value pairs in order.
func NewRow(pairs ...any) Row {
	row := Row{Values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		row.Set(key, pairs[i+1])
	}
	return row
}

// Set stores value under key, appending key when it is new.
func (r *Row) Set(key string, value any) {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	if _, exists := r.Values[key]; !exists {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	if r.Values == nil {
		return nil, false
	}
	v, ok := r.Values[key]
	return v, ok
}

// DataSource 是按顺序排列的数据行集合，核心只读取，不修改。
type DataSource struct {
	Rows []Row `json:"rows"`
}

// Len returns the number of rows.
func (d DataSource) Len() int {
	return len(d.Rows)
}

// Slice returns rows in [start, end), bounds-checked.
func (d DataSource) Slice(start, end int) ([]Row, error) {
	if start < 0 || end > len(d.Rows) || start > end {
		return nil, fmt.Errorf("row range [%d, %d) out of bounds for %d rows", start, end, len(d.Rows))
	}
	return d.Rows[start:end], nil
}

// FromRecords builds a data source from a header line and records,
// sanitizing every header. Empty sanitized headers are skipped; short records leave keys absent.
func FromRecords(headers []string, records [][]any) DataSource {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = SanitizeHeader(h)
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		var row Row
		for i, key := range keys {
			if key == "" || i >= len(record) {
				continue
			}
			row.Set(key, record[i])
		}
		rows = append(rows, row)
	}
	return DataSource{Rows: rows}
}
