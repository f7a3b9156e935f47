package engine

import "fmt"

// Row represents a single result row as a map of field name → value
// Values are typed: string, int64, float64, bool, nil, time.Time
type Row map[string]interface{}

// Get returns the value of a field
func (r Row) Get(field string) interface{} {
	return r[field]
}

// String returns the string value of a field, or empty string if not found/not string
func (r Row) String(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// Int returns the int64 value of a field, or 0 if not found/not int
func (r Row) Int(field string) int64 {
	v, ok := r[field]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// CollectionRow maps a collection table row onto owner, key and element
// using the table's column names.
func (r Row) CollectionRow(t *CollectionTable) CollectionRow {
	row := CollectionRow{
		Owner:   r[t.OwnerColumn],
		Element: r[t.ElementColumn],
	}
	if t.HasKey() {
		row.Key = r[t.KeyColumn]
	}
	return row
}

// CollectionRows converts every row.
func CollectionRows(rows []Row, t *CollectionTable) []CollectionRow {
	out := make([]CollectionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CollectionRow(t))
	}
	return out
}
