package pgtest

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Rows is a fixed result set satisfying pgx.Rows.
type Rows struct {
	columns []string
	data    [][]interface{}
	pos     int
	closed  bool
	err     error
}

// NewRows builds a result set; every data row must have len(columns) values.
func NewRows(columns []string, data ...[]interface{}) *Rows {
	return &Rows{columns: columns, data: data, pos: -1}
}

// WithErr makes Err report err once iteration ends.
func (r *Rows) WithErr(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) Close()                        { r.closed = true }
func (r *Rows) Err() error                    { return r.err }
func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.data))) }
func (r *Rows) RawValues() [][]byte           { return nil }
func (r *Rows) Conn() *pgx.Conn               { return nil }

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		out[i] = pgconn.FieldDescription{Name: name}
	}
	return out
}

func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	if r.pos >= len(r.data) {
		r.closed = true
		return false
	}
	return true
}

func (r *Rows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.data) {
		return nil, fmt.Errorf("no current row")
	}
	return r.data[r.pos], nil
}

// Scan supports *interface{}, *string, *int64 and *bool destinations.
func (r *Rows) Scan(dest ...any) error {
	values, err := r.Values()
	if err != nil {
		return err
	}
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(values))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *interface{}:
			*p = values[i]
		case *string:
			s, ok := values[i].(string)
			if !ok {
				return fmt.Errorf("scan: column %s is %T, not string", r.columns[i], values[i])
			}
			*p = s
		case *int64:
			n, ok := values[i].(int64)
			if !ok {
				return fmt.Errorf("scan: column %s is %T, not int64", r.columns[i], values[i])
			}
			*p = n
		case *bool:
			b, ok := values[i].(bool)
			if !ok {
				return fmt.Errorf("scan: column %s is %T, not bool", r.columns[i], values[i])
			}
			*p = b
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}
