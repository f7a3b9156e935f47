// Package pgtest provides an in-process stand-in for a pgx querier so
// statement builders can be exercised without a database.
package pgtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call is one statement received by a Querier.
type Call struct {
	SQL  string
	Args []interface{}
}

// Querier records every statement. ExecFunc and QueryFunc, when set,
// decide the outcome; otherwise Exec reports zero affected rows and Query
// returns no rows.
type Querier struct {
	mu    sync.Mutex
	calls []Call

	ExecFunc  func(sql string, args []interface{}) (pgconn.CommandTag, error)
	QueryFunc func(sql string, args []interface{}) (*Rows, error)
}

func (q *Querier) record(sql string, args []interface{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, Call{SQL: sql, Args: args})
}

// Exec implements engine.Querier
func (q *Querier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.record(sql, args)
	if q.ExecFunc == nil {
		return Tag(sql, 0), nil
	}
	return q.ExecFunc(sql, args)
}

// Query implements engine.Querier
func (q *Querier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.record(sql, args)
	if q.QueryFunc == nil {
		return NewRows(nil), nil
	}
	rows, err := q.QueryFunc(sql, args)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = NewRows(nil)
	}
	return rows, nil
}

// Calls returns a copy of the received statements in order.
func (q *Querier) Calls() []Call {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Call, len(q.calls))
	copy(out, q.calls)
	return out
}

// SQL returns just the statement texts.
func (q *Querier) SQL() []string {
	calls := q.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.SQL
	}
	return out
}

func (q *Querier) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = nil
}

// Tag builds the command tag PostgreSQL would send for sql affecting n rows.
func Tag(sql string, n int64) pgconn.CommandTag {
	verb := strings.ToUpper(strings.Fields(strings.TrimSpace(sql) + " SELECT")[0])
	if verb == "INSERT" {
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", n))
	}
	return pgconn.NewCommandTag(fmt.Sprintf("%s %d", verb, n))
}
