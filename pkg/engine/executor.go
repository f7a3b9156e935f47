package engine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Executor runs raw statements through a connector's querier
type Executor struct {
	connector *Connector
}

// NewExecutor creates an executor from a connector
func NewExecutor(connector *Connector) *Executor {
	return &Executor{connector: connector}
}

func (ex *Executor) querier() (Querier, error) {
	if ex.connector == nil || !ex.connector.IsConnected() {
		return nil, fmt.Errorf("not connected to database")
	}
	return ex.connector.Querier(), nil
}

// Query runs sql and returns the rows as field maps
func (ex *Executor) Query(ctx context.Context, sql string, args ...interface{}) ([]Row, error) {
	q, err := ex.querier()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// Exec runs sql and returns the affected row count
func (ex *Executor) Exec(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	q, err := ex.querier()
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// scanRows converts pgx rows into our Row type
func scanRows(rows pgx.Rows) ([]Row, error) {
	var result []Row
	columns := rows.FieldDescriptions()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row)
		for i, col := range columns {
			row[col.Name] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
