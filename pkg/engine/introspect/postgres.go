package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chameleon-db/entityview/pkg/engine"
)

const listTablesSQL = `SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name`

const columnsSQL = `SELECT
	c.column_name,
	c.data_type,
	c.is_nullable,
	EXISTS (
		SELECT 1
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = c.table_schema
			AND tc.table_name = c.table_name
			AND tc.constraint_type = 'PRIMARY KEY'
			AND kcu.column_name = c.column_name
	) AS is_primary,
	EXISTS (
		SELECT 1
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = c.table_schema
			AND tc.table_name = c.table_name
			AND tc.constraint_type = 'UNIQUE'
			AND kcu.column_name = c.column_name
	) AS is_unique,
	c.column_default
FROM information_schema.columns c
WHERE c.table_schema = 'public' AND c.table_name = $1
ORDER BY c.ordinal_position`

const foreignKeysSQL = `SELECT kcu.column_name, ccu.table_name, ccu.column_name, tc.constraint_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON tc.constraint_name = kcu.constraint_name
	AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
	ON ccu.constraint_name = tc.constraint_name
	AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1`

type postgresIntrospector struct {
	q     engine.Querier
	close func() error
}

func newPostgresIntrospector(ctx context.Context, connStr string) (Introspector, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &postgresIntrospector{
		q:     conn,
		close: func() error { return conn.Close(context.Background()) },
	}, nil
}

// NewPostgresIntrospector inspects through an existing querier, such as
// an engine connector's pool or a transaction. Close leaves it open.
func NewPostgresIntrospector(q engine.Querier) Introspector {
	return &postgresIntrospector{q: q}
}

func (pi *postgresIntrospector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := pi.q.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func (pi *postgresIntrospector) InspectTable(ctx context.Context, tableName string) (*TableInfo, error) {
	rows, err := pi.q.Query(ctx, columnsSQL, tableName)
	if err != nil {
		return nil, err
	}

	table := &TableInfo{
		Name:    tableName,
		Columns: []ColumnInfo{},
	}

	for rows.Next() {
		var col ColumnInfo
		var nullable string
		var defaultVal interface{}

		if err := rows.Scan(
			&col.Name,
			&col.Type,
			&nullable,
			&col.PrimaryKey,
			&col.Unique,
			&defaultVal,
		); err != nil {
			rows.Close()
			return nil, err
		}

		col.Nullable = nullable == "YES"
		if s, ok := defaultVal.(string); ok {
			col.DefaultVal = &s
		}
		table.Columns = append(table.Columns, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found or has no columns", tableName)
	}

	if err := pi.attachForeignKeys(ctx, table); err != nil {
		return nil, err
	}

	return table, nil
}

func (pi *postgresIntrospector) attachForeignKeys(ctx context.Context, table *TableInfo) error {
	rows, err := pi.q.Query(ctx, foreignKeysSQL, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var column string
		fk := &ForeignKeyInfo{}
		if err := rows.Scan(&column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.ConstraintName); err != nil {
			return err
		}
		if col := table.Column(column); col != nil {
			col.ForeignKey = fk
		}
	}

	return rows.Err()
}

func (pi *postgresIntrospector) Close() error {
	if pi.close == nil {
		return nil
	}
	return pi.close()
}
