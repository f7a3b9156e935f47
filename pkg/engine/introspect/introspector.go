package introspect

import (
	"context"
	"fmt"
	"strings"
)

// ColumnInfo represents a column
type ColumnInfo struct {
	Name       string
	Type       string // DB-specific type (e.g., "varchar", "integer")
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	DefaultVal *string
	ForeignKey *ForeignKeyInfo
}

// ForeignKeyInfo represents a foreign key constraint
type ForeignKeyInfo struct {
	ReferencedTable  string
	ReferencedColumn string
	ConstraintName   string
}

// TableInfo represents a table structure
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
}

// Column returns the named column, or nil.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Introspector reads the catalog entries the collection table check needs.
type Introspector interface {
	// ListTables returns all user-defined tables
	ListTables(ctx context.Context) ([]string, error)

	// InspectTable returns detailed structure
	InspectTable(ctx context.Context, tableName string) (*TableInfo, error)

	Close() error
}

// NewIntrospector connects to the PostgreSQL database named by connStr.
func NewIntrospector(ctx context.Context, connStr string) (Introspector, error) {
	normalizedConn := strings.TrimSpace(connStr)
	if normalizedConn == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if !isPostgresConnString(normalizedConn) {
		return nil, fmt.Errorf("collection tables are only verified on PostgreSQL: unsupported connection string")
	}
	return newPostgresIntrospector(ctx, normalizedConn)
}

// isPostgresConnString accepts postgres URLs and keyword/value DSNs.
func isPostgresConnString(connStr string) bool {
	normalized := strings.ToLower(strings.TrimSpace(connStr))

	if strings.HasPrefix(normalized, "postgresql://") || strings.HasPrefix(normalized, "postgres://") {
		return true
	}
	if !strings.Contains(normalized, "=") {
		return false
	}
	return strings.Contains(normalized, "host=") ||
		strings.Contains(normalized, "dbname=") ||
		strings.Contains(normalized, "user=")
}
