package mutation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the builders translate.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeUndefinedTable      = "42P01"
	codeUndefinedColumn     = "42703"
)

// mapCollectionError converts a failed collection table statement. Key
// conflicts and dangling references are reported against the relation so
// that a flush failure names the attribute being written.
func mapCollectionError(err error, table *engine.CollectionTable, operation string, values map[string]interface{}) error {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return mapDatabaseError(err, table.Table, operation, values)
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		field := table.AddressColumn()
		value := values[field]
		return &engine.UniqueConstraintError{
			Field:    field,
			Value:    value,
			Table:    table.Table,
			Relation: table.Entity + "." + table.Relation,
			Suggestion: fmt.Sprintf("%s.%s already holds %v for this owner; flush the removal before adding it again",
				table.Entity, table.Relation, value),
		}

	case codeForeignKeyViolation:
		field := extractFieldFromDetail(pgErr.Detail)
		value := values[field]
		suggestion := fmt.Sprintf("Element %v of %s.%s is not persisted; persist it or enable persist cascading",
			value, table.Entity, table.Relation)
		if field == table.OwnerColumn {
			suggestion = fmt.Sprintf("Owner %s %v is not persisted; flush it before %s.%s",
				table.Entity, value, table.Entity, table.Relation)
		}
		return &engine.ForeignKeyError{
			Field:           field,
			Value:           value,
			Relation:        table.Entity + "." + table.Relation,
			ReferencedTable: referencedTable(pgErr),
			ReferencedField: "id",
			Suggestion:      suggestion,
		}
	}
	return mapDatabaseError(err, table.Table, operation, values)
}

// mapDatabaseError converts PostgreSQL errors raised on table to engine
// error types. Anything else is wrapped with the operation.
func mapDatabaseError(err error, table string, operation string, values map[string]interface{}) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s failed: %w", operation, err)
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		field := extractFieldFromDetail(pgErr.Detail)
		return &engine.UniqueConstraintError{
			Field:      field,
			Value:      values[field],
			Table:      table,
			Suggestion: fmt.Sprintf("Use a different value for %s, or update the existing row", field),
		}

	case codeForeignKeyViolation:
		field := extractFieldFromDetail(pgErr.Detail)
		ref := referencedTable(pgErr)
		return &engine.ForeignKeyError{
			Field:           field,
			Value:           values[field],
			ReferencedTable: ref,
			ReferencedField: "id",
			Suggestion:      fmt.Sprintf("Ensure the referenced %s row exists before writing to %s", ref, table),
		}

	case codeNotNullViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = extractFieldFromMessage(pgErr.Message)
		}
		return &engine.NotNullError{
			Field:      field,
			Suggestion: fmt.Sprintf("Provide a value for %s (this column is required)", field),
		}

	case codeCheckViolation:
		return &engine.ConstraintError{
			Type:       "check",
			Field:      extractFieldFromMessage(pgErr.Message),
			Suggestion: fmt.Sprintf("Value violates check constraint: %s", pgErr.ConstraintName),
		}

	case codeUndefinedTable:
		return &engine.ValidationError{
			Field:    table,
			Type:     "undefined_table",
			Value:    table,
			Expected: "valid table name",
			Message:  fmt.Sprintf("Table '%s' does not exist. Run `entityview verify` against the schema.", table),
		}

	case codeUndefinedColumn:
		// 'column "unknown_field" of relation "users" does not exist'
		return &engine.UnknownFieldError{
			Entity: table,
			Field:  extractFieldFromMessage(pgErr.Message),
		}
	}

	return fmt.Errorf("%s failed: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
}

// ============================================================
// HELPER FUNCTIONS - Extract info from PostgreSQL errors
// ============================================================

// extractFieldFromDetail returns the first column of a constraint detail.
// Input: "Key (user_id, key)=(1, a) already exists."
// Output: "user_id"
func extractFieldFromDetail(detail string) string {
	start := strings.Index(detail, "(")
	end := strings.Index(detail, ")")
	if start < 0 || end <= start {
		return ""
	}
	field, _, _ := strings.Cut(detail[start+1:end], ",")
	return strings.TrimSpace(field)
}

// referencedTable reads the target of a foreign key violation.
// Detail: `Key (user_id)=(9) is not present in table "users".`
// Constraint fallback: fk_{table}_{column}_{referenced}
func referencedTable(pgErr *pgconn.PgError) string {
	if _, rest, ok := strings.Cut(pgErr.Detail, "in table "); ok {
		if name := extractFieldFromMessage(rest); name != "" {
			return name
		}
	}
	parts := strings.Split(pgErr.ConstraintName, "_")
	if len(parts) >= 4 && parts[0] == "fk" {
		return parts[len(parts)-1]
	}
	return "referenced_table"
}

// extractFieldFromMessage returns the first double-quoted name.
// Input: 'column "unknown_field" of relation "users" does not exist'
// Output: "unknown_field"
func extractFieldFromMessage(message string) string {
	start := strings.Index(message, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(message[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return message[start+1 : start+1+end]
}
