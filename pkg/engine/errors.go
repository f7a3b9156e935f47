package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ============================================================
// BASE ERROR INTERFACES
// ============================================================

// MutationError is the base interface for all mutation errors
type MutationError interface {
	error
	Code() string     // Error code for programmatic handling
	IsMutationError() // Marker method
}

// ============================================================
// VALIDATION ERRORS (Before SQL generation)
// ============================================================

// ValidationError: Schema/type/constraint validation failure
type ValidationError struct {
	Field    string      // "email", "age"
	Type     string      // "type_mismatch", "undefined_table"
	Value    interface{} // actual value provided
	Expected string      // "uuid", "valid table name"
	Message  string      // User-friendly message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(
		"ValidationError: Field '%s' - %s\n"+
			"  Expected: %s\n"+
			"  Got: %v\n"+
			"  Details: %s",
		e.Field, e.Type, e.Expected, e.Value, e.Message,
	)
}

func (e *ValidationError) Code() string     { return "VALIDATION_ERROR" }
func (e *ValidationError) IsMutationError() {}

// TypeMismatchError: Value doesn't match field type
type TypeMismatchError struct {
	Field        string
	ExpectedType string
	ReceivedType string
	Value        interface{}
	Suggestion   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf(
		"TypeMismatchError: Field '%s'\n"+
			"  Expected type: %s\n"+
			"  Received type: %s (value: %v)\n"+
			"  Suggestion: %s",
		e.Field, e.ExpectedType, e.ReceivedType, e.Value, e.Suggestion,
	)
}

func (e *TypeMismatchError) Code() string     { return "TYPE_MISMATCH" }
func (e *TypeMismatchError) IsMutationError() {}

// ============================================================
// CONSTRAINT ERRORS (Data integrity)
// ============================================================

// ConstraintError: Generic constraint violation
type ConstraintError struct {
	Type       string // "check"
	Field      string
	Value      interface{}
	Suggestion string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf(
		"ConstraintError: %s constraint violation\n"+
			"  Field: %s\n"+
			"  Value: %v\n"+
			"  Suggestion: %s",
		e.Type, e.Field, e.Value, e.Suggestion,
	)
}

func (e *ConstraintError) Code() string     { return fmt.Sprintf("%s_CONSTRAINT", strings.ToUpper(e.Type)) }
func (e *ConstraintError) IsMutationError() {}

// UniqueConstraintError: Value already exists (UNIQUE constraint)
type UniqueConstraintError struct {
	Field      string
	Value      interface{}
	Table      string
	Relation   string // Entity.relation for collection tables
	Suggestion string
}

func (e *UniqueConstraintError) Error() string {
	table := e.Table
	if e.Relation != "" {
		table = fmt.Sprintf("%s (%s)", e.Table, e.Relation)
	}
	return fmt.Sprintf(
		"UniqueConstraintError: Field '%s' must be unique\n"+
			"  Value: %v\n"+
			"  Table: %s\n"+
			"  Suggestion: %s",
		e.Field, e.Value, table, e.Suggestion,
	)
}

func (e *UniqueConstraintError) Code() string     { return "UNIQUE_CONSTRAINT_VIOLATION" }
func (e *UniqueConstraintError) IsMutationError() {}

// NotNullError: Required field is null
type NotNullError struct {
	Field      string
	Suggestion string
}

func (e *NotNullError) Error() string {
	return fmt.Sprintf(
		"NotNullError: Field '%s' cannot be null\n"+
			"  Suggestion: %s",
		e.Field, e.Suggestion,
	)
}

func (e *NotNullError) Code() string     { return "NOT_NULL_VIOLATION" }
func (e *NotNullError) IsMutationError() {}

// ForeignKeyError: Referenced record doesn't exist
type ForeignKeyError struct {
	Field           string
	Value           interface{}
	Relation        string // Entity.relation for collection tables
	ReferencedTable string
	ReferencedField string
	Suggestion      string
}

func (e *ForeignKeyError) Error() string {
	field := e.Field
	if e.Relation != "" {
		field = fmt.Sprintf("%s (%s)", e.Field, e.Relation)
	}
	return fmt.Sprintf(
		"ForeignKeyError: Invalid reference\n"+
			"  Field: %s\n"+
			"  Referenced: %s(%s=%v)\n"+
			"  Suggestion: %s",
		field,
		e.ReferencedTable, e.ReferencedField, e.Value,
		e.Suggestion,
	)
}

func (e *ForeignKeyError) Code() string     { return "FOREIGN_KEY_VIOLATION" }
func (e *ForeignKeyError) IsMutationError() {}

// ============================================================
// SCHEMA ERRORS
// ============================================================

// UnknownEntityError: Entity doesn't exist in schema
type UnknownEntityError struct {
	Entity    string
	Available []string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf(
		"UnknownEntityError: Entity '%s' not found in schema\n"+
			"  Available entities: %v",
		e.Entity, e.Available,
	)
}

func (e *UnknownEntityError) Code() string     { return "UNKNOWN_ENTITY" }
func (e *UnknownEntityError) IsMutationError() {}

// UnknownFieldError: Field doesn't exist in schema
type UnknownFieldError struct {
	Entity    string
	Field     string
	Available []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf(
		"UnknownFieldError: Entity '%s' has no field '%s'\n"+
			"  Available fields: %v",
		e.Entity, e.Field, e.Available,
	)
}

func (e *UnknownFieldError) Code() string     { return "UNKNOWN_FIELD" }
func (e *UnknownFieldError) IsMutationError() {}

// UnknownRelationError: Relation missing or not backed by a collection table
type UnknownRelationError struct {
	Entity   string
	Relation string
	Reason   string
}

func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf(
		"UnknownRelationError: Entity '%s' has no collection relation '%s'\n"+
			"  Reason: %s",
		e.Entity, e.Relation, e.Reason,
	)
}

func (e *UnknownRelationError) Code() string     { return "UNKNOWN_RELATION" }
func (e *UnknownRelationError) IsMutationError() {}

// ============================================================
// FORMATTING
// ============================================================

// FormatError renders an error for terminal output. Typed errors get a
// colored header with their code; anything else is returned as-is.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var coded interface{ Code() string }
	if !errors.As(err, &coded) {
		return err.Error()
	}

	var b strings.Builder
	lines := strings.Split(err.Error(), "\n")

	errorColor := color.New(color.FgRed, color.Bold)
	errorColor.Fprintf(&b, "Error ")
	codeColor := color.New(color.FgCyan)
	codeColor.Fprintf(&b, "[%s]", coded.Code())
	fmt.Fprintf(&b, ": %s\n", lines[0])

	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Suggestion:") {
			helpColor := color.New(color.FgYellow, color.Bold)
			helpColor.Fprintf(&b, "  Help: ")
			fmt.Fprintf(&b, "%s\n", strings.TrimSpace(strings.TrimPrefix(trimmed, "Suggestion:")))
			continue
		}
		fmt.Fprintf(&b, "%s\n", line)
	}

	return b.String()
}
