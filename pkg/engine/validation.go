package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ============================================================
// VALIDATOR CONFIG
// ============================================================

type ValidatorConfig struct {
	StrictTypes bool
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{StrictTypes: true}
}

// ============================================================
// VALIDATOR
// ============================================================

// Validator checks builder input against the schema before SQL generation.
type Validator struct {
	schema *Schema
	config ValidatorConfig
}

func NewValidator(schema *Schema, config ValidatorConfig) *Validator {
	return &Validator{schema: schema, config: config}
}

// ValidateUpdateInput requires a known entity, known fields, at least one
// SET and at least one filter.
func (v *Validator) ValidateUpdateInput(entity string, filters, updates map[string]interface{}) error {
	ent := v.schema.GetEntity(entity)
	if ent == nil {
		return &UnknownEntityError{Entity: entity, Available: v.schema.EntityNames()}
	}

	if len(updates) == 0 {
		return &ValidationError{
			Field:    entity,
			Type:     "no_updates",
			Expected: "at least one Set()",
			Message:  "UPDATE without fields to set",
		}
	}
	if len(filters) == 0 {
		return &ValidationError{
			Field:    entity,
			Type:     "no_filters",
			Expected: "at least one Filter()",
			Message:  "UPDATE without WHERE would touch every row",
		}
	}

	for name, value := range updates {
		field, ok := ent.Fields[name]
		if !ok {
			return &UnknownFieldError{Entity: entity, Field: name, Available: availableFields(ent)}
		}
		if field.PrimaryKey {
			return &ValidationError{
				Field:    name,
				Type:     "primary_key_update",
				Value:    value,
				Expected: "immutable primary key",
				Message:  "primary keys cannot be updated",
			}
		}
		if err := v.validateFieldType(field, value); err != nil {
			return err
		}
	}
	for name, value := range filters {
		field, ok := ent.Fields[name]
		if !ok {
			return &UnknownFieldError{Entity: entity, Field: name, Available: availableFields(ent)}
		}
		if err := v.validateFieldType(field, value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCollection resolves the collection table of a plural relation.
func (v *Validator) ValidateCollection(entity, relation string) (*CollectionTable, error) {
	return v.schema.CollectionTable(entity, relation)
}

func (v *Validator) validateFieldType(field *Field, value interface{}) error {
	if value == nil {
		if !field.Nullable && !field.PrimaryKey {
			return &NotNullError{Field: field.Name, Suggestion: fmt.Sprintf("Provide a value for %s (this field is required)", field.Name)}
		}
		return nil
	}
	if !v.config.StrictTypes {
		return nil
	}

	switch field.Type.Kind {
	case "UUID":
		switch id := value.(type) {
		case uuid.UUID, [16]byte:
			return nil
		case string:
			if _, err := uuid.Parse(id); err != nil {
				return &TypeMismatchError{
					Field:        field.Name,
					ExpectedType: "uuid",
					ReceivedType: "string",
					Value:        value,
					Suggestion:   "Use uuid.Parse() to convert",
				}
			}
			return nil
		}
	case "String":
		if _, ok := value.(string); ok {
			return nil
		}
	case "Int":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		}
	case "Bool":
		if _, ok := value.(bool); ok {
			return nil
		}
	default:
		return nil
	}

	return &TypeMismatchError{
		Field:        field.Name,
		ExpectedType: field.Type.String(),
		ReceivedType: fmt.Sprintf("%T", value),
		Value:        value,
		Suggestion:   fmt.Sprintf("Provide a %s value", field.Type.String()),
	}
}

func availableFields(ent *Entity) []string {
	names := make([]string, 0, len(ent.Fields))
	for name := range ent.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
