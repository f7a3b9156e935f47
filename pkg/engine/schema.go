package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Schema represents the complete database schema
type Schema struct {
	Entities []*Entity `json:"entities"`
}

// Entity represents a database entity (table)
type Entity struct {
	Name      string               `json:"name"`
	Fields    map[string]*Field    `json:"fields"`
	Relations map[string]*Relation `json:"relations"`
}

// Field represents an entity field (column)
type Field struct {
	Name       string       `json:"name"`
	Type       FieldType    `json:"field_type"`
	Nullable   bool         `json:"nullable"`
	Unique     bool         `json:"unique"`
	PrimaryKey bool         `json:"primary_key"`
	Default    *interface{} `json:"default,omitempty"`
	Backend    *string      `json:"backend,omitempty"`
}

// FieldType represents the type of a field and can be simple or complex
type FieldType struct {
	Kind  string      `json:"-"` // e.g., "UUID", "String", "Vector", "Array"
	Param interface{} `json:"-"` // e.g., size for Vector, inner type for Array
}

// Simple field type constants
var (
	FieldTypeUUID      = FieldType{Kind: "UUID"}
	FieldTypeString    = FieldType{Kind: "String"}
	FieldTypeInt       = FieldType{Kind: "Int"}
	FieldTypeDecimal   = FieldType{Kind: "Decimal"}
	FieldTypeBool      = FieldType{Kind: "Bool"}
	FieldTypeTimestamp = FieldType{Kind: "Timestamp"}
	FieldTypeFloat     = FieldType{Kind: "Float"}
)

// UnmarshalJSON deserializes FieldType from JSON
// Can be: "UUID" (string) or {"Vector": 1536} or {"Array": "String"} (object)
func (ft *FieldType) UnmarshalJSON(data []byte) error {
	// Try as string first (simple types)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ft = FieldType{Kind: s}
		return nil
	}

	// Try as object (complex types like Vector and Array)
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err == nil {
		// Should have exactly one key
		if len(obj) != 1 {
			return fmt.Errorf("invalid FieldType object: expected 1 key, got %d", len(obj))
		}

		for key, value := range obj {
			*ft = FieldType{Kind: key, Param: value}
			return nil
		}
	}

	return fmt.Errorf("cannot unmarshal FieldType from %s", string(data))
}

// MarshalJSON serializes FieldType to JSON
func (ft FieldType) MarshalJSON() ([]byte, error) {
	if ft.Param == nil {
		return json.Marshal(ft.Kind)
	}
	obj := map[string]interface{}{ft.Kind: ft.Param}
	return json.Marshal(obj)
}

// String returns a string representation of the FieldType
func (ft FieldType) String() string {
	if ft.Param == nil {
		return ft.Kind
	}
	return fmt.Sprintf("%s(%v)", ft.Kind, ft.Param)
}

// Relation represents a relationship between entities
//
// Plural relations are stored in a collection table: Through names the
// table, ForeignKey the owner column. KeyColumn holds map keys or list
// indexes and is empty for sets.
type Relation struct {
	Name          string       `json:"name"`
	Kind          RelationKind `json:"kind"`
	TargetEntity  string       `json:"target_entity"`
	ForeignKey    *string      `json:"foreign_key,omitempty"`
	Through       *string      `json:"through,omitempty"`
	KeyColumn     *string      `json:"key_column,omitempty"`
	ElementColumn *string      `json:"element_column,omitempty"`
	Ordered       bool         `json:"ordered,omitempty"`
}

// RelationKind represents the type of relationship
type RelationKind string

const (
	RelationHasOne            RelationKind = "HasOne"
	RelationHasMany           RelationKind = "HasMany"
	RelationBelongsTo         RelationKind = "BelongsTo"
	RelationManyToMany        RelationKind = "ManyToMany"
	RelationElementCollection RelationKind = "ElementCollection"
	RelationMap               RelationKind = "Map"
)

// IsPlural reports whether the relation is flushed through a collection table.
func (k RelationKind) IsPlural() bool {
	switch k {
	case RelationHasMany, RelationManyToMany, RelationElementCollection, RelationMap:
		return true
	}
	return false
}

// CollectionTable is the resolved storage of a plural relation.
type CollectionTable struct {
	Entity        string
	Relation      string
	Table         string
	OwnerColumn   string
	KeyColumn     string // empty for sets
	ElementColumn string
}

// HasKey reports whether rows are addressed by a key or index column.
func (t *CollectionTable) HasKey() bool { return t.KeyColumn != "" }

// AddressColumn is the column deletes and updates match on.
func (t *CollectionTable) AddressColumn() string {
	if t.HasKey() {
		return t.KeyColumn
	}
	return t.ElementColumn
}

// CollectionTable resolves where a plural relation is stored. Missing
// names default to <entity>_<relation> for the table, <entity>_id for the
// owner column and "element" (or <target>_id for entity targets) for the
// element column. Map relations default their key column to "key" and
// ordered relations to "position".
func (s *Schema) CollectionTable(entity, relation string) (*CollectionTable, error) {
	ent := s.GetEntity(entity)
	if ent == nil {
		return nil, &UnknownEntityError{Entity: entity, Available: s.EntityNames()}
	}
	rel, ok := ent.Relations[relation]
	if !ok {
		return nil, &UnknownRelationError{Entity: entity, Relation: relation, Reason: "relation is not declared"}
	}
	if !rel.Kind.IsPlural() {
		return nil, &UnknownRelationError{Entity: entity, Relation: relation, Reason: fmt.Sprintf("%s relations have no collection table", rel.Kind)}
	}

	t := &CollectionTable{
		Entity:        entity,
		Relation:      relation,
		Table:         toSnakeCase(entity) + "_" + toSnakeCase(relation),
		OwnerColumn:   toSnakeCase(entity) + "_id",
		ElementColumn: "element",
	}
	if rel.TargetEntity != "" {
		t.ElementColumn = toSnakeCase(rel.TargetEntity) + "_id"
	}
	switch {
	case rel.Kind == RelationMap:
		t.KeyColumn = "key"
	case rel.Ordered:
		t.KeyColumn = "position"
	}
	if rel.Through != nil && *rel.Through != "" {
		t.Table = *rel.Through
	}
	if rel.ForeignKey != nil && *rel.ForeignKey != "" {
		t.OwnerColumn = *rel.ForeignKey
	}
	if rel.KeyColumn != nil {
		t.KeyColumn = *rel.KeyColumn
	}
	if rel.ElementColumn != nil && *rel.ElementColumn != "" {
		t.ElementColumn = *rel.ElementColumn
	}
	return t, nil
}

// GetEntity returns an entity by name, or nil if not found
func (s *Schema) GetEntity(name string) *Entity {
	if s == nil {
		return nil
	}
	for _, entity := range s.Entities {
		if entity.Name == name {
			return entity
		}
	}
	return nil
}

// EntityNames lists the declared entities in schema order.
func (s *Schema) EntityNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Entities))
	for _, entity := range s.Entities {
		names = append(names, entity.Name)
	}
	return names
}

// toSnakeCase converts PascalCase or camelCase to snake_case
func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, r)
	}
	return strings.ToLower(string(result))
}

// ParseSchemaJSON parses a JSON string into a Schema
func ParseSchemaJSON(jsonStr string) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal([]byte(jsonStr), &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// ToJSON converts a Schema to JSON string
func (s *Schema) ToJSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
