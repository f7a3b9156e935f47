package engine

import "context"

// ============================================================
// MUTATION TYPES
// ============================================================

type MutationType int

const (
	MutationInsert MutationType = iota
	MutationUpdate
	MutationDelete
	MutationSelect
)

func (t MutationType) String() string {
	switch t {
	case MutationInsert:
		return "INSERT"
	case MutationUpdate:
		return "UPDATE"
	case MutationDelete:
		return "DELETE"
	case MutationSelect:
		return "SELECT"
	default:
		return "UNKNOWN"
	}
}

// ============================================================
// MUTATION RESULT TYPES
// ============================================================

type InsertResult struct {
	ID       interface{}            // Primary key
	Record   map[string]interface{} // Full record (if RETURNING)
	Affected int
}

type UpdateResult struct {
	Records  []map[string]interface{}
	Affected int
}

type DeleteResult struct {
	Affected int
}

// CollectionRow is one row of a collection table. Key is the map key or
// list index, nil for sets.
type CollectionRow struct {
	Owner   interface{}
	Key     interface{}
	Element interface{}
}

type CollectionResult struct {
	Rows     []CollectionRow
	Affected int
}

// ============================================================
// MUTATION BUILDER INTERFACES
// ============================================================

// UpdateMutation builds and executes UPDATE operations
type UpdateMutation interface {
	// Set adds a field to update
	Set(field string, value interface{}) UpdateMutation

	// Filter adds a filter condition (WHERE clause)
	Filter(field string, operator string, value interface{}) UpdateMutation

	// Debug enables debug output for this mutation
	Debug() UpdateMutation

	// Execute validates and runs the mutation
	Execute(ctx context.Context) (*UpdateResult, error)
}

// ============================================================
// COLLECTION TABLE BUILDERS
// ============================================================

// CollectionDeleteMutation deletes rows of a collection table.
// Without KeysIn every row of the owner is deleted.
type CollectionDeleteMutation interface {
	Owner(id interface{}) CollectionDeleteMutation

	// KeysIn restricts the delete to the given keys. For relations without
	// a key column the element column is matched instead.
	KeysIn(keys ...interface{}) CollectionDeleteMutation

	Debug() CollectionDeleteMutation
	Execute(ctx context.Context) (*DeleteResult, error)

	// ExecuteReturning deletes and reports the removed rows.
	ExecuteReturning(ctx context.Context) (*CollectionResult, error)
}

// CollectionInsertMutation inserts one row of a collection table.
type CollectionInsertMutation interface {
	Owner(id interface{}) CollectionInsertMutation
	Key(key interface{}) CollectionInsertMutation
	Element(element interface{}) CollectionInsertMutation

	// OnlyIfAbsent turns the insert into an upsert probe: a conflicting row
	// makes the insert affect zero rows instead of failing.
	OnlyIfAbsent() CollectionInsertMutation

	Debug() CollectionInsertMutation
	Execute(ctx context.Context) (*InsertResult, error)
}

// CollectionUpdateMutation rewrites the element of one keyed row.
type CollectionUpdateMutation interface {
	Owner(id interface{}) CollectionUpdateMutation
	Key(key interface{}) CollectionUpdateMutation
	Element(element interface{}) CollectionUpdateMutation
	Debug() CollectionUpdateMutation
	Execute(ctx context.Context) (*UpdateResult, error)
}

// CollectionSelectMutation loads the rows of a collection table.
type CollectionSelectMutation interface {
	Owner(id interface{}) CollectionSelectMutation
	Debug() CollectionSelectMutation
	Execute(ctx context.Context) (*CollectionResult, error)
}

// ============================================================
// FACTORY
// ============================================================

// MutationFactory creates mutation builders
//
// CRITICAL: Factory is STATELESS.
// Schema and Connector are passed in each call to allow registry pattern.
// This avoids import cycles (engine <-> mutation).
//
// Factory is registered once via init() in mutation package.
// Engine uses it via getMutationFactory() from registry.
type MutationFactory interface {
	NewUpdate(entity string, schema *Schema, connector *Connector) UpdateMutation

	NewCollectionDelete(entity, relation string, schema *Schema, connector *Connector) CollectionDeleteMutation
	NewCollectionInsert(entity, relation string, schema *Schema, connector *Connector) CollectionInsertMutation
	NewCollectionUpdate(entity, relation string, schema *Schema, connector *Connector) CollectionUpdateMutation
	NewCollectionSelect(entity, relation string, schema *Schema, connector *Connector) CollectionSelectMutation
}
