package mutation

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/chameleon-db/entityview/pkg/engine"
)

// ============================================================
// DEBUG SUPPORT
// ============================================================

// debugSettings is embedded by every builder.
type debugSettings struct {
	connector  *engine.Connector
	debugLevel *engine.DebugLevel
}

func (d *debugSettings) enable() {
	level := engine.DebugSQL
	d.debugLevel = &level
}

// debugContext returns the connector's context, or a console one when
// Debug() was requested on a builder whose connector is silent.
func (d *debugSettings) debugContext() *engine.DebugContext {
	dc := d.connector.DebugContext()
	if d.debugLevel != nil && !dc.Enabled(*d.debugLevel) {
		return engine.NewDebugContext(*d.debugLevel, os.Stdout, "")
	}
	return dc
}

func (d *debugSettings) logSQL(entity, sql string, values []interface{}) {
	d.debugContext().LogSQL(entity, sql, values)
}

func (d *debugSettings) logTrace(op engine.MutationType, entity string, start time.Time, rows int) {
	d.debugContext().LogQuery(op.String(), entity, time.Since(start), rows)
}

// ============================================================
// UPDATE BUILDER
// ============================================================

type UpdateBuilder struct {
	debugSettings
	schema  *engine.Schema
	entity  string
	filters map[string]interface{}
	updates map[string]interface{}
	config  engine.ValidatorConfig
}

func NewUpdateBuilder(schema *engine.Schema, connector *engine.Connector, entity string) *UpdateBuilder {
	return &UpdateBuilder{
		debugSettings: debugSettings{connector: connector},
		schema:        schema,
		entity:        entity,
		filters:       make(map[string]interface{}),
		updates:       make(map[string]interface{}),
		config:        engine.DefaultValidatorConfig(),
	}
}

// Filter implements engine.UpdateMutation
func (ub *UpdateBuilder) Filter(field string, op string, value interface{}) engine.UpdateMutation {
	key := fmt.Sprintf("%s:%s", field, op)
	ub.filters[key] = value
	return ub
}

// Set implements engine.UpdateMutation
func (ub *UpdateBuilder) Set(field string, value interface{}) engine.UpdateMutation {
	ub.updates[field] = value
	return ub
}

// Debug implements engine.UpdateMutation
func (ub *UpdateBuilder) Debug() engine.UpdateMutation {
	ub.enable()
	return ub
}

// Execute implements engine.UpdateMutation
func (ub *UpdateBuilder) Execute(ctx context.Context) (*engine.UpdateResult, error) {
	start := time.Now()

	validator := engine.NewValidator(ub.schema, ub.config)
	if err := validator.ValidateUpdateInput(ub.entity, ub.parseFilters(), ub.updates); err != nil {
		return nil, err
	}

	sql, orderedValues := ub.generateSQL()
	ub.logSQL(ub.entity, sql, orderedValues)

	rows, err := engine.NewExecutor(ub.connector).Query(ctx, sql, orderedValues...)
	if err != nil {
		return nil, mapDatabaseError(err, ub.entity, "UPDATE", ub.updates)
	}

	records := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		records = append(records, row)
	}

	ub.logTrace(engine.MutationUpdate, ub.entity, start, len(records))

	return &engine.UpdateResult{
		Records:  records,
		Affected: len(records),
	}, nil
}

func (ub *UpdateBuilder) generateSQL() (string, []interface{}) {
	tableName := entityToTableName(ub.entity)

	var setClauses []string
	var values []interface{}
	paramIndex := 1

	// SET clauses - sort fields for consistent order
	var updateFields []string
	for field := range ub.updates {
		updateFields = append(updateFields, field)
	}
	sort.Strings(updateFields)

	for _, field := range updateFields {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, paramIndex))
		values = append(values, ub.updates[field])
		paramIndex++
	}

	// WHERE clauses - sort filters for consistent order
	var whereFields []string
	for filterKey := range ub.filters {
		whereFields = append(whereFields, filterKey)
	}
	sort.Strings(whereFields)

	var whereClauses []string
	for _, filterKey := range whereFields {
		field := strings.Split(filterKey, ":")[0]
		// Only equality is supported
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", field, paramIndex))
		values = append(values, ub.filters[filterKey])
		paramIndex++
	}

	sql := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s RETURNING *",
		tableName,
		strings.Join(setClauses, ", "),
		strings.Join(whereClauses, " AND "),
	)

	return sql, values
}

func (ub *UpdateBuilder) parseFilters() map[string]interface{} {
	result := make(map[string]interface{})
	for key, value := range ub.filters {
		parts := strings.Split(key, ":")
		if len(parts) > 0 {
			result[parts[0]] = value
		}
	}
	return result
}

// ============================================================
// COLLECTION BUILDERS - SHARED
// ============================================================

type collectionTarget struct {
	debugSettings
	table *engine.CollectionTable
	err   error
	owner interface{}
}

func newCollectionTarget(schema *engine.Schema, connector *engine.Connector, entity, relation string) collectionTarget {
	table, err := engine.NewValidator(schema, engine.DefaultValidatorConfig()).ValidateCollection(entity, relation)
	return collectionTarget{
		debugSettings: debugSettings{connector: connector},
		table:         table,
		err:           err,
	}
}

func (t *collectionTarget) check() error {
	if t.err != nil {
		return t.err
	}
	if t.owner == nil {
		return &engine.ValidationError{
			Field:    t.table.OwnerColumn,
			Type:     "missing_owner",
			Expected: "Owner(id)",
			Message:  fmt.Sprintf("collection statement on %s requires an owner id", t.table.Table),
		}
	}
	return nil
}

func (t *collectionTarget) label() string {
	return t.table.Entity + "." + t.table.Relation
}

// ============================================================
// COLLECTION DELETE BUILDER
// ============================================================

type CollectionDeleteBuilder struct {
	collectionTarget
	keys     []interface{}
	filtered bool
}

func NewCollectionDeleteBuilder(schema *engine.Schema, connector *engine.Connector, entity, relation string) *CollectionDeleteBuilder {
	return &CollectionDeleteBuilder{collectionTarget: newCollectionTarget(schema, connector, entity, relation)}
}

// Owner implements engine.CollectionDeleteMutation
func (db *CollectionDeleteBuilder) Owner(id interface{}) engine.CollectionDeleteMutation {
	db.owner = id
	return db
}

// KeysIn implements engine.CollectionDeleteMutation
func (db *CollectionDeleteBuilder) KeysIn(keys ...interface{}) engine.CollectionDeleteMutation {
	db.filtered = true
	db.keys = append(db.keys, keys...)
	return db
}

// Debug implements engine.CollectionDeleteMutation
func (db *CollectionDeleteBuilder) Debug() engine.CollectionDeleteMutation {
	db.enable()
	return db
}

// Execute implements engine.CollectionDeleteMutation
func (db *CollectionDeleteBuilder) Execute(ctx context.Context) (*engine.DeleteResult, error) {
	start := time.Now()
	if err := db.check(); err != nil {
		return nil, err
	}
	if db.filtered && len(db.keys) == 0 {
		return &engine.DeleteResult{Affected: 0}, nil
	}

	sql, values := db.generateSQL(false)
	db.logSQL(db.label(), sql, values)

	affected, err := engine.NewExecutor(db.connector).Exec(ctx, sql, values...)
	if err != nil {
		return nil, mapCollectionError(err, db.table, "DELETE", nil)
	}

	db.logTrace(engine.MutationDelete, db.label(), start, int(affected))
	return &engine.DeleteResult{Affected: int(affected)}, nil
}

// ExecuteReturning implements engine.CollectionDeleteMutation
func (db *CollectionDeleteBuilder) ExecuteReturning(ctx context.Context) (*engine.CollectionResult, error) {
	start := time.Now()
	if err := db.check(); err != nil {
		return nil, err
	}
	if db.filtered && len(db.keys) == 0 {
		return &engine.CollectionResult{}, nil
	}

	sql, values := db.generateSQL(true)
	db.logSQL(db.label(), sql, values)

	rows, err := engine.NewExecutor(db.connector).Query(ctx, sql, values...)
	if err != nil {
		return nil, mapCollectionError(err, db.table, "DELETE", nil)
	}

	db.logTrace(engine.MutationDelete, db.label(), start, len(rows))
	return &engine.CollectionResult{Rows: engine.CollectionRows(rows, db.table), Affected: len(rows)}, nil
}

func (db *CollectionDeleteBuilder) generateSQL(returning bool) (string, []interface{}) {
	values := []interface{}{db.owner}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", db.table.Table, db.table.OwnerColumn)

	if db.filtered {
		placeholders := make([]string, len(db.keys))
		for i, key := range db.keys {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			values = append(values, key)
		}
		sql += fmt.Sprintf(" AND %s IN (%s)", db.table.AddressColumn(), strings.Join(placeholders, ", "))
	}
	if returning {
		sql += " RETURNING " + strings.Join(selectColumns(db.table), ", ")
	}
	return sql, values
}

// ============================================================
// COLLECTION INSERT BUILDER
// ============================================================

type CollectionInsertBuilder struct {
	collectionTarget
	key          interface{}
	element      interface{}
	onlyIfAbsent bool
}

func NewCollectionInsertBuilder(schema *engine.Schema, connector *engine.Connector, entity, relation string) *CollectionInsertBuilder {
	return &CollectionInsertBuilder{collectionTarget: newCollectionTarget(schema, connector, entity, relation)}
}

// Owner implements engine.CollectionInsertMutation
func (ib *CollectionInsertBuilder) Owner(id interface{}) engine.CollectionInsertMutation {
	ib.owner = id
	return ib
}

// Key implements engine.CollectionInsertMutation
func (ib *CollectionInsertBuilder) Key(key interface{}) engine.CollectionInsertMutation {
	ib.key = key
	return ib
}

// Element implements engine.CollectionInsertMutation
func (ib *CollectionInsertBuilder) Element(element interface{}) engine.CollectionInsertMutation {
	ib.element = element
	return ib
}

// OnlyIfAbsent implements engine.CollectionInsertMutation
func (ib *CollectionInsertBuilder) OnlyIfAbsent() engine.CollectionInsertMutation {
	ib.onlyIfAbsent = true
	return ib
}

// Debug implements engine.CollectionInsertMutation
func (ib *CollectionInsertBuilder) Debug() engine.CollectionInsertMutation {
	ib.enable()
	return ib
}

// Execute implements engine.CollectionInsertMutation
func (ib *CollectionInsertBuilder) Execute(ctx context.Context) (*engine.InsertResult, error) {
	start := time.Now()
	if err := ib.check(); err != nil {
		return nil, err
	}

	sql, values := ib.generateSQL()
	ib.logSQL(ib.label(), sql, values)

	affected, err := engine.NewExecutor(ib.connector).Exec(ctx, sql, values...)
	if err != nil {
		return nil, mapCollectionError(err, ib.table, "INSERT", ib.valueMap())
	}

	ib.logTrace(engine.MutationInsert, ib.label(), start, int(affected))
	return &engine.InsertResult{
		ID:       ib.owner,
		Record:   ib.valueMap(),
		Affected: int(affected),
	}, nil
}

func (ib *CollectionInsertBuilder) generateSQL() (string, []interface{}) {
	columns := []string{ib.table.OwnerColumn}
	values := []interface{}{ib.owner}
	if ib.table.HasKey() {
		columns = append(columns, ib.table.KeyColumn)
		values = append(values, ib.key)
	}
	columns = append(columns, ib.table.ElementColumn)
	values = append(values, ib.element)

	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ib.table.Table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	if ib.onlyIfAbsent {
		sql += " ON CONFLICT DO NOTHING"
	}
	return sql, values
}

func (ib *CollectionInsertBuilder) valueMap() map[string]interface{} {
	values := map[string]interface{}{
		ib.table.OwnerColumn:   ib.owner,
		ib.table.ElementColumn: ib.element,
	}
	if ib.table.HasKey() {
		values[ib.table.KeyColumn] = ib.key
	}
	return values
}

// ============================================================
// COLLECTION UPDATE BUILDER
// ============================================================

type CollectionUpdateBuilder struct {
	collectionTarget
	key     interface{}
	element interface{}
}

func NewCollectionUpdateBuilder(schema *engine.Schema, connector *engine.Connector, entity, relation string) *CollectionUpdateBuilder {
	return &CollectionUpdateBuilder{collectionTarget: newCollectionTarget(schema, connector, entity, relation)}
}

// Owner implements engine.CollectionUpdateMutation
func (ub *CollectionUpdateBuilder) Owner(id interface{}) engine.CollectionUpdateMutation {
	ub.owner = id
	return ub
}

// Key implements engine.CollectionUpdateMutation
func (ub *CollectionUpdateBuilder) Key(key interface{}) engine.CollectionUpdateMutation {
	ub.key = key
	return ub
}

// Element implements engine.CollectionUpdateMutation
func (ub *CollectionUpdateBuilder) Element(element interface{}) engine.CollectionUpdateMutation {
	ub.element = element
	return ub
}

// Debug implements engine.CollectionUpdateMutation
func (ub *CollectionUpdateBuilder) Debug() engine.CollectionUpdateMutation {
	ub.enable()
	return ub
}

// Execute implements engine.CollectionUpdateMutation
func (ub *CollectionUpdateBuilder) Execute(ctx context.Context) (*engine.UpdateResult, error) {
	start := time.Now()
	if err := ub.check(); err != nil {
		return nil, err
	}
	if !ub.table.HasKey() {
		return nil, &engine.ValidationError{
			Field:    ub.table.Relation,
			Type:     "unkeyed_update",
			Expected: "map or ordered relation",
			Message:  fmt.Sprintf("%s has no key column, elements can only be deleted and inserted", ub.table.Table),
		}
	}

	sql, values := ub.generateSQL()
	ub.logSQL(ub.label(), sql, values)

	affected, err := engine.NewExecutor(ub.connector).Exec(ctx, sql, values...)
	if err != nil {
		return nil, mapCollectionError(err, ub.table, "UPDATE", ub.valueMap())
	}

	ub.logTrace(engine.MutationUpdate, ub.label(), start, int(affected))
	return &engine.UpdateResult{Affected: int(affected)}, nil
}

func (ub *CollectionUpdateBuilder) valueMap() map[string]interface{} {
	return map[string]interface{}{
		ub.table.OwnerColumn:   ub.owner,
		ub.table.KeyColumn:     ub.key,
		ub.table.ElementColumn: ub.element,
	}
}

func (ub *CollectionUpdateBuilder) generateSQL() (string, []interface{}) {
	sql := fmt.Sprintf(
		"UPDATE %s SET %s = $1 WHERE %s = $2 AND %s = $3",
		ub.table.Table,
		ub.table.ElementColumn,
		ub.table.OwnerColumn,
		ub.table.KeyColumn,
	)
	return sql, []interface{}{ub.element, ub.owner, ub.key}
}

// ============================================================
// COLLECTION SELECT BUILDER
// ============================================================

type CollectionSelectBuilder struct {
	collectionTarget
}

func NewCollectionSelectBuilder(schema *engine.Schema, connector *engine.Connector, entity, relation string) *CollectionSelectBuilder {
	return &CollectionSelectBuilder{collectionTarget: newCollectionTarget(schema, connector, entity, relation)}
}

// Owner implements engine.CollectionSelectMutation
func (sb *CollectionSelectBuilder) Owner(id interface{}) engine.CollectionSelectMutation {
	sb.owner = id
	return sb
}

// Debug implements engine.CollectionSelectMutation
func (sb *CollectionSelectBuilder) Debug() engine.CollectionSelectMutation {
	sb.enable()
	return sb
}

// Execute implements engine.CollectionSelectMutation
func (sb *CollectionSelectBuilder) Execute(ctx context.Context) (*engine.CollectionResult, error) {
	start := time.Now()
	if err := sb.check(); err != nil {
		return nil, err
	}

	sql, values := sb.generateSQL()
	sb.logSQL(sb.label(), sql, values)

	rows, err := engine.NewExecutor(sb.connector).Query(ctx, sql, values...)
	if err != nil {
		return nil, mapCollectionError(err, sb.table, "SELECT", nil)
	}

	sb.logTrace(engine.MutationSelect, sb.label(), start, len(rows))
	return &engine.CollectionResult{Rows: engine.CollectionRows(rows, sb.table)}, nil
}

func (sb *CollectionSelectBuilder) generateSQL() (string, []interface{}) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		strings.Join(selectColumns(sb.table), ", "),
		sb.table.Table,
		sb.table.OwnerColumn,
	)
	if sb.table.HasKey() {
		sql += " ORDER BY " + sb.table.KeyColumn
	}
	return sql, []interface{}{sb.owner}
}

// ============================================================
// UTILITIES
// ============================================================

func selectColumns(t *engine.CollectionTable) []string {
	columns := []string{t.OwnerColumn}
	if t.HasKey() {
		columns = append(columns, t.KeyColumn)
	}
	return append(columns, t.ElementColumn)
}

// entityToTableName converts entity name to table name
// Handles pluralization and snake_case conversion
//
// Examples:
//
//	User → users
//	OrderItem → order_items
//	TodoList → todo_lists
func entityToTableName(entity string) string {
	// Convert PascalCase to snake_case
	var result []rune
	for i, r := range entity {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, r)
	}

	name := strings.ToLower(string(result))

	// Check for irregular plural
	if plural, ok := irregularPlurals[name]; ok {
		return plural
	}

	// Simple pluralization
	if !strings.HasSuffix(name, "s") {
		name += "s"
	}

	return name
}
