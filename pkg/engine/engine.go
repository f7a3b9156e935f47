package engine

import (
	"context"
	"fmt"
	"os"
)

// Version of the flush engine
const Version = "0.3.0"

// Engine is the statement side of the flush engine: it owns the schema and
// the connection and hands out mutation builders for owner tables and
// collection tables.
type Engine struct {
	schema    *Schema
	connector *Connector
	factory   MutationFactory

	// Debug context
	Debug *DebugContext
}

// ============================================================
// ENGINE INITIALIZATION
// ============================================================

// NewEngine creates an engine over an already parsed schema
func NewEngine(schema *Schema) *Engine {
	return &Engine{
		schema: schema,
		Debug:  DefaultDebugContext(),
	}
}

// NewEngineWithSchema creates an engine from a JSON schema file
func NewEngineWithSchema(schemaPath string) (*Engine, error) {
	eng := NewEngine(nil)
	if _, err := eng.LoadSchemaFromFile(schemaPath); err != nil {
		return nil, err
	}
	return eng, nil
}

// WithDebug enables debug output on stdout
func (e *Engine) WithDebug(level DebugLevel) *Engine {
	return e.WithDebugContext(NewDebugContext(level, os.Stdout, ""))
}

// WithDebugContext installs a prepared debug context
func (e *Engine) WithDebugContext(dc *DebugContext) *Engine {
	e.Debug = dc
	if e.connector != nil {
		e.connector.SetDebug(dc)
	}
	return e
}

// ─────────────────────────────────────────────────────────────
// Schema handling
// ─────────────────────────────────────────────────────────────

// LoadSchemaFromString parses a JSON schema
func (e *Engine) LoadSchemaFromString(input string) (*Schema, error) {
	schema, err := ParseSchemaJSON(input)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize schema: %w", err)
	}
	e.schema = schema
	return schema, nil
}

// LoadSchemaFromFile loads a JSON schema file
func (e *Engine) LoadSchemaFromFile(filepath string) (*Schema, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return e.LoadSchemaFromString(string(content))
}

// GetSchema returns the currently loaded schema
func (e *Engine) GetSchema() *Schema {
	return e.schema
}

// ─────────────────────────────────────────────────────────────
// Connection handling
// ─────────────────────────────────────────────────────────────

// Connect establishes a database connection
func (e *Engine) Connect(ctx context.Context, config ConnectorConfig) error {
	connector := NewConnector(config)
	if err := connector.Connect(ctx); err != nil {
		return err
	}
	e.UseConnector(connector)
	return nil
}

// UseConnector attaches an existing connector, e.g. one bound to a
// caller-owned transaction.
func (e *Engine) UseConnector(connector *Connector) {
	connector.SetDebug(e.Debug)
	e.connector = connector
}

// Close closes the database connection
func (e *Engine) Close() {
	if e.connector != nil {
		e.connector.Close()
	}
}

// IsConnected returns true if connected to a database
func (e *Engine) IsConnected() bool {
	return e.connector != nil && e.connector.IsConnected()
}

// Ping verifies the database connection is alive
func (e *Engine) Ping(ctx context.Context) error {
	if e.connector == nil {
		return fmt.Errorf("not connected")
	}
	return e.connector.Ping(ctx)
}

// Connector returns the underlying connector for raw SQL access
func (e *Engine) Connector() *Connector {
	return e.connector
}

// ─────────────────────────────────────────────────────────────
// Mutation API (uses registry pattern)
// ─────────────────────────────────────────────────────────────

// Update starts a new UPDATE mutation on an owner table
func (e *Engine) Update(entity string) UpdateMutation {
	if err := e.ready(); err != nil {
		return newInvalidUpdateMutation(err)
	}
	return e.mutations().NewUpdate(entity, e.schema, e.connector)
}

// DeleteCollection starts a delete on a relation's collection table
func (e *Engine) DeleteCollection(entity, relation string) CollectionDeleteMutation {
	if err := e.ready(); err != nil {
		return &invalidCollectionDelete{err: err}
	}
	return e.mutations().NewCollectionDelete(entity, relation, e.schema, e.connector)
}

// InsertCollection starts an insert into a relation's collection table
func (e *Engine) InsertCollection(entity, relation string) CollectionInsertMutation {
	if err := e.ready(); err != nil {
		return &invalidCollectionInsert{err: err}
	}
	return e.mutations().NewCollectionInsert(entity, relation, e.schema, e.connector)
}

// UpdateCollection starts an element update on a relation's collection table
func (e *Engine) UpdateCollection(entity, relation string) CollectionUpdateMutation {
	if err := e.ready(); err != nil {
		return &invalidCollectionUpdate{err: err}
	}
	return e.mutations().NewCollectionUpdate(entity, relation, e.schema, e.connector)
}

// SelectCollection starts a load of a relation's collection table
func (e *Engine) SelectCollection(entity, relation string) CollectionSelectMutation {
	if err := e.ready(); err != nil {
		return &invalidCollectionSelect{err: err}
	}
	return e.mutations().NewCollectionSelect(entity, relation, e.schema, e.connector)
}

// ─────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────

func (e *Engine) ready() error {
	if e.schema == nil {
		return fmt.Errorf("schema not loaded - call LoadSchemaFromFile first")
	}
	if e.connector == nil {
		return fmt.Errorf("not connected - call Connect() first")
	}
	if e.mutations() == nil {
		return fmt.Errorf("no mutation factory registered - import the mutation package")
	}
	return nil
}
