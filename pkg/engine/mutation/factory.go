package mutation

import "github.com/chameleon-db/entityview/pkg/engine"

// Factory is the SQL mutation factory. It holds no state: schema and
// connector arrive with every call.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// NewUpdate creates an owner table update builder
func (f *Factory) NewUpdate(entity string, schema *engine.Schema, connector *engine.Connector) engine.UpdateMutation {
	return NewUpdateBuilder(schema, connector, entity)
}

// NewCollectionDelete creates a collection table delete builder
func (f *Factory) NewCollectionDelete(entity, relation string, schema *engine.Schema, connector *engine.Connector) engine.CollectionDeleteMutation {
	return NewCollectionDeleteBuilder(schema, connector, entity, relation)
}

// NewCollectionInsert creates a collection table insert builder
func (f *Factory) NewCollectionInsert(entity, relation string, schema *engine.Schema, connector *engine.Connector) engine.CollectionInsertMutation {
	return NewCollectionInsertBuilder(schema, connector, entity, relation)
}

// NewCollectionUpdate creates a collection table element update builder
func (f *Factory) NewCollectionUpdate(entity, relation string, schema *engine.Schema, connector *engine.Connector) engine.CollectionUpdateMutation {
	return NewCollectionUpdateBuilder(schema, connector, entity, relation)
}

// NewCollectionSelect creates a collection table select builder
func (f *Factory) NewCollectionSelect(entity, relation string, schema *engine.Schema, connector *engine.Connector) engine.CollectionSelectMutation {
	return NewCollectionSelectBuilder(schema, connector, entity, relation)
}
