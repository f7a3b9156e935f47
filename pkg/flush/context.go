package flush

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/engine"
)

// QueryFactory hands out the statements a flush executes. *engine.Engine
// implements it.
type QueryFactory interface {
	Update(entity string) engine.UpdateMutation
	DeleteCollection(entity, relation string) engine.CollectionDeleteMutation
	InsertCollection(entity, relation string) engine.CollectionInsertMutation
	UpdateCollection(entity, relation string) engine.CollectionUpdateMutation
	SelectCollection(entity, relation string) engine.CollectionSelectMutation
}

// EntityManager is the persistence provider's unit of work.
type EntityManager interface {
	Persist(ctx context.Context, entity interface{}) error
	// Merge returns the managed instance, which may differ from entity.
	Merge(ctx context.Context, entity interface{}) (interface{}, error)
}

// Strategy selects how dirty attributes are written.
type Strategy int

const (
	// StrategyQuery writes through collection table statements.
	StrategyQuery Strategy = iota
	// StrategyEntity mutates the loaded entity graph.
	StrategyEntity
)

func (s Strategy) String() string {
	if s == StrategyEntity {
		return "entity"
	}
	return "query"
}

// ParseStrategy accepts "query" and "entity". Anything else is query.
func ParseStrategy(s string) Strategy {
	if s == "entity" {
		return StrategyEntity
	}
	return StrategyQuery
}

// UpdateContext carries everything one flush traversal needs. It is used
// by a single goroutine and discarded afterwards.
type UpdateContext struct {
	ctx       context.Context
	id        uuid.UUID
	queries   QueryFactory
	entities  EntityManager
	logger    *zap.Logger
	strategy  Strategy
	force     bool
	returning bool
}

// Option configures an UpdateContext.
type Option func(*UpdateContext)

func WithEntityManager(em EntityManager) Option {
	return func(uc *UpdateContext) { uc.entities = em }
}

func WithLogger(logger *zap.Logger) Option {
	return func(uc *UpdateContext) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithStrategy(s Strategy) Option {
	return func(uc *UpdateContext) { uc.strategy = s }
}

// ForceEntity makes removals go through the entity graph even under the
// query strategy.
func ForceEntity() Option {
	return func(uc *UpdateContext) { uc.force = true }
}

// WithReturning declares that the database supports DELETE ... RETURNING.
func WithReturning(supported bool) Option {
	return func(uc *UpdateContext) { uc.returning = supported }
}

// NewUpdateContext creates the context of one flush. Every log line it
// emits carries a fresh flush id.
func NewUpdateContext(ctx context.Context, queries QueryFactory, opts ...Option) *UpdateContext {
	uc := &UpdateContext{
		ctx:     ctx,
		id:      uuid.New(),
		queries: queries,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.logger = uc.logger.With(zap.String("flush_id", uc.id.String()))
	return uc
}

func (uc *UpdateContext) Context() context.Context     { return uc.ctx }
func (uc *UpdateContext) FlushID() uuid.UUID           { return uc.id }
func (uc *UpdateContext) Queries() QueryFactory        { return uc.queries }
func (uc *UpdateContext) EntityManager() EntityManager { return uc.entities }
func (uc *UpdateContext) Logger() *zap.Logger          { return uc.logger }
func (uc *UpdateContext) Strategy() Strategy           { return uc.strategy }
func (uc *UpdateContext) IsForceEntity() bool          { return uc.force }
func (uc *UpdateContext) SupportsReturning() bool      { return uc.returning }
func (uc *UpdateContext) usesQueries() bool            { return uc.strategy == StrategyQuery && !uc.force }

func (uc *UpdateContext) requireQueries(attribute string) (QueryFactory, error) {
	if uc.queries == nil {
		return nil, &ConfigurationError{Attribute: attribute, Message: "statement flush requested but no QueryFactory is configured"}
	}
	return uc.queries, nil
}

func (uc *UpdateContext) persist(attribute string, entity interface{}) error {
	if uc.entities == nil {
		return &ConfigurationError{Attribute: attribute, Message: "persist cascading requires an EntityManager"}
	}
	return uc.entities.Persist(uc.ctx, entity)
}

func (uc *UpdateContext) merge(attribute string, entity interface{}) (interface{}, error) {
	if uc.entities == nil {
		return nil, &ConfigurationError{Attribute: attribute, Message: "merge cascading requires an EntityManager"}
	}
	return uc.entities.Merge(uc.ctx, entity)
}
