package flush

import "github.com/chameleon-db/entityview/pkg/view"

// ============================================================
// ACCESSORS
// ============================================================

// AttributeAccessor reads and writes one named attribute of an entity or
// view instance.
type AttributeAccessor interface {
	Value(object interface{}) interface{}
	SetValue(object, value interface{})
}

// InitialValueAccessor additionally manages the snapshot a view took of the
// attribute when it was loaded.
type InitialValueAccessor interface {
	AttributeAccessor
	InitialValue(object interface{}) interface{}
	SetInitialValue(object, value interface{})
}

// Accessor adapts a getter and a setter. Initial values are kept by objects
// implementing view.InitialState, under Name.
type Accessor struct {
	Name string
	Get  func(object interface{}) interface{}
	Set  func(object, value interface{})
}

func (a Accessor) Value(object interface{}) interface{} {
	if a.Get == nil || object == nil {
		return nil
	}
	return a.Get(object)
}

func (a Accessor) SetValue(object, value interface{}) {
	if a.Set != nil && object != nil {
		a.Set(object, value)
	}
}

func (a Accessor) InitialValue(object interface{}) interface{} {
	s, ok := object.(view.InitialState)
	if !ok {
		return nil
	}
	v, _ := s.InitialValue(a.Name)
	return v
}

func (a Accessor) SetInitialValue(object, value interface{}) {
	if s, ok := object.(view.InitialState); ok {
		s.SetInitialValue(a.Name, value)
	}
}

// ============================================================
// VIEW TO ENTITY MAPPING
// ============================================================

// ViewToEntityMapper turns nested view objects into the entities they stand
// for.
type ViewToEntityMapper interface {
	// ApplyToEntity flushes v into entity and returns it. A nil entity means
	// the mapper loads the referenced entity, or creates it for new views.
	ApplyToEntity(uc *UpdateContext, entity, v interface{}) (interface{}, error)

	ViewID(v interface{}) interface{}
	EntityID(entity interface{}) interface{}

	// DirtyChecker is nil when the nested view type has no updater, in which
	// case trackable state decides.
	DirtyChecker() DirtyChecker

	// Cascades reports whether changes of v are flushed through this mapper.
	Cascades(v interface{}) bool
}

// ElementRemover deletes elements whose owning association went away.
type ElementRemover interface {
	RemoveElement(uc *UpdateContext, element interface{}) error
	RemoveByID(uc *UpdateContext, id interface{}) error
}

// ============================================================
// REMOVE LISTENERS
// ============================================================

// RemoveListener is told about keys or elements that drop out of a plural
// attribute. The view callback fires on statement flushes, the entity
// callback when an entity container is mutated.
type RemoveListener interface {
	OnCollectionRemove(uc *UpdateContext, element interface{}) error
	OnEntityCollectionRemove(uc *UpdateContext, element interface{}) error
}

// CascadeDeleteListener removes dropped elements through an ElementRemover.
type CascadeDeleteListener struct {
	Remover ElementRemover
}

func (l CascadeDeleteListener) OnCollectionRemove(uc *UpdateContext, element interface{}) error {
	return l.Remover.RemoveElement(uc, element)
}

func (l CascadeDeleteListener) OnEntityCollectionRemove(uc *UpdateContext, element interface{}) error {
	return l.Remover.RemoveElement(uc, element)
}

// ============================================================
// POST FLUSH DELETERS
// ============================================================

// PostFlushDeleter runs after the owner row is gone, so cascaded deletes
// never violate the owner's foreign keys.
type PostFlushDeleter interface {
	RemoveAfterFlush(uc *UpdateContext) error
}

type listenerDeleter struct {
	listener RemoveListener
	element  interface{}
}

func (d listenerDeleter) RemoveAfterFlush(uc *UpdateContext) error {
	return d.listener.OnCollectionRemove(uc, d.element)
}

type idDeleter struct {
	remover ElementRemover
	ids     []interface{}
}

func (d idDeleter) RemoveAfterFlush(uc *UpdateContext) error {
	for _, id := range d.ids {
		if err := d.remover.RemoveByID(uc, id); err != nil {
			return err
		}
	}
	return nil
}

// RunDeleters executes deleters in order and stops at the first error.
func RunDeleters(uc *UpdateContext, deleters []PostFlushDeleter) error {
	for _, d := range deleters {
		if err := d.RemoveAfterFlush(uc); err != nil {
			return err
		}
	}
	return nil
}
