package flush

import (
	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/view"
)

// ============================================================
// SINGULAR ATTRIBUTES
// ============================================================

// SingularConfig binds a flusher to a basic or reference attribute stored
// in a column of the owner's table.
type SingularConfig struct {
	Attribute string
	Entity    string
	Column    string
	// IDColumn filters the owner row. Defaults to "id".
	IDColumn string

	Type           *TypeDescriptor
	ViewAccessor   InitialValueAccessor
	EntityAccessor AttributeAccessor

	// RemoveListener is told about references that were replaced.
	RemoveListener RemoveListener
}

// SingularFlusher flushes one basic value or one reference.
type SingularFlusher struct {
	cfg   SingularConfig
	dirty view.DirtyKind
	old   interface{}
}

var _ AttributeFlusher = (*SingularFlusher)(nil)

func NewSingularFlusher(cfg SingularConfig) (*SingularFlusher, error) {
	if cfg.Type == nil {
		return nil, &ConfigurationError{Attribute: cfg.Attribute, Message: "a type descriptor is required"}
	}
	if cfg.ViewAccessor == nil {
		return nil, &ConfigurationError{Attribute: cfg.Attribute, Message: "a view accessor is required"}
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.Column == "" {
		cfg.Column = cfg.Attribute
	}
	return &SingularFlusher{cfg: cfg, dirty: view.DirtyUpdated}, nil
}

func (f *SingularFlusher) Attribute() string { return f.cfg.Attribute }

func (f *SingularFlusher) DirtyKind(initial, current interface{}) view.DirtyKind {
	return f.cfg.Type.dirtyChecker().DirtyKind(initial, current)
}

// GetDirtyFlusher implements AttributeFlusher
func (f *SingularFlusher) GetDirtyFlusher(uc *UpdateContext, owner, initial, current interface{}) (DirtyAttributeFlusher, error) {
	kind := f.DirtyKind(initial, current)
	loggerOf(uc).Debug("dirty flusher decided",
		zap.String("attribute", f.cfg.Attribute),
		zap.Stringer("dirty", kind),
	)
	if kind == view.DirtyNone {
		return nil, nil
	}
	p := *f
	p.dirty = kind
	if kind == view.DirtyUpdated {
		p.old = initial
	}
	return &p, nil
}

// columnChanged is false when only the referenced object changed in place.
func (f *SingularFlusher) columnChanged() bool {
	return f.dirty == view.DirtyUpdated || f.cfg.Type.IsBasic()
}

func (f *SingularFlusher) cascade(run *flushRun, owner, value interface{}) (interface{}, error) {
	d := f.cfg.Type
	switch {
	case value == nil:
	case d.IsSubview():
		if d.ShouldFlushMutations() && (d.shouldPersist(value) || d.inPlaceDirty(value)) {
			return run.toEntity(d, value)
		}
	case d.ShouldJpaPersist() && d.shouldPersist(value):
		return value, run.uc.persist(f.cfg.Attribute, value)
	case d.ShouldJpaMerge() && !d.shouldPersist(value) && entityChanged(d, value):
		merged, err := run.uc.merge(f.cfg.Attribute, value)
		if err != nil {
			return nil, err
		}
		if merged != nil && !view.Same(merged, value) {
			f.cfg.ViewAccessor.SetValue(owner, merged)
			return merged, nil
		}
	default:
		if d.isTransient(value) {
			return nil, &TransientReferenceError{Attribute: f.cfg.Attribute, Value: value}
		}
	}
	return value, nil
}

// FlushQuery implements DirtyAttributeFlusher
func (f *SingularFlusher) FlushQuery(uc *UpdateContext, owner, value interface{}) error {
	run := newRun(uc, f.cfg.Attribute)
	cascaded, err := f.cascade(run, owner, value)
	if err != nil {
		return err
	}
	if d := f.cfg.Type; !d.IsSubview() && !d.IsBasic() {
		value = cascaded
	}

	if f.columnChanged() {
		qf, err := uc.requireQueries(f.cfg.Attribute)
		if err != nil {
			return err
		}
		id := view.IDOf(owner)
		if id == nil {
			return &InvariantError{Attribute: f.cfg.Attribute, Message: "owner has no id"}
		}
		_, err = qf.Update(f.cfg.Entity).
			Set(f.cfg.Column, f.cfg.Type.rowValue(value)).
			Filter(f.cfg.IDColumn, "eq", id).
			Execute(uc.Context())
		if err != nil {
			return err
		}
	}
	if l := f.cfg.RemoveListener; l != nil && f.old != nil && !view.Same(f.old, value) {
		if err := l.OnCollectionRemove(uc, f.old); err != nil {
			return err
		}
	}
	f.commit(owner, value)
	return nil
}

// FlushEntity implements DirtyAttributeFlusher
func (f *SingularFlusher) FlushEntity(uc *UpdateContext, entity, owner, value interface{}) (bool, error) {
	if f.cfg.EntityAccessor == nil {
		return false, &ConfigurationError{Attribute: f.cfg.Attribute, Message: "entity flushing requires an entity accessor"}
	}
	run := newRun(uc, f.cfg.Attribute)
	mapped, err := f.cascade(run, owner, value)
	if err != nil {
		return false, err
	}
	if f.cfg.Type.IsSubview() && value != nil {
		if mapped, err = run.toEntity(f.cfg.Type, value); err != nil {
			return false, err
		}
	}
	previous := f.cfg.EntityAccessor.Value(entity)
	changed := !view.Same(previous, mapped)
	if changed {
		f.cfg.EntityAccessor.SetValue(entity, mapped)
	}
	if l := f.cfg.RemoveListener; l != nil && changed && previous != nil {
		if err := l.OnEntityCollectionRemove(uc, previous); err != nil {
			return false, err
		}
	}
	f.commit(owner, value)
	return changed || f.dirty == view.DirtyMutated, nil
}

func (f *SingularFlusher) commit(owner, value interface{}) {
	d := f.cfg.Type
	if value != nil && needsClone(d) {
		value = d.basic.DeepClone(value)
	}
	f.cfg.ViewAccessor.SetInitialValue(owner, value)
}

// Remove returns a deleter for the persisted reference when it cascades.
func (f *SingularFlusher) Remove(uc *UpdateContext, entity, owner, value interface{}) ([]PostFlushDeleter, error) {
	l := f.cfg.RemoveListener
	if l == nil {
		return nil, nil
	}
	persisted := value
	if iv := f.cfg.ViewAccessor.InitialValue(owner); iv != nil {
		persisted = iv
	}
	if persisted == nil {
		return nil, nil
	}
	return []PostFlushDeleter{listenerDeleter{listener: l, element: persisted}}, nil
}

func (f *SingularFlusher) RemoveFromEntity(uc *UpdateContext, entity interface{}) error {
	if f.cfg.EntityAccessor == nil {
		return &ConfigurationError{Attribute: f.cfg.Attribute, Message: "entity flushing requires an entity accessor"}
	}
	previous := f.cfg.EntityAccessor.Value(entity)
	if previous == nil {
		return nil
	}
	if l := f.cfg.RemoveListener; l != nil {
		if err := l.OnEntityCollectionRemove(uc, previous); err != nil {
			return err
		}
	}
	f.cfg.EntityAccessor.SetValue(entity, nil)
	return nil
}
