package flush

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

// ============================================================
// ENTITY FLUSH
// ============================================================

// FlushEntity implements DirtyAttributeFlusher. The view journal is
// replayed against the entity's container with view objects mapped to
// entities; dropped entities are reported to the remove listeners.
func (f *PluralFlusher) FlushEntity(uc *UpdateContext, entity, owner, value interface{}) (bool, error) {
	if f.cfg.EntityAccessor == nil {
		return false, &ConfigurationError{Attribute: f.cfg.Attribute, Message: "entity flushing requires an entity accessor"}
	}
	if !f.adapter.accepts(value) {
		return false, &InvariantError{Attribute: f.cfg.Attribute, Message: "unexpected " + f.adapter.kind() + " value"}
	}
	run := newRun(uc, f.cfg.Attribute)

	p := f.plan
	if p == nil {
		if f.cfg.CascadeOnly {
			return f.mergeCollectionElements(run, value)
		}
		p = f.entityPlan(owner, value)
	}
	if p.actions != nil {
		run.rec = f.replaceWithRecording(owner, value, p.actions, p.initial)
	} else if rec, ok := f.adapter.recording(value); ok {
		run.rec = rec
	}

	target, err := f.entityContainer(entity)
	if err != nil {
		return false, err
	}
	run.target = target

	for _, el := range p.elements {
		if err := el.flushEntity(f, run); err != nil {
			return false, err
		}
	}

	var removedKeys, removedElems []interface{}
	structural := p.actions != nil && p.actions.Len() > 0
	if structural {
		j := run.rec.actions()
		hooks := run.hooks(f.cfg.Key, f.cfg.Element, &removedKeys, &removedElems)
		if j.startsWithClear() {
			j.replay(target, hooks)
		} else {
			j.fuse(f.initialOrEmpty(p.initial), f.keyEquality()).applyTo(target, hooks)
		}
		if run.err != nil {
			return false, run.err
		}
	}
	if err := f.notifyEntityRemoved(uc, target, removedKeys, removedElems); err != nil {
		return false, err
	}
	if run.rec != nil {
		f.commit(owner, run.rec)
	}

	loggerOf(uc).Debug("entity collection flushed",
		zap.String("attribute", f.cfg.Attribute),
		zap.Stringer("operation", f.Operation()),
		zap.Bool("structural", structural),
		zap.Int("elements", len(p.elements)),
	)
	return structural || len(p.elements) > 0, nil
}

// entityPlan is what a full flusher does against an entity container.
func (f *PluralFlusher) entityPlan(owner, value interface{}) *plan {
	var ini interface{}
	var j journal
	if rec, ok := f.adapter.recording(value); ok {
		ini = rec.initialVersion()
		if rec.HasActions() {
			j = rec.actions()
		}
	} else {
		ini = f.adapter.unwrap(f.cfg.ViewAccessor.InitialValue(owner))
		if f.adapter.absent(ini) {
			j = f.adapter.replaceAll(value)
		} else if j = f.adapter.diff(f, ini, value); j.Len() > f.adapter.size(value) {
			j = f.adapter.replaceAll(value)
		}
	}

	p := &plan{op: OperationFull, initial: ini, actions: j}
	if j != nil && j.startsWithClear() {
		p.elements, _ = f.elementFlushers(value, ini, j, true)
		return p
	}
	els, ok := f.elementFlushers(value, ini, j, false)
	if !ok {
		p.actions = f.adapter.replaceAll(value)
		els, _ = f.elementFlushers(value, ini, nil, true)
	}
	p.elements = els
	return p
}

// entityContainer returns the plain container held by entity, creating an
// empty one when the attribute is unset.
func (f *PluralFlusher) entityContainer(entity interface{}) (interface{}, error) {
	target := f.cfg.EntityAccessor.Value(entity)
	switch t := target.(type) {
	case *collection.RecordingMap:
		if t != nil {
			return t.Delegate(), nil
		}
	case *collection.RecordingCollection:
		if t != nil && t.Delegate() != nil {
			return t.Delegate(), nil
		}
	}
	if f.adapter.absent(target) {
		target = f.adapter.newEmpty()
		f.cfg.EntityAccessor.SetValue(entity, target)
		return target, nil
	}
	if !f.adapter.accepts(target) {
		return nil, &InvariantError{
			Attribute: f.cfg.Attribute,
			Message:   fmt.Sprintf("entity holds %T, expected a %s", target, f.adapter.kind()),
		}
	}
	return target, nil
}

// notifyEntityRemoved reports collected removals that did not come back
// later in the same replay.
func (f *PluralFlusher) notifyEntityRemoved(uc *UpdateContext, target interface{}, keys, elems []interface{}) error {
	if len(keys) == 0 && len(elems) == 0 {
		return nil
	}
	keepKeys, keep := view.NewIdentitySet(), view.NewIdentitySet()
	for _, r := range f.adapter.rows(target) {
		if f.adapter.keyed() {
			keepKeys.Add(r.Key)
		}
		keep.Add(r.Element)
	}
	if l := f.cfg.KeyRemoveListener; l != nil {
		for _, k := range keys {
			if keepKeys.Contains(k) {
				continue
			}
			if err := l.OnEntityCollectionRemove(uc, k); err != nil {
				return err
			}
		}
	}
	if l := f.cfg.RemoveListener; l != nil {
		reported := view.NewIdentitySet()
		for _, v := range elems {
			if keep.Contains(v) || !reported.Add(v) {
				continue
			}
			if err := l.OnEntityCollectionRemove(uc, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeCollectionElements flushes the elements of a cascade-only
// association without touching its membership.
func (f *PluralFlusher) mergeCollectionElements(run *flushRun, value interface{}) (bool, error) {
	if rec, ok := f.adapter.recording(value); ok {
		run.rec = rec
	}
	els, _ := f.elementFlushers(value, nil, nil, true)
	for _, el := range els {
		if err := el.flushEntity(f, run); err != nil {
			return false, err
		}
	}
	return len(els) > 0, nil
}
