package flush

import (
	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

// ============================================================
// FLUSH RUN
// ============================================================

// flushRun is the state of one FlushQuery or FlushEntity call.
type flushRun struct {
	uc      *UpdateContext
	attr    string
	qf      QueryFactory
	ownerID interface{}
	rec     recorder
	target  interface{}

	// mapped remembers which entity each view was flushed into, keyed by
	// view identity.
	mapped map[interface{}]interface{}
	err    error
}

func newRun(uc *UpdateContext, attr string) *flushRun {
	return &flushRun{uc: uc, attr: attr, mapped: make(map[interface{}]interface{})}
}

// fail keeps the first error.
func (r *flushRun) fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// toEntity returns what an entity container stores for v: the entity a
// subview maps to, or v itself after persisting it when needed.
func (r *flushRun) toEntity(d *TypeDescriptor, v interface{}) (interface{}, error) {
	if v == nil || d == nil {
		return v, nil
	}
	if d.subview {
		key := view.IdentityKey(v)
		if e, ok := r.mapped[key]; ok {
			return e, nil
		}
		m := d.mapper
		if !d.flush || m == nil {
			m = d.loadOnlyMapper
		}
		if m == nil {
			return nil, &ConfigurationError{Attribute: r.attr, Message: "subview elements need a ViewToEntityMapper"}
		}
		e, err := m.ApplyToEntity(r.uc, nil, v)
		if err != nil {
			return nil, err
		}
		r.mapped[key] = e
		return e, nil
	}
	if d.ShouldJpaPersist() && d.shouldPersist(v) {
		if err := r.uc.persist(r.attr, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// hooks maps view objects to entities while replaying against an entity
// container. Removals are collected, not reported.
func (r *flushRun) hooks(key, elem *TypeDescriptor, removedKeys, removedElems *[]interface{}) collection.Hooks {
	mapWith := func(d *TypeDescriptor) func(interface{}) interface{} {
		return func(v interface{}) interface{} {
			e, err := r.toEntity(d, v)
			r.fail(err)
			return e
		}
	}
	h := collection.Hooks{
		Value:        mapWith(elem),
		ValueRemoved: func(v interface{}) { *removedElems = append(*removedElems, v) },
	}
	if key != nil {
		h.Key = mapWith(key)
		h.KeyRemoved = func(k interface{}) { *removedKeys = append(*removedKeys, k) }
	}
	return h
}

// ============================================================
// ELEMENT FLUSHERS
// ============================================================

type elementKind int

const (
	persistElement elementKind = iota
	mergeElement
	viewElement
	// flatElement rewrites the row of an id-less subview changed in place
	flatElement
)

// elementFlusher flushes one key or element that changed without its slot
// changing.
type elementFlusher struct {
	kind elementKind
	desc *TypeDescriptor
	slot row
	key  bool
}

func (e elementFlusher) value() interface{} {
	if e.key {
		return e.slot.Key
	}
	return e.slot.Element
}

func (e elementFlusher) flushQuery(f *PluralFlusher, r *flushRun) error {
	v := e.value()
	switch e.kind {
	case persistElement:
		return r.uc.persist(r.attr, v)
	case mergeElement:
		return e.merge(r, v)
	case viewElement:
		_, err := r.toEntity(e.desc, v)
		return err
	case flatElement:
		_, err := r.qf.UpdateCollection(f.cfg.Entity, f.cfg.Relation).
			Owner(r.ownerID).
			Key(f.rowKey(e.slot.Key)).
			Element(e.desc.rowValue(v)).
			Execute(r.uc.Context())
		return err
	}
	return nil
}

func (e elementFlusher) flushEntity(f *PluralFlusher, r *flushRun) error {
	v := e.value()
	switch e.kind {
	case persistElement:
		return r.uc.persist(r.attr, v)
	case mergeElement:
		return e.merge(r, v)
	case viewElement:
		_, err := r.toEntity(e.desc, v)
		return err
	case flatElement:
		mapped, err := r.toEntity(e.desc, v)
		if err != nil {
			return err
		}
		switch t := r.target.(type) {
		case *collection.OrderedMap:
			k, err := r.toEntity(f.cfg.Key, e.slot.Key)
			if err != nil {
				return err
			}
			t.Put(k, mapped)
		case *collection.List:
			if i, ok := e.slot.Key.(int); ok && i < t.Len() {
				t.Set(i, mapped)
			}
		}
	}
	return nil
}

// merge swaps the merged instance into the journal so later statements
// address the managed entity.
func (e elementFlusher) merge(r *flushRun, v interface{}) error {
	merged, err := r.uc.merge(r.attr, v)
	if err != nil {
		return err
	}
	if merged == nil || view.Same(merged, v) || r.rec == nil {
		return nil
	}
	if e.key {
		r.rec.rewrite(e.slot, merged, e.slot.Element)
	} else {
		r.rec.rewrite(e.slot, e.slot.Key, merged)
	}
	return nil
}

// elementFlushers collects flushers for keys and elements of current that
// changed in place. It fails when a change cannot be flushed without
// rewriting the collection. With rewriteAll every row is rewritten anyway,
// so only cascades are collected.
func (f *PluralFlusher) elementFlushers(current, initial interface{}, j journal, rewriteAll bool) ([]elementFlusher, bool) {
	keyFlush, elemFlush := f.keyFlush(), f.elemFlush()
	if !keyFlush && !elemFlush {
		return nil, true
	}
	var persisted func(row) bool
	if elemFlush && f.cfg.Element.IsSubview() && !f.cfg.Element.IsIdentifiable() && !rewriteAll {
		persisted = f.untouchedRows(initial, j)
	}
	var out []elementFlusher
	for _, r := range f.adapter.rows(current) {
		if keyFlush {
			el, ok := f.sideFlusher(f.cfg.Key, r, true, rewriteAll, nil)
			if !ok {
				return nil, false
			}
			if el != nil {
				out = append(out, *el)
			}
		}
		if elemFlush {
			el, ok := f.sideFlusher(f.cfg.Element, r, false, rewriteAll, persisted)
			if !ok {
				return nil, false
			}
			if el != nil {
				out = append(out, *el)
			}
		}
	}
	return out, true
}

func (f *PluralFlusher) sideFlusher(d *TypeDescriptor, r row, key, rewriteAll bool, persisted func(row) bool) (*elementFlusher, bool) {
	v := r.Element
	if key {
		v = r.Key
	}
	if v == nil {
		return nil, true
	}
	el := &elementFlusher{desc: d, slot: r, key: key}
	switch {
	case d.IsSubview() && d.IsIdentifiable():
		if d.shouldPersist(v) || d.inPlaceDirty(v) {
			el.kind = viewElement
			return el, true
		}
	case d.IsSubview():
		if rewriteAll || !d.inPlaceDirty(v) {
			return nil, true
		}
		// a flat key is part of the row address
		if key || (!f.adapter.keyed() && !f.adapter.ordered()) {
			return nil, false
		}
		if persisted != nil && persisted(r) {
			el.kind = flatElement
			return el, true
		}
	case d.IsJpaEntity():
		if d.ShouldJpaPersist() && d.shouldPersist(v) {
			el.kind = persistElement
			return el, true
		}
		if d.ShouldJpaMerge() && !d.shouldPersist(v) && entityChanged(d, v) {
			el.kind = mergeElement
			return el, true
		}
	default:
		if !rewriteAll && d.inPlaceDirty(v) {
			return nil, false
		}
	}
	return nil, true
}

// entityChanged is true unless the entity type can prove v is clean.
func entityChanged(d *TypeDescriptor, v interface{}) bool {
	if d.basic == nil || !d.basic.SupportsDirtyChecking() {
		return true
	}
	return d.basic.DirtyProperties(v) != nil
}

// ─────────────────────────────────────────────────────────────
// Entry states of flat elements
// ─────────────────────────────────────────────────────────────

// entryState is what a journal did to the row of one key.
type entryState int

const (
	entryPersisted entryState = iota
	entryAdded
	entryRemoved
	entryReplaced
)

func (s entryState) onPut(sameAsInitial bool) entryState {
	switch s {
	case entryAdded:
		return entryAdded
	case entryPersisted, entryRemoved, entryReplaced:
		if sameAsInitial {
			return entryPersisted
		}
	}
	return entryReplaced
}

func (s entryState) onRemove() entryState {
	if s == entryAdded {
		return entryAdded
	}
	return entryRemoved
}

// untouchedRows reports rows whose table row survives the journal as is.
// Only those need an explicit UPDATE when their flat element changed.
func (f *PluralFlusher) untouchedRows(initial interface{}, j journal) func(row) bool {
	if j == nil || j.Len() == 0 {
		return func(row) bool { return true }
	}
	if j.startsWithClear() {
		return func(row) bool { return false }
	}
	switch actions := j.(type) {
	case mapJournal:
		states := mapEntryStates(initial, actions)
		return func(r row) bool {
			s, ok := states.Get(r.Key)
			return ok && s.(entryState) == entryPersisted
		}
	case collectionJournal:
		touched := make(map[int]bool)
		fused := j.fuse(f.adapter.unwrap(initial), nil)
		for _, r := range fused.added() {
			touched[r.Key.(int)] = true
		}
		for _, r := range fused.replaced() {
			touched[r.Key.(int)] = true
		}
		return func(r row) bool {
			i, ok := r.Key.(int)
			return ok && !touched[i]
		}
	}
	return func(row) bool { return false }
}

func mapEntryStates(initial interface{}, actions mapJournal) *collection.OrderedMap {
	ini, _ := initial.(*collection.OrderedMap)
	if ini == nil {
		ini = collection.NewOrderedMap()
	}
	states := collection.NewOrderedMap()
	for _, k := range ini.Keys() {
		states.Put(k, entryPersisted)
	}
	current := ini.Clone()
	put := func(k, v interface{}) {
		s := entryAdded
		if prev, ok := states.Get(k); ok {
			iv, _ := ini.Get(k)
			s = prev.(entryState).onPut(view.Same(iv, v))
		}
		states.Put(k, s)
		current.Put(k, v)
	}
	remove := func(k interface{}) {
		if prev, ok := states.Get(k); ok {
			states.Put(k, prev.(entryState).onRemove())
		}
		current.Remove(k)
	}
	for _, a := range actions {
		switch a := a.(type) {
		case *collection.MapPut:
			put(a.Key, a.Value)
		case *collection.MapPutAll:
			for _, e := range a.Entries {
				put(e.Key, e.Value)
			}
		case *collection.MapRemove:
			remove(a.Key)
		case *collection.MapClear:
			for _, k := range current.Keys() {
				remove(k)
			}
		}
	}
	return states
}
