package flush

import (
	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

// needsClone reports whether values of d can change in place without
// anything noticing, so a snapshot must hold copies.
func needsClone(d *TypeDescriptor) bool {
	return d != nil && d.IsBasic() && d.basic != nil && d.flush &&
		!d.basic.SupportsDirtyChecking() && d.basic.SupportsDeepCloning()
}

// CloneDeep copies value when keys or elements must be deep cloned to serve
// as a snapshot. Otherwise value itself is returned.
func (f *PluralFlusher) CloneDeep(value interface{}) interface{} {
	if f.adapter.absent(value) {
		return value
	}
	cloneKeys, cloneElems := needsClone(f.cfg.Key), needsClone(f.cfg.Element)
	if !cloneKeys && !cloneElems {
		return value
	}
	rows := f.adapter.rows(value)
	for i, r := range rows {
		if cloneKeys && r.Key != nil {
			rows[i].Key = f.cfg.Key.basic.DeepClone(r.Key)
		}
		if cloneElems && r.Element != nil {
			rows[i].Element = f.cfg.Element.basic.DeepClone(r.Element)
		}
	}
	return f.build(rows)
}

// NewInitialValue is the snapshot stored after a successful flush.
func (f *PluralFlusher) NewInitialValue(value interface{}) interface{} {
	return f.CloneDeep(value)
}

func (f *PluralFlusher) build(rows []row) interface{} {
	if f.adapter.keyed() {
		m := collection.NewOrderedMap()
		for _, r := range rows {
			m.Put(r.Key, r.Element)
		}
		return m
	}
	items := make([]interface{}, len(rows))
	for i, r := range rows {
		items[i] = r.Element
	}
	if f.adapter.ordered() {
		return collection.NewList(items...)
	}
	return collection.NewSet(items...)
}

func (f *PluralFlusher) initialOrEmpty(initial interface{}) interface{} {
	initial = f.adapter.unwrap(initial)
	if f.adapter.absent(initial) {
		return f.adapter.newEmpty()
	}
	return initial
}

// replaceWithRecording makes sure the attribute holds a recording whose
// journal is j as recorded against initial. A new recording is stored in
// the owner.
func (f *PluralFlusher) replaceWithRecording(owner, value interface{}, j journal, initial interface{}) recorder {
	rec := f.adapter.wrap(value)
	if !view.Same(rec.value(), value) {
		if t, ok := owner.(view.Trackable); ok {
			rec.SetParent(t)
		}
		f.cfg.ViewAccessor.SetValue(owner, rec.value())
	}
	if j != nil && j.Len() > 0 {
		rec.initiate(j, f.initialOrEmpty(initial))
	}
	return rec
}

// commit makes the flushed state the new baseline.
func (f *PluralFlusher) commit(owner interface{}, rec recorder) {
	rec.ResetActions()
	next := f.NewInitialValue(rec.value())
	if !view.Same(next, f.cfg.ViewAccessor.InitialValue(owner)) {
		f.cfg.ViewAccessor.SetInitialValue(owner, next)
	}
}
