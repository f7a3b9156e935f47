package collection

import "github.com/chameleon-db/entityview/pkg/view"

// ============================================================
// FUSED MAP ACTIONS
// ============================================================

// RemovedEntry is a row that must be deleted. Wrapped marks a key whose
// row goes away although a logically equal key was added back, so the row
// is rewritten but the key itself was never dropped and removal listeners
// must not fire for it.
type RemovedEntry struct {
	Key     interface{}
	Value   interface{}
	Wrapped bool
}

// FusedMapActions is the net effect of a map action log.
type FusedMapActions struct {
	removed     []RemovedEntry
	added       *OrderedMap
	replaced    *OrderedMap
	displaced   *OrderedMap
	removedKeys []interface{}
}

// FuseMapActions nets actions, as recorded against initial, into added,
// removed and replaced entries. Only keys touched by the log are inspected.
// keyEqual decides logical key equality for the remove wrapper; nil means
// identity only.
func FuseMapActions(initial *OrderedMap, actions []MapAction, keyEqual func(a, b interface{}) bool) *FusedMapActions {
	if initial == nil {
		initial = NewOrderedMap()
	}
	state := initial.Clone()
	touched := view.NewIdentitySet()
	for _, a := range actions {
		if _, ok := a.(*MapClear); ok {
			for _, k := range state.Keys() {
				touched.Add(k)
			}
		} else {
			for _, k := range a.RemovedKeys() {
				touched.Add(k)
			}
			for _, k := range a.AddedKeys() {
				touched.Add(k)
			}
		}
		a.Apply(state, Hooks{})
	}

	f := &FusedMapActions{
		added:     NewOrderedMap(),
		replaced:  NewOrderedMap(),
		displaced: NewOrderedMap(),
	}
	for _, k := range touched.Values() {
		iv, inInitial := initial.Get(k)
		fv, inFinal := state.Get(k)
		switch {
		case inInitial && !inFinal:
			f.removed = append(f.removed, RemovedEntry{Key: k, Value: iv})
		case !inInitial && inFinal:
			f.added.Put(k, fv)
		case inInitial && inFinal && !view.Same(iv, fv):
			f.replaced.Put(k, fv)
			f.displaced.Put(k, iv)
		}
	}

	if keyEqual != nil {
		for i := range f.removed {
			for _, k := range f.added.Keys() {
				if keyEqual(f.removed[i].Key, k) {
					f.removed[i].Wrapped = true
					break
				}
			}
		}
	}
	f.removedKeys = make([]interface{}, len(f.removed))
	for i, r := range f.removed {
		f.removedKeys[i] = r.Key
	}
	return f
}

func (f *FusedMapActions) Added() []Entry             { return f.added.Entries() }
func (f *FusedMapActions) Replaced() []Entry          { return f.replaced.Entries() }
func (f *FusedMapActions) Removed() []RemovedEntry    { return append([]RemovedEntry(nil), f.removed...) }
func (f *FusedMapActions) RemovedKeys() []interface{} { return f.removedKeys }

// OperationCount is the number of rows the net effect touches.
func (f *FusedMapActions) OperationCount() int {
	return len(f.removed) + f.added.Len() + f.replaced.Len()
}

func (f *FusedMapActions) IsEmpty() bool { return f.OperationCount() == 0 }

// CascadeRemovedKeys returns removed keys that are really gone.
func (f *FusedMapActions) CascadeRemovedKeys() []interface{} {
	var out []interface{}
	for _, r := range f.removed {
		if !r.Wrapped {
			out = append(out, r.Key)
		}
	}
	return out
}

// RemovedElements returns values of removed entries and values displaced by
// replacements, skipping any that are still present in the net result.
func (f *FusedMapActions) RemovedElements() []interface{} {
	kept := view.NewIdentitySet(f.added.Values()...)
	for _, v := range f.replaced.Values() {
		kept.Add(v)
	}
	var out []interface{}
	for _, r := range f.removed {
		if r.Value != nil && !kept.Contains(r.Value) {
			out = append(out, r.Value)
		}
	}
	for _, v := range f.displaced.Values() {
		if v != nil && !kept.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// ApplyTo replays the net effect against target.
func (f *FusedMapActions) ApplyTo(target *OrderedMap, hooks Hooks) {
	kept := view.NewIdentitySet()
	for _, v := range f.added.Values() {
		kept.Add(hooks.value(v))
	}
	for _, v := range f.replaced.Values() {
		kept.Add(hooks.value(v))
	}
	for _, r := range f.removed {
		k := hooks.key(r.Key)
		old, existed := target.Remove(k)
		if !existed {
			continue
		}
		if !r.Wrapped {
			hooks.keyRemoved(k)
		}
		if !kept.Contains(old) {
			hooks.valueRemoved(old)
		}
	}
	for _, e := range f.replaced.Entries() {
		(&MapPut{Key: e.Key, Value: e.Value}).Apply(target, hooks)
	}
	for _, e := range f.added.Entries() {
		(&MapPut{Key: e.Key, Value: e.Value}).Apply(target, hooks)
	}
}

// ============================================================
// FUSED COLLECTION ACTIONS
// ============================================================

// IndexedElement is one net change of a list or set. Index is -1 for sets.
type IndexedElement struct {
	Index   int
	Element interface{}
	Old     interface{}
}

// FusedCollectionActions is the net effect of a collection action log.
// Lists are compared position by position; sets by membership.
type FusedCollectionActions struct {
	ordered  bool
	added    []IndexedElement
	removed  []IndexedElement
	replaced []IndexedElement
}

func FuseCollectionActions(initial Collection, actions []CollectionAction) *FusedCollectionActions {
	state := initial.Clone()
	for _, a := range actions {
		a.Apply(state, Hooks{})
	}
	return DiffCollections(initial, state)
}

// DiffCollections computes the net effect between two states of the same
// logical collection.
func DiffCollections(initial, current Collection) *FusedCollectionActions {
	ordered := (current != nil && current.Ordered()) || (current == nil && initial != nil && initial.Ordered())
	var ini, cur []interface{}
	if initial != nil {
		ini = initial.Items()
	}
	if current != nil {
		cur = current.Items()
	}
	f := &FusedCollectionActions{ordered: ordered}
	if !ordered {
		for _, v := range identityDiff(ini, cur) {
			f.removed = append(f.removed, IndexedElement{Index: -1, Element: v})
		}
		for _, v := range identityDiff(cur, ini) {
			f.added = append(f.added, IndexedElement{Index: -1, Element: v})
		}
		return f
	}
	n := min(len(ini), len(cur))
	for i := 0; i < n; i++ {
		if !view.Same(ini[i], cur[i]) {
			f.replaced = append(f.replaced, IndexedElement{Index: i, Element: cur[i], Old: ini[i]})
		}
	}
	for i := n; i < len(cur); i++ {
		f.added = append(f.added, IndexedElement{Index: i, Element: cur[i]})
	}
	for i := n; i < len(ini); i++ {
		f.removed = append(f.removed, IndexedElement{Index: i, Element: ini[i]})
	}
	return f
}

func (f *FusedCollectionActions) Ordered() bool              { return f.ordered }
func (f *FusedCollectionActions) Added() []IndexedElement    { return f.added }
func (f *FusedCollectionActions) Removed() []IndexedElement  { return f.removed }
func (f *FusedCollectionActions) Replaced() []IndexedElement { return f.replaced }
func (f *FusedCollectionActions) IsEmpty() bool              { return f.OperationCount() == 0 }

func (f *FusedCollectionActions) OperationCount() int {
	return len(f.added) + len(f.removed) + len(f.replaced)
}

// RemovedKeys addresses the deleted rows: indexes for lists, elements for
// sets.
func (f *FusedCollectionActions) RemovedKeys() []interface{} {
	out := make([]interface{}, len(f.removed))
	for i, r := range f.removed {
		if f.ordered {
			out[i] = r.Index
		} else {
			out[i] = r.Element
		}
	}
	return out
}

// RemovedElements returns elements that dropped out entirely.
func (f *FusedCollectionActions) RemovedElements() []interface{} {
	kept := view.NewIdentitySet()
	for _, a := range f.added {
		kept.Add(a.Element)
	}
	for _, r := range f.replaced {
		kept.Add(r.Element)
	}
	var out []interface{}
	for _, r := range f.removed {
		if !kept.Contains(r.Element) {
			out = append(out, r.Element)
		}
	}
	for _, r := range f.replaced {
		if r.Old != nil && !kept.Contains(r.Old) {
			out = append(out, r.Old)
		}
	}
	return out
}

// ApplyTo replays the net effect against target.
func (f *FusedCollectionActions) ApplyTo(target Collection, hooks Hooks) {
	l, positional := target.(*List)
	if !f.ordered || !positional {
		for _, r := range f.removed {
			(&CollectionRemove{Index: -1, Element: r.Element}).Apply(target, hooks)
		}
		for _, a := range f.added {
			(&CollectionAdd{Index: -1, Element: a.Element}).Apply(target, hooks)
		}
		return
	}
	for _, r := range f.replaced {
		(&CollectionSet{Index: r.Index, Element: r.Element, Old: r.Old}).Apply(l, hooks)
	}
	for i := len(f.removed) - 1; i >= 0; i-- {
		(&CollectionRemove{Index: f.removed[i].Index, Element: f.removed[i].Element}).Apply(l, hooks)
	}
	for _, a := range f.added {
		(&CollectionAdd{Index: a.Index, Element: a.Element}).Apply(l, hooks)
	}
}
