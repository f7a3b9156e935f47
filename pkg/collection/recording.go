package collection

import "github.com/chameleon-db/entityview/pkg/view"

// Recording is implemented by tracked containers that journal their
// structural changes.
type Recording interface {
	HasActions() bool
	ActionCount() int
	ResetActions()
	Parent() view.Trackable
	SetParent(parent view.Trackable)
}

type dirtyMarker interface {
	MarkDirty()
}

// ============================================================
// RECORDING MAP
// ============================================================

// RecordingMap wraps a map attribute value and journals every mutation.
// The log is append-only until ResetActions.
type RecordingMap struct {
	delegate *OrderedMap
	actions  []MapAction
	initial  *OrderedMap
	parent   view.Trackable
}

func NewRecordingMap(delegate *OrderedMap) *RecordingMap {
	if delegate == nil {
		delegate = NewOrderedMap()
	}
	return &RecordingMap{delegate: delegate}
}

// Delegate exposes the backing map. Mutating it directly bypasses the log.
func (r *RecordingMap) Delegate() *OrderedMap { return r.delegate }

func (r *RecordingMap) Len() int                                { return r.delegate.Len() }
func (r *RecordingMap) Get(key interface{}) (interface{}, bool) { return r.delegate.Get(key) }
func (r *RecordingMap) Entries() []Entry                        { return r.delegate.Entries() }
func (r *RecordingMap) Parent() view.Trackable                  { return r.parent }
func (r *RecordingMap) SetParent(parent view.Trackable)         { r.parent = parent }
func (r *RecordingMap) HasActions() bool                        { return len(r.actions) > 0 }
func (r *RecordingMap) ActionCount() int                        { return len(r.actions) }
func (r *RecordingMap) ContainsKey(key interface{}) bool        { return r.delegate.ContainsKey(key) }

func (r *RecordingMap) record(a MapAction) {
	r.actions = append(r.actions, a)
	if m, ok := r.parent.(dirtyMarker); ok {
		m.MarkDirty()
	}
}

func (r *RecordingMap) snapshot() {
	if r.initial == nil {
		r.initial = r.delegate.Clone()
	}
}

func (r *RecordingMap) Put(key, value interface{}) {
	if old, had := r.delegate.Get(key); had && view.Same(old, value) {
		return
	}
	r.snapshot()
	old, had := r.delegate.Put(key, value)
	r.record(&MapPut{Key: key, Value: value, Old: old, HadOld: had})
}

func (r *RecordingMap) PutAll(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	r.snapshot()
	var displaced []Entry
	for _, e := range entries {
		if old, had := r.delegate.Put(e.Key, e.Value); had && !view.Same(old, e.Value) {
			displaced = append(displaced, Entry{Key: e.Key, Value: old})
		}
	}
	r.record(&MapPutAll{Entries: append([]Entry(nil), entries...), Displaced: displaced})
}

func (r *RecordingMap) Remove(key interface{}) (interface{}, bool) {
	if !r.delegate.ContainsKey(key) {
		return nil, false
	}
	r.snapshot()
	old, _ := r.delegate.Remove(key)
	r.record(&MapRemove{Key: key, Old: old})
	return old, true
}

func (r *RecordingMap) Clear() {
	if r.delegate.Len() == 0 {
		return
	}
	r.snapshot()
	removed := r.delegate.Entries()
	r.delegate.Clear()
	r.record(&MapClear{Removed: removed})
}

// Actions returns a copy of the log.
func (r *RecordingMap) Actions() []MapAction {
	return append([]MapAction(nil), r.actions...)
}

// ResetActions drops the log after a successful flush; the current state
// becomes the new initial version.
func (r *RecordingMap) ResetActions() {
	r.actions = nil
	r.initial = nil
}

// InitialVersion returns the state before the first recorded action.
func (r *RecordingMap) InitialVersion() *OrderedMap {
	if r.initial == nil {
		return r.delegate.Clone()
	}
	return r.initial.Clone()
}

// Replay applies the log to target, typically a freshly loaded version of
// the same logical map.
func (r *RecordingMap) Replay(target *OrderedMap, hooks Hooks) {
	for _, a := range r.actions {
		a.Apply(target, hooks)
	}
}

// InitiateActionsAgainstState installs a computed log as if it had been
// recorded against initial.
func (r *RecordingMap) InitiateActionsAgainstState(actions []MapAction, initial *OrderedMap) {
	r.actions = append([]MapAction(nil), actions...)
	if initial == nil {
		r.initial = NewOrderedMap()
	} else {
		r.initial = initial.Clone()
	}
}

// ReplaceActionElement swaps old for new in every recorded action.
func (r *RecordingMap) ReplaceActionElement(old, new interface{}) {
	for i, a := range r.actions {
		r.actions[i] = a.ReplaceObject(old, new)
	}
}

// AddedKeys returns keys present now but not in the initial version.
func (r *RecordingMap) AddedKeys() []interface{} {
	return identityDiff(r.delegate.Keys(), r.InitialVersion().Keys())
}

// RemovedKeys returns keys of the initial version that are gone now.
func (r *RecordingMap) RemovedKeys() []interface{} {
	return identityDiff(r.InitialVersion().Keys(), r.delegate.Keys())
}

func (r *RecordingMap) AddedElements() []interface{} {
	return identityDiff(r.delegate.Values(), r.InitialVersion().Values())
}

func (r *RecordingMap) RemovedElements() []interface{} {
	return identityDiff(r.InitialVersion().Values(), r.delegate.Values())
}

// identityDiff returns the members of a that are not in b by identity.
func identityDiff(a, b []interface{}) []interface{} {
	seen := view.NewIdentitySet(b...)
	var out []interface{}
	for _, v := range a {
		if v != nil && !seen.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// ============================================================
// RECORDING COLLECTION
// ============================================================

// RecordingCollection wraps a list or set attribute value and journals
// every mutation.
type RecordingCollection struct {
	delegate Collection
	actions  []CollectionAction
	initial  Collection
	parent   view.Trackable
}

func NewRecordingCollection(delegate Collection) *RecordingCollection {
	return &RecordingCollection{delegate: delegate}
}

func (r *RecordingCollection) Delegate() Collection            { return r.delegate }
func (r *RecordingCollection) Len() int                        { return r.delegate.Len() }
func (r *RecordingCollection) Items() []interface{}            { return r.delegate.Items() }
func (r *RecordingCollection) Contains(v interface{}) bool     { return r.delegate.Contains(v) }
func (r *RecordingCollection) Ordered() bool                   { return r.delegate.Ordered() }
func (r *RecordingCollection) Parent() view.Trackable          { return r.parent }
func (r *RecordingCollection) SetParent(parent view.Trackable) { r.parent = parent }
func (r *RecordingCollection) HasActions() bool                { return len(r.actions) > 0 }
func (r *RecordingCollection) ActionCount() int                { return len(r.actions) }

func (r *RecordingCollection) record(a CollectionAction) {
	r.actions = append(r.actions, a)
	if m, ok := r.parent.(dirtyMarker); ok {
		m.MarkDirty()
	}
}

func (r *RecordingCollection) snapshot() {
	if r.initial == nil {
		r.initial = r.delegate.Clone()
	}
}

func (r *RecordingCollection) list() *List {
	l, ok := r.delegate.(*List)
	if !ok {
		panic("collection: positional operation on an unordered collection")
	}
	return l
}

func (r *RecordingCollection) Add(v interface{}) bool {
	if !r.delegate.Ordered() && r.delegate.Contains(v) {
		return false
	}
	r.snapshot()
	r.delegate.Add(v)
	r.record(&CollectionAdd{Index: -1, Element: v})
	return true
}

func (r *RecordingCollection) Remove(v interface{}) bool {
	if l, ok := r.delegate.(*List); ok {
		i := l.IndexOf(v)
		if i < 0 {
			return false
		}
		r.RemoveAt(i)
		return true
	}
	if !r.delegate.Contains(v) {
		return false
	}
	r.snapshot()
	r.delegate.Remove(v)
	r.record(&CollectionRemove{Index: -1, Element: v})
	return true
}

// Insert panics when the delegate is not a *List.
func (r *RecordingCollection) Insert(i int, v interface{}) {
	l := r.list()
	r.snapshot()
	l.Insert(i, v)
	r.record(&CollectionAdd{Index: i, Element: v})
}

// Set panics when the delegate is not a *List.
func (r *RecordingCollection) Set(i int, v interface{}) interface{} {
	l := r.list()
	if view.Same(l.Get(i), v) {
		return v
	}
	r.snapshot()
	old := l.Set(i, v)
	r.record(&CollectionSet{Index: i, Element: v, Old: old})
	return old
}

// RemoveAt panics when the delegate is not a *List.
func (r *RecordingCollection) RemoveAt(i int) interface{} {
	l := r.list()
	r.snapshot()
	old := l.RemoveAt(i)
	r.record(&CollectionRemove{Index: i, Element: old})
	return old
}

func (r *RecordingCollection) Clear() {
	if r.delegate.Len() == 0 {
		return
	}
	r.snapshot()
	removed := r.delegate.Items()
	r.delegate.Clear()
	r.record(&CollectionClear{Removed: removed})
}

func (r *RecordingCollection) Actions() []CollectionAction {
	return append([]CollectionAction(nil), r.actions...)
}

func (r *RecordingCollection) ResetActions() {
	r.actions = nil
	r.initial = nil
}

func (r *RecordingCollection) InitialVersion() Collection {
	if r.initial == nil {
		return r.delegate.Clone()
	}
	return r.initial.Clone()
}

func (r *RecordingCollection) Replay(target Collection, hooks Hooks) {
	for _, a := range r.actions {
		a.Apply(target, hooks)
	}
}

func (r *RecordingCollection) InitiateActionsAgainstState(actions []CollectionAction, initial Collection) {
	r.actions = append([]CollectionAction(nil), actions...)
	if initial == nil {
		r.initial = emptyLike(r.delegate)
	} else {
		r.initial = initial.Clone()
	}
}

func (r *RecordingCollection) ReplaceActionElement(old, new interface{}) {
	for i, a := range r.actions {
		r.actions[i] = a.ReplaceObject(old, new)
	}
}

func (r *RecordingCollection) AddedElements() []interface{} {
	return identityDiff(r.delegate.Items(), r.InitialVersion().Items())
}

func (r *RecordingCollection) RemovedElements() []interface{} {
	return identityDiff(r.InitialVersion().Items(), r.delegate.Items())
}

func emptyLike(c Collection) Collection {
	if c.Ordered() {
		return NewList()
	}
	return NewSet()
}
