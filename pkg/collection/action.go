package collection

import (
	"fmt"

	"github.com/chameleon-db/entityview/pkg/view"
)

// Hooks adapt an action replay to the target container. Key and Value map
// view objects to what the target stores (usually entity references); the
// removal callbacks fire for every mapped object that drops out. Nil fields
// are no-ops.
type Hooks struct {
	Key          func(interface{}) interface{}
	Value        func(interface{}) interface{}
	KeyRemoved   func(interface{})
	ValueRemoved func(interface{})
}

func (h Hooks) key(k interface{}) interface{} {
	if h.Key == nil {
		return k
	}
	return h.Key(k)
}

func (h Hooks) value(v interface{}) interface{} {
	if h.Value == nil {
		return v
	}
	return h.Value(v)
}

func (h Hooks) keyRemoved(k interface{}) {
	if h.KeyRemoved != nil && k != nil {
		h.KeyRemoved(k)
	}
}

func (h Hooks) valueRemoved(v interface{}) {
	if h.ValueRemoved != nil && v != nil {
		h.ValueRemoved(v)
	}
}

func replaceSame(v, old, new interface{}) interface{} {
	if v != nil && view.Same(v, old) {
		return new
	}
	return v
}

// ============================================================
// MAP ACTIONS
// ============================================================

// MapAction is one recorded structural change of a map attribute.
type MapAction interface {
	Apply(target *OrderedMap, hooks Hooks)
	AddedKeys() []interface{}
	RemovedKeys() []interface{}
	AddedElements() []interface{}
	RemovedElements() []interface{}

	// ReplaceObject returns a copy with every reference to old swapped for new.
	ReplaceObject(old, new interface{}) MapAction
	String() string
}

// MapPut stores Value under Key. Old is the displaced value.
type MapPut struct {
	Key    interface{}
	Value  interface{}
	Old    interface{}
	HadOld bool
}

func (a *MapPut) Apply(target *OrderedMap, hooks Hooks) {
	value := hooks.value(a.Value)
	old, existed := target.Put(hooks.key(a.Key), value)
	if existed && !view.Same(old, value) {
		hooks.valueRemoved(old)
	}
}

func (a *MapPut) AddedKeys() []interface{}     { return []interface{}{a.Key} }
func (a *MapPut) AddedElements() []interface{} { return []interface{}{a.Value} }

func (a *MapPut) RemovedKeys() []interface{} { return nil }

func (a *MapPut) RemovedElements() []interface{} {
	if a.HadOld && !view.Same(a.Old, a.Value) {
		return []interface{}{a.Old}
	}
	return nil
}

func (a *MapPut) ReplaceObject(old, new interface{}) MapAction {
	return &MapPut{
		Key:    replaceSame(a.Key, old, new),
		Value:  replaceSame(a.Value, old, new),
		Old:    a.Old,
		HadOld: a.HadOld,
	}
}

func (a *MapPut) String() string { return fmt.Sprintf("Put(%v, %v)", a.Key, a.Value) }

// MapPutAll stores several entries at once.
type MapPutAll struct {
	Entries []Entry
	// Displaced holds the values that were overwritten, keyed like Entries.
	Displaced []Entry
}

func (a *MapPutAll) Apply(target *OrderedMap, hooks Hooks) {
	for _, e := range a.Entries {
		(&MapPut{Key: e.Key, Value: e.Value}).Apply(target, hooks)
	}
}

func (a *MapPutAll) AddedKeys() []interface{} {
	out := make([]interface{}, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Key)
	}
	return out
}

func (a *MapPutAll) AddedElements() []interface{} {
	out := make([]interface{}, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Value)
	}
	return out
}

func (a *MapPutAll) RemovedKeys() []interface{} { return nil }

func (a *MapPutAll) RemovedElements() []interface{} {
	out := make([]interface{}, 0, len(a.Displaced))
	for _, e := range a.Displaced {
		out = append(out, e.Value)
	}
	return out
}

func (a *MapPutAll) ReplaceObject(old, new interface{}) MapAction {
	entries := make([]Entry, len(a.Entries))
	for i, e := range a.Entries {
		entries[i] = Entry{Key: replaceSame(e.Key, old, new), Value: replaceSame(e.Value, old, new)}
	}
	return &MapPutAll{Entries: entries, Displaced: a.Displaced}
}

func (a *MapPutAll) String() string { return fmt.Sprintf("PutAll(%d)", len(a.Entries)) }

// MapRemove drops Key. Old is the value it held.
type MapRemove struct {
	Key interface{}
	Old interface{}
}

func (a *MapRemove) Apply(target *OrderedMap, hooks Hooks) {
	k := hooks.key(a.Key)
	if old, existed := target.Remove(k); existed {
		hooks.keyRemoved(k)
		hooks.valueRemoved(old)
	}
}

func (a *MapRemove) AddedKeys() []interface{}       { return nil }
func (a *MapRemove) AddedElements() []interface{}   { return nil }
func (a *MapRemove) RemovedKeys() []interface{}     { return []interface{}{a.Key} }
func (a *MapRemove) RemovedElements() []interface{} { return []interface{}{a.Old} }

func (a *MapRemove) ReplaceObject(old, new interface{}) MapAction {
	return &MapRemove{Key: replaceSame(a.Key, old, new), Old: a.Old}
}

func (a *MapRemove) String() string { return fmt.Sprintf("Remove(%v)", a.Key) }

// MapClear empties the map. Removed snapshots what was dropped.
type MapClear struct {
	Removed []Entry
}

func (a *MapClear) Apply(target *OrderedMap, hooks Hooks) {
	for _, e := range target.Entries() {
		hooks.keyRemoved(e.Key)
		hooks.valueRemoved(e.Value)
	}
	target.Clear()
}

func (a *MapClear) AddedKeys() []interface{}     { return nil }
func (a *MapClear) AddedElements() []interface{} { return nil }

func (a *MapClear) RemovedKeys() []interface{} {
	out := make([]interface{}, 0, len(a.Removed))
	for _, e := range a.Removed {
		out = append(out, e.Key)
	}
	return out
}

func (a *MapClear) RemovedElements() []interface{} {
	out := make([]interface{}, 0, len(a.Removed))
	for _, e := range a.Removed {
		out = append(out, e.Value)
	}
	return out
}

func (a *MapClear) ReplaceObject(old, new interface{}) MapAction { return a }
func (a *MapClear) String() string                               { return "Clear()" }

// ============================================================
// COLLECTION ACTIONS
// ============================================================

// CollectionAction is one recorded structural change of a list or set.
type CollectionAction interface {
	Apply(target Collection, hooks Hooks)
	AddedElements() []interface{}
	RemovedElements() []interface{}
	ReplaceObject(old, new interface{}) CollectionAction
	String() string
}

// CollectionAdd appends Element, or inserts it at Index for lists when
// Index is not negative.
type CollectionAdd struct {
	Index   int
	Element interface{}
}

func (a *CollectionAdd) Apply(target Collection, hooks Hooks) {
	v := hooks.value(a.Element)
	if l, ok := target.(*List); ok && a.Index >= 0 && a.Index <= l.Len() {
		l.Insert(a.Index, v)
		return
	}
	target.Add(v)
}

func (a *CollectionAdd) AddedElements() []interface{}   { return []interface{}{a.Element} }
func (a *CollectionAdd) RemovedElements() []interface{} { return nil }

func (a *CollectionAdd) ReplaceObject(old, new interface{}) CollectionAction {
	return &CollectionAdd{Index: a.Index, Element: replaceSame(a.Element, old, new)}
}

func (a *CollectionAdd) String() string { return fmt.Sprintf("Add(%d, %v)", a.Index, a.Element) }

// CollectionRemove drops Element, by position for lists when Index is not
// negative.
type CollectionRemove struct {
	Index   int
	Element interface{}
}

func (a *CollectionRemove) Apply(target Collection, hooks Hooks) {
	if l, ok := target.(*List); ok && a.Index >= 0 && a.Index < l.Len() {
		hooks.valueRemoved(l.RemoveAt(a.Index))
		return
	}
	v := hooks.value(a.Element)
	if target.Remove(v) {
		hooks.valueRemoved(v)
	}
}

func (a *CollectionRemove) AddedElements() []interface{}   { return nil }
func (a *CollectionRemove) RemovedElements() []interface{} { return []interface{}{a.Element} }

func (a *CollectionRemove) ReplaceObject(old, new interface{}) CollectionAction {
	return &CollectionRemove{Index: a.Index, Element: replaceSame(a.Element, old, new)}
}

func (a *CollectionRemove) String() string {
	return fmt.Sprintf("Remove(%d, %v)", a.Index, a.Element)
}

// CollectionSet replaces the list element at Index.
type CollectionSet struct {
	Index   int
	Element interface{}
	Old     interface{}
}

func (a *CollectionSet) Apply(target Collection, hooks Hooks) {
	l, ok := target.(*List)
	if !ok {
		panic("collection: positional set on an unordered collection")
	}
	v := hooks.value(a.Element)
	if old := l.Set(a.Index, v); !view.Same(old, v) {
		hooks.valueRemoved(old)
	}
}

func (a *CollectionSet) AddedElements() []interface{} { return []interface{}{a.Element} }

func (a *CollectionSet) RemovedElements() []interface{} {
	if view.Same(a.Old, a.Element) {
		return nil
	}
	return []interface{}{a.Old}
}

func (a *CollectionSet) ReplaceObject(old, new interface{}) CollectionAction {
	return &CollectionSet{Index: a.Index, Element: replaceSame(a.Element, old, new), Old: a.Old}
}

func (a *CollectionSet) String() string { return fmt.Sprintf("Set(%d, %v)", a.Index, a.Element) }

// CollectionClear empties the collection.
type CollectionClear struct {
	Removed []interface{}
}

func (a *CollectionClear) Apply(target Collection, hooks Hooks) {
	for _, v := range target.Items() {
		hooks.valueRemoved(v)
	}
	target.Clear()
}

func (a *CollectionClear) AddedElements() []interface{}   { return nil }
func (a *CollectionClear) RemovedElements() []interface{} { return a.Removed }

func (a *CollectionClear) ReplaceObject(old, new interface{}) CollectionAction { return a }
func (a *CollectionClear) String() string                                      { return "Clear()" }
