package collection

import "github.com/chameleon-db/entityview/pkg/view"

// ============================================================
// ORDERED MAP
// ============================================================

// Entry is one key/value pair of a map attribute.
type Entry struct {
	Key   interface{}
	Value interface{}
}

// OrderedMap keeps insertion order and indexes keys by instance identity,
// so view keys never need to be hashable by value.
type OrderedMap struct {
	entries []Entry
	index   map[interface{}]int
}

func NewOrderedMap(entries ...Entry) *OrderedMap {
	m := &OrderedMap{index: make(map[interface{}]int, len(entries))}
	for _, e := range entries {
		m.Put(e.Key, e.Value)
	}
	return m
}

func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *OrderedMap) Get(key interface{}) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[view.IdentityKey(key)]
	if !ok {
		return nil, false
	}
	return m.entries[i].Value, true
}

func (m *OrderedMap) ContainsKey(key interface{}) bool {
	_, ok := m.Get(key)
	return ok
}

// Put stores value under key and returns the displaced value, if any.
func (m *OrderedMap) Put(key, value interface{}) (interface{}, bool) {
	if m.index == nil {
		m.index = make(map[interface{}]int)
	}
	k := view.IdentityKey(key)
	if i, ok := m.index[k]; ok {
		old := m.entries[i].Value
		m.entries[i].Value = value
		return old, true
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
	return nil, false
}

func (m *OrderedMap) Remove(key interface{}) (interface{}, bool) {
	k := view.IdentityKey(key)
	i, ok := m.index[k]
	if !ok {
		return nil, false
	}
	old := m.entries[i].Value
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.entries); j++ {
		m.index[view.IdentityKey(m.entries[j].Key)] = j
	}
	return old, true
}

func (m *OrderedMap) Clear() {
	m.entries = nil
	m.index = make(map[interface{}]int)
}

// Entries returns a copy of the entries in insertion order.
func (m *OrderedMap) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *OrderedMap) Keys() []interface{} {
	out := make([]interface{}, 0, m.Len())
	for _, e := range m.Entries() {
		out = append(out, e.Key)
	}
	return out
}

func (m *OrderedMap) Values() []interface{} {
	out := make([]interface{}, 0, m.Len())
	for _, e := range m.Entries() {
		out = append(out, e.Value)
	}
	return out
}

// Clone is shallow: keys and values are shared.
func (m *OrderedMap) Clone() *OrderedMap {
	return NewOrderedMap(m.Entries()...)
}

// Equal compares key sets by identity and values with valueEqual.
func (m *OrderedMap) Equal(other *OrderedMap, valueEqual func(a, b interface{}) bool) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, e := range m.Entries() {
		v, ok := other.Get(e.Key)
		if !ok || !valueEqual(e.Value, v) {
			return false
		}
	}
	return true
}

// ============================================================
// LIST AND SET
// ============================================================

// Collection is the plural container shared by lists and sets.
type Collection interface {
	Len() int
	Items() []interface{}
	Contains(v interface{}) bool
	Add(v interface{}) bool
	Remove(v interface{}) bool
	Clear()
	Clone() Collection
	Ordered() bool
}

// List is an indexed sequence.
type List struct {
	items []interface{}
}

func NewList(items ...interface{}) *List {
	l := &List{items: make([]interface{}, 0, len(items))}
	l.items = append(l.items, items...)
	return l
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

func (l *List) Get(i int) interface{} { return l.items[i] }

func (l *List) Items() []interface{} {
	if l == nil {
		return nil
	}
	out := make([]interface{}, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Ordered() bool { return true }

func (l *List) Contains(v interface{}) bool { return l.IndexOf(v) >= 0 }

// IndexOf matches by identity first, then by value.
func (l *List) IndexOf(v interface{}) int {
	for i, it := range l.items {
		if view.Same(it, v) {
			return i
		}
	}
	for i, it := range l.items {
		if view.Equal(it, v) {
			return i
		}
	}
	return -1
}

func (l *List) Add(v interface{}) bool {
	l.items = append(l.items, v)
	return true
}

// Insert places v at index i, shifting the tail.
func (l *List) Insert(i int, v interface{}) {
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = v
}

// Set replaces the element at i and returns the previous one.
func (l *List) Set(i int, v interface{}) interface{} {
	old := l.items[i]
	l.items[i] = v
	return old
}

func (l *List) RemoveAt(i int) interface{} {
	old := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	return old
}

func (l *List) Remove(v interface{}) bool {
	i := l.IndexOf(v)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

func (l *List) Clear() { l.items = nil }

func (l *List) Clone() Collection { return NewList(l.Items()...) }

// Set is an insertion ordered set with identity membership.
type Set struct {
	members *view.IdentitySet
}

func NewSet(items ...interface{}) *Set {
	return &Set{members: view.NewIdentitySet(items...)}
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.members.Len()
}

func (s *Set) Items() []interface{} {
	if s == nil {
		return nil
	}
	return s.members.Values()
}

func (s *Set) Ordered() bool               { return false }
func (s *Set) Contains(v interface{}) bool { return s.members.Contains(v) }
func (s *Set) Add(v interface{}) bool      { return s.members.Add(v) }
func (s *Set) Remove(v interface{}) bool   { return s.members.Remove(v) }
func (s *Set) Clear()                      { s.members = view.NewIdentitySet() }
func (s *Set) Clone() Collection           { return NewSet(s.Items()...) }
