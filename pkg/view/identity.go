package view

import "reflect"

// identity is the hashable identity of a reference-kinded value.
type identity struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

// opaque stands in for uncomparable values without an address. Every call
// allocates a fresh one, so such values are never identical to anything.
type opaque struct{ _ byte }

// IdentityKey returns a comparable key that is equal for two values only
// when they are the same instance. Pointers, maps, slices, channels and
// funcs compare by address; comparable values compare by value.
func IdentityKey(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return identity{typ: rv.Type(), ptr: rv.Pointer()}
	case reflect.Slice:
		return identity{typ: rv.Type(), ptr: rv.Pointer(), n: rv.Len()}
	}
	if rv.Comparable() {
		return v
	}
	return &opaque{}
}

// Same reports whether a and b are the same instance.
func Same(a, b interface{}) bool {
	return IdentityKey(a) == IdentityKey(b)
}

// Equal reports value equality. Comparable values use ==, everything else
// falls back to reflect.DeepEqual.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() == rb.Type() && ra.Comparable() && rb.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// IdentitySet is a set keyed by instance identity.
type IdentitySet struct {
	items map[interface{}]interface{}
	order []interface{}
}

func NewIdentitySet(values ...interface{}) *IdentitySet {
	s := &IdentitySet{items: make(map[interface{}]interface{}, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add returns false when the instance was already present.
func (s *IdentitySet) Add(v interface{}) bool {
	k := IdentityKey(v)
	if _, ok := s.items[k]; ok {
		return false
	}
	s.items[k] = v
	s.order = append(s.order, k)
	return true
}

func (s *IdentitySet) Contains(v interface{}) bool {
	_, ok := s.items[IdentityKey(v)]
	return ok
}

func (s *IdentitySet) Remove(v interface{}) bool {
	k := IdentityKey(v)
	if _, ok := s.items[k]; !ok {
		return false
	}
	delete(s.items, k)
	for i, o := range s.order {
		if o == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *IdentitySet) Len() int { return len(s.items) }

// Values returns the members in insertion order.
func (s *IdentitySet) Values() []interface{} {
	out := make([]interface{}, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}
