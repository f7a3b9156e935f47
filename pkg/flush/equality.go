package flush

import "github.com/chameleon-db/entityview/pkg/view"

// Equality decides whether two keys or elements denote the same slot.
type Equality func(a, b interface{}) bool

// IdentityEquality matches only the same instance.
func IdentityEquality(a, b interface{}) bool { return view.Same(a, b) }

// ValueEquality uses the basic type's equality.
func ValueEquality(t view.BasicUserType) Equality {
	return func(a, b interface{}) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return view.Same(a, b) || t.IsEqual(a, b)
	}
}

// IDEquality matches instances carrying the same id. Instances without an
// id only match themselves.
func IDEquality(id func(interface{}) interface{}) Equality {
	return func(a, b interface{}) bool {
		if view.Same(a, b) {
			return true
		}
		if a == nil || b == nil {
			return false
		}
		ia, ib := id(a), id(b)
		return ia != nil && ib != nil && view.Equal(ia, ib)
	}
}

// equality picks the strategy matching slots of d: view id for
// identifiable subviews, entity id for entities, basic equality otherwise.
func (d *TypeDescriptor) equality() Equality {
	switch {
	case d.subview && d.identifiable, d.entity:
		return IDEquality(d.id)
	case d.basic != nil:
		return ValueEquality(d.basic)
	}
	return IdentityEquality
}

// contentEquality compares values held in a slot, deep when supported.
func (d *TypeDescriptor) contentEquality() Equality {
	if d.SupportsDeepEqualityCheck() {
		t := d.basic
		return func(a, b interface{}) bool {
			if a == nil || b == nil {
				return a == nil && b == nil
			}
			return view.Same(a, b) || t.IsDeepEqual(a, b)
		}
	}
	if d.IsBasic() {
		return d.equality()
	}
	return IdentityEquality
}
