package view

// BasicUserType is the strategy for plain (non-entity, non-view) values.
type BasicUserType interface {
	IsMutable() bool
	SupportsDirtyChecking() bool
	SupportsDeepEqualChecking() bool
	SupportsDeepCloning() bool

	// IsEqual compares by identity for mutable types and by value otherwise.
	IsEqual(a, b interface{}) bool
	IsDeepEqual(a, b interface{}) bool
	DeepClone(v interface{}) interface{}

	// DirtyProperties returns nil when v is clean, an empty slice when it is
	// dirty without property detail.
	DirtyProperties(v interface{}) []string

	// ShouldPersist reports whether v is an unsaved instance.
	ShouldPersist(v interface{}) bool
}

// ImmutableType serves strings, numbers, uuids, times and other values that
// can never change in place.
type ImmutableType struct{}

func (ImmutableType) IsMutable() bool                        { return false }
func (ImmutableType) SupportsDirtyChecking() bool            { return false }
func (ImmutableType) SupportsDeepEqualChecking() bool        { return true }
func (ImmutableType) SupportsDeepCloning() bool              { return true }
func (ImmutableType) IsEqual(a, b interface{}) bool          { return Equal(a, b) }
func (ImmutableType) IsDeepEqual(a, b interface{}) bool      { return Equal(a, b) }
func (ImmutableType) DeepClone(v interface{}) interface{}    { return v }
func (ImmutableType) DirtyProperties(v interface{}) []string { return nil }
func (ImmutableType) ShouldPersist(v interface{}) bool       { return false }

// MutableType describes a mutable basic value. Each optional function
// enables the matching capability.
type MutableType struct {
	Clone     func(v interface{}) interface{}
	DeepEqual func(a, b interface{}) bool
	Dirty     func(v interface{}) []string
	Persist   func(v interface{}) bool
}

func (t MutableType) IsMutable() bool                 { return true }
func (t MutableType) SupportsDirtyChecking() bool     { return t.Dirty != nil }
func (t MutableType) SupportsDeepEqualChecking() bool { return t.DeepEqual != nil }
func (t MutableType) SupportsDeepCloning() bool       { return t.Clone != nil }

func (t MutableType) IsEqual(a, b interface{}) bool { return Same(a, b) }

func (t MutableType) IsDeepEqual(a, b interface{}) bool {
	if t.DeepEqual == nil {
		return Same(a, b)
	}
	return t.DeepEqual(a, b)
}

func (t MutableType) DeepClone(v interface{}) interface{} {
	if t.Clone == nil {
		return v
	}
	return t.Clone(v)
}

func (t MutableType) DirtyProperties(v interface{}) []string {
	if t.Dirty == nil {
		return nil
	}
	return t.Dirty(v)
}

func (t MutableType) ShouldPersist(v interface{}) bool {
	return t.Persist != nil && t.Persist(v)
}
