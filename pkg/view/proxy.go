package view

// Proxy is implemented by every materialized view instance.
type Proxy interface {
	// IsNew reports whether the view was created by application code and
	// has not been persisted yet.
	IsNew() bool

	// IsReference reports whether the view only carries its identity.
	IsReference() bool
}

// Identifiable views expose their logical id.
type Identifiable interface {
	ViewID() interface{}
}

// Trackable views record their own dirtiness and the view that owns them.
type Trackable interface {
	Proxy
	IsDirty() bool
	Parent() Trackable
}

// InitialState gives flushers access to the per-attribute snapshot taken
// when the view was loaded or attached.
type InitialState interface {
	InitialValue(attribute string) (interface{}, bool)
	SetInitialValue(attribute string, value interface{})
}

// State is embedded by view structs to make them trackable.
//
//	type PersonView struct {
//	    view.State
//	    Name string
//	}
type State struct {
	id        interface{}
	isNew     bool
	reference bool
	dirty     bool
	parent    Trackable
	initial   map[string]interface{}
}

// Loaded returns the state of a fully loaded view.
func Loaded(id interface{}) State {
	return State{id: id}
}

// Created returns the state of a view that application code created for insert.
func Created(id interface{}) State {
	return State{id: id, isNew: true}
}

// Reference returns the state of an identity-only view.
func Reference(id interface{}) State {
	return State{id: id, reference: true}
}

func (s *State) ViewID() interface{} { return s.id }
func (s *State) IsNew() bool         { return s.isNew }
func (s *State) IsReference() bool   { return s.reference }
func (s *State) IsDirty() bool       { return s.dirty }
func (s *State) Parent() Trackable   { return s.parent }

// SetID assigns the id generated on persist.
func (s *State) SetID(id interface{}) { s.id = id }

// SetParent links the view to its owner.
func (s *State) SetParent(parent Trackable) { s.parent = parent }

// MarkDirty flags the view as mutated.
func (s *State) MarkDirty() { s.dirty = true }

// MarkFlushed clears the dirty flag and the new flag after a successful flush.
func (s *State) MarkFlushed() {
	s.dirty = false
	s.isNew = false
}

func (s *State) InitialValue(attribute string) (interface{}, bool) {
	v, ok := s.initial[attribute]
	return v, ok
}

func (s *State) SetInitialValue(attribute string, value interface{}) {
	if s.initial == nil {
		s.initial = make(map[string]interface{})
	}
	s.initial[attribute] = value
}

// IDOf returns the view id of v, or nil when v is not identifiable.
func IDOf(v interface{}) interface{} {
	if id, ok := v.(Identifiable); ok {
		return id.ViewID()
	}
	return nil
}
