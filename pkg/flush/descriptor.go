package flush

import "github.com/chameleon-db/entityview/pkg/view"

// TypeDescriptor is the capability set of a key, element or singular
// attribute type. Every flusher decision is a predicate over one or two
// descriptors.
type TypeDescriptor struct {
	subview      bool
	entity       bool
	identifiable bool
	mutable      bool
	flush        bool
	persist      bool
	merge        bool

	basic           view.BasicUserType
	mapper          ViewToEntityMapper
	loadOnlyMapper  ViewToEntityMapper
	entityID        func(entity interface{}) interface{}
	entityIDAttr    string
	attributeIDAttr string
	remover         ElementRemover
}

// DescriptorOption customizes a descriptor at construction.
type DescriptorOption func(*TypeDescriptor)

// WithCascade enables persist and merge cascading of entity elements, or
// creatable/updatable cascading of subviews.
func WithCascade(persist, merge bool) DescriptorOption {
	return func(d *TypeDescriptor) {
		d.persist = persist
		d.merge = merge
	}
}

// WithElementRemover installs the remover used for cascading deletes.
func WithElementRemover(r ElementRemover) DescriptorOption {
	return func(d *TypeDescriptor) { d.remover = r }
}

// WithIDAttributes names the id attribute of the entity and of the view
// attribute, as used when rows are written by id.
func WithIDAttributes(entityID, attributeID string) DescriptorOption {
	return func(d *TypeDescriptor) {
		d.entityIDAttr = entityID
		d.attributeIDAttr = attributeID
	}
}

// WithLoadOnlyMapper sets the mapper used for elements that are only
// referenced, never flushed.
func WithLoadOnlyMapper(m ViewToEntityMapper) DescriptorOption {
	return func(d *TypeDescriptor) { d.loadOnlyMapper = m }
}

// ReadOnly marks a subview type whose instances are never flushed.
func ReadOnly() DescriptorOption {
	return func(d *TypeDescriptor) {
		d.mutable = false
		d.flush = false
	}
}

// Flat marks a subview type without an id (an embeddable projection).
func Flat() DescriptorOption {
	return func(d *TypeDescriptor) { d.identifiable = false }
}

// BasicDescriptor describes plain values handled by t.
func BasicDescriptor(t view.BasicUserType, opts ...DescriptorOption) *TypeDescriptor {
	d := &TypeDescriptor{
		basic:   t,
		mutable: t.IsMutable(),
		flush:   t.IsMutable(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SubviewDescriptor describes updatable nested views mapped by mapper.
func SubviewDescriptor(mapper ViewToEntityMapper, opts ...DescriptorOption) *TypeDescriptor {
	d := &TypeDescriptor{
		subview:      true,
		identifiable: true,
		mutable:      true,
		flush:        true,
		mapper:       mapper,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.loadOnlyMapper == nil {
		d.loadOnlyMapper = mapper
	}
	return d
}

// EntityDescriptor describes entity elements. id extracts the entity id;
// when nil, view.IDOf is used. Mutations are flushed only when a cascade
// is enabled.
func EntityDescriptor(t view.BasicUserType, id func(entity interface{}) interface{}, opts ...DescriptorOption) *TypeDescriptor {
	d := &TypeDescriptor{
		entity:       true,
		identifiable: true,
		mutable:      true,
		basic:        t,
		entityID:     id,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.flush = d.persist || d.merge
	return d
}

// ─────────────────────────────────────────────────────────────
// Predicates
// ─────────────────────────────────────────────────────────────

func (d *TypeDescriptor) IsSubview() bool            { return d.subview }
func (d *TypeDescriptor) IsJpaEntity() bool          { return d.entity }
func (d *TypeDescriptor) IsBasic() bool              { return !d.subview && !d.entity }
func (d *TypeDescriptor) IsIdentifiable() bool       { return d.identifiable }
func (d *TypeDescriptor) IsMutable() bool            { return d.mutable }
func (d *TypeDescriptor) ShouldFlushMutations() bool { return d.flush }
func (d *TypeDescriptor) ShouldJpaPersist() bool     { return d.entity && d.persist }
func (d *TypeDescriptor) ShouldJpaMerge() bool       { return d.entity && d.merge }

func (d *TypeDescriptor) ShouldJpaPersistOrMerge() bool {
	return d.ShouldJpaPersist() || d.ShouldJpaMerge()
}

// SupportsDirtyCheck reports whether an instance can tell if it changed in
// place. Subviews always can through their trackable state.
func (d *TypeDescriptor) SupportsDirtyCheck() bool {
	if d.subview {
		return true
	}
	return d.basic != nil && d.basic.SupportsDirtyChecking()
}

func (d *TypeDescriptor) SupportsDeepEqualityCheck() bool {
	return !d.subview && d.basic != nil && d.basic.SupportsDeepEqualChecking()
}

func (d *TypeDescriptor) SupportsEqualityCheck() bool {
	if d.subview {
		return d.identifiable
	}
	return d.basic != nil
}

// supportsDeepClone reports whether values can be snapshotted by cloning.
func (d *TypeDescriptor) supportsDeepClone() bool {
	return d.IsBasic() && d.basic != nil && d.basic.SupportsDeepCloning()
}

// ─────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────

func (d *TypeDescriptor) BasicUserType() view.BasicUserType              { return d.basic }
func (d *TypeDescriptor) ViewToEntityMapper() ViewToEntityMapper         { return d.mapper }
func (d *TypeDescriptor) LoadOnlyViewToEntityMapper() ViewToEntityMapper { return d.loadOnlyMapper }
func (d *TypeDescriptor) EntityIDAttributeName() string                  { return d.entityIDAttr }
func (d *TypeDescriptor) AttributeIDAttributeName() string               { return d.attributeIDAttr }
func (d *TypeDescriptor) ElementRemover() ElementRemover                 { return d.remover }

// id returns the identity a row stores for v.
func (d *TypeDescriptor) id(v interface{}) interface{} {
	switch {
	case v == nil:
		return nil
	case d.subview && d.mapper != nil:
		return d.mapper.ViewID(v)
	case d.entity && d.entityID != nil:
		return d.entityID(v)
	}
	return view.IDOf(v)
}

// rowValue is what a collection table column holds for v.
func (d *TypeDescriptor) rowValue(v interface{}) interface{} {
	if d.IsBasic() || (d.subview && !d.identifiable) {
		return v
	}
	return d.id(v)
}

// shouldPersist reports whether v is an unsaved instance.
func (d *TypeDescriptor) shouldPersist(v interface{}) bool {
	if v == nil {
		return false
	}
	if d.subview {
		p, ok := v.(view.Proxy)
		return ok && p.IsNew()
	}
	return d.basic != nil && d.basic.ShouldPersist(v)
}

// isTransient reports whether v is an entity that must already be saved
// but is not.
func (d *TypeDescriptor) isTransient(v interface{}) bool {
	return d.entity && !d.persist && d.shouldPersist(v)
}
