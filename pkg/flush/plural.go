package flush

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

// PluralFlushOperation is what a decided flusher will do with the
// collection.
type PluralFlushOperation int

const (
	// OperationFull fetches the persisted state and merges everything.
	OperationFull PluralFlushOperation = iota
	// OperationReplaceOnly rewrites the collection wholesale.
	OperationReplaceOnly
	// OperationReplayOnly applies the net actions, elements are untouched.
	OperationReplayOnly
	// OperationReplayAndElement applies the net actions and flushes
	// elements that changed in place.
	OperationReplayAndElement
)

func (o PluralFlushOperation) String() string {
	switch o {
	case OperationReplaceOnly:
		return "REPLACE_ONLY"
	case OperationReplayOnly:
		return "REPLAY_ONLY"
	case OperationReplayAndElement:
		return "REPLAY_AND_ELEMENT"
	default:
		return "FULL"
	}
}

// DirtyAttributeFlusher writes the changes of one view attribute.
type DirtyAttributeFlusher interface {
	Attribute() string
	// FlushQuery writes the attribute with statements from the context's
	// QueryFactory.
	FlushQuery(uc *UpdateContext, owner, value interface{}) error
	// FlushEntity mutates entity instead and reports whether anything
	// changed.
	FlushEntity(uc *UpdateContext, entity, owner, value interface{}) (bool, error)
}

// AttributeFlusher is the configured strategy of one attribute.
type AttributeFlusher interface {
	DirtyAttributeFlusher
	DirtyKind(initial, current interface{}) view.DirtyKind
	// GetDirtyFlusher decides without side effects. It returns nil when
	// nothing must be written.
	GetDirtyFlusher(uc *UpdateContext, owner, initial, current interface{}) (DirtyAttributeFlusher, error)
	Remove(uc *UpdateContext, entity, owner, value interface{}) ([]PostFlushDeleter, error)
	RemoveFromEntity(uc *UpdateContext, entity interface{}) error
}

// PluralConfig binds a plural flusher to its attribute.
type PluralConfig struct {
	Attribute string // view attribute name
	Entity    string // owner entity
	Relation  string // collection relation; empty for correlated attributes

	// OwnerMapping is the embeddable path the attribute lives under,
	// e.g. "address.geo". Empty when it sits directly on the entity.
	OwnerMapping string

	Key     *TypeDescriptor // maps only
	Element *TypeDescriptor

	ViewAccessor   InitialValueAccessor
	EntityAccessor AttributeAccessor

	// CascadeOnly marks associations whose membership is never written;
	// only element changes are flushed.
	CascadeOnly bool

	// ReplaceWithReferenceContents allows writing a collection without
	// knowing its persisted state.
	ReplaceWithReferenceContents bool

	KeyRemoveListener RemoveListener
	RemoveListener    RemoveListener
}

// plan is the decision a partial flusher carries.
type plan struct {
	op       PluralFlushOperation
	rule     string
	upsert   bool
	initial  interface{}
	actions  journal
	elements []elementFlusher
}

// PluralFlusher flushes map, list and set attributes. The configured
// flusher performs a full flush; GetDirtyFlusher returns narrowed copies
// carrying a plan.
type PluralFlusher struct {
	cfg     PluralConfig
	adapter pluralAdapter
	plan    *plan
}

var _ AttributeFlusher = (*PluralFlusher)(nil)

// NewMapFlusher creates the flusher of a map attribute.
func NewMapFlusher(cfg PluralConfig) (*PluralFlusher, error) {
	if cfg.Key == nil {
		return nil, &ConfigurationError{Attribute: cfg.Attribute, Message: "map attributes need a key descriptor"}
	}
	return newPluralFlusher(cfg, mapAdapter{})
}

// NewListFlusher creates the flusher of an indexed list attribute.
func NewListFlusher(cfg PluralConfig) (*PluralFlusher, error) {
	return newPluralFlusher(cfg, collectionAdapter{positional: true})
}

// NewSetFlusher creates the flusher of a set attribute.
func NewSetFlusher(cfg PluralConfig) (*PluralFlusher, error) {
	return newPluralFlusher(cfg, collectionAdapter{positional: false})
}

func newPluralFlusher(cfg PluralConfig, a pluralAdapter) (*PluralFlusher, error) {
	if cfg.Element == nil {
		return nil, &ConfigurationError{Attribute: cfg.Attribute, Message: "an element descriptor is required"}
	}
	if cfg.Key != nil && !a.keyed() {
		return nil, &ConfigurationError{Attribute: cfg.Attribute, Message: fmt.Sprintf("%s attributes have no key", a.kind())}
	}
	if cfg.ViewAccessor == nil {
		return nil, &ConfigurationError{Attribute: cfg.Attribute, Message: "a view accessor is required"}
	}
	return &PluralFlusher{cfg: cfg, adapter: a}, nil
}

// ─────────────────────────────────────────────────────────────
// Plan inspection
// ─────────────────────────────────────────────────────────────

func (f *PluralFlusher) Attribute() string { return f.cfg.Attribute }
func (f *PluralFlusher) Kind() string      { return f.adapter.kind() }

func (f *PluralFlusher) Operation() PluralFlushOperation {
	if f.plan == nil {
		return OperationFull
	}
	return f.plan.op
}

// Fetch reports whether the persisted collection must be loaded first.
func (f *PluralFlusher) Fetch() bool {
	return f.plan == nil || f.plan.op != OperationReplaceOnly
}

func (f *PluralFlusher) IsUpsert() bool { return f.plan != nil && f.plan.upsert }

// Rule names the decision table row that produced the plan.
func (f *PluralFlusher) Rule() string {
	if f.plan == nil {
		return ""
	}
	return f.plan.rule
}

func (f *PluralFlusher) ActionCount() int {
	if f.plan == nil || f.plan.actions == nil {
		return 0
	}
	return f.plan.actions.Len()
}

func (f *PluralFlusher) ElementFlushCount() int {
	if f.plan == nil {
		return 0
	}
	return len(f.plan.elements)
}

// MapActions returns the planned actions of a map flusher.
func (f *PluralFlusher) MapActions() []collection.MapAction {
	if f.plan == nil {
		return nil
	}
	j, _ := f.plan.actions.(mapJournal)
	return j
}

// CollectionActions returns the planned actions of a list or set flusher.
func (f *PluralFlusher) CollectionActions() []collection.CollectionAction {
	if f.plan == nil {
		return nil
	}
	j, _ := f.plan.actions.(collectionJournal)
	return j
}

// ─────────────────────────────────────────────────────────────
// Capabilities
// ─────────────────────────────────────────────────────────────

func (f *PluralFlusher) keyFlush() bool  { return f.cfg.Key != nil && f.cfg.Key.ShouldFlushMutations() }
func (f *PluralFlusher) elemFlush() bool { return f.cfg.Element.ShouldFlushMutations() }

func (f *PluralFlusher) keyEqual(a, b interface{}) bool  { return f.keyEquality()(a, b) }
func (f *PluralFlusher) elemEqual(a, b interface{}) bool { return f.cfg.Element.equality()(a, b) }

func (f *PluralFlusher) keyEquality() Equality {
	if f.cfg.Key == nil {
		return IdentityEquality
	}
	return f.cfg.Key.equality()
}

func (f *PluralFlusher) facts(initial, current interface{}) facts {
	a, el := f.adapter, f.cfg.Element
	x := facts{
		elemFlush:        f.elemFlush(),
		elemDirtyCheck:   el.SupportsDirtyCheck(),
		elemDeepEq:       el.SupportsDeepEqualityCheck(),
		elemEntity:       el.IsJpaEntity(),
		elemIdentifiable: el.IsIdentifiable(),
		keyIdentifiable:  true,
		identical:        view.Same(initial, current),
		currentEmpty:     a.size(current) == 0,
		replaceWithRef:   f.cfg.ReplaceWithReferenceContents,
	}
	if k := f.cfg.Key; k != nil {
		x.keyFlush = f.keyFlush()
		x.keyDirtyCheck = k.SupportsDirtyCheck()
		x.keyDeepEq = k.SupportsDeepEqualityCheck()
		x.keyEntity = k.IsJpaEntity()
		x.keyIdentifiable = k.IsIdentifiable()
	}
	if rec, ok := a.recording(current); ok {
		x.recording = true
		x.hasActions = rec.HasActions()
	}
	ini := initial
	if !x.identical {
		ini = a.unwrap(initial)
	}
	x.initialAbsent = a.absent(ini)
	x.initialEmpty = !x.initialAbsent && a.size(ini) == 0
	return x
}

// ============================================================
// DECISION
// ============================================================

// GetDirtyFlusher implements AttributeFlusher
func (f *PluralFlusher) GetDirtyFlusher(uc *UpdateContext, owner, initial, current interface{}) (DirtyAttributeFlusher, error) {
	if !f.adapter.accepts(initial) || !f.adapter.accepts(current) {
		return nil, &InvariantError{
			Attribute: f.cfg.Attribute,
			Message:   fmt.Sprintf("expected %s values, got %T and %T", f.adapter.kind(), initial, current),
		}
	}

	x := f.facts(initial, current)
	table := changedReferenceTable
	switch {
	case f.cfg.CascadeOnly:
		table = notUpdatableTable
	case x.identical:
		table = sameReferenceTable
	}
	r := decide(table, x)

	ini := initial
	if !x.identical {
		ini = f.adapter.unwrap(initial)
	}
	p := f.resolve(r, owner, ini, current)
	f.logDecision(uc, r, p)
	if p == nil {
		return nil, nil
	}
	return p, nil
}

func (f *PluralFlusher) resolve(r rule, owner, initial, current interface{}) *PluralFlusher {
	switch r.then {
	case skip:
		return nil
	case replaceOnly:
		return f.replace(r, initial, current, false)
	case replaceUpsert:
		return f.replace(r, initial, current, f.isUpsert(owner, current))
	case diffAgainstInitial:
		return f.forNewCollection(r, initial, current)
	case deepEqualDiff:
		return f.deepEqualDiff(r, initial, current)
	case replayRecorded:
		if rec, ok := f.adapter.recording(current); ok {
			return f.forRecording(r, owner, rec)
		}
	case replayWithElements:
		rec, ok := f.adapter.recording(current)
		if !ok || !f.cfg.Element.IsIdentifiable() {
			return f
		}
		ini := rec.initialVersion()
		els, ok := f.elementFlushers(current, ini, rec.actions(), false)
		if !ok {
			return f
		}
		return f.partial(r, OperationReplayAndElement, ini, rec.actions(), els, f.isUpsert(owner, current))
	case elementsOnly:
		return f.elementsOnly(r, current)
	}
	return f
}

func (f *PluralFlusher) partial(r rule, op PluralFlushOperation, initial interface{}, j journal, els []elementFlusher, upsert bool) *PluralFlusher {
	p := *f
	p.plan = &plan{
		op:       op,
		rule:     r.name,
		upsert:   upsert,
		initial:  initial,
		actions:  j,
		elements: els,
	}
	return &p
}

// replay narrows to REPLAY_AND_ELEMENT when elements need flushing.
func (f *PluralFlusher) replay(r rule, initial interface{}, j journal, els []elementFlusher, upsert bool) *PluralFlusher {
	if len(els) > 0 {
		return f.partial(r, OperationReplayAndElement, initial, j, els, upsert)
	}
	return f.partial(r, OperationReplayOnly, initial, j, nil, upsert)
}

func (f *PluralFlusher) replace(r rule, initial, current interface{}, upsert bool) *PluralFlusher {
	els, _ := f.elementFlushers(current, initial, nil, true)
	return f.partial(r, OperationReplaceOnly, initial, f.adapter.replaceAll(current), els, upsert)
}

// forNewCollection diffs the two snapshots. More actions than entries
// means rewriting is cheaper.
func (f *PluralFlusher) forNewCollection(r rule, initial, current interface{}) *PluralFlusher {
	j := f.adapter.diff(f, initial, current)
	if j.Len() == 0 {
		if !f.keyFlush() && !f.elemFlush() {
			return nil
		}
		els, ok := f.elementFlushers(current, initial, j, false)
		if !ok {
			return f
		}
		if len(els) == 0 {
			return nil
		}
		return f.partial(r, OperationReplayAndElement, initial, j, els, false)
	}
	if (f.adapter.absent(initial) && f.cfg.ReplaceWithReferenceContents) || j.Len() > f.adapter.size(current) {
		return f.replace(r, initial, current, false)
	}
	if !f.keyFlush() && !f.elemFlush() {
		return f.partial(r, OperationReplayOnly, initial, j, nil, false)
	}
	els, ok := f.elementFlushers(current, initial, j, false)
	if !ok {
		return f
	}
	return f.replay(r, initial, j, els, false)
}

func (f *PluralFlusher) deepEqualDiff(r rule, initial, current interface{}) *PluralFlusher {
	if !f.cfg.Element.supportsDeepClone() {
		return f
	}
	j := f.adapter.diff(f, initial, current)
	switch {
	case j.Len() == 0:
		return nil
	case j.Len() > f.adapter.size(current):
		return f.replace(r, initial, current, false)
	}
	return f.partial(r, OperationReplayOnly, initial, j, nil, false)
}

func (f *PluralFlusher) forRecording(r rule, owner interface{}, rec recorder) *PluralFlusher {
	ini := rec.initialVersion()
	if rec.HasActions() {
		if f.keyFlush() && !f.cfg.Key.IsIdentifiable() {
			return f
		}
		j := rec.actions()
		upsert := f.isUpsert(owner, rec.value())
		if f.elemFlush() && f.cfg.Element.IsBasic() {
			return f
		}
		if !f.keyFlush() && !f.elemFlush() {
			return f.partial(r, OperationReplayOnly, ini, j, nil, upsert)
		}
		els, ok := f.elementFlushers(rec.value(), ini, j, false)
		if !ok {
			return f
		}
		return f.replay(r, ini, j, els, upsert)
	}
	if !f.keyFlush() && !f.elemFlush() {
		return nil
	}
	if (f.keyFlush() && f.cfg.Key.IsBasic()) || (f.elemFlush() && f.cfg.Element.IsBasic()) {
		return f
	}
	return f.elementsOnly(r, rec.value())
}

func (f *PluralFlusher) elementsOnly(r rule, current interface{}) *PluralFlusher {
	els, ok := f.elementFlushers(current, nil, nil, false)
	if !ok {
		return f
	}
	if len(els) == 0 {
		return nil
	}
	return f.partial(r, OperationReplayAndElement, nil, nil, els, false)
}

func (f *PluralFlusher) logDecision(uc *UpdateContext, r rule, p *PluralFlusher) {
	fields := []zap.Field{
		zap.String("attribute", f.cfg.Attribute),
		zap.String("kind", f.adapter.kind()),
		zap.String("rule", r.name),
		zap.Stringer("outcome", r.then),
	}
	if p != nil {
		fields = append(fields,
			zap.Stringer("operation", p.Operation()),
			zap.Bool("fetch", p.Fetch()),
			zap.Bool("upsert", p.IsUpsert()),
			zap.Int("actions", p.ActionCount()),
			zap.Int("elements", p.ElementFlushCount()),
		)
	}
	loggerOf(uc).Debug("dirty flusher decided", fields...)
}

func loggerOf(uc *UpdateContext) *zap.Logger {
	if uc == nil || uc.logger == nil {
		return zap.NewNop()
	}
	return uc.logger
}

// ============================================================
// UPSERT ELIGIBILITY
// ============================================================

// isUpsert reports whether inserts may fall back to updates: every entry
// must be new, and no ancestor of the owner may be a loaded persistent
// view whose rows could already exist.
func (f *PluralFlusher) isUpsert(owner, current interface{}) bool {
	rec, ok := f.adapter.recording(current)
	if !ok || f.adapter.size(current) != len(rec.addedKeys()) {
		return false
	}
	return upsertEligible(owner, f.cfg.OwnerMapping)
}

// upsertEligible walks the whole owner chain. Every ancestor must be new or
// a reference, and the chain must reach past the embeddable nesting of the
// owner mapping.
func upsertEligible(owner interface{}, ownerMapping string) bool {
	p, ok := owner.(view.Trackable)
	if !ok {
		return false
	}
	depth := 0
	for p != nil {
		if !p.IsNew() && !p.IsReference() {
			return false
		}
		depth++
		p = p.Parent()
	}
	return depth > countEmbeddableParents(ownerMapping)
}

func countEmbeddableParents(ownerMapping string) int {
	if ownerMapping == "" {
		return 0
	}
	n := 1
	for _, c := range ownerMapping {
		if c == '.' {
			n++
		}
	}
	return n
}
