package flush

import (
	"context"
	"fmt"
	"sort"

	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/chameleon-db/entityview/pkg/view"
)

// ============================================================
// IN-MEMORY COLLECTION TABLES
// ============================================================

// fakeDB stores collection rows per relation and logs every statement.
type fakeDB struct {
	rows    map[string][]engine.CollectionRow
	updates []ownerUpdate
	log     []string
	fail    error
}

type ownerUpdate struct {
	Entity string
	Sets   map[string]interface{}
	Filter map[string]interface{}
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string][]engine.CollectionRow)}
}

func tableRow(key, element interface{}) engine.CollectionRow {
	return engine.CollectionRow{Key: key, Element: element}
}

func (db *fakeDB) seed(relation string, owner interface{}, rows ...engine.CollectionRow) {
	for _, r := range rows {
		r.Owner = owner
		db.rows[relation] = append(db.rows[relation], r)
	}
}

// seedMap stores m as the rows of owner.
func (db *fakeDB) seedMap(relation string, owner interface{}, m *collection.OrderedMap) {
	for _, e := range m.Entries() {
		db.seed(relation, owner, engine.CollectionRow{Key: e.Key, Element: e.Value})
	}
}

func (db *fakeDB) seedList(relation string, owner interface{}, items ...interface{}) {
	for i, v := range items {
		db.seed(relation, owner, engine.CollectionRow{Key: i, Element: v})
	}
}

func (db *fakeDB) seedSet(relation string, owner interface{}, items ...interface{}) {
	for _, v := range items {
		db.seed(relation, owner, engine.CollectionRow{Element: v})
	}
}

// mapState returns the rows of owner as key → element.
func (db *fakeDB) mapState(relation string, owner interface{}) map[interface{}]interface{} {
	out := make(map[interface{}]interface{})
	for _, r := range db.rows[relation] {
		if view.Equal(r.Owner, owner) {
			out[r.Key] = r.Element
		}
	}
	return out
}

// listState returns the elements of owner ordered by index.
func (db *fakeDB) listState(relation string, owner interface{}) []interface{} {
	var rows []engine.CollectionRow
	for _, r := range db.rows[relation] {
		if view.Equal(r.Owner, owner) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key.(int) < rows[j].Key.(int) })
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Element)
	}
	return out
}

// setState returns the elements of owner in insertion order.
func (db *fakeDB) setState(relation string, owner interface{}) []interface{} {
	var out []interface{}
	for _, r := range db.rows[relation] {
		if view.Equal(r.Owner, owner) {
			out = append(out, r.Element)
		}
	}
	return out
}

func (db *fakeDB) statements() []string { return append([]string(nil), db.log...) }
func (db *fakeDB) resetLog()            { db.log = nil }

func address(r engine.CollectionRow) interface{} {
	if r.Key != nil {
		return r.Key
	}
	return r.Element
}

func (db *fakeDB) Update(entity string) engine.UpdateMutation {
	return &fakeOwnerUpdate{db: db, u: ownerUpdate{Entity: entity, Sets: map[string]interface{}{}, Filter: map[string]interface{}{}}}
}

func (db *fakeDB) DeleteCollection(entity, relation string) engine.CollectionDeleteMutation {
	return &fakeDelete{db: db, relation: relation}
}

func (db *fakeDB) InsertCollection(entity, relation string) engine.CollectionInsertMutation {
	return &fakeInsert{db: db, relation: relation}
}

func (db *fakeDB) UpdateCollection(entity, relation string) engine.CollectionUpdateMutation {
	return &fakeUpdate{db: db, relation: relation}
}

func (db *fakeDB) SelectCollection(entity, relation string) engine.CollectionSelectMutation {
	return &fakeSelect{db: db, relation: relation}
}

var _ QueryFactory = (*fakeDB)(nil)

type fakeOwnerUpdate struct {
	db *fakeDB
	u  ownerUpdate
}

func (m *fakeOwnerUpdate) Set(field string, value interface{}) engine.UpdateMutation {
	m.u.Sets[field] = value
	return m
}

func (m *fakeOwnerUpdate) Filter(field, op string, value interface{}) engine.UpdateMutation {
	m.u.Filter[field] = value
	return m
}

func (m *fakeOwnerUpdate) Debug() engine.UpdateMutation { return m }

func (m *fakeOwnerUpdate) Execute(ctx context.Context) (*engine.UpdateResult, error) {
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	m.db.updates = append(m.db.updates, m.u)
	m.db.log = append(m.db.log, fmt.Sprintf("UPDATE %s %v", m.u.Entity, m.u.Sets))
	return &engine.UpdateResult{Affected: 1}, nil
}

type fakeDelete struct {
	db       *fakeDB
	relation string
	owner    interface{}
	keys     []interface{}
	filtered bool
}

func (m *fakeDelete) Owner(id interface{}) engine.CollectionDeleteMutation {
	m.owner = id
	return m
}

func (m *fakeDelete) KeysIn(keys ...interface{}) engine.CollectionDeleteMutation {
	m.keys = keys
	m.filtered = true
	return m
}

func (m *fakeDelete) Debug() engine.CollectionDeleteMutation { return m }

func (m *fakeDelete) run() ([]engine.CollectionRow, error) {
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	var kept, removed []engine.CollectionRow
	for _, r := range m.db.rows[m.relation] {
		if view.Equal(r.Owner, m.owner) && (!m.filtered || containsEqual(m.keys, address(r))) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	m.db.rows[m.relation] = kept
	if m.filtered {
		m.db.log = append(m.db.log, fmt.Sprintf("DELETE %s %v IN %v", m.relation, m.owner, m.keys))
	} else {
		m.db.log = append(m.db.log, fmt.Sprintf("DELETE %s %v", m.relation, m.owner))
	}
	return removed, nil
}

func (m *fakeDelete) Execute(ctx context.Context) (*engine.DeleteResult, error) {
	removed, err := m.run()
	if err != nil {
		return nil, err
	}
	return &engine.DeleteResult{Affected: len(removed)}, nil
}

func (m *fakeDelete) ExecuteReturning(ctx context.Context) (*engine.CollectionResult, error) {
	removed, err := m.run()
	if err != nil {
		return nil, err
	}
	m.db.log[len(m.db.log)-1] += " RETURNING"
	return &engine.CollectionResult{Rows: removed, Affected: len(removed)}, nil
}

type fakeInsert struct {
	db           *fakeDB
	relation     string
	row          engine.CollectionRow
	onlyIfAbsent bool
}

func (m *fakeInsert) Owner(id interface{}) engine.CollectionInsertMutation {
	m.row.Owner = id
	return m
}

func (m *fakeInsert) Key(key interface{}) engine.CollectionInsertMutation {
	m.row.Key = key
	return m
}

func (m *fakeInsert) Element(element interface{}) engine.CollectionInsertMutation {
	m.row.Element = element
	return m
}

func (m *fakeInsert) OnlyIfAbsent() engine.CollectionInsertMutation {
	m.onlyIfAbsent = true
	return m
}

func (m *fakeInsert) Debug() engine.CollectionInsertMutation { return m }

func (m *fakeInsert) Execute(ctx context.Context) (*engine.InsertResult, error) {
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	for _, r := range m.db.rows[m.relation] {
		if view.Equal(r.Owner, m.row.Owner) && view.Equal(address(r), address(m.row)) {
			if m.onlyIfAbsent {
				m.db.log = append(m.db.log, fmt.Sprintf("INSERT %s %v %v=%v SKIPPED", m.relation, m.row.Owner, m.row.Key, m.row.Element))
				return &engine.InsertResult{Affected: 0}, nil
			}
			return nil, fmt.Errorf("duplicate key %v for owner %v in %s", address(m.row), m.row.Owner, m.relation)
		}
	}
	m.db.rows[m.relation] = append(m.db.rows[m.relation], m.row)
	m.db.log = append(m.db.log, fmt.Sprintf("INSERT %s %v %v=%v", m.relation, m.row.Owner, m.row.Key, m.row.Element))
	return &engine.InsertResult{Affected: 1}, nil
}

type fakeUpdate struct {
	db       *fakeDB
	relation string
	row      engine.CollectionRow
}

func (m *fakeUpdate) Owner(id interface{}) engine.CollectionUpdateMutation {
	m.row.Owner = id
	return m
}

func (m *fakeUpdate) Key(key interface{}) engine.CollectionUpdateMutation {
	m.row.Key = key
	return m
}

func (m *fakeUpdate) Element(element interface{}) engine.CollectionUpdateMutation {
	m.row.Element = element
	return m
}

func (m *fakeUpdate) Debug() engine.CollectionUpdateMutation { return m }

func (m *fakeUpdate) Execute(ctx context.Context) (*engine.UpdateResult, error) {
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	n := 0
	rows := m.db.rows[m.relation]
	for i, r := range rows {
		if view.Equal(r.Owner, m.row.Owner) && view.Equal(r.Key, m.row.Key) {
			rows[i].Element = m.row.Element
			n++
		}
	}
	m.db.log = append(m.db.log, fmt.Sprintf("UPDATE %s %v %v=%v", m.relation, m.row.Owner, m.row.Key, m.row.Element))
	return &engine.UpdateResult{Affected: n}, nil
}

type fakeSelect struct {
	db       *fakeDB
	relation string
	owner    interface{}
}

func (m *fakeSelect) Owner(id interface{}) engine.CollectionSelectMutation {
	m.owner = id
	return m
}

func (m *fakeSelect) Debug() engine.CollectionSelectMutation { return m }

func (m *fakeSelect) Execute(ctx context.Context) (*engine.CollectionResult, error) {
	var out []engine.CollectionRow
	for _, r := range m.db.rows[m.relation] {
		if view.Equal(r.Owner, m.owner) {
			out = append(out, r)
		}
	}
	m.db.log = append(m.db.log, fmt.Sprintf("SELECT %s %v", m.relation, m.owner))
	return &engine.CollectionResult{Rows: out}, nil
}

func containsEqual(values []interface{}, v interface{}) bool {
	for _, x := range values {
		if view.Equal(x, v) {
			return true
		}
	}
	return false
}

// ============================================================
// VIEWS, ENTITIES AND CAPABILITIES
// ============================================================

// ownerView is a trackable view holding named attributes.
type ownerView struct {
	view.State
	attrs map[string]interface{}
}

func loadedOwner(id interface{}) *ownerView {
	return &ownerView{State: view.Loaded(id), attrs: map[string]interface{}{}}
}

func newOwner(id interface{}) *ownerView {
	return &ownerView{State: view.Created(id), attrs: map[string]interface{}{}}
}

// attach stores value as both the initial and the current value.
func (v *ownerView) attach(name string, initial, current interface{}) *ownerView {
	v.SetInitialValue(name, initial)
	v.attrs[name] = current
	return v
}

func viewAccessor(name string) Accessor {
	return Accessor{
		Name: name,
		Get:  func(o interface{}) interface{} { return o.(*ownerView).attrs[name] },
		Set:  func(o, v interface{}) { o.(*ownerView).attrs[name] = v },
	}
}

// entity is a plain persistence object.
type entity struct {
	ID     interface{}
	Name   string
	fields map[string]interface{}
	saved  bool
}

func newEntity(id interface{}, name string) *entity {
	return &entity{ID: id, Name: name, fields: map[string]interface{}{}, saved: true}
}

func (e *entity) String() string { return fmt.Sprintf("entity(%v)", e.ID) }

func entityAccessor(name string) Accessor {
	return Accessor{
		Name: name,
		Get:  func(o interface{}) interface{} { return o.(*entity).fields[name] },
		Set:  func(o, v interface{}) { o.(*entity).fields[name] = v },
	}
}

func entityID(e interface{}) interface{} { return e.(*entity).ID }

// entityType reports unsaved entities as needing persist.
var entityType = view.MutableType{Persist: func(v interface{}) bool { return !v.(*entity).saved }}

// itemView is a nested identifiable subview.
type itemView struct {
	view.State
	Name string
}

func (v *itemView) String() string { return fmt.Sprintf("item(%v)", v.ViewID()) }

// fakeMapper turns itemViews into entities, creating them for new views.
type fakeMapper struct {
	entities map[interface{}]*entity
	applied  []interface{}
	fail     error
}

func newFakeMapper() *fakeMapper {
	return &fakeMapper{entities: map[interface{}]*entity{}}
}

func (m *fakeMapper) ApplyToEntity(uc *UpdateContext, e, v interface{}) (interface{}, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	iv := v.(*itemView)
	m.applied = append(m.applied, iv.ViewID())
	ent, ok := m.entities[iv.ViewID()]
	if !ok {
		ent = newEntity(iv.ViewID(), iv.Name)
		m.entities[iv.ViewID()] = ent
	}
	ent.Name = iv.Name
	iv.MarkFlushed()
	return ent, nil
}

func (m *fakeMapper) ViewID(v interface{}) interface{}   { return view.IDOf(v) }
func (m *fakeMapper) EntityID(e interface{}) interface{} { return e.(*entity).ID }
func (m *fakeMapper) DirtyChecker() DirtyChecker         { return nil }
func (m *fakeMapper) Cascades(v interface{}) bool        { return true }

// fakeEntityManager records persist and merge calls. Merge returns the
// managed copy registered for an id, when there is one.
type fakeEntityManager struct {
	persisted []interface{}
	merged    []interface{}
	managed   map[interface{}]*entity
}

func (em *fakeEntityManager) Persist(ctx context.Context, e interface{}) error {
	em.persisted = append(em.persisted, e)
	if ent, ok := e.(*entity); ok {
		ent.saved = true
	}
	return nil
}

func (em *fakeEntityManager) Merge(ctx context.Context, e interface{}) (interface{}, error) {
	em.merged = append(em.merged, e)
	if m, ok := em.managed[entityID(e)]; ok {
		return m, nil
	}
	return e, nil
}

// recordingListener remembers what it was told about.
type recordingListener struct {
	viewRemoved   []interface{}
	entityRemoved []interface{}
}

func (l *recordingListener) OnCollectionRemove(uc *UpdateContext, v interface{}) error {
	l.viewRemoved = append(l.viewRemoved, v)
	return nil
}

func (l *recordingListener) OnEntityCollectionRemove(uc *UpdateContext, v interface{}) error {
	l.entityRemoved = append(l.entityRemoved, v)
	return nil
}

// fakeRemover records cascading deletes.
type fakeRemover struct {
	removed []interface{}
	ids     []interface{}
}

func (r *fakeRemover) RemoveElement(uc *UpdateContext, el interface{}) error {
	r.removed = append(r.removed, el)
	return nil
}

func (r *fakeRemover) RemoveByID(uc *UpdateContext, id interface{}) error {
	r.ids = append(r.ids, id)
	return nil
}

// ============================================================
// HELPERS
// ============================================================

var stringType = BasicDescriptor(view.ImmutableType{})

func mapOf(kv ...interface{}) *collection.OrderedMap {
	m := collection.NewOrderedMap()
	for i := 0; i < len(kv); i += 2 {
		m.Put(kv[i], kv[i+1])
	}
	return m
}

func recordingOf(m *collection.OrderedMap) *collection.RecordingMap {
	return collection.NewRecordingMap(m)
}

func newContext(db QueryFactory, opts ...Option) *UpdateContext {
	return NewUpdateContext(context.Background(), db, opts...)
}

func stringMapFlusher(relation string) *PluralFlusher {
	f, err := NewMapFlusher(PluralConfig{
		Attribute:      relation,
		Entity:         "User",
		Relation:       relation,
		Key:            stringType,
		Element:        stringType,
		ViewAccessor:   viewAccessor(relation),
		EntityAccessor: entityAccessor(relation),
	})
	if err != nil {
		panic(err)
	}
	return f
}

// asPlural unwraps a decided flusher for inspection.
func asPlural(f DirtyAttributeFlusher) *PluralFlusher {
	p, _ := f.(*PluralFlusher)
	return p
}
