package flush

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

// ============================================================
// TEST HELPERS
// ============================================================

func stringListFlusher(relation string) *PluralFlusher {
	f, err := NewListFlusher(PluralConfig{
		Attribute:      relation,
		Entity:         "User",
		Relation:       relation,
		Element:        stringType,
		ViewAccessor:   viewAccessor(relation),
		EntityAccessor: entityAccessor(relation),
	})
	if err != nil {
		panic(err)
	}
	return f
}

func stringSetFlusher(relation string) *PluralFlusher {
	f, err := NewSetFlusher(PluralConfig{
		Attribute:      relation,
		Entity:         "User",
		Relation:       relation,
		Element:        stringType,
		ViewAccessor:   viewAccessor(relation),
		EntityAccessor: entityAccessor(relation),
	})
	if err != nil {
		panic(err)
	}
	return f
}

func letter(rng *rand.Rand) string { return string(rune('a' + rng.Intn(4))) }

func randomMap(rng *rand.Rand, max int) *collection.OrderedMap {
	m := collection.NewOrderedMap()
	for i := rng.Intn(max + 1); i > 0; i-- {
		m.Put(rng.Intn(10), letter(rng))
	}
	return m
}

func randomList(rng *rand.Rand, max int) *collection.List {
	l := collection.NewList()
	for i := rng.Intn(max + 1); i > 0; i-- {
		l.Add(letter(rng))
	}
	return l
}

func randomSet(rng *rand.Rand) *collection.Set {
	s := collection.NewSet()
	for _, v := range []string{"a", "b", "c", "d", "e", "f"} {
		if rng.Intn(2) == 0 {
			s.Add(v)
		}
	}
	return s
}

func mutateMap(rng *rand.Rand, m *collection.RecordingMap, n int) {
	for ; n > 0; n-- {
		switch rng.Intn(10) {
		case 0:
			m.Clear()
		case 1, 2:
			m.PutAll(
				collection.Entry{Key: rng.Intn(10), Value: letter(rng)},
				collection.Entry{Key: rng.Intn(10), Value: letter(rng)},
			)
		case 3, 4, 5:
			m.Remove(rng.Intn(10))
		default:
			m.Put(rng.Intn(10), letter(rng))
		}
	}
}

func mutateList(rng *rand.Rand, l *collection.RecordingCollection, n int) {
	for ; n > 0; n-- {
		switch op := rng.Intn(10); {
		case op == 0:
			l.Clear()
		case op <= 2 && l.Len() > 0:
			l.RemoveAt(rng.Intn(l.Len()))
		case op <= 4 && l.Len() > 0:
			l.Set(rng.Intn(l.Len()), letter(rng))
		case op <= 6:
			l.Insert(rng.Intn(l.Len()+1), letter(rng))
		case op == 7:
			l.Remove(letter(rng))
		default:
			l.Add(letter(rng))
		}
	}
}

func mutateSet(rng *rand.Rand, s *collection.RecordingCollection, n int) {
	for ; n > 0; n-- {
		v := string(rune('a' + rng.Intn(6)))
		switch rng.Intn(8) {
		case 0:
			s.Clear()
		case 1, 2, 3:
			s.Remove(v)
		default:
			s.Add(v)
		}
	}
}

func goMap(m *collection.OrderedMap) map[interface{}]interface{} {
	out := make(map[interface{}]interface{})
	for _, e := range m.Entries() {
		out[e.Key] = e.Value
	}
	return out
}

// ============================================================
// CONSTRUCTION
// ============================================================

func TestNewPluralFlusher_Configuration(t *testing.T) {
	_, err := NewMapFlusher(PluralConfig{Attribute: "tags", Element: stringType, ViewAccessor: viewAccessor("tags")})
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tags", ce.Attribute)
	assert.Equal(t, "UNSUPPORTED_CONFIGURATION", ce.Code())

	_, err = NewListFlusher(PluralConfig{Attribute: "notes", Key: stringType, Element: stringType, ViewAccessor: viewAccessor("notes")})
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "list attributes have no key")

	_, err = NewSetFlusher(PluralConfig{Attribute: "tags", ViewAccessor: viewAccessor("tags")})
	require.ErrorAs(t, err, &ce)

	_, err = NewSetFlusher(PluralConfig{Attribute: "tags", Element: stringType})
	require.ErrorAs(t, err, &ce)

	f := stringSetFlusher("tags")
	assert.Equal(t, "set", f.Kind())
	assert.Equal(t, OperationFull, f.Operation())
	assert.True(t, f.Fetch())
	assert.Empty(t, f.Rule())
}

func TestGetDirtyFlusher_RejectsForeignContainers(t *testing.T) {
	f := stringMapFlusher("tags")

	_, err := f.GetDirtyFlusher(newContext(newFakeDB()), loadedOwner(1), nil, collection.NewList("a"))

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "INVARIANT_VIOLATION", ie.Code())
}

// ============================================================
// SCENARIOS
// ============================================================

func TestMapFlusher_RemovedAndAddedKeys(t *testing.T) {
	db := newFakeDB()
	f := stringMapFlusher("tags")
	initial := mapOf(1, "a", 2, "b")
	current := mapOf(1, "a", 3, "c")
	owner := loadedOwner(1).attach("tags", initial, current)
	db.seedMap("tags", 1, initial)
	uc := newContext(db)

	assert.Equal(t, view.DirtyMutated, f.DirtyKind(initial, current))

	d, err := f.GetDirtyFlusher(uc, owner, initial, current)
	require.NoError(t, err)
	p := asPlural(d)
	require.NotNil(t, p)
	assert.Equal(t, OperationReplayOnly, p.Operation())
	assert.Equal(t, "immutable", p.Rule())
	assert.True(t, p.Fetch())
	assert.False(t, p.IsUpsert())

	actions := p.MapActions()
	require.Len(t, actions, 2)
	assert.Equal(t, &collection.MapRemove{Key: 2, Old: "b"}, actions[0])
	assert.Equal(t, &collection.MapPut{Key: 3, Value: "c"}, actions[1])

	fused := collection.FuseMapActions(initial, actions, f.keyEquality())
	assert.Equal(t, []interface{}{2}, fused.RemovedKeys())
	assert.Equal(t, []collection.Entry{{Key: 3, Value: "c"}}, fused.Added())
	assert.Empty(t, fused.Replaced())

	require.NoError(t, d.FlushQuery(uc, owner, current))
	assert.Equal(t, []string{"DELETE tags 1 IN [2]", "INSERT tags 1 3=c"}, db.statements())
	assert.Equal(t, map[interface{}]interface{}{1: "a", 3: "c"}, db.mapState("tags", 1))

	// the attribute now holds a clean recording that is its own baseline
	rec, ok := owner.attrs["tags"].(*collection.RecordingMap)
	require.True(t, ok)
	assert.False(t, rec.HasActions())
	assert.Same(t, owner, rec.Parent())
	iv, _ := owner.InitialValue("tags")
	assert.Same(t, rec, iv)

	again, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestMapFlusher_ReplacedValue(t *testing.T) {
	db := newFakeDB()
	listener := &recordingListener{}
	f, err := NewMapFlusher(PluralConfig{
		Attribute:      "tags",
		Entity:         "User",
		Relation:       "tags",
		Key:            stringType,
		Element:        stringType,
		ViewAccessor:   viewAccessor("tags"),
		RemoveListener: listener,
	})
	require.NoError(t, err)
	initial, current := mapOf(1, "a"), mapOf(1, "b")
	owner := loadedOwner(1).attach("tags", initial, current)
	db.seedMap("tags", 1, initial)
	uc := newContext(db)

	assert.Equal(t, view.DirtyMutated, f.DirtyKind(initial, current))
	d, err := f.GetDirtyFlusher(uc, owner, initial, current)
	require.NoError(t, err)
	p := asPlural(d)
	require.NotNil(t, p)
	assert.Equal(t, OperationReplayOnly, p.Operation())
	assert.Equal(t, []collection.MapAction{&collection.MapPut{Key: 1, Value: "b", Old: "a", HadOld: true}}, p.MapActions())

	require.NoError(t, d.FlushQuery(uc, owner, current))
	assert.Equal(t, []string{"UPDATE tags 1 1=b"}, db.statements())
	assert.Equal(t, map[interface{}]interface{}{1: "b"}, db.mapState("tags", 1))
	assert.Equal(t, []interface{}{"a"}, listener.viewRemoved)
}

func TestMapFlusher_EqualKeyOtherInstanceIsClean(t *testing.T) {
	db := newFakeDB()
	f, err := NewMapFlusher(PluralConfig{
		Attribute:    "labels",
		Entity:       "User",
		Relation:     "labels",
		Key:          SubviewDescriptor(newFakeMapper(), ReadOnly()),
		Element:      stringType,
		ViewAccessor: viewAccessor("labels"),
	})
	require.NoError(t, err)
	loaded := &itemView{State: view.Loaded(10)}
	reloaded := &itemView{State: view.Loaded(10)}
	initial, current := mapOf(loaded, "x"), mapOf(reloaded, "x")
	owner := loadedOwner(1).attach("labels", initial, current)
	uc := newContext(db)

	assert.Equal(t, view.DirtyNone, f.DirtyKind(initial, current))
	d, err := f.GetDirtyFlusher(uc, owner, initial, current)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Empty(t, db.statements())
}

func TestMapFlusher_NilToEmptyIsNoop(t *testing.T) {
	f := stringMapFlusher("tags")
	uc := newContext(newFakeDB())

	for _, initial := range []interface{}{nil, (*collection.OrderedMap)(nil), collection.NewOrderedMap()} {
		d, err := f.GetDirtyFlusher(uc, loadedOwner(1), initial, collection.NewOrderedMap())
		require.NoError(t, err)
		assert.True(t, d == nil, "initial %v", initial)
	}
}

func TestMapFlusher_RecordingWithoutActionsIsClean(t *testing.T) {
	f := stringMapFlusher("tags")
	rec := recordingOf(mapOf(1, "a", 2, "b"))
	owner := loadedOwner(1).attach("tags", rec, rec)

	assert.Equal(t, view.DirtyNone, f.DirtyKind(rec, rec))
	assert.Equal(t, view.DirtyNone, f.DirtyKind(mapOf(1, "a", 2, "b"), rec))

	d, err := f.GetDirtyFlusher(newContext(newFakeDB()), owner, rec, rec)
	require.NoError(t, err)
	assert.Nil(t, d)

	rec.Put(2, "b")
	assert.False(t, rec.HasActions(), "putting the same value is not recorded")
}

func TestGetDirtyFlusher_SameValueTwiceIsNoop(t *testing.T) {
	uc := newContext(newFakeDB())
	owner := loadedOwner(1)
	cases := map[string]struct {
		f *PluralFlusher
		v interface{}
	}{
		"map":           {stringMapFlusher("tags"), mapOf(1, "a")},
		"list":          {stringListFlusher("notes"), collection.NewList("a", "b")},
		"set":           {stringSetFlusher("tags"), collection.NewSet("a")},
		"recorded map":  {stringMapFlusher("tags"), recordingOf(mapOf(1, "a"))},
		"recorded list": {stringListFlusher("notes"), collection.NewRecordingCollection(collection.NewList("a"))},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, view.DirtyNone, c.f.DirtyKind(c.v, c.v))
			d, err := c.f.GetDirtyFlusher(uc, owner, c.v, c.v)
			require.NoError(t, err)
			assert.Nil(t, d)
		})
	}
}

// ============================================================
// PROPERTIES
// ============================================================

func TestFlusher_DiffLargerThanCollectionReplaces(t *testing.T) {
	tests := []struct {
		name    string
		flusher *PluralFlusher
		seed    int64
		pair    func(rng *rand.Rand) (initial, current interface{})
	}{
		{
			name:    "map",
			flusher: stringMapFlusher("tags"),
			seed:    7,
			pair: func(rng *rand.Rand) (interface{}, interface{}) {
				return randomMap(rng, 8), randomMap(rng, 8)
			},
		},
		{
			name:    "list",
			flusher: stringListFlusher("notes"),
			seed:    8,
			pair: func(rng *rand.Rand) (interface{}, interface{}) {
				return randomList(rng, 8), randomList(rng, 8)
			},
		},
		{
			name:    "set",
			flusher: stringSetFlusher("tags"),
			seed:    9,
			pair: func(rng *rand.Rand) (interface{}, interface{}) {
				return randomSet(rng), randomSet(rng)
			},
		},
		{
			// most initial entries are dropped
			name:    "map shrinking",
			flusher: stringMapFlusher("tags"),
			seed:    10,
			pair: func(rng *rand.Rand) (interface{}, interface{}) {
				initial := randomMap(rng, 8)
				current := initial.Clone()
				for _, k := range initial.Keys() {
					if rng.Intn(4) != 0 {
						current.Remove(k)
					}
				}
				return initial, current
			},
		},
		{
			name:    "list shrinking",
			flusher: stringListFlusher("notes"),
			seed:    12,
			pair: func(rng *rand.Rand) (interface{}, interface{}) {
				initial := randomList(rng, 8)
				return initial, collection.NewList(initial.Items()[:rng.Intn(initial.Len()+1)]...)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(tt.seed))
			f := tt.flusher
			uc := newContext(newFakeDB())

			for i := 0; i < 300; i++ {
				initial, current := tt.pair(rng)
				d, err := f.GetDirtyFlusher(uc, loadedOwner(1), initial, current)
				require.NoError(t, err)
				p := asPlural(d)
				diff := f.adapter.diff(f, initial, current)
				size := f.adapter.size(current)

				switch {
				case diff.Len() == 0:
					assert.Nil(t, p, "identical contents %v", current)
				case f.adapter.size(initial) == 0 || diff.Len() > size:
					require.NotNil(t, p)
					assert.Equal(t, OperationReplaceOnly, p.Operation(), "%v -> %v", initial, current)
					assert.False(t, p.Fetch())
				default:
					require.NotNil(t, p)
					assert.Equal(t, OperationReplayOnly, p.Operation(), "%v -> %v", initial, current)
					assert.Equal(t, diff.Len(), p.ActionCount())
				}
			}
		})
	}
}

func TestDiff_ReplayReproducesCurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	mf := stringMapFlusher("tags")
	for i := 0; i < 300; i++ {
		initial, current := randomMap(rng, 6), randomMap(rng, 6)
		target := initial.Clone()
		mf.adapter.diff(mf, initial, current).replay(target, collection.Hooks{})
		assert.Equal(t, goMap(current), goMap(target))
	}

	lf := stringListFlusher("notes")
	for i := 0; i < 300; i++ {
		initial, current := randomList(rng, 6), randomList(rng, 6)
		target := initial.Clone()
		lf.adapter.diff(lf, initial, current).replay(target, collection.Hooks{})
		assert.Equal(t, current.Items(), target.Items())
	}

	sf := stringSetFlusher("tags")
	for i := 0; i < 300; i++ {
		initial, current := randomSet(rng), randomSet(rng)
		target := initial.Clone()
		sf.adapter.diff(sf, initial, current).replay(target, collection.Hooks{})
		assert.ElementsMatch(t, current.Items(), target.Items())
	}
}

func TestFusedJournal_MatchesSequentialReplay(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	f := stringMapFlusher("tags")

	for i := 0; i < 300; i++ {
		initial := randomMap(rng, 6)
		rec := recordingOf(initial.Clone())
		mutateMap(rng, rec, 1+rng.Intn(8))

		sequential := initial.Clone()
		mapJournal(rec.Actions()).replay(sequential, collection.Hooks{})
		fusedTarget := initial.Clone()
		fused := mapJournal(rec.Actions()).fuse(initial, f.keyEquality())
		fused.applyTo(fusedTarget, collection.Hooks{})

		assert.Equal(t, goMap(rec.Delegate()), goMap(sequential))
		assert.Equal(t, goMap(rec.Delegate()), goMap(fusedTarget))
		assert.LessOrEqual(t, fused.OperationCount(), initial.Len()+rec.Len())
	}
}

func TestMapFlusher_RecordedChangesReachTheTable(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		db := newFakeDB()
		f := stringMapFlusher("tags")
		initial := randomMap(rng, 6)
		db.seedMap("tags", 1, initial)
		rec := recordingOf(initial.Clone())
		owner := loadedOwner(1).attach("tags", rec, rec)
		rec.SetParent(owner)
		mutateMap(rng, rec, 1+rng.Intn(6))
		uc := newContext(db)

		d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
		require.NoError(t, err)
		if d == nil {
			assert.False(t, rec.HasActions())
		} else {
			require.NoError(t, d.FlushQuery(uc, owner, rec))
		}
		require.Equal(t, goMap(rec.Delegate()), db.mapState("tags", 1), "statements %v", db.statements())

		again, err := f.GetDirtyFlusher(uc, owner, rec, rec)
		require.NoError(t, err)
		assert.Nil(t, again)
	}
}

func TestListFlusher_RecordedChangesReachTheTable(t *testing.T) {
	rng := rand.New(rand.NewSource(43))

	for i := 0; i < 200; i++ {
		db := newFakeDB()
		f := stringListFlusher("notes")
		initial := randomList(rng, 6)
		db.seedList("notes", 1, initial.Items()...)
		rec := collection.NewRecordingCollection(initial.Clone())
		owner := loadedOwner(1).attach("notes", rec, rec)
		mutateList(rng, rec, 1+rng.Intn(6))
		uc := newContext(db)

		d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
		require.NoError(t, err)
		if d != nil {
			require.NoError(t, d.FlushQuery(uc, owner, rec))
		}
		require.Equal(t, rec.Items(), db.listState("notes", 1), "statements %v", db.statements())
		assert.False(t, rec.HasActions())
	}
}

func TestSetFlusher_RecordedChangesReachTheTable(t *testing.T) {
	rng := rand.New(rand.NewSource(44))

	for i := 0; i < 200; i++ {
		db := newFakeDB()
		f := stringSetFlusher("tags")
		initial := randomSet(rng)
		db.seedSet("tags", 1, initial.Items()...)
		rec := collection.NewRecordingCollection(initial.Clone())
		owner := loadedOwner(1).attach("tags", rec, rec)
		mutateSet(rng, rec, 1+rng.Intn(6))
		uc := newContext(db)

		d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
		require.NoError(t, err)
		if d != nil {
			require.NoError(t, d.FlushQuery(uc, owner, rec))
		}
		require.ElementsMatch(t, rec.Items(), db.setState("tags", 1), "statements %v", db.statements())
	}
}

func TestMapFlusher_ReplacedContainerReachesTheTable(t *testing.T) {
	rng := rand.New(rand.NewSource(45))

	for i := 0; i < 200; i++ {
		db := newFakeDB()
		f := stringMapFlusher("tags")
		initial, current := randomMap(rng, 6), randomMap(rng, 6)
		db.seedMap("tags", 1, initial)
		owner := loadedOwner(1).attach("tags", initial, current)
		uc := newContext(db)

		d, err := f.GetDirtyFlusher(uc, owner, initial, current)
		require.NoError(t, err)
		if d != nil {
			require.NoError(t, d.FlushQuery(uc, owner, current))
		}
		require.Equal(t, goMap(current), db.mapState("tags", 1), "statements %v", db.statements())
	}
}

func TestListFlusher_TargetedStatements(t *testing.T) {
	db := newFakeDB()
	f := stringListFlusher("notes")
	db.seedList("notes", 1, "a", "b", "c")
	rec := collection.NewRecordingCollection(collection.NewList("a", "b", "c"))
	owner := loadedOwner(1).attach("notes", rec, rec)
	uc := newContext(db)

	rec.Set(1, "x")
	rec.RemoveAt(2)

	d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	require.NoError(t, d.FlushQuery(uc, owner, rec))
	assert.Equal(t, []string{"DELETE notes 1 IN [2]", "UPDATE notes 1 1=x"}, db.statements())
	assert.Equal(t, []interface{}{"a", "x"}, db.listState("notes", 1))
}

func TestMapFlusher_ClearFirstRewritesEverything(t *testing.T) {
	db := newFakeDB()
	f := stringMapFlusher("tags")
	db.seedMap("tags", 1, mapOf(1, "a", 2, "b"))
	rec := recordingOf(mapOf(1, "a", 2, "b"))
	owner := loadedOwner(1).attach("tags", rec, rec)
	uc := newContext(db)

	rec.Clear()
	rec.Put(3, "c")

	d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	require.NoError(t, d.FlushQuery(uc, owner, rec))
	assert.Equal(t, []string{"DELETE tags 1", "INSERT tags 1 3=c"}, db.statements())
	assert.Equal(t, map[interface{}]interface{}{3: "c"}, db.mapState("tags", 1))
}

// ============================================================
// UPSERT ELIGIBILITY
// ============================================================

func TestCountEmbeddableParents(t *testing.T) {
	assert.Equal(t, 0, countEmbeddableParents(""))
	assert.Equal(t, 1, countEmbeddableParents("address"))
	assert.Equal(t, 3, countEmbeddableParents("address.geo.point"))
}

func TestUpsertEligible(t *testing.T) {
	loaded := loadedOwner(1)
	created := newOwner(2)

	ref := &ownerView{State: view.Reference(3)}
	ref.SetParent(created)

	underLoaded := newOwner(4)
	underLoaded.SetParent(loaded)

	deep := newOwner(5)
	mid := newOwner(6)
	deep.SetParent(mid)
	mid.SetParent(newOwner(7))

	tests := []struct {
		name    string
		owner   interface{}
		mapping string
		want    bool
	}{
		{"new owner", created, "", true},
		{"loaded owner", loaded, "", false},
		{"new owner under a loaded parent", underLoaded, "", false},
		{"reference under a new parent", ref, "", true},
		{"embeddable deeper than the chain", created, "address.geo", false},
		{"chain deeper than the embeddable", deep, "address.geo", true},
		{"not trackable", "owner", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, upsertEligible(tt.owner, tt.mapping))
		})
	}
}

func TestUpsertEligible_AnyLoadedAncestorForbids(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 500; i++ {
		depth := 1 + rng.Intn(5)
		var chain []*ownerView
		allFresh := true
		for j := 0; j < depth; j++ {
			var v *ownerView
			switch rng.Intn(3) {
			case 0:
				v = loadedOwner(j)
				allFresh = false
			case 1:
				v = newOwner(j)
			default:
				v = &ownerView{State: view.Reference(j)}
			}
			if j > 0 {
				chain[j-1].SetParent(v)
			}
			chain = append(chain, v)
		}
		mapping := []string{"", "a", "a.b"}[rng.Intn(3)]

		want := allFresh && depth > countEmbeddableParents(mapping)
		assert.Equal(t, want, upsertEligible(chain[0], mapping))
	}
}

func TestMapFlusher_UpsertForNewOwner(t *testing.T) {
	db := newFakeDB()
	f := stringMapFlusher("tags")
	rec := recordingOf(collection.NewOrderedMap())
	owner := newOwner(1).attach("tags", rec, rec)
	rec.Put(1, "a")
	// a row another writer already created
	db.seed("tags", 1, tableRow(1, "old"))
	uc := newContext(db)

	d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	p := asPlural(d)
	require.NotNil(t, p)
	assert.True(t, p.IsUpsert())
	assert.Equal(t, OperationReplayOnly, p.Operation())

	require.NoError(t, d.FlushQuery(uc, owner, rec))
	assert.Equal(t, []string{"INSERT tags 1 1=a SKIPPED", "UPDATE tags 1 1=a"}, db.statements())
	assert.Equal(t, map[interface{}]interface{}{1: "a"}, db.mapState("tags", 1))
}

func TestMapFlusher_NoUpsertWhenEntriesPreexist(t *testing.T) {
	f := stringMapFlusher("tags")
	uc := newContext(newFakeDB())

	rec := recordingOf(mapOf(1, "a"))
	owner := newOwner(1).attach("tags", rec, rec)
	rec.Put(2, "b")
	d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	assert.False(t, asPlural(d).IsUpsert())

	rec = recordingOf(collection.NewOrderedMap())
	owner = loadedOwner(2).attach("tags", rec, rec)
	rec.Put(1, "a")
	d, err = f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	assert.False(t, asPlural(d).IsUpsert())
}
