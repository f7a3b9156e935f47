package flush

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

func subviewListFlusher(relation string, mapper *fakeMapper, listener RemoveListener) *PluralFlusher {
	f, err := NewListFlusher(PluralConfig{
		Attribute:      relation,
		Entity:         "User",
		Relation:       relation,
		Element:        SubviewDescriptor(mapper),
		ViewAccessor:   viewAccessor(relation),
		EntityAccessor: entityAccessor(relation),
		RemoveListener: listener,
	})
	if err != nil {
		panic(err)
	}
	return f
}

func TestFlushEntity_RemovedSubviewReportsItsEntity(t *testing.T) {
	mapper := newFakeMapper()
	listener := &recordingListener{}
	f := subviewListFlusher("items", mapper, listener)

	entA, entB := newEntity(10, "a"), newEntity(11, "b")
	mapper.entities[10], mapper.entities[11] = entA, entB
	a := &itemView{State: view.Loaded(10), Name: "a"}
	b := &itemView{State: view.Loaded(11), Name: "b"}
	rec := collection.NewRecordingCollection(collection.NewList(a, b))
	owner := loadedOwner(1).attach("items", rec, rec)
	target := newEntity(1, "owner")
	target.fields["items"] = collection.NewList(entA, entB)
	uc := newContext(nil, WithStrategy(StrategyEntity))

	rec.Remove(b)

	d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	p := asPlural(d)
	require.NotNil(t, p)
	assert.Equal(t, OperationReplayOnly, p.Operation())

	changed, err := d.FlushEntity(uc, target, owner, rec)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []interface{}{entA}, target.fields["items"].(*collection.List).Items())
	assert.Equal(t, []interface{}{entB}, listener.entityRemoved)
	assert.Empty(t, listener.viewRemoved)
	assert.False(t, rec.HasActions())
}

func TestFlushEntity_FullFlushNotifiesKeysAndElements(t *testing.T) {
	listener := &recordingListener{}
	f, err := NewMapFlusher(PluralConfig{
		Attribute:         "tags",
		Entity:            "User",
		Key:               stringType,
		Element:           stringType,
		ViewAccessor:      viewAccessor("tags"),
		EntityAccessor:    entityAccessor("tags"),
		KeyRemoveListener: listener,
		RemoveListener:    listener,
	})
	require.NoError(t, err)
	initial := mapOf("a", "1", "b", "2")
	current := mapOf("a", "1")
	owner := loadedOwner(1).attach("tags", initial, current)
	target := newEntity(1, "owner")
	held := mapOf("a", "1", "b", "2")
	target.fields["tags"] = held

	changed, err := f.FlushEntity(newContext(nil), target, owner, current)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []interface{}{"a"}, held.Keys())
	assert.ElementsMatch(t, []interface{}{"b", "2"}, listener.entityRemoved)
	assert.Empty(t, listener.viewRemoved)
}

func TestFlushEntity_CreatesMissingContainer(t *testing.T) {
	f := stringListFlusher("notes")
	rec := collection.NewRecordingCollection(collection.NewList())
	owner := newOwner(1).attach("notes", rec, rec)
	target := newEntity(1, "owner")
	uc := newContext(nil)

	rec.Add("x")
	d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	changed, err := d.FlushEntity(uc, target, owner, rec)
	require.NoError(t, err)

	assert.True(t, changed)
	list, ok := target.fields["notes"].(*collection.List)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"x"}, list.Items())
}

func TestFlushEntity_RejectsForeignContainer(t *testing.T) {
	f := stringListFlusher("notes")
	rec := collection.NewRecordingCollection(collection.NewList())
	owner := loadedOwner(1).attach("notes", rec, rec)
	target := newEntity(1, "owner")
	target.fields["notes"] = mapOf("a", "b")
	uc := newContext(nil)

	rec.Add("x")
	d, err := f.GetDirtyFlusher(uc, owner, rec, rec)
	require.NoError(t, err)
	_, err = d.FlushEntity(uc, target, owner, rec)

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Message, "expected a list")
}

func TestFlushEntity_WithoutEntityAccessor(t *testing.T) {
	f, err := NewSetFlusher(PluralConfig{
		Attribute:    "labels",
		Entity:       "User",
		Relation:     "labels",
		Element:      stringType,
		ViewAccessor: viewAccessor("labels"),
	})
	require.NoError(t, err)
	rec := collection.NewRecordingCollection(collection.NewSet("a"))

	_, err = f.FlushEntity(newContext(nil), newEntity(1, "owner"), loadedOwner(1), rec)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "entity accessor")
}

func TestFlushEntity_CascadeOnlyMergesElements(t *testing.T) {
	mapper := newFakeMapper()
	f, err := NewSetFlusher(PluralConfig{
		Attribute:      "children",
		Entity:         "User",
		Relation:       "children",
		Element:        SubviewDescriptor(mapper),
		ViewAccessor:   viewAccessor("children"),
		EntityAccessor: entityAccessor("children"),
		CascadeOnly:    true,
	})
	require.NoError(t, err)
	child := &itemView{State: view.Loaded(20), Name: "kid"}
	rec := collection.NewRecordingCollection(collection.NewSet(child))
	owner := loadedOwner(1).attach("children", rec, rec)
	target := newEntity(1, "owner")
	child.MarkDirty()

	changed, err := f.FlushEntity(newContext(nil), target, owner, rec)
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, []interface{}{20}, mapper.applied)
	assert.Nil(t, target.fields["children"], "membership is not written")
}
