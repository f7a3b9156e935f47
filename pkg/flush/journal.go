package flush

import (
	"strings"

	"github.com/chameleon-db/entityview/pkg/collection"
)

// row is one persisted slot: a map entry, a list position or a set member.
// Key is the map key, the list index, or nil for sets.
type row struct {
	Key     interface{}
	Element interface{}
}

// journal is the kind-neutral view of an action log.
type journal interface {
	Len() int
	startsWithClear() bool
	fuse(initial interface{}, keyEqual Equality) fusedRows
	replay(target interface{}, hooks collection.Hooks)
	String() string
}

// fusedRows is the net effect of a journal expressed as table rows.
type fusedRows interface {
	OperationCount() int
	added() []row
	replaced() []row
	// removedAddresses are the raw map keys, list indexes or set elements
	// whose rows go away.
	removedAddresses() []interface{}
	cascadeRemovedKeys() []interface{}
	removedElements() []interface{}
	applyTo(target interface{}, hooks collection.Hooks)
}

// ============================================================
// MAP JOURNAL
// ============================================================

type mapJournal []collection.MapAction

func (j mapJournal) Len() int { return len(j) }

func (j mapJournal) startsWithClear() bool {
	if len(j) == 0 {
		return false
	}
	_, ok := j[0].(*collection.MapClear)
	return ok
}

func (j mapJournal) fuse(initial interface{}, keyEqual Equality) fusedRows {
	m, _ := initial.(*collection.OrderedMap)
	return fusedMap{collection.FuseMapActions(m, j, keyEqual)}
}

func (j mapJournal) replay(target interface{}, hooks collection.Hooks) {
	m := target.(*collection.OrderedMap)
	for _, a := range j {
		a.Apply(m, hooks)
	}
}

func (j mapJournal) String() string {
	parts := make([]string, len(j))
	for i, a := range j {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

type fusedMap struct {
	*collection.FusedMapActions
}

func (f fusedMap) added() []row    { return entryRows(f.Added()) }
func (f fusedMap) replaced() []row { return entryRows(f.Replaced()) }

func (f fusedMap) removedAddresses() []interface{}   { return f.RemovedKeys() }
func (f fusedMap) cascadeRemovedKeys() []interface{} { return f.CascadeRemovedKeys() }
func (f fusedMap) removedElements() []interface{}    { return f.RemovedElements() }

func (f fusedMap) applyTo(target interface{}, hooks collection.Hooks) {
	f.ApplyTo(target.(*collection.OrderedMap), hooks)
}

func entryRows(entries []collection.Entry) []row {
	out := make([]row, len(entries))
	for i, e := range entries {
		out[i] = row{Key: e.Key, Element: e.Value}
	}
	return out
}

// ============================================================
// COLLECTION JOURNAL
// ============================================================

type collectionJournal []collection.CollectionAction

func (j collectionJournal) Len() int { return len(j) }

func (j collectionJournal) startsWithClear() bool {
	if len(j) == 0 {
		return false
	}
	_, ok := j[0].(*collection.CollectionClear)
	return ok
}

func (j collectionJournal) fuse(initial interface{}, _ Equality) fusedRows {
	c, _ := initial.(collection.Collection)
	if c == nil {
		c = collection.NewList()
	}
	return fusedCollection{collection.FuseCollectionActions(c, j)}
}

func (j collectionJournal) replay(target interface{}, hooks collection.Hooks) {
	c := target.(collection.Collection)
	for _, a := range j {
		a.Apply(c, hooks)
	}
}

func (j collectionJournal) String() string {
	parts := make([]string, len(j))
	for i, a := range j {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

type fusedCollection struct {
	*collection.FusedCollectionActions
}

func (f fusedCollection) added() []row    { return indexedRows(f.Ordered(), f.Added()) }
func (f fusedCollection) replaced() []row { return indexedRows(f.Ordered(), f.Replaced()) }

func (f fusedCollection) removedAddresses() []interface{}   { return f.RemovedKeys() }
func (f fusedCollection) cascadeRemovedKeys() []interface{} { return nil }
func (f fusedCollection) removedElements() []interface{}    { return f.RemovedElements() }

func (f fusedCollection) applyTo(target interface{}, hooks collection.Hooks) {
	f.ApplyTo(target.(collection.Collection), hooks)
}

func indexedRows(ordered bool, elements []collection.IndexedElement) []row {
	out := make([]row, len(elements))
	for i, e := range elements {
		out[i] = row{Element: e.Element}
		if ordered {
			out[i].Key = e.Index
		}
	}
	return out
}
