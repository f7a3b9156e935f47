package flush

import (
	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

// pluralAdapter is everything the plural flusher needs to know about one
// container kind.
type pluralAdapter interface {
	kind() string
	keyed() bool
	ordered() bool

	accepts(v interface{}) bool
	absent(v interface{}) bool
	size(v interface{}) int
	rows(v interface{}) []row

	recording(v interface{}) (recorder, bool)
	// unwrap returns the initial version of a recording, v otherwise.
	unwrap(v interface{}) interface{}
	newEmpty() interface{}
	// wrap returns v as a recording, reusing it when it already is one.
	wrap(v interface{}) recorder
	clear(target interface{})

	diff(f *PluralFlusher, initial, current interface{}) journal
	replaceAll(current interface{}) journal
	// address maps a removed key to the value the table row is matched on.
	address(f *PluralFlusher, key interface{}) interface{}
}

// recorder is the kind-neutral view of a recording container.
type recorder interface {
	collection.Recording
	value() interface{}
	actions() journal
	initialVersion() interface{}
	initiate(j journal, initial interface{})
	replaceActionElement(old, new interface{})
	addedKeys() []interface{}
	removedElements() []interface{}
	addedElements() []interface{}
	// rewrite swaps the slot r for key/elem without journaling it.
	rewrite(r row, key, elem interface{})
}

// ============================================================
// MAP ADAPTER
// ============================================================

type mapAdapter struct{}

func (mapAdapter) kind() string  { return "map" }
func (mapAdapter) keyed() bool   { return true }
func (mapAdapter) ordered() bool { return false }

func (mapAdapter) accepts(v interface{}) bool {
	switch v.(type) {
	case nil, *collection.OrderedMap, *collection.RecordingMap:
		return true
	}
	return false
}

func (mapAdapter) absent(v interface{}) bool {
	switch m := v.(type) {
	case nil:
		return true
	case *collection.OrderedMap:
		return m == nil
	case *collection.RecordingMap:
		return m == nil
	}
	return false
}

func (a mapAdapter) size(v interface{}) int {
	if a.absent(v) {
		return 0
	}
	switch m := v.(type) {
	case *collection.OrderedMap:
		return m.Len()
	case *collection.RecordingMap:
		return m.Len()
	}
	return 0
}

func (a mapAdapter) entries(v interface{}) []collection.Entry {
	if a.absent(v) {
		return nil
	}
	switch m := v.(type) {
	case *collection.OrderedMap:
		return m.Entries()
	case *collection.RecordingMap:
		return m.Entries()
	}
	return nil
}

func (a mapAdapter) rows(v interface{}) []row { return entryRows(a.entries(v)) }

func (mapAdapter) recording(v interface{}) (recorder, bool) {
	m, ok := v.(*collection.RecordingMap)
	if !ok || m == nil {
		return nil, false
	}
	return mapRecorder{m}, true
}

func (a mapAdapter) unwrap(v interface{}) interface{} {
	if rec, ok := a.recording(v); ok {
		return rec.initialVersion()
	}
	return v
}

func (mapAdapter) newEmpty() interface{} { return collection.NewOrderedMap() }

func (a mapAdapter) wrap(v interface{}) recorder {
	if rec, ok := a.recording(v); ok {
		return rec
	}
	m, _ := v.(*collection.OrderedMap)
	if m == nil {
		m = collection.NewOrderedMap()
	}
	return mapRecorder{collection.NewRecordingMap(m)}
}

func (mapAdapter) clear(target interface{}) {
	switch m := target.(type) {
	case *collection.OrderedMap:
		m.Clear()
	case *collection.RecordingMap:
		m.Clear()
	}
}

// diff is the elimination scan: every initial entry looks for its key among
// the remaining current entries. A match with different content becomes a
// Put, unmatched initial entries become Removes and leftovers become Puts.
// A matched key held by another instance is not an action on its own.
func (a mapAdapter) diff(f *PluralFlusher, initial, current interface{}) journal {
	contentEq := f.cfg.Element.contentEquality()
	remaining := a.entries(current)
	var out mapJournal
	for _, ie := range a.entries(initial) {
		match := -1
		for j, ce := range remaining {
			if f.keyEqual(ie.Key, ce.Key) {
				match = j
				break
			}
		}
		if match < 0 {
			out = append(out, &collection.MapRemove{Key: ie.Key, Old: ie.Value})
			continue
		}
		ce := remaining[match]
		remaining = append(remaining[:match], remaining[match+1:]...)
		if contentEq(ie.Value, ce.Value) {
			continue
		}
		if f.keyFlush() || !view.Same(ie.Key, ce.Key) {
			out = append(out, &collection.MapRemove{Key: ie.Key, Old: ie.Value})
			out = append(out, &collection.MapPut{Key: ce.Key, Value: ce.Value})
			continue
		}
		out = append(out, &collection.MapPut{Key: ce.Key, Value: ce.Value, Old: ie.Value, HadOld: true})
	}
	for _, ce := range remaining {
		out = append(out, &collection.MapPut{Key: ce.Key, Value: ce.Value})
	}
	return out
}

func (a mapAdapter) replaceAll(current interface{}) journal {
	out := mapJournal{&collection.MapClear{}}
	if entries := a.entries(current); len(entries) > 0 {
		out = append(out, &collection.MapPutAll{Entries: entries})
	}
	return out
}

func (mapAdapter) address(f *PluralFlusher, key interface{}) interface{} {
	return f.cfg.Key.rowValue(key)
}

type mapRecorder struct {
	*collection.RecordingMap
}

func (r mapRecorder) value() interface{}             { return r.RecordingMap }
func (r mapRecorder) actions() journal               { return mapJournal(r.Actions()) }
func (r mapRecorder) initialVersion() interface{}    { return r.InitialVersion() }
func (r mapRecorder) addedKeys() []interface{}       { return r.AddedKeys() }
func (r mapRecorder) addedElements() []interface{}   { return r.AddedElements() }
func (r mapRecorder) removedElements() []interface{} { return r.RemovedElements() }

func (r mapRecorder) initiate(j journal, initial interface{}) {
	m, _ := initial.(*collection.OrderedMap)
	actions, _ := j.(mapJournal)
	r.InitiateActionsAgainstState(actions, m)
}

func (r mapRecorder) replaceActionElement(old, new interface{}) {
	r.ReplaceActionElement(old, new)
}

func (r mapRecorder) rewrite(slot row, key, elem interface{}) {
	d := r.Delegate()
	if !view.Same(slot.Key, key) {
		d.Remove(slot.Key)
		r.ReplaceActionElement(slot.Key, key)
	}
	d.Put(key, elem)
	if !view.Same(slot.Element, elem) {
		r.ReplaceActionElement(slot.Element, elem)
	}
}

// ============================================================
// LIST AND SET ADAPTER
// ============================================================

type collectionAdapter struct {
	positional bool
}

func (a collectionAdapter) kind() string {
	if a.positional {
		return "list"
	}
	return "set"
}

func (collectionAdapter) keyed() bool     { return false }
func (a collectionAdapter) ordered() bool { return a.positional }

func (a collectionAdapter) accepts(v interface{}) bool {
	switch c := v.(type) {
	case nil:
		return true
	case *collection.List:
		return a.positional
	case *collection.Set:
		return !a.positional
	case *collection.RecordingCollection:
		return c == nil || c.Delegate() == nil || c.Ordered() == a.positional
	}
	return false
}

func (collectionAdapter) absent(v interface{}) bool {
	switch c := v.(type) {
	case nil:
		return true
	case *collection.List:
		return c == nil
	case *collection.Set:
		return c == nil
	case *collection.RecordingCollection:
		return c == nil || c.Delegate() == nil
	}
	return false
}

func (a collectionAdapter) items(v interface{}) []interface{} {
	if a.absent(v) {
		return nil
	}
	if c, ok := v.(collection.Collection); ok {
		return c.Items()
	}
	if r, ok := v.(*collection.RecordingCollection); ok {
		return r.Items()
	}
	return nil
}

func (a collectionAdapter) size(v interface{}) int { return len(a.items(v)) }

func (a collectionAdapter) rows(v interface{}) []row {
	items := a.items(v)
	out := make([]row, len(items))
	for i, it := range items {
		out[i] = row{Element: it}
		if a.positional {
			out[i].Key = i
		}
	}
	return out
}

func (collectionAdapter) recording(v interface{}) (recorder, bool) {
	r, ok := v.(*collection.RecordingCollection)
	if !ok || r == nil || r.Delegate() == nil {
		return nil, false
	}
	return collectionRecorder{r}, true
}

func (a collectionAdapter) unwrap(v interface{}) interface{} {
	if rec, ok := a.recording(v); ok {
		return rec.initialVersion()
	}
	return v
}

func (a collectionAdapter) newEmpty() interface{} {
	if a.positional {
		return collection.NewList()
	}
	return collection.NewSet()
}

func (a collectionAdapter) wrap(v interface{}) recorder {
	if rec, ok := a.recording(v); ok {
		return rec
	}
	c, _ := v.(collection.Collection)
	if a.absent(v) || c == nil {
		c = a.newEmpty().(collection.Collection)
	}
	return collectionRecorder{collection.NewRecordingCollection(c)}
}

func (a collectionAdapter) clear(target interface{}) {
	if a.absent(target) {
		return
	}
	switch c := target.(type) {
	case collection.Collection:
		c.Clear()
	case *collection.RecordingCollection:
		c.Clear()
	}
}

// diff compares lists slot by slot and sets by membership. Slots match by
// identity first, then by content.
func (a collectionAdapter) diff(f *PluralFlusher, initial, current interface{}) journal {
	ini, cur := a.items(initial), a.items(current)
	var out collectionJournal
	if a.positional {
		contentEq := f.cfg.Element.contentEquality()
		n := min(len(ini), len(cur))
		for i := 0; i < n; i++ {
			if !contentEq(ini[i], cur[i]) {
				out = append(out, &collection.CollectionSet{Index: i, Element: cur[i], Old: ini[i]})
			}
		}
		for i := len(ini) - 1; i >= n; i-- {
			out = append(out, &collection.CollectionRemove{Index: i, Element: ini[i]})
		}
		for i := n; i < len(cur); i++ {
			out = append(out, &collection.CollectionAdd{Index: i, Element: cur[i]})
		}
		return out
	}

	remaining := cur
	for _, v := range ini {
		j := indexOf(remaining, v, f.elemEqual)
		if j < 0 {
			out = append(out, &collection.CollectionRemove{Index: -1, Element: v})
			continue
		}
		remaining = append(remaining[:j:j], remaining[j+1:]...)
	}
	for _, v := range remaining {
		out = append(out, &collection.CollectionAdd{Index: -1, Element: v})
	}
	return out
}

func (a collectionAdapter) replaceAll(current interface{}) journal {
	out := collectionJournal{&collection.CollectionClear{}}
	for _, v := range a.items(current) {
		out = append(out, &collection.CollectionAdd{Index: -1, Element: v})
	}
	return out
}

func (a collectionAdapter) address(f *PluralFlusher, key interface{}) interface{} {
	if a.positional {
		return key
	}
	return f.cfg.Element.rowValue(key)
}

// indexOf finds v by identity, then by eq.
func indexOf(items []interface{}, v interface{}, eq Equality) int {
	for i, it := range items {
		if view.Same(it, v) {
			return i
		}
	}
	for i, it := range items {
		if eq(it, v) {
			return i
		}
	}
	return -1
}

type collectionRecorder struct {
	*collection.RecordingCollection
}

func (r collectionRecorder) value() interface{}             { return r.RecordingCollection }
func (r collectionRecorder) actions() journal               { return collectionJournal(r.Actions()) }
func (r collectionRecorder) initialVersion() interface{}    { return r.InitialVersion() }
func (r collectionRecorder) addedKeys() []interface{}       { return r.AddedElements() }
func (r collectionRecorder) addedElements() []interface{}   { return r.AddedElements() }
func (r collectionRecorder) removedElements() []interface{} { return r.RemovedElements() }

func (r collectionRecorder) initiate(j journal, initial interface{}) {
	c, _ := initial.(collection.Collection)
	actions, _ := j.(collectionJournal)
	r.InitiateActionsAgainstState(actions, c)
}

func (r collectionRecorder) replaceActionElement(old, new interface{}) {
	r.ReplaceActionElement(old, new)
}

func (r collectionRecorder) rewrite(slot row, _ interface{}, elem interface{}) {
	if view.Same(slot.Element, elem) {
		return
	}
	if l, ok := r.Delegate().(*collection.List); ok {
		if i, ok := slot.Key.(int); ok && i < l.Len() {
			l.Set(i, elem)
		}
	} else {
		r.Delegate().Remove(slot.Element)
		r.Delegate().Add(elem)
	}
	r.ReplaceActionElement(slot.Element, elem)
}
