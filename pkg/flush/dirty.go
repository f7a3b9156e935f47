package flush

import "github.com/chameleon-db/entityview/pkg/view"

// DirtyChecker classifies how a value changed between two snapshots.
type DirtyChecker interface {
	DirtyKind(initial, current interface{}) view.DirtyKind
}

// BasicDirtyChecker handles singular basic values and map keys.
type BasicDirtyChecker struct {
	Type view.BasicUserType
}

func (c BasicDirtyChecker) DirtyKind(initial, current interface{}) view.DirtyKind {
	if initial == nil || current == nil {
		if initial == nil && current == nil {
			return view.DirtyNone
		}
		return view.DirtyUpdated
	}
	if view.Same(initial, current) {
		if c.Type.IsMutable() && c.Type.SupportsDirtyChecking() && c.Type.DirtyProperties(current) != nil {
			return view.DirtyMutated
		}
		return view.DirtyNone
	}
	if c.Type.SupportsDeepEqualChecking() {
		if c.Type.IsDeepEqual(initial, current) {
			return view.DirtyNone
		}
		return view.DirtyUpdated
	}
	if !c.Type.IsMutable() && c.Type.IsEqual(initial, current) {
		return view.DirtyNone
	}
	return view.DirtyUpdated
}

// TrackableDirtyChecker reads the dirty flag of view proxies.
type TrackableDirtyChecker struct{}

func (TrackableDirtyChecker) DirtyKind(initial, current interface{}) view.DirtyKind {
	if initial == nil || current == nil {
		if initial == nil && current == nil {
			return view.DirtyNone
		}
		return view.DirtyUpdated
	}
	if !view.Same(initial, current) {
		return view.DirtyUpdated
	}
	t, ok := current.(view.Trackable)
	if !ok {
		return view.DirtyNone
	}
	if t.IsNew() || t.IsDirty() {
		return view.DirtyMutated
	}
	return view.DirtyNone
}

func (d *TypeDescriptor) dirtyChecker() DirtyChecker {
	if d.subview {
		if d.mapper != nil && d.mapper.DirtyChecker() != nil {
			return d.mapper.DirtyChecker()
		}
		return TrackableDirtyChecker{}
	}
	if d.basic == nil {
		return TrackableDirtyChecker{}
	}
	return BasicDirtyChecker{Type: d.basic}
}

// inPlaceDirty reports whether v changed without being replaced.
func (d *TypeDescriptor) inPlaceDirty(v interface{}) bool {
	if v == nil {
		return false
	}
	return d.dirtyChecker().DirtyKind(v, v) == view.DirtyMutated
}

// ============================================================
// PLURAL DIRTY KIND
// ============================================================

// DirtyKind classifies a plural attribute. Same-reference values are
// MUTATED when their journal holds actions or an element changed in place;
// distinct values are compared entry by entry.
func (f *PluralFlusher) DirtyKind(initial, current interface{}) view.DirtyKind {
	a := f.adapter
	if a.absent(current) {
		if a.absent(initial) {
			return view.DirtyNone
		}
		return view.DirtyUpdated
	}
	if a.absent(initial) {
		return view.DirtyUpdated
	}

	keyFlush, elemFlush := f.keyFlush(), f.elemFlush()
	uncheckable := (keyFlush && !f.cfg.Key.SupportsDirtyCheck()) || (elemFlush && !f.cfg.Element.SupportsDirtyCheck())

	if view.Same(initial, current) {
		if rec, ok := a.recording(current); ok {
			if rec.HasActions() {
				return view.DirtyMutated
			}
			if uncheckable {
				return view.DirtyMutated
			}
		}
		if !keyFlush && !elemFlush {
			return view.DirtyNone
		}
		if uncheckable {
			return view.DirtyNone
		}
		return f.scanMutated(a.rows(current))
	}

	if a.size(initial) != a.size(current) {
		return view.DirtyMutated
	}
	if !keyFlush && !elemFlush {
		return f.contentKind(initial, current)
	}
	if uncheckable {
		if f.cfg.Element.SupportsDeepEqualityCheck() {
			return f.contentKind(initial, current)
		}
		return view.DirtyMutated
	}
	if !f.rowsMatch(a.rows(initial), a.rows(current)) {
		return view.DirtyMutated
	}
	return f.scanMutated(a.rows(current))
}

func (f *PluralFlusher) contentKind(initial, current interface{}) view.DirtyKind {
	if f.rowsMatch(f.adapter.rows(initial), f.adapter.rows(current)) {
		return view.DirtyNone
	}
	return view.DirtyMutated
}

// scanMutated escalates to MUTATED when any key or element changed in place.
func (f *PluralFlusher) scanMutated(rows []row) view.DirtyKind {
	for _, r := range rows {
		if f.keyFlush() && f.cfg.Key.inPlaceDirty(r.Key) {
			return view.DirtyMutated
		}
		if f.elemFlush() && f.cfg.Element.inPlaceDirty(r.Element) {
			return view.DirtyMutated
		}
	}
	return view.DirtyNone
}

// rowsMatch compares two row sets: positionally for lists, by key for maps
// and by membership for sets.
func (f *PluralFlusher) rowsMatch(initial, current []row) bool {
	if len(initial) != len(current) {
		return false
	}
	elemEq := f.cfg.Element.contentEquality()
	if f.adapter.ordered() {
		for i := range current {
			if !elemEq(initial[i].Element, current[i].Element) {
				return false
			}
		}
		return true
	}
	used := make([]bool, len(initial))
	for _, c := range current {
		found := false
		for i, r := range initial {
			if used[i] {
				continue
			}
			if f.adapter.keyed() {
				if !f.keyEqual(r.Key, c.Key) || !elemEq(r.Element, c.Element) {
					continue
				}
			} else if !f.elemEqual(r.Element, c.Element) {
				continue
			}
			used[i] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}
