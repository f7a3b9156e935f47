package flush

import (
	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/view"
)

// ============================================================
// STATEMENT FLUSH
// ============================================================

// FlushQuery implements DirtyAttributeFlusher
func (f *PluralFlusher) FlushQuery(uc *UpdateContext, owner, value interface{}) error {
	if !f.adapter.accepts(value) {
		return &InvariantError{Attribute: f.cfg.Attribute, Message: "unexpected " + f.adapter.kind() + " value"}
	}
	run := newRun(uc, f.cfg.Attribute)
	if f.cfg.Relation == "" {
		return f.flushCorrelated(run, owner, value)
	}

	qf, err := uc.requireQueries(f.cfg.Attribute)
	if err != nil {
		return err
	}
	run.qf = qf
	run.ownerID = view.IDOf(owner)
	if run.ownerID == nil {
		return &InvariantError{Attribute: f.cfg.Attribute, Message: "owner has no id"}
	}

	if f.plan != nil {
		err = f.flushPlanned(run, owner, value)
	} else {
		err = f.flushFull(run, owner, value)
	}
	if err != nil {
		loggerOf(uc).Warn("collection flush failed",
			zap.String("attribute", f.cfg.Attribute),
			zap.Stringer("operation", f.Operation()),
			zap.Error(err),
		)
	}
	return err
}

func (f *PluralFlusher) flushPlanned(run *flushRun, owner, value interface{}) error {
	p := f.plan
	if p.actions != nil {
		run.rec = f.replaceWithRecording(owner, value, p.actions, p.initial)
	} else if rec, ok := f.adapter.recording(value); ok {
		run.rec = rec
	}

	for _, el := range p.elements {
		if err := el.flushQuery(f, run); err != nil {
			return err
		}
	}

	if p.actions != nil && p.actions.Len() > 0 {
		// merges may have rewritten the journal
		j := run.rec.actions()
		var fused fusedRows
		if !j.startsWithClear() {
			fused = j.fuse(f.initialOrEmpty(p.initial), f.keyEquality())
		}
		initialKnown := !f.adapter.absent(p.initial)
		if err := f.flushCollectionOperations(run, p.initial, run.rec.value(), fused, p.upsert, initialKnown); err != nil {
			return err
		}
	}
	if run.rec != nil {
		f.commit(owner, run.rec)
	}
	return nil
}

// flushFull rewrites the collection from its current contents.
func (f *PluralFlusher) flushFull(run *flushRun, owner, value interface{}) error {
	initial := f.cfg.ViewAccessor.InitialValue(owner)
	if rec, ok := f.adapter.recording(value); ok {
		run.rec = rec
		if view.Same(initial, value) || f.adapter.absent(initial) {
			initial = rec.initialVersion()
		}
	} else {
		ini := f.adapter.unwrap(initial)
		var j journal
		if (f.adapter.absent(ini) && f.cfg.ReplaceWithReferenceContents) ||
			!f.cfg.Element.SupportsDeepEqualityCheck() || !f.cfg.Element.supportsDeepClone() {
			j = f.adapter.replaceAll(value)
		} else {
			j = f.adapter.diff(f, ini, value)
		}
		run.rec = f.replaceWithRecording(owner, value, j, ini)
		initial = ini
	}
	initial = f.adapter.unwrap(initial)

	if err := f.flushElementsInPlace(run); err != nil {
		return err
	}
	if err := f.flushCollectionOperations(run, initial, run.rec.value(), nil, false, !f.adapter.absent(initial)); err != nil {
		return err
	}
	f.commit(owner, run.rec)
	return nil
}

// flushElementsInPlace cascades every key and element of the recording.
func (f *PluralFlusher) flushElementsInPlace(run *flushRun) error {
	els, _ := f.elementFlushers(run.rec.value(), nil, nil, true)
	for _, el := range els {
		if err := el.flushQuery(f, run); err != nil {
			return err
		}
	}
	return nil
}

// flushCorrelated handles attributes without a collection table: the
// journal is applied to a throwaway container so cascades still run.
func (f *PluralFlusher) flushCorrelated(run *flushRun, owner, value interface{}) error {
	rec, ok := f.adapter.recording(value)
	if !ok {
		return nil
	}
	run.rec = rec
	if err := f.flushElementsInPlace(run); err != nil {
		return err
	}
	scratch := f.adapter.newEmpty()
	rec.actions().replay(scratch, f.viewHooks(run))
	if run.err != nil {
		return run.err
	}
	f.commit(owner, rec)
	return nil
}

// viewHooks persists new keys and elements while a journal is replayed.
func (f *PluralFlusher) viewHooks(run *flushRun) collection.Hooks {
	var ignored []interface{}
	return run.hooks(f.cfg.Key, f.cfg.Element, &ignored, &ignored)
}

// ─────────────────────────────────────────────────────────────
// Collection table statements
// ─────────────────────────────────────────────────────────────

// flushCollectionOperations writes value into the collection table. With a
// fused net effect smaller than the collection only the touched rows are
// written; otherwise every row of the owner is rewritten.
func (f *PluralFlusher) flushCollectionOperations(run *flushRun, initial, value interface{}, fused fusedRows, upsert, initialKnown bool) error {
	ctx := run.uc.Context()
	var removedKeys, removedElems []interface{}

	removeSpecific := fused != nil && fused.OperationCount() < f.adapter.size(value)+1
	if removeSpecific {
		if addrs := fused.removedAddresses(); len(addrs) > 0 {
			keys := make([]interface{}, len(addrs))
			for i, a := range addrs {
				keys[i] = f.adapter.address(f, a)
			}
			if _, err := run.qf.DeleteCollection(f.cfg.Entity, f.cfg.Relation).Owner(run.ownerID).KeysIn(keys...).Execute(ctx); err != nil {
				return err
			}
		}
		removedKeys, removedElems = fused.cascadeRemovedKeys(), fused.removedElements()
		for _, r := range fused.replaced() {
			if err := f.updateRow(run, r); err != nil {
				return err
			}
		}
		for _, r := range fused.added() {
			if err := f.insertRow(run, r, upsert); err != nil {
				return err
			}
		}
	} else {
		if _, err := run.qf.DeleteCollection(f.cfg.Entity, f.cfg.Relation).Owner(run.ownerID).Execute(ctx); err != nil {
			return err
		}
		switch {
		case fused != nil:
			removedKeys, removedElems = fused.cascadeRemovedKeys(), fused.removedElements()
		case initialKnown:
			removedKeys, removedElems = f.droppedOut(initial, value)
		}
		for _, r := range f.adapter.rows(value) {
			if err := f.insertRow(run, r, upsert); err != nil {
				return err
			}
		}
	}

	loggerOf(run.uc).Debug("collection rows written",
		zap.String("attribute", f.cfg.Attribute),
		zap.String("relation", f.cfg.Relation),
		zap.Bool("targeted", removeSpecific),
		zap.Int("removed_keys", len(removedKeys)),
		zap.Int("removed_elements", len(removedElems)),
	)
	return f.notifyRemoved(run.uc, removedKeys, removedElems)
}

func (f *PluralFlusher) insertRow(run *flushRun, r row, upsert bool) error {
	if r.Element == nil || (f.adapter.keyed() && r.Key == nil) {
		return nil
	}
	if f.cfg.Key != nil && f.cfg.Key.isTransient(r.Key) {
		return &TransientReferenceError{Attribute: f.cfg.Attribute, Value: r.Key}
	}
	if f.cfg.Element.isTransient(r.Element) {
		return &TransientReferenceError{Attribute: f.cfg.Attribute, Value: r.Element}
	}

	ins := run.qf.InsertCollection(f.cfg.Entity, f.cfg.Relation).
		Owner(run.ownerID).
		Element(f.cfg.Element.rowValue(r.Element))
	keyed := f.adapter.keyed() || f.adapter.ordered()
	if keyed {
		ins = ins.Key(f.rowKey(r.Key))
	}
	if upsert {
		ins = ins.OnlyIfAbsent()
	}
	res, err := ins.Execute(run.uc.Context())
	if err != nil {
		return err
	}
	if upsert && keyed && res.Affected == 0 {
		return f.updateRow(run, r)
	}
	return nil
}

func (f *PluralFlusher) updateRow(run *flushRun, r row) error {
	_, err := run.qf.UpdateCollection(f.cfg.Entity, f.cfg.Relation).
		Owner(run.ownerID).
		Key(f.rowKey(r.Key)).
		Element(f.cfg.Element.rowValue(r.Element)).
		Execute(run.uc.Context())
	return err
}

// rowKey is the key column value: the mapped map key or the list index.
func (f *PluralFlusher) rowKey(k interface{}) interface{} {
	switch {
	case f.adapter.keyed():
		return f.cfg.Key.rowValue(k)
	case f.adapter.ordered():
		return k
	}
	return nil
}

// droppedOut lists keys and elements of initial that are no longer
// present in value.
func (f *PluralFlusher) droppedOut(initial, value interface{}) (keys, elems []interface{}) {
	now := f.adapter.rows(value)
	keep := view.NewIdentitySet()
	keepKeys := view.NewIdentitySet()
	for _, r := range now {
		keep.Add(r.Element)
		if f.adapter.keyed() {
			keepKeys.Add(r.Key)
		}
	}
	for _, r := range f.adapter.rows(initial) {
		if f.adapter.keyed() && r.Key != nil && !keepKeys.Contains(r.Key) {
			keys = append(keys, r.Key)
		}
		if r.Element != nil && !keep.Contains(r.Element) {
			elems = append(elems, r.Element)
		}
	}
	return keys, elems
}

func (f *PluralFlusher) notifyRemoved(uc *UpdateContext, keys, elems []interface{}) error {
	if l := f.cfg.KeyRemoveListener; l != nil {
		for _, k := range keys {
			if err := l.OnCollectionRemove(uc, k); err != nil {
				return err
			}
		}
	}
	if l := f.cfg.RemoveListener; l != nil {
		for _, v := range elems {
			if v == nil {
				continue
			}
			if err := l.OnCollectionRemove(uc, v); err != nil {
				return err
			}
		}
	}
	return nil
}
