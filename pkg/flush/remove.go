package flush

import (
	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/chameleon-db/entityview/pkg/view"
)

// ============================================================
// REMOVAL
// ============================================================

// Remove is called when the owner is deleted. Under the query strategy the
// collection rows are deleted right away; otherwise deleters for the
// persisted keys and elements are returned to run after the owner is gone.
func (f *PluralFlusher) Remove(uc *UpdateContext, entity, owner, value interface{}) ([]PostFlushDeleter, error) {
	if uc.usesQueries() && f.cfg.Relation != "" {
		return f.RemoveByOwnerID(uc, view.IDOf(owner))
	}
	if f.cfg.KeyRemoveListener == nil && f.cfg.RemoveListener == nil {
		return nil, nil
	}

	// the persisted state: recorded additions excluded, removals included
	persisted := value
	if _, ok := owner.(view.Trackable); ok {
		if iv := f.cfg.ViewAccessor.InitialValue(owner); !f.adapter.absent(iv) {
			persisted = iv
		}
	}
	persisted = f.adapter.unwrap(persisted)

	var out []PostFlushDeleter
	for _, r := range f.adapter.rows(persisted) {
		if l := f.cfg.KeyRemoveListener; l != nil && r.Key != nil && f.adapter.keyed() {
			out = append(out, listenerDeleter{listener: l, element: r.Key})
		}
		if l := f.cfg.RemoveListener; l != nil && r.Element != nil {
			out = append(out, listenerDeleter{listener: l, element: r.Element})
		}
	}
	return out, nil
}

// RemoveByOwnerID deletes every collection row of the owner. When keys or
// elements cascade, their ids are read back (through RETURNING when
// supported) and deleted after the flush.
func (f *PluralFlusher) RemoveByOwnerID(uc *UpdateContext, ownerID interface{}) ([]PostFlushDeleter, error) {
	qf, err := uc.requireQueries(f.cfg.Attribute)
	if err != nil {
		return nil, err
	}
	if ownerID == nil {
		return nil, &InvariantError{Attribute: f.cfg.Attribute, Message: "owner has no id"}
	}
	cascadeKeys := f.cfg.KeyRemoveListener != nil && f.cfg.Key != nil && !f.cfg.Key.IsBasic()
	cascadeElems := f.cfg.RemoveListener != nil && !f.cfg.Element.IsBasic()

	ctx := uc.Context()
	if !cascadeKeys && !cascadeElems {
		_, err := qf.DeleteCollection(f.cfg.Entity, f.cfg.Relation).Owner(ownerID).Execute(ctx)
		return nil, err
	}

	var rows []engine.CollectionRow
	if uc.SupportsReturning() {
		res, err := qf.DeleteCollection(f.cfg.Entity, f.cfg.Relation).Owner(ownerID).ExecuteReturning(ctx)
		if err != nil {
			return nil, err
		}
		rows = res.Rows
	} else {
		res, err := qf.SelectCollection(f.cfg.Entity, f.cfg.Relation).Owner(ownerID).Execute(ctx)
		if err != nil {
			return nil, err
		}
		rows = res.Rows
		if _, err := qf.DeleteCollection(f.cfg.Entity, f.cfg.Relation).Owner(ownerID).Execute(ctx); err != nil {
			return nil, err
		}
	}

	var out []PostFlushDeleter
	if cascadeKeys {
		d, err := f.idDeleter(f.cfg.Key, rows, func(r engine.CollectionRow) interface{} { return r.Key })
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if cascadeElems {
		d, err := f.idDeleter(f.cfg.Element, rows, func(r engine.CollectionRow) interface{} { return r.Element })
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	loggerOf(uc).Debug("collection removed by owner",
		zap.String("attribute", f.cfg.Attribute),
		zap.Any("owner", ownerID),
		zap.Int("rows", len(rows)),
	)
	return out, nil
}

func (f *PluralFlusher) idDeleter(d *TypeDescriptor, rows []engine.CollectionRow, pick func(engine.CollectionRow) interface{}) (PostFlushDeleter, error) {
	if d.ElementRemover() == nil {
		return nil, &ConfigurationError{Attribute: f.cfg.Attribute, Message: "cascading deletes require an ElementRemover"}
	}
	ids := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		if id := pick(r); id != nil {
			ids = append(ids, id)
		}
	}
	return idDeleter{remover: d.ElementRemover(), ids: ids}, nil
}

// RemoveFromEntity detaches the collection from entity. With listeners
// every key and element is reported and the attribute is unset; otherwise
// the container is emptied in place.
func (f *PluralFlusher) RemoveFromEntity(uc *UpdateContext, entity interface{}) error {
	if f.cfg.EntityAccessor == nil {
		return &ConfigurationError{Attribute: f.cfg.Attribute, Message: "entity flushing requires an entity accessor"}
	}
	target := f.cfg.EntityAccessor.Value(entity)
	if f.adapter.absent(target) {
		return nil
	}
	if f.cfg.KeyRemoveListener == nil && f.cfg.RemoveListener == nil {
		f.adapter.clear(target)
		return nil
	}
	for _, r := range f.adapter.rows(target) {
		if l := f.cfg.KeyRemoveListener; l != nil && f.adapter.keyed() && r.Key != nil {
			if err := l.OnEntityCollectionRemove(uc, r.Key); err != nil {
				return err
			}
		}
		if l := f.cfg.RemoveListener; l != nil && r.Element != nil {
			if err := l.OnEntityCollectionRemove(uc, r.Element); err != nil {
				return err
			}
		}
	}
	f.cfg.EntityAccessor.SetValue(entity, nil)
	return nil
}
