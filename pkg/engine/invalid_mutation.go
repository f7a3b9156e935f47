package engine

import (
	"context"
)

// Builders returned when a mutation cannot be built (unknown entity or
// relation, missing factory). They absorb every call and report the error
// on Execute so chains stay uniform.

type invalidUpdateMutation struct {
	err error
}

func newInvalidUpdateMutation(err error) UpdateMutation {
	return &invalidUpdateMutation{err: err}
}

func (m *invalidUpdateMutation) Set(field string, value interface{}) UpdateMutation {
	return m
}

func (m *invalidUpdateMutation) Filter(field string, operator string, value interface{}) UpdateMutation {
	return m
}

func (m *invalidUpdateMutation) Debug() UpdateMutation {
	return m
}

func (m *invalidUpdateMutation) Execute(ctx context.Context) (*UpdateResult, error) {
	return nil, m.err
}

type invalidCollectionDelete struct {
	err error
}

func (m *invalidCollectionDelete) Owner(id interface{}) CollectionDeleteMutation       { return m }
func (m *invalidCollectionDelete) KeysIn(keys ...interface{}) CollectionDeleteMutation { return m }
func (m *invalidCollectionDelete) Debug() CollectionDeleteMutation                     { return m }

func (m *invalidCollectionDelete) Execute(ctx context.Context) (*DeleteResult, error) {
	return nil, m.err
}

func (m *invalidCollectionDelete) ExecuteReturning(ctx context.Context) (*CollectionResult, error) {
	return nil, m.err
}

type invalidCollectionInsert struct {
	err error
}

func (m *invalidCollectionInsert) Owner(id interface{}) CollectionInsertMutation        { return m }
func (m *invalidCollectionInsert) Key(key interface{}) CollectionInsertMutation         { return m }
func (m *invalidCollectionInsert) Element(element interface{}) CollectionInsertMutation { return m }
func (m *invalidCollectionInsert) OnlyIfAbsent() CollectionInsertMutation               { return m }
func (m *invalidCollectionInsert) Debug() CollectionInsertMutation                      { return m }

func (m *invalidCollectionInsert) Execute(ctx context.Context) (*InsertResult, error) {
	return nil, m.err
}

type invalidCollectionUpdate struct {
	err error
}

func (m *invalidCollectionUpdate) Owner(id interface{}) CollectionUpdateMutation        { return m }
func (m *invalidCollectionUpdate) Key(key interface{}) CollectionUpdateMutation         { return m }
func (m *invalidCollectionUpdate) Element(element interface{}) CollectionUpdateMutation { return m }
func (m *invalidCollectionUpdate) Debug() CollectionUpdateMutation                      { return m }

func (m *invalidCollectionUpdate) Execute(ctx context.Context) (*UpdateResult, error) {
	return nil, m.err
}

type invalidCollectionSelect struct {
	err error
}

func (m *invalidCollectionSelect) Owner(id interface{}) CollectionSelectMutation { return m }
func (m *invalidCollectionSelect) Debug() CollectionSelectMutation               { return m }

func (m *invalidCollectionSelect) Execute(ctx context.Context) (*CollectionResult, error) {
	return nil, m.err
}
