package adapter

import (
	"context"
	"sync"

	"printful-bridge/internal/model"
)

// Mock implements Adapter for testing.
// Each method can be configured via function fields. Notes and meta writes are
// recorded when no func is set.
type Mock struct {
	GetOrderFunc        func(ctx context.Context, id int64) (*model.Order, error)
	CreateOrderFunc     func(ctx context.Context, req *model.OrderRequest) (*model.Order, error)
	UpdateOrderMetaFunc func(ctx context.Context, id int64, meta model.MetaList) error
	AddOrderNoteFunc    func(ctx context.Context, id int64, note string) error

	mu    sync.Mutex
	Notes []string
	Meta  model.MetaList
}

// GetOrder calls the configured GetOrderFunc or returns not found.
func (m *Mock) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, id)
	}
	return nil, model.NewNotFoundError("order")
}

// CreateOrder calls the configured CreateOrderFunc or returns an error.
func (m *Mock) CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return nil, model.NewInternalError(nil)
}

// UpdateOrderMeta calls the configured UpdateOrderMetaFunc or records meta.
func (m *Mock) UpdateOrderMeta(ctx context.Context, id int64, meta model.MetaList) error {
	if m.UpdateOrderMetaFunc != nil {
		return m.UpdateOrderMetaFunc(ctx, id, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Meta = append(m.Meta, meta...)
	return nil
}

// AddOrderNote calls the configured AddOrderNoteFunc or records the note.
func (m *Mock) AddOrderNote(ctx context.Context, id int64, note string) error {
	if m.AddOrderNoteFunc != nil {
		return m.AddOrderNoteFunc(ctx, id, note)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notes = append(m.Notes, note)
	return nil
}

// RecordedNotes returns a copy of the recorded notes.
func (m *Mock) RecordedNotes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Notes...)
}

// Verify Mock implements Adapter interface at compile time.
var _ Adapter = (*Mock)(nil)
