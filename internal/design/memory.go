package design

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same uniqueness rules as the
// Postgres table. Used when no database is configured and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*Design
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]*Design), now: time.Now}
}

func (m *MemoryStore) Upsert(_ context.Context, d *Design) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, row := range m.rows {
		if row.UserID == d.UserID && row.ExternalProductID != "" && row.ExternalProductID == d.ExternalProductID {
			mockup := row.MockupURL
			m.overwrite(row, d, now)
			if row.MockupURL == "" {
				row.MockupURL = mockup
			}
			return row.ID, nil
		}
	}
	m.nextID++
	row := &Design{ID: m.nextID, UserID: d.UserID, CreatedAt: now}
	m.overwrite(row, d, now)
	m.rows[row.ID] = row
	return row.ID, nil
}

func (m *MemoryStore) Insert(_ context.Context, d *Design) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.nextID++
	row := *d
	row.ID = m.nextID
	row.DesignName = orDefaultName(d.DesignName)
	row.ExternalProductID = ""
	row.CreatedAt, row.UpdatedAt, row.LastSaved = now, now, now
	m.rows[row.ID] = &row
	return row.ID, nil
}

func (m *MemoryStore) Replace(_ context.Context, id int64, d *Design) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.UserID != d.UserID {
		return ErrNotFound
	}
	for _, other := range m.rows {
		if other.ID != id && other.UserID == d.UserID && d.ExternalProductID != "" && other.ExternalProductID == d.ExternalProductID {
			return ErrDuplicate
		}
	}
	mockup := row.MockupURL
	m.overwrite(row, d, m.now())
	if row.MockupURL == "" {
		row.MockupURL = mockup
	}
	return nil
}

// overwrite copies the mutable columns of d onto row.
func (m *MemoryStore) overwrite(row, d *Design, now time.Time) {
	row.ProductID = d.ProductID
	row.DesignData = ""
	row.DesignName = orDefaultName(d.DesignName)
	row.Status = d.Status
	row.ExternalProductID = d.ExternalProductID
	row.TemplateID = d.TemplateID
	row.MockupURL = d.MockupURL
	row.UnitPrice = d.UnitPrice
	row.Currency = d.Currency
	row.VariantID = d.VariantID
	row.DesignCategory = d.DesignCategory
	row.UpdatedAt = now
	row.LastSaved = now
}

func (m *MemoryStore) Get(_ context.Context, id, userID int64) (*Design, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, userID int64) ([]Design, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Design{}
	for _, row := range m.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSaved.Equal(out[j].LastSaved) {
			return out[i].LastSaved.After(out[j].LastSaved)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) SetMockup(_ context.Context, id, userID int64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row, ok := m.rows[id]; ok && row.UserID == userID {
		row.MockupURL = url
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.UserID != userID {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}
