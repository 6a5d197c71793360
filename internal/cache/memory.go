package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the memory backend; the least recently used entry goes first.
const DefaultMaxEntries = 10000

// pinnedPrefixes hold state that cannot be refetched from Printful. Entries under them,
// and entries stored without a TTL, are never evicted; they leave only by expiry or delete.
var pinnedPrefixes = []string{GuestDraftPrefix, CartPrefix, FlowPrefix}

// Memory is an in-process Store guarded by a single mutex.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	accessList []string // LRU tracking: most recent at end
	maxEntries int
	unpinned   int // entries counted against maxEntries
	now        func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = never
	pinned    bool
}

func isPinned(key string, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	for _, p := range pinnedPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// NewMemory creates a memory store holding at most maxEntries (0 = DefaultMaxEntries).
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]*memoryEntry),
		accessList: make([]string, 0, 64),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

var _ Store = (*Memory)(nil)

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	m.recordAccessLocked(key)
	return clone(e.value), true, nil
}

// Set stores a copy of value.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &memoryEntry{value: clone(value), pinned: isPinned(key, ttl)}
	if old, exists := m.entries[key]; exists {
		if !old.pinned {
			m.unpinned--
		}
	} else if !e.pinned && m.unpinned >= m.maxEntries {
		m.evictOldestLocked()
	}
	if !e.pinned {
		m.unpinned++
	}

	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	m.recordAccessLocked(key)
	return nil
}

// Delete removes key. Missing keys are not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

// Take returns and removes key under the same lock.
func (m *Memory) Take(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	m.removeLocked(key)
	return e.value, true, nil
}

// DeletePrefix removes all keys with the given prefix.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			m.removeLocked(key)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored entries, expired ones included until touched.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) liveLocked(key string) (*memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.removeLocked(key)
		return nil, false
	}
	return e, true
}

func (m *Memory) removeLocked(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	if !e.pinned {
		m.unpinned--
	}
	delete(m.entries, key)
	for i, k := range m.accessList {
		if k == key {
			m.accessList = append(m.accessList[:i], m.accessList[i+1:]...)
			break
		}
	}
}

func (m *Memory) recordAccessLocked(key string) {
	for i, k := range m.accessList {
		if k == key {
			m.accessList = append(m.accessList[:i], m.accessList[i+1:]...)
			break
		}
	}
	m.accessList = append(m.accessList, key)
}

// evictOldestLocked drops the least recently used unpinned entry.
func (m *Memory) evictOldestLocked() {
	for i, k := range m.accessList {
		if e := m.entries[k]; e != nil && e.pinned {
			continue
		}
		m.accessList = append(m.accessList[:i], m.accessList[i+1:]...)
		delete(m.entries, k)
		m.unpinned--
		return
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
