package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrJobNotFound is returned when no confirmation job exists for an order.
var ErrJobNotFound = errors.New("order: job not found")

// Job is one pending confirmation. At most one job exists per remote order.
type Job struct {
	RemoteOrderID int64     `json:"remote_order_id"`
	Attempt       int       `json:"attempt"`
	NotBefore     time.Time `json:"not_before"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Queue is durable confirmation work.
type Queue interface {
	// Enqueue inserts the job or replaces the pending job for the same order.
	Enqueue(ctx context.Context, job Job) error
	// Lease returns up to limit jobs due at now and hides them from other
	// Lease callers until now+lease.
	Lease(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error)
	// Complete removes the job. Completing a missing job is not an error.
	Complete(ctx context.Context, remoteOrderID int64) error
	Get(ctx context.Context, remoteOrderID int64) (*Job, error)
	List(ctx context.Context) ([]Job, error)
}

// MemoryQueue is a Queue for single-instance deployments and tests.
// Jobs do not survive a restart.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs map[int64]*Job
	now  func() time.Time
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{jobs: make(map[int64]*Job), now: time.Now}
}

var _ Queue = (*MemoryQueue)(nil)

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if existing, ok := q.jobs[job.RemoteOrderID]; ok {
		job.CreatedAt = existing.CreatedAt
	} else {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	q.jobs[job.RemoteOrderID] = &job
	return nil
}

func (q *MemoryQueue) Lease(_ context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	due := make([]*Job, 0)
	for _, j := range q.jobs {
		if !j.NotBefore.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(a, b int) bool {
		if due[a].NotBefore.Equal(due[b].NotBefore) {
			return due[a].RemoteOrderID < due[b].RemoteOrderID
		}
		return due[a].NotBefore.Before(due[b].NotBefore)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]Job, 0, len(due))
	for _, j := range due {
		out = append(out, *j)
		j.NotBefore = now.Add(lease)
		j.UpdatedAt = now
	}
	return out, nil
}

func (q *MemoryQueue) Complete(_ context.Context, remoteOrderID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.jobs, remoteOrderID)
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, remoteOrderID int64) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[remoteOrderID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (q *MemoryQueue) List(_ context.Context) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].NotBefore.Before(out[b].NotBefore) })
	return out, nil
}
