package logging

import (
	"sync"
	"time"
)

// LogEntry is one record kept for GET /api/logs.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Ring keeps the last N values pushed to it.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	next  int // overwrite position once full
	limit int
}

// NewRing returns a ring holding at most limit values (minimum 1).
func NewRing[T any](limit int) *Ring[T] {
	limit = max(limit, 1)
	return &Ring[T]{items: make([]T, 0, limit), limit: limit}
}

// Push appends v, evicting the oldest value when full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) < r.limit {
		r.items = append(r.items, v)
		return
	}
	r.items[r.next] = v
	r.next = (r.next + 1) % r.limit
}

// Snapshot copies every value, oldest first.
func (r *Ring[T]) Snapshot() []T {
	return r.Last(0)
}

// Last copies the n newest values, oldest first. n <= 0 means all.
func (r *Ring[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := len(r.items)
	if size == 0 {
		return nil
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]T, n)
	// next is the oldest slot when full, 0 otherwise.
	start := (r.next + size - n) % size
	for i := range n {
		out[i] = r.items[(start+i)%size]
	}
	return out
}

// Len returns the number of values held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
