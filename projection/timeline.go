// Package projection builds local views from observed envelopes.
// Handles ordering, deduplication, and the recent-history tail.
// Does not emit events or interact with UI directly.
package projection

import (
	"event-bridge/domain"
	"sync"
)

// Timeline is a bounded tail of accepted envelopes; the oldest entry is
// evicted once capacity is reached. It is a diagnostic aid only.
type Timeline struct {
	mu       sync.Mutex
	capacity int
	entries  []domain.Envelope
	next     int
	full     bool
}

func NewTimeline(capacity int) *Timeline {
	if capacity < 1 {
		capacity = 1
	}
	return &Timeline{
		capacity: capacity,
		entries:  make([]domain.Envelope, capacity),
	}
}

func (t *Timeline) Append(env domain.Envelope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[t.next] = env
	t.next = (t.next + 1) % t.capacity
	if t.next == 0 {
		t.full = true
	}
}

// Entries returns the tail oldest first.
func (t *Timeline) Entries() []domain.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]domain.Envelope(nil), t.entries[:t.next]...)
	}
	res := make([]domain.Envelope, 0, t.capacity)
	res = append(res, t.entries[t.next:]...)
	return append(res, t.entries[:t.next]...)
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		return t.capacity
	}
	return t.next
}

func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make([]domain.Envelope, t.capacity)
	t.next = 0
	t.full = false
}
