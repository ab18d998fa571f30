package runtime

import (
	"event-bridge/contract"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ChannelName names one router output.
type ChannelName string

type subscription struct {
	id       uuid.UUID
	listener contract.Listener
}

type Registry struct {
	mu          sync.RWMutex
	subscribers map[ChannelName][]subscription // channel -> ordered listeners
}

func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[ChannelName][]subscription),
	}
}

// Subscribe appends a listener to a channel and returns the function that
// removes it again. Calling the returned function more than once is harmless.
func (r *Registry) Subscribe(channel ChannelName, listener contract.Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	r.subscribers[channel] = append(r.subscribers[channel], subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(channel, id) })
	}
}

// unsubscribe removes one listener and drops the channel entry once empty
// to prevent the map from growing over time.
func (r *Registry) unsubscribe(channel ChannelName, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := lo.Reject(r.subscribers[channel], func(s subscription, _ int) bool {
		return s.id == id
	})
	if len(remaining) == 0 {
		delete(r.subscribers, channel)
		return
	}
	r.subscribers[channel] = remaining
}

// Listeners returns a copy so delivery never holds the lock.
func (r *Registry) Listeners(channel ChannelName) []contract.Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.subscribers[channel]
	if !ok {
		return nil
	}
	return lo.Map(subs, func(s subscription, _ int) contract.Listener {
		return s.listener
	})
}

func (r *Registry) Count(channel ChannelName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[channel])
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = make(map[ChannelName][]subscription)
}
