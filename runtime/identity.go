package runtime

import "sync"

// Identity is the locally known participant id. It starts from config and
// is set by the aggregator's OnLocalJoin hook once the call layer reports
// our own join.
type Identity struct {
	mu sync.RWMutex
	id string
}

func NewIdentity(id string) *Identity {
	return &Identity{id: id}
}

func (i *Identity) Get() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.id
}

func (i *Identity) Set(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.id = id
}
