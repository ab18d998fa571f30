package runtime

import "sync/atomic"

// Sequencer hands out the outbound sequence numbers of this process,
// starting at 1 and increasing by exactly one per logical event.
type Sequencer struct {
	last atomic.Uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Last returns the most recently assigned number, 0 if none.
func (s *Sequencer) Last() uint64 {
	return s.last.Load()
}

func (s *Sequencer) Reset() {
	s.last.Store(0)
}
