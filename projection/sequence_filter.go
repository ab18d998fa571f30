package projection

import (
	"event-bridge/contract"
	"event-bridge/domain"
	"event-bridge/domain/event"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
)

type Verdict string

const (
	Accepted          Verdict = "accepted"
	Duplicate         Verdict = "duplicate"
	GapThenAccepted   Verdict = "gap-then-accepted"
	NotAddressedToYou Verdict = "misaddressed"
)

// Delivered reports whether the envelope must reach the router.
func (v Verdict) Delivered() bool {
	return v == Accepted || v == GapThenAccepted
}

// Gap is a diagnostic record, there is no retransmission.
type Gap struct {
	SenderID string `json:"senderId"`
	Expected uint64 `json:"expected"`
	Got      uint64 `json:"got"`
}

// SequenceFilter is the single ordering and idempotence boundary between
// both transports and the router. The last sequence seen is tracked per
// logical sender; the empty sender id is the backend agent.
type SequenceFilter struct {
	mu       sync.Mutex
	log      *slog.Logger
	clock    clock.Clock
	localID  func() string
	sink     contract.DiagnosticSink
	lastSeen map[string]uint64
	gaps     []Gap
	timeline *Timeline
}

func NewSequenceFilter(log *slog.Logger, clk clock.Clock, localID func() string,
	sink contract.DiagnosticSink, historyCapacity int) *SequenceFilter {
	if sink == nil {
		sink = event.Discard{}
	}
	return &SequenceFilter{
		log:      log,
		clock:    clk,
		localID:  localID,
		sink:     sink,
		lastSeen: make(map[string]uint64),
		timeline: NewTimeline(historyCapacity),
	}
}

// Admit decides whether env may be routed.
// The target check runs before duplicate detection: privately addressed
// envelopes may reuse sequence numbers other consumers see.
func (f *SequenceFilter) Admit(env domain.Envelope) Verdict {
	if env.IsTargeted() && env.TargetParticipantID != f.localID() {
		f.log.Debug("Discarding envelope addressed to another participant",
			"target", env.TargetParticipantID, "topic", env.Topic)
		f.sink.Handle(event.New(event.MisaddressedType,
			event.Misaddressed{Target: env.TargetParticipantID, Topic: string(env.Topic)}, f.clock.Now()))
		return NotAddressedToYou
	}

	f.mu.Lock()
	last := f.lastSeen[env.SenderID]
	if env.Sequence <= last {
		f.mu.Unlock()
		f.log.Debug("Duplicate envelope dropped",
			"sender", env.SenderID, "sequence", env.Sequence, "last_seen", last)
		f.sink.Handle(event.New(event.DuplicateDroppedType,
			event.DuplicateDropped{SenderID: env.SenderID, Sequence: env.Sequence, LastSeen: last}, f.clock.Now()))
		return Duplicate
	}

	verdict := Accepted
	var gap Gap
	if env.Sequence > last+1 {
		verdict = GapThenAccepted
		gap = Gap{SenderID: env.SenderID, Expected: last + 1, Got: env.Sequence}
		f.gaps = append(f.gaps, gap)
	}
	f.lastSeen[env.SenderID] = env.Sequence
	f.mu.Unlock()

	f.timeline.Append(env)
	now := f.clock.Now()
	if verdict == GapThenAccepted {
		f.log.Warn("Sequence gap detected",
			"sender", gap.SenderID, "expected", gap.Expected, "got", gap.Got)
		f.sink.Handle(event.New(event.SequenceGapType,
			event.SequenceGap{SenderID: gap.SenderID, Expected: gap.Expected, Got: gap.Got}, now))
	}
	f.sink.Handle(event.New(event.EnvelopeAcceptedType,
		event.EnvelopeAccepted{SenderID: env.SenderID, Sequence: env.Sequence, Topic: string(env.Topic)}, now))
	return verdict
}

// LastSequenceSeen returns the high-water mark for one sender.
func (f *SequenceFilter) LastSequenceSeen(senderID string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeen[senderID]
}

func (f *SequenceFilter) Gaps() []Gap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Gap(nil), f.gaps...)
}

func (f *SequenceFilter) History() []domain.Envelope {
	return f.timeline.Entries()
}

// Reset forgets every sender, gap and history entry.
func (f *SequenceFilter) Reset() {
	f.mu.Lock()
	f.lastSeen = make(map[string]uint64)
	f.gaps = nil
	f.mu.Unlock()
	f.timeline.Reset()
}
