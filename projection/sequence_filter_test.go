package projection

import (
	"event-bridge/domain"
	"event-bridge/domain/event"
	"log/slog"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []event.Event
}

func (r *recordingSink) Handle(e event.Event) {
	r.events = append(r.events, e)
}

func (r *recordingSink) count(t event.Type) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newFilter(localID string, sink *recordingSink) *SequenceFilter {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewSequenceFilter(log, clock.NewMock(), func() string { return localID }, sink, 10)
}

func envelope(seq uint64) domain.Envelope {
	return domain.Envelope{
		Version:  domain.Version,
		Kind:     domain.KindEvent,
		Sequence: seq,
		Topic:    domain.TopicNoteOpen,
	}
}

func TestSequenceFilter_Admit_In_Order(t *testing.T) {
	req := require.New(t)
	filter := newFilter("me", &recordingSink{})

	req.Equal(Accepted, filter.Admit(envelope(1)))
	req.Equal(Accepted, filter.Admit(envelope(2)))
	req.Equal(Accepted, filter.Admit(envelope(3)))

	req.Equal(uint64(3), filter.LastSequenceSeen(""))
	req.Empty(filter.Gaps())
	req.Len(filter.History(), 3)
}

func TestSequenceFilter_Admit_Duplicate_From_Second_Transport(t *testing.T) {
	req := require.New(t)
	sink := &recordingSink{}
	filter := newFilter("me", sink)

	// Given sequence 1 delivered by the realtime channel
	req.Equal(Accepted, filter.Admit(envelope(1)))

	// When the socket delivers the same logical event
	verdict := filter.Admit(envelope(1))

	// Then it is dropped without advancing anything
	req.Equal(Duplicate, verdict)
	req.False(verdict.Delivered())
	req.Equal(uint64(1), filter.LastSequenceSeen(""))
	req.Len(filter.History(), 1)
	req.Equal(1, sink.count(event.DuplicateDroppedType))
}

func TestSequenceFilter_Admit_Stale_Is_Duplicate(t *testing.T) {
	req := require.New(t)
	filter := newFilter("me", &recordingSink{})

	filter.Admit(envelope(5))

	req.Equal(Duplicate, filter.Admit(envelope(3)))
	req.Equal(uint64(5), filter.LastSequenceSeen(""))
}

func TestSequenceFilter_Admit_Gap_Recorded_Once(t *testing.T) {
	req := require.New(t)
	sink := &recordingSink{}
	filter := newFilter("me", sink)

	// Given sequence 3 never arrives
	req.Equal(Accepted, filter.Admit(envelope(1)))
	req.Equal(Accepted, filter.Admit(envelope(2)))

	// When sequence 4 arrives
	verdict := filter.Admit(envelope(4))

	// Then it is still accepted and the gap is recorded exactly once
	req.Equal(GapThenAccepted, verdict)
	req.True(verdict.Delivered())
	req.Equal(uint64(4), filter.LastSequenceSeen(""))
	req.Equal([]Gap{{SenderID: "", Expected: 3, Got: 4}}, filter.Gaps())
	req.Equal(1, sink.count(event.SequenceGapType))

	// And the late sequence 3 is a duplicate, not a second gap
	req.Equal(Duplicate, filter.Admit(envelope(3)))
	req.Len(filter.Gaps(), 1)
}

func TestSequenceFilter_Admit_Target_Mismatch(t *testing.T) {
	req := require.New(t)
	sink := &recordingSink{}
	filter := newFilter("me", sink)

	env := envelope(1)
	env.TargetParticipantID = "someone-else"

	req.Equal(NotAddressedToYou, filter.Admit(env))
	req.Equal(uint64(0), filter.LastSequenceSeen(""))
	req.Empty(filter.History())
	req.Equal(1, sink.count(event.MisaddressedType))
}

func TestSequenceFilter_Admit_Target_Checked_Before_Duplicate(t *testing.T) {
	req := require.New(t)
	filter := newFilter("me", &recordingSink{})

	// Given sequence 2 already seen
	filter.Admit(envelope(1))
	filter.Admit(envelope(2))

	// When a targeted envelope for someone else reuses sequence 2
	other := envelope(2)
	other.TargetParticipantID = "someone-else"

	// Then it is reported as misaddressed rather than duplicate
	req.Equal(NotAddressedToYou, filter.Admit(other))

	// And a targeted envelope for us goes through the normal checks
	mine := envelope(3)
	mine.TargetParticipantID = "me"
	req.Equal(Accepted, filter.Admit(mine))
}

func TestSequenceFilter_Admit_Independent_Senders(t *testing.T) {
	req := require.New(t)
	filter := newFilter("me", &recordingSink{})

	agent := envelope(10)
	tab := envelope(1)
	tab.SenderID = "tab-1"

	filter.Admit(envelope(9))
	req.Equal(Accepted, filter.Admit(agent))
	req.Equal(Accepted, filter.Admit(tab))
	req.Equal(uint64(10), filter.LastSequenceSeen(""))
	req.Equal(uint64(1), filter.LastSequenceSeen("tab-1"))
}

func TestSequenceFilter_History_Is_Bounded(t *testing.T) {
	req := require.New(t)
	filter := newFilter("me", &recordingSink{})

	for seq := uint64(1); seq <= 25; seq++ {
		filter.Admit(envelope(seq))
	}

	history := filter.History()
	req.Len(history, 10)
	req.Equal(uint64(16), history[0].Sequence)
	req.Equal(uint64(25), history[9].Sequence)
}

func TestSequenceFilter_Reset(t *testing.T) {
	req := require.New(t)
	filter := newFilter("me", &recordingSink{})
	filter.Admit(envelope(1))
	filter.Admit(envelope(3))

	filter.Reset()

	req.Zero(filter.LastSequenceSeen(""))
	req.Empty(filter.Gaps())
	req.Empty(filter.History())
	req.Equal(Accepted, filter.Admit(envelope(1)))
}
