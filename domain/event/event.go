// Package event holds the diagnostic events raised by the bridge pipeline.
// They never influence delivery; they feed counters, logs and tooling.
package event

import "time"

type Type string

const (
	EnvelopeAcceptedType Type = "ENVELOPE_ACCEPTED"
	DuplicateDroppedType Type = "DUPLICATE_DROPPED"
	SequenceGapType      Type = "SEQUENCE_GAP"
	MisaddressedType     Type = "MISADDRESSED"
	MalformedType        Type = "MALFORMED"
	ListenerPanicType    Type = "LISTENER_PANIC"
	SendDroppedType      Type = "SEND_DROPPED"
	WorkerRestartedType  Type = "WORKER_RESTARTED_AFTER_PANIC"
)

type Event struct {
	Type    Type
	Payload any
	At      time.Time
}

type EnvelopeAccepted struct {
	SenderID string
	Sequence uint64
	Topic    string
}

type DuplicateDropped struct {
	SenderID string
	Sequence uint64
	LastSeen uint64
}

// SequenceGap records that Got arrived while Expected was still missing.
type SequenceGap struct {
	SenderID string
	Expected uint64
	Got      uint64
}

type Misaddressed struct {
	Target string
	Topic  string
}

type Malformed struct {
	Source string
	Reason string
}

type ListenerPanic struct {
	Channel   string
	Recovered any
}

type SendDropped struct {
	Transport string
	Topic     string
}

type WorkerRestarted struct {
	WorkerName string
}

func New(t Type, payload any, at time.Time) Event {
	return Event{Type: t, Payload: payload, At: at}
}
