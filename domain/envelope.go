package domain

import (
	"encoding/json"
	"event-bridge/errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Version is the envelope protocol generation.
const Version = 1

// Kind discriminates ordered events from the out-of-band sync exchange.
type Kind string

const (
	KindEvent        Kind = "event"
	KindSyncRequest  Kind = "syncRequest"
	KindSyncSnapshot Kind = "syncSnapshot"
)

// Envelope is the wire format shared by both transports.
// Sequence numbers are assigned by the sender and are identical on both
// transports for the same logical event.
type Envelope struct {
	Version             int             `json:"version" validate:"eq=1"`
	Kind                Kind            `json:"kind" validate:"oneof=event syncRequest syncSnapshot"`
	Sequence            uint64          `json:"sequence,omitempty" validate:"required_if=Kind event"`
	Timestamp           int64           `json:"timestamp"`
	Topic               Topic           `json:"topic,omitempty" validate:"required_if=Kind event"`
	Payload             json.RawMessage `json:"payload,omitempty"`
	TargetParticipantID string          `json:"targetParticipantId,omitempty"`
	SenderID            string          `json:"senderId,omitempty"`
}

var validate = validator.New()

// Validate checks the envelope shape.
func (e Envelope) Validate() error {
	if e.Version != Version {
		return fmt.Errorf("%w: %d", errors.ErrUnsupportedVersion, e.Version)
	}
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrNotEnvelope, err)
	}
	return nil
}

// IsTargeted reports whether the envelope is privately addressed.
func (e Envelope) IsTargeted() bool {
	return e.TargetParticipantID != ""
}

// Time converts the sender-side epoch milliseconds.
func (e Envelope) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// probe only looks at the discriminator so foreign shapes are cheap to reject.
type probe struct {
	Kind Kind `json:"kind"`
}

// DecodeEnvelope parses raw bytes coming from either transport.
// Anything that is not JSON or does not carry a known kind returns
// ErrNotEnvelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrNotEnvelope, err)
	}
	switch p.Kind {
	case KindEvent, KindSyncRequest, KindSyncSnapshot:
	default:
		return Envelope{}, errors.ErrNotEnvelope
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrNotEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Encode marshals the envelope for a transport.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// NewEventEnvelope wraps a typed payload. The topic comes from the payload.
func NewEventEnvelope(senderID string, sequence uint64, at time.Time, payload Payload) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", payload.Topic(), err)
	}
	return Envelope{
		Version:   Version,
		Kind:      KindEvent,
		Sequence:  sequence,
		Timestamp: at.UnixMilli(),
		Topic:     payload.Topic(),
		Payload:   raw,
		SenderID:  senderID,
	}, nil
}

// NewSyncRequest builds the out-of-band request. It carries no sequence.
func NewSyncRequest(senderID string, at time.Time) Envelope {
	return Envelope{
		Version:   Version,
		Kind:      KindSyncRequest,
		Timestamp: at.UnixMilli(),
		SenderID:  senderID,
	}
}

// NewSyncSnapshot answers a sync request. A nil snapshot is encoded as null.
func NewSyncSnapshot(senderID string, at time.Time, snapshot *ParticipantsSnapshot) (Envelope, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	return Envelope{
		Version:   Version,
		Kind:      KindSyncSnapshot,
		Timestamp: at.UnixMilli(),
		Payload:   raw,
		SenderID:  senderID,
	}, nil
}

// DecodeSnapshot reads the snapshot carried by a syncSnapshot envelope.
// It returns nil when the sender had no state.
func DecodeSnapshot(env Envelope) (*ParticipantsSnapshot, error) {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, nil
	}
	var snapshot ParticipantsSnapshot
	if err := json.Unmarshal(env.Payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}
