// Package domain contains core concepts of the event bridge.
// This file defines participant records and the aggregate snapshot.
// No runtime, network, or UI logic should be added here.
package domain

// ParticipantRecord is one attendance in a call session.
// Records are created on join, mutated by join/leave only and removed on leave.
type ParticipantRecord struct {
	ID          string
	DisplayName string
	IsLocal     bool
	IsJoined    bool
	IsHidden    bool
}

// SnapshotParticipant is the public projection of a visible participant.
type SnapshotParticipant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	IsLocal     bool   `json:"isLocal"`
}

// ParticipantsSnapshot is derived on demand; hidden participants are
// excluded by construction.
type ParticipantsSnapshot struct {
	SessionKey   string                `json:"sessionKey"`
	Count        int                   `json:"count"`
	Participants []SnapshotParticipant `json:"participants"`
	Timestamp    int64                 `json:"timestamp"`
}
