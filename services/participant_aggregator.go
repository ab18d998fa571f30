package services

import (
	"event-bridge/contract"
	"event-bridge/domain"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

const defaultDebounceDelay = 150 * time.Millisecond

// ParticipantAggregator is the only owner of the participant map.
// Join and leave signals come straight from the call layer; bursts are
// coalesced into one participants-changed envelope per debounce window.
type ParticipantAggregator struct {
	mu               sync.Mutex
	log              *slog.Logger
	clock            clock.Clock
	emitter          contract.Emitter
	debounce         time.Duration
	order            []string
	records          map[string]domain.ParticipantRecord
	firstJoinEmitted bool
	sessionKey       string
	observed         bool
	timer            *clock.Timer
	generation       uint64
	// OnLocalJoin receives our own participant id when the call layer
	// reports it, so targeted envelopes can be recognized.
	OnLocalJoin func(participantID string)
}

func NewParticipantAggregator(log *slog.Logger, clk clock.Clock, emitter contract.Emitter,
	debounce time.Duration) *ParticipantAggregator {
	if debounce <= 0 {
		debounce = defaultDebounceDelay
	}
	return &ParticipantAggregator{
		log:      log,
		clock:    clk,
		emitter:  emitter,
		debounce: debounce,
		records:  make(map[string]domain.ParticipantRecord),
	}
}

// RecordJoin upserts id as joined. The first visible remote join of the
// process lifetime is announced at once, outside the debounce.
func (a *ParticipantAggregator) RecordJoin(sessionKey, id, displayName string, isLocal, isHidden bool) {
	a.mu.Lock()
	a.touch(sessionKey)
	if _, ok := a.records[id]; !ok {
		a.order = append(a.order, id)
	}
	a.records[id] = domain.ParticipantRecord{
		ID:          id,
		DisplayName: displayName,
		IsLocal:     isLocal,
		IsJoined:    true,
		IsHidden:    isHidden,
	}
	first := !a.firstJoinEmitted && !isLocal && !isHidden
	if first {
		a.firstJoinEmitted = true
	}
	a.schedule()
	onLocalJoin := a.OnLocalJoin
	a.mu.Unlock()

	if isLocal && onLocalJoin != nil {
		onLocalJoin(id)
	}

	if first {
		a.log.Info("First participant joined", "session", sessionKey, "participant", id)
		a.emitter.Emit(domain.FirstParticipantJoined{ParticipantRef: domain.ParticipantRef{
			SessionKey:    sessionKey,
			ParticipantID: id,
			DisplayName:   displayName,
		}})
	}
}

func (a *ParticipantAggregator) RecordLeave(sessionKey, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touch(sessionKey)
	if _, ok := a.records[id]; ok {
		delete(a.records, id)
		a.order = lo.Without(a.order, id)
	} else {
		a.log.Debug("Leave for an unknown participant", "session", sessionKey, "participant", id)
	}
	a.schedule()
}

func (a *ParticipantAggregator) touch(sessionKey string) {
	a.observed = true
	if sessionKey != "" {
		a.sessionKey = sessionKey
	}
}

// schedule restarts the debounce window; at most one flush is pending.
func (a *ParticipantAggregator) schedule() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.generation++
	generation := a.generation
	a.timer = a.clock.AfterFunc(a.debounce, func() {
		a.flush(generation)
	})
}

func (a *ParticipantAggregator) flush(generation uint64) {
	a.mu.Lock()
	if generation != a.generation {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	if snapshot == nil {
		return
	}
	a.log.Debug("Flushing participants snapshot", "session", snapshot.SessionKey, "count", snapshot.Count)
	a.emitter.Emit(domain.ParticipantsChanged{ParticipantsSnapshot: *snapshot})
}

// Snapshot reads the current state without waiting for a flush.
// It returns nil until a session has been observed.
func (a *ParticipantAggregator) Snapshot() *domain.ParticipantsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *ParticipantAggregator) snapshotLocked() *domain.ParticipantsSnapshot {
	if !a.observed {
		return nil
	}
	visible := lo.Filter(a.orderedLocked(), func(r domain.ParticipantRecord, _ int) bool {
		return r.IsJoined && !r.IsHidden
	})
	participants := lo.Map(visible, func(r domain.ParticipantRecord, _ int) domain.SnapshotParticipant {
		return domain.SnapshotParticipant{ID: r.ID, DisplayName: r.DisplayName, IsLocal: r.IsLocal}
	})
	return &domain.ParticipantsSnapshot{
		SessionKey:   a.sessionKey,
		Count:        len(participants),
		Participants: participants,
		Timestamp:    a.clock.Now().UnixMilli(),
	}
}

func (a *ParticipantAggregator) orderedLocked() []domain.ParticipantRecord {
	return lo.Map(a.order, func(id string, _ int) domain.ParticipantRecord {
		return a.records[id]
	})
}

// Tracked returns every record, hidden ones included, in join order.
func (a *ParticipantAggregator) Tracked() []domain.ParticipantRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orderedLocked()
}

// Reset drops all state and any pending flush.
func (a *ParticipantAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.generation++
	a.order = nil
	a.records = make(map[string]domain.ParticipantRecord)
	a.firstJoinEmitted = false
	a.sessionKey = ""
	a.observed = false
}
