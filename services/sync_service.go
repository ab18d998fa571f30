package services

import (
	"event-bridge/contract"
	"event-bridge/domain"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
)

// SyncService runs the out-of-band request/snapshot exchange. Sync
// messages carry no sequence number and never touch the sequence filter.
type SyncService struct {
	mu         sync.Mutex
	log        *slog.Logger
	clock      clock.Clock
	senderID   string
	transports contract.TransportSelector
	source     contract.SnapshotSource
	latest     *domain.ParticipantsSnapshot
	latestAt   int64
	received   bool
	// OnSnapshot is called with every snapshot that became authoritative.
	OnSnapshot func(snapshot *domain.ParticipantsSnapshot)
}

func NewSyncService(log *slog.Logger, clk clock.Clock, senderID string,
	transports contract.TransportSelector, source contract.SnapshotSource) *SyncService {
	return &SyncService{
		log:        log,
		clock:      clk,
		senderID:   senderID,
		transports: transports,
		source:     source,
	}
}

// RequestSync asks whoever holds the participant state for a snapshot.
func (s *SyncService) RequestSync() bool {
	transport, ok := s.transports.ActiveTransport()
	if !ok {
		s.log.Debug("No transport ready for a sync request")
		return false
	}
	return transport.Send(domain.NewSyncRequest(s.senderID, s.clock.Now()))
}

// HandleSyncRequest answers on the transport the request came from.
func (s *SyncService) HandleSyncRequest(reply contract.Transport) {
	var snapshot *domain.ParticipantsSnapshot
	if s.source != nil {
		snapshot = s.source.Snapshot()
	}
	env, err := domain.NewSyncSnapshot(s.senderID, s.clock.Now(), snapshot)
	if err != nil {
		s.log.Error("Cannot build sync snapshot", "error", err)
		return
	}
	if !reply.Send(env) {
		s.log.Debug("Sync snapshot not sent", "transport", reply.Name())
	}
}

// HandleSnapshot keeps the most recent snapshot by timestamp. Older ones
// lose the race and are discarded; it reports whether env was kept.
func (s *SyncService) HandleSnapshot(source string, env domain.Envelope) bool {
	snapshot, err := domain.DecodeSnapshot(env)
	if err != nil {
		s.log.Debug("Discarding unreadable sync snapshot", "source", source, "error", err)
		return false
	}

	s.mu.Lock()
	if s.received && env.Timestamp < s.latestAt {
		s.mu.Unlock()
		s.log.Debug("Discarding stale sync snapshot", "source", source,
			"timestamp", env.Timestamp, "latest", s.latestAt)
		return false
	}
	s.latest = snapshot
	s.latestAt = env.Timestamp
	s.received = true
	onSnapshot := s.OnSnapshot
	s.mu.Unlock()

	if onSnapshot != nil {
		onSnapshot(snapshot)
	}
	return true
}

// Latest returns the authoritative snapshot, nil if none or if the
// sender had no state.
func (s *SyncService) Latest() *domain.ParticipantsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *SyncService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = nil
	s.latestAt = 0
	s.received = false
}
