// Package realtime binds the bridge to the data channel of a live call.
// The adapter never owns the call: it attaches to whatever channel the
// call layer hands over and forgets it on teardown.
package realtime

import (
	"event-bridge/contract"
	"event-bridge/domain"
	"event-bridge/domain/event"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
)

// Name identifies this transport in logs and diagnostics.
const Name = "realtime"

type Adapter struct {
	mu         sync.RWMutex
	log        *slog.Logger
	clock      clock.Clock
	channel    contract.Channel
	generation uint64
	inbound    contract.InboundHandler
	syncer     contract.SyncHandler
	localID    func() string
	sink       contract.DiagnosticSink
}

func NewAdapter(log *slog.Logger, clk clock.Clock, inbound contract.InboundHandler,
	syncer contract.SyncHandler, localID func() string, sink contract.DiagnosticSink) *Adapter {
	if sink == nil {
		sink = event.Discard{}
	}
	if localID == nil {
		localID = func() string { return "" }
	}
	return &Adapter{
		log:     log.With("transport", Name),
		clock:   clk,
		inbound: inbound,
		syncer:  syncer,
		localID: localID,
		sink:    sink,
	}
}

// SetSyncHandler is used when the sync service is built after the adapter.
func (a *Adapter) SetSyncHandler(syncer contract.SyncHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncer = syncer
}

// Initialize attaches to channel. It is a no-op while already initialized.
func (a *Adapter) Initialize(channel contract.Channel) {
	a.mu.Lock()
	if a.channel != nil {
		a.mu.Unlock()
		a.log.Debug("Realtime channel already initialized")
		return
	}
	a.generation++
	generation := a.generation
	a.channel = channel
	a.mu.Unlock()

	channel.OnMessage(func(data []byte) {
		a.receive(generation, data)
	})
	a.log.Info("Realtime channel initialized")
}

// Teardown forgets the channel when the call ends. The next Initialize is
// a fresh attach and messages still delivered by the old channel are ignored.
func (a *Adapter) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.channel == nil {
		return
	}
	a.channel = nil
	a.generation++
	a.log.Info("Realtime channel torn down")
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) IsReady() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.channel != nil
}

// Send is best-effort and silently no-ops without a channel.
func (a *Adapter) Send(env domain.Envelope) bool {
	a.mu.RLock()
	channel := a.channel
	a.mu.RUnlock()
	if channel == nil {
		return false
	}
	data, err := env.Encode()
	if err != nil {
		a.log.Error("Cannot encode envelope", "kind", env.Kind, "topic", env.Topic, "error", err)
		return false
	}
	if err := channel.Send(data); err != nil {
		a.log.Warn("Realtime send failed", "kind", env.Kind, "topic", env.Topic, "error", err)
		return false
	}
	return true
}

func (a *Adapter) receive(generation uint64, data []byte) {
	a.mu.RLock()
	current := a.generation == generation && a.channel != nil
	syncer := a.syncer
	a.mu.RUnlock()
	if !current {
		return
	}

	env, err := domain.DecodeEnvelope(data)
	if err != nil {
		a.sink.Handle(event.New(event.MalformedType,
			event.Malformed{Source: Name, Reason: err.Error()}, a.clock.Now()))
		return
	}

	// Applies to every kind, sync messages included.
	if env.IsTargeted() && env.TargetParticipantID != a.localID() {
		a.log.Debug("Discarding realtime message addressed to another participant",
			"kind", env.Kind, "target", env.TargetParticipantID)
		a.sink.Handle(event.New(event.MisaddressedType,
			event.Misaddressed{Target: env.TargetParticipantID, Topic: string(env.Topic)}, a.clock.Now()))
		return
	}

	switch env.Kind {
	case domain.KindSyncRequest:
		if syncer != nil {
			syncer.HandleSyncRequest(a)
		}
	case domain.KindSyncSnapshot:
		a.log.Debug("Sync snapshot observed", "sender", env.SenderID, "timestamp", env.Timestamp)
		if syncer != nil {
			syncer.HandleSnapshot(Name, env)
		}
	default:
		a.inbound.HandleInbound(Name, env)
	}
}
