// Package runtime handles envelope admission, routing and outbound emission.
// It orchestrates the bridge without containing transport or UI logic.
package runtime

import (
	"event-bridge/contract"
	"event-bridge/domain"
	"event-bridge/domain/event"
	"event-bridge/projection"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// LocalSource names envelopes emitted by this process.
const LocalSource = "local"

// Veto returns true to block an outbound send. It runs before sequence
// assignment, so a vetoed send never consumes a sequence number.
type Veto func(topic domain.Topic, payload domain.Payload) bool

// Bridge owns the per-process pipeline state: the sequence filter, the
// outbound sequencer and the set of transports. One Bridge per session.
type Bridge struct {
	mu         sync.RWMutex
	emitMu     sync.Mutex // sequence assignment through the last Send
	log        *slog.Logger
	clock      clock.Clock
	senderID   string
	filter     *projection.SequenceFilter
	router     *Router
	sequencer  *Sequencer
	sink       contract.DiagnosticSink
	transports []contract.Transport
	veto       Veto
}

func NewBridge(log *slog.Logger, clk clock.Clock, filter *projection.SequenceFilter,
	router *Router, sink contract.DiagnosticSink) *Bridge {
	if sink == nil {
		sink = event.Discard{}
	}
	return &Bridge{
		log:       log,
		clock:     clk,
		senderID:  uuid.NewString(),
		filter:    filter,
		router:    router,
		sequencer: NewSequencer(),
		sink:      sink,
	}
}

// SenderID is stamped on every envelope this process emits.
func (b *Bridge) SenderID() string { return b.senderID }

func (b *Bridge) Router() *Router { return b.router }

func (b *Bridge) Filter() *projection.SequenceFilter { return b.filter }

// AddTransport registers transports in preference order.
func (b *Bridge) AddTransport(transports ...contract.Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transports = append(b.transports, transports...)
}

// SetVeto installs the outbound veto. It covers every transport, not only
// the realtime channel, so one logical event keeps one sequence number.
func (b *Bridge) SetVeto(veto Veto) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.veto = veto
}

// ActiveTransport returns the first ready transport.
func (b *Bridge) ActiveTransport() (contract.Transport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lo.Find(b.transports, func(t contract.Transport) bool {
		return t.IsReady()
	})
}

// HandleInbound is the single entry point of both transports.
func (b *Bridge) HandleInbound(source string, env domain.Envelope) {
	if env.Kind != domain.KindEvent {
		b.log.Debug(fmt.Sprintf("Ignoring %s envelope from %s on the ordered path", env.Kind, source))
		return
	}
	verdict := b.filter.Admit(env)
	if !verdict.Delivered() {
		return
	}
	b.router.Publish(env)
}

// Emit sequences a payload, routes it locally and sends it on every ready
// transport. It reports whether at least one transport took the envelope.
// Concurrent calls are serialized so wire order matches sequence order;
// listeners must not call Emit synchronously from their callback.
func (b *Bridge) Emit(payload domain.Payload) (domain.Envelope, bool) {
	b.mu.RLock()
	veto := b.veto
	transports := append([]contract.Transport(nil), b.transports...)
	b.mu.RUnlock()

	if veto != nil && veto(payload.Topic(), payload) {
		b.log.Debug("Outbound envelope vetoed", "topic", payload.Topic())
		return domain.Envelope{}, false
	}

	env, err := domain.NewEventEnvelope(b.senderID, 0, b.clock.Now(), payload)
	if err != nil {
		b.log.Error("Cannot encode outbound payload", "topic", payload.Topic(), "error", err)
		return domain.Envelope{}, false
	}

	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	env.Sequence = b.sequencer.Next()

	// Admitting our own emission makes any echo from a transport a duplicate.
	b.HandleInbound(LocalSource, env)

	sent := false
	for _, t := range transports {
		if !t.IsReady() {
			continue
		}
		if t.Send(env) {
			sent = true
			continue
		}
		b.sink.Handle(event.New(event.SendDroppedType,
			event.SendDropped{Transport: t.Name(), Topic: string(env.Topic)}, b.clock.Now()))
	}
	return env, sent
}

// LastSequence returns the last outbound sequence number assigned.
func (b *Bridge) LastSequence() uint64 {
	return b.sequencer.Last()
}

// Reset clears the filter and the outbound counter. Subscriptions survive.
func (b *Bridge) Reset() {
	b.filter.Reset()
	b.sequencer.Reset()
}
