package e2e

import (
	"encoding/json"
	"event-bridge/domain"
	"event-bridge/infrastructure/realtime"
	"event-bridge/infrastructure/socket"
	"event-bridge/observability"
	"event-bridge/projection"
	"event-bridge/runtime"
	"event-bridge/runtime/workers"
	"event-bridge/services"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseBridgeSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseBridgeSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// Step prints a colorized header then runs fn as a subtest
func (s *BaseBridgeSuite) Step(name string, fn func()) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
	s.Run(name, fn)
}

// Node is one consumer process: both transports feeding one pipeline.
type Node struct {
	Name       string
	Identity   *runtime.Identity
	Filter     *projection.SequenceFilter
	Router     *runtime.Router
	Bridge     *runtime.Bridge
	Aggregator *services.ParticipantAggregator
	Sync       *services.SyncService
	Realtime   *realtime.Adapter
	Socket     *socket.Adapter
	Monitor    *observability.Monitor

	mu       sync.Mutex
	received []domain.Envelope
}

// NewNode wires a consumer. An empty socketURL leaves the socket unstarted.
func (s *BaseBridgeSuite) NewNode(name, participantID, socketURL string) *Node {
	log := logs.GetLoggerFromLevel(slog.LevelDebug).With("node", name)
	clk := clock.New()
	n := &Node{Name: name, Identity: runtime.NewIdentity(participantID)}
	n.Monitor = observability.NewMonitor(log)
	n.Filter = projection.NewSequenceFilter(log, clk, n.Identity.Get, n.Monitor, 50)
	n.Router = runtime.NewRouter(runtime.NewRegistry(), workers.NewEventFanout(log, n.Monitor, clk))
	n.Bridge = runtime.NewBridge(log, clk, n.Filter, n.Router, n.Monitor)
	n.Aggregator = services.NewParticipantAggregator(log, clk, n.Bridge, s.Config.DebounceDelay)
	n.Aggregator.OnLocalJoin = n.Identity.Set
	n.Sync = services.NewSyncService(log, clk, n.Bridge.SenderID(), n.Bridge, n.Aggregator)
	n.Realtime = realtime.NewAdapter(log, clk, n.Bridge, n.Sync, n.Identity.Get, n.Monitor)
	n.Socket = socket.NewAdapter(log, clk, socket.NewWebsocketDialer(time.Second), socket.Options{
		URL:          socketURL,
		BaseDelay:    s.Config.ReconnectDelay,
		MaxDelay:     4 * s.Config.ReconnectDelay,
		SessionScope: "session-" + name,
	}, n.Bridge, n.Sync, n.Identity.Get, n.Monitor)
	n.Bridge.AddTransport(n.Realtime, n.Socket)

	n.Router.Subscribe(runtime.CatchAllChannel, func(env domain.Envelope) {
		if s.Config.DebugJSON {
			raw, _ := json.MarshalIndent(env, "", "  ")
			s.T().Logf("%s received:\n%s", name, raw)
		}
		n.mu.Lock()
		n.received = append(n.received, env)
		n.mu.Unlock()
	})
	if socketURL != "" {
		n.Socket.Start()
		s.T().Cleanup(n.Socket.Stop)
	}
	return n
}

// Received returns the envelopes seen on the catch-all channel.
func (n *Node) Received() []domain.Envelope {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Envelope(nil), n.received...)
}

func (n *Node) Sequences() []uint64 {
	out := make([]uint64, 0)
	for _, env := range n.Received() {
		out = append(out, env.Sequence)
	}
	return out
}

// Pipe is an in-memory realtime channel between two ends.
type Pipe struct {
	mu      sync.RWMutex
	peer    *Pipe
	handler func(data []byte)
}

func NewPipe() (*Pipe, *Pipe) {
	a, b := &Pipe{}, &Pipe{}
	a.peer, b.peer = b, a
	return a, b
}

func (p *Pipe) Send(data []byte) error {
	p.peer.mu.RLock()
	handler := p.peer.handler
	p.peer.mu.RUnlock()
	if handler != nil {
		handler(append([]byte(nil), data...))
	}
	return nil
}

func (p *Pipe) OnMessage(handler func(data []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

// Envelope builds an agent envelope; it fails the test on encoding errors.
func (s *BaseBridgeSuite) Envelope(seq uint64, payload domain.Payload) domain.Envelope {
	env, err := domain.NewEventEnvelope("", seq, time.Now(), payload)
	s.Require().NoError(err)
	return env
}

func (s *BaseBridgeSuite) Encode(env domain.Envelope) []byte {
	raw, err := env.Encode()
	s.Require().NoError(err)
	return raw
}
