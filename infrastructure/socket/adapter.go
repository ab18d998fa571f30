// Package socket keeps a process-level WebSocket to the backend gateway
// open for as long as it is not explicitly stopped.
//
// The connection cycles disconnected -> connecting -> connected ->
// disconnected forever. Every unplanned close schedules exactly one
// reconnect on the injected clock, so tests drive the backoff without
// wall-clock waits.
package socket

import (
	"context"
	"encoding/json"
	"event-bridge/contract"
	"event-bridge/domain"
	"event-bridge/domain/event"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
)

const (
	Name = "socket"

	backoffMultiplier  = 1.5
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultDialTimeout = 10 * time.Second

	subscribeType = "subscribe"
	toolCallType  = "tool_call"
)

type Options struct {
	URL          string
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	DialTimeout  time.Duration
	SessionScope string
}

type Adapter struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	log     *slog.Logger
	clock   clock.Clock
	dialer  contract.Dialer
	inbound contract.InboundHandler
	syncer  contract.SyncHandler
	sink    contract.DiagnosticSink
	localID func() string

	url         string
	baseDelay   time.Duration
	maxDelay    time.Duration
	dialTimeout time.Duration

	status       domain.ConnectionStatus
	currentDelay time.Duration
	pendingDelay time.Duration
	attempts     int
	sessionScope string
	stopped      bool
	conn         contract.Conn
	timer        *clock.Timer
	cancelDial   context.CancelFunc
	// epoch invalidates goroutines of a previous Start once Stop ran.
	epoch uint64
}

func NewAdapter(log *slog.Logger, clk clock.Clock, dialer contract.Dialer, opts Options,
	inbound contract.InboundHandler, syncer contract.SyncHandler,
	localID func() string, sink contract.DiagnosticSink) *Adapter {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = max(defaultMaxDelay, opts.BaseDelay)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if sink == nil {
		sink = event.Discard{}
	}
	return &Adapter{
		log:          log.With("transport", Name),
		clock:        clk,
		dialer:       dialer,
		inbound:      inbound,
		syncer:       syncer,
		sink:         sink,
		localID:      localID,
		url:          opts.URL,
		baseDelay:    opts.BaseDelay,
		maxDelay:     opts.MaxDelay,
		dialTimeout:  opts.DialTimeout,
		status:       domain.StatusDisconnected,
		currentDelay: opts.BaseDelay,
		sessionScope: opts.SessionScope,
		stopped:      true,
	}
}

func (a *Adapter) SetSyncHandler(syncer contract.SyncHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncer = syncer
}

// Start begins connecting. It is a no-op while already started.
func (a *Adapter) Start() {
	a.mu.Lock()
	if !a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = false
	a.epoch++
	epoch := a.epoch
	a.currentDelay = a.baseDelay
	a.attempts = 0
	a.mu.Unlock()

	a.log.Info("Starting socket adapter", "url", a.url)
	go a.connect(epoch)
}

// Stop cancels the pending reconnect and closes the live socket.
// It is safe to call when already stopped.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.epoch++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pendingDelay = 0
	if a.cancelDial != nil {
		a.cancelDial()
		a.cancelDial = nil
	}
	conn := a.conn
	a.conn = nil
	a.status = domain.StatusDisconnected
	a.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	a.log.Info("Socket adapter stopped")
}

func (a *Adapter) connect(epoch uint64) {
	a.mu.Lock()
	if a.stopped || epoch != a.epoch {
		a.mu.Unlock()
		return
	}
	a.status = domain.StatusConnecting
	a.attempts++
	ctx, cancel := context.WithTimeout(context.Background(), a.dialTimeout)
	a.cancelDial = cancel
	a.mu.Unlock()

	conn, err := a.dialer.DialContext(ctx, a.url)
	cancel()

	a.mu.Lock()
	a.cancelDial = nil
	if a.stopped || epoch != a.epoch {
		a.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		a.mu.Unlock()
		a.log.Warn("Socket connection failed", "url", a.url, "error", err)
		a.handleClose(epoch, nil)
		return
	}
	a.conn = conn
	a.status = domain.StatusConnected
	a.currentDelay = a.baseDelay
	a.attempts = 0
	scope := a.sessionScope
	a.mu.Unlock()

	a.log.Info("Socket connected", "url", a.url)
	if scope != "" {
		a.sendScope(conn, scope)
	}
	a.readLoop(epoch, conn)
}

func (a *Adapter) readLoop(epoch uint64, conn contract.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			a.log.Debug("Socket read ended", "error", err)
			a.handleClose(epoch, conn)
			return
		}
		a.handleMessage(data)
	}
}

// handleClose schedules one reconnect. A close while a reconnect is already
// pending does not schedule another one.
func (a *Adapter) handleClose(epoch uint64, conn contract.Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if conn != nil && a.conn == conn {
		a.conn = nil
	}
	if a.stopped || epoch != a.epoch {
		return
	}
	a.status = domain.StatusDisconnected
	if a.timer != nil {
		return
	}
	delay := a.currentDelay
	a.pendingDelay = delay
	a.currentDelay = min(time.Duration(float64(delay)*backoffMultiplier), a.maxDelay)
	a.timer = a.clock.AfterFunc(delay, func() {
		a.mu.Lock()
		if epoch != a.epoch {
			a.mu.Unlock()
			return
		}
		a.timer = nil
		a.pendingDelay = 0
		a.mu.Unlock()
		a.connect(epoch)
	})
	a.log.Info("Socket reconnect scheduled", "delay", delay, "attempts", a.attempts)
}

// UpdateSessionScope re-sends the scope at once when connected; otherwise
// the key is used on the next connect.
func (a *Adapter) UpdateSessionScope(key string) {
	a.mu.Lock()
	a.sessionScope = key
	conn := a.conn
	connected := a.status == domain.StatusConnected
	a.mu.Unlock()

	if connected && conn != nil && key != "" {
		a.sendScope(conn, key)
	}
}

type scopeMessage struct {
	Type         string `json:"type"`
	SessionScope string `json:"sessionScope"`
}

func (a *Adapter) sendScope(conn contract.Conn, scope string) {
	data, err := json.Marshal(scopeMessage{Type: subscribeType, SessionScope: scope})
	if err != nil {
		a.log.Error("Cannot encode scope message", "error", err)
		return
	}
	if err := a.write(conn, data); err != nil {
		a.log.Warn("Cannot send session scope", "error", err)
	}
}

func (a *Adapter) write(conn contract.Conn, data []byte) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (a *Adapter) Name() string { return Name }

// IsOpen reports whether the socket is connected right now.
func (a *Adapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status == domain.StatusConnected && a.conn != nil
}

func (a *Adapter) IsReady() bool { return a.IsOpen() }

// Send is best-effort and returns false while the socket is down.
func (a *Adapter) Send(env domain.Envelope) bool {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return false
	}
	data, err := env.Encode()
	if err != nil {
		a.log.Error("Cannot encode envelope", "kind", env.Kind, "topic", env.Topic, "error", err)
		return false
	}
	if err := a.write(conn, data); err != nil {
		a.log.Warn("Socket send failed", "kind", env.Kind, "topic", env.Topic, "error", err)
		return false
	}
	return true
}

func (a *Adapter) State() domain.ReconnectState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.ReconnectState{
		Status:       a.status,
		CurrentDelay: a.currentDelay,
		PendingDelay: a.pendingDelay,
		Attempts:     a.attempts,
		SessionScope: a.sessionScope,
		Stopped:      a.stopped,
	}
}

// header holds the fields every gateway message may carry.
type header struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Target string `json:"targetParticipantId"`
}

func (a *Adapter) handleMessage(data []byte) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		a.sink.Handle(event.New(event.MalformedType,
			event.Malformed{Source: Name, Reason: err.Error()}, a.clock.Now()))
		return
	}
	if h.Target != "" && h.Target != a.localID() {
		a.log.Debug("Discarding socket message addressed to another participant", "target", h.Target)
		a.sink.Handle(event.New(event.MisaddressedType,
			event.Misaddressed{Target: h.Target}, a.clock.Now()))
		return
	}
	if h.Type == toolCallType {
		a.log.Info("Tool invocation observed", "tool", h.Name)
		return
	}

	env, err := domain.DecodeEnvelope(data)
	if err != nil {
		a.sink.Handle(event.New(event.MalformedType,
			event.Malformed{Source: Name, Reason: err.Error()}, a.clock.Now()))
		return
	}

	a.mu.Lock()
	syncer := a.syncer
	a.mu.Unlock()

	switch env.Kind {
	case domain.KindSyncSnapshot:
		if syncer != nil {
			syncer.HandleSnapshot(Name, env)
		}
	case domain.KindSyncRequest:
		a.log.Debug("Ignoring sync request on the socket", "sender", env.SenderID)
	default:
		a.inbound.HandleInbound(Name, env)
	}
}
