package socket

import (
	"encoding/json"
	"errors"
	"event-bridge/contract"
	"event-bridge/domain"
	"event-bridge/mocks"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// fakeConn blocks reads until a message is pushed or the conn is closed.
type fakeConn struct {
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	written   [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.incoming:
		return websocket.TextMessage, data, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *fakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fixture struct {
	adapter *Adapter
	clock   *clock.Mock
	dialer  *mocks.MockDialer
	inbound *mocks.MockInboundHandler
	syncer  *mocks.MockSyncHandler
}

func newFixture(t *testing.T, opts Options) *fixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	f := &fixture{
		clock:   clock.NewMock(),
		dialer:  mocks.NewMockDialer(ctrl),
		inbound: mocks.NewMockInboundHandler(ctrl),
		syncer:  mocks.NewMockSyncHandler(ctrl),
	}
	if opts.URL == "" {
		opts.URL = "ws://gateway.test/ws/events"
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	f.adapter = NewAdapter(log, f.clock, f.dialer, opts, f.inbound, f.syncer,
		func() string { return "me" }, nil)
	t.Cleanup(f.adapter.Stop)
	return f
}

func (f *fixture) connected(t *testing.T) *fakeConn {
	conn := newFakeConn()
	f.dialer.EXPECT().DialContext(gomock.Any(), gomock.Any()).Return(conn, nil)
	f.adapter.Start()
	require.Eventually(t, f.adapter.IsOpen, waitFor, tick)
	return conn
}

func TestAdapter_Backoff_Grows_By_One_And_A_Half_Up_To_Cap(t *testing.T) {
	req := require.New(t)
	base, ceiling := time.Second, 5*time.Second
	f := newFixture(t, Options{BaseDelay: base, MaxDelay: ceiling})

	// Given the gateway is unreachable
	f.dialer.EXPECT().DialContext(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused")).AnyTimes()

	f.adapter.Start()

	expected := base
	for attempt := 1; attempt <= 7; attempt++ {
		want := expected
		req.Eventually(func() bool {
			state := f.adapter.State()
			return state.Attempts == attempt && state.PendingDelay == want
		}, waitFor, tick, "attempt %d should wait %s", attempt, want)
		req.Equal(domain.StatusDisconnected, f.adapter.State().Status)

		// When the reconnect timer fires
		f.clock.Add(want)
		expected = min(time.Duration(float64(expected)*1.5), ceiling)
	}
}

func TestAdapter_Successful_Connect_Resets_Delay(t *testing.T) {
	req := require.New(t)
	base := time.Second
	f := newFixture(t, Options{BaseDelay: base, MaxDelay: 10 * time.Second})
	conn := newFakeConn()

	// Given two failures then a success
	gomock.InOrder(
		f.dialer.EXPECT().DialContext(gomock.Any(), gomock.Any()).Return(nil, errors.New("refused")),
		f.dialer.EXPECT().DialContext(gomock.Any(), gomock.Any()).Return(nil, errors.New("refused")),
		f.dialer.EXPECT().DialContext(gomock.Any(), gomock.Any()).Return(conn, nil),
	)
	f.adapter.Start()

	req.Eventually(func() bool { return f.adapter.State().PendingDelay == base }, waitFor, tick)
	f.clock.Add(base)
	req.Eventually(func() bool { return f.adapter.State().PendingDelay == 1500*time.Millisecond }, waitFor, tick)
	f.clock.Add(1500 * time.Millisecond)

	// Then
	req.Eventually(f.adapter.IsOpen, waitFor, tick)
	state := f.adapter.State()
	req.Equal(domain.StatusConnected, state.Status)
	req.Equal(base, state.CurrentDelay)
	req.Zero(state.Attempts)

	// When the connection drops the next cycle starts from base again
	second := newFakeConn()
	f.dialer.EXPECT().DialContext(gomock.Any(), gomock.Any()).Return(second, nil)
	_ = conn.Close()
	req.Eventually(func() bool { return f.adapter.State().PendingDelay == base }, waitFor, tick)
	f.clock.Add(base)
	req.Eventually(f.adapter.IsOpen, waitFor, tick)
}

func TestAdapter_Sends_Session_Scope_First(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, Options{SessionScope: "room-42"})

	conn := f.connected(t)

	req.Eventually(func() bool { return len(conn.Written()) == 1 }, waitFor, tick)
	var msg map[string]string
	req.NoError(json.Unmarshal(conn.Written()[0], &msg))
	req.Equal(map[string]string{"type": "subscribe", "sessionScope": "room-42"}, msg)
}

func TestAdapter_UpdateSessionScope(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, Options{})

	// Given no scope at connect time nothing is sent
	conn := f.connected(t)
	req.Empty(conn.Written())

	// When the scope changes while connected
	f.adapter.UpdateSessionScope("room-7")

	// Then it is re-sent at once
	req.Len(conn.Written(), 1)
	req.Contains(string(conn.Written()[0]), `"sessionScope":"room-7"`)
	req.Equal("room-7", f.adapter.State().SessionScope)
}

func TestAdapter_UpdateSessionScope_While_Disconnected_Applies_On_Connect(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, Options{})

	f.adapter.UpdateSessionScope("later")
	conn := f.connected(t)

	req.Eventually(func() bool { return len(conn.Written()) == 1 }, waitFor, tick)
	req.Contains(string(conn.Written()[0]), `"sessionScope":"later"`)
}

func TestAdapter_Stop_Cancels_Reconnect_And_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, Options{BaseDelay: time.Second})
	f.dialer.EXPECT().DialContext(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("refused")).Times(1)

	f.adapter.Start()
	req.Eventually(func() bool { return f.adapter.State().PendingDelay == time.Second }, waitFor, tick)

	// When stopping twice
	f.adapter.Stop()
	f.adapter.Stop()

	// Then no reconnect ever happens
	f.clock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	state := f.adapter.State()
	req.True(state.Stopped)
	req.Zero(state.PendingDelay)
	req.Equal(domain.StatusDisconnected, state.Status)
}

func TestAdapter_Stop_Closes_Live_Socket(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, Options{})
	conn := f.connected(t)

	f.adapter.Stop()

	req.True(conn.IsClosed())
	req.False(f.adapter.IsOpen())
	req.False(f.adapter.Send(domain.NewSyncRequest("me", f.clock.Now())))

	// The read loop exit must not schedule a reconnect
	time.Sleep(20 * time.Millisecond)
	req.Zero(f.adapter.State().PendingDelay)
}

func TestAdapter_Send_While_Down_Is_A_No_Op(t *testing.T) {
	f := newFixture(t, Options{})
	require.False(t, f.adapter.Send(domain.NewSyncRequest("me", f.clock.Now())))
}

func TestAdapter_Inbound_Routing(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, Options{})
	conn := f.connected(t)

	event, err := domain.NewEventEnvelope("", 1, f.clock.Now(), domain.MediaSearch{Media: domain.Media{Query: "jazz"}})
	req.NoError(err)
	snapshot, err := domain.NewSyncSnapshot("agent", f.clock.Now(), nil)
	req.NoError(err)
	kicked, err := domain.NewEventEnvelope("", 2, f.clock.Now(), domain.ParticipantKicked{})
	req.NoError(err)
	kicked.TargetParticipantID = "someone-else"

	done := make(chan struct{})
	f.inbound.EXPECT().HandleInbound(Name, event).Times(1)
	f.syncer.EXPECT().HandleSnapshot(Name, snapshot).DoAndReturn(func(string, domain.Envelope) bool {
		close(done)
		return true
	})

	push := func(v any) {
		switch data := v.(type) {
		case domain.Envelope:
			raw, err := data.Encode()
			req.NoError(err)
			conn.incoming <- raw
		case string:
			conn.incoming <- []byte(data)
		}
	}

	// Malformed, misaddressed, tool diagnostics and sync requests are never forwarded
	push("{not json")
	push(kicked)
	push(`{"type":"tool_call","name":"open_note","targetParticipantId":"me"}`)
	push(domain.NewSyncRequest("agent", f.clock.Now()))
	push(event)
	push(snapshot)

	select {
	case <-done:
	case <-time.After(waitFor):
		req.Fail("snapshot never reached the sync handler")
	}
}

func TestAdapter_Send_Writes_Envelope(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, Options{})
	conn := f.connected(t)

	env, err := domain.NewEventEnvelope("me", 9, f.clock.Now(), domain.DesktopModeSwitch{Mode: "focus"})
	req.NoError(err)

	req.True(f.adapter.Send(env))
	written := conn.Written()
	req.Len(written, 1)
	decoded, err := domain.DecodeEnvelope(written[0])
	req.NoError(err)
	req.Equal(env, decoded)
}

var _ contract.Conn = (*fakeConn)(nil)
