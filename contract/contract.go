//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"event-bridge/domain"
	"event-bridge/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Listener receives the envelopes published on one router channel.
type Listener func(env domain.Envelope)

// Transport is one delivery path for envelopes.
// Send never fails loudly: it reports whether the envelope left the process.
type Transport interface {
	Name() string
	Send(env domain.Envelope) bool
	IsReady() bool
}

// Channel is the message primitive owned by a live call session.
type Channel interface {
	Send(data []byte) error
	OnMessage(handler func(data []byte))
}

// Conn is the subset of a websocket connection the socket adapter needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// Emitter sends a typed payload out as a freshly sequenced envelope.
type Emitter interface {
	Emit(payload domain.Payload) (domain.Envelope, bool)
}

// InboundHandler receives every event envelope a transport decoded.
type InboundHandler interface {
	HandleInbound(source string, env domain.Envelope)
}

// SyncHandler serves the out-of-band snapshot exchange.
type SyncHandler interface {
	HandleSyncRequest(reply Transport)
	HandleSnapshot(source string, env domain.Envelope) bool
}

type DiagnosticSink interface {
	Handle(e event.Event)
}

// TransportSelector picks the transport out-of-band messages travel on.
type TransportSelector interface {
	ActiveTransport() (Transport, bool)
}

// SnapshotSource holds the authoritative participant state.
type SnapshotSource interface {
	Snapshot() *domain.ParticipantsSnapshot
}

// Connector is a transport with an explicit lifecycle.
type Connector interface {
	Start()
	Stop()
}
