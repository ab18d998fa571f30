package workers

import (
	"event-bridge/contract"
	"event-bridge/domain"
	"event-bridge/domain/event"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
)

// EventFanout delivers one envelope to the listeners of one channel.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. Listeners run synchronously in subscription order.
// A listener that panics is recovered so the next listeners still receive
// the envelope.
type EventFanout struct {
	log   *slog.Logger
	sink  contract.DiagnosticSink
	clock clock.Clock
}

func NewEventFanout(log *slog.Logger, sink contract.DiagnosticSink, clk clock.Clock) *EventFanout {
	if sink == nil {
		sink = event.Discard{}
	}
	return &EventFanout{log: log, sink: sink, clock: clk}
}

// Fanout returns how many listeners completed without panicking.
func (w *EventFanout) Fanout(channel string, env domain.Envelope, listeners []contract.Listener) int {
	delivered := 0
	for _, listener := range listeners {
		if w.deliver(channel, env, listener) {
			delivered++
		}
	}
	return delivered
}

func (w *EventFanout) deliver(channel string, env domain.Envelope, listener contract.Listener) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			w.log.Error(fmt.Sprintf("Listener panicked on channel %s", channel),
				"topic", env.Topic, "sequence", env.Sequence, "panic", r)
			w.sink.Handle(event.New(event.ListenerPanicType,
				event.ListenerPanic{Channel: channel, Recovered: r}, w.clock.Now()))
		}
	}()
	listener(env)
	return true
}
