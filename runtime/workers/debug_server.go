package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 2 * time.Second

// DebugServerWorker serves the inspection endpoints until ctx is done.
type DebugServerWorker struct {
	log     *slog.Logger
	addr    string
	handler http.Handler
	ready   chan net.Addr
}

func NewDebugServerWorker(log *slog.Logger, port int, handler http.Handler) *DebugServerWorker {
	return &DebugServerWorker{
		log:     log,
		addr:    fmt.Sprintf("0.0.0.0:%d", port),
		handler: handler,
		ready:   make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener is up.
func (w *DebugServerWorker) Ready() <-chan net.Addr { return w.ready }

func (w *DebugServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("debug server listen on %s: %w", w.addr, err)
	}
	server := &http.Server{Handler: w.handler, ReadHeaderTimeout: 5 * time.Second}
	w.log.Info(fmt.Sprintf("Debug server listening on http://%s/inspect", listener.Addr()))
	select {
	case w.ready <- listener.Addr():
	default:
	}

	errChan := make(chan error, 1)
	go func() { errChan <- server.Serve(listener) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
