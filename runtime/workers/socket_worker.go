package workers

import (
	"context"
	"event-bridge/contract"
	"log/slog"
)

// SocketWorker keeps a connector running for the lifetime of ctx.
// The connector retries on its own; the worker only owns start and stop.
type SocketWorker struct {
	log       *slog.Logger
	connector contract.Connector
}

func NewSocketWorker(log *slog.Logger, connector contract.Connector) *SocketWorker {
	return &SocketWorker{log: log, connector: connector}
}

func (w *SocketWorker) Run(ctx context.Context) error {
	w.log.Info("Starting socket worker")
	w.connector.Start()
	<-ctx.Done()
	w.connector.Stop()
	w.log.Debug("Context done, socket worker stopped")
	return nil
}
