package workers

import (
	"context"
	"event-bridge/contract"
	"event-bridge/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultWaitTimeBeforeRestart = 200 * time.Millisecond

// Supervisor keeps the long-lived workers of the bridge alive.
// A worker returning nil is done for good; a worker that panics or
// returns an error is restarted after restartWait until the context ends.
type Supervisor struct {
	Cancel      context.CancelFunc
	wg          *sync.WaitGroup
	log         *slog.Logger
	workers     []contract.Worker
	restartWait time.Duration
	// OnRestarted is called before each restart, from the worker goroutine.
	OnRestarted func(workerName string)
}

func NewSupervisor(log *slog.Logger, restartWait time.Duration) *Supervisor {
	if restartWait <= 0 {
		restartWait = defaultWaitTimeBeforeRestart
	}
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartWait: restartWait}
}

// Run blocks until every worker has stopped.
// Cancelling the parent ctx or calling Stop ends the supervision.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs one worker in its own goroutine under the restart policy.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		for ctx.Err() == nil {
			err := s.runOnce(ctx, name, worker)
			switch {
			case err == nil:
				s.log.Info(fmt.Sprintf("Worker finished : %s", name))
				return
			case ctx.Err() != nil:
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err, "in", s.restartWait)
			if s.OnRestarted != nil {
				s.OnRestarted(name)
			}
			timer := time.NewTimer(s.restartWait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		s.log.Info(fmt.Sprintf("Stopping : %s", name))
	}()
}

// runOnce converts a panic into ErrWorkerPanic so a single worker cannot
// take the process down.
func (s *Supervisor) runOnce(ctx context.Context, name string, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Worker panic recovered", "name", name, "panic", r)
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels the supervised context; Run returns once every worker exits.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
