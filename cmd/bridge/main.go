package main

import (
	"context"
	"event-bridge/domain"
	"event-bridge/domain/event"
	"event-bridge/infrastructure/realtime"
	"event-bridge/infrastructure/socket"
	"event-bridge/internal"
	"event-bridge/observability"
	"event-bridge/projection"
	"event-bridge/runtime"
	"event-bridge/runtime/workers"
	"event-bridge/services"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bridge terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires one bridge per process and blocks until SIGINT or SIGTERM.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	url, err := socket.ResolveURL(config.SocketURL, config.PageOrigin, config.SocketPath, config.SocketFallbackPort)
	if err != nil {
		return exitConfig, err
	}

	// 2. Pipeline: filter -> router, fed by both transports
	clk := clock.New()
	monitor := observability.NewMonitor(log)
	identity := runtime.NewIdentity(config.ParticipantID)
	filter := projection.NewSequenceFilter(log, clk, identity.Get, monitor, config.HistoryCapacity)
	router := runtime.NewRouter(runtime.NewRegistry(), workers.NewEventFanout(log, monitor, clk))
	bridge := runtime.NewBridge(log, clk, filter, router, monitor)

	aggregator := services.NewParticipantAggregator(log, clk, bridge, config.DebounceDelay)
	aggregator.OnLocalJoin = identity.Set
	syncService := services.NewSyncService(log, clk, bridge.SenderID(), bridge, aggregator)
	syncService.OnSnapshot = func(snapshot *domain.ParticipantsSnapshot) {
		if snapshot == nil {
			log.Info("Sync snapshot received, no participant state yet")
			return
		}
		log.Info("Sync snapshot received", "session", snapshot.SessionKey, "count", snapshot.Count)
	}

	// The realtime adapter stays idle until a call layer attaches a data channel.
	realtimeAdapter := realtime.NewAdapter(log, clk, bridge, syncService, identity.Get, monitor)
	socketAdapter := socket.NewAdapter(log, clk, socket.NewWebsocketDialer(config.DialTimeout), socket.Options{
		URL:          url,
		BaseDelay:    config.ReconnectBaseDelay,
		MaxDelay:     config.ReconnectMaxDelay,
		DialTimeout:  config.DialTimeout,
		SessionScope: config.SessionScope,
	}, bridge, syncService, identity.Get, monitor)
	bridge.AddTransport(realtimeAdapter, socketAdapter)

	router.Subscribe(runtime.CatchAllChannel, func(env domain.Envelope) {
		log.Info("Envelope received", "sequence", env.Sequence, "topic", env.Topic,
			"sender", env.SenderID, "payload", string(env.Payload))
	})
	router.Subscribe(runtime.ContentChangedChannel, func(env domain.Envelope) {
		log.Debug("Content changed", "topic", env.Topic)
	})

	// 3. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.OnRestarted = func(workerName string) {
		monitor.Handle(event.New(event.WorkerRestartedType, event.WorkerRestarted{WorkerName: workerName}, clk.Now()))
	}
	sup.Add(workers.NewSocketWorker(log, socketAdapter))
	if config.DebugPort > 0 {
		handler := internal.NewDebugHandler(filter, func() map[string]any {
			stats := monitor.GetLatest()
			state := socketAdapter.State()
			return map[string]any{
				"accepted":        stats.Accepted,
				"duplicates":      stats.Duplicates,
				"gaps":            stats.Gaps,
				"misaddressed":    stats.Misaddressed,
				"malformed":       stats.Malformed,
				"listener_panics": stats.ListenerPanics,
				"sends_dropped":   stats.SendsDropped,
				"rss_bytes":       stats.RssBytes,
				"cpu_percent":     stats.CPUPercent,
				"pid_status":      string(stats.PidStatus),
				"socket_status":   string(state.Status),
				"socket_attempts": state.Attempts,
				"last_sequence":   bridge.LastSequence(),
			}
		})
		sup.Add(workers.NewDebugServerWorker(log, config.DebugPort, handler))
	}

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting event bridge", "socket", url, "sender", bridge.SenderID())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	// 5. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	select {
	case <-done:
	case <-clk.After(config.ShutdownGracePeriod):
		return exitRuntime, fmt.Errorf("workers did not stop within %s", config.ShutdownGracePeriod)
	}
	realtimeAdapter.Teardown()
	aggregator.Reset()
	log.Info("Program stopped cleanly")
	return exitOK, nil
}
