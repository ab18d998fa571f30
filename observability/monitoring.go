package observability

import (
	"event-bridge/domain"
	"event-bridge/domain/event"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/process"
)

// Stats aggregates the pipeline counters for the debug server.
type Stats struct {
	// --- PIPELINE ---
	Accepted        uint64 `json:"accepted"`
	Duplicates      uint64 `json:"duplicates"`
	Gaps            uint64 `json:"gaps"`
	Misaddressed    uint64 `json:"misaddressed"`
	Malformed       uint64 `json:"malformed"`
	ListenerPanics  uint64 `json:"listener_panics"`
	SendsDropped    uint64 `json:"sends_dropped"`
	WorkerRestarted uint64 `json:"worker_restarted"`

	// --- PROCESS ---
	RssBytes   uint64           `json:"rss_bytes"`
	CPUPercent float64          `json:"cpu_percent"`
	PidStatus  domain.PidStatus `json:"pid_status"`
	AllocMemMb uint64           `json:"alloc_mem_mb"`
	NumGC      uint32           `json:"num_gc"`
}

// Monitor counts diagnostic events. It is a DiagnosticSink.
type Monitor struct {
	log  *slog.Logger
	mu   sync.Mutex
	proc *process.Process

	accepted        uint64
	duplicates      uint64
	gaps            uint64
	misaddressed    uint64
	malformed       uint64
	listenerPanics  uint64
	sendsDropped    uint64
	workerRestarted uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	m := &Monitor{log: log}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process stats unavailable", "error", err)
	} else {
		m.proc = p
	}
	return m
}

func (m *Monitor) Handle(e event.Event) {
	switch e.Type {
	case event.EnvelopeAcceptedType:
		atomic.AddUint64(&m.accepted, 1)
	case event.DuplicateDroppedType:
		atomic.AddUint64(&m.duplicates, 1)
	case event.SequenceGapType:
		atomic.AddUint64(&m.gaps, 1)
	case event.MisaddressedType:
		atomic.AddUint64(&m.misaddressed, 1)
	case event.MalformedType:
		atomic.AddUint64(&m.malformed, 1)
	case event.ListenerPanicType:
		atomic.AddUint64(&m.listenerPanics, 1)
	case event.SendDroppedType:
		atomic.AddUint64(&m.sendsDropped, 1)
	case event.WorkerRestartedType:
		atomic.AddUint64(&m.workerRestarted, 1)
	default:
		m.log.Debug("Unknown diagnostic event", "type", e.Type)
	}
}

// GetLatest reads the counters and samples the process.
func (m *Monitor) GetLatest() Stats {
	stats := Stats{
		Accepted:        atomic.LoadUint64(&m.accepted),
		Duplicates:      atomic.LoadUint64(&m.duplicates),
		Gaps:            atomic.LoadUint64(&m.gaps),
		Misaddressed:    atomic.LoadUint64(&m.misaddressed),
		Malformed:       atomic.LoadUint64(&m.malformed),
		ListenerPanics:  atomic.LoadUint64(&m.listenerPanics),
		SendsDropped:    atomic.LoadUint64(&m.sendsDropped),
		WorkerRestarted: atomic.LoadUint64(&m.workerRestarted),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.AllocMemMb = mem.Alloc / 1024 / 1024
	stats.NumGC = mem.NumGC

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proc != nil {
		rss, cpu, status, err := selfStats(m.proc)
		if err != nil {
			m.log.Debug("Failed to collect self stats", "error", err)
		} else {
			stats.RssBytes, stats.CPUPercent, stats.PidStatus = rss, cpu, domain.ToStatus(status)
		}
	}
	return stats
}

func (m *Monitor) Reset() {
	for _, counter := range []*uint64{
		&m.accepted, &m.duplicates, &m.gaps, &m.misaddressed,
		&m.malformed, &m.listenerPanics, &m.sendsDropped, &m.workerRestarted,
	} {
		atomic.StoreUint64(counter, 0)
	}
}

// selfStats retrieves memory, CPU and OS status of the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
