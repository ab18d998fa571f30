package domain

// PidStatus is the scheduling state of the bridge process as shown on the
// debug page.
type PidStatus string

const (
	RUNNING   PidStatus = "RUNNING"
	SLEEP     PidStatus = "SLEEP"
	DISK_WAIT PidStatus = "DISK_WAIT"
	STOP      PidStatus = "STOP"
	ZOMBIE    PidStatus = "ZOMBIE"
	IDLE      PidStatus = "IDLE"
	UNKNOWN   PidStatus = "UNKNOWN"
)

// pidStates maps the /proc state letter gopsutil reports on Linux.
var pidStates = map[string]PidStatus{
	"R": RUNNING,
	"S": SLEEP,
	"D": DISK_WAIT,
	"T": STOP,
	"t": STOP, // traced
	"Z": ZOMBIE,
	"I": IDLE,
}

func ToStatus(status string) PidStatus {
	if s, ok := pidStates[status]; ok {
		return s
	}
	return UNKNOWN
}
