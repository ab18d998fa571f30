package domain

import "time"

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// ReconnectState is the observable state of the socket adapter.
type ReconnectState struct {
	Status ConnectionStatus
	// CurrentDelay is the delay the next unplanned close will wait.
	CurrentDelay time.Duration
	// PendingDelay is the delay of the reconnect currently scheduled, zero if none.
	PendingDelay time.Duration
	Attempts     int
	SessionScope string
	Stopped      bool
}
