package socket

import (
	"event-bridge/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		origin     string
		want       string
	}{
		{"configured wins", "wss://gw.example.com/ws/events", "https://app.example.com", "wss://gw.example.com/ws/events"},
		{"https origin", "", "https://app.example.com", "wss://app.example.com:8765/ws/events"},
		{"http origin keeps host only", "", "http://app.local:3000", "ws://app.local:8765/ws/events"},
		{"no origin falls back to localhost", "", "", "ws://localhost:8765/ws/events"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.configured, tt.origin, "/ws/events", 8765)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolveURL_Invalid(t *testing.T) {
	req := require.New(t)

	_, err := ResolveURL("http://gw.example.com", "", "/ws", 8765)
	req.ErrorIs(err, errors.ErrInvalidConfig)

	_, err = ResolveURL("", "ftp://files.example.com", "/ws", 8765)
	req.ErrorIs(err, errors.ErrInvalidConfig)
}
