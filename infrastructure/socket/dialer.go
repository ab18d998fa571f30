package socket

import (
	"context"
	"event-bridge/contract"
	"event-bridge/errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer opens gateway connections with gorilla/websocket.
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

func NewWebsocketDialer(handshakeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{dialer: &websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}}
}

func (d *WebsocketDialer) DialContext(ctx context.Context, url string) (contract.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", errors.ErrTransportUnavailable, url, err)
	}
	return conn, nil
}
