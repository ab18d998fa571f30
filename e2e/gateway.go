package e2e

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Gateway is a local stand-in for the backend gateway: it accepts sockets,
// records what clients send and pushes frames to every connected client.
type Gateway struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	mu       sync.Mutex
	conns    []*websocket.Conn
	accepted int
	received [][]byte
}

func NewGateway() *Gateway {
	g := &Gateway{upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", g.handle)
	g.server = httptest.NewServer(mux)
	return g
}

func (g *Gateway) URL() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws/events"
}

func (g *Gateway) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	g.mu.Lock()
	g.conns = append(g.conns, conn)
	g.accepted++
	g.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			g.remove(conn)
			return
		}
		g.mu.Lock()
		g.received = append(g.received, data)
		g.mu.Unlock()
	}
}

func (g *Gateway) remove(conn *websocket.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, c := range g.conns {
		if c == conn {
			g.conns = append(g.conns[:i], g.conns[i+1:]...)
			break
		}
	}
	_ = conn.Close()
}

// Push writes every frame to every live connection.
func (g *Gateway) Push(frames ...[]byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, conn := range g.conns {
		for _, frame := range frames {
			_ = conn.WriteMessage(websocket.TextMessage, frame)
		}
	}
}

// DropAll closes every connection as an outage would.
func (g *Gateway) DropAll() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// Accepted counts every connection ever upgraded.
func (g *Gateway) Accepted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accepted
}

func (g *Gateway) Received() [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]byte(nil), g.received...)
}

func (g *Gateway) Close() {
	g.DropAll()
	g.server.Close()
}
