package portal

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/provision"
	"go.uber.org/zap"
)

// StatusPath is where the StatusHub is usually mounted.
const StatusPath = "/status/ws"

const (
	statusWriteTimeout = 10 * time.Second
	statusClientBuffer = 16
)

// StatusEvent is one state transition sent to websocket clients.
type StatusEvent struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Time time.Time `json:"time"`
}

// StatusHub broadcasts state transitions to websocket clients. New clients
// receive the latest event first.
type StatusHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan StatusEvent
	last    *StatusEvent
	closed  bool
}

// NewStatusHub creates an empty hub.
func NewStatusHub() *StatusHub {
	return &StatusHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]chan StatusEvent),
	}
}

// Observe publishes a transition. It has the provision.StateObserver
// signature.
func (h *StatusHub) Observe(from, to provision.State) {
	h.Publish(StatusEvent{From: from.String(), To: to.String(), Time: time.Now()})
}

// Publish sends ev to every client. Slow clients miss events.
func (h *StatusHub) Publish(ev StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = &ev
	for conn, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			logging.Debug("Dropping status event for slow client",
				zap.String("remote_addr", conn.RemoteAddr().String()))
		}
	}
}

// Clients returns the number of connected clients.
func (h *StatusHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client goes
// away.
func (h *StatusHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Status websocket upgrade failed", zap.Error(err))
		return
	}

	ch := make(chan StatusEvent, statusClientBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = ch
	if h.last != nil {
		ch <- *h.last
	}
	h.mu.Unlock()

	logging.Debug("Status client connected", zap.String("remote_addr", r.RemoteAddr))

	// The reader only detects the close; clients send nothing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer h.remove(conn)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func (h *StatusHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Close disconnects every client.
func (h *StatusHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, ch := range h.clients {
		close(ch)
		delete(h.clients, conn)
	}
}
