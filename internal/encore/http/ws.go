package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/encoreparty/encore/internal/encore/engine"
)

const wsWriteTimeout = 5 * time.Second

// hub fans game snapshots out to connected websocket clients. Slow or dead
// clients are dropped instead of backing up the engine's notify path.
type hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	closed bool
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The service fronts a local party game; cross-origin pages
			// are allowed to watch the stream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]bool),
	}
}

// serve upgrades the request and registers the connection. If the service
// already has game state, the client receives it immediately.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, initial *engine.Snapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conns[conn] = true
	if initial != nil {
		h.writeLocked(conn, *initial)
	}
	h.mu.Unlock()

	// Reads only serve to detect the peer going away; clients send
	// nothing meaningful.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast delivers a snapshot to every client. It is the engine's Notify
// callback.
func (h *hub) broadcast(s engine.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		h.writeLocked(conn, s)
	}
}

func (h *hub) writeLocked(conn *websocket.Conn, s engine.Snapshot) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(s); err != nil {
		delete(h.conns, conn)
		_ = conn.Close()
	}
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// close disconnects all clients and refuses new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		delete(h.conns, conn)
	}
}
