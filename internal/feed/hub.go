package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/toast"
)

// MessageSnapshot is the type of the message carrying the live list.
const MessageSnapshot = "snapshot"

const writeWait = 5 * time.Second

// Message is sent to websocket clients.
type Message struct {
	Type   string       `json:"type"`
	Toasts []toast.View `json:"toasts"`
}

// Hub pushes the latest live list to websocket clients. Each client has its
// own writer that always sends the newest snapshot, so a slow client skips
// intermediate lists instead of blocking the others.
type Hub struct {
	upgrader websocket.Upgrader
	logger   logging.Logger
	source   func() []toast.Toast

	mu      sync.RWMutex
	latest  []byte
	seq     uint64
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn   *websocket.Conn
	wake   chan struct{}
	done   chan struct{}
	sentAt uint64
}

// NewHub creates a hub that reads the live list from source.
func NewHub(source func() []toast.Toast, logger logging.Logger) *Hub {
	if source == nil {
		panic("feed: hub source cannot be nil")
	}
	if logger == nil {
		logger = logging.GetGlobal()
	}
	h := &Hub{
		source:  source,
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Renderers are local pages on other ports.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	h.Refresh()
	return h
}

// Refresh re-reads the source, replaces the snapshot and wakes every client.
// The source is read under the hub lock so concurrent refreshes cannot store
// an older list after a newer one.
func (h *Hub) Refresh() {
	h.mu.Lock()
	data, err := json.Marshal(Message{Type: MessageSnapshot, Toasts: toast.NewViews(h.source())})
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("feed snapshot encode failed", "error", err.Error())
		return
	}
	h.latest = data
	h.seq++
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) snapshot() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.seq
}

// ServeWS upgrades the request and streams snapshots until the client goes
// away. The current snapshot is sent first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err.Error())
		return
	}
	c := &client{conn: conn, wake: make(chan struct{}, 1), done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	c.wake <- struct{}{}

	go h.writeLoop(c)

	// Clients never send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			data, seq := h.snapshot()
			if seq == c.sentAt {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("websocket write failed", "error", err.Error())
				h.drop(c)
				return
			}
			c.sentAt = seq
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.done)
	c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.drop(c)
	}
}
