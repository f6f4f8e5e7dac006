package web

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sweeney/rokoko-bridge/internal/bridge"
)

// scrollback is how many log lines a newly connected panel receives.
const scrollback = 500

// sendBuffer is the per-client queue; a client that falls this far behind
// gets dropped rather than stalling the drain loop.
const sendBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The panel is served on the LAN without auth, same as the page itself.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts queue updates to connected panel clients as JSON. It
// implements bridge.Sink: Log and Status arrive on the drain goroutine while
// clients come and go on handler goroutines.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	backlog  []bridge.Update                  // recent log lines, oldest first
	retained map[bridge.Channel]bridge.Update // last status per channel
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		retained: make(map[bridge.Channel]bridge.Update),
	}
}

// Log implements bridge.Sink.
func (h *Hub) Log(u bridge.Update) {
	h.mu.Lock()
	h.backlog = append(h.backlog, u)
	if len(h.backlog) > scrollback {
		h.backlog = h.backlog[len(h.backlog)-scrollback:]
	}
	h.broadcastLocked(u)
	h.mu.Unlock()
}

// Status implements bridge.Sink. The last update per channel is kept so a
// late-joining panel starts from the current state.
func (h *Hub) Status(u bridge.Update) {
	h.mu.Lock()
	h.retained[u.Channel] = u
	h.broadcastLocked(u)
	h.mu.Unlock()
}

func (h *Hub) broadcastLocked(u bridge.Update) {
	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ClientCount returns how many panels are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// Snapshot the catch-up under the lock, register, then write it
	// outside the lock. Live updates queue on c.send in the meantime and
	// go out after the catch-up, preserving order.
	h.mu.Lock()
	catchup := make([]bridge.Update, 0, len(h.retained)+len(h.backlog))
	for _, ch := range []bridge.Channel{bridge.ChannelController, bridge.ChannelConnectivity, bridge.ChannelRecording} {
		if u, ok := h.retained[ch]; ok {
			catchup = append(catchup, u)
		}
	}
	catchup = append(catchup, h.backlog...)
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	for _, u := range catchup {
		data, err := json.Marshal(u)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(c)
			return
		}
	}

	go c.writePump()
	c.readPump(h)
}

// drop unregisters the client once and closes its connection.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

func (c *client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readPump blocks until the peer goes away. The panel never sends anything
// meaningful; reading just surfaces the close.
func (c *client) readPump(h *Hub) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
