package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	appLog "admincal/internal/log"
)

const defaultWriteWait = 10 * time.Second

// wsClient is one connected browser. mu serializes data writes on conn;
// gorilla allows a single concurrent writer per connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(message []byte, wait time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(message, wait)
}

func (c *wsClient) writeLocked(message []byte, wait time.Duration) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// hub manages connected browser WebSocket clients and broadcasts the
// events payload to them. h.mu only guards the client set; writes happen
// outside it so one stalled client cannot block the others.
type hub struct {
	mu        sync.Mutex
	clients   map[*wsClient]bool
	upgrader  websocket.Upgrader
	writeWait time.Duration
}

func newHub() *hub {
	return &hub{
		clients: make(map[*wsClient]bool),
		upgrader: websocket.Upgrader{
			// The page is served from the same origin; basic auth (when
			// enabled) already guards the upgrade request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeWait: defaultWriteWait,
	}
}

// HandleConnections upgrades the request, sends initial and keeps the
// connection registered until the client goes away.
func (h *hub) HandleConnections(w http.ResponseWriter, r *http.Request, initial []byte) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("ws: upgrade failed", err)
		return
	}
	c := &wsClient{conn: conn}
	defer h.drop(c)

	// Hold the client's write lock across registration and the initial
	// send so a concurrent Broadcast queues behind the initial message.
	c.mu.Lock()
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	if initial != nil {
		if err := c.writeLocked(initial, h.writeWait); err != nil {
			c.mu.Unlock()
			appLog.Error("ws: initial send failed", err, "remote", conn.RemoteAddr().String())
			return
		}
	}
	c.mu.Unlock()

	appLog.Info("ws client connected", "remote", conn.RemoteAddr().String(), "clients", total)

	// Clients do not send anything; ReadMessage returns once they leave.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// drop unregisters and closes c. Safe to call more than once.
func (h *hub) drop(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	c.conn.Close()
	if ok {
		appLog.Info("ws client removed", "remote", c.conn.RemoteAddr().String(), "clients", total)
	}
}

func (h *hub) snapshot() []*wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast sends message to every client, dropping clients whose write
// fails or does not finish within the write deadline.
func (h *hub) Broadcast(message []byte) {
	for _, c := range h.snapshot() {
		if err := c.write(message, h.writeWait); err != nil {
			appLog.Error("ws: send failed, dropping client", err, "remote", c.conn.RemoteAddr().String())
			h.drop(c)
		}
	}
}

// CloseAll disconnects every client, used on shutdown. It does not wait
// for in-flight data writes: closing the connection aborts them.
func (h *hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]bool)
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
	deadline := time.Now().Add(time.Second)
	var wg sync.WaitGroup
	for c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// WriteControl may run concurrently with a blocked WriteMessage
			// and gives up at the deadline.
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			c.conn.Close()
		}()
	}
	wg.Wait()
}

// Len returns the number of connected clients.
func (h *hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
