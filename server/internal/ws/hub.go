package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/launchdash/launchdash/server/internal/metrics"
	"github.com/launchdash/launchdash/server/internal/query"
	"github.com/launchdash/launchdash/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxMessageSize bounds a single selection event.
	maxMessageSize = 4096
)

// Event names.
const (
	EventViews = "views"
	EventError = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checks are done by the CORS middleware in front of the hub.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Request is a selection event sent by a client. A missing payload_range
// selects the observed payload bounds of the current data; one that is not
// two numbers selects no payloads.
type Request struct {
	Site         string    `json:"site"`
	PayloadRange []float64 `json:"payload_range"`
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string       `json:"event"`
	Data  *query.Views `json:"data,omitempty"`
	Error string       `json:"error,omitempty"`
}

// Hub manages WebSocket sessions. Each session keeps its own selection and
// receives freshly computed views whenever it changes the selection or the
// data is reloaded.
type Hub struct {
	live    *store.Live
	metrics *metrics.Recorder
	reload  <-chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket session.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	site string
	rng  *query.Range // nil follows the data's default range
}

// New creates a Hub serving views from live. rec may be nil.
func New(live *store.Live, rec *metrics.Recorder) *Hub {
	return &Hub{
		live:    live,
		metrics: rec,
		reload:  live.Subscribe(),
		clients: make(map[*client]struct{}),
	}
}

// Run re-pushes views to every session after each data reload. Run blocks
// until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.reload:
			h.broadcast()
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the session.
// The views for the default selection are sent immediately on connect.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufSize),
		site: query.AllSites,
	}
	h.register(c)
	defer h.unregister(c)
	slog.Debug("ws: session opened", "session", c.id, "remote", r.RemoteAddr)

	h.push(c)

	go c.writePump()
	h.readPump(c) // blocks until connection closes
	slog.Debug("ws: session closed", "session", c.id)
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// deliver queues data for c. It reports false when the client's buffer is
// full. Holding the read lock keeps unregister from closing c.send mid-send.
func (h *Hub) deliver(c *client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// push computes the views for c's selection and queues them. c.mu is held
// from reading the store to queueing, so a push started before a reload is
// always queued ahead of the reload's push.
func (h *Hub) push(c *client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(Message{Event: EventViews, Data: h.views(c)})
	if err != nil {
		slog.Error("ws: encode views", "session", c.id, "err", err)
		return
	}
	if !h.deliver(c, data) {
		// Outgoing buffer full: disconnect the client.
		slog.Warn("ws: slow client dropped", "session", c.id)
		h.unregister(c)
	}
}

func (h *Hub) pushError(c *client, msg string) {
	data, _ := json.Marshal(Message{Event: EventError, Error: msg})
	if !h.deliver(c, data) {
		h.unregister(c)
	}
}

// views computes both charts for c's selection. Callers hold c.mu.
func (h *Hub) views(c *client) *query.Views {
	st := h.live.Current()
	sel := query.Selection{Site: c.site, Range: query.DefaultRange(st)}
	if c.rng != nil {
		sel.Range = *c.rng
	}

	if h.metrics != nil {
		h.metrics.IncQuery("success")
		h.metrics.IncQuery("scatter")
	}
	v := query.Dashboard(st, sel)
	return &v
}

func (h *Hub) broadcast() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	slog.Debug("ws: pushing reloaded views", "sessions", len(targets))
	for _, c := range targets {
		h.push(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// wireRequest is Request as read off the socket. payload_range is kept raw
// so a malformed range selects nothing instead of rejecting the event.
type wireRequest struct {
	Site         string          `json:"site"`
	PayloadRange json.RawMessage `json:"payload_range"`
}

// apply updates c's selection from req.
func (c *client) apply(req wireRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.site = query.NormalizeSite(req.Site)
	c.rng = parseRange(req.PayloadRange)
}

// parseRange returns nil for an absent or null range, which follows the
// data's default bounds. Anything other than two numbers matches nothing.
func parseRange(raw json.RawMessage) *query.Range {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var b []float64
	if err := json.Unmarshal(raw, &b); err != nil || len(b) != 2 {
		return &query.Range{}
	}
	return &query.Range{Min: b[0], Max: b[1]}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads selection events until the connection closes, answering
// each with the views for the new selection. Undecodable events get an error
// event and leave the selection unchanged.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var req wireRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			slog.Debug("ws: bad selection", "session", c.id, "err", err)
			h.pushError(c, "invalid selection: "+err.Error())
			continue
		}
		c.apply(req)
		h.push(c)
	}
}
