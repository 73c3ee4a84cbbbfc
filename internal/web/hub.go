package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/logging"
	"github.com/Iron-Ham/researchdesk/internal/research"
)

const (
	// clientBuffer is how many messages a client may lag behind before it
	// is disconnected.
	clientBuffer = 64
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Message is the JSON frame sent to event stream clients.
type Message struct {
	Type    string            `json:"type"`
	Time    time.Time         `json:"time"`
	Session *research.Session `json:"session,omitempty"`
}

// NewMessage converts a bus event into a stream frame.
func NewMessage(e event.Event) Message {
	m := Message{Type: e.EventType(), Time: e.Timestamp()}
	if c, ok := e.(event.SessionCarrier); ok {
		if s, ok := c.SessionSnapshot(); ok {
			m.Session = &s
		}
	}
	return m
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans bus events out to websocket clients. Publishing never blocks: a
// client whose buffer is full is dropped.
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	bus   *event.Bus
	subID string
}

// NewHub creates a hub subscribed to every event on bus.
func NewHub(bus *event.Bus, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NopLogger()
	}
	h := &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		bus:     bus,
	}
	if bus != nil {
		h.subID = bus.SubscribeAll(h.broadcast)
	}
	return h
}

func (h *Hub) broadcast(e event.Event) {
	data, err := json.Marshal(NewMessage(e))
	if err != nil {
		h.logger.Error("failed to encode event", "event_type", e.EventType(), "error", err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow event client", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			c.close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("event client connected", "remote", conn.RemoteAddr().String())

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client input and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event client read error", "error", err.Error())
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
	h.logger.Debug("event client disconnected", "remote", c.conn.RemoteAddr().String())
}

// Close unsubscribes from the bus and disconnects every client.
func (h *Hub) Close() {
	if h.bus != nil && h.subID != "" {
		h.bus.Unsubscribe(h.subID)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
