package display

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/idle"
)

// CommandType names an instruction for the kiosk browser.
type CommandType string

const (
	// CommandReload asks the display to reload the whole page.
	CommandReload CommandType = "reload"
	// CommandRefresh asks the display to re-fetch the #app fragment.
	CommandRefresh CommandType = "refresh"
	// CommandPulse asks the display for a negligible repaint that keeps it awake.
	CommandPulse CommandType = "pulse"
)

// Command is the JSON message pushed to displays.
type Command struct {
	Type CommandType `json:"type"`
	At   time.Time   `json:"at"`
}

const (
	sendBuffer   = 8
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
	maxReadBytes = 512
)

// Client is one connected display.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans commands out to every connected display.
type Hub struct {
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	now        func() time.Time
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger.With(zap.String("component", "display")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		now:        time.Now,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("display connected", zap.String("client_id", c.ID))
		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("display disconnected", zap.String("client_id", c.ID))
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Count returns the number of connected displays.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues cmd for every display. It never blocks: a display whose queue is
// full misses the command.
func (h *Hub) Broadcast(t CommandType) {
	msg, err := json.Marshal(Command{Type: t, At: h.now().UTC()})
	if err != nil {
		h.logger.Error("marshal display command", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("display queue full; dropping command",
				zap.String("client_id", c.ID),
				zap.String("command", string(t)),
			)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and registers the display.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{
		ID:   ulid.Make().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go h.writePump(c)
	h.readPump(c)
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(c *Client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Warn("websocket write", zap.String("client_id", c.ID), zap.Error(err))
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

// CommandFor maps an idle cycle outcome to the display command that brings the
// screen in line with the session: a reset re-renders the fragment, a reload
// reloads the page.
func CommandFor(o idle.Outcome) (CommandType, bool) {
	switch o {
	case idle.OutcomeReset:
		return CommandRefresh, true
	case idle.OutcomeReloaded:
		return CommandReload, true
	default:
		return "", false
	}
}
