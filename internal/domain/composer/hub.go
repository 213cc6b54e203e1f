package composer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 256
)

// connection is one websocket client watching one composer.
type connection struct {
	composerID string
	username   string
	conn       *websocket.Conn
	send       chan []byte
}

// Hub fans composer events out to the websocket clients watching them.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*connection]struct{} // composer id -> connections
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub accepts websocket upgrades from allowedOrigins ("*" for any).
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowAll := len(allowedOrigins) == 0
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}
	return &Hub{
		watchers: make(map[string]map[*connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || origins[origin]
			},
		},
		logger: logger,
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[c.composerID]
	if !ok {
		set = make(map[*connection]struct{})
		h.watchers[c.composerID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[c.composerID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.watchers, c.composerID)
	}
}

// Emit implements Emitter.
func (h *Hub) Emit(composerID string, ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.watchers[composerID] {
		select {
		case c.send <- data:
		default:
			// slow client, drop
		}
	}
}

// Watchers is the number of clients watching composerID.
func (h *Hub) Watchers(composerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[composerID])
}

// Upgrade switches the request to a websocket.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return h.upgrader.Upgrade(w, r, nil)
}

// ServeWS watches composerID on conn and blocks until the client leaves.
func (h *Hub) ServeWS(conn *websocket.Conn, username, composerID string) {
	c := &connection{
		composerID: composerID,
		username:   username,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
	}
	h.register(c)
	h.logger.Debug("watcher connected", zap.String("composer_id", composerID), zap.String("user", username))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Debug("watcher disconnected", zap.String("composer_id", c.composerID), zap.String("user", c.username))
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("composer_id", c.composerID), zap.Error(err))
			}
			return
		}

		var in struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &in); err != nil {
			h.reply(c, &Event{Type: EventError, ComposerID: c.composerID, Payload: map[string]string{"code": "INVALID_JSON"}})
			continue
		}
		switch in.Type {
		case "ping":
			h.reply(c, &Event{Type: EventPong, ComposerID: c.composerID})
		default:
			h.reply(c, &Event{Type: EventError, ComposerID: c.composerID, Payload: map[string]string{"code": "UNKNOWN_TYPE"}})
		}
	}
}

func (h *Hub) reply(c *connection, ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.watchers[c.composerID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
