package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

const (
	EventJoinSite  = "join_site"
	EventLeaveSite = "leave_site"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Message кадр канала событий
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Authorizer возвращает объекты, доступные по токену
type Authorizer interface {
	Sites(ctx context.Context, token string) ([]string, error)
}

type TokenFunc func(r *http.Request) string

// Hub держит websocket-подключения, сгруппированные по объектам
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*conn]struct{}
	upgrader websocket.Upgrader
	auth     Authorizer
	token    TokenFunc
	log      *slog.Logger
}

type conn struct {
	ws      *websocket.Conn
	send    chan []byte
	allowed map[string]struct{}
	joined  map[string]struct{}
	closed  bool
}

func NewHub(auth Authorizer, token TokenFunc, log *slog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		auth:  auth,
		token: token,
		log:   log.With(slog.String("component", "realtime_hub")),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var allowed map[string]struct{}
	if h.auth != nil {
		sites, err := h.auth.Sites(r.Context(), h.token(r))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		allowed = make(map[string]struct{}, len(sites))
		for _, s := range sites {
			allowed[s] = struct{}{}
		}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade", "error", err)
		return
	}

	c := &conn{
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		allowed: allowed,
		joined:  make(map[string]struct{}),
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *conn) {
	defer h.unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("read", "error", err)
			}
			return
		}

		var siteID string
		if err := json.Unmarshal(msg.Data, &siteID); err != nil || siteID == "" {
			continue
		}

		switch msg.Event {
		case EventJoinSite:
			h.join(c, siteID)
		case EventLeaveSite:
			h.leave(c, siteID)
		}
	}
}

func (h *Hub) writeLoop(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) join(c *conn, siteID string) {
	if c.allowed != nil {
		if _, ok := c.allowed[siteID]; !ok {
			h.log.Debug("join rejected", "site_id", siteID)
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	if h.rooms[siteID] == nil {
		h.rooms[siteID] = make(map[*conn]struct{})
	}
	h.rooms[siteID][c] = struct{}{}
	c.joined[siteID] = struct{}{}
}

func (h *Hub) leave(c *conn, siteID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, siteID)
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for siteID := range c.joined {
		h.removeLocked(c, siteID)
	}
	c.closed = true
	close(c.send)
}

func (h *Hub) removeLocked(c *conn, siteID string) {
	delete(h.rooms[siteID], c)
	delete(c.joined, siteID)
	if len(h.rooms[siteID]) == 0 {
		delete(h.rooms, siteID)
	}
}

// Publish рассылает событие всем подключениям объекта.
// Медленные подключения пропускают событие.
func (h *Hub) Publish(siteID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal payload", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.log.Error("marshal frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[siteID] {
		select {
		case c.send <- frame:
		default:
			h.log.Warn("subscriber is slow, event dropped", "site_id", siteID, "event", event)
		}
	}
}

// RoomSize количество подключений объекта
func (h *Hub) RoomSize(siteID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[siteID])
}
