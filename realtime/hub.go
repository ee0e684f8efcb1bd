// Package realtime pushes tournament events to websocket subscribers grouped
// in per-tournament rooms.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Типы сообщений, отправляемых клиентам.
const (
	MessageMatchUpdated           = "MATCH_UPDATED"
	MessageFixturesGenerated      = "FIXTURES_GENERATED"
	MessageStageAdvanced          = "STAGE_ADVANCED"
	MessageQualificationConfirmed = "QUALIFICATION_CONFIRMED"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	RoomID  string `json:"room_id,omitempty"`
}

// Notifier is what services use to announce changes; *Hub implements it.
type Notifier interface {
	Notify(roomID, messageType string, payload any)
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	room   string
	closed bool
	mu     sync.Mutex
}

type roomMessage struct {
	room string
	data []byte
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	rooms      map[string]map[*Client]bool
	quit       chan struct{}
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 64),
		rooms:      make(map[string]map[*Client]bool),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

// NewClient attaches conn to a room. Call ServeClient to start pumping.
func (h *Hub) NewClient(conn *websocket.Conn, room string) *Client {
	return &Client{hub: h, conn: conn, room: room, send: make(chan []byte, sendBufferSize)}
}

// ServeClient registers the client and runs its pumps until the connection drops.
func (h *Hub) ServeClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		c.conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

// Run owns the room map; it returns when done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			close(h.quit)
			for _, clients := range h.rooms {
				for c := range clients {
					c.close()
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			return

		case c := <-h.register:
			if _, ok := h.rooms[c.room]; !ok {
				h.rooms[c.room] = make(map[*Client]bool)
			}
			h.rooms[c.room][c] = true
			h.logger.Debug("ws client registered", slog.String("room", c.room), slog.Int("clients", len(h.rooms[c.room])))

		case c := <-h.unregister:
			clients, ok := h.rooms[c.room]
			if !ok || !clients[c] {
				continue
			}
			c.close()
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, c.room)
			}
			h.logger.Debug("ws client unregistered", slog.String("room", c.room), slog.Int("clients", len(clients)))

		case msg := <-h.broadcast:
			for c := range h.rooms[msg.room] {
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("ws client send buffer full, dropping client", slog.String("room", msg.room))
					c.close()
					delete(h.rooms[msg.room], c)
				}
			}
		}
	}
}

// Notify marshals a typed message and queues it for every client of the room.
func (h *Hub) Notify(roomID, messageType string, payload any) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload, RoomID: roomID})
	if err != nil {
		h.logger.Error("failed to marshal ws message", slog.String("room", roomID), slog.String("type", messageType), slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- roomMessage{room: roomID, data: data}:
	default:
		h.logger.Warn("ws broadcast queue full, message dropped", slog.String("room", roomID), slog.String("type", messageType))
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		// Клиенты только слушают; входящие сообщения игнорируются.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("ws read error", slog.String("room", c.room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Warn("ws write error", slog.String("room", c.room), slog.Any("error", err))
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
