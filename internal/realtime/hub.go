// Package realtime pushes chat events to websocket clients. Clients join and
// leave per-conversation rooms over the socket itself; the hub is handed to
// the engine as its broadcaster, so events only go out for committed writes.
package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crewdesk/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	// Slow clients get dropped rather than backpressuring the broadcast.
	sendBuffer = 32
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// controlFrame is what clients send to manage room membership.
type controlFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

type client struct {
	conn  *websocket.Conn
	send  chan envelope
	rooms map[string]struct{}
}

type Hub struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]map[*client]struct{}),
	}
}

// Handler upgrades the request and serves the connection until the client
// goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Printf("ws upgrade: %v", err)
			return
		}
		c := &client{
			conn:  conn,
			send:  make(chan envelope, sendBuffer),
			rooms: make(map[string]struct{}),
		}
		go h.writePump(c)
		h.readPump(c)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.dropClient(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Printf("ws read: %v", err)
			}
			return
		}
		var frame controlFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.ConversationID == "" {
			continue
		}
		switch frame.Type {
		case "join_conversation":
			h.join(c, frame.ConversationID)
		case "leave_conversation":
			h.leave(c, frame.ConversationID)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
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

func (h *Hub) join(c *client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[conversationID] = room
	}
	room[c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

func (h *Hub) leave(c *client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, conversationID)
}

func (h *Hub) leaveLocked(c *client, conversationID string) {
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	delete(c.rooms, conversationID)
}

func (h *Hub) dropClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range c.rooms {
		h.leaveLocked(c, id)
	}
	close(c.send)
}

func (h *Hub) broadcast(conversationID string, ev envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[conversationID] {
		select {
		case c.send <- ev:
		default:
			h.log.Printf("ws client lagging, dropping %s event for conversation %s", ev.Event, conversationID)
		}
	}
}

// MessageCreated implements engine.Broadcaster.
func (h *Hub) MessageCreated(msg domain.Message) {
	h.broadcast(msg.ConversationID, envelope{Event: "new_message", Data: msg})
}

func (h *Hub) MessageUpdated(msg domain.Message) {
	h.broadcast(msg.ConversationID, envelope{Event: "message_update", Data: msg})
}

func (h *Hub) MessageDeleted(conversationID, messageID string) {
	h.broadcast(conversationID, envelope{Event: "message_deleted", Data: map[string]string{
		"conversation_id": conversationID,
		"message_id":      messageID,
	}})
}
