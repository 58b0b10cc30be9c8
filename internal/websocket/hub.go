package forumws

import (
	"encoding/json"

	"github.com/coachhub/coachhub-api/internal/models"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
)

type outgoing struct {
	topicID int64
	event   models.ForumEvent
}

// Hub owns the subscriber sets; only Run touches the map.
type Hub struct {
	topics     map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan outgoing
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	topicID int64
	send    chan []byte
}

func NewHub() *Hub {
	return &Hub{
		topics:     make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outgoing, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, topicID int64) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		topicID: topicID,
		send:    make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.topics[client.topicID]
			if !ok {
				set = make(map[*Client]struct{})
				h.topics[client.topicID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish queues an event for the topic's subscribers. It never blocks the caller;
// when the queue is full the event is dropped.
func (h *Hub) Publish(topicID int64, event models.ForumEvent) {
	select {
	case h.broadcast <- outgoing{topicID: topicID, event: event}:
	default:
		log.Warn().Int64("topic_id", topicID).Str("type", event.Type).Msg("forum hub queue full, event dropped")
	}
}

func (h *Hub) deliver(msg outgoing) {
	set, ok := h.topics[msg.topicID]
	if !ok {
		return
	}

	payload, err := json.Marshal(msg.event)
	if err != nil {
		log.Error().Err(err).Msg("forum hub encode event")
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			h.drop(client)
		}
	}

	if msg.event.Type == models.ForumEventTopicDeleted {
		for client := range set {
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	set, ok := h.topics[client.topicID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.topics, client.topicID)
	}
}

// ReadPump keeps the connection alive until the peer goes away. Subscribers never send
// anything the hub acts on.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
