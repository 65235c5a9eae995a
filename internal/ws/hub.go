package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"whatsapp-crm/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client represents a connected WebSocket client. A client watches at most
// one conversation at a time, matching the single open conversation view.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	mu             sync.Mutex
	conversationID uint
}

func (c *Client) subscription() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

func (c *Client) subscribe(conversationID uint) {
	c.mu.Lock()
	c.conversationID = conversationID
	c.mu.Unlock()
}

// Hub maintains the set of active clients and routes message events to the
// clients watching the affected conversation.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan event
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

type event struct {
	conversationID uint
	payload        []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan event),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Println("WebSocket client registered")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Println("WebSocket client unregistered")
		case ev := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if ev.conversationID != 0 && client.subscription() != ev.conversationID {
					continue
				}
				select {
				case client.send <- ev.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

type WSEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NotifyMessage pushes a message-insert event to the clients watching its
// conversation.
func (h *Hub) NotifyMessage(msg *models.Message) {
	payload, err := json.Marshal(WSEvent{Type: "new_message", Data: msg})
	if err != nil {
		log.Printf("Error marshaling WS event: %v", err)
		return
	}
	h.broadcast <- event{conversationID: msg.ConversationID, payload: payload}
}

// subscribeRequest is the only message clients send: which conversation view
// is currently open.
type subscribeRequest struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var req subscribeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		if req.Type == "subscribe" {
			c.subscribe(req.ConversationID)
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
