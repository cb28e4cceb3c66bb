package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pdutta/courier/internal/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the separately served frontend; origin
	// policy is enforced by the CORS layer on the REST side.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Hub struct {
	// All open connections, identity-bound or not.
	clients map[*Client]bool

	// Register requests from new connections.
	register chan *Client

	// Unregister requests from closing connections.
	unregister chan *Client

	registry *presence.Registry
}

func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   registry,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Exact-handle removal: if this user already reconnected,
				// the newer binding survives.
				h.registry.Unregister(client)
				client.closeSend()
				log.Printf("[ws] disconnected: user=%q", client.userID)
			}
		}
	}
}

// bind attaches an identity to a connection after the user-add announce.
// Re-announcing (or reconnecting) simply overwrites the presence entry.
func (h *Hub) bind(c *Client, userID string) {
	c.userID = userID
	h.registry.Register(userID, c)
	log.Printf("[ws] connected: user=%q", userID)
}

// Relay pushes a msg-receive frame to the recipient if they are online.
// Best effort: no acknowledgment, no retry, no error to the caller. The
// durable REST path is the guaranteed one.
func (h *Hub) Relay(to, from, msg string) {
	conn, ok := h.registry.Lookup(to)
	if !ok {
		return
	}

	data, err := json.Marshal(Envelope{Event: EventMsgReceive, From: from, Msg: msg})
	if err != nil {
		log.Printf("[ws] failed to marshal relay frame: %v", err)
		return
	}
	conn.Send(data)
}

// ServeWs upgrades the HTTP request and starts the connection's pumps. The
// connection is accepted without identity; delivery only reaches it after
// the client announces itself.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
