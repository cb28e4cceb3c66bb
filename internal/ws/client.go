package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Maximum time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Inbound frames are rare (announce + nudges), keep them small.
	maxMessageSize = 4096

	// Outbound buffer per connection. When it fills the push is dropped:
	// a slow recipient must never stall a sender.
	sendBufferSize = 256
)

// Client is one websocket connection. It is anonymous until the peer sends
// a user-add announce; after that userID is set and never changes.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

// Send queues a frame for the write pump without blocking. It reports false
// when the frame was dropped. This is the fire-and-forget push path, so a
// miss is logged and otherwise ignored. The mutex covers the teardown
// window where a router holding a stale lookup result could otherwise write
// into a closed channel.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		log.Printf("[ws] send buffer full for user %q, dropping frame", c.userID)
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump consumes inbound frames until the transport reports a disconnect,
// then hands the client back to the hub for teardown.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for user %q: %v", c.userID, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("[ws] invalid frame from user %q: %v", c.userID, err)
			continue
		}

		c.handleEnvelope(env)
	}
}

func (c *Client) handleEnvelope(env Envelope) {
	switch env.Event {
	case EventUserAdd:
		if env.UserID == "" {
			log.Printf("[ws] user-add without userId, ignoring")
			return
		}
		c.hub.bind(c, env.UserID)

	case EventMsgSend:
		if env.To == "" || env.Msg == "" {
			return
		}
		c.hub.Relay(env.To, env.From, env.Msg)

	default:
		log.Printf("[ws] unknown event from user %q: %s", c.userID, env.Event)
	}
}

// WritePump drains the send channel onto the socket. It exits when the hub
// closes the channel or a write fails.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
