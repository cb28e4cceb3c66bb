// Package ws is the connection gateway: it accepts websocket connections,
// binds them to a user identity once the client announces itself, and keeps
// the presence registry in sync with connection lifecycles.
package ws

// Envelope is the single frame shape used on the socket, both directions.
// Unused fields are omitted per event.
type Envelope struct {
	Event  string `json:"event"`
	UserID string `json:"userId,omitempty"`
	To     string `json:"to,omitempty"`
	From   string `json:"from,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

// Client → server events.
const (
	// EventUserAdd announces the connection's identity. Until it arrives
	// the connection is anonymous and no delivery can reach it.
	EventUserAdd = "user-add"
	// EventMsgSend is the fire-and-forget live nudge, independent of the
	// durable REST send.
	EventMsgSend = "msg-send"
)

// Server → client events.
const (
	EventMsgReceive = "msg-receive"
)
