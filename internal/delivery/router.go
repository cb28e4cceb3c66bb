// Package delivery decides, per recipient, whether a message goes out as a
// live socket push or into the durable unread queue. The durable write is
// the guaranteed path; the push is best effort.
package delivery

import (
	"encoding/json"
	"log"

	"github.com/pdutta/courier/internal/apperr"
	"github.com/pdutta/courier/internal/presence"
	"github.com/pdutta/courier/internal/store"
	"github.com/pdutta/courier/internal/ws"
)

type Router struct {
	store    store.Store
	registry *presence.Registry
}

func NewRouter(st store.Store, registry *presence.Registry) *Router {
	return &Router{store: st, registry: registry}
}

// Receipt reports what happened to each recipient of a send.
type Receipt struct {
	MessageID string
	// Pushed recipients were online and got a live frame (best effort).
	Pushed []string
	// Queued recipients were offline; the message sits in their backlog.
	Queued []string
	// NotFriends were skipped: no delivery, no persistence for them.
	NotFriends []string
}

// Route validates and delivers one message. Ordering is deliberate: the
// message row is written before any live push, so a crash between the two
// steps can only cost a nudge, never the message. Unknown sender or
// recipient rejects the whole send; non-friend recipients are skipped and
// reported; with no valid recipient left, nothing is persisted at all.
func (r *Router) Route(senderID, body string, recipients []string) (*Receipt, error) {
	if body == "" {
		return nil, apperr.ErrEmptyMessage
	}
	if len(recipients) == 0 {
		return nil, apperr.ErrNoRecipients
	}

	if _, err := r.store.GetUserByID(senderID); err != nil {
		return nil, apperr.ErrSenderNotFound
	}

	receipt := &Receipt{}
	var valid []string
	seen := make(map[string]bool)
	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true

		if _, err := r.store.GetUserByID(id); err != nil {
			return nil, apperr.ErrRecipientNotFound
		}

		isFriend, err := r.store.AreFriends(senderID, id)
		if err != nil {
			return nil, apperr.Unavailable("unable to send message, please try again later", err)
		}
		if !isFriend {
			receipt.NotFriends = append(receipt.NotFriends, id)
			continue
		}
		valid = append(valid, id)
	}

	if len(valid) == 0 {
		return nil, apperr.ErrNotFriend
	}

	msgID, err := r.store.SaveMessage(senderID, body)
	if err != nil {
		return nil, apperr.Unavailable("unable to send message, please try again later", err)
	}
	receipt.MessageID = msgID

	for _, id := range valid {
		if conn, ok := r.registry.Lookup(id); ok {
			r.push(conn, senderID, body)
			receipt.Pushed = append(receipt.Pushed, id)
			continue
		}

		if err := r.store.EnqueueUnread(id, senderID, msgID); err != nil {
			return receipt, apperr.Unavailable("unable to send message, please try again later", err)
		}
		receipt.Queued = append(receipt.Queued, id)
	}

	return receipt, nil
}

// push fires a msg-receive frame at an online recipient. A dropped frame is
// logged and forgotten; whether to escalate an unviewed message into the
// durable store is the receiving client's call.
func (r *Router) push(conn presence.Conn, from, msg string) {
	data, err := json.Marshal(ws.Envelope{Event: ws.EventMsgReceive, From: from, Msg: msg})
	if err != nil {
		log.Printf("[delivery] failed to marshal push frame: %v", err)
		return
	}
	if !conn.Send(data) {
		log.Printf("[delivery] live push from %q dropped", from)
	}
}
