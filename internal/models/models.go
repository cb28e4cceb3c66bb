package models

import "time"

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message is the durable record of a send. It stays around until no
// recipient has an unread entry referencing it anymore.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// UnreadGroup is one sender's slice of a user's backlog, in the order the
// messages were queued. This is the shape the get-msgs endpoint returns.
type UnreadGroup struct {
	From string   `json:"from"`
	Msgs []string `json:"msgs"`
}
