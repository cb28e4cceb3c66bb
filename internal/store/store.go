package store

import "github.com/pdutta/courier/internal/models"

// Store is the durable side of the delivery subsystem. User and friendship
// rows are written by the surrounding account system; the core only reads
// them to validate sends. Everything under "Unread queue" belongs to this
// subsystem.
type Store interface {
	// Users and friendships (validation surface)
	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	AddFriend(userID, friendID string) error
	AreFriends(userID, friendID string) (bool, error)

	// Messages
	SaveMessage(senderID, body string) (string, error)
	GetMessage(id string) (*models.Message, error)

	// Unread queue
	EnqueueUnread(ownerID, fromID, messageID string) error
	GetUnread(ownerID string) ([]models.UnreadGroup, error)
	ClearUnread(ownerID, fromID string) error
	ClearAllUnread(ownerID string) error
}
