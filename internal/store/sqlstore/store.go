package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pdutta/courier/internal/models"
)

type SQLStore struct {
	db *sql.DB
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS friends (
		user_id TEXT NOT NULL,
		friend_id TEXT NOT NULL,
		PRIMARY KEY (user_id, friend_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (friend_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (sender_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS unread (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		from_id TEXT NOT NULL,
		message_id TEXT NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES users(id),
		FOREIGN KEY (from_id) REFERENCES users(id),
		FOREIGN KEY (message_id) REFERENCES messages(id)
	);

	CREATE INDEX IF NOT EXISTS idx_unread_owner ON unread(owner_id, from_id);
	`

	_, err := s.db.Exec(query)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.db.Exec("INSERT INTO users (id, username) VALUES (?, ?)", user.ID, user.Username)
	return err
}

func (s *SQLStore) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow("SELECT id, username FROM users WHERE id = ?", id).Scan(&user.ID, &user.Username)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AddFriend records a mutual friendship, both directions in one transaction.
func (s *SQLStore) AddFriend(userID, friendID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR IGNORE INTO friends (user_id, friend_id) VALUES (?, ?)", userID, friendID); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO friends (user_id, friend_id) VALUES (?, ?)", friendID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) AreFriends(userID, friendID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?)", userID, friendID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) SaveMessage(senderID, body string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec("INSERT INTO messages (id, sender_id, body) VALUES (?, ?, ?)", id, senderID, body)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) GetMessage(id string) (*models.Message, error) {
	var m models.Message
	err := s.db.QueryRow("SELECT id, sender_id, body, created_at FROM messages WHERE id = ?", id).
		Scan(&m.ID, &m.SenderID, &m.Body, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLStore) EnqueueUnread(ownerID, fromID, messageID string) error {
	_, err := s.db.Exec("INSERT INTO unread (owner_id, from_id, message_id) VALUES (?, ?, ?)", ownerID, fromID, messageID)
	return err
}

// GetUnread returns the owner's backlog grouped by sender. Order within a
// sender is queue insertion order (the unread rowid); senders appear in the
// order their first pending message arrived. The read does not clear
// anything — clearing is an explicit, separate call.
func (s *SQLStore) GetUnread(ownerID string) ([]models.UnreadGroup, error) {
	rows, err := s.db.Query(`
		SELECT u.from_id, m.body
		FROM unread u
		JOIN messages m ON u.message_id = m.id
		WHERE u.owner_id = ?
		ORDER BY u.id ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.UnreadGroup
	index := make(map[string]int)
	for rows.Next() {
		var from, body string
		if err := rows.Scan(&from, &body); err != nil {
			return nil, err
		}
		i, ok := index[from]
		if !ok {
			i = len(groups)
			index[from] = i
			groups = append(groups, models.UnreadGroup{From: from})
		}
		groups[i].Msgs = append(groups[i].Msgs, body)
	}
	return groups, rows.Err()
}

// ClearUnread removes every entry the owner has from one sender and
// garbage-collects messages no recipient still has pending.
func (s *SQLStore) ClearUnread(ownerID, fromID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	msgIDs, err := collectMessageIDs(tx, "SELECT DISTINCT message_id FROM unread WHERE owner_id = ? AND from_id = ?", ownerID, fromID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM unread WHERE owner_id = ? AND from_id = ?", ownerID, fromID); err != nil {
		return err
	}

	if err := gcMessages(tx, msgIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearAllUnread is the account-deletion hook: drops the owner's entire
// backlog (with the same garbage-collection rule) and removes every message
// the owner originated, including other users' unread references to them.
func (s *SQLStore) ClearAllUnread(ownerID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	msgIDs, err := collectMessageIDs(tx, "SELECT DISTINCT message_id FROM unread WHERE owner_id = ?", ownerID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM unread WHERE owner_id = ?", ownerID); err != nil {
		return err
	}
	if err := gcMessages(tx, msgIDs); err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM unread WHERE message_id IN (SELECT id FROM messages WHERE sender_id = ?)", ownerID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM messages WHERE sender_id = ?", ownerID); err != nil {
		return err
	}
	return tx.Commit()
}

func collectMessageIDs(tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// gcMessages deletes the given messages if no unread entry references them
// anymore.
func gcMessages(tx *sql.Tx, msgIDs []string) error {
	for _, id := range msgIDs {
		_, err := tx.Exec(`
			DELETE FROM messages
			WHERE id = ?
			  AND NOT EXISTS (SELECT 1 FROM unread WHERE message_id = ?)
		`, id, id)
		if err != nil {
			return fmt.Errorf("gc message %s: %w", id, err)
		}
	}
	return nil
}
