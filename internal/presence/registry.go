// Package presence tracks which users currently have an identity-bound
// connection to the gateway. The registry is the single source of truth for
// "is this user online right now" and is the only state shared between
// connection lifecycles and the delivery router.
package presence

import "sync"

// Conn is the write side of a live connection. Send must not block: it
// reports false when the payload was dropped (slow or closing client).
type Conn interface {
	Send(data []byte) bool
}

// Registry maps a user id to at most one live connection. A second
// connection for the same user overwrites the first (last writer wins); the
// replaced connection is not closed here — its own disconnect handler tears
// it down, and its late Unregister call must not evict the newer entry.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register binds a user to a connection, replacing any prior binding.
func (r *Registry) Register(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = c
}

// Lookup returns the user's live connection, if any.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Unregister removes the entry holding exactly this connection. Matching on
// the connection value, not the user id, means a stale disconnect of an
// already-replaced connection is a no-op.
func (r *Registry) Unregister(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, conn := range r.conns {
		if conn == c {
			delete(r.conns, userID)
			return
		}
	}
}

func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// OnlineIDs returns the ids of all currently registered users.
func (r *Registry) OnlineIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		ids = append(ids, userID)
	}
	return ids
}
