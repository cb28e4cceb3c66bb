// Package session is the consuming side of the delivery protocol. A
// Reconciler merges three message sources into one ordered transcript per
// conversation: the unread backlog fetched at session start, live pushes
// arriving on the open socket, and the user's own messages echoed locally.
package session

import "sync"

// API is the durable backlog surface the reconciler talks to. In the real
// client these map onto the get-msgs / del-msgs / unread-msgs calls.
type API interface {
	FetchBacklog() (map[string][]string, error)
	ClearBacklog(from string) error
	AddUnread(from, msg string) error
}

// Entry is one transcript line.
type Entry struct {
	FromSelf bool
	Body     string
}

// Reconciler is an explicit two-state machine: either no conversation is
// open, or exactly one is. Only the active conversation has an in-memory
// transcript; everything else accumulates in the backlog cache and an
// unseen counter.
type Reconciler struct {
	api API

	mu         sync.Mutex
	active     string              // "" means no conversation open
	transcript []Entry             // transcript of the active conversation
	backlog    map[string][]string // per-sender unread cache, insertion order
	unseen     map[string]int
}

func New(api API) *Reconciler {
	return &Reconciler{
		api:     api,
		backlog: make(map[string][]string),
		unseen:  make(map[string]int),
	}
}

// Start pulls the durable backlog into the local cache. Call once per
// session, before opening any conversation.
func (r *Reconciler) Start() error {
	groups, err := r.api.FetchBacklog()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for from, msgs := range groups {
		r.backlog[from] = append([]string(nil), msgs...)
		r.unseen[from] = len(msgs)
	}
	return nil
}

// Open switches the active conversation to the given user. The previous
// conversation's transcript is discarded (its backlog was already cleared
// when it was opened), the new one is seeded from the backlog cache, and
// the durable store is told to clear it — it is being read now.
func (r *Reconciler) Open(userID string) ([]Entry, error) {
	r.mu.Lock()
	r.active = userID
	r.transcript = nil
	for _, body := range r.backlog[userID] {
		r.transcript = append(r.transcript, Entry{Body: body})
	}
	delete(r.backlog, userID)
	delete(r.unseen, userID)
	transcript := append([]Entry(nil), r.transcript...)
	r.mu.Unlock()

	if err := r.api.ClearBacklog(userID); err != nil {
		return transcript, err
	}
	return transcript, nil
}

// Close returns to the no-conversation-open state.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = ""
	r.transcript = nil
}

// HandleLive processes a msg-receive push. If the sender's conversation is
// the active one the message lands in the transcript; otherwise it is
// escalated into the durable store so it survives this session, and the
// sender's unseen counter goes up.
func (r *Reconciler) HandleLive(from, msg string) error {
	r.mu.Lock()
	if r.active == from {
		r.transcript = append(r.transcript, Entry{Body: msg})
		r.mu.Unlock()
		return nil
	}
	r.backlog[from] = append(r.backlog[from], msg)
	r.unseen[from]++
	r.mu.Unlock()

	return r.api.AddUnread(from, msg)
}

// Echo appends an optimistic local copy of a message the user just sent in
// the active conversation.
func (r *Reconciler) Echo(to, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == to {
		r.transcript = append(r.transcript, Entry{FromSelf: true, Body: msg})
	}
}

// Transcript returns a copy of the active conversation's transcript.
func (r *Reconciler) Transcript() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.transcript...)
}

// Unseen reports how many messages from the given sender are waiting
// outside the active conversation.
func (r *Reconciler) Unseen(from string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unseen[from]
}
