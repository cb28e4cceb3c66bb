package delivery

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pdutta/courier/internal/apperr"
	"github.com/pdutta/courier/internal/models"
	"github.com/pdutta/courier/internal/presence"
	"github.com/pdutta/courier/internal/store/sqlstore"
	"github.com/pdutta/courier/internal/ws"
)

type fakeConn struct {
	frames [][]byte
}

func (f *fakeConn) Send(data []byte) bool {
	f.frames = append(f.frames, data)
	return true
}

func newTestRouter(t *testing.T) (*Router, *sqlstore.SQLStore, *presence.Registry) {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	for _, u := range []string{"alice", "bob", "carol", "mallory"} {
		if err := st.CreateUser(&models.User{ID: u, Username: u}); err != nil {
			t.Fatalf("Failed to seed %s: %v", u, err)
		}
	}
	st.AddFriend("alice", "bob")
	st.AddFriend("alice", "carol")

	registry := presence.NewRegistry()
	return NewRouter(st, registry), st, registry
}

func TestRouteOfflineRecipientQueuesExactlyOnce(t *testing.T) {
	router, st, _ := newTestRouter(t)

	receipt, err := router.Route("alice", "hi", []string{"bob"})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(receipt.Queued) != 1 || receipt.Queued[0] != "bob" {
		t.Errorf("Expected bob queued, got %+v", receipt)
	}
	if len(receipt.Pushed) != 0 {
		t.Errorf("Expected no pushes, got %v", receipt.Pushed)
	}

	groups, _ := st.GetUnread("bob")
	if len(groups) != 1 || groups[0].From != "alice" {
		t.Fatalf("Expected one group from alice, got %+v", groups)
	}
	if len(groups[0].Msgs) != 1 || groups[0].Msgs[0] != "hi" {
		t.Errorf("Expected exactly one copy of the message, got %v", groups[0].Msgs)
	}
}

func TestRouteOnlineRecipientPushesWithoutQueueing(t *testing.T) {
	router, st, registry := newTestRouter(t)

	conn := &fakeConn{}
	registry.Register("bob", conn)

	receipt, err := router.Route("alice", "hi", []string{"bob"})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(receipt.Pushed) != 1 || receipt.Pushed[0] != "bob" {
		t.Errorf("Expected bob pushed, got %+v", receipt)
	}

	if len(conn.frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(conn.frames))
	}
	var env ws.Envelope
	json.Unmarshal(conn.frames[0], &env)
	if env.Event != ws.EventMsgReceive || env.From != "alice" || env.Msg != "hi" {
		t.Errorf("Unexpected frame: %+v", env)
	}

	// Delivered live: must not also surface from the unread store.
	groups, _ := st.GetUnread("bob")
	if len(groups) != 0 {
		t.Errorf("Expected empty backlog for bob, got %+v", groups)
	}

	// The durable message row is written regardless of the push.
	if _, err := st.GetMessage(receipt.MessageID); err != nil {
		t.Errorf("Expected message row to exist: %v", err)
	}
}

func TestRouteMixedPresence(t *testing.T) {
	router, st, registry := newTestRouter(t)

	conn := &fakeConn{}
	registry.Register("bob", conn)

	receipt, err := router.Route("alice", "hi both", []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(receipt.Pushed) != 1 || len(receipt.Queued) != 1 {
		t.Errorf("Expected one push and one queue, got %+v", receipt)
	}

	carolGroups, _ := st.GetUnread("carol")
	if len(carolGroups) != 1 {
		t.Errorf("Expected carol's backlog entry, got %+v", carolGroups)
	}
}

func TestRouteNotFriendLeavesNoTrace(t *testing.T) {
	router, st, _ := newTestRouter(t)

	_, err := router.Route("alice", "hi", []string{"mallory"})
	if !errors.Is(err, apperr.ErrNotFriend) && apperr.CodeOf(err) != apperr.CodeNotFriend {
		t.Fatalf("Expected NotFriend, got %v", err)
	}

	groups, _ := st.GetUnread("mallory")
	if len(groups) != 0 {
		t.Errorf("Expected no unread entries for mallory, got %+v", groups)
	}
}

func TestRoutePartialRecipients(t *testing.T) {
	router, st, _ := newTestRouter(t)

	receipt, err := router.Route("alice", "hi", []string{"bob", "mallory"})
	if err != nil {
		t.Fatalf("Expected partial success, got %v", err)
	}
	if len(receipt.NotFriends) != 1 || receipt.NotFriends[0] != "mallory" {
		t.Errorf("Expected mallory reported as not-friend, got %+v", receipt)
	}
	if len(receipt.Queued) != 1 || receipt.Queued[0] != "bob" {
		t.Errorf("Expected bob queued, got %+v", receipt)
	}

	malloryGroups, _ := st.GetUnread("mallory")
	if len(malloryGroups) != 0 {
		t.Error("Expected nothing persisted for the rejected recipient")
	}
	bobGroups, _ := st.GetUnread("bob")
	if len(bobGroups) != 1 {
		t.Error("Expected the valid subset to persist")
	}
}

func TestRouteUnknownUsers(t *testing.T) {
	router, _, _ := newTestRouter(t)

	if _, err := router.Route("ghost", "hi", []string{"bob"}); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("Expected NotFound for unknown sender, got %v", err)
	}
	if _, err := router.Route("alice", "hi", []string{"ghost"}); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("Expected NotFound for unknown recipient, got %v", err)
	}
	if _, err := router.Route("alice", "", []string{"bob"}); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Errorf("Expected InvalidArgument for empty body, got %v", err)
	}
}
