package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pdutta/courier/internal/presence"
)

func newTestServer(t *testing.T) (*httptest.Server, *presence.Registry) {
	t.Helper()
	registry := presence.NewRegistry()
	hub := NewHub(registry)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitOnline(t *testing.T, registry *presence.Registry, userID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Online(userID) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("User %s never came online", userID)
}

func TestAnnounceRegistersPresence(t *testing.T) {
	srv, registry := newTestServer(t)
	conn := dial(t, srv)

	// Before the announce the connection is anonymous.
	if len(registry.OnlineIDs()) != 0 {
		t.Error("Expected no presence before the announce")
	}

	conn.WriteJSON(Envelope{Event: EventUserAdd, UserID: "alice"})
	waitOnline(t, registry, "alice")
}

func TestDisconnectUnregisters(t *testing.T) {
	srv, registry := newTestServer(t)
	conn := dial(t, srv)

	conn.WriteJSON(Envelope{Event: EventUserAdd, UserID: "alice"})
	waitOnline(t, registry, "alice")

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !registry.Online("alice") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Expected alice to go offline after disconnect")
}

func TestMsgSendRelaysToRecipient(t *testing.T) {
	srv, registry := newTestServer(t)

	bobConn := dial(t, srv)
	bobConn.WriteJSON(Envelope{Event: EventUserAdd, UserID: "bob"})
	waitOnline(t, registry, "bob")

	aliceConn := dial(t, srv)
	aliceConn.WriteJSON(Envelope{Event: EventUserAdd, UserID: "alice"})
	waitOnline(t, registry, "alice")

	aliceConn.WriteJSON(Envelope{Event: EventMsgSend, To: "bob", From: "alice", Msg: "hi"})

	bobConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := bobConn.ReadMessage()
	if err != nil {
		t.Fatalf("Bob never received the push: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Invalid frame: %v", err)
	}
	if env.Event != EventMsgReceive || env.From != "alice" || env.Msg != "hi" {
		t.Errorf("Unexpected frame: %+v", env)
	}
}

func TestMsgSendToOfflineUserIsDropped(t *testing.T) {
	srv, registry := newTestServer(t)

	aliceConn := dial(t, srv)
	aliceConn.WriteJSON(Envelope{Event: EventUserAdd, UserID: "alice"})
	waitOnline(t, registry, "alice")

	// Nobody is listening for bob; the nudge just disappears.
	aliceConn.WriteJSON(Envelope{Event: EventMsgSend, To: "bob", From: "alice", Msg: "hi"})

	// The sender's connection must stay healthy.
	aliceConn.WriteJSON(Envelope{Event: EventMsgSend, To: "alice", From: "alice", Msg: "self"})
	aliceConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := aliceConn.ReadMessage()
	if err != nil {
		t.Fatalf("Sender connection broke after offline nudge: %v", err)
	}
}
