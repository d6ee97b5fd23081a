package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"campushub/internal/broadcast"
	"campushub/internal/config"
	"campushub/internal/directory"
	"campushub/internal/hub"
	"campushub/internal/identity"
	"campushub/internal/room"
	"campushub/internal/router"
	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

type nullStore struct{}

func (nullStore) GetUser(context.Context, string) (*types.User, error) {
	return nil, interfaces.ErrUserNotFound
}

func (nullStore) SetPresence(context.Context, string, string, time.Time) error {
	return nil
}

type testStack struct {
	srv *httptest.Server
	dir *directory.Directory
}

func newTestStack(t *testing.T, allowedOrigin string, mutators ...func(*config.WebSocketConfig)) *testStack {
	t.Helper()

	dir := directory.New()
	rooms := room.NewRegistry()
	rooms.SeedDefaults()
	b := broadcast.New(dir, rooms)
	resolver := identity.NewResolver(nullStore{}, "test_secret")
	h := hub.NewHub(dir, rooms, b, router.NewRouter(rooms, b), resolver, nullStore{})
	if err := h.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Stop() })

	wsCfg := &config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   5 * time.Second,
		SendBuffer:     64,
		MaxMessageSize: 4096,
	}
	for _, mutate := range mutators {
		mutate(wsCfg)
	}
	handler := NewHandler(h, wsCfg, allowedOrigin)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(srv.Close)

	return &testStack{srv: srv, dir: dir}
}

func (ts *testStack) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func send(t *testing.T, client *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	frame, _ := json.Marshal(&types.Envelope{Event: event, Data: data})
	if err := client.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
}

// readUntil drains frames until the named event arrives.
func readUntil(t *testing.T, client *websocket.Conn, event string) *types.Envelope {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed waiting for %s: %v", event, err)
		}
		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("Frame is not an envelope: %v", err)
		}
		if env.Event == event {
			return &env
		}
	}
}

func TestHandler_LoginRoundTrip(t *testing.T) {
	ts := newTestStack(t, "*")
	client := ts.dial(t, nil)

	send(t, client, types.EventLogin, &types.LoginRequest{UserID: "alice", Username: "Alice"})

	env := readUntil(t, client, types.EventRoomsList)
	var rooms []*types.RoomSummary
	if err := json.Unmarshal(env.Data, &rooms); err != nil {
		t.Fatalf("rooms:list decode failed: %v", err)
	}
	if len(rooms) != 5 {
		t.Errorf("Expected 5 default rooms, got %d", len(rooms))
	}
}

func TestHandler_RoomJoinAndMessage(t *testing.T) {
	ts := newTestStack(t, "*")
	client := ts.dial(t, nil)

	send(t, client, types.EventLogin, &types.LoginRequest{UserID: "alice"})
	readUntil(t, client, types.EventRoomsList)

	send(t, client, types.EventRoomJoin, &types.RoomJoinRequest{RoomID: 1})
	env := readUntil(t, client, types.EventRoomHistory)
	var snapshot types.RoomSnapshot
	if err := json.Unmarshal(env.Data, &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.RoomID != 1 {
		t.Errorf("Expected history for room 1, got %d", snapshot.RoomID)
	}

	send(t, client, types.EventRoomMessage, &types.RoomMessageRequest{RoomID: 1, Message: "hello"})
	env = readUntil(t, client, types.EventRoomMessageNew)
	var payload types.RoomMessagePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Message.Content != "hello" || payload.Message.UserID != "alice" {
		t.Errorf("Unexpected message %+v", payload.Message)
	}
}

func TestHandler_PrivateMessageBetweenClients(t *testing.T) {
	ts := newTestStack(t, "*")
	alice := ts.dial(t, nil)
	bob := ts.dial(t, nil)

	send(t, alice, types.EventLogin, &types.LoginRequest{UserID: "alice", Username: "Alice"})
	readUntil(t, alice, types.EventRoomsList)
	send(t, bob, types.EventLogin, &types.LoginRequest{UserID: "bob"})
	readUntil(t, bob, types.EventRoomsList)

	send(t, alice, types.EventPrivate, &types.PrivateMessageRequest{To: "bob", Message: "psst"})

	env := readUntil(t, bob, types.EventPrivate)
	var payload types.PrivateMessagePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.From != "alice" || payload.Content != "psst" {
		t.Errorf("Unexpected payload %+v", payload)
	}

	readUntil(t, alice, types.EventPrivateSent)
}

func TestHandler_DisconnectReconciles(t *testing.T) {
	ts := newTestStack(t, "*")
	alice := ts.dial(t, nil)
	bob := ts.dial(t, nil)

	send(t, alice, types.EventLogin, &types.LoginRequest{UserID: "alice"})
	readUntil(t, alice, types.EventRoomsList)
	send(t, bob, types.EventLogin, &types.LoginRequest{UserID: "bob"})
	readUntil(t, bob, types.EventRoomsList)

	alice.Close()

	env := readUntil(t, bob, types.EventUserOffline)
	var payload types.UserOfflinePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.UserID != "alice" {
		t.Errorf("Expected offline notice for alice, got %s", payload.UserID)
	}

	deadline := time.After(2 * time.Second)
	for ts.dir.Stats()["connections"] != 1 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the directory to drop the connection")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHandler_OversizedFrameClosesConnection(t *testing.T) {
	ts := newTestStack(t, "*", func(cfg *config.WebSocketConfig) {
		cfg.MaxMessageSize = 64
	})
	client := ts.dial(t, nil)

	big := make([]byte, 1024)
	for i := range big {
		big[i] = 'a'
	}
	if err := client.WriteMessage(websocket.TextMessage, big); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	// The server drops the connection instead of buffering the frame.
	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Fatal("Expected the connection to be closed")
	}

	deadline := time.After(2 * time.Second)
	for ts.dir.Stats()["connections"] != 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the directory to drop the connection")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHandler_FrameWithinLimitAccepted(t *testing.T) {
	ts := newTestStack(t, "*", func(cfg *config.WebSocketConfig) {
		cfg.MaxMessageSize = 4096
	})
	client := ts.dial(t, nil)

	send(t, client, types.EventLogin, &types.LoginRequest{UserID: "alice"})
	readUntil(t, client, types.EventRoomsList)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	ts := newTestStack(t, "http://localhost:3000")

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, _, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Expected the upgrade to be rejected")
	}
}

func TestHandler_AcceptsConfiguredOrigin(t *testing.T) {
	ts := newTestStack(t, "http://localhost:3000")

	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	client := ts.dial(t, header)

	send(t, client, types.EventLogin, &types.LoginRequest{UserID: "alice"})
	readUntil(t, client, types.EventRoomsList)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker("http://localhost:3000")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !check(req) {
		t.Error("Expected a request without an Origin header to pass")
	}

	req.Header.Set("Origin", "http://localhost:3000")
	if !check(req) {
		t.Error("Expected the configured origin to pass")
	}

	req.Header.Set("Origin", "http://evil.example.com")
	if check(req) {
		t.Error("Expected a foreign origin to be rejected")
	}

	if !originChecker("*")(req) {
		t.Error("Expected the wildcard to allow any origin")
	}
}
