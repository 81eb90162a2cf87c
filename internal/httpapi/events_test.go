package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/pragma-notes/pragma/internal/data"
	"github.com/pragma-notes/pragma/internal/repo"
	"github.com/pragma-notes/pragma/internal/store"
)

func testServerWithEvents(t *testing.T) (*Server, *repo.Repo, *Broadcaster) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "pragma.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	events := NewBroadcaster(zerolog.Nop())
	t.Cleanup(events.Close)

	r := repo.New(db, repo.Options{Listener: events})
	t.Cleanup(r.Close)

	return NewServer(r, testToken, events, zerolog.Nop()), r, events
}

func TestEventFeedDeliversChanges(t *testing.T) {
	s, r, events := testServerWithEvents(t)

	httpServer := httptest.NewServer(s.Handler())
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/events?token=" + testToken
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the server to register the subscriber before mutating.
	deadline := time.Now().Add(time.Second)
	for events.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	now := time.Now().UTC()
	notebook, err := r.CreateNotebook(ctx, data.NewNotebook{
		Title: "watched", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to create notebook: %v", err)
	}

	_, payload, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var msg eventMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	if msg.Type != "change" {
		t.Errorf("Type = %q, want change", msg.Type)
	}
	if msg.Change.Action != "created" || msg.Change.Type != data.TypeNotebook ||
		msg.Change.ID != notebook.ID {
		t.Errorf("Change = %+v, want created notebook %s", msg.Change, notebook.ID)
	}
}

func TestEventFeedRequiresToken(t *testing.T) {
	s, _, _ := testServerWithEvents(t)

	httpServer := httptest.NewServer(s.Handler())
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/events"
	if _, _, err := websocket.Dial(ctx, wsURL, nil); err == nil {
		t.Error("Expected dial without token to fail")
	}
}
