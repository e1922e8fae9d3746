package events

import (
	"context"
	"path/filepath"
	"testing"

	"gitfeed/internal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "events.db"),
		Table:       "gitfeed_events",
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeEvent(t *testing.T, store *Store, author, timestamp string) internal.StoredEvent {
	t.Helper()
	stored, err := store.WriteEvent(context.Background(), internal.CanonicalEvent{
		Author:    author,
		Action:    internal.ActionPush,
		ToBranch:  "main",
		Timestamp: timestamp,
	})
	if err != nil {
		t.Fatalf("write event: %v", err)
	}
	return stored
}

func TestWriteEventAssignsID(t *testing.T) {
	store := openTestStore(t)

	first := writeEvent(t, store, "alice", "2024-05-01T10:00:00Z")
	second := writeEvent(t, store, "alice", "2024-05-01T10:00:00Z")

	if first.ID == "" || second.ID == "" {
		t.Fatalf("expected store-assigned ids")
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids for duplicate deliveries")
	}
	if first.Author != "alice" || first.Action != internal.ActionPush {
		t.Fatalf("unexpected stored event: %+v", first)
	}
}

func TestQueryEventsDescendingWithWatermark(t *testing.T) {
	store := openTestStore(t)

	writeEvent(t, store, "alice", "2024-05-01T10:00:00Z")
	writeEvent(t, store, "bob", "2024-05-02T10:00:00Z")
	writeEvent(t, store, "carol", "2024-05-03T10:00:00Z")

	all, err := store.QueryEvents(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Author != "carol" || all[2].Author != "alice" {
		t.Fatalf("expected descending order, got %+v", all)
	}

	// Strict greater-than: the record at the watermark itself is excluded.
	newer, err := store.QueryEvents(context.Background(), "2024-05-02T10:00:00Z", 10)
	if err != nil {
		t.Fatalf("query with watermark: %v", err)
	}
	if len(newer) != 1 || newer[0].Author != "carol" {
		t.Fatalf("expected only events after watermark, got %+v", newer)
	}
}

func TestQueryEventsLimit(t *testing.T) {
	store := openTestStore(t)

	writeEvent(t, store, "alice", "2024-05-01T10:00:00Z")
	writeEvent(t, store, "bob", "2024-05-02T10:00:00Z")
	writeEvent(t, store, "carol", "2024-05-03T10:00:00Z")

	limited, err := store.QueryEvents(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 events, got %d", len(limited))
	}
	if limited[0].Author != "carol" || limited[1].Author != "bob" {
		t.Fatalf("expected newest two, got %+v", limited)
	}
}

func TestWriteEventRoundTripsFromBranch(t *testing.T) {
	store := openTestStore(t)

	from := "dev"
	stored, err := store.WriteEvent(context.Background(), internal.CanonicalEvent{
		Author:     "bob",
		Action:     internal.ActionPullRequest,
		FromBranch: &from,
		ToBranch:   "main",
		Timestamp:  "2024-05-02T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("write event: %v", err)
	}

	got, err := store.QueryEvents(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != stored.ID {
		t.Fatalf("unexpected query result: %+v", got)
	}
	if got[0].FromBranch == nil || *got[0].FromBranch != "dev" {
		t.Fatalf("expected from_branch round trip, got %+v", got[0])
	}
}

func TestPing(t *testing.T) {
	store := openTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
