package escalate

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 3; i++ {
		ev := NewEvent(EventEscalation, "1.0", "analyst", fmt.Sprintf("reason-%d", i), "fallback")
		ev.Timestamp = fmt.Sprintf("2026-01-01T00:00:0%d.000Z", i)
		if err := store.Send(ev); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	events, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	// Newest first.
	if events[0].Reason != "reason-2" || events[2].Reason != "reason-0" {
		t.Errorf("order = %q, %q, %q", events[0].Reason, events[1].Reason, events[2].Reason)
	}
}

func TestStoreRecentLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 5; i++ {
		if err := store.Send(NewEvent(EventError, "1.0", "analyst", "r", "fallback")); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	events, err := store.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len = %d, want 2", len(events))
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Send(NewEvent(EventHealthCheck, "1.0", "analyst", "unhealthy", "fallback")); err != nil {
		t.Fatalf("send: %v", err)
	}
	store.Close()

	store, err = OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	events, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("len = %d, want 1 after reopen", len(events))
	}
}
