package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecordNotificationEventCountsActions(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, action := range []string{"yes", "open", "no", "YES"} {
		if _, err := store.RecordNotificationEvent(ctx, action, "experience-1", at); err != nil {
			t.Fatalf("record %q: %v", action, err)
		}
	}

	stats, err := store.NotificationStats(ctx, 10)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Yes != 3 {
		t.Fatalf("expected 3 yes, got %d", stats.Yes)
	}
	if stats.No != 1 {
		t.Fatalf("expected 1 no, got %d", stats.No)
	}
	if stats.Total != 4 {
		t.Fatalf("expected total 4, got %d", stats.Total)
	}
	if len(stats.Recent) != 4 {
		t.Fatalf("expected 4 recent events, got %d", len(stats.Recent))
	}
	if stats.Recent[0].Action != "yes" || stats.Recent[0].Tag != "experience-1" {
		t.Fatalf("unexpected newest event %+v", stats.Recent[0])
	}
	if !stats.Recent[0].CreatedAt.Equal(at) {
		t.Fatalf("expected created_at %s, got %s", at, stats.Recent[0].CreatedAt)
	}
}

func TestRecordNotificationEventRejectsUnknownAction(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if _, err := store.RecordNotificationEvent(context.Background(), "maybe", "", time.Time{}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}

	stats, err := store.NotificationStats(context.Background(), 0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("expected no events, got %d", stats.Total)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := t.TempDir() + "/lazyday.db"
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	_ = second.Close()
}

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewStore(db), func() {
		_ = db.Close()
	}
}
