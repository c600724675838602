package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubStore struct {
	entries  []Entry
	appendFn func(ctx context.Context, entry Entry) error
	listFn   func(ctx context.Context, filter Filter) ([]Entry, error)
}

func (s *stubStore) Append(ctx context.Context, entry Entry) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, entry)
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return s.entries, nil
}

func newTestRecorder(t *testing.T, store Store) *Recorder {
	t.Helper()
	rec, err := NewRecorder(store)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	return rec
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	store := &stubStore{}
	rec := newTestRecorder(t, store)

	userID := "u1"
	rec.Record(context.Background(), Entry{
		UserID:     &userID,
		EntityType: "case",
		EntityID:   "b7a9f63e-4d1c-4a20-9d8f-0e2c5a1b6f34",
		Action:     "create",
		IP:         "203.0.113.9",
	})

	if len(store.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(store.entries))
	}
	got := store.entries[0]
	if got.ID == "" {
		t.Fatal("expected generated id")
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected timestamp")
	}
	if len(got.EntityID) != 36 {
		t.Fatalf("uuid entity id mangled: %q", got.EntityID)
	}
}

func TestRecordSurvivesCancelledRequest(t *testing.T) {
	var seen context.Context
	store := &stubStore{
		appendFn: func(ctx context.Context, _ Entry) error {
			seen = ctx
			return nil
		},
	}
	rec := newTestRecorder(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Record(ctx, Entry{EntityType: "case", EntityID: "42", Action: "update"})

	if seen == nil {
		t.Fatal("append not called")
	}
	if err := seen.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("write context inherited cancellation: %v", err)
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &stubStore{
		appendFn: func(context.Context, Entry) error {
			return errors.New("connection refused")
		},
	}
	rec := newTestRecorder(t, store)

	// Must not panic or surface the error.
	rec.Record(context.Background(), Entry{EntityType: "role", EntityID: "r1", Action: "grant"})
}

func TestRecordDropsBlankEntries(t *testing.T) {
	store := &stubStore{}
	rec := newTestRecorder(t, store)

	rec.Record(context.Background(), Entry{EntityType: "  ", EntityID: "x", Action: "create"})
	rec.Record(context.Background(), Entry{EntityType: "case", EntityID: "x", Action: ""})

	if len(store.entries) != 0 {
		t.Fatalf("blank entries should be dropped, got %d", len(store.entries))
	}
}

func TestListAppliesDefaultLimit(t *testing.T) {
	var gotFilter Filter
	store := &stubStore{
		listFn: func(_ context.Context, filter Filter) ([]Entry, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	rec := newTestRecorder(t, store)

	if _, err := rec.List(context.Background(), Filter{EntityType: "case"}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotFilter.Limit != 100 {
		t.Fatalf("expected default limit 100, got %d", gotFilter.Limit)
	}

	if _, err := rec.List(context.Background(), Filter{Limit: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEntryMetadataRoundTrips(t *testing.T) {
	store := &stubStore{}
	rec := newTestRecorder(t, store)

	rec.Record(context.Background(), Entry{
		EntityType: "menu_item",
		EntityID:   "m-cases",
		Action:     "visibility_change",
		Metadata:   map[string]any{"role": "lawyer", "visible": true},
	})

	got := store.entries[0]
	if got.Metadata["role"] != "lawyer" {
		t.Fatalf("metadata lost: %v", got.Metadata)
	}
	if got.CreatedAt.Location() != time.UTC {
		t.Fatalf("timestamp not UTC: %v", got.CreatedAt)
	}
}
