package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"lexdesk.org/internal/ids"
	"lexdesk.org/internal/obs"
)

// Entry is one append-only trail record. EntityID is an opaque string,
// never a numeric foreign key, so UUID-keyed entities (36 chars) and
// legacy integer ids both fit without truncation.
type Entry struct {
	ID         string         `json:"id"`
	UserID     *string        `json:"user_id,omitempty"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	IP         string         `json:"ip,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter narrows a trail listing. Zero values mean no constraint.
type Filter struct {
	UserID     string
	EntityType string
	Action     string
	Limit      int
	Offset     int
}

// Store persists trail entries. Append never updates or deletes.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

var ErrInvalidInput = errors.New("audit: invalid input")

const writeTimeout = 3 * time.Second

// Recorder writes the audit trail. Writes are best effort: a failed
// insert is logged and counted but never surfaces to the caller, so a
// trail outage cannot fail the business operation it describes.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit: store is required")
	}
	return &Recorder{store: store, now: time.Now}, nil
}

// Record appends one entry. The write detaches from the request's
// cancellation so a client disconnect after the mutation committed
// still leaves a trail row.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	entry.EntityType = strings.TrimSpace(entry.EntityType)
	entry.Action = strings.TrimSpace(entry.Action)
	if entry.EntityType == "" || entry.Action == "" {
		obs.LogEvent("warn", "audit entry dropped", map[string]any{
			"reason": "missing entity_type or action",
		})
		obs.CountAuditWriteFailure()
		return
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.store.Append(writeCtx, entry); err != nil {
		obs.LogEvent("error", "audit write failed", map[string]any{
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"action":      entry.Action,
			"err":         err.Error(),
		})
		obs.CountAuditWriteFailure()
	}
}

// List returns trail entries matching the filter, newest first.
func (r *Recorder) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, ErrInvalidInput
	}
	if filter.Limit == 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return r.store.List(ctx, filter)
}
