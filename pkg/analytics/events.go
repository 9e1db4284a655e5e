package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

// Action is the kind of product event
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known actions
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionAdd, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// EventTracker appends product analytics events
type EventTracker struct {
	db       *sql.DB
	recorder storage.Recorder
	now      func() time.Time
}

// NewEventTracker creates a new event tracker. recorder may be nil.
func NewEventTracker(db *sql.DB, recorder storage.Recorder) *EventTracker {
	return &EventTracker{
		db:       db,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// TrackProduct records action on productID. userID is nil for anonymous
// actors.
func (t *EventTracker) TrackProduct(ctx context.Context, productID int64, action Action, userID *int64) (err error) {
	defer storage.Observe(t.recorder, "analytics.track_product", time.Now(), &err)

	if !action.Valid() {
		return fmt.Errorf("unknown analytics action %q", action)
	}

	query := `
		INSERT INTO product_analytics (product_id, action_type, user_id, timestamp)
		VALUES ($1, $2, $3, $4)
	`
	if _, err = t.db.ExecContext(ctx, query, productID, string(action), userID, t.now()); err != nil {
		return fmt.Errorf("failed to track product event: %w", err)
	}
	return nil
}

// Record is TrackProduct for request paths: failures are logged and dropped.
func (t *EventTracker) Record(ctx context.Context, productID int64, action Action, userID *int64) {
	if err := t.TrackProduct(ctx, productID, action, userID); err != nil {
		observability.FromContext(ctx).
			WithError(err).
			WithFields(map[string]interface{}{
				"product_id": productID,
				"action":     string(action),
			}).
			Warn("failed to record product event")
	}
}
