package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/pagination"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

// DefaultPerPage is the log page size when none is requested
const DefaultPerPage = 50

// Logger writes and reads the activity log
type Logger struct {
	db       *sql.DB
	recorder storage.Recorder
	now      func() time.Time
}

// NewLogger creates a database-backed activity logger. recorder may be nil.
func NewLogger(db *sql.DB, recorder storage.Recorder) *Logger {
	return &Logger{
		db:       db,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Log appends entry. A zero Timestamp is set to now.
func (l *Logger) Log(ctx context.Context, entry *Entry) (err error) {
	defer storage.Observe(l.recorder, "activity.log", time.Now(), &err)

	if entry.Action == "" {
		return fmt.Errorf("activity action is required")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	query := `
		INSERT INTO activity_logs (user_id, action, details, ip_address, user_agent, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = l.db.QueryRowContext(ctx, query,
		entry.UserID,
		entry.Action,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
		entry.Timestamp,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

// Record appends an entry for a request. Failures are logged, not returned.
func (l *Logger) Record(ctx context.Context, req RequestInfo, userID *int64, action, details string) {
	entry := &Entry{
		UserID:    userID,
		Action:    action,
		Details:   optional(details),
		IPAddress: optional(req.IPAddress),
		UserAgent: optional(req.UserAgent),
	}
	if err := l.Log(ctx, entry); err != nil {
		observability.FromContext(ctx).
			WithError(err).
			WithField("action", action).
			Error("failed to record activity")
	}
}

const entrySelect = `
	SELECT al.id, al.user_id, u.username, al.action, al.details, al.ip_address, al.user_agent, al.timestamp
	FROM activity_logs al
	LEFT JOIN users u ON al.user_id = u.id
	ORDER BY al.timestamp DESC, al.id DESC
`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var (
			e                                Entry
			userID                           sql.NullInt64
			username, details, ip, userAgent sql.NullString
		)
		if err := rows.Scan(&e.ID, &userID, &username, &e.Action, &details, &ip, &userAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			e.UserID = &id
		}
		e.Username = nullString(username)
		e.Details = nullString(details)
		e.IPAddress = nullString(ip)
		e.UserAgent = nullString(userAgent)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity logs: %w", err)
	}
	return entries, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// List returns one page of the log, newest first
func (l *Logger) List(ctx context.Context, page pagination.Params) (entries []Entry, env pagination.Envelope, err error) {
	defer storage.Observe(l.recorder, "activity.list", time.Now(), &err)

	var total int64
	if err = l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&total); err != nil {
		return nil, pagination.Envelope{}, fmt.Errorf("failed to count activity logs: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, entrySelect+` LIMIT $1 OFFSET $2`, page.PerPage, page.Offset())
	if err != nil {
		return nil, pagination.Envelope{}, fmt.Errorf("failed to list activity logs: %w", err)
	}
	defer rows.Close()

	entries, err = scanEntries(rows)
	if err != nil {
		return nil, pagination.Envelope{}, err
	}
	return entries, pagination.NewEnvelope(page, total), nil
}

// Recent returns the newest n entries
func (l *Logger) Recent(ctx context.Context, n int) (entries []Entry, err error) {
	defer storage.Observe(l.recorder, "activity.recent", time.Now(), &err)

	rows, err := l.db.QueryContext(ctx, entrySelect+` LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent activity: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}
