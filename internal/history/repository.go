package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hmiplocal/hculink/internal/events"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// Entry is one stored occurrence row.
type Entry struct {
	ID           int64     `json:"id"`
	DeviceID     string    `json:"device_id"`
	ChannelIndex int       `json:"channel_index"`
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Repository persists button occurrences in the occurrences table.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts one occurrence, timestamped now.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - occ: Classified occurrence to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Record(ctx context.Context, occ events.Occurrence) error {
	if occ.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if occ.Type == "" {
		return fmt.Errorf("event type is required")
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO occurrences (device_id, channel_index, event_type, occurred_at) VALUES (?, ?, ?, ?)",
		occ.DeviceID,
		occ.ChannelIndex,
		occ.Type,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting occurrence: %w", err)
	}

	return nil
}

// Recent returns the newest occurrences for one device channel, or for
// the whole device when channelIndex is negative. Ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device identifier
//   - channelIndex: Channel filter, negative for all channels
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Occurrences ordered by occurred_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Repository) Recent(ctx context.Context, deviceID string, channelIndex, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	query := `SELECT id, device_id, channel_index, event_type, occurred_at
		 FROM occurrences
		 WHERE device_id = ?`
	args := []interface{}{deviceID}
	if channelIndex >= 0 {
		query += " AND channel_index = ?"
		args = append(args, channelIndex)
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying occurrences: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var occurredAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.ChannelIndex, &entry.EventType, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning occurrence: %w", err)
		}

		timestamp, err := time.Parse(time.RFC3339, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}
		entry.OccurredAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating occurrences: %w", err)
	}

	return entries, nil
}

// Prune deletes occurrences older than the given retention window.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Retention duration; rows older than now-olderThan are deleted
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM occurrences WHERE occurred_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting occurrences: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}
