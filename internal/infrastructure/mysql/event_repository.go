package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"auction-relay/internal/domain"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

const createBidEventsTable = `
    CREATE TABLE IF NOT EXISTS bid_events (
        id VARCHAR(64) PRIMARY KEY,
        auction_id VARCHAR(128) NOT NULL,
        event_type VARCHAR(32) NOT NULL,
        data JSON NULL,
        event_timestamp VARCHAR(64) NOT NULL DEFAULT '',
        timestamp DATETIME(3) NOT NULL,
        created_at DATETIME(3) NOT NULL,
        INDEX idx_bid_events_auction (auction_id, timestamp)
    )
`

type MySQLEventRepository struct {
	db *sql.DB
}

func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// EnsureSchema creates the bid_events table if it does not exist yet.
func (r *MySQLEventRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBidEventsTable); err != nil {
		return fmt.Errorf("create bid_events: %w", err)
	}
	return nil
}

func (r *MySQLEventRepository) SaveEvent(ctx context.Context, event *domain.ArchivedEvent) error {
	query := `
        INSERT INTO bid_events (id, auction_id, event_type, data, event_timestamp, timestamp, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	msg := event.Message

	_, err := r.db.ExecContext(ctx, query,
		event.ID, msg.AuctionID, string(msg.Type), nullableJSON(msg.Data),
		msg.Timestamp, ParseTimestamp(msg.Timestamp, event.CreatedAt), event.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save event %s: %w", event.ID, err)
	}
	return nil
}

// ListEvents returns the archive of one auction, oldest first.
func (r *MySQLEventRepository) ListEvents(ctx context.Context, auctionID string, limit int) ([]*domain.ArchivedEvent, error) {
	query := `
        SELECT id, auction_id, event_type, data, event_timestamp, created_at
        FROM bid_events
        WHERE auction_id = ?
        ORDER BY timestamp ASC, created_at ASC
        LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", auctionID, err)
	}
	defer rows.Close()

	events := make([]*domain.ArchivedEvent, 0)
	for rows.Next() {
		var (
			event     domain.ArchivedEvent
			eventType string
			data      sql.NullString
		)

		err := rows.Scan(&event.ID, &event.Message.AuctionID, &eventType,
			&data, &event.Message.Timestamp, &event.CreatedAt)
		if err != nil {
			return nil, err
		}

		event.Message.Type = domain.BroadcastType(eventType)
		if data.Valid {
			event.Message.Data = []byte(data.String)
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}

// timestampLayouts are the ISO-8601 forms seen from event sources. Only the
// ordering column is derived from them; the wire value is stored untouched.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"20060102T150405Z0700",
	"20060102T150405Z",
	"2006-01-02",
}

// ParseTimestamp converts a wire timestamp for the DATETIME column, using
// fallback when raw is empty or unrecognised. Zone-less forms are read as UTC.
func ParseTimestamp(raw string, fallback time.Time) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback.UTC()
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
