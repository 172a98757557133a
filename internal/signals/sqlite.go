package signals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gatekeeper/internal/models"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS abuse_events (
	id               TEXT PRIMARY KEY,
	ip_hash          TEXT,
	fingerprint_hash TEXT,
	risk_label       TEXT,
	created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_abuse_events_ip ON abuse_events (ip_hash, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_abuse_events_fp ON abuse_events (fingerprint_hash, created_at DESC);

CREATE TABLE IF NOT EXISTS usage_events (
	id               TEXT PRIMARY KEY,
	ip_hash          TEXT,
	fingerprint_hash TEXT,
	action           TEXT NOT NULL,
	created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_events_ip ON usage_events (ip_hash, action, created_at);
CREATE INDEX IF NOT EXISTS idx_usage_events_fp ON usage_events (fingerprint_hash, action, created_at);
`

// SQLiteStore implements the Store interface on SQLite via database/sql and
// the pure-Go modernc.org/sqlite driver. Timestamps are stored as unix
// microseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at config.ConnectionString and ensures
// the schema exists.
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// LatestAbuseEvent returns the newest abuse event for the given hash.
func (ss *SQLiteStore) LatestAbuseEvent(ctx context.Context, dim models.Dimension, hash string) (*models.AbuseEvent, error) {
	if err := validateDimension(dim); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, ip_hash, fingerprint_hash, risk_label, created_at
		FROM abuse_events WHERE %s = ? ORDER BY created_at DESC LIMIT 1`, dim)

	var (
		event       models.AbuseEvent
		ipHash      sql.NullString
		fpHash      sql.NullString
		label       sql.NullString
		createdAtUs int64
	)
	err := ss.db.QueryRowContext(ctx, query, hash).Scan(&event.ID, &ipHash, &fpHash, &label, &createdAtUs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest abuse event: %w", err)
	}

	event.OriginHash = ipHash.String
	event.ClientHash = fpHash.String
	event.RiskLabel = riskLabel(label)
	event.CreatedAt = fromMicros(createdAtUs)
	return &event, nil
}

// UsageInWindow counts usage events created after since.
func (ss *SQLiteStore) UsageInWindow(ctx context.Context, dim models.Dimension, hash, action string, since time.Time) (models.UsageWindow, error) {
	if err := validateDimension(dim); err != nil {
		return models.UsageWindow{}, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*), MIN(created_at)
		FROM usage_events WHERE %s = ? AND action = ? AND created_at > ?`, dim)

	var (
		count  int
		oldest sql.NullInt64
	)
	if err := ss.db.QueryRowContext(ctx, query, hash, action, toMicros(since)).Scan(&count, &oldest); err != nil {
		return models.UsageWindow{}, fmt.Errorf("failed to count usage events: %w", err)
	}

	window := models.UsageWindow{Count: count}
	if oldest.Valid {
		window.Oldest = fromMicros(oldest.Int64)
	}
	return window, nil
}

// AppendUsageEvent inserts a usage event.
func (ss *SQLiteStore) AppendUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	if err := validateUsageEvent(event); err != nil {
		return err
	}

	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO usage_events (id, ip_hash, fingerprint_hash, action, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID, nullString(event.OriginHash), nullString(event.ClientHash), event.Action, toMicros(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

// AppendAbuseEvent inserts an abuse event.
func (ss *SQLiteStore) AppendAbuseEvent(ctx context.Context, event *models.AbuseEvent) error {
	if err := validateAbuseEvent(event); err != nil {
		return err
	}

	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO abuse_events (id, ip_hash, fingerprint_hash, risk_label, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID, nullString(event.OriginHash), nullString(event.ClientHash), nullString(string(event.RiskLabel)), toMicros(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert abuse event: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (ss *SQLiteStore) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}
