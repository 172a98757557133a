package signals

import (
	"context"
	"errors"
	"fmt"
	"gatekeeper/internal/models"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS abuse_events (
	id               UUID PRIMARY KEY,
	ip_hash          TEXT,
	fingerprint_hash TEXT,
	risk_label       TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_abuse_events_ip ON abuse_events (ip_hash, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_abuse_events_fp ON abuse_events (fingerprint_hash, created_at DESC);

CREATE TABLE IF NOT EXISTS usage_events (
	id               UUID PRIMARY KEY,
	ip_hash          TEXT,
	fingerprint_hash TEXT,
	action           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_usage_events_ip ON usage_events (ip_hash, action, created_at);
CREATE INDEX IF NOT EXISTS idx_usage_events_fp ON usage_events (fingerprint_hash, action, created_at);
`

// PostgresStore implements the Store interface using PostgreSQL through a
// pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store and ensures the schema exists.
func NewPostgresStore(config Config) (*PostgresStore, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(min(config.MaxIdleConns, int(poolConfig.MaxConns)))
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// LatestAbuseEvent returns the newest abuse event for the given hash.
func (ps *PostgresStore) LatestAbuseEvent(ctx context.Context, dim models.Dimension, hash string) (*models.AbuseEvent, error) {
	if err := validateDimension(dim); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id::text, ip_hash, fingerprint_hash, risk_label, created_at
		FROM abuse_events WHERE %s = $1 ORDER BY created_at DESC LIMIT 1`, dim)

	var (
		event  models.AbuseEvent
		ipHash *string
		fpHash *string
		label  *string
	)
	err := ps.pool.QueryRow(ctx, query, hash).Scan(&event.ID, &ipHash, &fpHash, &label, &event.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest abuse event: %w", err)
	}

	event.OriginHash = derefText(ipHash)
	event.ClientHash = derefText(fpHash)
	event.RiskLabel = models.RiskLabel(derefText(label))
	event.CreatedAt = event.CreatedAt.UTC()
	return &event, nil
}

// UsageInWindow counts usage events created after since.
func (ps *PostgresStore) UsageInWindow(ctx context.Context, dim models.Dimension, hash, action string, since time.Time) (models.UsageWindow, error) {
	if err := validateDimension(dim); err != nil {
		return models.UsageWindow{}, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*), MIN(created_at)
		FROM usage_events WHERE %s = $1 AND action = $2 AND created_at > $3`, dim)

	var (
		count  int64
		oldest *time.Time
	)
	if err := ps.pool.QueryRow(ctx, query, hash, action, since.UTC()).Scan(&count, &oldest); err != nil {
		return models.UsageWindow{}, fmt.Errorf("failed to count usage events: %w", err)
	}

	window := models.UsageWindow{Count: int(count)}
	if oldest != nil {
		window.Oldest = oldest.UTC()
	}
	return window, nil
}

// AppendUsageEvent inserts a usage event.
func (ps *PostgresStore) AppendUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	if err := validateUsageEvent(event); err != nil {
		return err
	}

	_, err := ps.pool.Exec(ctx,
		`INSERT INTO usage_events (id, ip_hash, fingerprint_hash, action, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, nullableText(event.OriginHash), nullableText(event.ClientHash), event.Action, event.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

// AppendAbuseEvent inserts an abuse event.
func (ps *PostgresStore) AppendAbuseEvent(ctx context.Context, event *models.AbuseEvent) error {
	if err := validateAbuseEvent(event); err != nil {
		return err
	}

	_, err := ps.pool.Exec(ctx,
		`INSERT INTO abuse_events (id, ip_hash, fingerprint_hash, risk_label, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, nullableText(event.OriginHash), nullableText(event.ClientHash), nullableText(string(event.RiskLabel)), event.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert abuse event: %w", err)
	}
	return nil
}

// Ping checks the pool connection
func (ps *PostgresStore) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool
func (ps *PostgresStore) Close() error {
	ps.pool.Close()
	return nil
}
