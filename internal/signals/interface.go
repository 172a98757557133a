// Package signals persists and queries the abuse and usage signal log the
// request gates consult. Backends are interchangeable behind Store and are
// selected by configuration through Factory.
package signals

import (
	"context"
	"gatekeeper/internal/models"
	"time"
)

// Store defines the append-only signal log. Events are never updated or
// deleted through this interface; retention is handled outside the service.
type Store interface {
	// LatestAbuseEvent returns the most recent abuse event whose hash for dim
	// equals hash, or nil when there is none.
	LatestAbuseEvent(ctx context.Context, dim models.Dimension, hash string) (*models.AbuseEvent, error)

	// UsageInWindow counts usage events for (dim hash, action) created strictly
	// after since, and reports the oldest of them.
	UsageInWindow(ctx context.Context, dim models.Dimension, hash, action string, since time.Time) (models.UsageWindow, error)

	// AppendUsageEvent stores a usage event
	AppendUsageEvent(ctx context.Context, event *models.UsageEvent) error

	// AppendAbuseEvent stores a classification produced by the external classifier
	AppendAbuseEvent(ctx context.Context, event *models.AbuseEvent) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (memory, json, sqlite, postgres, redis)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// Database pool tuning for sqlite and postgres
	MaxOpenConns    int           `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime,omitempty" yaml:"conn_max_lifetime,omitempty"`

	// Redis settings for the redis backend
	Redis models.RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`

	// Additional options for specific backends
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}
