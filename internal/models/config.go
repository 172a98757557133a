// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every service component.
//
// Configuration Philosophy:
// - Hierarchical configuration grouped by component (server, storage, guard, ...)
// - Defaults that run out of the box for local development
// - Validation catches misconfiguration before the server starts
// - Gate thresholds are deployment parameters, never compiled-in constants
package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Storage type constants
const (
	StorageTypeJSON     = "json"
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
	StorageTypeRedis    = "redis"
)

// Failure policy values for GuardConfig.FailurePolicy
const (
	FailurePolicyOpen   = "open"
	FailurePolicyClosed = "closed"
)

// DefaultHashSalt is used when no salt is configured. It is only acceptable
// outside production; startup logs a warning when it is in effect.
const DefaultHashSalt = "local_dev_salt"

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server and network settings
// - Storage: Signal store backend selection and connection settings
// - Guard: Identity hashing, risk and usage gate policy
// - Security: Admin keys and the per-IP flood limiter
// - Provider: Upstream speech-synthesis and generation providers
// - Logging: Structured logging and output configuration
// - Metrics / Observability: Prometheus metrics and OpenTelemetry tracing
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Storage       StorageConfig       `yaml:"storage" json:"storage"`             // Signal store settings
	Guard         GuardConfig         `yaml:"guard" json:"guard"`                 // Gate policy
	Security      SecurityConfig      `yaml:"security" json:"security"`           // Admin access and flood limiting
	Provider      ProviderConfig      `yaml:"provider" json:"provider"`           // Upstream providers
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Logging and output configuration
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Monitoring and metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	Type     string            `yaml:"type" json:"type"`
	Path     string            `yaml:"path" json:"path"`
	Database DatabaseConfig    `yaml:"database" json:"database"`
	Redis    RedisConfig       `yaml:"redis" json:"redis"`
	Options  map[string]string `yaml:"options" json:"options"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// RedisConfig configures the redis signal store. Retention bounds how long
// usage entries are kept; it must cover the longest usage window.
type RedisConfig struct {
	Addr      string        `yaml:"addr" json:"addr"`
	Password  string        `yaml:"password" json:"password"`
	DB        int           `yaml:"db" json:"db"`
	PoolSize  int           `yaml:"pool_size" json:"pool_size"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	Retention time.Duration `yaml:"retention" json:"retention"`
}

// GuardConfig carries the request-gating policy.
//
// Gate Semantics:
// - HashSalt keys every identity digest; rotating it makes old hashes incomparable
// - SensitiveActions are throttled for callers classified as suspicious
// - UsageLimits maps an action to its ceiling inside UsageWindow
// - DefaultUsageLimit applies to actions missing from UsageLimits (0 = unmetered)
// - FailurePolicy decides what a gate returns when the signal store fails
// - RecordTimeout bounds each background usage-event write
//
// There are deliberately no numeric defaults for the window or ceilings:
// an operator who wants quotas has to state them.
type GuardConfig struct {
	HashSalt          string         `yaml:"hash_salt" json:"-"`
	SensitiveActions  []string       `yaml:"sensitive_actions" json:"sensitive_actions"`
	UsageWindow       time.Duration  `yaml:"usage_window" json:"usage_window"`
	UsageLimits       map[string]int `yaml:"usage_limits" json:"usage_limits"`
	DefaultUsageLimit int            `yaml:"default_usage_limit" json:"default_usage_limit"`
	FailurePolicy     string         `yaml:"failure_policy" json:"failure_policy"`
	RecordTimeout     time.Duration  `yaml:"record_timeout" json:"record_timeout"`
}

// LimitFor returns the usage ceiling configured for action.
func (gc *GuardConfig) LimitFor(action string) int {
	if limit, ok := gc.UsageLimits[action]; ok {
		return limit
	}
	return gc.DefaultUsageLimit
}

// Metered reports whether any action has a positive usage ceiling.
func (gc *GuardConfig) Metered() bool {
	if gc.DefaultUsageLimit > 0 {
		return true
	}
	for _, limit := range gc.UsageLimits {
		if limit > 0 {
			return true
		}
	}
	return false
}

type SecurityConfig struct {
	// AdminKeys are raw bearer tokens accepted by the admin endpoints.
	// They are hashed at startup and never compared in plain text.
	AdminKeys []string        `yaml:"admin_keys" json:"-"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

type ProviderConfig struct {
	TTSEndpoint     string        `yaml:"tts_endpoint" json:"tts_endpoint"`
	GenerationModel string        `yaml:"generation_model" json:"generation_model"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration that runs locally without any
// external services: in-memory signal store, fail-open gates, no quotas.
//
// Default Values Rationale:
// - Port 8080: Standard non-privileged HTTP port
// - Memory storage: no external dependencies for development
// - Sensitive actions: the three generation endpoints
// - Fail-open: availability over strict enforcement when the store is degraded
// - Flood limiter on: coarse per-IP protection in front of the gates
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         86400,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
			Redis: RedisConfig{
				PoolSize:  10,
				KeyPrefix: "gatekeeper:",
				Retention: 24 * time.Hour,
			},
			Options: make(map[string]string),
		},
		Guard: GuardConfig{
			SensitiveActions: []string{ActionGenerateNewPlan, ActionGenerateChapterOutline, ActionGenerateChapterScript},
			UsageLimits:      make(map[string]int),
			FailurePolicy:    FailurePolicyOpen,
			RecordTimeout:    5 * time.Second,
		},
		Security: SecurityConfig{
			AdminKeys: []string{},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				BurstSize:         20,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Provider: ProviderConfig{
			TTSEndpoint:     "https://texttospeech.googleapis.com/v1/text:synthesize",
			GenerationModel: "gemini-2.0-flash",
			Timeout:         60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "gatekeeper",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Guard.Validate(); err != nil {
		return fmt.Errorf("invalid guard config: %w", err)
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("invalid provider config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	validTypes := []string{StorageTypeJSON, StorageTypeMemory, StorageTypePostgres, StorageTypeSQLite, StorageTypeRedis}
	if !slices.Contains(validTypes, stc.Type) {
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}

	switch stc.Type {
	case StorageTypeJSON:
		if stc.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case StorageTypePostgres, StorageTypeSQLite:
		if stc.Database.DSN == "" {
			return errors.New("database DSN is required for database storage")
		}
	case StorageTypeRedis:
		if stc.Redis.Addr == "" {
			return errors.New("redis address is required for redis storage")
		}
		if stc.Redis.Retention <= 0 {
			return errors.New("redis retention must be positive")
		}
	}

	return nil
}

func (gc *GuardConfig) Validate() error {
	if gc.FailurePolicy != FailurePolicyOpen && gc.FailurePolicy != FailurePolicyClosed {
		return fmt.Errorf("invalid failure policy: %s", gc.FailurePolicy)
	}

	if gc.DefaultUsageLimit < 0 {
		return errors.New("default usage limit cannot be negative")
	}

	for action, limit := range gc.UsageLimits {
		if limit < 0 {
			return fmt.Errorf("usage limit for %s cannot be negative", action)
		}
	}

	if gc.UsageWindow < 0 {
		return errors.New("usage window cannot be negative")
	}

	if gc.Metered() && gc.UsageWindow == 0 {
		return errors.New("usage window is required when usage limits are configured")
	}

	if gc.RecordTimeout <= 0 {
		return errors.New("record timeout must be positive")
	}

	return nil
}

func (sec *SecurityConfig) Validate() error {
	if sec.RateLimit.Enabled {
		if sec.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("requests per minute must be positive")
		}
		if sec.RateLimit.BurstSize <= 0 {
			return errors.New("burst size must be positive")
		}
		if sec.RateLimit.CleanupInterval <= 0 {
			return errors.New("cleanup interval must be positive")
		}
	}

	for _, key := range sec.AdminKeys {
		if key == "" {
			return errors.New("admin key cannot be empty")
		}
	}

	return nil
}

func (pc *ProviderConfig) Validate() error {
	if pc.TTSEndpoint == "" {
		return errors.New("tts endpoint cannot be empty")
	}
	if pc.GenerationModel == "" {
		return errors.New("generation model cannot be empty")
	}
	if pc.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !slices.Contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !slices.Contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}

	if !oc.Tracing.Enabled {
		return nil
	}

	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("otlp endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}

	return nil
}
