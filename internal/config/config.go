package config

import (
	"fmt"
	"gatekeeper/internal/models"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read outside the GATEKEEPER_ prefix.
const (
	// EnvHashSalt is the identity hashing salt shared with the classifier.
	EnvHashSalt = "ABUSE_HASH_SALT"
)

// Load builds the configuration: defaults, then the YAML file (if given),
// then environment overrides. The result is validated.
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadFromEnvironment(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	applySaltFallback(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	warnRisky(config)

	return config, nil
}

// applySaltFallback fills in the development salt. Hashes computed with it
// will not match those of a classifier using the production salt.
func applySaltFallback(config *models.Config) {
	if config.Guard.HashSalt != "" {
		return
	}
	config.Guard.HashSalt = models.DefaultHashSalt
	slog.Warn("No identity hash salt configured, using development default",
		"env", EnvHashSalt,
		"config_key", "guard.hash_salt")
}

// warnRisky logs settings that are valid but likely unintended.
func warnRisky(config *models.Config) {
	if config.Storage.Type == models.StorageTypeRedis && config.Guard.UsageWindow > config.Storage.Redis.Retention {
		slog.Warn("Redis retention is shorter than the usage window; usage will be undercounted",
			"usage_window", config.Guard.UsageWindow,
			"retention", config.Storage.Redis.Retention)
	}
	if config.Storage.Type == models.StorageTypeMemory && config.Guard.Metered() {
		slog.Warn("Usage limits with memory storage are per instance and reset on restart")
	}
	if len(config.Security.AdminKeys) == 0 {
		slog.Info("No admin keys configured, abuse event ingestion is disabled")
	}
}

func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment applies GATEKEEPER_* overrides. Malformed numeric and
// duration values are ignored, except for guard settings, where a typo would
// silently change enforcement.
func loadFromEnvironment(config *models.Config) error {
	// Server configuration
	if port := os.Getenv("GATEKEEPER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("GATEKEEPER_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("GATEKEEPER_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("GATEKEEPER_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if tls := os.Getenv("GATEKEEPER_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("GATEKEEPER_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("GATEKEEPER_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	if origins := os.Getenv("GATEKEEPER_CORS_ALLOWED_ORIGINS"); origins != "" {
		config.Server.CORS.AllowedOrigins = splitList(origins)
	}

	// Storage configuration
	if storageType := os.Getenv("GATEKEEPER_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}

	if storagePath := os.Getenv("GATEKEEPER_STORAGE_PATH"); storagePath != "" {
		config.Storage.Path = storagePath
	}

	if dsn := os.Getenv("GATEKEEPER_DATABASE_DSN"); dsn != "" {
		config.Storage.Database.DSN = dsn
	}

	if maxOpen := os.Getenv("GATEKEEPER_DATABASE_MAX_OPEN_CONNS"); maxOpen != "" {
		if conns, err := strconv.Atoi(maxOpen); err == nil {
			config.Storage.Database.MaxOpenConns = conns
		}
	}

	if addr := os.Getenv("GATEKEEPER_REDIS_ADDR"); addr != "" {
		config.Storage.Redis.Addr = addr
	}

	if password := os.Getenv("GATEKEEPER_REDIS_PASSWORD"); password != "" {
		config.Storage.Redis.Password = password
	}

	if db := os.Getenv("GATEKEEPER_REDIS_DB"); db != "" {
		if dbNum, err := strconv.Atoi(db); err == nil {
			config.Storage.Redis.DB = dbNum
		}
	}

	if prefix := os.Getenv("GATEKEEPER_REDIS_KEY_PREFIX"); prefix != "" {
		config.Storage.Redis.KeyPrefix = prefix
	}

	if retention := os.Getenv("GATEKEEPER_REDIS_RETENTION"); retention != "" {
		if d, err := time.ParseDuration(retention); err == nil {
			config.Storage.Redis.Retention = d
		}
	}

	// Guard configuration
	if salt := os.Getenv("GATEKEEPER_HASH_SALT"); salt != "" {
		config.Guard.HashSalt = salt
	}

	if salt := os.Getenv(EnvHashSalt); salt != "" {
		config.Guard.HashSalt = salt
	}

	if policy := os.Getenv("GATEKEEPER_FAILURE_POLICY"); policy != "" {
		config.Guard.FailurePolicy = strings.ToLower(policy)
	}

	if actions := os.Getenv("GATEKEEPER_SENSITIVE_ACTIONS"); actions != "" {
		config.Guard.SensitiveActions = splitList(actions)
	}

	if window := os.Getenv("GATEKEEPER_USAGE_WINDOW"); window != "" {
		d, err := time.ParseDuration(window)
		if err != nil {
			return fmt.Errorf("GATEKEEPER_USAGE_WINDOW: %w", err)
		}
		config.Guard.UsageWindow = d
	}

	if limits := os.Getenv("GATEKEEPER_USAGE_LIMITS"); limits != "" {
		parsed, err := parseLimits(limits)
		if err != nil {
			return fmt.Errorf("GATEKEEPER_USAGE_LIMITS: %w", err)
		}
		config.Guard.UsageLimits = parsed
	}

	if limit := os.Getenv("GATEKEEPER_DEFAULT_USAGE_LIMIT"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("GATEKEEPER_DEFAULT_USAGE_LIMIT: %w", err)
		}
		config.Guard.DefaultUsageLimit = n
	}

	if timeout := os.Getenv("GATEKEEPER_RECORD_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Guard.RecordTimeout = d
		}
	}

	// Security configuration
	if keys := os.Getenv("GATEKEEPER_ADMIN_KEYS"); keys != "" {
		config.Security.AdminKeys = splitList(keys)
	}

	if enabled := os.Getenv("GATEKEEPER_RATE_LIMIT_ENABLED"); enabled != "" {
		config.Security.RateLimit.Enabled = strings.ToLower(enabled) == "true"
	}

	if rpm := os.Getenv("GATEKEEPER_RATE_LIMIT_RPM"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			config.Security.RateLimit.RequestsPerMinute = n
		}
	}

	if burst := os.Getenv("GATEKEEPER_RATE_LIMIT_BURST"); burst != "" {
		if n, err := strconv.Atoi(burst); err == nil {
			config.Security.RateLimit.BurstSize = n
		}
	}

	// Provider configuration
	if endpoint := os.Getenv("GATEKEEPER_TTS_ENDPOINT"); endpoint != "" {
		config.Provider.TTSEndpoint = endpoint
	}

	if model := os.Getenv("GATEKEEPER_GENERATION_MODEL"); model != "" {
		config.Provider.GenerationModel = model
	}

	if timeout := os.Getenv("GATEKEEPER_PROVIDER_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Provider.Timeout = d
		}
	}

	// Logging configuration
	if level := os.Getenv("GATEKEEPER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("GATEKEEPER_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("GATEKEEPER_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("GATEKEEPER_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics and tracing
	if metrics := os.Getenv("GATEKEEPER_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if port := os.Getenv("GATEKEEPER_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	if tracing := os.Getenv("GATEKEEPER_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("GATEKEEPER_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("GATEKEEPER_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}

	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseLimits parses "action=limit,action=limit".
func parseLimits(value string) (map[string]int, error) {
	limits := make(map[string]int)
	for _, pair := range splitList(value) {
		action, raw, ok := strings.Cut(pair, "=")
		action = strings.TrimSpace(action)
		if !ok || action == "" {
			return nil, fmt.Errorf("expected action=limit, got %q", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("limit for %s: %w", action, err)
		}
		limits[action] = n
	}
	return limits, nil
}

// SaveExample writes an example configuration with quotas and an admin key
// placeholder filled in.
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.Database.DSN = "./data/signals.db"
	config.Storage.Redis.Addr = "localhost:6379"

	config.Guard.HashSalt = "replace-with-the-classifier-salt"
	config.Guard.UsageWindow = 24 * time.Hour
	config.Guard.UsageLimits = map[string]int{
		models.ActionGenerateNewPlan:        10,
		models.ActionGenerateChapterOutline: 30,
		models.ActionGenerateChapterScript:  30,
		models.ActionSynthesizeSpeech:       200,
	}

	config.Security.AdminKeys = []string{"gk_your-admin-key-here"}

	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
