package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"gatekeeper/internal/models"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONStore implements the Store interface by keeping signals in memory and
// rewriting a JSON file after every append. Suitable for small single-node
// deployments that need signals to survive a restart.
type JSONStore struct {
	*MemoryStore

	filePath string
	writeMu  sync.Mutex
}

// JSONData represents the structure of data stored in JSON format
type JSONData struct {
	AbuseEvents []models.AbuseEvent `json:"abuse_events"`
	UsageEvents []models.UsageEvent `json:"usage_events"`
	LastUpdated time.Time           `json:"last_updated"`
}

// NewJSONStore creates a new JSON-based store, loading existing signals from
// config.Path or creating the file when it does not exist.
func NewJSONStore(config Config) (*JSONStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("path is required for JSON storage")
	}

	mem, err := NewMemoryStore(config)
	if err != nil {
		return nil, err
	}

	store := &JSONStore{
		MemoryStore: mem,
		filePath:    config.Path,
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}

	return store, nil
}

// load reads the file into memory, creating an empty file when missing.
func (j *JSONStore) load() error {
	fileData, err := os.ReadFile(j.filePath)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return j.persist()
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range data.AbuseEvents {
		j.appendAbuseLocked(&data.AbuseEvents[i])
	}
	for i := range data.UsageEvents {
		j.appendUsageLocked(&data.UsageEvents[i])
	}
	return nil
}

// persist writes the current snapshot atomically via a temp file and rename.
func (j *JSONStore) persist() error {
	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	abuse, usage := j.snapshot()
	data := JSONData{
		AbuseEvents: abuse,
		UsageEvents: usage,
		LastUpdated: time.Now().UTC(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tempFile := j.filePath + ".tmp"
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, j.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// AppendUsageEvent stores the event and rewrites the file.
func (j *JSONStore) AppendUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	if err := j.MemoryStore.AppendUsageEvent(ctx, event); err != nil {
		return err
	}
	return j.persist()
}

// AppendAbuseEvent stores the event and rewrites the file.
func (j *JSONStore) AppendAbuseEvent(ctx context.Context, event *models.AbuseEvent) error {
	if err := j.MemoryStore.AppendAbuseEvent(ctx, event); err != nil {
		return err
	}
	return j.persist()
}

// Close flushes the current state to disk.
func (j *JSONStore) Close() error {
	return j.persist()
}
