package signals

import (
	"context"
	"gatekeeper/internal/models"
	"sync"
	"time"
)

// MemoryStore implements the Store interface using in-memory data structures.
// This provider is ideal for development, testing, and single-instance
// deployments where losing signals on restart is acceptable.
type MemoryStore struct {
	mu sync.RWMutex

	abuseEvents []*models.AbuseEvent
	usageEvents []*models.UsageEvent

	// Indexes keyed by dimension and hash (and action for usage).
	abuseIndex map[string][]*models.AbuseEvent
	usageIndex map[string][]*models.UsageEvent
}

// NewMemoryStore creates a new memory-based store instance
func NewMemoryStore(config Config) (*MemoryStore, error) {
	return &MemoryStore{
		abuseIndex: make(map[string][]*models.AbuseEvent),
		usageIndex: make(map[string][]*models.UsageEvent),
	}, nil
}

func abuseKey(dim models.Dimension, hash string) string {
	return string(dim) + "\x00" + hash
}

func usageKey(dim models.Dimension, hash, action string) string {
	return string(dim) + "\x00" + hash + "\x00" + action
}

// LatestAbuseEvent returns the newest abuse event for the given hash.
func (m *MemoryStore) LatestAbuseEvent(ctx context.Context, dim models.Dimension, hash string) (*models.AbuseEvent, error) {
	if err := validateDimension(dim); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.AbuseEvent
	for _, event := range m.abuseIndex[abuseKey(dim, hash)] {
		if latest == nil || event.CreatedAt.After(latest.CreatedAt) {
			latest = event
		}
	}
	if latest == nil {
		return nil, nil
	}

	// Return a copy to prevent external modification
	eventCopy := *latest
	return &eventCopy, nil
}

// UsageInWindow counts usage events created after since.
func (m *MemoryStore) UsageInWindow(ctx context.Context, dim models.Dimension, hash, action string, since time.Time) (models.UsageWindow, error) {
	if err := validateDimension(dim); err != nil {
		return models.UsageWindow{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var window models.UsageWindow
	for _, event := range m.usageIndex[usageKey(dim, hash, action)] {
		if !event.CreatedAt.After(since) {
			continue
		}
		window.Count++
		if window.Oldest.IsZero() || event.CreatedAt.Before(window.Oldest) {
			window.Oldest = event.CreatedAt
		}
	}
	return window, nil
}

// AppendUsageEvent stores a copy of event.
func (m *MemoryStore) AppendUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	if err := validateUsageEvent(event); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendUsageLocked(event)
	return nil
}

// AppendAbuseEvent stores a copy of event.
func (m *MemoryStore) AppendAbuseEvent(ctx context.Context, event *models.AbuseEvent) error {
	if err := validateAbuseEvent(event); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendAbuseLocked(event)
	return nil
}

func (m *MemoryStore) appendUsageLocked(event *models.UsageEvent) {
	eventCopy := *event
	m.usageEvents = append(m.usageEvents, &eventCopy)
	id := eventCopy.Identity()
	for _, dim := range id.Dimensions() {
		key := usageKey(dim, id.Hash(dim), eventCopy.Action)
		m.usageIndex[key] = append(m.usageIndex[key], &eventCopy)
	}
}

func (m *MemoryStore) appendAbuseLocked(event *models.AbuseEvent) {
	eventCopy := *event
	m.abuseEvents = append(m.abuseEvents, &eventCopy)
	id := eventCopy.Identity()
	for _, dim := range id.Dimensions() {
		key := abuseKey(dim, id.Hash(dim))
		m.abuseIndex[key] = append(m.abuseIndex[key], &eventCopy)
	}
}

// snapshot returns copies of all stored events in insertion order.
func (m *MemoryStore) snapshot() ([]models.AbuseEvent, []models.UsageEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	abuse := make([]models.AbuseEvent, len(m.abuseEvents))
	for i, e := range m.abuseEvents {
		abuse[i] = *e
	}
	usage := make([]models.UsageEvent, len(m.usageEvents))
	for i, e := range m.usageEvents {
		usage[i] = *e
	}
	return abuse, usage
}

// Ping always succeeds for the in-memory store
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for memory storage
func (m *MemoryStore) Close() error {
	return nil
}
