package guard

import (
	"context"
	"gatekeeper/internal/models"
	"gatekeeper/internal/signals"
	"log/slog"
	"sync"
	"time"
)

// Recorder appends usage events in the background after a request has been
// served. Write failures are logged and never reach the caller.
type Recorder struct {
	store   signals.Store
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder builds a recorder whose writes are bounded by timeout.
func NewRecorder(store signals.Store, timeout time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Record stamps a usage event for id and action and writes it asynchronously.
// The write outlives cancellation of ctx.
func (r *Recorder) Record(ctx context.Context, id models.Identity, action string) {
	if id.Empty() {
		recordsTotal.WithLabelValues("skipped").Inc()
		return
	}
	event := models.NewUsageEvent(id, action, r.now())

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		recordsTotal.WithLabelValues("dropped").Inc()
		r.logger.Warn("Recorder closed, dropping usage event", "action", action, "event_id", event.ID)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.store.AppendUsageEvent(writeCtx, event); err != nil {
			recordsTotal.WithLabelValues("error").Inc()
			r.logger.Error("Failed to record usage event",
				"action", action,
				"event_id", event.ID,
				"error", err)
			return
		}
		recordsTotal.WithLabelValues("ok").Inc()
	}()
}

// Close stops accepting events and waits for in-flight writes.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}
