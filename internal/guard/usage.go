package guard

import (
	"context"
	"fmt"
	"gatekeeper/internal/models"
	"gatekeeper/internal/signals"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// UsageGate enforces a per-action ceiling on served requests inside a
// trailing window, counted independently per identity dimension.
type UsageGate struct {
	store  signals.Store
	limits map[string]int
	deflt  int
	window time.Duration
	policy FailurePolicy
	logger *slog.Logger
	now    func() time.Time
}

// NewUsageGate builds a usage gate from the configured ceilings and window.
func NewUsageGate(store signals.Store, cfg models.GuardConfig, policy FailurePolicy, logger *slog.Logger) *UsageGate {
	if logger == nil {
		logger = slog.Default()
	}
	limits := make(map[string]int, len(cfg.UsageLimits))
	for action, limit := range cfg.UsageLimits {
		limits[action] = limit
	}
	return &UsageGate{
		store:  store,
		limits: limits,
		deflt:  cfg.DefaultUsageLimit,
		window: cfg.UsageWindow,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// LimitFor returns the ceiling for action. Zero or less means unmetered.
func (g *UsageGate) LimitFor(action string) int {
	if limit, ok := g.limits[action]; ok {
		return limit
	}
	return g.deflt
}

// Evaluate counts the identity's recent usage of action and denies once the
// busier dimension reaches the ceiling.
func (g *UsageGate) Evaluate(ctx context.Context, id models.Identity, action string) models.Decision {
	d := g.evaluate(ctx, id, action)
	observeDecision(gateUsage, d)
	return d
}

func (g *UsageGate) evaluate(ctx context.Context, id models.Identity, action string) models.Decision {
	dims := id.Dimensions()
	if len(dims) == 0 {
		return models.Allow()
	}

	ceiling := g.LimitFor(action)
	if ceiling <= 0 || g.window <= 0 {
		return models.Allow()
	}

	now := g.now()
	since := now.Add(-g.window)

	windows := make([]models.UsageWindow, len(dims))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, dim := range dims {
		eg.Go(func() error {
			w, err := g.store.UsageInWindow(egCtx, dim, id.Hash(dim), action, since)
			if err != nil {
				return fmt.Errorf("usage by %s: %w", dim, err)
			}
			windows[i] = w
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		storeErrorsTotal.WithLabelValues(gateUsage).Inc()
		g.logger.Error("Usage gate lookup failed",
			"action", action,
			"policy", string(g.policy),
			"error", err)
		return g.policy.Decide()
	}

	count := 0
	for _, w := range windows {
		count = max(count, w.Count)
	}
	if count < ceiling {
		return models.Allow()
	}

	// The later oldest event among over-limit dimensions bounds the wait.
	var oldest time.Time
	for _, w := range windows {
		if w.Count >= ceiling && w.Oldest.After(oldest) {
			oldest = w.Oldest
		}
	}
	return models.DenyUsage(retryAfter(oldest, now, g.window))
}

// retryAfter is the time until oldest leaves the window, rounded up to whole
// seconds and kept within (0, window].
func retryAfter(oldest, now time.Time, window time.Duration) time.Duration {
	wait := oldest.Add(window).Sub(now)
	if wait <= 0 {
		wait = time.Second
	}
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return min(wait, window)
}
