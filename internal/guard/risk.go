package guard

import (
	"context"
	"fmt"
	"gatekeeper/internal/models"
	"gatekeeper/internal/signals"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// RiskGate denies requests whose identity was recently classified as risky.
type RiskGate struct {
	store     signals.Store
	sensitive map[string]struct{}
	policy    FailurePolicy
	logger    *slog.Logger
}

// NewRiskGate builds a risk gate. Suspicious identities are only limited on
// the given sensitive actions.
func NewRiskGate(store signals.Store, sensitiveActions []string, policy FailurePolicy, logger *slog.Logger) *RiskGate {
	if logger == nil {
		logger = slog.Default()
	}
	sensitive := make(map[string]struct{}, len(sensitiveActions))
	for _, action := range sensitiveActions {
		sensitive[action] = struct{}{}
	}
	return &RiskGate{
		store:     store,
		sensitive: sensitive,
		policy:    policy,
		logger:    logger,
	}
}

// Evaluate looks up the most recent abuse event across the identity's
// dimensions and maps its label to a decision.
func (g *RiskGate) Evaluate(ctx context.Context, id models.Identity, action string) models.Decision {
	d := g.evaluate(ctx, id, action)
	observeDecision(gateRisk, d)
	return d
}

func (g *RiskGate) evaluate(ctx context.Context, id models.Identity, action string) models.Decision {
	dims := id.Dimensions()
	if len(dims) == 0 {
		return models.Allow()
	}

	candidates := make([]*models.AbuseEvent, len(dims))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, dim := range dims {
		eg.Go(func() error {
			event, err := g.store.LatestAbuseEvent(egCtx, dim, id.Hash(dim))
			if err != nil {
				return fmt.Errorf("latest abuse event by %s: %w", dim, err)
			}
			candidates[i] = event
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		storeErrorsTotal.WithLabelValues(gateRisk).Inc()
		g.logger.Error("Risk gate lookup failed",
			"action", action,
			"policy", string(g.policy),
			"error", err)
		return g.policy.Decide()
	}

	latest := latestEvent(candidates)
	if latest == nil {
		return models.Allow()
	}

	switch latest.RiskLabel {
	case models.RiskAbusive:
		return models.Deny(http.StatusForbidden, models.ReasonAbuseBlocked)
	case models.RiskSuspicious:
		if _, ok := g.sensitive[action]; ok {
			return models.Deny(http.StatusTooManyRequests, models.ReasonAbuseLimited)
		}
	}
	return models.Allow()
}

// latestEvent picks the candidate with the later CreatedAt. On a tie the
// earlier slice position wins.
func latestEvent(candidates []*models.AbuseEvent) *models.AbuseEvent {
	var latest *models.AbuseEvent
	for _, event := range candidates {
		if event == nil {
			continue
		}
		if latest == nil || event.CreatedAt.After(latest.CreatedAt) {
			latest = event
		}
	}
	return latest
}
