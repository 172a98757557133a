// Package guard decides whether an anonymous request may proceed. A request
// passes the risk gate first, then the usage gate; once it has been served the
// recorder appends the usage event that later usage checks count.
package guard

import (
	"context"
	"fmt"
	"gatekeeper/internal/models"
	"gatekeeper/internal/signals"
	"log/slog"
	"time"
)

// Option configures a Guard.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for window arithmetic and event stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Guard bundles both gates and the recorder over one signal store.
type Guard struct {
	Risk     *RiskGate
	Usage    *UsageGate
	Recorder *Recorder
}

// New wires the gates from configuration.
func New(cfg models.GuardConfig, store signals.Store, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("signal store is required")
	}

	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	policy, err := ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}
	if cfg.Metered() && cfg.UsageWindow <= 0 {
		return nil, fmt.Errorf("usage window is required when usage limits are configured")
	}

	timeout := cfg.RecordTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	usage := NewUsageGate(store, cfg, policy, o.logger)
	usage.now = o.now
	recorder := NewRecorder(store, timeout, o.logger)
	recorder.now = o.now

	return &Guard{
		Risk:     NewRiskGate(store, cfg.SensitiveActions, policy, o.logger),
		Usage:    usage,
		Recorder: recorder,
	}, nil
}

// Check runs the risk gate and, if it allows, the usage gate.
func (g *Guard) Check(ctx context.Context, id models.Identity, action string) models.Decision {
	if d := g.Risk.Evaluate(ctx, id, action); !d.Allowed {
		return d
	}
	return g.Usage.Evaluate(ctx, id, action)
}

// Record hands a served request to the recorder.
func (g *Guard) Record(ctx context.Context, id models.Identity, action string) {
	g.Recorder.Record(ctx, id, action)
}

// Close drains pending usage writes.
func (g *Guard) Close() {
	g.Recorder.Close()
}
