package guard

import (
	"gatekeeper/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	gateRisk  = "risk"
	gateUsage = "usage"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "guard",
		Name:      "decisions_total",
		Help:      "Gate decisions by gate, outcome and denial reason.",
	}, []string{"gate", "outcome", "reason"})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "guard",
		Name:      "store_errors_total",
		Help:      "Signal store failures seen while evaluating a gate.",
	}, []string{"gate"})

	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "guard",
		Name:      "usage_records_total",
		Help:      "Usage event writes by result.",
	}, []string{"result"})
)

func observeDecision(gate string, d models.Decision) {
	if d.Allowed {
		decisionsTotal.WithLabelValues(gate, "allow", "").Inc()
		return
	}
	decisionsTotal.WithLabelValues(gate, "deny", d.Reason).Inc()
}
