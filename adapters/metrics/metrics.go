// Package metrics provides Prometheus metrics collection for botgate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/ports"
)

// Collector holds all Prometheus metrics for botgate.
type Collector struct {
	DecisionsTotal  *prometheus.CounterVec
	RateLimitsTotal *prometheus.CounterVec
	TokenOpsTotal   *prometheus.CounterVec
}

// New creates a collector registered on the given registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botgate",
				Name:      "decisions_total",
				Help:      "Access check decisions by terminal stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		RateLimitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botgate",
				Name:      "rate_limits_total",
				Help:      "Rate limits applied or still standing, by reason",
			},
			[]string{"reason"},
		),
		TokenOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botgate",
				Name:      "token_operations_total",
				Help:      "Token issuance and validation outcomes",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveDecision records a finished access check under the stage that
// terminated it.
func (c *Collector) ObserveDecision(d access.Decision) {
	stage := "authentication"
	outcome := string(d.Access)
	if d.Access == access.StatusAllowed && d.Permissions != nil {
		stage = "authorization"
		outcome = string(*d.Permissions)
	}
	if d.RateChecked {
		stage = "rate_limit"
		if d.RateLimit != nil {
			outcome = "limited"
		} else {
			outcome = "passed"
		}
	}
	c.DecisionsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveRateLimit records an applied or standing limit.
func (c *Collector) ObserveRateLimit(reason string, deadline time.Time) {
	c.RateLimitsTotal.WithLabelValues(reason).Inc()
}

// ObserveToken records a token operation outcome.
func (c *Collector) ObserveToken(outcome string) {
	c.TokenOpsTotal.WithLabelValues(outcome).Inc()
}

// Ensure interface compliance.
var _ ports.Metrics = (*Collector)(nil)
