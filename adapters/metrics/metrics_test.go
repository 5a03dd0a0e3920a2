package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/artpar/botgate/adapters/metrics"
	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
)

func TestObserveDecision_Stages(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())

	// Terminal at authentication.
	c.ObserveDecision(access.Decision{Access: access.StatusDenied})
	if got := testutil.ToFloat64(c.DecisionsTotal.WithLabelValues("authentication", "denied")); got != 1 {
		t.Errorf("authentication/denied = %v, want 1", got)
	}

	// Terminal at authorization.
	denied := access.StatusDenied
	c.ObserveDecision(access.Decision{Access: access.StatusAllowed, Permissions: &denied})
	if got := testutil.ToFloat64(c.DecisionsTotal.WithLabelValues("authorization", "denied")); got != 1 {
		t.Errorf("authorization/denied = %v, want 1", got)
	}

	// Full pass through the rate check.
	allowed := access.StatusAllowed
	c.ObserveDecision(access.Decision{Access: access.StatusAllowed, Permissions: &allowed, RateChecked: true})
	if got := testutil.ToFloat64(c.DecisionsTotal.WithLabelValues("rate_limit", "passed")); got != 1 {
		t.Errorf("rate_limit/passed = %v, want 1", got)
	}

	// Limited.
	deadline := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
	c.ObserveDecision(access.Decision{Access: access.StatusAllowed, Permissions: &allowed, RateChecked: true, RateLimit: &deadline})
	if got := testutil.ToFloat64(c.DecisionsTotal.WithLabelValues("rate_limit", "limited")); got != 1 {
		t.Errorf("rate_limit/limited = %v, want 1", got)
	}
}

func TestObserveRateLimitAndToken(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())

	c.ObserveRateLimit(ratelimit.ReasonPerHour, time.Now())
	c.ObserveRateLimit(ratelimit.ReasonPerHour, time.Now())
	if got := testutil.ToFloat64(c.RateLimitsTotal.WithLabelValues(ratelimit.ReasonPerHour)); got != 2 {
		t.Errorf("rate_limits per_hour = %v, want 2", got)
	}

	c.ObserveToken("issued")
	if got := testutil.ToFloat64(c.TokenOpsTotal.WithLabelValues("issued")); got != 1 {
		t.Errorf("token issued = %v, want 1", got)
	}
}
