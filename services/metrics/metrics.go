// Package metrics exposes prometheus counters for token issuance, validation,
// rotation and sweeping. Every method is safe on a nil *Collector.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authsession"

// Outcome labels.
const (
	OutcomeValid           = "valid"
	OutcomeExpired         = "expired"
	OutcomeRevoked         = "revoked"
	OutcomeMalformed       = "malformed"
	OutcomeSubjectMismatch = "subject_mismatch"
	OutcomeRotated         = "rotated"
	OutcomeInvalid         = "invalid"
	OutcomeUserNotFound    = "user_not_found"
	OutcomeError           = "error"
)

type Collector struct {
	registry          *prometheus.Registry
	tokensIssued      *prometheus.CounterVec
	accessValidations *prometheus.CounterVec
	refreshOutcomes   *prometheus.CounterVec
	revocations       prometheus.Counter
	sweepPurged       *prometheus.CounterVec
	sweepFailures     *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued, by kind.",
		}, []string{"kind"}),
		accessValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_validations_total",
			Help:      "Access token validations, by outcome.",
		}, []string{"outcome"}),
		refreshOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_attempts_total",
			Help:      "Refresh protocol attempts, by outcome.",
		}, []string{"outcome"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_revocations_total",
			Help:      "Access tokens recorded as revoked.",
		}),
		sweepPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_purged_total",
			Help:      "Records removed by the expiry sweep, by target store.",
		}, []string{"target"}),
		sweepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Failed sweep runs, by target store.",
		}, []string{"target"}),
	}

	c.registry.MustRegister(
		c.tokensIssued,
		c.accessValidations,
		c.refreshOutcomes,
		c.revocations,
		c.sweepPurged,
		c.sweepFailures,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) TokenIssued(kind string) {
	if c != nil {
		c.tokensIssued.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) AccessValidation(outcome string) {
	if c != nil {
		c.accessValidations.WithLabelValues(outcome).Inc()
	}
}

func (c *Collector) RefreshOutcome(outcome string) {
	if c != nil {
		c.refreshOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (c *Collector) TokenRevoked() {
	if c != nil {
		c.revocations.Inc()
	}
}

func (c *Collector) SweepPurged(target string, count int64) {
	if c != nil && count > 0 {
		c.sweepPurged.WithLabelValues(target).Add(float64(count))
	}
}

func (c *Collector) SweepFailed(target string) {
	if c != nil {
		c.sweepFailures.WithLabelValues(target).Inc()
	}
}
