package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics records the gateway's calls to the marketplace API.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewUpstreamMetrics registers the upstream metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of marketplace API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_request_attempts",
		Help: "Marketplace API request attempts by outcome.",
	}, []string{"endpoint", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_request_retries",
		Help: "Retries issued against the marketplace API.",
	}, []string{"endpoint"})
	reg.MustRegister(duration, attempts, retries)
	return &UpstreamMetrics{
		duration: duration,
		attempts: attempts,
		retries:  retries,
	}
}

// ObserveDuration records the wall time of a finished request.
func (u *UpstreamMetrics) ObserveDuration(endpoint string, duration time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	u.duration.WithLabelValues(normalizeLabel(endpoint)).Observe(duration.Seconds())
}

// IncAttempt counts one attempt with its outcome ("success", "retryable", "failed").
func (u *UpstreamMetrics) IncAttempt(endpoint, outcome string) {
	if u == nil || u.attempts == nil {
		return
	}
	u.attempts.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(outcome)).Inc()
}

// IncRetry counts a retry issued for the endpoint.
func (u *UpstreamMetrics) IncRetry(endpoint string) {
	if u == nil || u.retries == nil {
		return
	}
	u.retries.WithLabelValues(normalizeLabel(endpoint)).Inc()
}

// NegotiationMetrics counts local pre-validation outcomes.
type NegotiationMetrics struct {
	bids   *prometheus.CounterVec
	offers *prometheus.CounterVec
}

// NewNegotiationMetrics registers negotiation counters on the registerer.
func NewNegotiationMetrics(reg prometheus.Registerer) *NegotiationMetrics {
	if reg == nil {
		return &NegotiationMetrics{}
	}
	bids := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiation_bid_validations",
		Help: "Local bid pre-validations by result.",
	}, []string{"result"})
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiation_offer_transitions",
		Help: "Local offer transitions by result.",
	}, []string{"result"})
	reg.MustRegister(bids, offers)
	return &NegotiationMetrics{bids: bids, offers: offers}
}

// IncBid counts one bid validation outcome.
func (n *NegotiationMetrics) IncBid(result string) {
	if n == nil || n.bids == nil {
		return
	}
	n.bids.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncOffer counts one offer transition outcome.
func (n *NegotiationMetrics) IncOffer(result string) {
	if n == nil || n.offers == nil {
		return
	}
	n.offers.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
