package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Vouch service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Payment protocol metrics.
	PaymentChallengesTotal    prometheus.Counter
	PaymentVerificationsTotal *prometheus.CounterVec

	// Negotiation metrics.
	NegotiationsTotal *prometheus.CounterVec

	// Scoring metrics.
	ScoresComputedTotal prometheus.Counter
	ScoreDistribution   prometheus.Histogram

	// Rate limiting.
	RateLimitRejectionsTotal prometheus.Counter

	// Upstream analytics resilience.
	UpstreamFailuresTotal   *prometheus.CounterVec
	CacheLookupsTotal       *prometheus.CounterVec
	StaleServesTotal        prometheus.Counter
	BreakerState            prometheus.Gauge
	BreakerTransitionsTotal *prometheus.CounterVec

	// Settlement journal.
	SettlementBufferSize    prometheus.Gauge
	SettlementReceiptsTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		PaymentChallengesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vouch_payment_challenges_total",
			Help: "Total number of 402 challenges issued.",
		}),

		PaymentVerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_payment_verifications_total",
			Help: "Total number of payment proof verifications by result.",
		}, []string{"result"}),

		NegotiationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_negotiations_total",
			Help: "Total number of negotiation requests by outcome.",
		}, []string{"outcome"}),

		ScoresComputedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vouch_scores_computed_total",
			Help: "Total number of trust scores computed.",
		}),

		ScoreDistribution: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vouch_score_distribution",
			Help:    "Distribution of computed trust scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vouch_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}),

		UpstreamFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_upstream_failures_total",
			Help: "Total number of upstream analytics failures by class.",
		}, []string{"class"}),

		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_analytics_cache_lookups_total",
			Help: "Total number of analytics cache lookups by outcome.",
		}, []string{"outcome"}),

		StaleServesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vouch_analytics_stale_serves_total",
			Help: "Total number of responses served from stale cache entries.",
		}),

		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vouch_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		}),

		BreakerTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_breaker_transitions_total",
			Help: "Total number of circuit breaker transitions.",
		}, []string{"to"}),

		SettlementBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vouch_settlement_buffer_size",
			Help: "Current number of buffered settlement receipts.",
		}),

		SettlementReceiptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vouch_settlement_receipts_total",
			Help: "Total number of settlement receipts recorded.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vouch_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PaymentChallengesTotal,
		m.PaymentVerificationsTotal,
		m.NegotiationsTotal,
		m.ScoresComputedTotal,
		m.ScoreDistribution,
		m.RateLimitRejectionsTotal,
		m.UpstreamFailuresTotal,
		m.CacheLookupsTotal,
		m.StaleServesTotal,
		m.BreakerState,
		m.BreakerTransitionsTotal,
		m.SettlementBufferSize,
		m.SettlementReceiptsTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncCacheHit implements analytics.Recorder.
func (m *Metrics) IncCacheHit(fresh bool) {
	outcome := "hit"
	if !fresh {
		outcome = "hit_stale"
	}
	m.CacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// IncCacheMiss implements analytics.Recorder.
func (m *Metrics) IncCacheMiss() {
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// IncStaleServe implements analytics.Recorder.
func (m *Metrics) IncStaleServe() {
	m.StaleServesTotal.Inc()
}

// IncUpstreamFailure implements analytics.Recorder.
func (m *Metrics) IncUpstreamFailure(transient bool) {
	class := "permanent"
	if transient {
		class = "transient"
	}
	m.UpstreamFailuresTotal.WithLabelValues(class).Inc()
}

// IncPaymentChallenge counts an issued 402 challenge.
func (m *Metrics) IncPaymentChallenge() {
	m.PaymentChallengesTotal.Inc()
}

// IncPaymentVerification counts a proof verification by result
// (accepted, rejected, error).
func (m *Metrics) IncPaymentVerification(result string) {
	m.PaymentVerificationsTotal.WithLabelValues(result).Inc()
}

// IncNegotiation counts a negotiation by outcome (offered, rejected).
func (m *Metrics) IncNegotiation(outcome string) {
	m.NegotiationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveScore records one computed trust score.
func (m *Metrics) ObserveScore(score int) {
	m.ScoresComputedTotal.Inc()
	m.ScoreDistribution.Observe(float64(score))
}

// IncRateLimitRejection counts a 429.
func (m *Metrics) IncRateLimitRejection() {
	m.RateLimitRejectionsTotal.Inc()
}

// SetBreakerState records the breaker position as a gauge.
func (m *Metrics) SetBreakerState(state int) {
	m.BreakerState.Set(float64(state))
}

// IncBreakerTransition counts a breaker transition into the named state.
func (m *Metrics) IncBreakerTransition(to string) {
	m.BreakerTransitionsTotal.WithLabelValues(to).Inc()
}
