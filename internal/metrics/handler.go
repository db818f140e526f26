package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics endpoint.
type Summary struct {
	HTTP        httpSummary      `json:"http"`
	Payments    paymentSummary   `json:"payments"`
	Scoring     scoringSummary   `json:"scoring"`
	Upstream    upstreamSummary  `json:"upstream"`
	RateLimit   rateLimitInfo    `json:"rateLimit"`
	Settlement  settlementInfo   `json:"settlement"`
	Server      serverInfo       `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
}

type paymentSummary struct {
	Challenges            float64 `json:"challenges"`
	VerificationsAccepted float64 `json:"verificationsAccepted"`
	VerificationsRejected float64 `json:"verificationsRejected"`
	NegotiationsOffered   float64 `json:"negotiationsOffered"`
	NegotiationsRejected  float64 `json:"negotiationsRejected"`
}

type scoringSummary struct {
	ScoresComputed float64 `json:"scoresComputed"`
}

type upstreamSummary struct {
	Failures     float64 `json:"failures"`
	CacheHits    float64 `json:"cacheHits"`
	CacheMisses  float64 `json:"cacheMisses"`
	StaleServes  float64 `json:"staleServes"`
	BreakerState float64 `json:"breakerState"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type settlementInfo struct {
	BufferSize float64 `json:"bufferSize"`
	Receipts   float64 `json:"receipts"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Handler returns an http.HandlerFunc that serves live metrics in JSON
// format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		families, err := m.registry.Gather()
		if err != nil {
			http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
			return
		}

		fam := make(map[string]*dto.MetricFamily, len(families))
		for _, f := range families {
			fam[f.GetName()] = f
		}

		start := gaugeValue(fam["vouch_server_start_time_seconds"])
		summary := Summary{
			HTTP: httpSummary{
				TotalRequests: sumCounter(fam["vouch_http_requests_total"]),
				P50Latency:    histogramPercentile(fam["vouch_http_request_duration_seconds"], 0.50),
				P95Latency:    histogramPercentile(fam["vouch_http_request_duration_seconds"], 0.95),
			},
			Payments: paymentSummary{
				Challenges:            counterValue(fam["vouch_payment_challenges_total"]),
				VerificationsAccepted: counterWithLabel(fam["vouch_payment_verifications_total"], "result", "accepted"),
				VerificationsRejected: counterWithLabel(fam["vouch_payment_verifications_total"], "result", "rejected"),
				NegotiationsOffered:   counterWithLabel(fam["vouch_negotiations_total"], "outcome", "offered"),
				NegotiationsRejected:  counterWithLabel(fam["vouch_negotiations_total"], "outcome", "rejected"),
			},
			Scoring: scoringSummary{
				ScoresComputed: counterValue(fam["vouch_scores_computed_total"]),
			},
			Upstream: upstreamSummary{
				Failures:     sumCounter(fam["vouch_upstream_failures_total"]),
				CacheHits:    counterWithLabel(fam["vouch_analytics_cache_lookups_total"], "outcome", "hit"),
				CacheMisses:  counterWithLabel(fam["vouch_analytics_cache_lookups_total"], "outcome", "miss"),
				StaleServes:  counterValue(fam["vouch_analytics_stale_serves_total"]),
				BreakerState: gaugeValue(fam["vouch_breaker_state"]),
			},
			RateLimit: rateLimitInfo{
				Rejections: counterValue(fam["vouch_ratelimit_rejections_total"]),
			},
			Settlement: settlementInfo{
				BufferSize: gaugeValue(fam["vouch_settlement_buffer_size"]),
				Receipts:   counterValue(fam["vouch_settlement_receipts_total"]),
			},
			Server: serverInfo{
				StartTime:     start,
				UptimeSeconds: float64(time.Now().Unix()) - start,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store")
		_ = json.NewEncoder(w).Encode(summary)
	}
}

// --- Prometheus metric helpers ---

func sumCounter(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() != nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 || ms[0].GetGauge() == nil {
		return 0
	}
	return ms[0].GetGauge().GetValue()
}

func counterValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 || ms[0].GetCounter() == nil {
		return 0
	}
	return ms[0].GetCounter().GetValue()
}

func counterWithLabel(f *dto.MetricFamily, labelName, labelValue string) float64 {
	if f == nil {
		return 0
	}
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName && lp.GetValue() == labelValue && m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// histogramPercentile computes a percentile from aggregated histogram
// buckets using linear interpolation.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	if f == nil {
		return 0
	}

	type bucket struct {
		upperBound      float64
		cumulativeCount uint64
	}
	var totalCount uint64
	bucketMap := make(map[float64]uint64)

	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		totalCount += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			bucketMap[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if totalCount == 0 {
		return 0
	}

	buckets := make([]bucket, 0, len(bucketMap))
	for ub, count := range bucketMap {
		buckets = append(buckets, bucket{upperBound: ub, cumulativeCount: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].upperBound < buckets[j].upperBound
	})

	rank := q * float64(totalCount)

	var prevBound float64
	var prevCount uint64
	for _, b := range buckets {
		if math.IsInf(b.upperBound, 1) {
			break
		}
		if float64(b.cumulativeCount) >= rank {
			bucketCount := b.cumulativeCount - prevCount
			if bucketCount == 0 {
				return b.upperBound
			}
			fraction := (rank - float64(prevCount)) / float64(bucketCount)
			return prevBound + fraction*(b.upperBound-prevBound)
		}
		prevBound = b.upperBound
		prevCount = b.cumulativeCount
	}

	for i := len(buckets) - 1; i >= 0; i-- {
		if !math.IsInf(buckets[i].upperBound, 1) {
			return buckets[i].upperBound
		}
	}
	return 0
}
