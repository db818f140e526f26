package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alecgard/vouch/internal/analytics"
	"github.com/alecgard/vouch/internal/catalog"
	"github.com/alecgard/vouch/internal/ledger"
	"github.com/alecgard/vouch/internal/metrics"
	"github.com/alecgard/vouch/internal/negotiation"
	"github.com/alecgard/vouch/internal/payment"
	"github.com/alecgard/vouch/internal/ratelimit"
	"github.com/alecgard/vouch/internal/score"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Pinger reports backing store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Catalog        *catalog.Catalog
	Negotiator     *negotiation.Engine
	Offers         *negotiation.Book
	Gate           *payment.Gate
	Analytics      *analytics.Client
	Scorer         *score.Engine
	Limiter        *ratelimit.Limiter
	Settlements    ReceiptRecorder
	Ledger         ledger.Client
	EventTopic     string
	ScoreProductID string
	AccountPattern string
	Metrics        *metrics.Metrics
	DB             Pinger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Handlers.
	products := newProductsHandler(deps.Catalog)
	negotiate := newNegotiateHandler(deps.Catalog, deps.Negotiator, deps.Offers, deps.Metrics)
	trustscore := newTrustScoreHandler(deps)

	r.Get("/health", healthHandler(deps.DB, deps.Analytics))

	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler())
	}

	// Well-known manifest.
	r.Get("/.well-known/vouch.json", WellKnownHandler)

	r.Get("/products", products.ListProducts)
	r.Post("/ap2/negotiate", negotiate.Negotiate)
	r.Get("/trustscore/{accountId}", trustscore.GetScore)

	return r
}

// healthHandler reports service, database and upstream breaker status.
func healthHandler(db Pinger, client *analytics.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		database := "ok"
		status := http.StatusOK
		if db == nil {
			database = "unconfigured"
		} else if err := db.Ping(ctx); err != nil {
			database = "unreachable"
			status = http.StatusServiceUnavailable
		}

		upstream := "unknown"
		if client != nil {
			upstream = client.Breaker().State().String()
		}

		writeJSON(w, status, map[string]any{
			"status":    statusWord(status),
			"timestamp": time.Now().UTC(),
			"database":  database,
			"upstream":  upstream,
		})
	}
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}
