package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecgard/vouch/internal/analytics"
	"github.com/alecgard/vouch/internal/api"
	"github.com/alecgard/vouch/internal/catalog"
	"github.com/alecgard/vouch/internal/config"
	"github.com/alecgard/vouch/internal/ledger"
	"github.com/alecgard/vouch/internal/metrics"
	"github.com/alecgard/vouch/internal/negotiation"
	"github.com/alecgard/vouch/internal/payment"
	"github.com/alecgard/vouch/internal/ratelimit"
	"github.com/alecgard/vouch/internal/score"
	"github.com/alecgard/vouch/internal/settlement"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// scoreProductID is the catalog product sold through /trustscore.
const scoreProductID = "trustscore-standard"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Vouch scoring server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	cat, err := catalog.Load(ctx, catalog.NewStore(pool))
	if err != nil {
		return err
	}
	slog.Info("loaded product catalog", "products", cat.Len())

	m := metrics.New()

	// Upstream analytics with retry, circuit breaker and stale-serving cache.
	source := analytics.NewHTTPSource(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, cfg.Upstream.APIKey)
	breaker := analytics.NewBreaker(cfg.Upstream.BreakerThreshold, cfg.Upstream.BreakerCooldown)
	breaker.OnTransition(func(from, to analytics.BreakerState) {
		m.SetBreakerState(int(to))
		m.IncBreakerTransition(to.String())
		slog.Warn("upstream breaker transition", "from", from.String(), "to", to.String())
	})
	analyticsClient := analytics.NewClient(source, breaker, analytics.NewCache(cfg.Upstream.CacheTTL), analytics.RetryPolicy{
		MaxAttempts: cfg.Upstream.RetryMaxAttempts,
		BaseBackoff: cfg.Upstream.RetryBaseBackoff,
		MaxBackoff:  cfg.Upstream.RetryMaxBackoff,
	})
	analyticsClient.SetMetrics(m)

	// Ledger client used for payment verification and event publishing.
	resolver := ledger.NewStaticResolver(ledger.Credentials{
		AccountID:  cfg.Ledger.OperatorAccount,
		PrivateKey: cfg.Ledger.OperatorKey,
	})
	ledgerClient := ledger.NewHTTPClient(cfg.Ledger.BaseURL, cfg.Ledger.Timeout, resolver)

	gate := payment.NewGate(ledgerClient, payment.Config{
		Network:           cfg.Ledger.Network,
		Asset:             cfg.Ledger.Asset,
		PayTo:             cfg.Ledger.PayToAccount,
		MaxTimeoutSeconds: 60,
	})

	negotiator := negotiation.NewEngine([]byte(cfg.Negotiation.SigningKey), cfg.Negotiation.OfferTTL)
	offers := negotiation.NewBook()

	limiter := ratelimit.New(ratelimit.Limit{Calls: cfg.RateLimit.Default, Period: cfg.RateLimit.Window})

	settlementStore := settlement.NewStore(pool)
	collector := settlement.NewCollector(settlementStore, cfg.Settlement.BatchSize, cfg.Settlement.FlushInterval)
	go collector.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		Catalog:        cat,
		Negotiator:     negotiator,
		Offers:         offers,
		Gate:           gate,
		Analytics:      analyticsClient,
		Scorer:         score.NewEngine(),
		Limiter:        limiter,
		Settlements:    &meteredCollector{collector: collector, metrics: m},
		Ledger:         ledgerClient,
		EventTopic:     cfg.Ledger.EventTopic,
		ScoreProductID: scoreProductID,
		AccountPattern: cfg.Accounts.IDPattern,
		Metrics:        m,
		DB:             pool,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	collector.Stop()

	return srv.Shutdown(shutdownCtx)
}

// meteredCollector counts receipts and tracks buffer depth as they flow
// into the settlement collector.
type meteredCollector struct {
	collector *settlement.Collector
	metrics   *metrics.Metrics
}

func (c *meteredCollector) Record(r settlement.Receipt) {
	c.collector.Record(r)
	c.metrics.SettlementReceiptsTotal.Inc()
	c.metrics.SettlementBufferSize.Set(float64(c.collector.BufferLen()))
}
