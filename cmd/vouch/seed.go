package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alecgard/vouch/internal/catalog"
	"github.com/alecgard/vouch/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the demo product catalog",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoProducts = []catalog.CreateProductInput{
	{
		ID:           "trustscore-standard",
		Name:         "Standard Trust Score",
		Description:  "Composite reputation score for a ledger account: age, counterparty diversity, transfer volatility, token health, topic quality, and risk flags.",
		DefaultPrice: decimal.RequireFromString("0.50"),
		Currency:     "USDC",
		RateLimit:    catalog.RateLimit{Calls: 60, PeriodSeconds: 60},
		SLA:          catalog.SLA{Uptime: 99.9, ResponseTimeMs: 500},
	},
	{
		ID:           "trustscore-bulk",
		Name:         "Bulk Trust Score",
		Description:  "Same scoring model at a higher call quota for consumers screening many accounts.",
		DefaultPrice: decimal.RequireFromString("0.35"),
		Currency:     "USDC",
		RateLimit:    catalog.RateLimit{Calls: 600, PeriodSeconds: 60},
		SLA:          catalog.SLA{Uptime: 99.5, ResponseTimeMs: 1000},
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := catalog.NewStore(pool)

	// Check if seed has already run.
	existing, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("checking existing products: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("product catalog already seeded, skipping")
		return nil
	}

	for _, input := range demoProducts {
		p, err := store.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("creating product %q: %w", input.ID, err)
		}
		slog.Info("created product", "id", p.ID, "price", p.DefaultPrice.String(), "currency", p.Currency)
	}

	fmt.Printf("\n=== Demo Catalog Seeded ===\n")
	fmt.Printf("Products: %d registered\n", len(demoProducts))
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl http://localhost:8080/products\n")
	fmt.Printf("  curl -X POST http://localhost:8080/ap2/negotiate -d '{\"product_id\":\"trustscore-standard\",\"consumer_id\":\"demo\",\"max_price\":\"0.50\"}'\n")
	fmt.Printf("  curl http://localhost:8080/trustscore/0.0.1001\n")

	return nil
}
