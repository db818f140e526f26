package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleProducts() []Product {
	return []Product{
		{
			ID:           "trustscore-standard",
			Name:         "Standard Trust Score",
			DefaultPrice: decimal.RequireFromString("0.50"),
			Currency:     "USDC",
			RateLimit:    RateLimit{Calls: 60, PeriodSeconds: 60},
		},
		{
			ID:           "trustscore-bulk",
			Name:         "Bulk Trust Score",
			DefaultPrice: decimal.RequireFromString("0.35"),
			Currency:     "USDC",
			RateLimit:    RateLimit{Calls: 600, PeriodSeconds: 60},
		},
	}
}

func TestCatalogByID(t *testing.T) {
	c := NewCatalog(sampleProducts())

	p := c.ByID("trustscore-standard")
	if p == nil {
		t.Fatal("expected product, got nil")
	}
	if !p.DefaultPrice.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("expected price 0.50, got %s", p.DefaultPrice)
	}

	if c.ByID("no-such-product") != nil {
		t.Error("unknown id should return nil")
	}
}

func TestCatalogListSortedByID(t *testing.T) {
	c := NewCatalog(sampleProducts())

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 products, got %d", len(list))
	}
	if list[0].ID != "trustscore-bulk" || list[1].ID != "trustscore-standard" {
		t.Errorf("expected stable ID order, got: %s, %s", list[0].ID, list[1].ID)
	}
	if c.Len() != 2 {
		t.Errorf("expected Len 2, got %d", c.Len())
	}
}

func TestCatalogListReturnsCopy(t *testing.T) {
	c := NewCatalog(sampleProducts())

	list := c.List()
	list[0].ID = "mutated"

	if c.List()[0].ID != "trustscore-standard" {
		t.Error("mutating the returned slice must not affect the catalog")
	}
}

func TestRateLimitPeriod(t *testing.T) {
	rl := RateLimit{Calls: 60, PeriodSeconds: 90}
	if rl.Period() != 90*time.Second {
		t.Errorf("expected 90s period, got %v", rl.Period())
	}
}
