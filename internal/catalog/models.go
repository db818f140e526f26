package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateLimit is the per-consumer call quota attached to a product.
type RateLimit struct {
	Calls         int `json:"calls"`
	PeriodSeconds int `json:"period_seconds"`
}

// Period returns the quota window as a duration.
func (r RateLimit) Period() time.Duration {
	return time.Duration(r.PeriodSeconds) * time.Second
}

// SLA is the service level advertised with a product.
type SLA struct {
	Uptime         float64 `json:"uptime"`
	ResponseTimeMs int     `json:"response_time_ms"`
}

// Product is a sellable scoring product. The catalog is immutable after
// service start: products are created by seeding/migration and only read at
// runtime.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	Currency     string          `json:"currency"`
	RateLimit    RateLimit       `json:"rate_limit"`
	SLA          SLA             `json:"sla"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateProductInput holds the fields required to create a product.
type CreateProductInput struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	Currency     string          `json:"currency"`
	RateLimit    RateLimit       `json:"rate_limit"`
	SLA          SLA             `json:"sla"`
}
