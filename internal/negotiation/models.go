package negotiation

import (
	"time"

	"github.com/alecgard/vouch/internal/catalog"
	"github.com/shopspring/decimal"
)

// Offer is a signed price/terms agreement for one consumer and product.
// Offers are immutable once issued and reusable until they expire.
type Offer struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product_id"`
	ConsumerID string            `json:"consumer_id"`
	Price      decimal.Decimal   `json:"price"`
	Currency   string            `json:"currency"`
	RateLimit  catalog.RateLimit `json:"rate_limit"`
	SLA        catalog.SLA       `json:"sla"`
	ValidUntil time.Time         `json:"valid_until"`
	Signature  string            `json:"signature"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Expired reports whether the offer is past its validity window.
func (o *Offer) Expired(now time.Time) bool {
	return now.After(o.ValidUntil)
}

// Request is a consumer's proposed terms.
type Request struct {
	ProductID  string            `json:"product_id"`
	ConsumerID string            `json:"consumer_id"`
	MaxPrice   decimal.Decimal   `json:"max_price"`
	Currency   string            `json:"currency"`
	RateLimit  catalog.RateLimit `json:"rate_limit"`
}
