// Package negotiation implements the AP2-style pre-payment agreement
// protocol: consumers propose terms, the engine either rejects them or
// issues a signed, time-boxed offer at catalog price.
package negotiation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alecgard/vouch/internal/catalog"
	"github.com/google/uuid"
)

// DefaultOfferTTL is how long an issued offer stays valid.
const DefaultOfferTTL = 5 * time.Minute

// ErrPriceTooLow is returned when the consumer's maximum price is below the
// catalog price. The engine never discounts: negotiation is an
// accept/reject gate, not a bargaining algorithm.
var ErrPriceTooLow = errors.New("negotiation: offered max price below catalog price")

// ErrCurrencyMismatch is returned when the consumer proposes a currency the
// product is not sold in.
var ErrCurrencyMismatch = errors.New("negotiation: currency does not match product")

// Engine issues offers. It is stateless apart from its signing key; issued
// offers live in the Book.
type Engine struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time // injectable clock for testing
}

// NewEngine creates an engine signing offers with key. ttl of zero means
// DefaultOfferTTL.
func NewEngine(key []byte, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultOfferTTL
	}
	return &Engine{signingKey: key, ttl: ttl, now: time.Now}
}

// Negotiate evaluates the consumer's proposed terms against the product and
// either returns a signed offer or a rejection error.
//
// The offered price is always the catalog price. Offered limits are the
// catalog limits as a ceiling: a consumer may ask for fewer calls and get
// them, but never more.
func (e *Engine) Negotiate(product *catalog.Product, req Request) (*Offer, error) {
	if req.Currency != "" && !strings.EqualFold(req.Currency, product.Currency) {
		return nil, ErrCurrencyMismatch
	}
	if req.MaxPrice.LessThan(product.DefaultPrice) {
		return nil, ErrPriceTooLow
	}

	limit := product.RateLimit
	if req.RateLimit.Calls > 0 && req.RateLimit.Calls < limit.Calls {
		limit.Calls = req.RateLimit.Calls
	}

	offer := &Offer{
		ID:         uuid.NewString(),
		ProductID:  product.ID,
		ConsumerID: req.ConsumerID,
		Price:      product.DefaultPrice,
		Currency:   product.Currency,
		RateLimit:  limit,
		SLA:        product.SLA,
		ValidUntil: e.now().Add(e.ttl).UTC(),
	}
	offer.Signature = e.sign(offer)
	return offer, nil
}

// VerifySignature reports whether the offer's signature matches its terms.
func (e *Engine) VerifySignature(o *Offer) bool {
	return hmac.Equal([]byte(e.sign(o)), []byte(o.Signature))
}

// sign produces an HMAC-SHA256 over the offer's binding terms.
func (e *Engine) sign(o *Offer) string {
	mac := hmac.New(sha256.New, e.signingKey)
	fmt.Fprintf(mac, "%s|%s|%s|%s|%s|%d|%d",
		o.ID,
		o.ProductID,
		o.ConsumerID,
		o.Price.String(),
		o.Currency,
		o.RateLimit.Calls,
		o.ValidUntil.Unix(),
	)
	return hex.EncodeToString(mac.Sum(nil))
}

// offerKey builds the Book key for a consumer+product pair.
func offerKey(consumerID, productID string) string {
	return consumerID + "\x00" + productID
}
