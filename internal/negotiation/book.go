package negotiation

import (
	"sync"
	"time"
)

// Book holds the most recent offer per consumer+product pair. The payment
// gate consults it to price unpaid challenges and to enforce negotiated
// terms; expired offers are treated as absent and pruned on read.
type Book struct {
	mu     sync.RWMutex
	offers map[string]*Offer
	now    func() time.Time // injectable clock for testing
}

// NewBook creates an empty offer book.
func NewBook() *Book {
	return &Book{
		offers: make(map[string]*Offer),
		now:    time.Now,
	}
}

// Put records the offer as the active one for its consumer+product pair,
// replacing any earlier offer.
func (b *Book) Put(o *Offer) {
	b.mu.Lock()
	b.offers[offerKey(o.ConsumerID, o.ProductID)] = o
	b.mu.Unlock()
}

// Active returns the unexpired offer for the pair, or nil. An expired offer
// can never resurface: it is deleted the first time it is seen expired.
func (b *Book) Active(consumerID, productID string) *Offer {
	key := offerKey(consumerID, productID)

	b.mu.RLock()
	o, ok := b.offers[key]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	if o.Expired(b.now()) {
		b.mu.Lock()
		// Re-check under the write lock; a fresh offer may have landed.
		if cur, ok := b.offers[key]; ok && cur.Expired(b.now()) {
			delete(b.offers, key)
		}
		b.mu.Unlock()
		return nil
	}
	return o
}

// Len returns the number of stored offers, including not-yet-pruned
// expired ones.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.offers)
}
