package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt records one settled score sale: who paid, which ledger transfer
// settled it, and what was served.
type Receipt struct {
	ID             string          `json:"id"`
	ConsumerID     string          `json:"consumer_id"`
	ProductID      string          `json:"product_id"`
	Account        string          `json:"account"` // scored account
	TransactionRef string          `json:"transaction_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Score          int             `json:"score"`
	StaleData      bool            `json:"stale_data"`
	Timestamp      time.Time       `json:"timestamp"`
}
