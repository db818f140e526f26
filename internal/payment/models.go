package payment

import (
	"github.com/shopspring/decimal"
)

// Header is the request header carrying a payment proof.
const Header = "X-PAYMENT"

// Scheme is the only payment scheme this gate speaks: the consumer pays
// the exact required amount (or more) up front.
const Scheme = "exact"

// Requirement tells an unpaid consumer how to pay for a resource. It is
// generated fresh per challenge and never persisted. Field names follow the
// x402 wire format.
type Requirement struct {
	Scheme            string          `json:"scheme"`
	Network           string          `json:"network"`
	Asset             string          `json:"asset"`
	PayTo             string          `json:"payTo"`
	MaxAmountRequired decimal.Decimal `json:"maxAmountRequired"`
	Resource          string          `json:"resource"`
	Description       string          `json:"description"`
	MaxTimeoutSeconds int             `json:"maxTimeoutSeconds"`
}

// Proof is the decoded form of the X-PAYMENT header: the consumer's claim
// that a ledger transfer settles the challenge.
type Proof struct {
	PayerRef       string          `json:"payerRef"`
	Amount         decimal.Decimal `json:"amount"`
	Asset          string          `json:"asset"`
	TransactionRef string          `json:"transactionRef"`
}

// Receipt is the payment echo attached to a successful response.
type Receipt struct {
	Verified bool            `json:"verified"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}
