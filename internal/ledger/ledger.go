// Package ledger defines the pluggable distributed-ledger capability used
// for payment settlement and event publishing. The rest of the service
// depends only on the Client interface; the concrete ledger behind it is a
// deployment choice.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the settlement state of a ledger transfer.
type TransferStatus string

const (
	StatusPending TransferStatus = "PENDING"
	StatusSuccess TransferStatus = "SUCCESS"
	StatusFailed  TransferStatus = "FAILED"
)

// Finalized reports whether the transfer reached a successful terminal state.
func (s TransferStatus) Finalized() bool {
	return s == StatusSuccess
}

// Transfer is the ledger's record of a single value transfer.
type Transfer struct {
	Ref         string          `json:"ref"`
	Status      TransferStatus  `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Asset       string          `json:"asset"`
	Payer       string          `json:"payer"`
	Payee       string          `json:"payee"`
	ConsensusAt time.Time       `json:"consensus_at"`
}

// ErrTransferNotFound is returned by QueryTransfer when the ledger has no
// record of the given reference.
var ErrTransferNotFound = errors.New("ledger: transfer not found")

// Client is the ledger capability consumed by the payment gate and the
// settlement journal.
type Client interface {
	// SubmitTransfer moves amount of asset from one account to another and
	// returns the transaction reference.
	SubmitTransfer(ctx context.Context, from, to string, amount decimal.Decimal, asset string) (string, error)

	// QueryTransfer looks up a transfer by its transaction reference.
	QueryTransfer(ctx context.Context, ref string) (*Transfer, error)

	// PublishEvent publishes a payload to a named topic.
	PublishEvent(ctx context.Context, topic string, payload any) error
}
