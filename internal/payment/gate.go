// Package payment implements the x402-style payment gate: 402 challenges
// with payment requirements, proof verification against the ledger, and
// settlement receipts. The gate is stateless per request; every call
// re-verifies.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alecgard/vouch/internal/catalog"
	"github.com/alecgard/vouch/internal/ledger"
	"github.com/alecgard/vouch/internal/negotiation"
	"github.com/shopspring/decimal"
)

// VerificationError is a definitive proof rejection. It maps to 402 rather
// than 400: the consumer should pay properly and retry, not abandon the
// flow.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "payment verification failed: " + e.Reason
}

// Config holds the gate's settlement identity and challenge parameters.
type Config struct {
	Network           string
	Asset             string
	PayTo             string
	MaxTimeoutSeconds int
}

// Gate issues payment requirements and verifies proofs.
type Gate struct {
	ledger ledger.Client
	cfg    Config
}

// NewGate creates a payment gate settling through the given ledger client.
func NewGate(ledgerClient ledger.Client, cfg Config) *Gate {
	return &Gate{ledger: ledgerClient, cfg: cfg}
}

// RequirementFor builds a fresh payment requirement for the resource. When
// the consumer holds an unexpired negotiated offer its price is charged;
// otherwise the product's catalog price applies. A charged price never
// exceeds the active offer's price.
func (g *Gate) RequirementFor(product *catalog.Product, offer *negotiation.Offer, resource string) Requirement {
	// Charge the lower of catalog and negotiated price; a charged price
	// never exceeds the active offer's.
	amount := product.DefaultPrice
	if offer != nil && offer.Price.LessThan(amount) {
		amount = offer.Price
	}

	return Requirement{
		Scheme:            Scheme,
		Network:           g.cfg.Network,
		Asset:             g.cfg.Asset,
		PayTo:             g.cfg.PayTo,
		MaxAmountRequired: amount,
		Resource:          resource,
		Description:       fmt.Sprintf("%s for %s", product.Name, resource),
		MaxTimeoutSeconds: g.cfg.MaxTimeoutSeconds,
	}
}

// Verify checks the proof against the ledger and the requirement. The proof
// is valid iff the referenced transfer is finalized, pays the required
// account at least the required amount, and in the required asset.
//
// A *VerificationError means the proof is definitively rejected; any other
// error is a ledger transport failure and implies nothing about the proof.
func (g *Gate) Verify(ctx context.Context, proof *Proof, req Requirement) (*ledger.Transfer, error) {
	transfer, err := g.ledger.QueryTransfer(ctx, proof.TransactionRef)
	if err != nil {
		if errors.Is(err, ledger.ErrTransferNotFound) {
			return nil, &VerificationError{Reason: "transaction not found on ledger"}
		}
		return nil, fmt.Errorf("querying transfer %s: %w", proof.TransactionRef, err)
	}

	if !transfer.Status.Finalized() {
		return nil, &VerificationError{Reason: fmt.Sprintf("transfer not finalized (status %s)", transfer.Status)}
	}
	if transfer.Payee != req.PayTo {
		return nil, &VerificationError{Reason: "transfer payee does not match payment requirement"}
	}
	if transfer.Amount.LessThan(req.MaxAmountRequired) {
		return nil, &VerificationError{
			Reason: fmt.Sprintf("transfer amount %s below required %s", transfer.Amount, req.MaxAmountRequired),
		}
	}
	if !strings.EqualFold(transfer.Asset, req.Asset) {
		return nil, &VerificationError{Reason: "transfer asset does not match payment requirement"}
	}

	return transfer, nil
}

// ReceiptFor builds the payment echo for a successful response.
func ReceiptFor(transfer *ledger.Transfer, currency string) Receipt {
	amount := decimal.Zero
	if transfer != nil {
		amount = transfer.Amount
	}
	return Receipt{Verified: true, Amount: amount, Currency: currency}
}
