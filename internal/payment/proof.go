package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DecodeProof parses the value of an X-PAYMENT header: standard base64
// wrapping a JSON proof object. A malformed header is the consumer's
// mistake and maps to 400, never 402.
func DecodeProof(header string) (*Proof, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("decoding payment header: %w", err)
	}

	var p Proof
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing payment proof: %w", err)
	}
	if p.TransactionRef == "" {
		return nil, fmt.Errorf("payment proof missing transactionRef")
	}
	return &p, nil
}

// EncodeProof is the inverse of DecodeProof, used by clients and tests.
func EncodeProof(p *Proof) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshalling payment proof: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
