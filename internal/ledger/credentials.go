package ledger

import (
	"context"
	"fmt"
)

// Credentials identify the ledger account a request is signed as.
type Credentials struct {
	AccountID  string
	PrivateKey string
}

// CredentialResolver supplies the credentials used when submitting ledger
// operations on behalf of an account. It is injected into the client so
// deployment concerns (shared operator accounts, per-agent keys) never leak
// into business logic.
type CredentialResolver interface {
	Resolve(ctx context.Context, accountID string) (Credentials, error)
}

// StaticResolver resolves every account to a single operator credential.
type StaticResolver struct {
	creds Credentials
}

// NewStaticResolver creates a resolver that always returns the given
// operator credentials.
func NewStaticResolver(creds Credentials) *StaticResolver {
	return &StaticResolver{creds: creds}
}

// Resolve returns the operator credentials regardless of account.
func (r *StaticResolver) Resolve(_ context.Context, _ string) (Credentials, error) {
	if r.creds.AccountID == "" {
		return Credentials{}, fmt.Errorf("no operator credentials configured")
	}
	return r.creds, nil
}
