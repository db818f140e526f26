package analytics

import "time"

// AccountActivity is the raw on-chain data the upstream analytics API
// reports for one account.
type AccountActivity struct {
	Account                 string    `json:"account"`
	CreatedAt               time.Time `json:"created_at"`
	UniqueCounterparties30d int       `json:"unique_counterparties_30d"`
	TransferAmounts         []float64 `json:"transfer_amounts"`
	TokenDistribution       string    `json:"token_distribution"` // balanced | concentrated | none
	TrustedTopics           int       `json:"trusted_topic_interactions"`
	SuspiciousTopics        int       `json:"suspicious_topic_interactions"`
	RapidOutflow            bool      `json:"rapid_outflow"`
	NewAccountLargeTransfer bool      `json:"new_account_large_transfer"`
	MaliciousCounterparty   bool      `json:"malicious_counterparty_interaction"`
}

// Snapshot is account activity plus its provenance. Stale marks data served
// past its freshness TTL as a degraded-mode fallback; callers decide whether
// to surface a warning.
type Snapshot struct {
	Activity  AccountActivity `json:"activity"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
}
