package score

import "time"

// TokenDistribution describes the shape of an account's token holdings.
type TokenDistribution string

const (
	TokensBalanced     TokenDistribution = "balanced"
	TokensConcentrated TokenDistribution = "concentrated"
	TokensNone         TokenDistribution = "none"
)

// Risk flag types recognised by the engine.
const (
	FlagRapidOutflow            = "rapid_outflow"
	FlagNewAccountLargeTransfer = "new_account_large_transfer"
	FlagMaliciousCounterparty   = "malicious_counterparty_interaction"
)

// RiskSignals are the raw behavioural signals detected upstream. The engine
// maps each set signal to a penalty flag; detection itself is not its job.
type RiskSignals struct {
	RapidOutflow            bool `json:"rapid_outflow"`
	NewAccountLargeTransfer bool `json:"new_account_large_transfer"`
	MaliciousCounterparty   bool `json:"malicious_counterparty_interaction"`
}

// Input is everything the engine needs to score one account.
type Input struct {
	Account              string
	AccountAgeDays       int
	UniqueCounterparties int // distinct counterparties in the last 30 days
	TransferAmounts      []float64
	Tokens               TokenDistribution
	TrustedTopics        int // interactions with trusted consensus topics
	SuspiciousTopics     int // interactions with suspicious consensus topics
	Risk                 RiskSignals
}

// Component is one of the five fixed scoring dimensions.
type Component struct {
	Name      string  `json:"name"`
	Score     int     `json:"score"`
	Tier      string  `json:"tier"`
	RawMetric float64 `json:"raw_metric"`
}

// RiskFlag is a triggered penalty.
type RiskFlag struct {
	Type    string `json:"type"`
	Penalty int    `json:"severity_penalty"`
}

// Result is the scored output for a single account. Components are always
// exactly five, in a fixed order: account_age, diversity, volatility,
// token_health, hcs_quality.
type Result struct {
	Account    string      `json:"account"`
	Score      int         `json:"score"`
	Components []Component `json:"components"`
	RiskFlags  []RiskFlag  `json:"risk_flags"`
	Timestamp  time.Time   `json:"timestamp"`
}
