// Package score computes 0-100 trust scores for ledger accounts from raw
// on-chain analytics. The engine is a pure function of its input: no I/O,
// no clocks beyond the result timestamp, so every band and penalty is
// directly testable.
package score

import (
	"math"
	"time"
)

// Component score bands. Boundaries are inclusive on the favorable side:
// an account exactly on a band edge lands in the better tier.
const (
	ageEstablishedDays = 365
	ageDevelopingDays  = 90

	diversityBroadMin    = 20
	diversityModerateMin = 10
	diversityNarrowMin   = 5

	cvStableMax   = 0.3 // exclusive
	cvModerateMax = 0.6 // inclusive

	trustedTopicBonus   = 2
	trustedTopicCap     = 10
	suspiciousTopicCost = 5
	suspiciousTopicCap  = 10
)

// Penalties per triggered risk flag. Flags stack additively; only the final
// clamp bounds the total.
const (
	penaltyRapidOutflow            = 10
	penaltyNewAccountLargeTransfer = 15
	penaltyMaliciousCounterparty   = 20
)

// Engine scores accounts. It carries an injectable clock so result
// timestamps are deterministic in tests.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a scoring engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Compute scores one account. The result score is always clamped to
// [0, 100]; out-of-range sums are clamped, never dropped.
func (e *Engine) Compute(in Input) Result {
	components := []Component{
		scoreAccountAge(in.AccountAgeDays),
		scoreDiversity(in.UniqueCounterparties),
		scoreVolatility(in.TransferAmounts),
		scoreTokenHealth(in.Tokens),
		scoreTopicQuality(in.TrustedTopics, in.SuspiciousTopics),
	}

	flags := riskFlags(in.Risk)

	total := 0
	for _, c := range components {
		total += c.Score
	}
	for _, f := range flags {
		total -= f.Penalty
	}

	return Result{
		Account:    in.Account,
		Score:      clamp(total, 0, 100),
		Components: components,
		RiskFlags:  flags,
		Timestamp:  e.now().UTC(),
	}
}

func scoreAccountAge(days int) Component {
	c := Component{Name: "account_age", RawMetric: float64(days)}
	switch {
	case days >= ageEstablishedDays:
		c.Score, c.Tier = 20, "established"
	case days >= ageDevelopingDays:
		c.Score, c.Tier = 10, "developing"
	default:
		c.Score, c.Tier = 3, "new"
	}
	return c
}

func scoreDiversity(counterparties int) Component {
	c := Component{Name: "diversity", RawMetric: float64(counterparties)}
	switch {
	case counterparties >= diversityBroadMin:
		c.Score, c.Tier = 20, "broad"
	case counterparties >= diversityModerateMin:
		c.Score, c.Tier = 10, "moderate"
	case counterparties >= diversityNarrowMin:
		c.Score, c.Tier = 5, "narrow"
	default:
		c.Score, c.Tier = 0, "minimal"
	}
	return c
}

func scoreVolatility(amounts []float64) Component {
	cv, ok := CoefficientOfVariation(amounts)
	if !ok {
		// Fewer than two transfers: treat as stable rather than punishing a
		// quiet account twice (account age already penalises it).
		return Component{Name: "volatility", Score: 20, Tier: "stable", RawMetric: 0}
	}

	c := Component{Name: "volatility", RawMetric: cv}
	switch {
	case cv < cvStableMax:
		c.Score, c.Tier = 20, "stable"
	case cv <= cvModerateMax:
		c.Score, c.Tier = 10, "moderate"
	default:
		c.Score, c.Tier = 3, "volatile"
	}
	return c
}

func scoreTokenHealth(dist TokenDistribution) Component {
	c := Component{Name: "token_health", Tier: string(dist)}
	switch dist {
	case TokensBalanced:
		c.Score = 10
	case TokensConcentrated:
		c.Score = 5
	default:
		c.Score, c.Tier = 0, string(TokensNone)
	}
	return c
}

func scoreTopicQuality(trusted, suspicious int) Component {
	bonus := trusted * trustedTopicBonus
	if bonus > trustedTopicCap {
		bonus = trustedTopicCap
	}
	cost := suspicious * suspiciousTopicCost
	if cost > suspiciousTopicCap {
		cost = suspiciousTopicCap
	}

	c := Component{
		Name:      "hcs_quality",
		Score:     bonus - cost,
		RawMetric: float64(trusted - suspicious),
	}
	switch {
	case c.Score > 0:
		c.Tier = "positive"
	case c.Score < 0:
		c.Tier = "negative"
	default:
		c.Tier = "neutral"
	}
	return c
}

// riskFlags maps detected signals to penalty flags. Each flag fires at most
// once per request.
func riskFlags(r RiskSignals) []RiskFlag {
	flags := []RiskFlag{}
	if r.RapidOutflow {
		flags = append(flags, RiskFlag{Type: FlagRapidOutflow, Penalty: penaltyRapidOutflow})
	}
	if r.NewAccountLargeTransfer {
		flags = append(flags, RiskFlag{Type: FlagNewAccountLargeTransfer, Penalty: penaltyNewAccountLargeTransfer})
	}
	if r.MaliciousCounterparty {
		flags = append(flags, RiskFlag{Type: FlagMaliciousCounterparty, Penalty: penaltyMaliciousCounterparty})
	}
	return flags
}

// CoefficientOfVariation returns stddev/mean of the amounts. ok is false
// when fewer than two amounts exist or the mean is zero, in which case the
// ratio is undefined.
func CoefficientOfVariation(amounts []float64) (cv float64, ok bool) {
	if len(amounts) < 2 {
		return 0, false
	}

	var sum float64
	for _, a := range amounts {
		sum += a
	}
	mean := sum / float64(len(amounts))
	if mean == 0 {
		return 0, false
	}

	var sq float64
	for _, a := range amounts {
		d := a - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(amounts)))

	return stddev / mean, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
