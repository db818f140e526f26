package score

import (
	"math"
	"testing"
	"time"
)

// newTestEngine returns an engine with a fixed clock.
func newTestEngine() *Engine {
	e := NewEngine()
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func componentByName(t *testing.T, r Result, name string) Component {
	t.Helper()
	for _, c := range r.Components {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("component %q not found", name)
	return Component{}
}

func TestComputeHealthyEstablishedAccount(t *testing.T) {
	e := newTestEngine()

	// CV of [90, 100, 110] is ~0.082, well inside the stable band.
	r := e.Compute(Input{
		Account:              "0.0.1001",
		AccountAgeDays:       400,
		UniqueCounterparties: 25,
		TransferAmounts:      []float64{90, 100, 110},
		Tokens:               TokensBalanced,
		TrustedTopics:        2,
	})

	want := map[string]int{
		"account_age":  20,
		"diversity":    20,
		"volatility":   20,
		"token_health": 10,
		"hcs_quality":  4,
	}
	for name, score := range want {
		if got := componentByName(t, r, name).Score; got != score {
			t.Errorf("component %s = %d, want %d", name, got, score)
		}
	}
	if r.Score != 74 {
		t.Fatalf("score = %d, want 74", r.Score)
	}
	if len(r.RiskFlags) != 0 {
		t.Fatalf("expected no risk flags, got %v", r.RiskFlags)
	}
}

func TestComputeRiskyNewAccountClampsToZero(t *testing.T) {
	e := newTestEngine()

	// CV of [10, 90] is exactly 0.8 (mean 50, stddev 40).
	r := e.Compute(Input{
		Account:              "0.0.2002",
		AccountAgeDays:       30,
		UniqueCounterparties: 3,
		TransferAmounts:      []float64{10, 90},
		Tokens:               TokensNone,
		Risk:                 RiskSignals{NewAccountLargeTransfer: true},
	})

	want := map[string]int{
		"account_age":  3,
		"diversity":    0,
		"volatility":   3,
		"token_health": 0,
		"hcs_quality":  0,
	}
	for name, score := range want {
		if got := componentByName(t, r, name).Score; got != score {
			t.Errorf("component %s = %d, want %d", name, got, score)
		}
	}
	// Components sum to 6, penalty is 15: clamped to 0, never negative.
	if r.Score != 0 {
		t.Fatalf("score = %d, want 0", r.Score)
	}
	if len(r.RiskFlags) != 1 || r.RiskFlags[0].Type != FlagNewAccountLargeTransfer || r.RiskFlags[0].Penalty != 15 {
		t.Fatalf("unexpected risk flags: %v", r.RiskFlags)
	}
}

func TestAccountAgeBands(t *testing.T) {
	tests := []struct {
		days     int
		score    int
		tier     string
	}{
		{0, 3, "new"},
		{89, 3, "new"},
		{90, 10, "developing"}, // boundary lands in the better tier
		{364, 10, "developing"},
		{365, 20, "established"},
		{4000, 20, "established"},
	}
	for _, tt := range tests {
		c := scoreAccountAge(tt.days)
		if c.Score != tt.score || c.Tier != tt.tier {
			t.Errorf("age %d: got (%d, %s), want (%d, %s)", tt.days, c.Score, c.Tier, tt.score, tt.tier)
		}
	}
}

func TestDiversityBands(t *testing.T) {
	tests := []struct {
		n     int
		score int
	}{
		{0, 0}, {4, 0}, {5, 5}, {9, 5}, {10, 10}, {19, 10}, {20, 20}, {100, 20},
	}
	for _, tt := range tests {
		if c := scoreDiversity(tt.n); c.Score != tt.score {
			t.Errorf("diversity %d: got %d, want %d", tt.n, c.Score, tt.score)
		}
	}
}

func TestVolatilityBands(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		score   int
		tier    string
	}{
		// CV 0 — identical amounts.
		{"flat", []float64{50, 50, 50}, 20, "stable"},
		// CV 0.5 — mean 100, stddev 50.
		{"moderate", []float64{50, 150}, 10, "moderate"},
		// CV 0.8.
		{"volatile", []float64{10, 90}, 3, "volatile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := scoreVolatility(tt.amounts)
			if c.Score != tt.score || c.Tier != tt.tier {
				t.Fatalf("got (%d, %s), want (%d, %s)", c.Score, c.Tier, tt.score, tt.tier)
			}
		})
	}
}

func TestVolatilityModerateBoundaryInclusive(t *testing.T) {
	// Mean 100, stddev 60: CV is exactly 0.6, which stays in the moderate
	// band rather than dropping to volatile.
	c := scoreVolatility([]float64{40, 160})
	if c.Score != 10 || c.Tier != "moderate" {
		t.Fatalf("CV 0.6 got (%d, %s), want (10, moderate)", c.Score, c.Tier)
	}
}

func TestVolatilityDefaultsStableForSparseHistory(t *testing.T) {
	for _, amounts := range [][]float64{nil, {}, {42}} {
		c := scoreVolatility(amounts)
		if c.Score != 20 || c.Tier != "stable" {
			t.Fatalf("amounts %v: got (%d, %s), want (20, stable)", amounts, c.Score, c.Tier)
		}
	}
}

func TestTopicQualityCaps(t *testing.T) {
	tests := []struct {
		trusted, suspicious int
		score               int
		tier                string
	}{
		{0, 0, 0, "neutral"},
		{2, 0, 4, "positive"},
		{5, 0, 10, "positive"},
		{50, 0, 10, "positive"}, // bonus capped at +10
		{0, 1, -5, "negative"},
		{0, 2, -10, "negative"},
		{0, 50, -10, "negative"}, // cost capped at -10
		{5, 2, 0, "neutral"},
	}
	for _, tt := range tests {
		c := scoreTopicQuality(tt.trusted, tt.suspicious)
		if c.Score != tt.score || c.Tier != tt.tier {
			t.Errorf("topics (%d, %d): got (%d, %s), want (%d, %s)",
				tt.trusted, tt.suspicious, c.Score, c.Tier, tt.score, tt.tier)
		}
	}
}

func TestRiskFlagsStackAdditively(t *testing.T) {
	e := newTestEngine()

	r := e.Compute(Input{
		Account:              "0.0.3003",
		AccountAgeDays:       400,
		UniqueCounterparties: 25,
		TransferAmounts:      []float64{100, 100, 100},
		Tokens:               TokensBalanced,
		TrustedTopics:        5,
		Risk: RiskSignals{
			RapidOutflow:            true,
			NewAccountLargeTransfer: true,
			MaliciousCounterparty:   true,
		},
	})

	if len(r.RiskFlags) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(r.RiskFlags))
	}
	total := 0
	for _, f := range r.RiskFlags {
		total += f.Penalty
	}
	if total != 45 {
		t.Fatalf("total penalty = %d, want 45", total)
	}
	// Components sum to 80; 80 - 45 = 35.
	if r.Score != 35 {
		t.Fatalf("score = %d, want 35", r.Score)
	}
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	e := newTestEngine()

	inputs := []Input{
		{}, // zero value
		{AccountAgeDays: 10000, UniqueCounterparties: 10000, TransferAmounts: []float64{1, 1, 1}, Tokens: TokensBalanced, TrustedTopics: 1000},
		{AccountAgeDays: -5, UniqueCounterparties: -5, TransferAmounts: []float64{-1, 3}, Tokens: "garbage", SuspiciousTopics: 1000,
			Risk: RiskSignals{RapidOutflow: true, NewAccountLargeTransfer: true, MaliciousCounterparty: true}},
	}
	for i, in := range inputs {
		r := e.Compute(in)
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("input %d: score %d out of [0,100]", i, r.Score)
		}
		if len(r.Components) != 5 {
			t.Errorf("input %d: expected 5 components, got %d", i, len(r.Components))
		}
	}
}

func TestComponentMonotonicity(t *testing.T) {
	prev := -1
	for days := 0; days <= 800; days += 7 {
		s := scoreAccountAge(days).Score
		if s < prev {
			t.Fatalf("account age component decreased at %d days: %d < %d", days, s, prev)
		}
		prev = s
	}

	prev = -1
	for n := 0; n <= 50; n++ {
		s := scoreDiversity(n).Score
		if s < prev {
			t.Fatalf("diversity component decreased at %d counterparties: %d < %d", n, s, prev)
		}
		prev = s
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	cv, ok := CoefficientOfVariation([]float64{10, 90})
	if !ok {
		t.Fatal("expected ok for two amounts")
	}
	if math.Abs(cv-0.8) > 1e-9 {
		t.Fatalf("cv = %f, want 0.8", cv)
	}

	if _, ok := CoefficientOfVariation([]float64{42}); ok {
		t.Fatal("single amount should not produce a CV")
	}
	if _, ok := CoefficientOfVariation([]float64{100, -100}); ok {
		t.Fatal("zero mean should not produce a CV")
	}
}

func TestClampIdempotent(t *testing.T) {
	for _, v := range []int{-500, -1, 0, 50, 100, 101, 500} {
		once := clamp(v, 0, 100)
		if twice := clamp(once, 0, 100); twice != once {
			t.Fatalf("clamp not idempotent for %d: %d != %d", v, twice, once)
		}
	}
}
