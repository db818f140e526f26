package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/alecgard/vouch/internal/analytics"
	"github.com/alecgard/vouch/internal/catalog"
	"github.com/alecgard/vouch/internal/ledger"
	"github.com/alecgard/vouch/internal/metrics"
	"github.com/alecgard/vouch/internal/negotiation"
	"github.com/alecgard/vouch/internal/payment"
	"github.com/alecgard/vouch/internal/ratelimit"
	"github.com/alecgard/vouch/internal/score"
	"github.com/alecgard/vouch/internal/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// defaultAccountPattern matches shard.realm.num account IDs.
const defaultAccountPattern = `^[0-9]+\.[0-9]+\.[0-9]+$`

// ReceiptRecorder accepts settlement receipts for asynchronous persistence.
type ReceiptRecorder interface {
	Record(settlement.Receipt)
}

// trustScoreHandler orchestrates the paid scoring endpoint: payment
// challenge, proof verification, rate limiting, analytics fetch, scoring
// and settlement recording.
type trustScoreHandler struct {
	catalog    *catalog.Catalog
	offers     *negotiation.Book
	gate       *payment.Gate
	analytics  *analytics.Client
	scorer     *score.Engine
	limiter    *ratelimit.Limiter
	receipts   ReceiptRecorder
	ledger     ledger.Client
	eventTopic string
	productID  string
	accountRe  *regexp.Regexp
	metrics    *metrics.Metrics
	now        func() time.Time
}

func newTrustScoreHandler(deps RouterDeps) *trustScoreHandler {
	pattern := deps.AccountPattern
	if pattern == "" {
		pattern = defaultAccountPattern
	}
	return &trustScoreHandler{
		catalog:    deps.Catalog,
		offers:     deps.Offers,
		gate:       deps.Gate,
		analytics:  deps.Analytics,
		scorer:     deps.Scorer,
		limiter:    deps.Limiter,
		receipts:   deps.Settlements,
		ledger:     deps.Ledger,
		eventTopic: deps.EventTopic,
		productID:  deps.ScoreProductID,
		accountRe:  regexp.MustCompile(pattern),
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// scoreResponse is the 200 body: the scoring result plus the payment echo
// and data provenance.
type scoreResponse struct {
	score.Result
	Payment payment.Receipt `json:"payment"`
	Source  sourceInfo      `json:"source"`
}

type sourceInfo struct {
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at"`
}

// GetScore handles GET /trustscore/{accountId}.
func (h *trustScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if !h.accountRe.MatchString(accountID) {
		writeError(w, http.StatusBadRequest, "INVALID_ACCOUNT_ID", "account id must match "+h.accountRe.String())
		return
	}

	product := h.catalog.ByID(h.productID)
	if product == nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "scoring product not configured")
		return
	}

	consumer := consumerID(r)
	offer := h.offers.Active(consumer, product.ID)
	requirement := h.gate.RequirementFor(product, offer, r.URL.Path)

	header := r.Header.Get(payment.Header)
	if header == "" {
		h.incChallenge()
		writePaymentRequired(w, "PAYMENT_REQUIRED", "payment required to access this resource", requirement)
		return
	}

	proof, err := payment.DecodeProof(header)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PROOF", "failed to decode payment proof: "+err.Error())
		return
	}

	transfer, err := h.gate.Verify(r.Context(), proof, requirement)
	if err != nil {
		var verr *payment.VerificationError
		if errors.As(err, &verr) {
			h.incVerification("rejected")
			writePaymentRequired(w, "PAYMENT_VERIFICATION_FAILED", verr.Reason, requirement)
			return
		}
		// Ledger unreachable is not a verdict on the payment.
		h.incVerification("error")
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "payment verification temporarily unavailable")
		return
	}
	h.incVerification("accepted")

	// Quota is only consumed by requests that get this far: a verified
	// payment attempting a scored read.
	limit := rateLimitFor(product, offer)
	if !h.limiter.Allow(consumer, limit) {
		h.incRateLimitRejection()
		setRateLimitHeaders(w, h.limiter, consumer, limit)
		writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "rate limit exceeded for consumer")
		return
	}
	setRateLimitHeaders(w, h.limiter, consumer, limit)

	snapshot, err := h.analytics.Fetch(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "account activity data temporarily unavailable")
		return
	}

	result := h.scorer.Compute(scoreInput(accountID, snapshot.Activity, h.now()))
	h.observeScore(result.Score)

	currency := product.Currency
	resp := scoreResponse{
		Result:  result,
		Payment: payment.ReceiptFor(transfer, currency),
		Source:  sourceInfo{Stale: snapshot.Stale, FetchedAt: snapshot.FetchedAt},
	}

	h.recordSettlement(consumer, product, accountID, transfer, result, snapshot.Stale)
	h.publishScoreEvent(accountID, result)

	writeJSON(w, http.StatusOK, resp)
}

// scoreInput maps upstream account activity onto the scoring engine input.
func scoreInput(accountID string, a analytics.AccountActivity, now time.Time) score.Input {
	ageDays := 0
	if !a.CreatedAt.IsZero() {
		ageDays = int(now.Sub(a.CreatedAt).Hours() / 24)
	}
	return score.Input{
		Account:              accountID,
		AccountAgeDays:       ageDays,
		UniqueCounterparties: a.UniqueCounterparties30d,
		TransferAmounts:      a.TransferAmounts,
		Tokens:               score.TokenDistribution(a.TokenDistribution),
		TrustedTopics:        a.TrustedTopics,
		SuspiciousTopics:     a.SuspiciousTopics,
		Risk: score.RiskSignals{
			RapidOutflow:            a.RapidOutflow,
			NewAccountLargeTransfer: a.NewAccountLargeTransfer,
			MaliciousCounterparty:   a.MaliciousCounterparty,
		},
	}
}

// rateLimitFor returns the quota the consumer negotiated, falling back to
// the product default.
func rateLimitFor(product *catalog.Product, offer *negotiation.Offer) ratelimit.Limit {
	rl := product.RateLimit
	if offer != nil {
		rl = offer.RateLimit
	}
	return ratelimit.Limit{Calls: rl.Calls, Period: rl.Period()}
}

func setRateLimitHeaders(w http.ResponseWriter, l *ratelimit.Limiter, key string, limit ratelimit.Limit) {
	max, remaining, resetAt := l.Status(key, limit)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func (h *trustScoreHandler) recordSettlement(consumer string, product *catalog.Product, accountID string, transfer *ledger.Transfer, result score.Result, stale bool) {
	if h.receipts == nil {
		return
	}
	h.receipts.Record(settlement.Receipt{
		ID:             uuid.New().String(),
		ConsumerID:     consumer,
		ProductID:      product.ID,
		Account:        accountID,
		TransactionRef: transfer.Ref,
		Amount:         transfer.Amount,
		Currency:       product.Currency,
		Score:          result.Score,
		StaleData:      stale,
		Timestamp:      h.now(),
	})
}

// publishScoreEvent notifies the ledger topic of a completed sale. Failures
// are logged, never surfaced to the consumer.
func (h *trustScoreHandler) publishScoreEvent(accountID string, result score.Result) {
	if h.ledger == nil || h.eventTopic == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		event := map[string]any{
			"account":   accountID,
			"score":     result.Score,
			"timestamp": result.Timestamp,
		}
		if err := h.ledger.PublishEvent(ctx, h.eventTopic, event); err != nil {
			slog.Warn("failed to publish score event", "topic", h.eventTopic, "error", err)
		}
	}()
}

func (h *trustScoreHandler) incChallenge() {
	if h.metrics != nil {
		h.metrics.IncPaymentChallenge()
	}
}

func (h *trustScoreHandler) incVerification(result string) {
	if h.metrics != nil {
		h.metrics.IncPaymentVerification(result)
	}
}

func (h *trustScoreHandler) incRateLimitRejection() {
	if h.metrics != nil {
		h.metrics.IncRateLimitRejection()
	}
}

func (h *trustScoreHandler) observeScore(s int) {
	if h.metrics != nil {
		h.metrics.ObserveScore(s)
	}
}
