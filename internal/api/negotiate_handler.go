package api

import (
	"errors"
	"net/http"

	"github.com/alecgard/vouch/internal/catalog"
	"github.com/alecgard/vouch/internal/metrics"
	"github.com/alecgard/vouch/internal/negotiation"
)

// negotiateHandler serves the AP2 term negotiation endpoint.
type negotiateHandler struct {
	catalog *catalog.Catalog
	engine  *negotiation.Engine
	offers  *negotiation.Book
	metrics *metrics.Metrics
}

func newNegotiateHandler(c *catalog.Catalog, e *negotiation.Engine, b *negotiation.Book, m *metrics.Metrics) *negotiateHandler {
	return &negotiateHandler{catalog: c, engine: e, offers: b, metrics: m}
}

// Negotiate handles POST /ap2/negotiate.
func (h *negotiateHandler) Negotiate(w http.ResponseWriter, r *http.Request) {
	var req negotiation.Request
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "failed to parse request body")
		return
	}

	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "product_id is required")
		return
	}
	if req.ConsumerID == "" {
		req.ConsumerID = consumerID(r)
	}

	product := h.catalog.ByID(req.ProductID)
	if product == nil {
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "unknown product: "+req.ProductID)
		return
	}

	offer, err := h.engine.Negotiate(product, req)
	if err != nil {
		h.countNegotiation("rejected")
		switch {
		case errors.Is(err, negotiation.ErrPriceTooLow):
			writeError(w, http.StatusBadRequest, "PRICE_TOO_LOW", err.Error())
		case errors.Is(err, negotiation.ErrCurrencyMismatch):
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "negotiation failed")
		}
		return
	}

	h.offers.Put(offer)
	h.countNegotiation("offered")

	writeJSON(w, http.StatusOK, offer)
}

func (h *negotiateHandler) countNegotiation(outcome string) {
	if h.metrics != nil {
		h.metrics.IncNegotiation(outcome)
	}
}
