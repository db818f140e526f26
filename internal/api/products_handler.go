package api

import (
	"net/http"

	"github.com/alecgard/vouch/internal/catalog"
)

// productsHandler serves the public product catalog.
type productsHandler struct {
	catalog *catalog.Catalog
}

func newProductsHandler(c *catalog.Catalog) *productsHandler {
	return &productsHandler{catalog: c}
}

// ListProducts handles GET /products.
func (h *productsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"count":    len(products),
	})
}
