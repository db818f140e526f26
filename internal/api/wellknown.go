package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/vouch.json.
const wellKnownManifest = `{
  "name": "Vouch",
  "description": "Payment-gated trust scoring for ledger accounts",
  "version": "0.1.0",
  "payment": {
    "protocol": "x402",
    "scheme": "exact",
    "header": "X-PAYMENT"
  },
  "negotiation": {
    "protocol": "ap2",
    "endpoint": "/ap2/negotiate"
  },
  "endpoints": {
    "products": "/products",
    "negotiate": "/ap2/negotiate",
    "trustscore": "/trustscore/{accountId}"
  },
  "health": "/health"
}`

// WellKnownHandler returns the static Vouch well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
