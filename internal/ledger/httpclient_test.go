package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	resolver := NewStaticResolver(Credentials{AccountID: "0.0.9001", PrivateKey: "test-key"})
	return NewHTTPClient(srv.URL, 2*time.Second, resolver)
}

func TestQueryTransfer(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transfers/tx-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Transfer{
			Ref:    "tx-42",
			Status: StatusSuccess,
			Amount: decimal.RequireFromString("0.50"),
			Asset:  "USDC",
			Payer:  "0.0.7777",
			Payee:  "0.0.9001",
		})
	})

	transfer, err := c.QueryTransfer(context.Background(), "tx-42")
	if err != nil {
		t.Fatalf("QueryTransfer failed: %v", err)
	}
	if transfer.Ref != "tx-42" || !transfer.Status.Finalized() {
		t.Errorf("unexpected transfer %+v", transfer)
	}
	if !transfer.Amount.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("expected amount 0.50, got %s", transfer.Amount)
	}
}

func TestQueryTransferNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.QueryTransfer(context.Background(), "tx-missing")
	if !errors.Is(err, ErrTransferNotFound) {
		t.Fatalf("expected ErrTransferNotFound, got %v", err)
	}
}

func TestQueryTransferServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.QueryTransfer(context.Background(), "tx-1")
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if errors.Is(err, ErrTransferNotFound) {
		t.Error("a 503 must not be reported as not-found")
	}
}

func TestSubmitTransfer(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transfers" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Operator-Account"); got != "0.0.9001" {
			t.Errorf("expected operator account header, got %q", got)
		}

		var req struct {
			From   string          `json:"from"`
			To     string          `json:"to"`
			Amount decimal.Decimal `json:"amount"`
			Asset  string          `json:"asset"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.From != "0.0.9001" || req.To != "0.0.5005" || req.Asset != "USDC" {
			t.Errorf("unexpected transfer body %+v", req)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"ref": "tx-99"})
	})

	ref, err := c.SubmitTransfer(context.Background(), "0.0.9001", "0.0.5005", decimal.RequireFromString("1.25"), "USDC")
	if err != nil {
		t.Fatalf("SubmitTransfer failed: %v", err)
	}
	if ref != "tx-99" {
		t.Errorf("expected ref tx-99, got %s", ref)
	}
}

func TestSubmitTransferEmptyRef(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	_, err := c.SubmitTransfer(context.Background(), "0.0.9001", "0.0.5005", decimal.New(1, 0), "USDC")
	if err == nil {
		t.Fatal("expected error for empty transaction ref")
	}
}

func TestSubmitTransferNotFoundIsNotTransferNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route", http.StatusNotFound)
	})

	_, err := c.SubmitTransfer(context.Background(), "0.0.9001", "0.0.5005", decimal.New(1, 0), "USDC")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	// Only queries map 404 to the missing-transfer sentinel; a submit
	// hitting a missing route is a plain upstream error.
	if errors.Is(err, ErrTransferNotFound) {
		t.Errorf("submit 404 reported as ErrTransferNotFound: %v", err)
	}
}

func TestPublishEventMissingTopic(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic does not exist", http.StatusNotFound)
	})

	err := c.PublishEvent(context.Background(), "vouch.missing", map[string]any{"score": 74})
	if err == nil {
		t.Fatal("expected error for missing topic")
	}
	if errors.Is(err, ErrTransferNotFound) {
		t.Errorf("missing topic reported as ErrTransferNotFound: %v", err)
	}
}

func TestPublishEvent(t *testing.T) {
	var gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if _, ok := body["payload"]; !ok {
			t.Error("event body missing payload wrapper")
		}
		w.WriteHeader(http.StatusAccepted)
	})

	err := c.PublishEvent(context.Background(), "vouch.scores", map[string]any{"account": "0.0.1001", "score": 74})
	if err != nil {
		t.Fatalf("PublishEvent failed: %v", err)
	}
	if gotPath != "/v1/topics/vouch.scores/messages" {
		t.Errorf("unexpected topic path %s", gotPath)
	}
}
