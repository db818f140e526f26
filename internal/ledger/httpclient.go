package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// statusError carries the HTTP status of a non-2xx ledger response so
// callers can map specific statuses to their own sentinels.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ledger returned %d: %s", e.status, e.body)
}

// HTTPClient talks to a ledger node's REST API.
type HTTPClient struct {
	baseURL     string
	client      *http.Client
	credentials CredentialResolver
}

// NewHTTPClient creates a ledger client for the node at baseURL. The timeout
// bounds each ledger call; queries issued by the payment gate must never
// hang a request indefinitely.
func NewHTTPClient(baseURL string, timeout time.Duration, credentials CredentialResolver) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		credentials: credentials,
	}
}

type submitTransferRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Asset  string          `json:"asset"`
}

type submitTransferResponse struct {
	Ref string `json:"ref"`
}

// SubmitTransfer submits a transfer signed as the resolved credentials for
// the paying account.
func (c *HTTPClient) SubmitTransfer(ctx context.Context, from, to string, amount decimal.Decimal, asset string) (string, error) {
	creds, err := c.credentials.Resolve(ctx, from)
	if err != nil {
		return "", fmt.Errorf("resolving credentials for %s: %w", from, err)
	}

	body, err := json.Marshal(submitTransferRequest{From: from, To: to, Amount: amount, Asset: asset})
	if err != nil {
		return "", fmt.Errorf("marshalling transfer: %w", err)
	}

	var out submitTransferResponse
	if err := c.do(ctx, http.MethodPost, "/v1/transfers", creds, body, &out); err != nil {
		return "", err
	}
	if out.Ref == "" {
		return "", fmt.Errorf("ledger returned empty transaction ref")
	}
	return out.Ref, nil
}

// QueryTransfer looks up a transfer by reference. An unknown reference is
// ErrTransferNotFound; only this call maps 404 that way, since for submits
// and topic publishes a 404 means a missing route or topic, not a missing
// transfer.
func (c *HTTPClient) QueryTransfer(ctx context.Context, ref string) (*Transfer, error) {
	var t Transfer
	err := c.do(ctx, http.MethodGet, "/v1/transfers/"+ref, Credentials{}, nil, &t)
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return nil, ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// PublishEvent publishes a JSON payload to a consensus topic.
func (c *HTTPClient) PublishEvent(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(map[string]any{"payload": payload})
	if err != nil {
		return fmt.Errorf("marshalling event payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/v1/topics/"+topic+"/messages", Credentials{}, body, nil)
}

// do performs one ledger API call and decodes the JSON response into out
// when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, creds Credentials, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building ledger request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds.AccountID != "" {
		req.Header.Set("X-Operator-Account", creds.AccountID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding ledger response: %w", err)
		}
	}
	return nil
}
