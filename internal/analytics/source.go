package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Source fetches raw account activity from an upstream analytics API. It
// exists as an interface so the resilience layer can be tested without a
// live upstream.
type Source interface {
	FetchActivity(ctx context.Context, account string) (*AccountActivity, error)
}

// StatusError is a non-2xx response from the upstream.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// isTransient reports whether the error is worth retrying: timeouts,
// connection resets and 5xx responses are; 4xx client errors are not.
func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// url.Error wraps syscall-level resets without implementing net.Error
	// in all cases; fall back to the message.
	return strings.Contains(err.Error(), "connection reset")
}

// HTTPSource is the real analytics API client.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	apiKey  string
}

// NewHTTPSource creates a source for the analytics API at baseURL. The
// timeout applies to each individual attempt.
func NewHTTPSource(baseURL string, timeout time.Duration, apiKey string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
	}
}

// FetchActivity fetches the activity report for one account.
func (s *HTTPSource) FetchActivity(ctx context.Context, account string) (*AccountActivity, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/activity", s.baseURL, account)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building analytics request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics request for %s: %w", account, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var activity AccountActivity
	if err := json.NewDecoder(resp.Body).Decode(&activity); err != nil {
		return nil, fmt.Errorf("decoding analytics response: %w", err)
	}
	if activity.Account == "" {
		activity.Account = account
	}
	return &activity, nil
}
