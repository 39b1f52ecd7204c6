// Package license talks to the external licensing provider and enforces the
// once-per-session check/settle policy.
package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/proconverter/proconverter-lemons/internal/domain"
	"github.com/proconverter/proconverter-lemons/internal/metrics"
	"github.com/proconverter/proconverter-lemons/internal/platform/retry"
)

const (
	httpCallTimeout = 10 * time.Second
	// checkTimeout caps the whole check call, retries and backoff included.
	checkTimeout = 15 * time.Second
)

var transientPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
}

// Client is the HTTP implementation of domain.LicenseService.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	retryPolicy  retry.Policy
	checkTimeout time.Duration
}

var _ domain.LicenseService = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: httpCallTimeout},
		retryPolicy:  transientPolicy,
		checkTimeout: checkTimeout,
	}
}

// Check returns the key's active flag and remaining-uses counter. Check is
// idempotent on the provider side, so transient failures are retried within
// an overall deadline.
func (c *Client) Check(ctx context.Context, key string) (domain.LicenseStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	status, err := retry.Do(ctx, c.retryPolicy, classify, func() (domain.LicenseStatus, error) {
		return c.check(ctx, key)
	})
	if err != nil {
		recordCall("check", err)
		return domain.LicenseStatus{}, unwrapPermanent(err)
	}
	metrics.LicenseCallsTotal.WithLabelValues("check", "ok").Inc()
	return status, nil
}

// Decrement consumes one usage credit and returns the new remaining count.
// Decrement is not idempotent: a lost response may mean the provider already
// applied the debit, so the call is made exactly once and never retried. A
// failure here degrades to the gate's fail-open settlement path.
func (c *Client) Decrement(ctx context.Context, key string) (int, error) {
	remaining, err := c.decrement(ctx, key)
	if err != nil {
		recordCall("decrement", err)
		return 0, err
	}
	metrics.LicenseCallsTotal.WithLabelValues("decrement", "ok").Inc()
	return remaining, nil
}

func (c *Client) check(ctx context.Context, key string) (domain.LicenseStatus, error) {
	var resp struct {
		Active    bool `json:"active"`
		Remaining int  `json:"remaining"`
	}
	if err := c.post(ctx, "/v1/licenses/check", key, &resp); err != nil {
		return domain.LicenseStatus{}, err
	}
	return domain.LicenseStatus{Active: resp.Active, Remaining: resp.Remaining}, nil
}

func (c *Client) decrement(ctx context.Context, key string) (int, error) {
	var resp struct {
		Remaining int `json:"remaining"`
	}
	if err := c.post(ctx, "/v1/licenses/decrement", key, &resp); err != nil {
		return 0, err
	}
	return resp.Remaining, nil
}

func (c *Client) post(ctx context.Context, path, key string, out any) error {
	form := url.Values{}
	form.Set("license_key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create license request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLicenseUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrLicenseNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: provider returned status %d", domain.ErrLicenseUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("%w: unexpected provider status %d", domain.ErrLicenseUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode provider response: %v", domain.ErrLicenseUnavailable, err)
	}
	return nil
}

// classify retries transient unavailability; a definitive answer from the
// provider (found or not found) stops immediately.
func classify(err error) retry.Action {
	if errors.Is(err, domain.ErrLicenseNotFound) {
		return retry.Stop
	}
	return retry.Retry
}

func unwrapPermanent(err error) error {
	var perm *retry.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	if errors.Is(err, domain.ErrLicenseUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrLicenseUnavailable, err)
}

func recordCall(operation string, err error) {
	status := "unavailable"
	if errors.Is(err, domain.ErrLicenseNotFound) {
		status = "not_found"
	}
	metrics.LicenseCallsTotal.WithLabelValues(operation, status).Inc()
}
