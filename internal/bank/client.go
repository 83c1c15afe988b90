// Package bank is the outbound client for the card2card payer API.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cardpayout/internal/domain"
	"cardpayout/internal/signer"
)

const (
	TransferEndpoint = "/card2card/transfer"

	HeaderMerchantID = "X-Merchant-Id"
	HeaderSignature  = "X-Signature"

	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
	maxResponseBytes   = 1 << 20
)

type Config struct {
	BaseURL     string
	MerchantID  string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backoff is the wait after the given failed attempt: base, 2*base, 4*base...
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return base << (attempt - 1)
}

// Budget is the longest a Send can take when every attempt times out.
func (c *Client) Budget() time.Duration {
	total := time.Duration(c.cfg.MaxAttempts) * c.cfg.Timeout
	for attempt := 1; attempt < c.cfg.MaxAttempts; attempt++ {
		total += Backoff(c.cfg.RetryDelay, attempt)
	}
	return total
}

// RejectedError is a permanent 4xx answer from the bank.
type RejectedError struct {
	StatusCode int
	Body       map[string]any
	Raw        string
}

func (e *RejectedError) Error() string {
	if msg := domain.NormalizeBankResult(e.Body).Error; msg != "" {
		return fmt.Sprintf("bank rejected payout: http %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("bank rejected payout: http %d: %s", e.StatusCode, e.Raw)
}

func (e *RejectedError) Unwrap() error { return domain.ErrBankRejected }

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Send posts the canonical JSON of payload to endpoint. The signature header
// covers exactly the bytes sent.
func (c *Client) Send(ctx context.Context, endpoint string, payload any) (map[string]any, error) {
	body, err := signer.Canonical(payload)
	if err != nil {
		return nil, err
	}
	signature := signer.SignBytes(body, c.cfg.Secret)
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	var lastErr error
	attempt := 1
	for ; attempt <= c.cfg.MaxAttempts; attempt++ {
		resp, err := c.post(ctx, url, body, signature)
		if err == nil {
			return resp, nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("bank request failed",
			"event", "bank_request_failed",
			"attempt", attempt,
			"max_attempts", c.cfg.MaxAttempts,
			"error", err,
		)

		if attempt == c.cfg.MaxAttempts || ctx.Err() != nil {
			break
		}
		if err := c.sleep(ctx, Backoff(c.cfg.RetryDelay, attempt)); err != nil {
			lastErr = err
			break
		}
	}

	return nil, fmt.Errorf("%w: gave up after attempt %d: %v", domain.ErrBankUnavailable, min(attempt, c.cfg.MaxAttempts), lastErr)
}

func (c *Client) post(ctx context.Context, url string, body []byte, signature string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderMerchantID, c.cfg.MerchantID)
	req.Header.Set(HeaderSignature, signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read bank response: %w", err)}
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &transientError{err: fmt.Errorf("bank returned http %d: %s", resp.StatusCode, truncate(raw))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		fields, _ := decodeObject(raw)
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: fields, Raw: truncate(raw)}
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadBankResponse, err)
	}
	return fields, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("response is not a json object")
	}
	return fields, nil
}

func truncate(raw []byte) string {
	const limit = 512
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
