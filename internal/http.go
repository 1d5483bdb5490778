package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"golang.org/x/time/rate"
)

const SecondsPerMinute = 60.0

// RetryPolicy is the exponential backoff schedule applied to retryable
// failures. delay(k) = BaseDelay × Factor^(k−1) before the k-th retry.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Factor multiplies the delay after each failed attempt.
	Factor float64
}

// Delay returns the backoff before the k-th retry (k is 1-based).
func (p RetryPolicy) Delay(k int) time.Duration {
	if k < 1 {
		k = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(k-1)))
}

// QuotaConfig is the fixed-window request budget for one client instance.
type QuotaConfig struct {
	// Requests is the number of calls permitted per window.
	// Zero or negative disables the quota.
	Requests int
	// Window is the budget window length.
	Window time.Duration
}

// PacingConfig optionally smooths request bursts under the quota using a
// token bucket. Disabled when RequestsPerMinute is zero.
type PacingConfig struct {
	RequestsPerMinute float64
	Burst             int
}

// Envelope is the wire format every Postline endpoint responds with.
// Absence of Data is itself a not-found condition, independent of the
// HTTP status; the calling operation decides which domain code to raise.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// HasData reports whether the envelope carried a payload.
func (e *Envelope) HasData() bool {
	trimmed := strings.TrimSpace(string(e.Data))
	return trimmed != "" && trimmed != "null"
}

// Decode unmarshals the envelope payload into v.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return perrors.Wrap(perrors.CodeRequestError, "failed to decode response payload", err)
	}
	return nil
}

// Client manages communication with the Postline API. It owns the
// fixed-window rate quota and retry policy for one client instance.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
	token     string

	retry   RetryPolicy
	limiter *rate.Limiter
	logger  *slog.Logger

	mu            sync.Mutex
	quota         QuotaConfig
	requestCount  int
	windowResetAt time.Time
}

// NewClient returns a new Postline transport client.
// If a nil httpClient is provided, http.DefaultClient will be used.
func NewClient(httpClient *http.Client, authToken, baseURL, userAgent string, retry RetryPolicy, quota QuotaConfig, pacing PacingConfig, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeConfigError, "failed to parse base URL", err)
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	c := &Client{
		client:    httpClient,
		BaseURL:   parsedURL,
		UserAgent: userAgent,
		token:     authToken,
		retry:     retry,
		quota:     quota,
		logger:    logger,
	}

	if pacing.RequestsPerMinute > 0 {
		burst := pacing.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(pacing.RequestsPerMinute/SecondsPerMinute), burst)
	}

	return c, nil
}

// RateLimitStatus reports the remaining request budget and the time the
// current window resets. Remaining equals the full quota when no window has
// been opened yet.
func (c *Client) RateLimitStatus() (remaining int, resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quota.Requests <= 0 {
		return -1, time.Time{}
	}

	now := time.Now()
	if c.windowResetAt.IsZero() || !now.Before(c.windowResetAt) {
		return c.quota.Requests, time.Time{}
	}
	return c.quota.Requests - c.requestCount, c.windowResetAt
}

// checkQuota performs the atomic check-then-increment against the fixed
// window. When the counter is exhausted it fails immediately with a
// RATE_LIMIT_EXCEEDED error carrying the remaining wait; the call is never
// queued or delayed here.
func (c *Client) checkQuota() error {
	if c.quota.Requests <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.windowResetAt.IsZero() || !now.Before(c.windowResetAt) {
		c.requestCount = 0
		c.windowResetAt = now.Add(c.quota.Window)
	}

	if c.requestCount >= c.quota.Requests {
		wait := c.windowResetAt.Sub(now)
		return &perrors.Error{
			Code:       perrors.CodeRateLimitExceeded,
			Message:    fmt.Sprintf("rate limit of %d requests per %s exceeded", c.quota.Requests, c.quota.Window),
			StatusCode: http.StatusTooManyRequests,
			RetryAfter: wait,
		}
	}

	c.requestCount++
	return nil
}

// WithRetry runs fn up to policy.MaxAttempts times, sleeping the backoff
// schedule between attempts. Only failures whose normalized code is
// retryable are attempted again; everything else propagates immediately.
// The caller sees exactly one error: the last attempt's.
func WithRetry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func(attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := policy.Delay(attempt - 1)
			if logger != nil {
				logger.Debug("retrying request",
					"attempt", attempt,
					"max_attempts", attempts,
					"delay", delay,
					"previous_error", lastErr)
			}
			select {
			case <-ctx.Done():
				return perrors.Wrap(perrors.CodeRequestError, "context cancelled during backoff", ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !perrors.CodeOf(lastErr).Retryable() {
			return lastErr
		}
	}

	return lastErr
}

// Do sends an API request through the uniform pipeline: quota check,
// optional pacing wait, transport attempt, error normalization, retry
// decision. The request body (if any) is marshaled once and replayed per
// attempt. On success the decoded response envelope is returned.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Envelope, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, perrors.Wrap(perrors.CodeRequestError, "failed to encode request body", err)
		}
	}

	var env *Envelope
	err := WithRetry(ctx, c.retry, c.logger, func(attempt int) error {
		if err := c.checkQuota(); err != nil {
			return err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return perrors.Wrap(perrors.CodeRequestError, "context cancelled while pacing", err)
			}
		}

		e, err := c.attempt(ctx, method, path, query, bodyBytes)
		if err != nil {
			return err
		}
		env = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	return env, nil
}

// attempt performs one transport call and normalizes its outcome.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, bodyBytes []byte) (*Envelope, error) {
	u, err := c.BaseURL.Parse(path)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeRequestError, "failed to resolve request path", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeRequestError, "failed to create request", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// No response received at all.
		return nil, perrors.Wrap(perrors.CodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeNetworkError, "failed to read response body", err)
	}

	if c.logger != nil {
		c.logger.Debug("api response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"bytes", len(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &perrors.Error{
			Code:       perrors.HTTPCode(resp.StatusCode),
			Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
		// Surface the server's own message when the body is an envelope.
		var failure Envelope
		if json.Unmarshal(respBody, &failure) == nil && failure.Message != "" {
			httpErr.Message = failure.Message
			httpErr.Details = failure.Code
		}
		return nil, httpErr
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, perrors.Wrap(perrors.CodeRequestError, "failed to decode response envelope", err)
	}

	if !env.Success {
		return nil, &perrors.Error{
			Code:       perrors.CodeRequestError,
			Message:    envelopeFailureMessage(&env),
			StatusCode: resp.StatusCode,
			Details:    env.Code,
		}
	}

	return &env, nil
}

func envelopeFailureMessage(env *Envelope) string {
	if env.Message != "" {
		return env.Message
	}
	return "API reported failure without a message"
}
