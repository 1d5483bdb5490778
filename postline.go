// Package gpaw provides a Go wrapper for the Postline social-media-
// scheduling API with OAuth2 authorization-code authentication.
//
// The package exposes typed operations for profiles, posts, and analytics.
// It handles authentication, rate limiting, retries, and error
// normalization automatically, and offers a mock mode that returns
// synthesized data instead of issuing network calls.
//
// Basic usage:
//
//	config := &gpaw.Config{
//		AccessToken: "your-access-token",
//	}
//
//	client, err := gpaw.NewClient(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profiles, err := client.ListProfiles(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
package gpaw

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/postline/go-postline-api-wrapper/internal"
	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
)

const (
	// DefaultBaseURL is the default Postline API base URL.
	DefaultBaseURL = "https://api.postline.com/v1/"
	// DefaultAuthURL is the default Postline OAuth base URL.
	DefaultAuthURL = "https://auth.postline.com/"
	// DefaultUserAgent is the default user agent string.
	DefaultUserAgent = "go-postline-api-wrapper/0.1"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryAttempts is the default number of attempts per call.
	DefaultRetryAttempts = 3
	// DefaultRetryDelay is the default backoff before the first retry.
	DefaultRetryDelay = time.Second
	// BackoffFactor is the fixed multiplier applied to the retry delay
	// after each failed attempt.
	BackoffFactor = 2.0
	// DefaultRateLimitRequests is the default request quota per window.
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindow is the default quota window length.
	DefaultRateLimitWindow = time.Hour
)

// RateLimitConfig is the fixed-window request budget owned by one client
// instance. When the budget is exhausted, calls fail immediately with
// RATE_LIMIT_EXCEEDED; the client never queues or delays them.
type RateLimitConfig struct {
	// Requests is the number of calls permitted per window.
	Requests int
	// Window is the budget window length.
	Window time.Duration
}

// PacingConfig optionally smooths request bursts under the quota with a
// token bucket. Zero RequestsPerMinute leaves pacing disabled.
type PacingConfig struct {
	RequestsPerMinute float64
	Burst             int
}

// Config holds the configuration for the Postline client.
//
// Supply either an AccessToken directly, or OAuth client credentials
// (ClientID, ClientSecret, RedirectURI, Code) to be exchanged for a token
// during Connect. In mock mode neither is required.
type Config struct {
	// AccessToken authenticates requests directly when set.
	AccessToken string

	// ClientID, ClientSecret, RedirectURI and Code drive the one-time
	// authorization-code-for-token exchange when AccessToken is empty.
	// The redirect/code capture flow itself is the caller's concern.
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Code         string

	// BaseURL for the Postline API.
	// Defaults to DefaultBaseURL if not specified.
	BaseURL string

	// AuthURL for the token exchange.
	// Defaults to DefaultAuthURL if not specified.
	AuthURL string

	// UserAgent string to identify your application.
	UserAgent string

	// Timeout for the underlying HTTP client. Defaults to DefaultTimeout.
	// Ignored when a custom HTTPClient is supplied.
	Timeout time.Duration

	// RetryAttempts bounds the attempts per call, including the first.
	// Defaults to DefaultRetryAttempts.
	RetryAttempts int

	// RetryDelay is the backoff before the first retry; it doubles after
	// each failed attempt. Defaults to DefaultRetryDelay.
	RetryDelay time.Duration

	// RateLimit is the fixed-window request budget.
	// Defaults to DefaultRateLimitRequests per DefaultRateLimitWindow.
	RateLimit *RateLimitConfig

	// Pacing optionally throttles steady-state throughput under the quota.
	Pacing *PacingConfig

	// MockMode makes every operation return synthesized data without
	// touching the network. Not-found contracts still apply.
	MockMode bool

	// HTTPClient to use for requests.
	// Defaults to a client with the configured Timeout.
	HTTPClient *http.Client

	// Logger for structured diagnostics.
	// Optional. If provided, debug information is logged during API calls.
	Logger *slog.Logger
}

// Client is the main Postline API client. All methods require either mock
// mode or a completed Connect; operations connect lazily on first use.
type Client struct {
	client *internal.Client
	auth   *internal.Authenticator
	synth  *internal.Synthesizer
	config *Config
	retry  internal.RetryPolicy

	connectOnce sync.Once
	connectErr  error
}

// NewClient creates a new Postline client with the provided configuration.
// It validates the configuration, sets defaults, and prepares the
// authentication mechanism; no network call is made until Connect.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, perrors.New(perrors.CodeConfigError, "config cannot be nil")
	}

	if !config.MockMode && config.AccessToken == "" {
		if config.ClientID == "" || config.ClientSecret == "" || config.RedirectURI == "" || config.Code == "" {
			return nil, perrors.New(perrors.CodeConfigError,
				"either AccessToken or the full set of ClientID, ClientSecret, RedirectURI and Code is required")
		}
	}

	// Set defaults.
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.AuthURL == "" {
		config.AuthURL = DefaultAuthURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = DefaultRetryAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.RateLimit == nil {
		config.RateLimit = &RateLimitConfig{
			Requests: DefaultRateLimitRequests,
			Window:   DefaultRateLimitWindow,
		}
	}
	if config.RateLimit.Window <= 0 {
		config.RateLimit.Window = DefaultRateLimitWindow
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	c := &Client{
		config: config,
		synth:  internal.NewSynthesizer(),
		retry: internal.RetryPolicy{
			MaxAttempts: config.RetryAttempts,
			BaseDelay:   config.RetryDelay,
			Factor:      BackoffFactor,
		},
	}

	if !config.MockMode && config.AccessToken == "" {
		auth, err := internal.NewAuthenticator(
			config.HTTPClient,
			config.ClientID,
			config.ClientSecret,
			config.RedirectURI,
			config.Code,
			config.AuthURL,
			"",
			c.retry,
			config.Logger,
		)
		if err != nil {
			return nil, err
		}
		c.auth = auth
	}

	return c, nil
}

// Connect acquires the access token (exchanging the authorization code if
// no token was supplied) and initializes the transport. It is safe to call
// Connect multiple times; initialization will only occur once. In mock
// mode Connect is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.connectOnce.Do(func() {
		c.connectErr = c.initialize(ctx)
	})

	return c.connectErr
}

// initialize performs the underlying connection setup work.
func (c *Client) initialize(ctx context.Context) error {
	if c.config.MockMode {
		return nil
	}

	token := c.config.AccessToken
	if token == "" {
		var err error
		token, err = c.auth.GetToken(ctx)
		if err != nil {
			return err
		}
	}

	pacing := internal.PacingConfig{}
	if c.config.Pacing != nil {
		pacing = internal.PacingConfig{
			RequestsPerMinute: c.config.Pacing.RequestsPerMinute,
			Burst:             c.config.Pacing.Burst,
		}
	}

	client, err := internal.NewClient(
		c.config.HTTPClient,
		token,
		c.config.BaseURL,
		c.config.UserAgent,
		c.retry,
		internal.QuotaConfig{
			Requests: c.config.RateLimit.Requests,
			Window:   c.config.RateLimit.Window,
		},
		pacing,
		c.config.Logger,
	)
	if err != nil {
		return err
	}

	c.client = client
	return nil
}

// ensureConnected lazily initializes the client before handling a request.
func (c *Client) ensureConnected(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	if !c.IsConnected() {
		return perrors.New(perrors.CodeConfigError, "client not connected, call Connect() first")
	}

	return nil
}

// IsConnected returns true if the client is ready to handle requests.
func (c *Client) IsConnected() bool {
	return c.config.MockMode || c.client != nil
}

// RateLimitStatus reports the remaining request budget for the current
// window and the time the window resets. In mock mode, or before the first
// live request, the budget is untouched.
func (c *Client) RateLimitStatus() (remaining int, resetAt time.Time) {
	if c.client == nil {
		if c.config.RateLimit != nil {
			return c.config.RateLimit.Requests, time.Time{}
		}
		return -1, time.Time{}
	}
	return c.client.RateLimitStatus()
}

// execute funnels one operation through the simulation/live branch: mock
// mode bypasses the transport entirely (still honoring not-found
// contracts inside the generator), live mode connects lazily and issues
// the real call through the rate-limited, retried transport.
func execute[T any](ctx context.Context, c *Client, mock func() (T, error), live func(ctx context.Context) (T, error)) (T, error) {
	if c.config.MockMode {
		return mock()
	}

	var zero T
	if err := c.ensureConnected(ctx); err != nil {
		return zero, err
	}

	return live(ctx)
}
