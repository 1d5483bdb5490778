package gpaw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"github.com/postline/go-postline-api-wrapper/pkg/types"
)

func countingServer(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		writeEnvelope(w, []*types.Profile{{ID: "p1", Platform: types.PlatformX}})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestQuotaExhaustionFailsFast(t *testing.T) {
	var hits int64
	server := countingServer(t, &hits)

	window := 300 * time.Millisecond
	client, err := NewClient(&Config{
		AccessToken:   "t",
		BaseURL:       server.URL,
		RetryAttempts: 1,
		RateLimit:     &RateLimitConfig{Requests: 3, Window: window},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.ListProfiles(ctx); err != nil {
			t.Fatalf("call %d failed: %v", i+1, err)
		}
	}

	start := time.Now()
	_, err = client.ListProfiles(ctx)
	elapsed := time.Since(start)

	if code := perrors.CodeOf(err); code != perrors.CodeRateLimitExceeded {
		t.Fatalf("code = %q, want RATE_LIMIT_EXCEEDED", code)
	}
	var apiErr *perrors.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is not a *perrors.Error: %v", err)
	}
	if apiErr.RetryAfter <= 0 || apiErr.RetryAfter > window {
		t.Errorf("RetryAfter = %v, want within (0, %v]", apiErr.RetryAfter, window)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}

	// Rejected calls never reach the server and never queue.
	if got := atomic.LoadInt64(&hits); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
	if elapsed >= window {
		t.Errorf("rejection took %v, should not wait out the window", elapsed)
	}
}

func TestQuotaWindowReset(t *testing.T) {
	var hits int64
	server := countingServer(t, &hits)

	window := 200 * time.Millisecond
	client, err := NewClient(&Config{
		AccessToken:   "t",
		BaseURL:       server.URL,
		RetryAttempts: 1,
		RateLimit:     &RateLimitConfig{Requests: 1, Window: window},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	ctx := context.Background()

	if _, err := client.ListProfiles(ctx); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := client.ListProfiles(ctx); perrors.CodeOf(err) != perrors.CodeRateLimitExceeded {
		t.Fatalf("second call code = %q, want RATE_LIMIT_EXCEEDED", perrors.CodeOf(err))
	}

	time.Sleep(window + 50*time.Millisecond)

	if _, err := client.ListProfiles(ctx); err != nil {
		t.Errorf("call after window reset failed: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestRateLimitStatusTracksBudget(t *testing.T) {
	var hits int64
	server := countingServer(t, &hits)

	client, err := NewClient(&Config{
		AccessToken: "t",
		BaseURL:     server.URL,
		RateLimit:   &RateLimitConfig{Requests: 5, Window: time.Hour},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	// Untouched budget before the first live request.
	remaining, resetAt := client.RateLimitStatus()
	if remaining != 5 || !resetAt.IsZero() {
		t.Errorf("initial status = (%d, %v), want (5, zero time)", remaining, resetAt)
	}

	if _, err := client.ListProfiles(context.Background()); err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}

	remaining, resetAt = client.RateLimitStatus()
	if remaining != 4 {
		t.Errorf("remaining = %d, want 4", remaining)
	}
	if !resetAt.After(time.Now()) {
		t.Errorf("resetAt = %v, want a future time", resetAt)
	}
}

func TestMockModeBypassesQuota(t *testing.T) {
	client, err := NewClient(&Config{
		MockMode:  true,
		RateLimit: &RateLimitConfig{Requests: 1, Window: time.Hour},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := client.ListProfiles(ctx); err != nil {
			t.Fatalf("mock call %d failed: %v", i+1, err)
		}
	}
}
