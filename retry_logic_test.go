package gpaw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"github.com/postline/go-postline-api-wrapper/pkg/types"
)

func retryTestClient(t *testing.T, baseURL string, attempts int, delay time.Duration) *Client {
	t.Helper()

	client, err := NewClient(&Config{
		AccessToken:   "t",
		BaseURL:       baseURL,
		RetryAttempts: attempts,
		RetryDelay:    delay,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestRetryableFailureIsBounded(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := retryTestClient(t, server.URL, 3, time.Millisecond)

	_, err := client.ListProfiles(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := perrors.CodeOf(err); code != perrors.HTTPCode(503) {
		t.Errorf("code = %q, want HTTP_503", code)
	}
	if got := atomic.LoadInt64(&hits); got != 3 {
		t.Errorf("attempts = %d, want exactly the configured 3", got)
	}
}

func TestNonRetryableFailureIsImmediate(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := retryTestClient(t, server.URL, 3, time.Millisecond)

	_, err := client.GetPost(context.Background(), "p-1")
	if code := perrors.CodeOf(err); code != perrors.HTTPCode(404) {
		t.Errorf("code = %q, want HTTP_404", code)
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("attempts = %d, want exactly 1", got)
	}
}

func TestRecoveryAfterTransientFailures(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, []*types.Profile{{ID: "p1", Platform: types.PlatformX}})
	}))
	defer server.Close()

	client := retryTestClient(t, server.URL, 3, time.Millisecond)

	profiles, err := client.ListProfiles(context.Background())
	if err != nil {
		t.Fatalf("expected recovery on the third attempt: %v", err)
	}
	if len(profiles) != 1 {
		t.Errorf("profiles = %+v", profiles)
	}
	if got := atomic.LoadInt64(&hits); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestBackoffDelayDoubles(t *testing.T) {
	var mu sync.Mutex
	var arrivals []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		n := len(arrivals)
		mu.Unlock()

		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeEnvelope(w, []*types.Profile{})
	}))
	defer server.Close()

	base := 40 * time.Millisecond
	client := retryTestClient(t, server.URL, 3, base)

	if _, err := client.ListProfiles(context.Background()); err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(arrivals) != 3 {
		t.Fatalf("attempts = %d, want 3", len(arrivals))
	}

	gap1 := arrivals[1].Sub(arrivals[0])
	gap2 := arrivals[2].Sub(arrivals[1])
	if gap1 < base {
		t.Errorf("first backoff = %v, want at least %v", gap1, base)
	}
	if gap2 < 2*base {
		t.Errorf("second backoff = %v, want at least %v", gap2, 2*base)
	}
}

func TestRetryStopsOnContextCancellation(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := retryTestClient(t, server.URL, 3, 500*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.ListProfiles(ctx); err == nil {
		t.Fatal("expected an error once the context expired")
	}
	// The long backoff never completes, so only the first attempt lands.
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}
