package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
)

func newTestAuthenticator(t *testing.T, authURL string, retry RetryPolicy) *Authenticator {
	t.Helper()

	auth, err := NewAuthenticator(http.DefaultClient,
		"client-id", "client-secret", "https://example.com/callback", "auth-code",
		authURL, "", retry, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	return auth
}

func TestGetTokenSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			t.Errorf("token path = %q, want /oauth2/token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "auth-code" {
			t.Errorf("code = %q", got)
		}
		if got := r.PostForm.Get("redirect_uri"); got != "https://example.com/callback" {
			t.Errorf("redirect_uri = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"granted-token","token_type":"Bearer","expires_in":3600}`)
	}))
	defer server.Close()

	auth := newTestAuthenticator(t, server.URL, RetryPolicy{MaxAttempts: 1})

	token, err := auth.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if token != "granted-token" {
		t.Errorf("token = %q, want %q", token, "granted-token")
	}
}

func TestGetTokenRetriesUpstreamFailures(t *testing.T) {
	var attempts int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"granted-token","token_type":"Bearer"}`)
	}))
	defer server.Close()

	auth := newTestAuthenticator(t, server.URL, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2})

	token, err := auth.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken failed after transient errors: %v", err)
	}
	if token != "granted-token" {
		t.Errorf("token = %q", token)
	}
	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestGetTokenRejectionIsNotRetried(t *testing.T) {
	var attempts int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"authorization code expired"}`)
	}))
	defer server.Close()

	auth := newTestAuthenticator(t, server.URL, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2})

	_, err := auth.GetToken(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Errorf("attempts = %d, want exactly 1 for a non-retryable rejection", got)
	}
	if code := perrors.CodeOf(err); code != perrors.HTTPCode(400) {
		t.Errorf("code = %q, want HTTP_400", code)
	}
}

func TestGetTokenNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	auth := newTestAuthenticator(t, server.URL, RetryPolicy{MaxAttempts: 1})

	_, err := auth.GetToken(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := perrors.CodeOf(err); code != perrors.CodeNetworkError {
		t.Errorf("code = %q, want NETWORK_ERROR", code)
	}
}

func TestGetTokenMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token_type":"Bearer"}`)
	}))
	defer server.Close()

	auth := newTestAuthenticator(t, server.URL, RetryPolicy{MaxAttempts: 1})

	if _, err := auth.GetToken(context.Background()); err == nil {
		t.Fatal("expected an error for a response without an access token")
	}
}

func TestNewAuthenticatorRejectsBadURL(t *testing.T) {
	_, err := NewAuthenticator(nil, "id", "secret", "uri", "code", "://not-a-url", "", RetryPolicy{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := perrors.CodeOf(err); code != perrors.CodeConfigError {
		t.Errorf("code = %q, want CONFIG_ERROR", code)
	}
}
