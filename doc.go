// Package gpaw provides a comprehensive Go wrapper for the Postline
// social-media-scheduling API.
//
// # Overview
//
// This package enables Go applications to manage social profiles, schedule
// posts, and read engagement analytics through a clean, type-safe
// interface. It supports direct access-token authentication and OAuth2
// authorization-code exchange, and ships with a mock mode that fabricates
// realistic data for development and demos.
//
// # Features
//
//   - OAuth2 authorization-code token exchange, retried like any other call
//   - Fixed-window rate limiting with immediate, structured rejections
//   - Exponential-backoff retries for transport failures and upstream 5xx
//   - A single structured error type with programmatic error codes
//   - Mock mode producing internally consistent profiles, posts, and
//     analytics without network access
//   - Structured logging support via Go's slog package
//
// # Quick Start
//
// With an access token:
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
//	posts, err := client.ListPosts(ctx, "profile-id", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// With an authorization code (the redirect/code capture flow is yours;
// the client only performs the exchange):
//
//	config := &gpaw.Config{
//		ClientID:     "your-client-id",
//		ClientSecret: "your-client-secret",
//		RedirectURI:  "https://example.com/callback",
//		Code:         "authorization-code",
//	}
//
// # Connection Lifecycle
//
// NewClient validates the configuration and sets defaults without touching
// the network. The token exchange and transport setup happen in Connect,
// which every operation invokes lazily on first use; calling Connect
// yourself simply surfaces authentication errors earlier.
//
// # Mock Mode
//
// Setting Config.MockMode routes every operation to a built-in data
// synthesizer instead of the transport. The synthesizer keeps the same
// contracts as the live API: unknown profile IDs fail with
// PROFILE_NOT_FOUND, created posts come back queued with zeroed
// statistics, and analytics summaries aggregate exactly the post set the
// posts call returns for the same inputs.
//
//	config := &gpaw.Config{MockMode: true}
//
// # Rate Limiting
//
// Each client owns a fixed-window request budget (default 100 requests per
// hour). When the budget is exhausted the call fails immediately with a
// RATE_LIMIT_EXCEEDED error carrying the wait until the window resets; the
// client never queues requests. An optional pacing limiter (Config.Pacing)
// can additionally smooth bursts below the quota.
//
// # Error Handling
//
// Every failure is a *errors.Error from
// github.com/postline/go-postline-api-wrapper/pkg/errors, tagged with a
// Code such as NETWORK_ERROR, HTTP_500, RATE_LIMIT_EXCEEDED or
// PROFILE_NOT_FOUND. Retry decisions are made on the code: transport
// failures and upstream 500/502/503 are retried on an exponential backoff
// schedule (base delay doubling per attempt); everything else propagates
// immediately.
package gpaw
