package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"golang.org/x/oauth2"
)

const defaultTokenEndpointPath = "oauth2/token"

// Authenticator exchanges an OAuth authorization code for an access token
// against the Postline token endpoint. The redirect/authorization-code
// capture flow itself is the caller's concern; the authenticator only
// performs the code-for-token exchange, as one retried HTTP call.
type Authenticator struct {
	client   *http.Client
	conf     *oauth2.Config
	code     string
	retry    RetryPolicy
	logger   *slog.Logger
	tokenURL *url.URL
}

// NewAuthenticator creates a new authenticator.
// The tokenPath parameter can be an empty string to use the default
// Postline token endpoint.
func NewAuthenticator(httpClient *http.Client, clientID, clientSecret, redirectURI, code, authURL, tokenPath string, retry RetryPolicy, logger *slog.Logger) (*Authenticator, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(authURL)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeConfigError, "failed to parse auth URL", err)
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if tokenPath == "" {
		tokenPath = defaultTokenEndpointPath
	}

	resolvedTokenURL, err := parsedURL.Parse(tokenPath)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeConfigError, "failed to parse token endpoint path", err)
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  resolvedTokenURL.String(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &Authenticator{
		client:   httpClient,
		conf:     conf,
		code:     code,
		retry:    retry,
		logger:   logger,
		tokenURL: resolvedTokenURL,
	}, nil
}

// GetToken performs the authorization-code grant and returns the access
// token. Transport failures and upstream 5xx responses are retried on the
// client's backoff schedule; everything else fails immediately.
func (a *Authenticator) GetToken(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)

	var token string
	err := WithRetry(ctx, a.retry, a.logger, func(attempt int) error {
		tok, err := a.conf.Exchange(ctx, a.code)
		if err != nil {
			return normalizeExchangeError(err)
		}
		if tok.AccessToken == "" {
			return perrors.New(perrors.CodeRequestError, "access token was empty in response")
		}
		token = tok.AccessToken
		return nil
	})
	if err != nil {
		return "", err
	}

	if a.logger != nil {
		a.logger.Debug("token exchange succeeded", "token_url", a.tokenURL.String())
	}
	return token, nil
}

// normalizeExchangeError maps an oauth2 exchange failure to the client's
// structured error codes so the retry policy can pattern-match on them.
func normalizeExchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		message := "token exchange rejected"
		if rerr.ErrorDescription != "" {
			message = rerr.ErrorDescription
		} else if len(rerr.Body) > 0 {
			message = string(rerr.Body)
		}
		return &perrors.Error{
			Code:       perrors.HTTPCode(status),
			Message:    message,
			StatusCode: status,
			Err:        err,
		}
	}

	// No response received at all.
	return perrors.Wrap(perrors.CodeNetworkError, "token exchange failed", err)
}
