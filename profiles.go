package gpaw

import (
	"context"
	"fmt"
	"net/http"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"github.com/postline/go-postline-api-wrapper/pkg/types"
)

// ListProfiles retrieves every social profile connected to the account.
func (c *Client) ListProfiles(ctx context.Context) ([]*types.Profile, error) {
	return execute(ctx, c,
		func() ([]*types.Profile, error) {
			return c.synth.Profiles(), nil
		},
		func(ctx context.Context) ([]*types.Profile, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "profiles", nil, nil)
			if err != nil {
				return nil, err
			}
			if !env.HasData() {
				return []*types.Profile{}, nil
			}

			var profiles []*types.Profile
			if err := env.Decode(&profiles); err != nil {
				return nil, err
			}
			return profiles, nil
		})
}

// GetProfile retrieves one profile by ID. A missing profile fails with
// PROFILE_NOT_FOUND in both live and mock mode.
func (c *Client) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	if id == "" {
		return nil, perrors.New(perrors.CodeRequestError, "profile ID is required")
	}

	return execute(ctx, c,
		func() (*types.Profile, error) {
			return c.synth.Profile(id)
		},
		func(ctx context.Context) (*types.Profile, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "profiles/"+id, nil, nil)
			if err != nil {
				return nil, err
			}
			// Absence of data is itself a not-found condition, regardless
			// of the HTTP status.
			if !env.HasData() {
				return nil, perrors.New(perrors.CodeProfileNotFound, fmt.Sprintf("profile %q not found", id))
			}

			var profile types.Profile
			if err := env.Decode(&profile); err != nil {
				return nil, err
			}
			return &profile, nil
		})
}
