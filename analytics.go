package gpaw

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"github.com/postline/go-postline-api-wrapper/pkg/types"
)

// AnalyticsPosts retrieves per-post engagement records for a profile over
// the window resolved from opts (explicit dates win over the TimeRange
// shorthand; the default is a trailing 30-day window). Records are sorted
// by publish time, newest first.
func (c *Client) AnalyticsPosts(ctx context.Context, profileID string, opts *types.AnalyticsOptions) ([]*types.PostAnalytics, error) {
	if profileID == "" {
		return nil, perrors.New(perrors.CodeRequestError, "profile ID is required")
	}

	return execute(ctx, c,
		func() ([]*types.PostAnalytics, error) {
			return c.synth.AnalyticsPosts(profileID, opts)
		},
		func(ctx context.Context) ([]*types.PostAnalytics, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "profiles/"+profileID+"/analytics/posts", analyticsQuery(opts), nil)
			if err != nil {
				return nil, err
			}
			if !env.HasData() {
				return nil, perrors.New(perrors.CodeProfileNotFound, fmt.Sprintf("profile %q not found", profileID))
			}

			var records []*types.PostAnalytics
			if err := env.Decode(&records); err != nil {
				return nil, err
			}
			return records, nil
		})
}

// AnalyticsSummary retrieves the aggregate engagement summary for a profile
// over the resolved window. Every figure derives from the same post set
// AnalyticsPosts returns for identical inputs.
func (c *Client) AnalyticsSummary(ctx context.Context, profileID string, opts *types.AnalyticsOptions) (*types.AnalyticsSummary, error) {
	if profileID == "" {
		return nil, perrors.New(perrors.CodeRequestError, "profile ID is required")
	}

	return execute(ctx, c,
		func() (*types.AnalyticsSummary, error) {
			return c.synth.AnalyticsSummary(profileID, opts)
		},
		func(ctx context.Context) (*types.AnalyticsSummary, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "profiles/"+profileID+"/analytics/summary", analyticsQuery(opts), nil)
			if err != nil {
				return nil, err
			}
			if !env.HasData() {
				return nil, perrors.New(perrors.CodeProfileNotFound, fmt.Sprintf("profile %q not found", profileID))
			}

			var summary types.AnalyticsSummary
			if err := env.Decode(&summary); err != nil {
				return nil, err
			}
			return &summary, nil
		})
}

// AnalyticsInsights retrieves the opaque insights payload for a profile
// over the resolved window.
func (c *Client) AnalyticsInsights(ctx context.Context, profileID string, opts *types.AnalyticsOptions) (map[string]any, error) {
	if profileID == "" {
		return nil, perrors.New(perrors.CodeRequestError, "profile ID is required")
	}

	return execute(ctx, c,
		func() (map[string]any, error) {
			return c.synth.AnalyticsInsights(profileID, opts)
		},
		func(ctx context.Context) (map[string]any, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "profiles/"+profileID+"/analytics/insights", analyticsQuery(opts), nil)
			if err != nil {
				return nil, err
			}
			if !env.HasData() {
				return nil, perrors.New(perrors.CodeProfileNotFound, fmt.Sprintf("profile %q not found", profileID))
			}

			var insights map[string]any
			if err := env.Decode(&insights); err != nil {
				return nil, err
			}
			return insights, nil
		})
}

// analyticsQuery encodes the analytics options as query parameters. The
// server applies the same precedence the client does in mock mode.
func analyticsQuery(opts *types.AnalyticsOptions) url.Values {
	if opts == nil {
		return nil
	}

	q := url.Values{}
	if opts.TimeRange != "" {
		q.Set("timeRange", opts.TimeRange)
	}
	if !opts.StartDate.IsZero() {
		q.Set("start", opts.StartDate.Format(time.RFC3339))
	}
	if !opts.EndDate.IsZero() {
		q.Set("end", opts.EndDate.Format(time.RFC3339))
	}
	if len(opts.Platforms) > 0 {
		names := make([]string, len(opts.Platforms))
		for i, p := range opts.Platforms {
			names[i] = string(p)
		}
		q.Set("platforms", strings.Join(names, ","))
	}
	if opts.GroupBy != "" {
		q.Set("groupBy", string(opts.GroupBy))
	}
	return q
}
