package gpaw

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"github.com/postline/go-postline-api-wrapper/pkg/types"
)

// ListPosts retrieves a profile's posts, optionally filtered by status and
// creation-time bounds and paginated by page/count.
func (c *Client) ListPosts(ctx context.Context, profileID string, opts *types.PostListOptions) ([]*types.Post, error) {
	if profileID == "" {
		return nil, perrors.New(perrors.CodeRequestError, "profile ID is required")
	}

	return execute(ctx, c,
		func() ([]*types.Post, error) {
			return c.synth.Posts(profileID, opts)
		},
		func(ctx context.Context) ([]*types.Post, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "profiles/"+profileID+"/posts", postListQuery(opts), nil)
			if err != nil {
				return nil, err
			}
			if !env.HasData() {
				return nil, perrors.New(perrors.CodeProfileNotFound, fmt.Sprintf("profile %q not found", profileID))
			}

			var posts []*types.Post
			if err := env.Decode(&posts); err != nil {
				return nil, err
			}
			return posts, nil
		})
}

// GetPost retrieves one post by ID. A missing post fails with
// POST_NOT_FOUND in both live and mock mode.
func (c *Client) GetPost(ctx context.Context, id string) (*types.Post, error) {
	if id == "" {
		return nil, perrors.New(perrors.CodeRequestError, "post ID is required")
	}

	return execute(ctx, c,
		func() (*types.Post, error) {
			return c.synth.Post(id)
		},
		func(ctx context.Context) (*types.Post, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "posts/"+id, nil, nil)
			if err != nil {
				return nil, err
			}
			if !env.HasData() {
				return nil, perrors.New(perrors.CodePostNotFound, fmt.Sprintf("post %q not found", id))
			}

			var post types.Post
			if err := env.Decode(&post); err != nil {
				return nil, err
			}
			return &post, nil
		})
}

// CreatePost schedules a new post for a profile. The returned post echoes
// the supplied text and schedule, starts in the queued state, and carries
// zeroed statistics.
func (c *Client) CreatePost(ctx context.Context, profileID string, req *types.PostCreateRequest) (*types.Post, error) {
	if profileID == "" {
		return nil, perrors.New(perrors.CodeRequestError, "profile ID is required")
	}
	if req == nil || req.Text == "" {
		return nil, perrors.New(perrors.CodeRequestError, "post text is required")
	}

	return execute(ctx, c,
		func() (*types.Post, error) {
			return c.synth.CreatePost(profileID, req)
		},
		func(ctx context.Context) (*types.Post, error) {
			env, err := c.client.Do(ctx, http.MethodPost, "profiles/"+profileID+"/posts", nil, req)
			if err != nil {
				return nil, err
			}
			// Transport succeeded but the envelope carried no post.
			if !env.HasData() {
				return nil, perrors.New(perrors.CodePostCreateFailed, "create response contained no post")
			}

			var post types.Post
			if err := env.Decode(&post); err != nil {
				return nil, err
			}
			return &post, nil
		})
}

// GetPostAnalytics retrieves the engagement record for one post.
func (c *Client) GetPostAnalytics(ctx context.Context, postID string) (*types.PostAnalytics, error) {
	if postID == "" {
		return nil, perrors.New(perrors.CodeRequestError, "post ID is required")
	}

	return execute(ctx, c,
		func() (*types.PostAnalytics, error) {
			return c.synth.PostAnalytics(postID)
		},
		func(ctx context.Context) (*types.PostAnalytics, error) {
			env, err := c.client.Do(ctx, http.MethodGet, "posts/"+postID+"/analytics", nil, nil)
			if err != nil {
				return nil, err
			}
			if !env.HasData() {
				return nil, perrors.New(perrors.CodePostNotFound, fmt.Sprintf("post %q not found", postID))
			}

			var analytics types.PostAnalytics
			if err := env.Decode(&analytics); err != nil {
				return nil, err
			}
			return &analytics, nil
		})
}

// postListQuery encodes the list options as query parameters.
func postListQuery(opts *types.PostListOptions) url.Values {
	if opts == nil {
		return nil
	}

	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Count > 0 {
		q.Set("count", strconv.Itoa(opts.Count))
	}
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.Format(time.RFC3339))
	}
	if !opts.Until.IsZero() {
		q.Set("until", opts.Until.Format(time.RFC3339))
	}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	return q
}
