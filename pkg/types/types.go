// Package types defines the domain objects exchanged with the Postline API:
// profiles, posts, analytics records, and the option structs accepted by the
// client's operations.
package types

import (
	"time"
)

// Platform identifies a supported social network.
type Platform string

const (
	PlatformX         Platform = "x"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// AllPlatforms lists every platform the API supports, in catalog order.
func AllPlatforms() []Platform {
	return []Platform{PlatformX, PlatformLinkedIn, PlatformFacebook, PlatformInstagram}
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformX, PlatformLinkedIn, PlatformFacebook, PlatformInstagram:
		return true
	}
	return false
}

// ScheduleSlot describes one recurring posting slot for a profile:
// a set of weekdays crossed with a set of times of day.
type ScheduleSlot struct {
	// Days holds lowercase weekday names, e.g. "mon", "wed".
	Days []string `json:"days"`
	// Times holds 24h clock times, e.g. "09:00", "17:30".
	Times []string `json:"times"`
}

// Profile is a connected social account.
type Profile struct {
	ID       string         `json:"id"`
	Platform Platform       `json:"platform"`
	Username string         `json:"username"`
	Timezone string         `json:"timezone"`
	Schedule []ScheduleSlot `json:"schedule,omitempty"`
}

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusQueued PostStatus = "queued"
	PostStatusSent   PostStatus = "sent"
	PostStatusFailed PostStatus = "failed"
	PostStatusDraft  PostStatus = "draft"
)

// Metrics is the engagement metric bag for a post. Keys are
// platform-dependent: "retweets" appears only for x, "saves" only for
// instagram, "reactions" only for facebook; "likes", "comments", "shares"
// and "clicks" are common.
type Metrics map[string]int64

// Total sums every metric value in the bag.
func (m Metrics) Total() int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}

// Post is a scheduled or sent update belonging to a profile.
type Post struct {
	ID          string     `json:"id"`
	ProfileID   string     `json:"profileId"`
	Status      PostStatus `json:"status"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"createdAt"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	MediaURLs   []string   `json:"mediaUrls,omitempty"`

	// Statistics is present only once the post has been sent.
	Statistics Metrics `json:"statistics,omitempty"`
}

// PostAnalytics is the engagement record for a single published post.
type PostAnalytics struct {
	PostID      string    `json:"postId"`
	ProfileID   string    `json:"profileId"`
	Platform    Platform  `json:"platform"`
	PublishedAt time.Time `json:"publishedAt"`
	Text        string    `json:"text"`
	Metrics     Metrics   `json:"metrics"`

	// EngagementRate is total interactions divided by reach, in (0, 1].
	EngagementRate float64 `json:"engagementRate"`
	Reach          int64   `json:"reach"`
	Impressions    int64   `json:"impressions"`
}

// PlatformStats is one per-platform slice of an analytics summary.
type PlatformStats struct {
	Posts                 int     `json:"posts"`
	AverageEngagementRate float64 `json:"averageEngagementRate"`
	TotalReach            int64   `json:"totalReach"`
}

// TrendDirection indicates whether engagement is trending up or down.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
)

// Trend describes the engagement trajectory over the summary window.
type Trend struct {
	Direction     TrendDirection `json:"direction"`
	ChangePercent float64        `json:"changePercent"`
}

// AnalyticsSummary aggregates a profile's analytics over a time window.
// Every figure is derived from the same post set returned by the posts
// analytics call for identical inputs, never randomized independently.
type AnalyticsSummary struct {
	ProfileID             string                     `json:"profileId"`
	Start                 time.Time                  `json:"start"`
	End                   time.Time                  `json:"end"`
	TotalPosts            int                        `json:"totalPosts"`
	TotalEngagement       int64                      `json:"totalEngagement"`
	AverageEngagementRate float64                    `json:"averageEngagementRate"`
	BestPost              *PostAnalytics             `json:"bestPost,omitempty"`
	PlatformBreakdown     map[Platform]PlatformStats `json:"platformBreakdown"`
	Trend                 Trend                      `json:"trend"`
}

// Grouping controls how densely batch analytics distributes posts.
type Grouping string

const (
	GroupByDay   Grouping = "day"
	GroupByWeek  Grouping = "week"
	GroupByMonth Grouping = "month"
)

// PostListOptions filters and paginates a post listing.
type PostListOptions struct {
	// Page is 1-based. Zero means the first page.
	Page int
	// Count is the page size. Zero means the server default (20).
	Count int
	// Since and Until bound the posts' creation times when non-zero.
	Since time.Time
	Until time.Time
	// Status restricts the listing to one lifecycle state when set.
	Status PostStatus
}

// PostCreateRequest describes a new post to schedule.
type PostCreateRequest struct {
	Text        string     `json:"text"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	MediaURLs   []string   `json:"mediaUrls,omitempty"`
}

// AnalyticsOptions is the flexible option bag accepted by analytics calls.
// Callers may supply a shorthand TimeRange, explicit start/end dates, or
// both; Normalize resolves the precedence.
type AnalyticsOptions struct {
	// TimeRange is a shorthand duration code: "7d", "30d", "90d" or "1y".
	TimeRange string

	// StartDate and EndDate bound the window explicitly. Both must be set
	// to take effect; explicit dates win over TimeRange.
	StartDate time.Time
	EndDate   time.Time

	// Platforms restricts generation/aggregation to a platform subset.
	// Empty means all supported platforms.
	Platforms []Platform

	// GroupBy controls post-density scaling. Defaults to GroupByDay.
	GroupBy Grouping
}

// Window is a fully resolved analytics time window.
type Window struct {
	Start time.Time
	End   time.Time
	// Days is the window length in whole days, at least 1.
	Days int
	// Explicit is true when the window came from caller-supplied dates;
	// generated timestamps outside an explicit window are discarded.
	Explicit bool
}

// timeRangeDays maps the shorthand codes to calendar day counts.
var timeRangeDays = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
}

// fallbackWindowDays is used when no usable range information is given.
const fallbackWindowDays = 30

// Normalize resolves the option bag into a concrete window ending at most
// at now. Precedence: explicit start+end dates, then the TimeRange
// shorthand, then a 30-day trailing window. An unrecognized shorthand
// without explicit dates also falls back to 30 days.
func (o *AnalyticsOptions) Normalize(now time.Time) Window {
	if o != nil && !o.StartDate.IsZero() && !o.EndDate.IsZero() {
		days := int(o.EndDate.Sub(o.StartDate).Hours() / 24)
		if days < 1 {
			days = 1
		}
		return Window{Start: o.StartDate, End: o.EndDate, Days: days, Explicit: true}
	}

	days := fallbackWindowDays
	if o != nil && o.TimeRange != "" {
		if d, ok := timeRangeDays[o.TimeRange]; ok {
			days = d
		}
	}

	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now,
		Days:  days,
	}
}

// ActivePlatforms returns the platform subset to operate on, defaulting to
// all supported platforms. Unknown entries are dropped.
func (o *AnalyticsOptions) ActivePlatforms() []Platform {
	if o == nil || len(o.Platforms) == 0 {
		return AllPlatforms()
	}

	active := make([]Platform, 0, len(o.Platforms))
	for _, p := range o.Platforms {
		if p.Valid() {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return AllPlatforms()
	}
	return active
}

// Multiplier returns the post-density scaling for the grouping: day-level
// grouping generates one post per platform per day, week and month grouping
// proportionally fewer.
func (g Grouping) Multiplier() float64 {
	switch g {
	case GroupByWeek:
		return 0.5
	case GroupByMonth:
		return 0.3
	default:
		return 1.0
	}
}
