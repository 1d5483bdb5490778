package internal

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	perrors "github.com/postline/go-postline-api-wrapper/pkg/errors"
	"github.com/postline/go-postline-api-wrapper/pkg/types"
)

const (
	// DefaultPostCount is how many posts a mock listing returns when the
	// caller does not specify a count.
	DefaultPostCount = 20

	// MaxGeneratedAnalyticsPosts caps the batch analytics post count.
	// Tuning constant, not an API invariant.
	MaxGeneratedAnalyticsPosts = 500

	// sentStatusWeight is the probability a generated post is "sent"
	// rather than "queued".
	sentStatusWeight = 0.8

	// engagementRateJitter is the half-width of the symmetric perturbation
	// applied to a platform's base engagement rate.
	engagementRateJitter = 0.015

	// impressionFactorJitter is the relative half-width applied to a
	// platform's impression multiplier.
	impressionFactorJitter = 0.2

	// trendThreshold is the average engagement rate above which a summary
	// reports an upward trend.
	trendThreshold = 0.05

	mockPostIDPrefix = "post-"
)

// metricWeight assigns a share of a post's total engagement to one metric
// key. Shares are applied by floor division, in table order.
type metricWeight struct {
	key   string
	share float64
}

// platformTuning holds the per-platform generation constants: base
// engagement rate, reach range, impression multiplier, and the engagement
// split across the platform's metric keys (including its platform-specific
// extras: retweets for x, reactions for facebook, saves for instagram).
type platformTuning struct {
	baseEngagementRate float64
	reachMin, reachMax int64
	impressionFactor   float64
	weights            []metricWeight
}

var platformTunings = map[types.Platform]platformTuning{
	types.PlatformX: {
		baseEngagementRate: 0.045,
		reachMin:           500, reachMax: 5500,
		impressionFactor: 2.5,
		weights: []metricWeight{
			{"likes", 0.60},
			{"retweets", 0.15},
			{"comments", 0.15},
			{"clicks", 0.10},
		},
	},
	types.PlatformLinkedIn: {
		baseEngagementRate: 0.054,
		reachMin:           400, reachMax: 3400,
		impressionFactor: 2.2,
		weights: []metricWeight{
			{"likes", 0.55},
			{"comments", 0.20},
			{"shares", 0.15},
			{"clicks", 0.10},
		},
	},
	types.PlatformFacebook: {
		baseEngagementRate: 0.063,
		reachMin:           600, reachMax: 6600,
		impressionFactor: 2.8,
		weights: []metricWeight{
			{"likes", 0.45},
			{"reactions", 0.20},
			{"comments", 0.15},
			{"shares", 0.12},
			{"clicks", 0.08},
		},
	},
	types.PlatformInstagram: {
		baseEngagementRate: 0.071,
		reachMin:           800, reachMax: 8800,
		impressionFactor: 3.0,
		weights: []metricWeight{
			{"likes", 0.65},
			{"comments", 0.15},
			{"saves", 0.12},
			{"clicks", 0.08},
		},
	},
}

// mockProfileCatalog is the fixed simulation catalog: exactly one profile
// per supported platform, each with a platform-appropriate schedule.
var mockProfileCatalog = []types.Profile{
	{
		ID:       "pl-x-001",
		Platform: types.PlatformX,
		Username: "postline_hq",
		Timezone: "America/New_York",
		Schedule: []types.ScheduleSlot{
			{Days: []string{"mon", "tue", "wed", "thu", "fri"}, Times: []string{"09:00", "13:00", "17:00"}},
		},
	},
	{
		ID:       "pl-li-002",
		Platform: types.PlatformLinkedIn,
		Username: "Postline Inc.",
		Timezone: "America/New_York",
		Schedule: []types.ScheduleSlot{
			{Days: []string{"tue", "wed", "thu"}, Times: []string{"08:30", "12:00"}},
		},
	},
	{
		ID:       "pl-fb-003",
		Platform: types.PlatformFacebook,
		Username: "postlineapp",
		Timezone: "America/Chicago",
		Schedule: []types.ScheduleSlot{
			{Days: []string{"mon", "wed", "fri"}, Times: []string{"10:00", "15:00", "19:00"}},
		},
	},
	{
		ID:       "pl-ig-004",
		Platform: types.PlatformInstagram,
		Username: "postline.app",
		Timezone: "America/Los_Angeles",
		Schedule: []types.ScheduleSlot{
			{Days: []string{"mon", "tue", "thu", "sat"}, Times: []string{"11:00", "18:00", "20:30"}},
		},
	},
}

var mockPostTexts = []string{
	"Excited to share what the team has been building this quarter!",
	"Behind the scenes: how we plan a month of content in one afternoon.",
	"Five scheduling habits that doubled our engagement.",
	"New integrations just landed. Which one should we build next?",
	"Throwback to our first thousand scheduled posts.",
	"A quick tip: your audience is most active earlier than you think.",
	"We asked, you answered. Here's what's coming next.",
	"Consistency beats virality. Every single time.",
}

// Synthesizer fabricates internally consistent domain objects for
// simulation mode. It is stateless apart from a per-instance salt: the same
// instance given the same inputs generates identical numeric values, so
// summaries always agree with the post sets they aggregate, while separate
// instances (and separate runs) produce different values.
type Synthesizer struct {
	salt uint64
	now  func() time.Time
}

// NewSynthesizer returns a synthesizer with a fresh random salt.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{salt: rand.Uint64(), now: time.Now}
}

// rng derives a deterministic random source from the instance salt and the
// given input labels.
func (s *Synthesizer) rng(parts ...string) *rand.Rand {
	h := fnv.New64a()
	var saltBuf [8]byte
	binary.LittleEndian.PutUint64(saltBuf[:], s.salt)
	h.Write(saltBuf[:])
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// Profiles returns the full mock profile catalog.
func (s *Synthesizer) Profiles() []*types.Profile {
	out := make([]*types.Profile, len(mockProfileCatalog))
	for i := range mockProfileCatalog {
		p := mockProfileCatalog[i]
		out[i] = &p
	}
	return out
}

// Profile looks a profile up by ID. Absence from the catalog is a
// PROFILE_NOT_FOUND condition even in simulation mode.
func (s *Synthesizer) Profile(id string) (*types.Profile, error) {
	for i := range mockProfileCatalog {
		if mockProfileCatalog[i].ID == id {
			p := mockProfileCatalog[i]
			return &p, nil
		}
	}
	return nil, perrors.New(perrors.CodeProfileNotFound, fmt.Sprintf("profile %q not found", id))
}

// Posts generates a page of posts for a profile. Creation timestamps step
// back one calendar day per post, due times one hour; status skews heavily
// toward "sent".
func (s *Synthesizer) Posts(profileID string, opts *types.PostListOptions) ([]*types.Post, error) {
	profile, err := s.Profile(profileID)
	if err != nil {
		return nil, err
	}

	count := DefaultPostCount
	page := 1
	if opts != nil {
		if opts.Count > 0 {
			count = opts.Count
		}
		if opts.Page > 1 {
			page = opts.Page
		}
	}
	offset := (page - 1) * count

	now := s.now()
	rng := s.rng("posts", profileID, fmt.Sprint(offset), fmt.Sprint(count))

	posts := make([]*types.Post, 0, count)
	for i := offset; i < offset+count; i++ {
		createdAt := now.AddDate(0, 0, -i)
		scheduledAt := now.Add(-time.Duration(i) * time.Hour)

		post := &types.Post{
			ID:          mockPostIDPrefix + uuid.NewString(),
			ProfileID:   profile.ID,
			Text:        mockPostTexts[rng.Intn(len(mockPostTexts))],
			CreatedAt:   createdAt,
			ScheduledAt: &scheduledAt,
			Statistics:  types.Metrics{},
		}

		if rng.Float64() < sentStatusWeight {
			post.Status = types.PostStatusSent
			sentAt := scheduledAt
			post.SentAt = &sentAt
			post.Statistics = types.Metrics{
				"likes":    rng.Int63n(500),
				"comments": rng.Int63n(100),
				"shares":   rng.Int63n(50),
				"clicks":   rng.Int63n(80),
			}
		} else {
			post.Status = types.PostStatusQueued
		}

		posts = append(posts, post)
	}

	return filterPosts(posts, opts), nil
}

// filterPosts applies the optional status and time-bound filters.
func filterPosts(posts []*types.Post, opts *types.PostListOptions) []*types.Post {
	if opts == nil {
		return posts
	}

	out := posts[:0]
	for _, p := range posts {
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		if !opts.Since.IsZero() && p.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && p.CreatedAt.After(opts.Until) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Post synthesizes a single post lookup. IDs outside the mock namespace are
// a POST_NOT_FOUND condition.
func (s *Synthesizer) Post(id string) (*types.Post, error) {
	if !strings.HasPrefix(id, mockPostIDPrefix) {
		return nil, perrors.New(perrors.CodePostNotFound, fmt.Sprintf("post %q not found", id))
	}

	rng := s.rng("post", id)
	now := s.now()
	createdAt := now.AddDate(0, 0, -1-rng.Intn(28))
	sentAt := createdAt.Add(time.Duration(1+rng.Intn(48)) * time.Hour)

	return &types.Post{
		ID:        id,
		ProfileID: mockProfileCatalog[0].ID,
		Status:    types.PostStatusSent,
		Text:      mockPostTexts[rng.Intn(len(mockPostTexts))],
		CreatedAt: createdAt,
		SentAt:    &sentAt,
		Statistics: types.Metrics{
			"likes":    rng.Int63n(500),
			"comments": rng.Int63n(100),
			"shares":   rng.Int63n(50),
			"clicks":   rng.Int63n(80),
		},
	}, nil
}

// CreatePost mints a new queued post echoing the caller's text and
// schedule, with zeroed statistics.
func (s *Synthesizer) CreatePost(profileID string, req *types.PostCreateRequest) (*types.Post, error) {
	profile, err := s.Profile(profileID)
	if err != nil {
		return nil, err
	}

	post := &types.Post{
		ID:         mockPostIDPrefix + uuid.NewString(),
		ProfileID:  profile.ID,
		Status:     types.PostStatusQueued,
		Text:       req.Text,
		CreatedAt:  s.now(),
		MediaURLs:  req.MediaURLs,
		Statistics: types.Metrics{},
	}
	if req.ScheduledAt != nil {
		scheduled := *req.ScheduledAt
		post.ScheduledAt = &scheduled
	}

	return post, nil
}

// PostAnalytics fabricates an engagement record for a single post, tagged
// to the fallback catalog profile when no other context is available.
func (s *Synthesizer) PostAnalytics(postID string) (*types.PostAnalytics, error) {
	fallback := mockProfileCatalog[0]
	rng := s.rng("post-analytics", postID)

	rate := 0.02 + rng.Float64()*0.06
	record := s.buildAnalyticsRecord(rng, fallback.Platform, fallback.ID, s.now().AddDate(0, 0, -rng.Intn(30)), rate)
	record.PostID = postID
	return record, nil
}

// AnalyticsPosts generates the batch analytics post set for a profile and
// window: post count scaled by platform count, window length and grouping,
// distributed evenly across the window days with platforms cycled
// round-robin, newest first.
func (s *Synthesizer) AnalyticsPosts(profileID string, opts *types.AnalyticsOptions) ([]*types.PostAnalytics, error) {
	if _, err := s.Profile(profileID); err != nil {
		return nil, err
	}

	window := opts.Normalize(s.now())
	platforms := opts.ActivePlatforms()
	grouping := types.GroupByDay
	if opts != nil && opts.GroupBy != "" {
		grouping = opts.GroupBy
	}

	target := int(float64(len(platforms)*window.Days) * grouping.Multiplier())
	if target < 1 {
		target = 1
	}
	if target > MaxGeneratedAnalyticsPosts {
		target = MaxGeneratedAnalyticsPosts
	}

	rng := s.rng("analytics-posts", profileID, windowKey(window, platforms, grouping))

	records := make([]*types.PostAnalytics, 0, target)
	for i := 0; i < target; i++ {
		dayOffset := i * window.Days / target
		publishedAt := window.End.
			AddDate(0, 0, -dayOffset).
			Add(-time.Duration(rng.Intn(23)+1) * time.Hour)

		// An explicit window is a hard bound; discard stragglers.
		if window.Explicit && (publishedAt.Before(window.Start) || publishedAt.After(window.End)) {
			continue
		}

		platform := platforms[i%len(platforms)]
		tuning := platformTunings[platform]
		rate := tuning.baseEngagementRate + (rng.Float64()-0.5)*2*engagementRateJitter
		records = append(records, s.buildAnalyticsRecord(rng, platform, profileID, publishedAt, rate))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].PublishedAt.After(records[j].PublishedAt)
	})

	return records, nil
}

// buildAnalyticsRecord derives one record's numeric fields from the
// platform tuning: reach from the platform range, impressions as reach
// times the jittered platform multiplier, and the metric bag by splitting
// total engagement (reach × rate) across the platform weights with floor
// division.
func (s *Synthesizer) buildAnalyticsRecord(rng *rand.Rand, platform types.Platform, profileID string, publishedAt time.Time, rate float64) *types.PostAnalytics {
	tuning := platformTunings[platform]

	if rate <= 0 {
		rate = 0.001
	}
	if rate > 1 {
		rate = 1
	}

	reach := tuning.reachMin + rng.Int63n(tuning.reachMax-tuning.reachMin+1)
	factor := tuning.impressionFactor * (1 + (rng.Float64()-0.5)*2*impressionFactorJitter)
	impressions := int64(float64(reach) * factor)
	if impressions < reach {
		impressions = reach
	}

	total := float64(reach) * rate
	metrics := make(types.Metrics, len(tuning.weights))
	for _, w := range tuning.weights {
		metrics[w.key] = int64(math.Floor(total * w.share))
	}

	return &types.PostAnalytics{
		PostID:         mockPostIDPrefix + uuid.NewString(),
		ProfileID:      profileID,
		Platform:       platform,
		PublishedAt:    publishedAt,
		Text:           mockPostTexts[rng.Intn(len(mockPostTexts))],
		Metrics:        metrics,
		EngagementRate: rate,
		Reach:          reach,
		Impressions:    impressions,
	}
}

// AnalyticsSummary aggregates the exact post set AnalyticsPosts produces
// for the same inputs. Nothing here is randomized independently except the
// trend magnitude.
func (s *Synthesizer) AnalyticsSummary(profileID string, opts *types.AnalyticsOptions) (*types.AnalyticsSummary, error) {
	posts, err := s.AnalyticsPosts(profileID, opts)
	if err != nil {
		return nil, err
	}

	window := opts.Normalize(s.now())
	summary := &types.AnalyticsSummary{
		ProfileID:         profileID,
		Start:             window.Start,
		End:               window.End,
		TotalPosts:        len(posts),
		PlatformBreakdown: make(map[types.Platform]types.PlatformStats),
	}

	type platformAcc struct {
		posts    int
		rateSum  float64
		reachSum int64
	}
	acc := make(map[types.Platform]*platformAcc)

	var rateSum float64
	for _, p := range posts {
		summary.TotalEngagement += p.Metrics.Total()
		rateSum += p.EngagementRate

		if summary.BestPost == nil || p.EngagementRate > summary.BestPost.EngagementRate {
			summary.BestPost = p
		}

		a := acc[p.Platform]
		if a == nil {
			a = &platformAcc{}
			acc[p.Platform] = a
		}
		a.posts++
		a.rateSum += p.EngagementRate
		a.reachSum += p.Reach
	}

	if len(posts) > 0 {
		summary.AverageEngagementRate = rateSum / float64(len(posts))
	}

	// Platforms with zero posts are simply absent from the breakdown.
	for platform, a := range acc {
		summary.PlatformBreakdown[platform] = types.PlatformStats{
			Posts:                 a.posts,
			AverageEngagementRate: a.rateSum / float64(a.posts),
			TotalReach:            a.reachSum,
		}
	}

	trendRng := s.rng("trend", profileID, fmt.Sprint(window.Days))
	summary.Trend = types.Trend{Direction: types.TrendDown, ChangePercent: trendRng.Float64() * 10}
	if summary.AverageEngagementRate > trendThreshold {
		summary.Trend.Direction = types.TrendUp
	}

	return summary, nil
}

// AnalyticsInsights derives an opaque insights payload from the same post
// set the other analytics calls use.
func (s *Synthesizer) AnalyticsInsights(profileID string, opts *types.AnalyticsOptions) (map[string]any, error) {
	posts, err := s.AnalyticsPosts(profileID, opts)
	if err != nil {
		return nil, err
	}

	window := opts.Normalize(s.now())

	hourCounts := make(map[int]int)
	platformRates := make(map[string]float64)
	platformCounts := make(map[string]int)
	for _, p := range posts {
		hourCounts[p.PublishedAt.Hour()]++
		platformRates[string(p.Platform)] += p.EngagementRate
		platformCounts[string(p.Platform)]++
	}

	hours := make([]int, 0, len(hourCounts))
	for h := range hourCounts {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if hourCounts[hours[i]] != hourCounts[hours[j]] {
			return hourCounts[hours[i]] > hourCounts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}

	engagementByPlatform := make(map[string]float64, len(platformRates))
	for platform, sum := range platformRates {
		engagementByPlatform[platform] = sum / float64(platformCounts[platform])
	}

	return map[string]any{
		"profileId":            profileID,
		"start":                window.Start,
		"end":                  window.End,
		"totalPosts":           len(posts),
		"bestPostingHours":     hours,
		"engagementByPlatform": engagementByPlatform,
	}, nil
}

// windowKey builds the deterministic seed label for one analytics request.
// Only shape-determining inputs participate, so repeated calls with the
// same inputs draw identical values.
func windowKey(window types.Window, platforms []types.Platform, grouping types.Grouping) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "days=%d;group=%s;platforms=", window.Days, grouping)
	for _, p := range platforms {
		sb.WriteString(string(p))
		sb.WriteByte(',')
	}
	if window.Explicit {
		fmt.Fprintf(&sb, ";start=%d;end=%d", window.Start.Unix(), window.End.Unix())
	}
	return sb.String()
}
