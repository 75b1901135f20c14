// internal/instagram/instagram.go
//
// Home-page Instagram strip.
//
// Context
// -------
// The chef's recent posts are pulled from the Instagram Graph API with the
// long-lived token stored in site settings.  The API is slow and rate
// limited, so a Feed keeps one Cache value with an expiry and only asks
// again once it has passed.
//
// Workflow
// --------
//  1. Disabled or token-less settings → empty feed, no request.
//  2. Fresh cache for the same account and count → served as-is.
//  3. Otherwise fetch (one request in flight per Feed).  On failure the
//     expired cache is served if there is one; the error is returned only
//     when there is nothing to show.
//
// Notes
// -----
// • The Cache is a plain value owned by its Feed.  Tests build a Feed with
//   a prepared Cache instead of touching shared state.
package instagram

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/chefsite/internal/metrics"
	"github.com/yanizio/chefsite/internal/settings"
)

// DefaultPostCount applies when settings leave postCount at zero.
const DefaultPostCount = 6

// maxPostCount is the Graph API page limit we allow settings to ask for.
const maxPostCount = 25

// ErrNotConfigured is returned by Fetch when no token is set.
var ErrNotConfigured = errors.New("instagram: not configured")

// Post is one media item.
type Post struct {
	ID           string    `json:"id"`
	Caption      string    `json:"caption"`
	MediaType    string    `json:"media_type"`
	MediaURL     string    `json:"media_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Permalink    string    `json:"permalink"`
	Timestamp    time.Time `json:"timestamp"`
}

// Image is what a page should display: the thumbnail for videos, the
// media itself otherwise.
func (p Post) Image() string {
	if p.MediaType == "VIDEO" && p.ThumbnailURL != "" {
		return p.ThumbnailURL
	}
	return p.MediaURL
}

// Cache is one fetched feed and when it stops being fresh.
type Cache struct {
	Key       string    `json:"key"`
	Posts     []Post    `json:"posts"`
	FetchedAt time.Time `json:"fetched_at"`
	Expires   time.Time `json:"expires"`
}

// Fresh reports whether c can be served for key at now.
func (c Cache) Fresh(key string, now time.Time) bool {
	return c.Key == key && !c.FetchedAt.IsZero() && now.Before(c.Expires)
}

// Fetcher retrieves the latest limit posts for token.
type Fetcher interface {
	Fetch(ctx context.Context, token string, limit int) ([]Post, error)
}

// Feed serves the cached feed.  Safe for concurrent use.
type Feed struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	cache Cache
	group singleflight.Group
}

// NewFeed returns a Feed that refetches after ttl.  initial seeds the
// cache; pass the zero Cache to start empty.
func NewFeed(f Fetcher, ttl time.Duration, initial Cache) *Feed {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Feed{fetcher: f, ttl: ttl, now: time.Now, cache: initial}
}

// Snapshot returns a copy of the current cache.
func (f *Feed) Snapshot() Cache {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := f.cache
	c.Posts = append([]Post(nil), c.Posts...)
	return c
}

func limitFor(cfg settings.Instagram) int {
	n := cfg.PostCount
	switch {
	case n <= 0:
		return DefaultPostCount
	case n > maxPostCount:
		return maxPostCount
	}
	return n
}

// Posts returns the feed for cfg.
func (f *Feed) Posts(ctx context.Context, cfg settings.Instagram) ([]Post, error) {
	if !cfg.Enabled || cfg.AccessToken == "" {
		return []Post{}, nil
	}
	limit := limitFor(cfg)
	key := cfg.Username + "/" + strconv.Itoa(limit)

	if c := f.Snapshot(); c.Fresh(key, f.now()) {
		metrics.InstagramFetchesTotal.WithLabelValues("hit").Inc()
		return c.Posts, nil
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		posts, err := f.fetcher.Fetch(ctx, cfg.AccessToken, limit)
		if err != nil {
			return nil, err
		}
		now := f.now()
		f.mu.Lock()
		f.cache = Cache{Key: key, Posts: posts, FetchedAt: now, Expires: now.Add(f.ttl)}
		f.mu.Unlock()
		return posts, nil
	})
	if err == nil {
		metrics.InstagramFetchesTotal.WithLabelValues("fetched").Inc()
		return append([]Post(nil), v.([]Post)...), nil
	}

	if c := f.Snapshot(); c.Key == key && !c.FetchedAt.IsZero() {
		metrics.InstagramFetchesTotal.WithLabelValues("stale").Inc()
		zap.L().Warn("instagram fetch failed; serving cached feed",
			zap.Time("fetched_at", c.FetchedAt), zap.Error(err))
		return c.Posts, nil
	}
	metrics.InstagramFetchesTotal.WithLabelValues("error").Inc()
	zap.L().Error("instagram fetch failed", zap.Error(err))
	return nil, err
}
