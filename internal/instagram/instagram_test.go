package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/chefsite/internal/settings"
)

type fakeFetcher struct {
	calls atomic.Int32
	posts []Post
	err   error
	limit int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, limit int) ([]Post, error) {
	f.calls.Add(1)
	f.limit = limit
	return f.posts, f.err
}

var cfg = settings.Instagram{Enabled: true, Username: "chef", AccessToken: "tok", PostCount: 3}

func TestDisabledFeedIsEmpty(t *testing.T) {
	f := &fakeFetcher{}
	feed := NewFeed(f, time.Minute, Cache{})
	got, err := feed.Posts(context.Background(), settings.Instagram{Enabled: false, AccessToken: "x"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.calls.Load())
}

func TestFeedCachesUntilExpiry(t *testing.T) {
	f := &fakeFetcher{posts: []Post{{ID: "1"}}}
	feed := NewFeed(f, time.Minute, Cache{})
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := feed.Posts(ctx, cfg)
	require.NoError(t, err)
	_, err = feed.Posts(ctx, cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, 3, f.limit)

	now = now.Add(2 * time.Minute)
	_, err = feed.Posts(ctx, cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestFeedRefetchesWhenAccountChanges(t *testing.T) {
	f := &fakeFetcher{posts: []Post{{ID: "1"}}}
	feed := NewFeed(f, time.Hour, Cache{})
	ctx := context.Background()

	_, _ = feed.Posts(ctx, cfg)
	other := cfg
	other.Username = "someone-else"
	_, _ = feed.Posts(ctx, other)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestFeedServesExpiredCacheOnError(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seed := Cache{
		Key:       "chef/3",
		Posts:     []Post{{ID: "old"}},
		FetchedAt: now.Add(-2 * time.Hour),
		Expires:   now.Add(-time.Hour),
	}
	f := &fakeFetcher{err: errors.New("rate limited")}
	feed := NewFeed(f, time.Hour, seed)
	feed.now = func() time.Time { return now }

	got, err := feed.Posts(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].ID)
}

func TestFeedErrorWithNothingCached(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	feed := NewFeed(f, time.Hour, Cache{})
	_, err := feed.Posts(context.Background(), cfg)
	assert.Error(t, err)
}

func TestLimitFor(t *testing.T) {
	assert.Equal(t, DefaultPostCount, limitFor(settings.Instagram{}))
	assert.Equal(t, maxPostCount, limitFor(settings.Instagram{PostCount: 100}))
	assert.Equal(t, 4, limitFor(settings.Instagram{PostCount: 4}))
}

func TestGraphFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/media", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"1","caption":"Tonight","media_type":"IMAGE","media_url":"https://cdn/1.jpg",
			 "permalink":"https://instagram.com/p/1","timestamp":"2025-01-02T18:10:00+0000"},
			{"id":"2","media_type":"VIDEO","media_url":"https://cdn/2.mp4",
			 "thumbnail_url":"https://cdn/2.jpg","timestamp":"2025-01-01T09:00:00+0000"}
		]}`))
	}))
	defer srv.Close()

	g := &GraphFetcher{BaseURL: srv.URL, Client: srv.Client()}
	posts, err := g.Fetch(context.Background(), "tok", 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, time.Date(2025, 1, 2, 18, 10, 0, 0, time.UTC), posts[0].Timestamp)
	assert.Equal(t, "https://cdn/1.jpg", posts[0].Image())
	assert.Equal(t, "https://cdn/2.jpg", posts[1].Image())
}

func TestGraphFetcherAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	g := &GraphFetcher{BaseURL: srv.URL, Client: srv.Client()}
	_, err := g.Fetch(context.Background(), "bad", 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAuthException")

	_, err = g.Fetch(context.Background(), "", 6)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
