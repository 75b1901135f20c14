// internal/settings/store.go
//
// Settings persistence.
//
// Context
// -------
// Store sits between handlers and a Backend (the site_settings row, or a
// local-storage snapshot).  Its contract:
//
//   - Get never fails.  A backend error or an empty store yields
//     Default(); a blob is always merged over Default() first.
//   - Save persists the full object and reports false, not an error, when
//     the backend refuses.
//   - Patch merges a partial JSON object over the current value and saves
//     the result, but never over a degraded read.
//
// Reads are cached for a short TTL and concurrent misses collapse into one
// backend read.  When the backend fails after a successful read, the last
// value seen is served instead of the defaults.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/chefsite/internal/cache"
	"github.com/yanizio/chefsite/internal/metrics"
)

// Backend loads and stores the raw settings blob.  Load returns nil, nil
// when nothing has been persisted yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, blob []byte) error
}

const cacheKey = "settings"

// ErrDegraded marks a read that could not reach, or could not parse, the
// stored blob.
var ErrDegraded = errors.New("settings: stored value unavailable")

// Store is safe for concurrent use.
type Store struct {
	backend Backend
	cache   *cache.LRU[string, Settings]
	group   singleflight.Group
}

// NewStore wraps b.  A ttl <= 0 disables caching of reads.
func NewStore(b Backend, ttl time.Duration) *Store {
	s := &Store{backend: b}
	if ttl > 0 {
		s.cache = cache.New[string, Settings](1, ttl)
	}
	return s
}

// Get returns the merged settings.
func (s *Store) Get(ctx context.Context) Settings {
	st, _ := s.Current(ctx)
	return st
}

// Current is Get for callers that write back what they read.  The value
// is always usable; a non-nil error (wrapping ErrDegraded) means it is the
// last good value or Default() rather than what the backend holds, and
// saving it would overwrite the stored blob.
func (s *Store) Current(ctx context.Context) (Settings, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			return v.Clone(), nil
		}
	}

	v, err, _ := s.group.Do(cacheKey, func() (any, error) {
		blob, err := s.backend.Load(ctx)
		if err != nil {
			zap.L().Warn("settings load failed; serving fallback", zap.Error(err))
			return s.fallback(), fmt.Errorf("%w: %w", ErrDegraded, err)
		}
		merged, err := Merge(Default(), blob)
		var skipped *SkippedKeysError
		switch {
		case errors.As(err, &skipped):
			zap.L().Warn("stored settings partly unreadable", zap.Strings("keys", skipped.Keys))
		case err != nil:
			zap.L().Error("stored settings unreadable; serving fallback", zap.Error(err))
			return s.fallback(), fmt.Errorf("%w: %w", ErrDegraded, err)
		}
		if s.cache != nil {
			s.cache.Add(cacheKey, merged)
		}
		return merged, nil
	})
	return v.(Settings).Clone(), err
}

// fallback is the last value read, or Default() when there is none.
func (s *Store) fallback() Settings {
	if s.cache != nil {
		if last, ok := s.cache.Peek(cacheKey); ok {
			return last
		}
	}
	return Default()
}

// Save persists st in full and reports success.
func (s *Store) Save(ctx context.Context, st Settings) bool {
	blob, err := Marshal(st)
	if err != nil {
		zap.L().Error("settings encode failed", zap.Error(err))
		metrics.SettingsSavesTotal.WithLabelValues("error").Inc()
		return false
	}
	if err := s.backend.Store(ctx, blob); err != nil {
		zap.L().Error("settings save failed", zap.Error(err))
		metrics.SettingsSavesTotal.WithLabelValues("error").Inc()
		return false
	}
	if s.cache != nil {
		s.cache.Add(cacheKey, st.Clone())
	}
	metrics.SettingsSavesTotal.WithLabelValues("ok").Inc()
	return true
}

// Patch merges partial over the current settings and saves the result.
// It returns the merged value and whether it was persisted.  A partial
// that is not a JSON object, or has a key of the wrong type, fails with
// database.ErrInvalid and saves nothing.  So does a read that degraded
// (ErrDegraded), since the result would replace the stored blob.
func (s *Store) Patch(ctx context.Context, partial []byte) (Settings, bool, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return cur, false, err
	}
	merged, err := Merge(cur, partial)
	if err != nil {
		return cur, false, err
	}
	return merged, s.Save(ctx, merged), nil
}

// Invalidate drops the cached value so the next Get reads the backend.
func (s *Store) Invalidate() {
	if s.cache != nil {
		s.cache.Remove(cacheKey)
	}
}
