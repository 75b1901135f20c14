// internal/fallback/reader.go
//
// Read policy for the public site.
//
// Context
// -------
// Repositories report every failure.  Public pages would rather show
// something than an error page, so they read through a Reader:
//
//  1. Live      – the repository answered; the result is remembered as
//     the last good value for that operation.
//  2. Stale     – the repository failed; the last good value is served.
//  3. Fixture   – no last good value; static fixture content is served.
//
// Single-record lookups fall back only on connectivity errors.  A query
// error on a lookup reads as "not found" so a bad slug never shows fixture
// content that does not match it.
//
// Admin handlers do not use this package; writes and admin reads surface
// their errors.
package fallback

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/cache"
	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/fixtures"
	"github.com/yanizio/chefsite/internal/metrics"
)

// Source says where a result came from.
type Source string

const (
	Live    Source = "live"
	Stale   Source = "stale"
	Fixture Source = "fixture"
)

// Reader remembers the last good list per operation.  Safe for concurrent
// use.
type Reader struct {
	fx   *fixtures.Set
	last *cache.LRU[string, any]
}

// NewReader returns a Reader serving fx when nothing better is available.
// lastGood bounds how many distinct operations are remembered.
func NewReader(fx *fixtures.Set, lastGood int) *Reader {
	if fx == nil {
		fx = &fixtures.Set{}
	}
	if lastGood < 1 {
		lastGood = 64
	}
	return &Reader{fx: fx, last: cache.New[string, any](lastGood, 0)}
}

// Fixtures exposes the fixture set.
func (r *Reader) Fixtures() *fixtures.Set { return r.fx }

// List runs fetch under key.  It never fails.
func List[T any](ctx context.Context, r *Reader, key string,
	fetch func(context.Context) ([]T, error),
	fixture func(*fixtures.Set) []T,
) ([]T, Source) {
	got, err := fetch(ctx)
	if err == nil {
		r.last.Add(key, slices.Clone(got))
		return got, Live
	}

	if v, ok := r.last.Peek(key); ok {
		if prev, ok := v.([]T); ok {
			served(key, Stale, err)
			return slices.Clone(prev), Stale
		}
	}
	served(key, Fixture, err)
	out := slices.Clone(fixture(r.fx))
	if out == nil {
		out = []T{}
	}
	return out, Fixture
}

// One runs a single-record fetch under key.  It returns nil when the
// record does not exist, or when the store failed for a reason other than
// connectivity.
func One[T any](ctx context.Context, r *Reader, key string,
	fetch func(context.Context) (*T, error),
	fixture func(*fixtures.Set) *T,
) (*T, Source) {
	got, err := fetch(ctx)
	if err == nil {
		return got, Live
	}
	if !database.IsConnectivity(err) {
		zap.L().Warn("lookup failed; treating as not found",
			zap.String("op", key), zap.Error(err))
		return nil, Live
	}
	served(key, Fixture, err)
	return fixture(r.fx), Fixture
}

// served counts by operation only; keys carry caller-supplied arguments.
func served(key string, src Source, cause error) {
	op, _, _ := strings.Cut(key, ":")
	metrics.FallbacksServedTotal.WithLabelValues(op, string(src)).Inc()
	zap.L().Warn("serving fallback content",
		zap.String("op", key),
		zap.String("source", string(src)),
		zap.Error(cause))
}

// find returns a copy of the first element of list that matches.
func find[T any](list []T, match func(T) bool) *T {
	for _, v := range list {
		if match(v) {
			out := v
			return &out
		}
	}
	return nil
}

func filter[T any](list []T, keep func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
