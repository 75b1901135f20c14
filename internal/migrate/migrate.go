// internal/migrate/migrate.go
//
// One-shot import of a localStorage export into the database.
//
// Context
// -------
// The site ran for a while with the admin screens writing straight to the
// browser.  Run replays six collections from such an export:
//
//	events, users, formSubmissions, recipes, blogPosts, siteSettings
//
// Workflow
// --------
//  1. Decode the collection as a list of raw records.  A missing or
//     unparseable collection is treated as empty.
//  2. Convert each record from its legacy camelCase shape.
//  3. Write it through the repository keyed on its natural key:
//     users by email, recipes and posts by slug, events and submissions by
//     a stable id derived from the legacy id.  Existing events and
//     submissions are skipped, the rest are upserted.
//  4. Settings are merged over the defaults and saved as the singleton.
//
// Notes
// -----
// • Replaying the same export twice changes nothing the second time.
// • Collections are independent: one failing does not stop the others.
// • A connectivity error aborts the current collection; a bad record is
//   counted and the rest of the collection continues.
// • DryRun performs the lookups but no writes.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/event"
	"github.com/yanizio/chefsite/internal/localstore"
	"github.com/yanizio/chefsite/internal/metrics"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/settings"
	"github.com/yanizio/chefsite/internal/slug"
	"github.com/yanizio/chefsite/internal/submission"
	"github.com/yanizio/chefsite/internal/user"
)

/*──────────────────────────── destinations ────────────────────────────────*/

type EventStore interface {
	ByID(ctx context.Context, id string) (*event.Event, error)
	Create(ctx context.Context, e event.Event) (*event.Event, error)
}

type UserStore interface {
	ByEmail(ctx context.Context, email string) (*user.User, error)
	Save(ctx context.Context, u user.User) (*user.User, error)
}

type SubmissionStore interface {
	ByID(ctx context.Context, id string) (*submission.Submission, error)
	Create(ctx context.Context, s submission.Submission) (*submission.Submission, error)
}

type RecipeStore interface {
	BySlug(ctx context.Context, s string) (*recipe.Recipe, error)
	UpsertBySlug(ctx context.Context, r recipe.Recipe) (*recipe.Recipe, bool, error)
}

type PostStore interface {
	BySlug(ctx context.Context, s string) (*blog.Post, error)
	UpsertBySlug(ctx context.Context, p blog.Post) (*blog.Post, bool, error)
}

type SettingsStore interface {
	Save(ctx context.Context, s settings.Settings) bool
}

// Migrator holds the destinations for each collection.
type Migrator struct {
	Events      EventStore
	Users       UserStore
	Submissions SubmissionStore
	Recipes     RecipeStore
	Posts       PostStore
	Settings    SettingsStore
}

// New wires a Migrator to the repositories behind p and to st.
func New(p *database.Provider, st *settings.Store) *Migrator {
	return &Migrator{
		Events:      event.NewRepository(p),
		Users:       user.NewRepository(p),
		Submissions: submission.NewRepository(p),
		Recipes:     recipe.NewRepository(p),
		Posts:       blog.NewRepository(p),
		Settings:    st,
	}
}

/*─────────────────────────────── report ───────────────────────────────────*/

// Options tunes a run.
type Options struct {
	DryRun bool
}

// Result is the outcome for one collection.  Count is the number of
// records that reached the store (or would have, on a dry run).
type Result struct {
	Collection string `json:"collection"`
	Success    bool   `json:"success"`
	Count      int    `json:"count"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Err        string `json:"error,omitempty"`
}

// Report is the outcome of a run, in collection order.
type Report struct {
	DryRun  bool     `json:"dry_run"`
	Results []Result `json:"results"`
}

// OK reports whether every collection succeeded.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if !res.Success {
			return false
		}
	}
	return true
}

// Get returns the result for collection.
func (r Report) Get(collection string) (Result, bool) {
	for _, res := range r.Results {
		if res.Collection == collection {
			return res, true
		}
	}
	return Result{}, false
}

type outcome int

const (
	created outcome = iota
	updated
	skipped
)

var outcomeLabel = map[outcome]string{created: "created", updated: "updated", skipped: "skipped"}

/*──────────────────────────────── run ─────────────────────────────────────*/

// Run replays every collection in snap.
func (m *Migrator) Run(ctx context.Context, snap *localstore.Snapshot, opts Options) Report {
	rep := Report{DryRun: opts.DryRun}

	rep.Results = append(rep.Results,
		replay(ctx, snap, localstore.KeyEvents, func(ctx context.Context, l legacyEvent) (outcome, error) {
			return m.event(ctx, l.event(), opts.DryRun)
		}),
		replay(ctx, snap, localstore.KeyUsers, func(ctx context.Context, l legacyUser) (outcome, error) {
			return m.user(ctx, l.user(), opts.DryRun)
		}),
		replay(ctx, snap, localstore.KeyFormSubmissions, func(ctx context.Context, l legacySubmission) (outcome, error) {
			return m.submission(ctx, l.submission(), opts.DryRun)
		}),
		replay(ctx, snap, localstore.KeyRecipes, func(ctx context.Context, l legacyRecipe) (outcome, error) {
			return m.recipe(ctx, l.recipe(), opts.DryRun)
		}),
		replay(ctx, snap, localstore.KeyBlogPosts, func(ctx context.Context, l legacyPost) (outcome, error) {
			return m.post(ctx, l.post(), opts.DryRun)
		}),
		m.settings(ctx, snap, opts.DryRun),
	)

	for _, res := range rep.Results {
		zap.L().Info("migrated collection",
			zap.String("collection", res.Collection),
			zap.Bool("success", res.Success),
			zap.Int("count", res.Count),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Bool("dry_run", opts.DryRun))
	}
	return rep
}

// replay decodes collection and feeds each record to apply.
func replay[L any](ctx context.Context, snap *localstore.Snapshot, collection string,
	apply func(context.Context, L) (outcome, error),
) Result {
	res := Result{Collection: collection, Success: true}

	var raws []json.RawMessage
	if _, err := snap.Decode(collection, &raws); err != nil {
		zap.L().Warn("collection unreadable; treating as empty",
			zap.String("collection", collection), zap.Error(err))
		return res
	}

	var errs []error
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		var l L
		if err := json.Unmarshal(raw, &l); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			metrics.MigratedRecordsTotal.WithLabelValues(collection, "failed").Inc()
			continue
		}
		out, err := apply(ctx, l)
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			metrics.MigratedRecordsTotal.WithLabelValues(collection, "failed").Inc()
			if database.IsConnectivity(err) {
				break
			}
			continue
		}
		res.tally(out)
		metrics.MigratedRecordsTotal.WithLabelValues(collection, outcomeLabel[out]).Inc()
	}

	if len(errs) > 0 {
		res.Success = false
		res.Err = errors.Join(errs...).Error()
	}
	return res
}

func (r *Result) tally(o outcome) {
	r.Count++
	switch o {
	case created:
		r.Created++
	case updated:
		r.Updated++
	case skipped:
		r.Skipped++
	}
}

/*──────────────────────────── per collection ──────────────────────────────*/

func (m *Migrator) event(ctx context.Context, e event.Event, dry bool) (outcome, error) {
	cur, err := m.Events.ByID(ctx, e.ID)
	if err != nil {
		return 0, err
	}
	if cur != nil {
		return skipped, nil
	}
	if dry {
		if e.Date.IsZero() {
			return 0, database.Invalid("event date is required")
		}
		return created, nil
	}
	_, err = m.Events.Create(ctx, e)
	return created, err
}

func (m *Migrator) user(ctx context.Context, u user.User, dry bool) (outcome, error) {
	cur, err := m.Users.ByEmail(ctx, u.Email)
	if err != nil {
		return 0, err
	}
	out := created
	if cur != nil {
		out = updated
	}
	if dry {
		return out, nil
	}
	_, err = m.Users.Save(ctx, u)
	return out, err
}

func (m *Migrator) submission(ctx context.Context, s submission.Submission, dry bool) (outcome, error) {
	if !s.Type.Valid() {
		return 0, database.Invalid("unknown submission type %q", s.Type)
	}
	cur, err := m.Submissions.ByID(ctx, s.ID)
	if err != nil {
		return 0, err
	}
	if cur != nil {
		return skipped, nil
	}
	if dry {
		return created, nil
	}
	_, err = m.Submissions.Create(ctx, s)
	return created, err
}

func (m *Migrator) recipe(ctx context.Context, r recipe.Recipe, dry bool) (outcome, error) {
	if dry {
		cur, err := m.Recipes.BySlug(ctx, slug.OrDerive(r.Slug, r.Title))
		if err != nil {
			return 0, err
		}
		if cur != nil {
			return updated, nil
		}
		return created, nil
	}
	_, isNew, err := m.Recipes.UpsertBySlug(ctx, r)
	if isNew {
		return created, err
	}
	return updated, err
}

func (m *Migrator) post(ctx context.Context, p blog.Post, dry bool) (outcome, error) {
	if dry {
		cur, err := m.Posts.BySlug(ctx, slug.OrDerive(p.Slug, p.Title))
		if err != nil {
			return 0, err
		}
		if cur != nil {
			return updated, nil
		}
		return created, nil
	}
	_, isNew, err := m.Posts.UpsertBySlug(ctx, p)
	if isNew {
		return created, err
	}
	return updated, err
}

func (m *Migrator) settings(ctx context.Context, snap *localstore.Snapshot, dry bool) Result {
	const collection = localstore.KeySiteSettings
	res := Result{Collection: collection, Success: true}

	raw, ok := snap.Raw(collection)
	if !ok {
		return res
	}
	merged, err := settings.Merge(settings.Default(), []byte(raw))
	var mistyped *settings.SkippedKeysError
	if err != nil && !errors.As(err, &mistyped) {
		zap.L().Warn("collection unreadable; treating as empty",
			zap.String("collection", collection), zap.Error(err))
		return res
	}
	if !dry && !m.Settings.Save(ctx, merged) {
		res.Success = false
		res.Failed = 1
		res.Err = "settings save failed"
		metrics.MigratedRecordsTotal.WithLabelValues(collection, "failed").Inc()
		return res
	}
	res.tally(updated)
	metrics.MigratedRecordsTotal.WithLabelValues(collection, "updated").Inc()
	// The rest of the blob was kept, but the operator has to re-enter
	// the skipped keys.
	if mistyped != nil {
		res.Success = false
		res.Err = mistyped.Error()
	}
	return res
}
