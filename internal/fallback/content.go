package fallback

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/event"
	"github.com/yanizio/chefsite/internal/fixtures"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/testimonial"
)

// Content is the public read surface: each method asks the repository and
// falls back as described in reader.go.
type Content struct {
	R            *Reader
	Events       *event.Repository
	Categories   *event.CategoryRepository
	Recipes      *recipe.Repository
	Posts        *blog.Repository
	Testimonials *testimonial.Repository

	now func() time.Time
}

// NewContent wires a Content over the given repositories.
func NewContent(r *Reader, ev *event.Repository, cat *event.CategoryRepository,
	rec *recipe.Repository, posts *blog.Repository, tm *testimonial.Repository,
) *Content {
	return &Content{
		R: r, Events: ev, Categories: cat, Recipes: rec, Posts: posts, Testimonials: tm,
		now: time.Now,
	}
}

/*──────────────────────────────── events ──────────────────────────────────*/

func (c *Content) AllEvents(ctx context.Context) ([]event.Event, Source) {
	return List(ctx, c.R, "event.All", c.Events.All,
		func(fx *fixtures.Set) []event.Event { return fx.Events })
}

func (c *Content) EventsByCategory(ctx context.Context, categoryID string) ([]event.Event, Source) {
	return List(ctx, c.R, "event.ByCategory:"+categoryID,
		func(ctx context.Context) ([]event.Event, error) { return c.Events.ByCategory(ctx, categoryID) },
		func(fx *fixtures.Set) []event.Event {
			return filter(fx.Events, func(e event.Event) bool {
				return e.CategoryID != nil && *e.CategoryID == categoryID
			})
		})
}

// UpcomingEvents mirrors event.Repository.Upcoming over the fixtures too.
func (c *Content) UpcomingEvents(ctx context.Context, limit int) ([]event.Event, Source) {
	return List(ctx, c.R, "event.Upcoming:"+strconv.Itoa(limit),
		func(ctx context.Context) ([]event.Event, error) { return c.Events.Upcoming(ctx, limit) },
		func(fx *fixtures.Set) []event.Event {
			today := database.NewDate(c.now())
			out := filter(fx.Events, func(e event.Event) bool { return !e.Date.Before(today.Time) })
			sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
			if limit > 0 && len(out) > limit {
				out = out[:limit]
			}
			return out
		})
}

func (c *Content) Event(ctx context.Context, id string) (*event.Event, Source) {
	return One(ctx, c.R, "event.ByID", func(ctx context.Context) (*event.Event, error) {
		return c.Events.ByID(ctx, id)
	}, func(fx *fixtures.Set) *event.Event {
		return find(fx.Events, func(e event.Event) bool { return e.ID == id })
	})
}

func (c *Content) AllCategories(ctx context.Context) ([]event.Category, Source) {
	return List(ctx, c.R, "event.CategoryAll", c.Categories.All,
		func(fx *fixtures.Set) []event.Category { return fx.Categories })
}

func (c *Content) CategoryBySlug(ctx context.Context, s string) (*event.Category, Source) {
	return One(ctx, c.R, "event.CategoryBySlug", func(ctx context.Context) (*event.Category, error) {
		return c.Categories.BySlug(ctx, s)
	}, func(fx *fixtures.Set) *event.Category {
		return find(fx.Categories, func(x event.Category) bool { return x.Slug == s })
	})
}

/*──────────────────────────────── recipes ─────────────────────────────────*/

func (c *Content) AllRecipes(ctx context.Context) ([]recipe.Recipe, Source) {
	return List(ctx, c.R, "recipe.All", c.Recipes.All,
		func(fx *fixtures.Set) []recipe.Recipe { return fx.Recipes })
}

func (c *Content) FeaturedRecipes(ctx context.Context) ([]recipe.Recipe, Source) {
	return List(ctx, c.R, "recipe.Featured", c.Recipes.Featured,
		func(fx *fixtures.Set) []recipe.Recipe {
			return filter(fx.Recipes, func(r recipe.Recipe) bool { return r.Featured })
		})
}

func (c *Content) RecipesByTag(ctx context.Context, tag string) ([]recipe.Recipe, Source) {
	return List(ctx, c.R, "recipe.ByTag:"+tag,
		func(ctx context.Context) ([]recipe.Recipe, error) { return c.Recipes.ByTag(ctx, tag) },
		func(fx *fixtures.Set) []recipe.Recipe {
			return filter(fx.Recipes, func(r recipe.Recipe) bool { return r.HasTag(tag) })
		})
}

func (c *Content) RecipeBySlug(ctx context.Context, s string) (*recipe.Recipe, Source) {
	return One(ctx, c.R, "recipe.BySlug", func(ctx context.Context) (*recipe.Recipe, error) {
		return c.Recipes.BySlug(ctx, s)
	}, func(fx *fixtures.Set) *recipe.Recipe {
		return find(fx.Recipes, func(r recipe.Recipe) bool { return r.Slug == s })
	})
}

/*───────────────────────────────── blog ───────────────────────────────────*/

func (c *Content) AllPosts(ctx context.Context) ([]blog.Post, Source) {
	return List(ctx, c.R, "blog.All", c.Posts.All,
		func(fx *fixtures.Set) []blog.Post { return fx.BlogPosts })
}

func (c *Content) FeaturedPosts(ctx context.Context) ([]blog.Post, Source) {
	return List(ctx, c.R, "blog.Featured", c.Posts.Featured,
		func(fx *fixtures.Set) []blog.Post {
			return filter(fx.BlogPosts, func(p blog.Post) bool { return p.Featured })
		})
}

func (c *Content) PostsByTag(ctx context.Context, tag string) ([]blog.Post, Source) {
	return List(ctx, c.R, "blog.ByTag:"+tag,
		func(ctx context.Context) ([]blog.Post, error) { return c.Posts.ByTag(ctx, tag) },
		func(fx *fixtures.Set) []blog.Post {
			return filter(fx.BlogPosts, func(p blog.Post) bool { return p.Tags.Contains(tag) })
		})
}

func (c *Content) PostsByCategory(ctx context.Context, category string) ([]blog.Post, Source) {
	return List(ctx, c.R, "blog.ByCategory:"+category,
		func(ctx context.Context) ([]blog.Post, error) { return c.Posts.ByCategory(ctx, category) },
		func(fx *fixtures.Set) []blog.Post {
			return filter(fx.BlogPosts, func(p blog.Post) bool {
				return p.Category != nil && *p.Category == category
			})
		})
}

func (c *Content) PostBySlug(ctx context.Context, s string) (*blog.Post, Source) {
	return One(ctx, c.R, "blog.BySlug", func(ctx context.Context) (*blog.Post, error) {
		return c.Posts.BySlug(ctx, s)
	}, func(fx *fixtures.Set) *blog.Post {
		return find(fx.BlogPosts, func(p blog.Post) bool { return p.Slug == s })
	})
}

/*───────────────────────────── testimonials ───────────────────────────────*/

func (c *Content) AllTestimonials(ctx context.Context) ([]testimonial.Testimonial, Source) {
	return List(ctx, c.R, "testimonial.All", c.Testimonials.All,
		func(fx *fixtures.Set) []testimonial.Testimonial { return fx.Testimonials })
}
