// internal/recipe/recipe.go
//
// Published recipes.
//
// Context
// -------
// Recipes are addressed publicly by slug.  Ingredients, instructions, and
// tags are ordered string lists stored in JSON columns.  Imports (the
// local-storage migration, the admin "paste recipe" form) go through
// UpsertBySlug so re-running them updates instead of duplicating.
package recipe

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/slug"
)

// Difficulty is one of easy, medium, or hard.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Valid reports whether d is a known level.
func (d Difficulty) Valid() bool { return d == Easy || d == Medium || d == Hard }

// Recipe mirrors one row in `recipes`.
type Recipe struct {
	ID            string           `db:"id"             json:"id"`
	Title         string           `db:"title"          json:"title"          validate:"required,max=255"`
	Slug          string           `db:"slug"           json:"slug"           validate:"omitempty,max=255"`
	FeaturedImage string           `db:"featured_image" json:"featured_image" validate:"max=1024"`
	Description   string           `db:"description"    json:"description"`
	Ingredients   database.Strings `db:"ingredients"    json:"ingredients"`
	Instructions  database.Strings `db:"instructions"   json:"instructions"`
	PrepTime      string           `db:"prep_time"      json:"prep_time"      validate:"max=64"`
	CookTime      string           `db:"cook_time"      json:"cook_time"      validate:"max=64"`
	Servings      int              `db:"servings"       json:"servings"       validate:"gte=0"`
	Cuisine       string           `db:"cuisine"        json:"cuisine"        validate:"max=64"`
	Difficulty    Difficulty       `db:"difficulty"     json:"difficulty"`
	Tags          database.Strings `db:"tags"           json:"tags"`
	PublishedDate time.Time        `db:"published_date" json:"published_date"`
	Featured      bool             `db:"featured"       json:"featured"`
	CreatedAt     time.Time        `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"     json:"updated_at"`
}

// HasTag reports whether the recipe carries tag, ignoring case.
func (r Recipe) HasTag(tag string) bool { return r.Tags.Contains(tag) }

func (r *Recipe) normalise(now time.Time) error {
	if r.Difficulty == "" {
		r.Difficulty = Easy
	}
	if !r.Difficulty.Valid() {
		return database.Invalid("unknown difficulty %q", r.Difficulty)
	}
	if err := database.Validate(r); err != nil {
		return err
	}
	r.Slug = slug.OrDerive(r.Slug, r.Title)
	for _, l := range []*database.Strings{&r.Ingredients, &r.Instructions, &r.Tags} {
		if *l == nil {
			*l = database.Strings{}
		}
	}
	if r.PublishedDate.IsZero() {
		r.PublishedDate = now
	}
	return nil
}

// Patch is a partial recipe update.
type Patch struct {
	Title         database.Field[string]           `json:"title"`
	Slug          database.Field[string]           `json:"slug"`
	FeaturedImage database.Field[string]           `json:"featured_image"`
	Description   database.Field[string]           `json:"description"`
	Ingredients   database.Field[database.Strings] `json:"ingredients"`
	Instructions  database.Field[database.Strings] `json:"instructions"`
	PrepTime      database.Field[string]           `json:"prep_time"`
	CookTime      database.Field[string]           `json:"cook_time"`
	Servings      database.Field[int]              `json:"servings"`
	Cuisine       database.Field[string]           `json:"cuisine"`
	Difficulty    database.Field[Difficulty]       `json:"difficulty"`
	Tags          database.Field[database.Strings] `json:"tags"`
	PublishedDate database.Field[time.Time]        `json:"published_date"`
	Featured      database.Field[bool]             `json:"featured"`
}

func (p *Patch) check() error {
	if p.Title.Set && strings.TrimSpace(p.Title.Value) == "" {
		return database.Invalid("recipe title cannot be blank")
	}
	if p.Slug.Set {
		if strings.TrimSpace(p.Slug.Value) == "" {
			return database.Invalid("recipe slug cannot be blank")
		}
		p.Slug.Value = slug.Make(p.Slug.Value)
	}
	if p.Difficulty.Set && !p.Difficulty.Value.Valid() {
		return database.Invalid("unknown difficulty %q", p.Difficulty.Value)
	}
	if p.Servings.Set && p.Servings.Value < 0 {
		return database.Invalid("servings cannot be negative")
	}
	for _, l := range []*database.Field[database.Strings]{&p.Ingredients, &p.Instructions, &p.Tags} {
		if l.Set && l.Value == nil {
			l.Value = database.Strings{}
		}
	}
	return nil
}

const columns = `id, title, slug, featured_image, description, ingredients, instructions,
	       prep_time, cook_time, servings, cuisine, difficulty, tags, published_date,
	       featured, created_at, updated_at`

// Repository reads and writes `recipes`.
type Repository struct {
	p     *database.Provider
	now   func() time.Time
	newID func() string
}

// NewRepository binds a repository to p.
func NewRepository(p *database.Provider) *Repository {
	return &Repository{p: p, now: database.Now, newID: database.NewID}
}

func (r *Repository) list(ctx context.Context, op, q string, args ...any) ([]Recipe, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	out := make([]Recipe, 0, 16)
	if err := db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return out, nil
}

func (r *Repository) one(ctx context.Context, op, q string, arg any) (*Recipe, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var rec Recipe
	if err := db.GetContext(ctx, &rec, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.p.Fail(op, err)
	}
	return &rec, nil
}

// All returns every recipe, newest first.
func (r *Repository) All(ctx context.Context) ([]Recipe, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   recipes
	    ORDER  BY published_date DESC`
	return r.list(ctx, "recipe.All", q)
}

// Featured returns featured recipes, newest first.
func (r *Repository) Featured(ctx context.Context) ([]Recipe, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   recipes
	    WHERE  featured = TRUE
	    ORDER  BY published_date DESC`
	return r.list(ctx, "recipe.Featured", q)
}

// ByTag returns recipes whose tags contain tag exactly.
func (r *Repository) ByTag(ctx context.Context, tag string) ([]Recipe, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   recipes
	    WHERE  JSON_CONTAINS(tags, JSON_QUOTE(?))
	    ORDER  BY published_date DESC`
	return r.list(ctx, "recipe.ByTag", q, tag)
}

// ByID returns one recipe or nil.
func (r *Repository) ByID(ctx context.Context, id string) (*Recipe, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   recipes
	    WHERE  id = ?`
	return r.one(ctx, "recipe.ByID", q, id)
}

// BySlug returns one recipe or nil.
func (r *Repository) BySlug(ctx context.Context, s string) (*Recipe, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   recipes
	    WHERE  slug = ?`
	return r.one(ctx, "recipe.BySlug", q, s)
}

// Create inserts rec.  The slug is derived from the title when empty; a
// duplicate slug fails with the driver's error.
func (r *Repository) Create(ctx context.Context, rec Recipe) (*Recipe, error) {
	const op = "recipe.Create"
	now := r.now()
	if err := rec.normalise(now); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = r.newID()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now

	const q = `
	    INSERT INTO recipes (` + columns + `)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, q,
		rec.ID, rec.Title, rec.Slug, rec.FeaturedImage, rec.Description,
		rec.Ingredients, rec.Instructions, rec.PrepTime, rec.CookTime, rec.Servings,
		rec.Cuisine, string(rec.Difficulty), rec.Tags, rec.PublishedDate, rec.Featured,
		rec.CreatedAt, rec.UpdatedAt,
	); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return &rec, nil
}

// UpsertBySlug creates rec, or overwrites every content field of the
// recipe that already has rec's slug.  The existing id and created_at are
// kept.  created reports which path ran.
func (r *Repository) UpsertBySlug(ctx context.Context, rec Recipe) (out *Recipe, created bool, err error) {
	const op = "recipe.UpsertBySlug"
	now := r.now()
	if err := rec.normalise(now); err != nil {
		return nil, false, r.p.Fail(op, err)
	}
	cur, err := r.BySlug(ctx, rec.Slug)
	if err != nil {
		return nil, false, err
	}
	if cur == nil {
		out, err := r.Create(ctx, rec)
		return out, err == nil, err
	}

	db, err := r.p.Handle(op)
	if err != nil {
		return nil, false, err
	}
	const q = `
	    UPDATE recipes
	       SET title = ?, featured_image = ?, description = ?, ingredients = ?,
	           instructions = ?, prep_time = ?, cook_time = ?, servings = ?, cuisine = ?,
	           difficulty = ?, tags = ?, published_date = ?, featured = ?, updated_at = ?
	     WHERE id = ?`
	if _, err := db.ExecContext(ctx, q,
		rec.Title, rec.FeaturedImage, rec.Description, rec.Ingredients,
		rec.Instructions, rec.PrepTime, rec.CookTime, rec.Servings, rec.Cuisine,
		string(rec.Difficulty), rec.Tags, rec.PublishedDate, rec.Featured, now,
		cur.ID,
	); err != nil {
		return nil, false, r.p.Fail(op, err)
	}
	rec.ID, rec.CreatedAt, rec.UpdatedAt = cur.ID, cur.CreatedAt, now
	return &rec, false, nil
}

// Update applies p to recipe id.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (*Recipe, error) {
	const op = "recipe.Update"
	if err := p.check(); err != nil {
		return nil, r.p.Fail(op, err)
	}

	u := database.NewUpdate("recipes")
	database.Set(u, "title", p.Title)
	database.Set(u, "slug", p.Slug)
	database.Set(u, "featured_image", p.FeaturedImage)
	database.Set(u, "description", p.Description)
	database.Set(u, "ingredients", p.Ingredients)
	database.Set(u, "instructions", p.Instructions)
	database.Set(u, "prep_time", p.PrepTime)
	database.Set(u, "cook_time", p.CookTime)
	database.Set(u, "servings", p.Servings)
	database.Set(u, "cuisine", p.Cuisine)
	if p.Difficulty.Set {
		u.Add("difficulty", string(p.Difficulty.Value))
	}
	database.Set(u, "tags", p.Tags)
	database.Set(u, "published_date", p.PublishedDate)
	database.Set(u, "featured", p.Featured)
	u.Touch("updated_at", r.now())

	q, args, err := u.SQL("id", id)
	if err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, q, args...); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return r.ByID(ctx, id)
}

// Delete removes recipe id and reports whether a row went away.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "recipe.Delete"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}
