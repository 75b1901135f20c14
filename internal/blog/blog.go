// Package blog stores the chef's journal posts.  Posts are addressed by
// slug; tags live in a JSON column and the optional category is a free
// label rather than a foreign key.
package blog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/slug"
)

// Post mirrors one row in `blog_posts`.
type Post struct {
	ID            string           `db:"id"             json:"id"`
	Title         string           `db:"title"          json:"title"          validate:"required,max=255"`
	Slug          string           `db:"slug"           json:"slug"           validate:"omitempty,max=255"`
	FeaturedImage string           `db:"featured_image" json:"featured_image" validate:"max=1024"`
	Excerpt       *string          `db:"excerpt"        json:"excerpt,omitempty"`
	Content       string           `db:"content"        json:"content"`
	PublishedDate time.Time        `db:"published_date" json:"published_date"`
	Tags          database.Strings `db:"tags"           json:"tags"`
	Category      *string          `db:"category"       json:"category,omitempty" validate:"omitempty,max=128"`
	Featured      bool             `db:"featured"       json:"featured"`
	CreatedAt     time.Time        `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"     json:"updated_at"`
}

func (p *Post) normalise(now time.Time) error {
	if err := database.Validate(p); err != nil {
		return err
	}
	p.Slug = slug.OrDerive(p.Slug, p.Title)
	if p.Tags == nil {
		p.Tags = database.Strings{}
	}
	if p.PublishedDate.IsZero() {
		p.PublishedDate = now
	}
	return nil
}

// Patch is a partial post update.
type Patch struct {
	Title         database.Field[string]           `json:"title"`
	Slug          database.Field[string]           `json:"slug"`
	FeaturedImage database.Field[string]           `json:"featured_image"`
	Excerpt       database.Field[*string]          `json:"excerpt"`
	Content       database.Field[string]           `json:"content"`
	PublishedDate database.Field[time.Time]        `json:"published_date"`
	Tags          database.Field[database.Strings] `json:"tags"`
	Category      database.Field[*string]          `json:"category"`
	Featured      database.Field[bool]             `json:"featured"`
}

const columns = `id, title, slug, featured_image, excerpt, content, published_date,
	       tags, category, featured, created_at, updated_at`

// Repository reads and writes `blog_posts`.
type Repository struct {
	p     *database.Provider
	now   func() time.Time
	newID func() string
}

// NewRepository binds a repository to p.
func NewRepository(p *database.Provider) *Repository {
	return &Repository{p: p, now: database.Now, newID: database.NewID}
}

func (r *Repository) list(ctx context.Context, op, q string, args ...any) ([]Post, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0, 16)
	if err := db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return out, nil
}

func (r *Repository) one(ctx context.Context, op, q string, arg any) (*Post, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var p Post
	if err := db.GetContext(ctx, &p, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.p.Fail(op, err)
	}
	return &p, nil
}

// All returns every post, newest first.
func (r *Repository) All(ctx context.Context) ([]Post, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   blog_posts
	    ORDER  BY published_date DESC`
	return r.list(ctx, "blog.All", q)
}

// Featured returns featured posts, newest first.
func (r *Repository) Featured(ctx context.Context) ([]Post, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   blog_posts
	    WHERE  featured = TRUE
	    ORDER  BY published_date DESC`
	return r.list(ctx, "blog.Featured", q)
}

// ByTag returns posts whose tags contain tag exactly.
func (r *Repository) ByTag(ctx context.Context, tag string) ([]Post, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   blog_posts
	    WHERE  JSON_CONTAINS(tags, JSON_QUOTE(?))
	    ORDER  BY published_date DESC`
	return r.list(ctx, "blog.ByTag", q, tag)
}

// ByCategory returns posts with the given category label.
func (r *Repository) ByCategory(ctx context.Context, category string) ([]Post, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   blog_posts
	    WHERE  category = ?
	    ORDER  BY published_date DESC`
	return r.list(ctx, "blog.ByCategory", q, category)
}

// ByID returns one post or nil.
func (r *Repository) ByID(ctx context.Context, id string) (*Post, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   blog_posts
	    WHERE  id = ?`
	return r.one(ctx, "blog.ByID", q, id)
}

// BySlug returns one post or nil.
func (r *Repository) BySlug(ctx context.Context, s string) (*Post, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   blog_posts
	    WHERE  slug = ?`
	return r.one(ctx, "blog.BySlug", q, s)
}

// Create inserts p.
func (r *Repository) Create(ctx context.Context, p Post) (*Post, error) {
	const op = "blog.Create"
	now := r.now()
	if err := p.normalise(now); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = r.newID()
	}
	p.CreatedAt, p.UpdatedAt = now, now

	const q = `
	    INSERT INTO blog_posts (` + columns + `)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, q,
		p.ID, p.Title, p.Slug, p.FeaturedImage, p.Excerpt, p.Content, p.PublishedDate,
		p.Tags, p.Category, p.Featured, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return &p, nil
}

// UpsertBySlug creates p or overwrites the post that already has its
// slug, keeping that post's id and created_at.
func (r *Repository) UpsertBySlug(ctx context.Context, p Post) (out *Post, created bool, err error) {
	const op = "blog.UpsertBySlug"
	now := r.now()
	if err := p.normalise(now); err != nil {
		return nil, false, r.p.Fail(op, err)
	}
	cur, err := r.BySlug(ctx, p.Slug)
	if err != nil {
		return nil, false, err
	}
	if cur == nil {
		out, err := r.Create(ctx, p)
		return out, err == nil, err
	}

	db, err := r.p.Handle(op)
	if err != nil {
		return nil, false, err
	}
	const q = `
	    UPDATE blog_posts
	       SET title = ?, featured_image = ?, excerpt = ?, content = ?, published_date = ?,
	           tags = ?, category = ?, featured = ?, updated_at = ?
	     WHERE id = ?`
	if _, err := db.ExecContext(ctx, q,
		p.Title, p.FeaturedImage, p.Excerpt, p.Content, p.PublishedDate,
		p.Tags, p.Category, p.Featured, now, cur.ID,
	); err != nil {
		return nil, false, r.p.Fail(op, err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = cur.ID, cur.CreatedAt, now
	return &p, false, nil
}

// Update applies patch to post id.
func (r *Repository) Update(ctx context.Context, id string, patch Patch) (*Post, error) {
	const op = "blog.Update"
	if patch.Title.Set && strings.TrimSpace(patch.Title.Value) == "" {
		return nil, r.p.Fail(op, database.Invalid("post title cannot be blank"))
	}
	if patch.Slug.Set {
		if strings.TrimSpace(patch.Slug.Value) == "" {
			return nil, r.p.Fail(op, database.Invalid("post slug cannot be blank"))
		}
		patch.Slug.Value = slug.Make(patch.Slug.Value)
	}
	if patch.Tags.Set && patch.Tags.Value == nil {
		patch.Tags.Value = database.Strings{}
	}

	u := database.NewUpdate("blog_posts")
	database.Set(u, "title", patch.Title)
	database.Set(u, "slug", patch.Slug)
	database.Set(u, "featured_image", patch.FeaturedImage)
	database.Set(u, "excerpt", patch.Excerpt)
	database.Set(u, "content", patch.Content)
	database.Set(u, "published_date", patch.PublishedDate)
	database.Set(u, "tags", patch.Tags)
	database.Set(u, "category", patch.Category)
	database.Set(u, "featured", patch.Featured)
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

// Delete removes post id and reports whether a row went away.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "blog.Delete"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}
