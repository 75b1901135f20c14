package event

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/slug"
)

const categoryColumns = `id, name, slug, description, color, created_at, updated_at`

// CategoryRepository reads and writes `event_categories`.
type CategoryRepository struct {
	p     *database.Provider
	now   func() time.Time
	newID func() string
}

// NewCategoryRepository binds a category repository to p.
func NewCategoryRepository(p *database.Provider) *CategoryRepository {
	return &CategoryRepository{p: p, now: database.Now, newID: database.NewID}
}

func (r *CategoryRepository) one(ctx context.Context, op, q string, arg any) (*Category, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var c Category
	if err := db.GetContext(ctx, &c, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.p.Fail(op, err)
	}
	return &c, nil
}

// All returns every category by name.
func (r *CategoryRepository) All(ctx context.Context) ([]Category, error) {
	const op = "event.CategoryAll"
	const q = `
	    SELECT ` + categoryColumns + `
	    FROM   event_categories
	    ORDER  BY name ASC`
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, 8)
	if err := db.SelectContext(ctx, &out, q); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return out, nil
}

// ByID returns one category or nil.
func (r *CategoryRepository) ByID(ctx context.Context, id string) (*Category, error) {
	const q = `
	    SELECT ` + categoryColumns + `
	    FROM   event_categories
	    WHERE  id = ?`
	return r.one(ctx, "event.CategoryByID", q, id)
}

// BySlug returns one category or nil.
func (r *CategoryRepository) BySlug(ctx context.Context, s string) (*Category, error) {
	const q = `
	    SELECT ` + categoryColumns + `
	    FROM   event_categories
	    WHERE  slug = ?`
	return r.one(ctx, "event.CategoryBySlug", q, s)
}

// Create inserts c.  The slug is derived from the name unless c.Slug is
// set.  A duplicate slug comes back as the driver's error.
func (r *CategoryRepository) Create(ctx context.Context, c Category) (*Category, error) {
	const op = "event.CategoryCreate"
	if err := database.Validate(&c); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}

	if c.ID == "" {
		c.ID = r.newID()
	}
	c.Slug = slug.OrDerive(c.Slug, c.Name)
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now

	const q = `
	    INSERT INTO event_categories (` + categoryColumns + `)
	    VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, q,
		c.ID, c.Name, c.Slug, c.Description, c.Color, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return &c, nil
}

// Update applies p to category id.
func (r *CategoryRepository) Update(ctx context.Context, id string, p CategoryPatch) (*Category, error) {
	const op = "event.CategoryUpdate"
	if p.Name.Set && strings.TrimSpace(p.Name.Value) == "" {
		return nil, r.p.Fail(op, database.Invalid("category name cannot be blank"))
	}
	if p.Color.Set && p.Color.Value != nil {
		if err := database.Validate(&Category{Name: "-", Color: p.Color.Value}); err != nil {
			return nil, r.p.Fail(op, err)
		}
	}

	u := database.NewUpdate("event_categories")
	database.Set(u, "name", p.Name)
	switch {
	case p.Slug.Set && strings.TrimSpace(p.Slug.Value) != "":
		u.Add("slug", slug.Make(p.Slug.Value))
	case p.Name.Set:
		u.Add("slug", slug.Make(p.Name.Value))
	}
	database.Set(u, "description", p.Description)
	database.Set(u, "color", p.Color)
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

// Delete clears category_id on every referencing event, then removes the
// category, in one transaction.  Events are never deleted with their
// category.
func (r *CategoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "event.CategoryDelete"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET category_id = NULL, updated_at = ? WHERE category_id = ?`,
		r.now(), id,
	); err != nil {
		return false, r.p.Fail(op, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM event_categories WHERE id = ?`, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	if err := tx.Commit(); err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}
