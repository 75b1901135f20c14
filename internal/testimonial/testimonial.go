// Package testimonial stores guest quotes shown on the home page.
package testimonial

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/yanizio/chefsite/internal/database"
)

// Testimonial mirrors one row in `testimonials`.
type Testimonial struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name" validate:"required,max=255"`
	Text      string    `db:"text"       json:"text" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Patch is a partial testimonial update.
type Patch struct {
	Name database.Field[string] `json:"name"`
	Text database.Field[string] `json:"text"`
}

// Repository reads and writes `testimonials`.
type Repository struct {
	p     *database.Provider
	now   func() time.Time
	newID func() string
}

// NewRepository binds a repository to p.
func NewRepository(p *database.Provider) *Repository {
	return &Repository{p: p, now: database.Now, newID: database.NewID}
}

// All returns every testimonial, newest first.
func (r *Repository) All(ctx context.Context) ([]Testimonial, error) {
	const op = "testimonial.All"
	const q = `
	    SELECT id, name, text, created_at
	    FROM   testimonials
	    ORDER  BY created_at DESC`
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	out := make([]Testimonial, 0, 8)
	if err := db.SelectContext(ctx, &out, q); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return out, nil
}

// ByID returns one testimonial or nil.
func (r *Repository) ByID(ctx context.Context, id string) (*Testimonial, error) {
	const op = "testimonial.ByID"
	const q = `
	    SELECT id, name, text, created_at
	    FROM   testimonials
	    WHERE  id = ?`
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var t Testimonial
	if err := db.GetContext(ctx, &t, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.p.Fail(op, err)
	}
	return &t, nil
}

// Create inserts t.
func (r *Repository) Create(ctx context.Context, t Testimonial) (*Testimonial, error) {
	const op = "testimonial.Create"
	t.Name, t.Text = strings.TrimSpace(t.Name), strings.TrimSpace(t.Text)
	if err := database.Validate(&t); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = r.newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	const q = `INSERT INTO testimonials (id, name, text, created_at) VALUES (?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, q, t.ID, t.Name, t.Text, t.CreatedAt); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return &t, nil
}

// Update applies p to testimonial id.  There is no updated_at column.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (*Testimonial, error) {
	const op = "testimonial.Update"
	if (p.Name.Set && strings.TrimSpace(p.Name.Value) == "") ||
		(p.Text.Set && strings.TrimSpace(p.Text.Value) == "") {
		return nil, r.p.Fail(op, database.Invalid("testimonial name and text cannot be blank"))
	}
	u := database.NewUpdate("testimonials")
	database.Set(u, "name", p.Name)
	database.Set(u, "text", p.Text)

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

// Delete removes testimonial id and reports whether a row went away.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "testimonial.Delete"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM testimonials WHERE id = ?`, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}
