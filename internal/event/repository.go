// internal/event/repository.go
//
// Event repository.
//
// Workflow
// --------
//   - Reads return (value, error).  A missing row is nil, nil.  Errors are
//     logged once through the provider and wrapped with the operation
//     name; callers that prefer placeholder content use internal/fallback.
//   - Writes log and return the error unchanged in meaning.
//   - Update builds its SET list from the fields present in the Patch and
//     always stamps updated_at.
package event

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yanizio/chefsite/internal/database"
)

const columns = `id, title, description, date, time, location, latitude, longitude,
	       featured_image, gallery_images, category_id, created_at, updated_at`

// Repository reads and writes `events`.
type Repository struct {
	p     *database.Provider
	now   func() time.Time
	newID func() string
}

// NewRepository binds a repository to p.
func NewRepository(p *database.Provider) *Repository {
	return &Repository{p: p, now: database.Now, newID: database.NewID}
}

func (r *Repository) list(ctx context.Context, op, q string, args ...any) ([]Event, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, r.p.Fail(op, err)
	}
	out := make([]Event, 0, len(rows))
	for _, rw := range rows {
		out = append(out, *rw.event())
	}
	return out, nil
}

func (r *Repository) one(ctx context.Context, op, q string, args ...any) (*Event, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var rw row
	if err := db.GetContext(ctx, &rw, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.p.Fail(op, err)
	}
	return rw.event(), nil
}

// All returns every event, newest date first.
func (r *Repository) All(ctx context.Context) ([]Event, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   events
	    ORDER  BY date DESC, created_at DESC`
	return r.list(ctx, "event.All", q)
}

// ByID returns one event or nil.
func (r *Repository) ByID(ctx context.Context, id string) (*Event, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   events
	    WHERE  id = ?`
	return r.one(ctx, "event.ByID", q, id)
}

// ByCategory returns the events in one category, newest date first.
func (r *Repository) ByCategory(ctx context.Context, categoryID string) ([]Event, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   events
	    WHERE  category_id = ?
	    ORDER  BY date DESC, created_at DESC`
	return r.list(ctx, "event.ByCategory", q, categoryID)
}

// Upcoming returns up to limit events dated today or later, soonest
// first.  A limit < 1 means no limit.
func (r *Repository) Upcoming(ctx context.Context, limit int) ([]Event, error) {
	today := database.NewDate(r.now())
	if limit < 1 {
		const q = `
		    SELECT ` + columns + `
		    FROM   events
		    WHERE  date >= ?
		    ORDER  BY date ASC, created_at ASC`
		return r.list(ctx, "event.Upcoming", q, today)
	}
	const q = `
	    SELECT ` + columns + `
	    FROM   events
	    WHERE  date >= ?
	    ORDER  BY date ASC, created_at ASC
	    LIMIT  ?`
	return r.list(ctx, "event.Upcoming", q, today, limit)
}

// Create inserts e.  An empty ID is replaced with a fresh UUID; the
// timestamps are always set here.
func (r *Repository) Create(ctx context.Context, e Event) (*Event, error) {
	const op = "event.Create"
	if err := e.check(); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}

	if e.ID == "" {
		e.ID = r.newID()
	}
	if e.GalleryImages == nil {
		e.GalleryImages = database.Strings{}
	}
	now := r.now()
	e.CreatedAt, e.UpdatedAt = now, now
	lat, lng := coordArgs(e.Coordinates)

	const q = `
	    INSERT INTO events (` + columns + `)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, q,
		e.ID, e.Title, e.Description, e.Date, e.Time, e.Location, lat, lng,
		e.FeaturedImage, e.GalleryImages, e.CategoryID, e.CreatedAt, e.UpdatedAt,
	); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return &e, nil
}

// Update applies p to event id and returns the stored result, or nil when
// no such event exists.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (*Event, error) {
	const op = "event.Update"
	if err := p.check(); err != nil {
		return nil, r.p.Fail(op, err)
	}

	u := database.NewUpdate("events")
	database.Set(u, "title", p.Title)
	database.Set(u, "description", p.Description)
	database.Set(u, "date", p.Date)
	database.Set(u, "time", p.Time)
	database.Set(u, "location", p.Location)
	if p.Coordinates.Set {
		lat, lng := coordArgs(p.Coordinates.Value)
		u.Add("latitude", lat)
		u.Add("longitude", lng)
	}
	database.Set(u, "featured_image", p.FeaturedImage)
	if p.GalleryImages.Set && p.GalleryImages.Value == nil {
		p.GalleryImages.Value = database.Strings{}
	}
	database.Set(u, "gallery_images", p.GalleryImages)
	database.Set(u, "category_id", p.CategoryID)
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

// Delete removes event id and reports whether a row went away.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "event.Delete"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}
