// internal/user/user.go
//
// Site visitors who signed up through the newsletter or contact forms.
//
// Context
// -------
// Email is the natural key.  Two write paths exist on purpose:
//
//   - Create inserts unconditionally; a duplicate email is rejected by the
//     UNIQUE key and the driver error is returned as-is.
//   - Save inserts or updates by email in one statement.  Public sign-up
//     forms and the local-storage migration use Save.
//
// MarkContacted records the last event announcement a subscriber was sent.
// The outbound mailer itself lives outside this package.
package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/chefsite/internal/database"
)

// User mirrors one row in `users`.
type User struct {
	ID                     string     `db:"id"                        json:"id"`
	FullName               string     `db:"full_name"                 json:"full_name" validate:"required,max=255"`
	Email                  string     `db:"email"                     json:"email"     validate:"required,email,max=255"`
	Address                *string    `db:"address"                   json:"address,omitempty"`
	SubscribeNewsletter    bool       `db:"subscribe_newsletter"      json:"subscribe_newsletter"`
	SignupDate             time.Time  `db:"signup_date"               json:"signup_date"`
	LastContactedDate      *time.Time `db:"last_contacted_date"       json:"last_contacted_date,omitempty"`
	LastContactedEventID   *string    `db:"last_contacted_event_id"   json:"last_contacted_event_id,omitempty"`
	LastContactedEventName *string    `db:"last_contacted_event_name" json:"last_contacted_event_name,omitempty"`
}

// Patch is a partial user update.
type Patch struct {
	FullName            database.Field[string]  `json:"full_name"`
	Email               database.Field[string]  `json:"email"`
	Address             database.Field[*string] `json:"address"`
	SubscribeNewsletter database.Field[bool]    `json:"subscribe_newsletter"`
}

// Contact identifies the announcement a subscriber was sent.
type Contact struct {
	EventID   string
	EventName string
}

const columns = `id, full_name, email, address, subscribe_newsletter, signup_date,
	       last_contacted_date, last_contacted_event_id, last_contacted_event_name`

// Repository reads and writes `users`.
type Repository struct {
	p     *database.Provider
	now   func() time.Time
	newID func() string
}

// NewRepository binds a repository to p.
func NewRepository(p *database.Provider) *Repository {
	return &Repository{p: p, now: database.Now, newID: database.NewID}
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (r *Repository) list(ctx context.Context, op, q string, args ...any) ([]User, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, 16)
	if err := db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return out, nil
}

func (r *Repository) one(ctx context.Context, op, q string, arg any) (*User, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var u User
	if err := db.GetContext(ctx, &u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.p.Fail(op, err)
	}
	return &u, nil
}

// All returns every user, most recent sign-up first.
func (r *Repository) All(ctx context.Context) ([]User, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   users
	    ORDER  BY signup_date DESC`
	return r.list(ctx, "user.All", q)
}

// NewsletterSubscribers returns opted-in users, most recent first.
func (r *Repository) NewsletterSubscribers(ctx context.Context) ([]User, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   users
	    WHERE  subscribe_newsletter = TRUE
	    ORDER  BY signup_date DESC`
	return r.list(ctx, "user.NewsletterSubscribers", q)
}

// ByID returns one user or nil.
func (r *Repository) ByID(ctx context.Context, id string) (*User, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   users
	    WHERE  id = ?`
	return r.one(ctx, "user.ByID", q, id)
}

// ByEmail returns one user or nil.  Emails are compared lower-cased.
func (r *Repository) ByEmail(ctx context.Context, email string) (*User, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   users
	    WHERE  email = ?`
	return r.one(ctx, "user.ByEmail", q, normEmail(email))
}

func (r *Repository) prepare(u *User) error {
	u.Email = normEmail(u.Email)
	u.FullName = strings.TrimSpace(u.FullName)
	if err := database.Validate(u); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = r.newID()
	}
	if u.SignupDate.IsZero() {
		u.SignupDate = r.now()
	}
	return nil
}

// Create inserts u.  A duplicate email fails with the driver's error.
func (r *Repository) Create(ctx context.Context, u User) (*User, error) {
	const op = "user.Create"
	if err := r.prepare(&u); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	const q = `
	    INSERT INTO users (` + columns + `)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, q,
		u.ID, u.FullName, u.Email, u.Address, u.SubscribeNewsletter, u.SignupDate,
		u.LastContactedDate, u.LastContactedEventID, u.LastContactedEventName,
	); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return &u, nil
}

// Save inserts u, or updates the profile fields of the user that already
// has u.Email.  The existing id and signup date are kept.  It returns the
// stored row.
func (r *Repository) Save(ctx context.Context, u User) (*User, error) {
	const op = "user.Save"
	if err := r.prepare(&u); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	const q = `
	    INSERT INTO users (` + columns + `)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	    ON DUPLICATE KEY UPDATE
	           full_name            = VALUES(full_name),
	           address              = VALUES(address),
	           subscribe_newsletter = VALUES(subscribe_newsletter)`
	if _, err := db.ExecContext(ctx, q,
		u.ID, u.FullName, u.Email, u.Address, u.SubscribeNewsletter, u.SignupDate,
		u.LastContactedDate, u.LastContactedEventID, u.LastContactedEventName,
	); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return r.ByEmail(ctx, u.Email)
}

// Update applies p to user id.  Users carry no updated_at column.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (*User, error) {
	const op = "user.Update"
	if p.Email.Set {
		p.Email.Value = normEmail(p.Email.Value)
	}
	if p.FullName.Set && strings.TrimSpace(p.FullName.Value) == "" {
		return nil, r.p.Fail(op, database.Invalid("full name cannot be blank"))
	}
	if p.Email.Set {
		if err := database.Validate(&User{FullName: "-", Email: p.Email.Value}); err != nil {
			return nil, r.p.Fail(op, err)
		}
	}

	u := database.NewUpdate("users")
	database.Set(u, "full_name", p.FullName)
	database.Set(u, "email", p.Email)
	database.Set(u, "address", p.Address)
	database.Set(u, "subscribe_newsletter", p.SubscribeNewsletter)

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

// Delete removes user id and reports whether a row went away.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "user.Delete"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}

// MarkContacted stamps user id with the announcement c.  It reports
// whether the user exists.
func (r *Repository) MarkContacted(ctx context.Context, id string, c Contact) (bool, error) {
	const op = "user.MarkContacted"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	const q = `
	    UPDATE users
	       SET last_contacted_date = ?, last_contacted_event_id = ?, last_contacted_event_name = ?
	     WHERE id = ?`
	res, err := db.ExecContext(ctx, q, r.now(), c.EventID, c.EventName, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}

// MarkContactedAll runs MarkContacted for every id concurrently, in no
// particular order.  Updates that succeed stay applied when others fail.
// It returns how many users were stamped and the first error seen.
func (r *Repository) MarkContactedAll(ctx context.Context, ids []string, c Contact) (int, error) {
	var (
		g       errgroup.Group
		updated atomic.Int64
	)
	g.SetLimit(8)
	for _, id := range ids {
		g.Go(func() error {
			ok, err := r.MarkContacted(ctx, id, c)
			if ok {
				updated.Add(1)
			}
			return err
		})
	}
	err := g.Wait()
	n := int(updated.Load())
	if err != nil {
		zap.L().Warn("bulk contact stamp incomplete",
			zap.Int("updated", n), zap.Int("requested", len(ids)), zap.Error(err))
	}
	return n, err
}
