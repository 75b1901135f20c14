// internal/submission/submission.go
//
// Contact-form and gift-certificate submissions.
//
// Context
// -------
// Both public forms land in one table, `form_submissions`, discriminated by
// `type`.  Each type owns a group of columns:
//
//	contact           → contact_type, event_date, guests, service_type
//	gift-certificate  → amount, custom_amount, recipient_name,
//	                    recipient_email, payment_app_username, is_processed
//
// In Go the groups are two optional structs; exactly one is set and it
// must match Type.  The other group's columns are written as NULL.
// is_processed only means something for gift certificates, so
// MarkProcessed and patches touching it refuse contact submissions.
package submission

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/yanizio/chefsite/internal/database"
)

// Type selects the field group a submission carries.
type Type string

const (
	TypeContact Type = "contact"
	TypeGift    Type = "gift-certificate"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool { return t == TypeContact || t == TypeGift }

// ContactDetails is the contact-form group.
type ContactDetails struct {
	ContactType *string `json:"contact_type,omitempty" yaml:"contact_type"`
	EventDate   *string `json:"event_date,omitempty"   yaml:"event_date"`
	Guests      *int    `json:"guests,omitempty"       yaml:"guests"       validate:"omitempty,gte=0"`
	ServiceType *string `json:"service_type,omitempty" yaml:"service_type"`
}

// GiftDetails is the gift-certificate group.
type GiftDetails struct {
	Amount             *string  `json:"amount,omitempty"               yaml:"amount"`
	CustomAmount       *float64 `json:"custom_amount,omitempty"        yaml:"custom_amount"        validate:"omitempty,gt=0"`
	RecipientName      *string  `json:"recipient_name,omitempty"       yaml:"recipient_name"`
	RecipientEmail     *string  `json:"recipient_email,omitempty"      yaml:"recipient_email"      validate:"omitempty,email"`
	PaymentAppUsername *string  `json:"payment_app_username,omitempty" yaml:"payment_app_username"`
	IsProcessed        bool     `json:"is_processed"                   yaml:"is_processed"`
}

// Submission is one form submission.
type Submission struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"      validate:"required"`
	Timestamp time.Time       `json:"timestamp"`
	Name      string          `json:"name"      validate:"required,max=255"`
	Email     string          `json:"email"     validate:"required,email,max=255"`
	Message   *string         `json:"message,omitempty"`
	Contact   *ContactDetails `json:"contact,omitempty"`
	Gift      *GiftDetails    `json:"gift,omitempty"`
}

func (s *Submission) check() error {
	if !s.Type.Valid() {
		return database.Invalid("unknown submission type %q", s.Type)
	}
	if err := database.Validate(s); err != nil {
		return err
	}
	switch s.Type {
	case TypeContact:
		if s.Gift != nil {
			return database.Invalid("contact submission cannot carry gift fields")
		}
		if s.Contact == nil {
			s.Contact = &ContactDetails{}
		}
	case TypeGift:
		if s.Contact != nil {
			return database.Invalid("gift certificate cannot carry contact fields")
		}
		if s.Gift == nil {
			s.Gift = &GiftDetails{}
		}
	}
	return nil
}

// row is the flat table shape.
type row struct {
	ID                 string          `db:"id"`
	Type               Type            `db:"type"`
	Timestamp          time.Time       `db:"timestamp"`
	Name               string          `db:"name"`
	Email              string          `db:"email"`
	Message            *string         `db:"message"`
	ContactType        *string         `db:"contact_type"`
	EventDate          *string         `db:"event_date"`
	Guests             *int            `db:"guests"`
	ServiceType        *string         `db:"service_type"`
	Amount             *string         `db:"amount"`
	CustomAmount       sql.NullFloat64 `db:"custom_amount"`
	RecipientName      *string         `db:"recipient_name"`
	RecipientEmail     *string         `db:"recipient_email"`
	PaymentAppUsername *string         `db:"payment_app_username"`
	IsProcessed        bool            `db:"is_processed"`
}

func (r row) submission() Submission {
	s := Submission{
		ID:        r.ID,
		Type:      r.Type,
		Timestamp: r.Timestamp,
		Name:      r.Name,
		Email:     r.Email,
		Message:   r.Message,
	}
	switch r.Type {
	case TypeGift:
		g := &GiftDetails{
			Amount:             r.Amount,
			RecipientName:      r.RecipientName,
			RecipientEmail:     r.RecipientEmail,
			PaymentAppUsername: r.PaymentAppUsername,
			IsProcessed:        r.IsProcessed,
		}
		if r.CustomAmount.Valid {
			v := r.CustomAmount.Float64
			g.CustomAmount = &v
		}
		s.Gift = g
	default:
		s.Contact = &ContactDetails{
			ContactType: r.ContactType,
			EventDate:   r.EventDate,
			Guests:      r.Guests,
			ServiceType: r.ServiceType,
		}
	}
	return s
}

// args flattens s into column order.
func (s Submission) args() []any {
	var c ContactDetails
	if s.Contact != nil {
		c = *s.Contact
	}
	var g GiftDetails
	if s.Gift != nil {
		g = *s.Gift
	}
	return []any{
		s.ID, string(s.Type), s.Timestamp, s.Name, s.Email, s.Message,
		c.ContactType, c.EventDate, c.Guests, c.ServiceType,
		g.Amount, g.CustomAmount, g.RecipientName, g.RecipientEmail, g.PaymentAppUsername,
		g.IsProcessed,
	}
}

const columns = `id, type, timestamp, name, email, message,
	       contact_type, event_date, guests, service_type,
	       amount, custom_amount, recipient_name, recipient_email, payment_app_username,
	       is_processed`

// Patch is a partial submission update.  Type cannot change.
type Patch struct {
	Name    database.Field[string]  `json:"name"`
	Email   database.Field[string]  `json:"email"`
	Message database.Field[*string] `json:"message"`

	ContactType database.Field[*string] `json:"contact_type"`
	EventDate   database.Field[*string] `json:"event_date"`
	Guests      database.Field[*int]    `json:"guests"`
	ServiceType database.Field[*string] `json:"service_type"`

	Amount             database.Field[*string]  `json:"amount"`
	CustomAmount       database.Field[*float64] `json:"custom_amount"`
	RecipientName      database.Field[*string]  `json:"recipient_name"`
	RecipientEmail     database.Field[*string]  `json:"recipient_email"`
	PaymentAppUsername database.Field[*string]  `json:"payment_app_username"`
	IsProcessed        database.Field[bool]     `json:"is_processed"`
}

func (p Patch) touchesContact() bool {
	return p.ContactType.Set || p.EventDate.Set || p.Guests.Set || p.ServiceType.Set
}

func (p Patch) touchesGift() bool {
	return p.Amount.Set || p.CustomAmount.Set || p.RecipientName.Set ||
		p.RecipientEmail.Set || p.PaymentAppUsername.Set || p.IsProcessed.Set
}

// Repository reads and writes `form_submissions`.
type Repository struct {
	p     *database.Provider
	now   func() time.Time
	newID func() string
}

// NewRepository binds a repository to p.
func NewRepository(p *database.Provider) *Repository {
	return &Repository{p: p, now: database.Now, newID: database.NewID}
}

func (r *Repository) list(ctx context.Context, op, q string, args ...any) ([]Submission, error) {
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, r.p.Fail(op, err)
	}
	out := make([]Submission, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.submission())
	}
	return out, nil
}

// All returns every submission, newest first.
func (r *Repository) All(ctx context.Context) ([]Submission, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   form_submissions
	    ORDER  BY timestamp DESC`
	return r.list(ctx, "submission.All", q)
}

// ByType returns the submissions of one type, newest first.
func (r *Repository) ByType(ctx context.Context, t Type) ([]Submission, error) {
	if !t.Valid() {
		return nil, database.Invalid("unknown submission type %q", t)
	}
	const q = `
	    SELECT ` + columns + `
	    FROM   form_submissions
	    WHERE  type = ?
	    ORDER  BY timestamp DESC`
	return r.list(ctx, "submission.ByType", q, string(t))
}

// ByID returns one submission or nil.
func (r *Repository) ByID(ctx context.Context, id string) (*Submission, error) {
	const op = "submission.ByID"
	const q = `
	    SELECT ` + columns + `
	    FROM   form_submissions
	    WHERE  id = ?`
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	var rw row
	if err := db.GetContext(ctx, &rw, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.p.Fail(op, err)
	}
	s := rw.submission()
	return &s, nil
}

// Create inserts s.  An empty Timestamp becomes now; IsProcessed starts
// false unless the caller is replaying an already processed certificate.
func (r *Repository) Create(ctx context.Context, s Submission) (*Submission, error) {
	const op = "submission.Create"
	s.Email = strings.TrimSpace(s.Email)
	if err := s.check(); err != nil {
		return nil, r.p.Fail(op, err)
	}
	db, err := r.p.Handle(op)
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = r.newID()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = r.now()
	}

	const q = `
	    INSERT INTO form_submissions (` + columns + `)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, q, s.args()...); err != nil {
		return nil, r.p.Fail(op, err)
	}
	return &s, nil
}

// Update applies p to submission id.  Fields from the other type's group
// are rejected with ErrInvalid.  Returns nil when id does not exist.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (*Submission, error) {
	const op = "submission.Update"
	if p.Email.Set {
		p.Email.Value = strings.TrimSpace(p.Email.Value)
		if err := database.ValidateVar("email", p.Email.Value, "required,email,max=255"); err != nil {
			return nil, r.p.Fail(op, err)
		}
	}
	if p.RecipientEmail.Set && p.RecipientEmail.Value != nil {
		v := strings.TrimSpace(*p.RecipientEmail.Value)
		if err := database.ValidateVar("recipient_email", v, "omitempty,email"); err != nil {
			return nil, r.p.Fail(op, err)
		}
		p.RecipientEmail.Value = &v
	}

	u := database.NewUpdate("form_submissions")
	database.Set(u, "name", p.Name)
	database.Set(u, "email", p.Email)
	database.Set(u, "message", p.Message)
	database.Set(u, "contact_type", p.ContactType)
	database.Set(u, "event_date", p.EventDate)
	database.Set(u, "guests", p.Guests)
	database.Set(u, "service_type", p.ServiceType)
	database.Set(u, "amount", p.Amount)
	database.Set(u, "custom_amount", p.CustomAmount)
	database.Set(u, "recipient_name", p.RecipientName)
	database.Set(u, "recipient_email", p.RecipientEmail)
	database.Set(u, "payment_app_username", p.PaymentAppUsername)
	database.Set(u, "is_processed", p.IsProcessed)
	if u.Empty() {
		return nil, r.p.Fail(op, database.ErrNothingToUpdate)
	}
	if p.Name.Set && strings.TrimSpace(p.Name.Value) == "" {
		return nil, r.p.Fail(op, database.Invalid("name cannot be blank"))
	}

	if p.touchesContact() || p.touchesGift() {
		cur, err := r.ByID(ctx, id)
		if err != nil || cur == nil {
			return nil, err
		}
		if cur.Type == TypeContact && p.touchesGift() {
			return nil, r.p.Fail(op, database.Invalid("gift fields on a contact submission"))
		}
		if cur.Type == TypeGift && p.touchesContact() {
			return nil, r.p.Fail(op, database.Invalid("contact fields on a gift certificate"))
		}
	}

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

// MarkProcessed flags a gift certificate as fulfilled.  It reports false
// when no gift certificate has that id.
func (r *Repository) MarkProcessed(ctx context.Context, id string, processed bool) (bool, error) {
	const op = "submission.MarkProcessed"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	const q = `
	    UPDATE form_submissions
	       SET is_processed = ?
	     WHERE id = ? AND type = ?`
	res, err := db.ExecContext(ctx, q, processed, id, string(TypeGift))
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}

// Delete removes submission id and reports whether a row went away.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "submission.Delete"
	db, err := r.p.Handle(op)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM form_submissions WHERE id = ?`, id)
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.p.Fail(op, err)
	}
	return n > 0, nil
}
