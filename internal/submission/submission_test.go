package submission

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/chefsite/internal/database"
)

var fixedNow = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

var cols = []string{
	"id", "type", "timestamp", "name", "email", "message",
	"contact_type", "event_date", "guests", "service_type",
	"amount", "custom_amount", "recipient_name", "recipient_email", "payment_app_username",
	"is_processed",
}

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	r := NewRepository(database.FromDB(sqlx.NewDb(db, "mysql")))
	r.now = func() time.Time { return fixedNow }
	r.newID = func() string { return "s-1" }
	return r, mock
}

func ptr[T any](v T) *T { return &v }

func TestCreateGiftNullsContactColumns(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO form_submissions (`)).
		WithArgs("s-1", "gift-certificate", fixedNow, "Dana", "dana@example.com", nil,
			nil, nil, nil, nil,
			"100", nil, "Sam", "sam@example.com", "@dana", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := r.Create(context.Background(), Submission{
		Type:  TypeGift,
		Name:  "Dana",
		Email: "dana@example.com",
		Gift: &GiftDetails{
			Amount:             ptr("100"),
			RecipientName:      ptr("Sam"),
			RecipientEmail:     ptr("sam@example.com"),
			PaymentAppUsername: ptr("@dana"),
		},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.Gift.IsProcessed {
		t.Fatalf("is_processed must default to false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateRejectsMixedGroups(t *testing.T) {
	r, _ := newRepo(t)

	_, err := r.Create(context.Background(), Submission{
		Type:    TypeContact,
		Name:    "Dana",
		Email:   "dana@example.com",
		Contact: &ContactDetails{Guests: ptr(4)},
		Gift:    &GiftDetails{Amount: ptr("50")},
	})
	if !errors.Is(err, database.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	_, err = r.Create(context.Background(), Submission{Type: "newsletter", Name: "x", Email: "x@example.com"})
	if !errors.Is(err, database.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown type, got %v", err)
	}
}

func TestByTypeMapsGroups(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM form_submissions WHERE type = ? ORDER BY timestamp DESC`)).
		WithArgs("contact").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"s-9", "contact", fixedNow, "Lee", "lee@example.com", "Dinner for 6?",
			"private-dinner", "2025-05-10", int64(6), "Tasting Menu",
			nil, nil, nil, nil, nil, false))

	got, err := r.ByType(context.Background(), TypeContact)
	if err != nil {
		t.Fatalf("ByType error: %v", err)
	}
	if len(got) != 1 || got[0].Gift != nil || got[0].Contact == nil {
		t.Fatalf("unexpected groups: %#v", got)
	}
	if g := got[0].Contact.Guests; g == nil || *g != 6 {
		t.Fatalf("guests = %v", g)
	}
}

func TestUpdateRejectsGiftFieldOnContact(t *testing.T) {
	r, mock := newRepo(t)

	var p Patch
	p.IsProcessed = database.Value(true)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM form_submissions WHERE id = ?`)).
		WithArgs("s-9").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"s-9", "contact", fixedNow, "Lee", "lee@example.com", nil,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, false))

	_, err := r.Update(context.Background(), "s-9", p)
	if !errors.Is(err, database.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateMessageOnly(t *testing.T) {
	r, mock := newRepo(t)

	var p Patch
	p.Message = database.Value[*string](nil)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE form_submissions SET message = ? WHERE id = ?`)).
		WithArgs(nil, "s-9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form_submissions WHERE id = ?`)).
		WithArgs("s-9").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"s-9", "contact", fixedNow, "Lee", "lee@example.com", nil,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, false))

	got, err := r.Update(context.Background(), "s-9", p)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Message != nil {
		t.Fatalf("message should be cleared")
	}
}

func TestUpdateRejectsInvalidEmail(t *testing.T) {
	r, mock := newRepo(t)

	for _, bad := range []string{"nope", "   "} {
		var p Patch
		p.Email = database.Value(bad)
		if _, err := r.Update(context.Background(), "s-9", p); !errors.Is(err, database.ErrInvalid) {
			t.Fatalf("email %q: expected ErrInvalid, got %v", bad, err)
		}
	}

	addr := "not-an-address"
	var p Patch
	p.RecipientEmail = database.Value(&addr)
	if _, err := r.Update(context.Background(), "s-9", p); !errors.Is(err, database.ErrInvalid) {
		t.Fatalf("recipient email: expected ErrInvalid, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no SQL should run: %v", err)
	}
}

func TestUpdateTrimsEmail(t *testing.T) {
	r, mock := newRepo(t)

	var p Patch
	p.Email = database.Value("  lee@example.com ")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE form_submissions SET email = ? WHERE id = ?`)).
		WithArgs("lee@example.com", "s-9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form_submissions WHERE id = ?`)).
		WithArgs("s-9").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"s-9", "contact", fixedNow, "Lee", "lee@example.com", nil,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, false))

	if _, err := r.Update(context.Background(), "s-9", p); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateEmptyPatch(t *testing.T) {
	r, mock := newRepo(t)
	if _, err := r.Update(context.Background(), "s-9", Patch{}); !errors.Is(err, database.ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no SQL should run: %v", err)
	}
}

func TestMarkProcessedOnlyGifts(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE form_submissions SET is_processed = ? WHERE id = ? AND type = ?`)).
		WithArgs(true, "s-9", "gift-certificate").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.MarkProcessed(context.Background(), "s-9", true)
	if err != nil || ok {
		t.Fatalf("MarkProcessed on a contact row: %v, %v", ok, err)
	}
}
