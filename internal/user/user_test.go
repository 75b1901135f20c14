package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/chefsite/internal/database"
)

var fixedNow = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

var userCols = []string{
	"id", "full_name", "email", "address", "subscribe_newsletter", "signup_date",
	"last_contacted_date", "last_contacted_event_id", "last_contacted_event_name",
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
	r.newID = func() string { return "u-1" }
	return r, mock
}

func TestNewsletterSubscribers(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM users WHERE subscribe_newsletter = TRUE ORDER BY signup_date DESC`,
	)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-2", "Bea", "bea@example.com", nil, true, fixedNow, nil, nil, nil).
			AddRow("u-1", "Al", "al@example.com", nil, true, fixedNow.Add(-time.Hour), nil, nil, nil))

	got, err := r.NewsletterSubscribers(context.Background())
	if err != nil {
		t.Fatalf("NewsletterSubscribers error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "u-2" || !got[1].SubscribeNewsletter {
		t.Fatalf("unexpected result: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateSurfacesDuplicateEmail(t *testing.T) {
	r, mock := newRepo(t)

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'al@example.com' for key 'uq_users_email'"}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (`)).
		WithArgs("u-1", "Al", "al@example.com", nil, false, fixedNow, nil, nil, nil).
		WillReturnError(dup)

	_, err := r.Create(context.Background(), User{FullName: "Al", Email: " AL@example.com "})
	if !database.IsDuplicate(err) {
		t.Fatalf("expected duplicate-key error, got %v", err)
	}
}

func TestSaveUpsertsByEmail(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`ON DUPLICATE KEY UPDATE`)).
		WithArgs("u-1", "Al Baker", "al@example.com", nil, true, fixedNow, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = ?`)).
		WithArgs("al@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-original", "Al Baker", "al@example.com", nil, true, fixedNow.Add(-72*time.Hour), nil, nil, nil))

	got, err := r.Save(context.Background(), User{FullName: "Al Baker", Email: "al@example.com", SubscribeNewsletter: true})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if got.ID != "u-original" {
		t.Fatalf("Save should keep the existing id, got %q", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateHasNoTimestamp(t *testing.T) {
	r, mock := newRepo(t)

	var p Patch
	p.SubscribeNewsletter = database.Value(false)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET subscribe_newsletter = ? WHERE id = ?`)).
		WithArgs(false, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = ?`)).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "Al", "al@example.com", "1 Main St", false, fixedNow, nil, nil, nil))

	got, err := r.Update(context.Background(), "u-1", p)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.SubscribeNewsletter || got.Address == nil || *got.Address != "1 Main St" {
		t.Fatalf("unexpected user: %#v", got)
	}
}

func TestUpdateEmptyPatch(t *testing.T) {
	r, _ := newRepo(t)
	if _, err := r.Update(context.Background(), "u-1", Patch{}); !errors.Is(err, database.ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
}

func TestMarkContactedAllKeepsPartialProgress(t *testing.T) {
	r, mock := newRepo(t)
	mock.MatchExpectationsInOrder(false)

	const q = `UPDATE users SET last_contacted_date = ?, last_contacted_event_id = ?, last_contacted_event_name = ? WHERE id = ?`
	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs(fixedNow, "ev-1", "Tasting Menu", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs(fixedNow, "ev-1", "Tasting Menu", "u-2").
		WillReturnError(errors.New("deadlock"))
	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs(fixedNow, "ev-1", "Tasting Menu", "u-3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := r.MarkContactedAll(context.Background(), []string{"u-1", "u-2", "u-3"},
		Contact{EventID: "ev-1", EventName: "Tasting Menu"})
	if err == nil {
		t.Fatalf("expected the failed update to surface")
	}
	if n != 2 {
		t.Fatalf("updated = %d, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
