package blog

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
	"id", "title", "slug", "featured_image", "excerpt", "content", "published_date",
	"tags", "category", "featured", "created_at", "updated_at",
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
	r.newID = func() string { return "b-1" }
	return r, mock
}

func TestCreateDerivesSlugAndDefaults(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO blog_posts (`)).
		WithArgs("b-1", "Why I Cook With Ramps", "why-i-cook-with-ramps", "", nil, "Every spring…",
			fixedNow, "[]", nil, false, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := r.Create(context.Background(), Post{Title: "Why I Cook With Ramps", Content: "Every spring…"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.Slug != "why-i-cook-with-ramps" || p.Tags == nil {
		t.Fatalf("unexpected post: %#v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestByCategory(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM blog_posts WHERE category = ? ORDER BY published_date DESC`)).
		WithArgs("Seasonal").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"b-1", "Ramps", "ramps", "", "Short.", "Long.", fixedNow,
			[]byte(`["spring"]`), "Seasonal", true, fixedNow, fixedNow))

	got, err := r.ByCategory(context.Background(), "Seasonal")
	if err != nil {
		t.Fatalf("ByCategory error: %v", err)
	}
	if len(got) != 1 || got[0].Category == nil || *got[0].Category != "Seasonal" || got[0].Excerpt == nil {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestUpdateClearsExcerpt(t *testing.T) {
	r, mock := newRepo(t)

	var p Patch
	p.Excerpt = database.Value[*string](nil)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE blog_posts SET excerpt = ?, updated_at = ? WHERE id = ?`)).
		WithArgs(nil, fixedNow, "b-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM blog_posts WHERE id = ?`)).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"b-1", "Ramps", "ramps", "", nil, "Long.", fixedNow,
			nil, nil, false, fixedNow, fixedNow))

	got, err := r.Update(context.Background(), "b-1", p)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Excerpt != nil || got.Content != "Long." {
		t.Fatalf("unexpected post: %#v", got)
	}
}

func TestUpdateRejectsBlankSlug(t *testing.T) {
	r, _ := newRepo(t)
	var p Patch
	p.Slug = database.Value("   ")
	if _, err := r.Update(context.Background(), "b-1", p); !errors.Is(err, database.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
