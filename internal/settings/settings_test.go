package settings

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/localstore"
)

type memBackend struct {
	mu      sync.Mutex
	blob    []byte
	loadErr error
	saveErr error
	loads   int
}

func (m *memBackend) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.blob, nil
}

func (m *memBackend) Store(_ context.Context, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.blob = append([]byte(nil), b...)
	return nil
}

func TestGetEmptyStoreIsDefault(t *testing.T) {
	s := NewStore(&memBackend{}, 0)
	assert.Equal(t, Default(), s.Get(context.Background()))
}

func TestMergeKeepsKeysMissingFromOldBlobs(t *testing.T) {
	// A blob written before theme and messageNotifications existed.
	old := []byte(`{"title":"Chef Ana","services":{"catering":"Weddings only."}}`)

	got, err := Merge(Default(), old)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "Chef Ana", got.Title)
	assert.Equal(t, "Weddings only.", got.Services.Catering)
	assert.Equal(t, def.Services.PrivateDinners, got.Services.PrivateDinners, "sibling keys survive")
	assert.Equal(t, def.Theme, got.Theme)
	assert.NotNil(t, got.MessageNotifications.EmailAddresses)
}

func TestMergeReplacesListsAndNormalisesNull(t *testing.T) {
	got, err := Merge(Default(), []byte(`{"availableServices":["Catering"],"giftCertificates":{"amounts":null}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Catering"}, got.AvailableServices)
	assert.Equal(t, []string{}, got.GiftCertificates.Amounts)
}

func TestMergeRejectsNonObject(t *testing.T) {
	base := Default()
	got, err := Merge(base, []byte(`["not","an","object"]`))
	assert.ErrorIs(t, err, database.ErrInvalid)
	assert.Equal(t, base, got)
}

func TestMergeSkipsOnlyMistypedKeys(t *testing.T) {
	// Older builds stored gift amounts as numbers.
	blob := []byte(`{"title":"Chef Ana","heroImage":"/a.png","giftCertificates":{"title":"Gifts","amounts":[50,100]}}`)

	got, err := Merge(Default(), blob)
	var skipped *SkippedKeysError
	require.ErrorAs(t, err, &skipped)
	assert.ErrorIs(t, err, database.ErrInvalid)
	assert.Equal(t, []string{"giftCertificates.amounts"}, skipped.Keys)

	assert.Equal(t, "Chef Ana", got.Title)
	assert.Equal(t, "/a.png", got.HeroImage)
	assert.Equal(t, "Gifts", got.GiftCertificates.Title, "sibling of the bad key survives")
	assert.Equal(t, Default().GiftCertificates.Amounts, got.GiftCertificates.Amounts)
}

func TestMergeSkipsObjectGivenAsScalar(t *testing.T) {
	got, err := Merge(Default(), []byte(`{"theme":"dark","footerText":"hi","instagram":null}`))
	var skipped *SkippedKeysError
	require.ErrorAs(t, err, &skipped)
	assert.Equal(t, []string{"theme"}, skipped.Keys)
	assert.Equal(t, "hi", got.FooterText)
	assert.Equal(t, Default().Theme, got.Theme)
	assert.Equal(t, Default().Instagram, got.Instagram)
}

func TestMergeDoesNotAliasBase(t *testing.T) {
	base := Default()
	got, err := Merge(base, []byte(`{"availableServices":["X","Y","Z","W"]}`))
	require.NoError(t, err)
	got.AvailableServices[0] = "changed"
	assert.Equal(t, "Private Dinners", base.AvailableServices[0])
}

func TestSaveThenGet(t *testing.T) {
	ctx := context.Background()
	be := &memBackend{}
	s := NewStore(be, time.Minute)

	st := Default()
	st.Title = "Chef Ana"
	st.MessageNotifications = MessageNotifications{Enabled: true, EmailAddresses: []string{"ana@example.com"}}
	require.True(t, s.Save(ctx, st))

	s.Invalidate()
	assert.Equal(t, st, s.Get(ctx))
}

func TestSaveReportsFalseWhenBackendFails(t *testing.T) {
	s := NewStore(&memBackend{saveErr: database.ErrUnavailable}, time.Minute)
	assert.False(t, s.Save(context.Background(), Default()))
}

func TestGetServesLastGoodOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	be := &memBackend{blob: []byte(`{"title":"Chef Ana"}`)}
	s := NewStore(be, time.Nanosecond)

	assert.Equal(t, "Chef Ana", s.Get(ctx).Title)

	time.Sleep(time.Millisecond)
	be.loadErr = errors.New("connection refused")
	assert.Equal(t, "Chef Ana", s.Get(ctx).Title, "stale value beats defaults")
}

func TestGetCaches(t *testing.T) {
	ctx := context.Background()
	be := &memBackend{}
	s := NewStore(be, time.Minute)
	s.Get(ctx)
	s.Get(ctx)
	assert.Equal(t, 1, be.loads)
}

func TestPatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&memBackend{}, time.Minute)

	got, ok, err := s.Patch(ctx, []byte(`{"theme":{"borderRadius":"large"}}`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "large", got.Theme.BorderRadius)
	assert.Equal(t, Default().Theme.Colors, got.Theme.Colors)

	_, ok, err = s.Patch(ctx, []byte(`42`))
	assert.ErrorIs(t, err, database.ErrInvalid)
	assert.False(t, ok)
}

func TestGetKeepsGoodKeysOfPartlyMistypedBlob(t *testing.T) {
	ctx := context.Background()
	be := &memBackend{blob: []byte(`{"title":"Chef Ana","instagram":{"username":"ana","postCount":"6"}}`)}
	s := NewStore(be, time.Minute)

	st, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chef Ana", st.Title)
	assert.Equal(t, "ana", st.Instagram.Username)
	assert.Equal(t, Default().Instagram.PostCount, st.Instagram.PostCount)

	got, ok, err := s.Patch(ctx, []byte(`{"footerText":"hi"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Chef Ana", got.Title)
	assert.Contains(t, string(be.blob), `"title":"Chef Ana"`)
	assert.Contains(t, string(be.blob), `"footerText":"hi"`)
}

func TestPatchRefusesDegradedRead(t *testing.T) {
	ctx := context.Background()
	stored := []byte(`{"title":"Chef Ana"}`)

	for name, be := range map[string]*memBackend{
		"backend down": {blob: stored, loadErr: database.ErrUnavailable},
		"blob corrupt": {blob: []byte(`"Chef Ana"`)},
	} {
		t.Run(name, func(t *testing.T) {
			before := append([]byte(nil), be.blob...)
			s := NewStore(be, time.Minute)

			_, err := s.Current(ctx)
			assert.ErrorIs(t, err, ErrDegraded)

			_, ok, err := s.Patch(ctx, []byte(`{"footerText":"hi"}`))
			assert.ErrorIs(t, err, ErrDegraded)
			assert.False(t, ok)
			assert.Equal(t, before, be.blob, "stored blob untouched")
		})
	}
}

func TestPatchRejectsMistypedKey(t *testing.T) {
	ctx := context.Background()
	be := &memBackend{blob: []byte(`{"title":"Chef Ana"}`)}
	s := NewStore(be, time.Minute)

	_, ok, err := s.Patch(ctx, []byte(`{"footerText":"hi","instagram":{"postCount":"six"}}`))
	assert.ErrorIs(t, err, database.ErrInvalid)
	assert.False(t, ok)
	assert.Equal(t, `{"title":"Chef Ana"}`, string(be.blob))
}

func TestThemeVariablesFallbacks(t *testing.T) {
	st := Default()
	st.Theme.BorderRadius = "huge"
	st.Theme.Spacing = ""
	st.Theme.ContentWidth = "wide"
	st.Theme.Fonts.Heading = "comic-sans"
	st.Theme.Colors.Primary = ""

	vars := ThemeVariables(st)
	assert.Equal(t, "0.5rem", vars["--border-radius"])
	assert.Equal(t, "1rem", vars["--spacing-unit"])
	assert.Equal(t, "1400px", vars["--content-width"])
	assert.Equal(t, fontStacks["system"], vars["--font-heading"])
	assert.Equal(t, Presets["classic"].Colors.Primary, vars["--color-primary"])

	css := CSS(vars)
	assert.True(t, strings.HasPrefix(css, ":root {\n  --border-radius: 0.5rem;\n"))
}

func TestApplyPreset(t *testing.T) {
	th, ok := ApplyPreset(Default().Theme, "Modern")
	assert.True(t, ok)
	assert.Equal(t, "modern", th.Preset)

	cur := Default().Theme
	th, ok = ApplyPreset(cur, "neon")
	assert.False(t, ok)
	assert.Equal(t, cur, th)
}

func TestNotificationRecipients(t *testing.T) {
	st := Default()
	st.MessageNotifications.EmailAddresses = []string{"Ana@Example.com", "ana@example.com", "not-an-email", " "}
	assert.Nil(t, NotificationRecipients(st), "disabled means nobody")

	st.MessageNotifications.Enabled = true
	assert.Equal(t, []string{"ana@example.com"}, NotificationRecipients(st))
}

func TestSQLBackend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	b := NewSQLBackend(database.FromDB(sqlx.NewDb(db, "mysql")))
	b.now = func() time.Time { return now }

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM site_settings WHERE `key` = ?")).
		WithArgs(RowKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO site_settings (`key`, value, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE")).
		WithArgs(RowKey, `{"title":"x"}`, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	blob, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, blob)
	require.NoError(t, b.Store(context.Background(), []byte(`{"title":"x"}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.json")
	s := NewStore(NewLocalBackend(localstore.New(path)), 0)

	st := Default()
	st.FooterText = "See you at the table."
	require.True(t, s.Save(ctx, st))

	snap, err := localstore.Load(path)
	require.NoError(t, err)
	again := NewStore(NewLocalBackend(snap), 0)
	assert.Equal(t, "See you at the table.", again.Get(ctx).FooterText)
}
