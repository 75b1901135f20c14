package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/localstore"
)

// RowKey is the `key` of the singleton row in site_settings.
const RowKey = "site_settings"

// SQLBackend keeps the blob in the site_settings table.
type SQLBackend struct {
	p   *database.Provider
	now func() time.Time
}

// NewSQLBackend binds a backend to p.
func NewSQLBackend(p *database.Provider) *SQLBackend {
	return &SQLBackend{p: p, now: database.Now}
}

// Load returns the stored blob, or nil when the row does not exist.
func (b *SQLBackend) Load(ctx context.Context) ([]byte, error) {
	const op = "settings.Load"
	db, err := b.p.Handle(op)
	if err != nil {
		return nil, err
	}
	const q = `
	    SELECT  value
	    FROM    site_settings
	    WHERE   ` + "`key`" + ` = ?`
	var blob []byte
	if err := db.GetContext(ctx, &blob, q, RowKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, b.p.Fail(op, err)
	}
	return blob, nil
}

// Store upserts the singleton row.
func (b *SQLBackend) Store(ctx context.Context, blob []byte) error {
	const op = "settings.Store"
	db, err := b.p.Handle(op)
	if err != nil {
		return err
	}
	const q = `
	    INSERT INTO site_settings (` + "`key`" + `, value, updated_at)
	    VALUES (?, ?, ?)
	    ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`
	if _, err := db.ExecContext(ctx, q, RowKey, string(blob), b.now()); err != nil {
		return b.p.Fail(op, err)
	}
	return nil
}

// LocalBackend keeps the blob under the siteSettings key of a local
// snapshot, the way the admin screens did before the database existed.
type LocalBackend struct {
	snap *localstore.Snapshot
}

// NewLocalBackend wraps snap.
func NewLocalBackend(snap *localstore.Snapshot) *LocalBackend {
	return &LocalBackend{snap: snap}
}

// Load returns the stored blob, or nil when the key is absent.
func (b *LocalBackend) Load(context.Context) ([]byte, error) {
	raw, ok := b.snap.Raw(localstore.KeySiteSettings)
	if !ok {
		return nil, nil
	}
	return []byte(raw), nil
}

// Store writes the blob and flushes the snapshot to disk.
func (b *LocalBackend) Store(_ context.Context, blob []byte) error {
	if err := b.snap.Set(localstore.KeySiteSettings, json.RawMessage(blob)); err != nil {
		return err
	}
	return b.snap.Save()
}
