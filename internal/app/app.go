// internal/app/app.go
//
// Start-up wiring shared by the web server and the sitectl tool.
//
// Context
// -------
// Both binaries need the same three things from a loaded config: a store
// provider, the settings store on the configured backend, and (for the
// local backend) the snapshot that backs it.  A database that is not
// configured, or does not answer within the retry budget, is not fatal:
// the returned provider is database.Unavailable() and the site serves
// fixtures.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/config"
	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/localstore"
	"github.com/yanizio/chefsite/internal/settings"
	"github.com/yanizio/chefsite/internal/vault"
)

// secretTTL is how long resolved vault references stay cached.
const secretTTL = 10 * time.Minute

// Secrets returns the Vault secret resolver when VAULT_ADDR is set,
// otherwise nil.
func Secrets() (*vault.Secrets, error) {
	if !vault.Configured() {
		return nil, nil
	}
	return vault.New(secretTTL)
}

// LoadConfig loads config, resolving vault: references through s when it
// is non-nil.
func LoadConfig(ctx context.Context, s *vault.Secrets) (*config.Config, error) {
	var src config.SecretSource
	if s != nil {
		src = s
	}
	return config.Load(ctx, src)
}

// OpenStore connects to the configured database.
func OpenStore(ctx context.Context, cfg config.Database) *database.Provider {
	if cfg.DSN == "" {
		zap.L().Warn("no database configured; serving fixtures")
		return database.Unavailable()
	}
	dsn, err := database.NormalizeDSN(cfg.DSN, cfg.Password)
	if err != nil {
		zap.L().Error("database dsn rejected; serving fixtures", zap.Error(err))
		return database.Unavailable()
	}
	p, err := database.OpenWithOptions(ctx, dsn, database.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		Retries:         cfg.Retries,
		RetryBackoff:    cfg.RetryBackoff,
	})
	if err != nil {
		zap.L().Error("database unreachable; serving fixtures", zap.Error(err))
		return database.Unavailable()
	}
	if cfg.ApplySchema {
		if err := database.ApplySchema(ctx, p); err != nil {
			zap.L().Error("schema apply failed", zap.Error(err))
		}
	}
	return p
}

// SettingsStore builds the settings store on the configured backend.  The
// snapshot is nil for the sql backend.
func SettingsStore(cfg config.Settings, p *database.Provider) (*settings.Store, *localstore.Snapshot, error) {
	switch cfg.Backend {
	case "local":
		snap, err := localstore.Load(cfg.LocalPath)
		if err != nil {
			return nil, nil, err
		}
		return settings.NewStore(settings.NewLocalBackend(snap), cfg.CacheTTL), snap, nil
	case "sql", "":
		return settings.NewStore(settings.NewSQLBackend(p), cfg.CacheTTL), nil, nil
	}
	return nil, nil, fmt.Errorf("app: unknown settings backend %q", cfg.Backend)
}
