package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/chefsite/internal/config"
	"github.com/yanizio/chefsite/internal/database"
)

func TestOpenStoreWithoutDSNServesFixtures(t *testing.T) {
	p := OpenStore(context.Background(), config.Database{})
	assert.False(t, p.Available())
}

func TestOpenStoreRejectsBadDSN(t *testing.T) {
	p := OpenStore(context.Background(), config.Database{DSN: "not a dsn"})
	assert.False(t, p.Available())
}

func TestSettingsStoreLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ls.json")
	st, snap, err := SettingsStore(config.Settings{Backend: "local", LocalPath: path}, database.Unavailable())
	require.NoError(t, err)
	require.NotNil(t, snap)

	cur := st.Get(context.Background())
	cur.Title = "Chef Ana"
	require.True(t, st.Save(context.Background(), cur))
	assert.FileExists(t, path)
}

func TestSettingsStoreSQLAndUnknown(t *testing.T) {
	st, snap, err := SettingsStore(config.Settings{Backend: "sql"}, database.Unavailable())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NotNil(t, st)

	_, _, err = SettingsStore(config.Settings{Backend: "redis"}, database.Unavailable())
	assert.Error(t, err)
}

func TestSecretsWithoutVault(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	s, err := Secrets()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestLoadConfigWithoutVault(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"),
		[]byte("http:\n  listen_addr: \":8080\"\ndatabase:\n  password: \"vault:secret/chefsite/db#password\"\n"), 0o644))
	t.Setenv("CHEF_ROOT", root)

	// A nil resolver must reach config as a nil interface.
	_, err := LoadConfig(context.Background(), nil)
	assert.ErrorIs(t, err, config.ErrNoSecrets)
}
