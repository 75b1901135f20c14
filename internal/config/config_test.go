package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/chefsite/internal/vault"
)

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644))
	return root
}

type fakeSecrets map[string]string

func (f fakeSecrets) Resolve(_ context.Context, ref vault.Ref) (string, error) {
	v, ok := f[ref.String()]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

const minimal = `
http:
  listen_addr: ":8080"
`

func TestLoadAppliesDefaults(t *testing.T) {
	root := writeRoot(t, minimal)
	cfg, err := LoadFrom(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "sql", cfg.Settings.Backend)
	assert.Equal(t, time.Hour, cfg.Instagram.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(root, "logs"), cfg.Log.Dir)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Same(t, cfg, Get())
}

func TestEnvOverridesYAML(t *testing.T) {
	root := writeRoot(t, minimal+`
database:
  retry_backoff: 1s
`)
	t.Setenv("CHEF_HTTP__LISTEN_ADDR", "127.0.0.1:9090")
	t.Setenv("CHEF_DATABASE__RETRY_BACKOFF", "250ms")
	t.Setenv("CHEF_SETTINGS__BACKEND", "local")
	t.Setenv("CHEF_SETTINGS__LOCAL_PATH", "data/ls.json")

	cfg, err := LoadFrom(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.ListenAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.RetryBackoff)
	assert.Equal(t, filepath.Join(root, "data", "ls.json"), cfg.Settings.LocalPath)
}

func TestVaultReferencesResolve(t *testing.T) {
	root := writeRoot(t, minimal+`
database:
  dsn: "chef@tcp(db:3306)/chefsite"
  password: "vault:secret/chefsite/db#password"
`)
	cfg, err := LoadFrom(context.Background(), root, fakeSecrets{"secret/chefsite/db#password": "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestVaultReferenceWithoutClient(t *testing.T) {
	root := writeRoot(t, minimal+`
database:
  password: "vault:secret/chefsite/db#password"
`)
	_, err := LoadFrom(context.Background(), root, nil)
	assert.ErrorIs(t, err, ErrNoSecrets)
}

func TestBadVaultReference(t *testing.T) {
	root := writeRoot(t, minimal+`
database:
  password: "vault:secret/chefsite/db"
`)
	_, err := LoadFrom(context.Background(), root, fakeSecrets{})
	assert.ErrorIs(t, err, vault.ErrBadRef)
}

func TestValidationFailures(t *testing.T) {
	for name, doc := range map[string]string{
		"missing listen addr": `log: {level: info}`,
		"local without path":  minimal + "settings: {backend: local}",
		"unknown backend":     minimal + "settings: {backend: redis}",
		"bad level":           minimal + "log: {level: loud}",
		"bad dsn":             minimal + "database: {dsn: 'not a dsn'}",
		"idle above open":     minimal + "database: {max_open_conns: 2, max_idle_conns: 5}",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), writeRoot(t, doc), nil)
			assert.Error(t, err)
		})
	}
}

func TestIdleConnsCheckedAgainstOpen(t *testing.T) {
	doc := minimal + "database: {max_open_conns: 2, max_idle_conns: 5}"
	_, err := LoadFrom(context.Background(), writeRoot(t, doc), nil)
	assert.ErrorContains(t, err, "MaxIdleConns fails ltefield")

	doc = minimal + "database: {max_open_conns: 5, max_idle_conns: 2}"
	_, err = LoadFrom(context.Background(), writeRoot(t, doc), nil)
	assert.NoError(t, err)
}

func TestMissingYAML(t *testing.T) {
	_, err := LoadFrom(context.Background(), t.TempDir(), nil)
	assert.Error(t, err)
}
