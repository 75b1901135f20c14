package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Keys())

	var events []map[string]any
	ok, err := s.Decode(KeyEvents, &events)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestParseStringAndRawValues(t *testing.T) {
	raw := `{
	  "events": "[{\"id\":\"1\",\"title\":\"Tasting Menu\"}]",
	  "users": [{"email":"al@example.com"}],
	  "siteSettings": "{not json"
	}`
	s, err := Parse([]byte(raw))
	require.NoError(t, err)

	var events []map[string]any
	ok, err := s.Decode(KeyEvents, &events)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Tasting Menu", events[0]["title"])

	var users []map[string]any
	ok, err = s.Decode(KeyUsers, &users)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, users, 1)

	var settings map[string]any
	ok, err = s.Decode(KeySiteSettings, &settings)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestSetSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "local.json")
	s := New(path)
	require.NoError(t, s.Set(KeySiteSettings, map[string]string{"title": "Chef Ana"}))
	require.NoError(t, s.Save())

	again, err := Load(path)
	require.NoError(t, err)
	var got map[string]string
	ok, err := again.Decode(KeySiteSettings, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Chef Ana", got["title"])
}
