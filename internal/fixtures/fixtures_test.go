package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/chefsite/internal/recipe"
)

func TestEmbeddedFixturesDecode(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	require.NotEmpty(t, s.Events)
	ev := s.Events[0]
	assert.Equal(t, "2099-04-18", ev.Date.String())
	require.NotNil(t, ev.Coordinates)
	assert.InDelta(t, 42.2529, ev.Coordinates.Lat, 1e-9)
	assert.NotNil(t, ev.GalleryImages)

	require.NotEmpty(t, s.Recipes)
	assert.Equal(t, recipe.Medium, s.Recipes[0].Difficulty)
	assert.True(t, s.Recipes[0].HasTag("pasta"))
	assert.False(t, s.Recipes[0].PublishedDate.IsZero())

	assert.NotEmpty(t, s.Categories)
	assert.NotEmpty(t, s.BlogPosts)
	assert.Len(t, s.Testimonials, 2)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("events: [unterminated"))
	assert.Error(t, err)
}
