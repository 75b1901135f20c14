package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsLeastRecent(t *testing.T) {
	c := New[string, int](2, 0)
	c.Add("a", 1)
	c.Add("b", 2)
	_, _ = c.Get("a") // a is now MRU
	c.Add("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUStaleEntriesMissButPeek(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New[string, string](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Add("settings", "v1")
	v, ok := c.Get("settings")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("settings")
	assert.False(t, ok, "entry older than ttl must miss")

	v, ok = c.Peek("settings")
	assert.True(t, ok, "peek ignores age")
	assert.Equal(t, "v1", v)
}

func TestLRURemove(t *testing.T) {
	c := New[int, int](2, 0)
	c.Add(1, 10)
	c.Remove(1)
	_, ok := c.Peek(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
