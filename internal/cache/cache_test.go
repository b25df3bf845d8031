package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxEntries int, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "response_cache.json"), maxEntries, ttl, ttl, 0.9)
	require.NoError(t, err)
	return c
}

func TestKeyStable(t *testing.T) {
	a := Key("MATH_REASONING", "What Is 1+1")
	b := Key("MATH_REASONING", "  what is 1+1 ")
	require.Equal(t, a, b, "key must be case- and whitespace-insensitive")
	require.NotEqual(t, a, Key("CODE_TASK", "what is 1+1"), "intent is part of the key")
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t, 10, time.Hour)
	key := Key("SIMPLE_QA", "what is go")

	_, ok := c.Get(key, false)
	require.False(t, ok)

	c.Set(key, "a language", "SIMPLE_QA", nil)
	got, ok := c.Get(key, false)
	require.True(t, ok)
	require.Equal(t, "a language", got)

	// Two successive reads within the TTL are byte-identical
	again, ok := c.Get(key, false)
	require.True(t, ok)
	require.Equal(t, got, again)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t, 10, 10*time.Millisecond)
	key := Key("SIMPLE_QA", "ephemeral")
	c.Set(key, "gone soon", "SIMPLE_QA", nil)

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(key, false)
	require.False(t, ok, "expired entries must miss")
}

func TestBound(t *testing.T) {
	c := newTestCache(t, 5, time.Hour)
	for i := 0; i < 20; i++ {
		c.Set(Key("SIMPLE_QA", string(rune('a'+i))), "v", "SIMPLE_QA", nil)
	}
	require.LessOrEqual(t, c.Len(), 5, "cache must stay bounded")

	// The newest entry survives FIFO eviction
	_, ok := c.Get(Key("SIMPLE_QA", string(rune('a'+19))), false)
	require.True(t, ok)
}

func TestSemantic(t *testing.T) {
	c := newTestCache(t, 10, time.Hour)
	c.Set(Key("SIMPLE_QA", "alpha"), "cached answer", "SIMPLE_QA", []float64{1, 0, 0})

	got, ok := c.GetSemantic([]float64{1, 0, 0}, false)
	require.True(t, ok)
	require.Equal(t, "cached answer", got)

	_, ok = c.GetSemantic([]float64{0, 1, 0}, false)
	require.False(t, ok, "orthogonal vectors must miss")
}

func TestFlushPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "response_cache.json")

	c, err := New(path, 10, time.Hour, time.Hour, 0.9)
	require.NoError(t, err)
	key := Key("SIMPLE_QA", "durable")
	c.Set(key, "kept", "SIMPLE_QA", nil)
	require.NoError(t, c.Flush())

	reloaded, err := New(path, 10, time.Hour, time.Hour, 0.9)
	require.NoError(t, err)
	got, ok := reloaded.Get(key, false)
	require.True(t, ok)
	require.Equal(t, "kept", got)
}
