package memory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxEntries int, ttl time.Duration) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "memory.json"), maxEntries, ttl)
	require.NoError(t, err)
	return s
}

func TestSaveAndRecall(t *testing.T) {
	s := newTestStore(t, 500, 30*24*time.Hour)

	_, err := s.Save("my favorite language is Go", "noted: favorite language Go", nil,
		EntryMeta{UserID: "ada"})
	require.NoError(t, err)

	hits := s.Recall("what is my favorite language", nil, "ada", "", false)
	require.NotEmpty(t, hits, "keyword overlap should recall the entry")

	require.Empty(t, s.Recall("what is my favorite language", nil, "bob", "", false),
		"recall is scoped by user")
}

func TestTeamScope(t *testing.T) {
	s := newTestStore(t, 500, time.Hour)
	_, err := s.Save("deploy checklist for the platform team", "checklist saved", nil,
		EntryMeta{UserID: "ada", TeamID: "platform"})
	require.NoError(t, err)

	require.NotEmpty(t, s.Recall("platform deploy checklist", nil, "", "platform", true))
	require.Empty(t, s.Recall("platform deploy checklist", nil, "", "other", true))
}

func TestBound(t *testing.T) {
	s := newTestStore(t, 5, time.Hour)
	for i := 0; i < 12; i++ {
		_, err := s.Save("entry number "+string(rune('a'+i)), "response", nil, EntryMeta{UserID: "u"})
		require.NoError(t, err)
	}
	require.LessOrEqual(t, s.Count(), 5, "store must be tail-trimmed on save")
}

func TestTTL(t *testing.T) {
	s := newTestStore(t, 500, 10*time.Millisecond)
	_, err := s.Save("short lived fact about kubernetes", "expires", nil, EntryMeta{UserID: "u"})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	require.Empty(t, s.List("u", "", ""), "expired entries are absent from queries")

	removed, err := s.Purge()
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Zero(t, s.Count())
}

func TestUnparsableExpiryIsNotExpired(t *testing.T) {
	e := Entry{ExpiresAt: "not-a-timestamp"}
	require.False(t, e.IsExpired(time.Now()))
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, 500, time.Hour)
	entry, err := s.Save("deletable entry about rust", "resp", nil, EntryMeta{UserID: "u"})
	require.NoError(t, err)

	removed, err := s.Delete(entry.ID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = s.Delete(entry.ID)
	require.NoError(t, err)
	require.False(t, removed, "second delete finds nothing")
}

func TestUpdateTTL(t *testing.T) {
	s := newTestStore(t, 500, time.Hour)
	_, err := s.Save("fact one about python", "r", nil, EntryMeta{UserID: "u"})
	require.NoError(t, err)
	_, err = s.Save("fact two about golang", "r", nil, EntryMeta{UserID: "u"})
	require.NoError(t, err)

	updated, err := s.UpdateTTL("u", "", 90*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, updated)
}

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords("The quick brown fox jumps over the lazy dog and the fox runs")
	require.Contains(t, kws, "quick")
	require.Contains(t, kws, "fox")
	require.NotContains(t, kws, "the", "stop words are stripped")
	require.NotContains(t, kws, "ov", "short tokens are stripped")

	seen := map[string]bool{}
	for _, k := range kws {
		require.False(t, seen[k], "keywords are unique")
		seen[k] = true
	}
}

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, Cosine([]float64{1, 2}, []float64{1, 2}), 1e-9)
	require.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	require.Zero(t, Cosine([]float64{1}, []float64{1, 2}), "length mismatch scores zero")
}

func TestSaveTrigger(t *testing.T) {
	require.True(t, SaveTrigger("please remember this for later"))
	require.True(t, SaveTrigger("Note that I prefer tabs"))
	require.False(t, SaveTrigger("what is the capital of france"))
}
