package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTextSmall(t *testing.T) {
	chunks := ChunkText("short text", DefaultChunkConfig())
	require.Equal(t, []string{"short text"}, chunks)
	require.Empty(t, ChunkText("   ", DefaultChunkConfig()))
}

func TestChunkTextOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("the quick brown fox jumps over the lazy dog. ")
	}
	chunks := ChunkText(sb.String(), ChunkConfig{Size: 500, Overlap: 100})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 500)
		require.NotEmpty(t, c)
	}
}

func TestChunkCap(t *testing.T) {
	big := strings.Repeat("word ", 200000)
	chunks := ChunkText(big, ChunkConfig{Size: 100, Overlap: 10})
	require.LessOrEqual(t, len(chunks), maxChunksPerFile)
}

func writeTestFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"readme.md":  "This project implements a websocket streaming server for chat",
		"config.go":  "package config // configuration loading with viper and environment",
		"notes.txt":  "grocery list: apples, bananas, flour",
		"binary.bin": "ignored extension",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestDocIndexBuildAndQuery(t *testing.T) {
	dir := writeTestFiles(t)
	idx, err := NewDocIndex(filepath.Join(t.TempDir(), "doc_index.json"))
	require.NoError(t, err)

	count, err := idx.Build(dir)
	require.NoError(t, err)
	require.Equal(t, 3, count, "only indexable extensions are included")

	hits := idx.Query("websocket streaming chat", 5)
	require.NotEmpty(t, hits)
	require.Contains(t, hits[0].Entry.Path, "readme.md")

	require.Empty(t, idx.Query("", 5), "empty query has no keywords")
}

func TestDocIndexGitignore(t *testing.T) {
	dir := writeTestFiles(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("notes.txt\n"), 0644))

	idx, err := NewDocIndex(filepath.Join(t.TempDir(), "doc_index.json"))
	require.NoError(t, err)
	_, err = idx.Build(dir)
	require.NoError(t, err)

	for _, p := range idx.Paths() {
		require.NotContains(t, p, "notes.txt", "gitignored files are skipped")
	}
}

func TestDocIndexPersistence(t *testing.T) {
	dir := writeTestFiles(t)
	path := filepath.Join(t.TempDir(), "doc_index.json")

	idx, err := NewDocIndex(path)
	require.NoError(t, err)
	_, err = idx.Build(dir)
	require.NoError(t, err)

	reloaded, err := NewDocIndex(path)
	require.NoError(t, err)
	require.Equal(t, idx.Count(), reloaded.Count())
}

// fixedEmbedder returns deterministic vectors keyed on text length
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, _ string, text string) ([]float64, error) {
	return []float64{float64(len(text) % 7), 1, float64(len(text) % 3)}, nil
}

func TestEmbedIndexBuildAndQuery(t *testing.T) {
	dir := writeTestFiles(t)
	idx, err := NewEmbedIndex(filepath.Join(t.TempDir(), "embeddings.json"), "embed-model")
	require.NoError(t, err)

	paths := []string{filepath.Join(dir, "readme.md"), filepath.Join(dir, "notes.txt")}
	count, err := idx.Build(context.Background(), paths, fixedEmbedder{}, DefaultChunkConfig())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	hits, err := idx.Query(context.Background(), "anything", fixedEmbedder{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.GreaterOrEqual(t, hits[0].Score, hits[len(hits)-1].Score, "hits are sorted")
}

func TestStaleFlags(t *testing.T) {
	idx, err := NewDocIndex(filepath.Join(t.TempDir(), "doc_index.json"))
	require.NoError(t, err)
	require.False(t, idx.Stale())
	idx.MarkStale()
	require.True(t, idx.Stale())
}
