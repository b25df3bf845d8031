package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/promptd/promptd/internal/memory"
)

// Embedder produces embedding vectors for text
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// Chunk is one embedded slice of an indexed file
type Chunk struct {
	Path       string    `json:"path"`
	ChunkIndex int       `json:"chunkIndex"`
	Text       string    `json:"text"`
	Embedding  []float64 `json:"embedding"`
	Hash       string    `json:"hash"`
}

// ChunkHit is a scored embedding-index match
type ChunkHit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// EmbedIndex is the file-backed embedding index over chunked local files
type EmbedIndex struct {
	path  string
	model string

	mu     sync.RWMutex
	chunks []Chunk
	stale  bool
}

// NewEmbedIndex loads (or creates) the embedding index at path
func NewEmbedIndex(path, model string) (*EmbedIndex, error) {
	idx := &EmbedIndex{path: path, model: model}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// chunkHash makes the content hash unique per (path, index, text)
func chunkHash(path string, index int, text string) string {
	h := sha256.Sum256([]byte(path + ":" + strconv.Itoa(index) + ":" + text))
	return hex.EncodeToString(h[:])
}

// Build chunks and embeds each file, replacing the index. Chunks whose
// hash already exists keep their prior embedding to avoid re-embedding.
func (e *EmbedIndex) Build(ctx context.Context, paths []string, embedder Embedder, cfg ChunkConfig) (int, error) {
	e.mu.RLock()
	existing := make(map[string][]float64, len(e.chunks))
	for _, c := range e.chunks {
		existing[c.Hash] = c.Embedding
	}
	e.mu.RUnlock()

	var chunks []Chunk
	for _, path := range paths {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for i, text := range ChunkText(string(data), cfg) {
			hash := chunkHash(path, i, text)
			embedding, ok := existing[hash]
			if !ok {
				embedding, err = embedder.Embed(ctx, e.model, text)
				if err != nil {
					return 0, fmt.Errorf("failed to embed %s chunk %d: %w", path, i, err)
				}
			}
			chunks = append(chunks, Chunk{
				Path:       path,
				ChunkIndex: i,
				Text:       text,
				Embedding:  embedding,
				Hash:       hash,
			})
		}
	}

	e.mu.Lock()
	e.chunks = chunks
	e.stale = false
	saveErr := e.save()
	e.mu.Unlock()
	if saveErr != nil {
		return 0, saveErr
	}
	return len(chunks), nil
}

// Query embeds the prompt and returns the top chunks by cosine similarity
func (e *EmbedIndex) Query(ctx context.Context, prompt string, embedder Embedder, limit int) ([]ChunkHit, error) {
	queryVec, err := embedder.Embed(ctx, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var hits []ChunkHit
	for _, c := range e.chunks {
		score := memory.Cosine(queryVec, c.Embedding)
		if score > 0 {
			hits = append(hits, ChunkHit{Chunk: c, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of indexed chunks
func (e *EmbedIndex) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.chunks)
}

// MarkStale flags the index as out of date (set by the watcher)
func (e *EmbedIndex) MarkStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale = true
}

// Stale reports whether indexed files changed since the last build
func (e *EmbedIndex) Stale() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stale
}

type embedIndexFile struct {
	Items []Chunk `json:"items"`
}

// save writes atomically; caller holds the write lock
func (e *EmbedIndex) save() error {
	data, err := json.Marshal(embedIndexFile{Items: e.chunks})
	if err != nil {
		return fmt.Errorf("failed to marshal embedding index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write embedding index: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EmbedIndex) load() error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read embedding index: %w", err)
	}
	var f embedIndexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse embedding index: %w", err)
	}
	e.chunks = f.Items
	return nil
}
