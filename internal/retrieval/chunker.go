package retrieval

import "strings"

const (
	defaultChunkSize    = 1200
	defaultChunkOverlap = 200
	maxChunksPerFile    = 120
)

// ChunkConfig controls text chunking
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig returns the standard chunk geometry
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{Size: defaultChunkSize, Overlap: defaultChunkOverlap}
}

// ChunkText splits text into overlapping chunks, preferring paragraph
// then line boundaries, capped at maxChunksPerFile.
func ChunkText(text string, cfg ChunkConfig) []string {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 4
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= cfg.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) && len(chunks) < maxChunksPerFile {
		end := start + cfg.Size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		// Prefer breaking on a paragraph, then a line, then a space
		cut := end
		window := text[start:end]
		if idx := strings.LastIndex(window, "\n\n"); idx > cfg.Size/2 {
			cut = start + idx
		} else if idx := strings.LastIndex(window, "\n"); idx > cfg.Size/2 {
			cut = start + idx
		} else if idx := strings.LastIndex(window, " "); idx > cfg.Size/2 {
			cut = start + idx
		}

		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		next := cut - cfg.Overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}
