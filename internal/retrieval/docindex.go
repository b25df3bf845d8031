package retrieval

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/promptd/promptd/internal/memory"
)

const (
	maxSnippetLen  = 60000
	maxIndexedSize = 2 << 20 // per-file read bound
)

var indexableExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".java": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".csv": true, ".html": true, ".css": true, ".sql": true, ".sh": true,
}

// DocEntry is one indexed file in the keyword index
type DocEntry struct {
	Path     string   `json:"path"`
	Keywords []string `json:"keywords"`
	Snippet  string   `json:"snippet"`
}

// DocHit is a scored keyword-index match
type DocHit struct {
	Entry DocEntry `json:"entry"`
	Score float64  `json:"score"`
}

// DocIndex is the file-backed keyword index over local files
type DocIndex struct {
	path string

	mu      sync.RWMutex
	entries []DocEntry
	stale   bool
}

// NewDocIndex loads (or creates) the keyword index at path
func NewDocIndex(path string) (*DocIndex, error) {
	idx := &DocIndex{path: path}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Build walks root, indexing every readable text-like file that the
// directory's .gitignore does not exclude, and replaces the index.
func (d *DocIndex) Build(root string) (int, error) {
	ignorer := loadGitignore(root)

	var entries []DocEntry
	err := filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if de.IsDir() {
			if strings.HasPrefix(de.Name(), ".") && de.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if !indexableExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && ignorer != nil && ignorer.MatchesPath(rel) {
			return nil
		}
		info, err := de.Info()
		if err != nil || info.Size() > maxIndexedSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		text := string(data)
		snippet := text
		if len(snippet) > maxSnippetLen {
			snippet = snippet[:maxSnippetLen]
		}
		entries = append(entries, DocEntry{
			Path:     path,
			Keywords: memory.ExtractKeywords(text),
			Snippet:  snippet,
		})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	d.mu.Lock()
	d.entries = entries
	d.stale = false
	saveErr := d.save()
	d.mu.Unlock()
	if saveErr != nil {
		return 0, saveErr
	}
	return len(entries), nil
}

// Query returns keyword hits for the prompt, best first
func (d *DocIndex) Query(prompt string, limit int) []DocHit {
	queryKeywords := memory.ExtractKeywords(prompt)
	if len(queryKeywords) == 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var hits []DocHit
	for _, e := range d.entries {
		score := 0.0
		for _, qk := range queryKeywords {
			for _, ek := range e.Keywords {
				if qk == ek {
					score += 2
				} else if fuzzy.MatchFold(qk, ek) {
					score += 0.5
				}
			}
		}
		if score > 0 {
			hits = append(hits, DocHit{Entry: e, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Count returns the number of indexed files
func (d *DocIndex) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Stale reports whether indexed files changed since the last build
func (d *DocIndex) Stale() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stale
}

// MarkStale flags the index as out of date (set by the watcher)
func (d *DocIndex) MarkStale() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stale = true
}

// Paths returns the indexed file paths
func (d *DocIndex) Paths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	paths := make([]string, len(d.entries))
	for i, e := range d.entries {
		paths[i] = e.Path
	}
	return paths
}

type docIndexFile struct {
	Entries []DocEntry `json:"entries"`
}

// save writes atomically; caller holds the write lock
func (d *DocIndex) save() error {
	data, err := json.MarshalIndent(docIndexFile{Entries: d.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal doc index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write doc index: %w", err)
	}
	return os.Rename(tmp, d.path)
}

func (d *DocIndex) load() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read doc index: %w", err)
	}
	var f docIndexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse doc index: %w", err)
	}
	d.entries = f.Entries
	return nil
}

// loadGitignore parses root/.gitignore when present
func loadGitignore(root string) *gitignore.GitIgnore {
	ig, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ig
}
