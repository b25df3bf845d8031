package websearch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/promptd/promptd/internal/config"
)

// Result is one search hit in citation-friendly form
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Engine is a single search backend
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Searcher tries the configured engine first, then the remaining ones
// in the fixed fallback order serpapi → searxng → duckduckgo.
type Searcher struct {
	engines []Engine
}

// NewSearcher builds the engine chain from configuration. Engines whose
// prerequisites are missing (API key, instance URL) are skipped.
func NewSearcher(cfg config.SearchConfig) *Searcher {
	client := &http.Client{Timeout: 15 * time.Second}

	var available []Engine
	if cfg.APIKey != "" {
		available = append(available, &serpAPI{apiKey: cfg.APIKey, client: client})
	}
	if cfg.SearXNGURL != "" {
		available = append(available, &searxng{baseURL: cfg.SearXNGURL, client: client})
	}
	available = append(available, &duckduckgo{client: client})

	// Move the configured engine to the front
	for i, e := range available {
		if e.Name() == cfg.API {
			reordered := append([]Engine{e}, available[:i]...)
			available = append(reordered, available[i+1:]...)
			break
		}
	}
	return &Searcher{engines: available}
}

// Search runs the engine chain until one returns results
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	var lastErr error
	for _, engine := range s.engines {
		results, err := engine.Search(ctx, query, limit)
		if err != nil {
			log.Debug("search engine failed", "engine", engine.Name(), "error", err)
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all search engines failed: %w", lastErr)
	}
	return nil, nil
}

// FormatCitations renders results as a numbered [n] Title — URL listing
func FormatCitations(results []Result) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s — %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "    %s\n", r.Snippet)
		}
	}
	return sb.String()
}

var reURL = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// ExtractURLs pulls URLs out of a prompt
func ExtractURLs(prompt string) []string {
	matches := reURL.FindAllString(prompt, -1)
	var urls []string
	for _, m := range matches {
		urls = append(urls, strings.TrimRight(m, ".,;"))
	}
	return urls
}
