package websearch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("compare https://go.dev/doc and http://example.com/page, please")
	require.Equal(t, []string{"https://go.dev/doc", "http://example.com/page"}, urls)

	require.Empty(t, ExtractURLs("no links here"))
}

func TestFormatCitations(t *testing.T) {
	out := FormatCitations([]Result{
		{Title: "Go docs", URL: "https://go.dev", Snippet: "the docs"},
		{Title: "Example", URL: "https://example.com"},
	})
	require.Contains(t, out, "[1] Go docs — https://go.dev")
	require.Contains(t, out, "[2] Example — https://example.com")
	require.Contains(t, out, "the docs")
}

const ddgSample = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F">The Go Programming Language</a>
  <div class="result__snippet">Go is an open source language.</div>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/direct">Example Domain</a>
  <div class="result__snippet">Example snippet.</div>
</div>
<div class="result">
  <a class="result__a" href=""></a>
</div>
</body></html>`

func TestParseDuckDuckGo(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ddgSample))
	require.NoError(t, err)

	results := ParseDuckDuckGo(doc, 10)
	require.Len(t, results, 2, "empty results are skipped")
	require.Equal(t, "The Go Programming Language", results[0].Title)
	require.Equal(t, "https://go.dev/", results[0].URL, "uddg redirects are unwrapped")
	require.Equal(t, "Go is an open source language.", results[0].Snippet)
	require.Equal(t, "https://example.com/direct", results[1].URL)

	limited := ParseDuckDuckGo(doc, 1)
	require.Len(t, limited, 1)
}

func TestSearcherFallbackOrder(t *testing.T) {
	s := NewSearcher(testConfig("serpapi", "key", "http://searx.local"))
	require.Equal(t, "serpapi", s.engines[0].Name())
	require.Len(t, s.engines, 3)

	s = NewSearcher(testConfig("searxng", "", "http://searx.local"))
	require.Equal(t, "searxng", s.engines[0].Name())

	s = NewSearcher(testConfig("serpapi", "", ""))
	require.Equal(t, "duckduckgo", s.engines[0].Name(),
		"engines without prerequisites are skipped")
}
