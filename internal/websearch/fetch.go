package websearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const maxPageText = 20000

// Page is extracted page text ready for prompt assembly
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Fetcher downloads pages and extracts readable text
type Fetcher struct {
	client    *http.Client
	converter *md.Converter
}

// NewFetcher creates a page fetcher
func NewFetcher() *Fetcher {
	converter := md.NewConverter("", true, nil)
	return &Fetcher{
		client:    &http.Client{Timeout: 20 * time.Second},
		converter: converter,
	}
}

// Fetch downloads a URL and returns its title plus markdown-rendered
// body text, truncated to maxPageText.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; promptd/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetch error %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Strip non-content elements before conversion
	doc.Find("script, style, nav, header, footer, iframe, noscript").Remove()

	body := doc.Find("body")
	html, err := body.Html()
	if err != nil {
		return Page{}, fmt.Errorf("failed to render page body: %w", err)
	}

	text, err := f.converter.ConvertString(html)
	if err != nil {
		// Fall back to plain text extraction
		text = strings.TrimSpace(body.Text())
	}
	text = collapseBlankLines(text)
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}

	return Page{URL: pageURL, Title: title, Text: text}, nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
