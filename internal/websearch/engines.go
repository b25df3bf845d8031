package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// serpAPI queries the SerpAPI Google endpoint
type serpAPI struct {
	apiKey string
	client *http.Client
}

func (s *serpAPI) Name() string { return "serpapi" }

func (s *serpAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint := fmt.Sprintf("https://serpapi.com/search.json?engine=google&q=%s&num=%d&api_key=%s",
		url.QueryEscape(query), limit, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serpapi error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}

	var results []Result
	for _, r := range payload.OrganicResults {
		results = append(results, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// searxng queries a self-hosted SearXNG instance's JSON API
type searxng struct {
	baseURL string
	client  *http.Client
}

func (s *searxng) Name() string { return "searxng" }

func (s *searxng) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json",
		strings.TrimRight(s.baseURL, "/"), url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng error %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode searxng response: %w", err)
	}

	var results []Result
	for _, r := range payload.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// duckduckgo scrapes the HTML endpoint; no API key required
type duckduckgo struct {
	client *http.Client
}

func (d *duckduckgo) Name() string { return "duckduckgo" }

func (d *duckduckgo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; promptd/1.0)")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo error %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duckduckgo response: %w", err)
	}
	return ParseDuckDuckGo(doc, limit), nil
}

// ParseDuckDuckGo extracts results from the DuckDuckGo HTML page
func ParseDuckDuckGo(doc *goquery.Document, limit int) []Result {
	var results []Result
	doc.Find(".result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())
		if title == "" || href == "" {
			return true
		}
		results = append(results, Result{
			Title:   title,
			URL:     cleanDuckDuckGoURL(href),
			Snippet: snippet,
		})
		return len(results) < limit
	})
	return results
}

// cleanDuckDuckGoURL unwraps the uddg redirect parameter
func cleanDuckDuckGoURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	if u.Scheme == "" {
		return "https:" + href
	}
	return href
}
