package websearch

import "github.com/promptd/promptd/internal/config"

func testConfig(api, key, searxng string) config.SearchConfig {
	return config.SearchConfig{API: api, APIKey: key, SearXNGURL: searxng}
}
