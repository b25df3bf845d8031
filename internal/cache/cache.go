package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/promptd/promptd/internal/memory"
)

const saveDebounce = 250 * time.Millisecond

// Entry is one cached response
type Entry struct {
	Key       string    `json:"key"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	Embedding []float64 `json:"embedding,omitempty"`
	Intent    string    `json:"intent"`
	Hits      int       `json:"hits"`
}

// Cache is the two-tier (exact + semantic) response cache. It is bounded
// FIFO and persisted with a debounced atomic write.
type Cache struct {
	path              string
	maxEntries        int
	ttl               time.Duration
	fastTTL           time.Duration
	semanticThreshold float64

	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
	timer   *time.Timer
}

// New loads (or creates) the cache at path
func New(path string, maxEntries int, ttl, fastTTL time.Duration, semanticThreshold float64) (*Cache, error) {
	c := &Cache{
		path:              path,
		maxEntries:        maxEntries,
		ttl:               ttl,
		fastTTL:           fastTTL,
		semanticThreshold: semanticThreshold,
		entries:           make(map[string]*Entry),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Key builds the exact cache key from intent and lowercased prompt
func Key(intentTag, prompt string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	return intentTag + "_" + strconv.FormatUint(h.Sum64(), 36)
}

// Get returns a live exact-key hit, bumping its hit counter
func (c *Cache) Get(key string, fast bool) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.expired(e, fast) {
		c.remove(key)
		return "", false
	}
	e.Hits++
	return e.Response, true
}

// GetSemantic returns the best stored entry whose embedding cosine
// similarity with the query meets the threshold.
func (c *Cache) GetSemantic(embedding []float64, fast bool) (string, bool) {
	if len(embedding) == 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	bestScore := c.semanticThreshold
	var best *Entry
	for _, e := range c.entries {
		if len(e.Embedding) == 0 || c.expired(e, fast) {
			continue
		}
		if score := memory.Cosine(embedding, e.Embedding); score >= bestScore {
			bestScore = score
			best = e
		}
	}
	if best == nil {
		return "", false
	}
	best.Hits++
	return best.Response, true
}

// Set stores a response under the exact key, evicting FIFO past the
// bound, then schedules a debounced save. Last writer wins.
func (c *Cache) Set(key, response, intentTag string, embedding []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
		for len(c.order) > c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = &Entry{
		Key:       key,
		Response:  response,
		Timestamp: time.Now(),
		Embedding: embedding,
		Intent:    intentTag,
	}
	c.scheduleSave()
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush forces a pending save to disk immediately
func (c *Cache) Flush() error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	data, err := c.marshal()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.writeFile(data)
}

func (c *Cache) expired(e *Entry, fast bool) bool {
	ttl := c.ttl
	if fast || e.Intent == "fast" {
		ttl = c.fastTTL
	}
	return time.Since(e.Timestamp) > ttl
}

// remove drops a key; caller holds the lock
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// scheduleSave coalesces writes behind a short debounce; caller holds
// the lock.
func (c *Cache) scheduleSave() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(saveDebounce, func() {
		c.mu.Lock()
		c.timer = nil
		data, err := c.marshal()
		c.mu.Unlock()
		if err == nil {
			c.writeFile(data)
		}
	})
}

type cacheFile struct {
	Items []Entry `json:"items"`
}

// marshal snapshots entries in FIFO order; caller holds the lock
func (c *Cache) marshal() ([]byte, error) {
	f := cacheFile{Items: make([]Entry, 0, len(c.entries))}
	for _, key := range c.order {
		if e, ok := c.entries[key]; ok {
			f.Items = append(f.Items, *e)
		}
	}
	return json.MarshalIndent(f, "", "  ")
}

func (c *Cache) writeFile(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache: %w", err)
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse cache: %w", err)
	}
	for i := range f.Items {
		e := f.Items[i]
		c.entries[e.Key] = &e
		c.order = append(c.order, e.Key)
	}
	return nil
}
