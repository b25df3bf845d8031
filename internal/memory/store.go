package memory

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	maxKeywords    = 40
	minKeywordLen  = 3
	recallLimit    = 4
	minRecallScore = 1.0
)

// Entry is one durable user↔assistant pair in the memory store
type Entry struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Keywords  []string  `json:"keywords"`
	Embedding []float64 `json:"embedding,omitempty"`
	Meta      EntryMeta `json:"meta"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt string    `json:"expiresAt,omitempty"`
}

// EntryMeta scopes an entry to a user or team
type EntryMeta struct {
	UserID string `json:"userId"`
	TeamID string `json:"teamId,omitempty"`
	Type   string `json:"type,omitempty"`
}

// IsExpired reports whether the entry's TTL has elapsed. An unparsable
// expiresAt counts as not expired.
func (e *Entry) IsExpired(now time.Time) bool {
	if e.ExpiresAt == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, e.ExpiresAt)
	if err != nil {
		return false
	}
	return t.Before(now)
}

// Store is the file-backed memory store. All mutations go through the
// store's mutex; the file is replaced atomically on save.
type Store struct {
	path       string
	maxEntries int
	defaultTTL time.Duration

	mu      sync.RWMutex
	entries []Entry
}

// NewStore loads (or creates) the memory store at path. Expired entries
// are pruned on load.
func NewStore(path string, maxEntries int, defaultTTL time.Duration) (*Store, error) {
	s := &Store{
		path:       path,
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

type storeFile struct {
	Entries []Entry `json:"entries"`
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read memory store: %w", err)
	}
	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse memory store: %w", err)
	}

	now := time.Now()
	kept := f.Entries[:0]
	for _, e := range f.Entries {
		if !e.IsExpired(now) {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

// save trims to the tail maxEntries and writes atomically. Caller holds
// the write lock.
func (s *Store) save() error {
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[len(s.entries)-s.maxEntries:]
	}
	data, err := json.MarshalIndent(storeFile{Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Save stores a prompt/response pair with extracted keywords and an
// optional embedding. It returns the new entry.
func (s *Store) Save(prompt, response string, embedding []float64, meta EntryMeta) (Entry, error) {
	entry := Entry{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		Response:  response,
		Keywords:  ExtractKeywords(prompt + " " + response),
		Embedding: embedding,
		Meta:      meta,
		CreatedAt: time.Now(),
	}
	if s.defaultTTL > 0 {
		entry.ExpiresAt = time.Now().Add(s.defaultTTL).Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if err := s.save(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Recalled is a scored recall hit
type Recalled struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// Recall returns the top scored entries for a prompt, scoped by userID
// (or teamID when teamMode is set). Score is keyword overlap plus an
// embedding-weighted cosine when both sides carry vectors.
func (s *Store) Recall(prompt string, embedding []float64, userID, teamID string, teamMode bool) []Recalled {
	queryKeywords := ExtractKeywords(prompt)
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []Recalled
	for _, e := range s.entries {
		if e.IsExpired(now) {
			continue
		}
		if teamMode {
			if e.Meta.TeamID == "" || e.Meta.TeamID != teamID {
				continue
			}
		} else if e.Meta.UserID != userID {
			continue
		}

		score := keywordOverlap(queryKeywords, e.Keywords)
		if len(embedding) > 0 && len(e.Embedding) > 0 {
			score += 3 * Cosine(embedding, e.Embedding)
		}
		if score >= minRecallScore {
			hits = append(hits, Recalled{Entry: e, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > recallLimit {
		hits = hits[:recallLimit]
	}
	return hits
}

// List returns entries matching the optional filters, excluding expired ones
func (s *Store) List(userID, teamID, entryType string) []Entry {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.IsExpired(now) {
			continue
		}
		if userID != "" && e.Meta.UserID != userID {
			continue
		}
		if teamID != "" && e.Meta.TeamID != teamID {
			continue
		}
		if entryType != "" && e.Meta.Type != entryType {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Delete removes an entry by id
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, s.save()
		}
	}
	return false, nil
}

// UpdateTTL sets a new expiry on every entry owned by the user or team
func (s *Store) UpdateTTL(userID, teamID string, ttl time.Duration) (int, error) {
	expires := ""
	if ttl > 0 {
		expires = time.Now().Add(ttl).Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for i := range s.entries {
		if userID != "" && s.entries[i].Meta.UserID != userID {
			continue
		}
		if teamID != "" && s.entries[i].Meta.TeamID != teamID {
			continue
		}
		s.entries[i].ExpiresAt = expires
		updated++
	}
	if updated == 0 {
		return 0, nil
	}
	return updated, s.save()
}

// Purge drops expired entries and rewrites the file
func (s *Store) Purge() (int, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.IsExpired(now) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save()
}

// Count returns the number of live entries
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	n := 0
	for i := range s.entries {
		if !s.entries[i].IsExpired(now) {
			n++
		}
	}
	return n
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "him": true, "his": true, "how": true, "man": true,
	"new": true, "now": true, "old": true, "see": true, "two": true,
	"way": true, "who": true, "did": true, "its": true, "let": true,
	"she": true, "too": true, "use": true, "that": true, "with": true,
	"have": true, "this": true, "will": true, "your": true, "from": true,
	"they": true, "know": true, "want": true, "been": true, "good": true,
	"much": true, "some": true, "time": true, "very": true, "when": true,
	"what": true, "which": true, "their": true, "would": true, "there": true,
	"about": true, "could": true, "should": true, "please": true,
}

// ExtractKeywords lowercases, strips punctuation and stop words, and
// keeps at most maxKeywords unique terms of minKeywordLen or longer.
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()[]{}")
		if len(word) < minKeywordLen || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords
}

func keywordOverlap(query, stored []string) float64 {
	if len(query) == 0 || len(stored) == 0 {
		return 0
	}
	in := make(map[string]bool, len(stored))
	for _, k := range stored {
		in[k] = true
	}
	count := 0.0
	for _, k := range query {
		if in[k] {
			count++
		}
	}
	return count
}

// Cosine computes cosine similarity between two vectors, 0 on mismatch
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SaveTrigger reports whether the prompt explicitly asks to be remembered
func SaveTrigger(prompt string) bool {
	lower := strings.ToLower(prompt)
	triggers := []string{
		"remember this", "remember that", "save this to memory",
		"save to memory", "don't forget", "note that", "keep in mind",
	}
	for _, t := range triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
