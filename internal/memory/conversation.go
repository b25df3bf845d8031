package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ringSize        = 15
	summaryInterval = 8
)

// Message is one turn of per-user conversation memory
type Message struct {
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Intent    string    `json:"intent,omitempty"`  // user messages only
	Quality   float64   `json:"quality,omitempty"` // user messages only
	Language  string    `json:"language,omitempty"`
}

// Tracker keeps a bounded per-user conversation ring buffer and emits a
// summary entry into the memory store every summaryInterval messages.
type Tracker struct {
	store *Store

	mu       sync.RWMutex
	messages map[string][]Message
	newCount map[string]int
}

// NewTracker creates a conversation tracker backed by the memory store
func NewTracker(store *Store) *Tracker {
	return &Tracker{
		store:    store,
		messages: make(map[string][]Message),
		newCount: make(map[string]int),
	}
}

// Append adds a message for the user, evicting FIFO past the ring bound.
// When the per-user new-message counter reaches the summary interval, a
// summary entry is written to the memory store and the counter resets.
func (t *Tracker) Append(userID string, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	t.mu.Lock()
	msgs := append(t.messages[userID], msg)
	if len(msgs) > ringSize {
		msgs = msgs[len(msgs)-ringSize:]
	}
	t.messages[userID] = msgs
	t.newCount[userID]++
	shouldSummarize := t.newCount[userID] >= summaryInterval
	if shouldSummarize {
		t.newCount[userID] = 0
	}
	snapshot := append([]Message(nil), msgs...)
	t.mu.Unlock()

	if shouldSummarize && t.store != nil {
		summary := summarize(snapshot)
		t.store.Save("conversation summary", summary, nil, EntryMeta{
			UserID: userID,
			Type:   "summary",
		})
	}
}

// History returns a copy of the user's message ring
func (t *Tracker) History(userID string) []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.messages[userID]...)
}

// LastTurn returns the most recent user+assistant pair, if present
func (t *Tracker) LastTurn(userID string) (user, assistant string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msgs := t.messages[userID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" && assistant == "" {
			assistant = msgs[i].Content
		} else if msgs[i].Role == "user" && assistant != "" {
			user = msgs[i].Content
			return user, assistant, true
		}
	}
	return "", "", false
}

// Context renders the last n turns as a prompt section
func (t *Tracker) Context(userID string, n int) string {
	t.mu.RLock()
	msgs := t.messages[userID]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	snapshot := append([]Message(nil), msgs...)
	t.mu.RUnlock()

	if len(snapshot) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, m := range snapshot {
		role := m.Role
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Clear removes all conversation state for a user
func (t *Tracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.messages, userID)
	delete(t.newCount, userID)
}

var followUpPhrases = []string{
	"what about", "and then", "why not", "how so", "tell me more",
	"more details", "expand on that", "go on", "continue", "what else",
	"can you elaborate", "same but", "do it again", "try again",
}

// IsFollowUp reports whether a short, vague prompt re-opens the previous
// turn. Short prompts with pronoun anchors or follow-up phrases qualify.
func IsFollowUp(prompt string) bool {
	lower := strings.ToLower(strings.TrimSpace(prompt))
	if len(lower) > 80 {
		return false
	}
	for _, p := range followUpPhrases {
		if strings.HasPrefix(lower, p) || lower == p {
			return true
		}
	}
	anchors := []string{"it", "that", "this", "those", "these", "them"}
	words := strings.Fields(lower)
	if len(words) <= 6 {
		for _, w := range words {
			w = strings.Trim(w, "?.!,")
			for _, a := range anchors {
				if w == a {
					return true
				}
			}
		}
	}
	return false
}

// summarize produces a compact textual summary of a message window
func summarize(msgs []Message) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Summary of %d messages: ", len(msgs)))
	for _, m := range msgs {
		if m.Role != "user" {
			continue
		}
		content := m.Content
		if len(content) > 60 {
			content = content[:60] + "…"
		}
		sb.WriteString(content)
		sb.WriteString("; ")
	}
	return strings.TrimSuffix(sb.String(), "; ")
}

// Export renders a user's history in the requested format:
// text, json, markdown or csv.
func (t *Tracker) Export(userID, format string) (string, error) {
	msgs := t.History(userID)
	switch format {
	case "json":
		data, err := json.MarshalIndent(msgs, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "markdown":
		var sb strings.Builder
		sb.WriteString("# Conversation history\n\n")
		for _, m := range msgs {
			sb.WriteString(fmt.Sprintf("**%s** (%s):\n\n%s\n\n", m.Role, m.Timestamp.Format(time.RFC3339), m.Content))
		}
		return sb.String(), nil
	case "csv":
		var sb strings.Builder
		sb.WriteString("role,timestamp,content\n")
		for _, m := range msgs {
			content := strings.ReplaceAll(m.Content, `"`, `""`)
			sb.WriteString(fmt.Sprintf("%s,%s,%q\n", m.Role, m.Timestamp.Format(time.RFC3339), content))
		}
		return sb.String(), nil
	case "", "text":
		var sb strings.Builder
		for _, m := range msgs {
			sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", m.Timestamp.Format(time.RFC3339), m.Role, m.Content))
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}
