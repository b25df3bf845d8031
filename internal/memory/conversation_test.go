package memory

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrackerRingBound(t *testing.T) {
	tr := NewTracker(nil)
	for i := 0; i < 40; i++ {
		tr.Append("u", Message{Role: "user", Content: fmt.Sprintf("message %d", i)})
	}
	hist := tr.History("u")
	require.Len(t, hist, 15, "ring buffer is bounded at 15")
	require.Equal(t, "message 39", hist[len(hist)-1].Content, "eviction is FIFO")
}

func TestTrackerTimestamps(t *testing.T) {
	tr := NewTracker(nil)
	tr.Append("u", Message{Role: "user", Content: "a"})
	tr.Append("u", Message{Role: "assistant", Content: "b"})
	hist := tr.History("u")
	require.False(t, hist[0].Timestamp.After(hist[1].Timestamp), "timestamps are monotone")
}

func TestLastTurn(t *testing.T) {
	tr := NewTracker(nil)
	_, _, ok := tr.LastTurn("u")
	require.False(t, ok)

	tr.Append("u", Message{Role: "user", Content: "question"})
	tr.Append("u", Message{Role: "assistant", Content: "answer"})
	user, assistant, ok := tr.LastTurn("u")
	require.True(t, ok)
	require.Equal(t, "question", user)
	require.Equal(t, "answer", assistant)
}

func TestSummaryEmission(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "memory.json"), 500, time.Hour)
	require.NoError(t, err)
	tr := NewTracker(store)

	for i := 0; i < 8; i++ {
		tr.Append("u", Message{Role: "user", Content: fmt.Sprintf("topic %d question", i)})
	}
	entries := store.List("u", "", "summary")
	require.Len(t, entries, 1, "a summary entry is written every 8 messages")
	require.Contains(t, entries[0].Response, "Summary of")
}

func TestIsFollowUp(t *testing.T) {
	followUps := []string{
		"tell me more",
		"what about rust?",
		"why is that?",
		"expand on that",
	}
	for _, p := range followUps {
		require.True(t, IsFollowUp(p), "expected follow-up: %q", p)
	}

	fresh := []string{
		"write a web scraper in python for the hacker news front page",
		"how do goroutines work under the hood in the scheduler implementation",
	}
	for _, p := range fresh {
		require.False(t, IsFollowUp(p), "expected fresh prompt: %q", p)
	}
}

func TestExport(t *testing.T) {
	tr := NewTracker(nil)
	tr.Append("u", Message{Role: "user", Content: "hello, \"world\""})
	tr.Append("u", Message{Role: "assistant", Content: "hi"})

	text, err := tr.Export("u", "text")
	require.NoError(t, err)
	require.Contains(t, text, "user: hello")

	jsonOut, err := tr.Export("u", "json")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(jsonOut), "["))

	csvOut, err := tr.Export("u", "csv")
	require.NoError(t, err)
	require.Contains(t, csvOut, "role,timestamp,content")

	md, err := tr.Export("u", "markdown")
	require.NoError(t, err)
	require.Contains(t, md, "# Conversation history")

	_, err = tr.Export("u", "xml")
	require.Error(t, err)
}
