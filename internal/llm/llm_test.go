package llm

import (
	"context"
	"errors"
	"testing"
)

func TestIsInsufficientMemory(t *testing.T) {
	cases := map[error]bool{
		&BackendError{StatusCode: 500, Body: "model requires more system memory"}: true,
		errors.New("NOT ENOUGH MEMORY to load model"):                            true,
		errors.New("connection refused"):                                         false,
		nil:                                                                      false,
	}
	for err, want := range cases {
		if got := IsInsufficientMemory(err); got != want {
			t.Errorf("IsInsufficientMemory(%v) = %v, want %v", err, got, want)
		}
	}
}

func TestCollect(t *testing.T) {
	ch := make(chan StreamChunk, 3)
	ch <- TextChunk{Text: "hello "}
	ch <- TextChunk{Text: "world"}
	ch <- UsageChunk{InputTokens: 3, OutputTokens: 2}
	close(ch)

	text, err := Collect(context.Background(), ch)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("Collect = %q", text)
	}
}

func TestCollectErrorChunk(t *testing.T) {
	ch := make(chan StreamChunk, 2)
	ch <- TextChunk{Text: "partial"}
	ch <- ErrorChunk{Err: errors.New("stream broke")}
	close(ch)

	text, err := Collect(context.Background(), ch)
	if err == nil {
		t.Fatal("expected error")
	}
	if text != "partial" {
		t.Errorf("partial text = %q", text)
	}
}
