package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message represents a single conversation message sent to the backend
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Options carries per-request generation parameters
type Options struct {
	Temperature *float64
	MaxTokens   int
}

// StreamChunk represents different types of streaming responses
type StreamChunk interface {
	ChunkType() string
}

// TextChunk represents token text in the stream
type TextChunk struct {
	Text string `json:"text"`
}

func (c TextChunk) ChunkType() string { return "text" }

// UsageChunk carries token accounting from the final stream event
type UsageChunk struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

func (c UsageChunk) ChunkType() string { return "usage" }

// Stream is a channel of chunks produced by a streaming generation call.
// The channel is closed when the backend finishes or errors; a trailing
// ErrorChunk reports a mid-stream failure.
type Stream <-chan StreamChunk

// ErrorChunk reports a failure that occurred after streaming began
type ErrorChunk struct {
	Err error
}

func (c ErrorChunk) ChunkType() string { return "error" }

// Backend is the interface the pipeline consumes. The production
// implementation is Client; tests substitute stubs.
type Backend interface {
	Generate(ctx context.Context, model, system, prompt string, opts Options) (string, error)
	StreamGenerate(ctx context.Context, model, system string, messages []Message, opts Options) (Stream, error)
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// BackendError wraps a non-2xx response from the LM backend
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Body)
}

var memorySentinels = []string{
	"not enough memory",
	"insufficient memory",
	"out of memory",
	"requires more system memory",
}

// IsInsufficientMemory reports whether a backend error body indicates the
// model could not be loaded for lack of memory. These errors trigger a
// fallback to a smaller model rather than surfacing to the user.
func IsInsufficientMemory(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range memorySentinels {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// ErrCancelled is returned when the client cancels a request in flight
var ErrCancelled = errors.New("cancelled")

// IsCancelled reports whether an error stems from context cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled)
}

// Collect drains a stream into its full text, stopping on ctx cancellation
// or an ErrorChunk.
func Collect(ctx context.Context, stream Stream) (string, error) {
	var sb strings.Builder
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return sb.String(), nil
			}
			switch c := chunk.(type) {
			case TextChunk:
				sb.WriteString(c.Text)
			case ErrorChunk:
				return sb.String(), c.Err
			}
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		}
	}
}
