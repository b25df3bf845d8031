package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/promptd/promptd/internal/config"
)

// Client talks to an Ollama-compatible LM backend over HTTP
type Client struct {
	baseURL   string
	keepAlive string
	client    *http.Client
}

// NewClient creates a backend client from configuration
func NewClient(cfg config.OllamaConfig) *Client {
	timeout := 300 * time.Second
	if cfg.BodyTimeoutMs > 0 {
		timeout = time.Duration(cfg.BodyTimeoutMs) * time.Millisecond
	}
	headersTimeout := 30 * time.Second
	if cfg.HeadersTimeoutMs > 0 {
		headersTimeout = time.Duration(cfg.HeadersTimeoutMs) * time.Millisecond
	}

	return &Client{
		baseURL:   cfg.URL,
		keepAlive: cfg.KeepAlive,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				ResponseHeaderTimeout: headersTimeout,
			},
		},
	}
}

type chatRequest struct {
	Model     string       `json:"model"`
	Messages  []Message    `json:"messages"`
	Stream    bool         `json:"stream"`
	KeepAlive string       `json:"keep_alive,omitempty"`
	Options   *chatOptions `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type chatStreamEvent struct {
	Model   string `json:"model"`
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Done            bool   `json:"done"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

func (c *Client) buildOptions(opts Options) *chatOptions {
	co := &chatOptions{}
	if opts.Temperature != nil {
		co.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		co.NumPredict = &opts.MaxTokens
	}
	return co
}

// Generate performs a blocking text generation call
func (c *Client) Generate(ctx context.Context, model, system, prompt string, opts Options) (string, error) {
	messages := []Message{}
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	request := chatRequest{
		Model:     model,
		Messages:  messages,
		Stream:    false,
		KeepAlive: c.keepAlive,
		Options:   c.buildOptions(opts),
	}

	resp, err := c.post(ctx, "/api/chat", request)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var event chatStreamEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if event.Error != "" {
		return "", &BackendError{StatusCode: http.StatusOK, Body: event.Error}
	}
	if event.Message == nil {
		return "", fmt.Errorf("backend returned no message")
	}
	return event.Message.Content, nil
}

// StreamGenerate performs a server-streamed generation call and returns a
// channel of chunks. The channel closes when the backend finishes; errors
// after streaming began arrive as a trailing ErrorChunk.
func (c *Client) StreamGenerate(ctx context.Context, model, system string, messages []Message, opts Options) (Stream, error) {
	all := []Message{}
	if system != "" {
		all = append(all, Message{Role: "system", Content: system})
	}
	all = append(all, messages...)

	request := chatRequest{
		Model:     model,
		Messages:  all,
		Stream:    true,
		KeepAlive: c.keepAlive,
		Options:   c.buildOptions(opts),
	}

	resp, err := c.post(ctx, "/api/chat", request)
	if err != nil {
		return nil, err
	}

	streamChan := make(chan StreamChunk, 100)
	go c.processStream(resp, streamChan)
	return streamChan, nil
}

// processStream decodes newline-delimited JSON events from the backend
func (c *Client) processStream(resp *http.Response, streamChan chan<- StreamChunk) {
	defer resp.Body.Close()
	defer close(streamChan)

	decoder := json.NewDecoder(resp.Body)
	for {
		var event chatStreamEvent
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				return
			}
			streamChan <- ErrorChunk{Err: fmt.Errorf("stream decode failed: %w", err)}
			return
		}

		if event.Error != "" {
			streamChan <- ErrorChunk{Err: &BackendError{StatusCode: http.StatusOK, Body: event.Error}}
			return
		}

		if event.Message != nil && event.Message.Content != "" {
			streamChan <- TextChunk{Text: event.Message.Content}
		}

		if event.Done {
			if event.PromptEvalCount > 0 || event.EvalCount > 0 {
				streamChan <- UsageChunk{
					InputTokens:  event.PromptEvalCount,
					OutputTokens: event.EvalCount,
				}
			}
			return
		}
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embed produces an embedding vector for the given text
func (c *Client) Embed(ctx context.Context, model, text string) ([]float64, error) {
	resp, err := c.post(ctx, "/api/embeddings", embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if result.Error != "" {
		return nil, &BackendError{StatusCode: http.StatusOK, Body: result.Error}
	}
	return result.Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}
