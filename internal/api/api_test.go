package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptd/promptd/internal/app"
	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/llm"
)

// failingBackend fails every call; fast-path tests prove no backend use
type failingBackend struct{ t *testing.T }

func (f *failingBackend) Generate(context.Context, string, string, string, llm.Options) (string, error) {
	return "", &llm.BackendError{StatusCode: 500, Body: "backend must not be called"}
}

func (f *failingBackend) StreamGenerate(context.Context, string, string, []llm.Message, llm.Options) (llm.Stream, error) {
	return nil, &llm.BackendError{StatusCode: 500, Body: "backend must not be called"}
}

func (f *failingBackend) Embed(context.Context, string, string) ([]float64, error) {
	return nil, &llm.BackendError{StatusCode: 500, Body: "backend must not be called"}
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		DataDir: t.TempDir(),
		Ollama:  config.OllamaConfig{URL: "http://127.0.0.1:1"},
		Search:  config.SearchConfig{API: "duckduckgo"},
		Tools:   config.ToolsConfig{Enabled: false, SafeMode: true, MaxInputLen: 12000},
		Models: config.ModelsConfig{
			Chat: "chat-model", Reasoning: "reasoning-model", Coder: "coder-model",
			Fast: "fast-model", Vision: "vision-model", Embedding: "embed-model",
			Reranker: "rerank-model", Planner: "planner-model",
		},
		Limits: config.LimitsConfig{
			CacheMaxEntries: 500, CacheTTL: 12 * time.Hour, CacheFastTTL: 7 * 24 * time.Hour,
			SemanticThreshold: 0.92, MemoryMaxEntries: 500, MemoryTTL: 30 * 24 * time.Hour,
			AttemptTimeout: 5 * time.Second,
		},
	}
	application, err := app.NewWithBackend(cfg, t.TempDir(), &failingBackend{t: t})
	require.NoError(t, err)
	t.Cleanup(application.Shutdown)

	ts := httptest.NewServer(NewServer(application).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealth(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "promptd", body["service"])
}

func TestAutoArithmetic(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/api/auto", map[string]interface{}{
		"prompt": "28 - 4 + 2",
		"fast":   true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body["response"], "Result\n- 28-4+2 = 26")

	meta := body["meta"].(map[string]interface{})
	require.Equal(t, "fast", meta["route"])
}

func TestAutoGreeting(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/api/auto", map[string]interface{}{"prompt": "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body["response"], "Result\n- Hi!")

	meta := body["meta"].(map[string]interface{})
	require.Equal(t, "greeting", meta["route"])
}

func TestAutoMissingPrompt(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/api/auto", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", body["error"])
}

func TestRankingRefusalWithoutSources(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/api/auto", map[string]interface{}{
		"prompt":  "top 10 LLMs",
		"autoWeb": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body["response"], "grounded ranking")
}

func TestCancelUnknownRequest(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/api/cancel", map[string]interface{}{
		"requestId": "never-seen",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "unknown cancel targets are not a 404")
	require.Equal(t, "not_found", body["status"])
}

func TestToolsDisabled(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/api/tools/python", map[string]interface{}{
		"code": "print(1)",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "tools_disabled", body["error"])
}

func TestCustomRequiresKnownTask(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/api/custom", map[string]interface{}{
		"prompt": "hello there",
		"task":   "nonsense",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", body["error"])
}

func TestMemoryEndpoints(t *testing.T) {
	ts := testServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/memory/message", map[string]interface{}{
		"userId": "ada", "role": "user", "content": "hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	httpResp, err := http.Get(ts.URL + "/api/memory/history/ada")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var hist map[string]interface{}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&hist))
	require.Len(t, hist["messages"], 1)

	resp, followup := postJSON(t, ts.URL+"/api/memory/is-followup", map[string]interface{}{
		"prompt": "tell me more",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, followup["isFollowUp"])
}

func TestReportLifecycleNotFound(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/api/reports/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStats(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
