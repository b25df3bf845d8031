package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptd/promptd/internal/app"
	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/engine"
	"github.com/promptd/promptd/internal/llm"
)

// stubBackend is a scriptable llm.Backend. Stream calls return the
// queued outcomes in order; the last outcome repeats.
type stubBackend struct {
	mu          sync.Mutex
	streamCalls int
	genCalls    int
	outcomes    []streamOutcome
	generated   string
	embedding   []float64
	block       chan struct{} // when set, streams never produce
}

type streamOutcome struct {
	tokens []string
	err    error
	model  string // records which model was asked
}

func (s *stubBackend) Generate(_ context.Context, model, system, prompt string, _ llm.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genCalls++
	if s.generated != "" {
		return s.generated, nil
	}
	return "stub generation", nil
}

func (s *stubBackend) StreamGenerate(ctx context.Context, model, system string, _ []llm.Message, _ llm.Options) (llm.Stream, error) {
	s.mu.Lock()
	idx := s.streamCalls
	s.streamCalls++
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	var outcome *streamOutcome
	if idx >= 0 {
		s.outcomes[idx].model = model
		outcome = &s.outcomes[idx]
	}
	block := s.block
	s.mu.Unlock()

	if block != nil {
		ch := make(chan llm.StreamChunk)
		go func() {
			<-block
			close(ch)
		}()
		return ch, nil
	}
	if outcome == nil {
		return nil, errors.New("no scripted outcome")
	}
	if outcome.err != nil {
		return nil, outcome.err
	}

	ch := make(chan llm.StreamChunk, len(outcome.tokens)+1)
	for _, tok := range outcome.tokens {
		ch <- llm.TextChunk{Text: tok}
	}
	close(ch)
	return ch, nil
}

func (s *stubBackend) Embed(_ context.Context, _, _ string) ([]float64, error) {
	if s.embedding == nil {
		return []float64{1, 0, 0}, nil
	}
	return s.embedding, nil
}

func (s *stubBackend) streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCalls
}

func testApp(t *testing.T, backend llm.Backend) *app.App {
	t.Helper()
	cfg := &config.Config{
		Port:    0,
		DataDir: t.TempDir(),
		Ollama:  config.OllamaConfig{URL: "http://127.0.0.1:1"},
		Search:  config.SearchConfig{API: "duckduckgo"},
		Tools:   config.ToolsConfig{Enabled: false, SafeMode: true, MaxInputLen: 12000},
		Models: config.ModelsConfig{
			Chat:      "chat-model",
			Reasoning: "reasoning-model",
			Coder:     "coder-model",
			Fast:      "fast-model",
			Vision:    "vision-model",
			Embedding: "embed-model",
			Reranker:  "rerank-model",
			Planner:   "planner-model",
		},
		Limits: config.LimitsConfig{
			CacheMaxEntries:   500,
			CacheTTL:          12 * time.Hour,
			CacheFastTTL:      7 * 24 * time.Hour,
			SemanticThreshold: 0.92,
			MemoryMaxEntries:  500,
			MemoryTTL:         30 * 24 * time.Hour,
			AttemptTimeout:    30 * time.Second,
		},
	}
	application, err := app.NewWithBackend(cfg, t.TempDir(), backend)
	require.NoError(t, err)
	t.Cleanup(application.Shutdown)
	return application
}

type eventLog struct {
	mu     sync.Mutex
	events []engine.Event
}

func (l *eventLog) emit(ev engine.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

func (l *eventLog) last() engine.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func TestArithmeticFastPath(t *testing.T) {
	backend := &stubBackend{}
	a := testApp(t, backend)
	log := &eventLog{}

	resp, meta, err := a.Engine.Process(context.Background(),
		&engine.Request{Prompt: "28 - 4 + 2", Fast: true}, log.emit)
	require.NoError(t, err)
	require.Contains(t, resp, "Result\n- 28-4+2 = 26")
	require.Equal(t, "fast", meta.Route)
	require.Zero(t, backend.streams(), "no backend call for local solver hits")
	require.Equal(t, engine.EventDone, log.last().Type)
}

func TestGreetingFastPath(t *testing.T) {
	backend := &stubBackend{}
	a := testApp(t, backend)
	log := &eventLog{}

	resp, meta, err := a.Engine.Process(context.Background(),
		&engine.Request{Prompt: "hi"}, log.emit)
	require.NoError(t, err)
	require.Contains(t, resp, "Result\n- Hi!")
	require.Equal(t, "greeting", meta.Route)
	require.Zero(t, backend.streams())
}

func TestWordProblemLocalMath(t *testing.T) {
	backend := &stubBackend{}
	a := testApp(t, backend)
	log := &eventLog{}

	prompt := "i have 28 apples and i eat 4 then i buy other 2 apples how many apples do i have right now?"
	resp, meta, err := a.Engine.Process(context.Background(),
		&engine.Request{Prompt: prompt, Task: "chat"}, log.emit)
	require.NoError(t, err)
	require.Contains(t, resp, "Answer: 26")
	require.Equal(t, engine.LocalMathModel, meta.Model)
	require.Zero(t, backend.streams())

	types := log.types()
	require.Equal(t, engine.EventIntent, types[0], "intent classification is the first event")
	require.Equal(t, engine.EventDone, types[len(types)-1])
}

func TestCacheRoundTrip(t *testing.T) {
	backend := &stubBackend{outcomes: []streamOutcome{
		{tokens: []string{"Thinking\n- steps\n\nResult\n- cached body"}},
	}}
	a := testApp(t, backend)

	req := func() *engine.Request {
		return &engine.Request{Prompt: "explain the difference between concurrency and parallelism in depth"}
	}

	first, meta1, err := a.Engine.Process(context.Background(), req(), func(engine.Event) {})
	require.NoError(t, err)
	require.False(t, meta1.CacheHit)

	second, meta2, err := a.Engine.Process(context.Background(), req(), func(engine.Event) {})
	require.NoError(t, err)
	require.True(t, meta2.CacheHit, "second request within the TTL hits the cache")
	require.Equal(t, first, second, "cached responses are byte-identical")
	require.Equal(t, 1, backend.streams(), "only the first request reaches the backend")
}

func TestRankingWithoutSourcesRefuses(t *testing.T) {
	backend := &stubBackend{}
	a := testApp(t, backend)

	before := a.Cache.Len()
	resp, _, err := a.Engine.Process(context.Background(),
		&engine.Request{Prompt: "top 10 LLMs", AutoWeb: true}, func(engine.Event) {})
	require.NoError(t, err)
	require.Contains(t, resp, "grounded ranking")
	require.Zero(t, backend.streams(), "ungrounded ranking never reaches the backend")
	require.Equal(t, before, a.Cache.Len(), "refusals are not cached")
}

func TestFallbackOnMemoryError(t *testing.T) {
	backend := &stubBackend{outcomes: []streamOutcome{
		{err: &llm.BackendError{StatusCode: 500, Body: "model requires more system memory than available (not enough memory)"}},
		{tokens: []string{"Thinking\n- recovered\n\n", "Result\n- fallback answer"}},
	}}
	a := testApp(t, backend)
	log := &eventLog{}

	resp, meta, err := a.Engine.Process(context.Background(),
		&engine.Request{Prompt: "explain how the scheduler decides preemption in long running programs"}, log.emit)
	require.NoError(t, err)
	require.Contains(t, resp, "fallback answer")
	require.Equal(t, 2, backend.streams())

	types := log.types()
	require.Contains(t, types, engine.EventModelFallback)
	require.Contains(t, types, engine.EventModelRetryStart)
	require.Contains(t, types, engine.EventModelRetryDone)
	require.Equal(t, engine.EventDone, types[len(types)-1])

	backend.mu.Lock()
	secondModel := backend.outcomes[1].model
	backend.mu.Unlock()
	require.Equal(t, secondModel, meta.Model, "meta reports the model that actually answered")
}

func TestSecondFailureIsTerminal(t *testing.T) {
	memErr := &llm.BackendError{StatusCode: 500, Body: "not enough memory"}
	backend := &stubBackend{outcomes: []streamOutcome{{err: memErr}, {err: memErr}}}
	a := testApp(t, backend)
	log := &eventLog{}

	_, _, err := a.Engine.Process(context.Background(),
		&engine.Request{Prompt: "explain how the scheduler decides preemption in long running programs"}, log.emit)
	require.Error(t, err)

	types := log.types()
	require.Contains(t, types, engine.EventModelRetryFailed)
	require.Equal(t, engine.EventError, types[len(types)-1], "error is the final event")
	require.NotContains(t, types, engine.EventDone)
}

func TestCancellation(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{})}
	a := testApp(t, backend)
	log := &eventLog{}

	done := make(chan error, 1)
	go func() {
		_, _, err := a.Engine.Process(context.Background(),
			&engine.Request{
				RequestID: "req-cancel-1",
				Prompt:    "write an exhaustive essay on the history of operating system design",
			}, log.emit)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return backend.streams() > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, a.Engine.Active.Cancel("req-cancel-1"))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not stop after cancel")
	}
	close(backend.block)

	types := log.types()
	require.NotContains(t, types, engine.EventDone, "no done after cancel")
	require.Equal(t, engine.EventError, types[len(types)-1])
	require.Equal(t, "cancelled", log.last().ErrorKind)

	require.False(t, a.Engine.Active.Cancel("req-cancel-1"), "second cancel finds nothing")
}
