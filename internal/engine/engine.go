package engine

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/promptd/promptd/internal/assemble"
	"github.com/promptd/promptd/internal/cache"
	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/intent"
	"github.com/promptd/promptd/internal/llm"
	"github.com/promptd/promptd/internal/memory"
	"github.com/promptd/promptd/internal/router"
	"github.com/promptd/promptd/internal/solver"
	"github.com/promptd/promptd/internal/tools"
)

// LocalMathModel names the virtual model reported when the word-problem
// solver answers without a backend call.
const LocalMathModel = "local-math"

// Request is the internal form both ingress paths produce
type Request struct {
	ID               string
	RequestID        string
	UserID           string
	TeamID           string
	Prompt           string
	Normalized       string
	Language         string
	Task             string
	Model            string
	Temperature      *float64
	MaxTokens        int
	Fast             bool
	AutoWeb          bool
	AutoFiles        bool
	UseDocIndex      bool
	UseEmbeddings    bool
	TeamMode         bool
	FilePaths        []string
	ImageDescription string
	ResponseSpec     string
}

// Engine owns the request pipeline
type Engine struct {
	cfg        *config.Config
	backend    llm.Backend
	tracker    *memory.Tracker
	store      *memory.Store
	cache      *cache.Cache
	assembler  *assemble.Assembler
	dispatcher *tools.Dispatcher
	Active     *ActiveRequests
	Stats      *ModelStats
}

// New wires the engine
func New(cfg *config.Config, backend llm.Backend, tracker *memory.Tracker, store *memory.Store, respCache *cache.Cache, assembler *assemble.Assembler, dispatcher *tools.Dispatcher) *Engine {
	return &Engine{
		cfg:        cfg,
		backend:    backend,
		tracker:    tracker,
		store:      store,
		cache:      respCache,
		assembler:  assembler,
		dispatcher: dispatcher,
		Active:     NewActiveRequests(),
		Stats:      NewModelStats(),
	}
}

const rankingRefusal = "Thinking\n- (omitted by request)\n\nResult\n- I can't give a grounded ranking right now: no web sources were available to cite, and I won't invent them. Enable web access or try again later."

// Process runs the full pipeline for one request, emitting events in
// order and returning the final response text and meta. The done (or
// error) event is always the last one emitted.
func (e *Engine) Process(parent context.Context, req *Request, emit Emitter) (string, *Meta, error) {
	start := time.Now()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.RequestID == "" {
		req.RequestID = req.ID
	}
	if req.UserID == "" {
		req.UserID = "default"
	}
	req.Normalized = solver.Normalize(req.Prompt)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	e.Active.Register(req.RequestID, cancel)
	defer e.Active.Deregister(req.RequestID)

	meta := &Meta{Format: "text"}

	finish := func(response string) (string, *Meta, error) {
		meta.DurationMs = time.Since(start).Milliseconds()
		emit(Event{Type: EventDone, RequestID: req.RequestID, Meta: meta})
		return response, meta, nil
	}
	fail := func(kind, msg string) (string, *Meta, error) {
		meta.DurationMs = time.Since(start).Milliseconds()
		emit(Event{Type: EventError, RequestID: req.RequestID, Error: msg, ErrorKind: kind})
		return "", meta, &PipelineError{Kind: kind, Message: msg}
	}

	// Explicit tool command bypasses the model entirely
	if kind, args, ok := tools.ParseCommand(req.Normalized); ok {
		if !e.dispatcher.Enabled() {
			return fail("tools_disabled", "tool subsystem is disabled")
		}
		result, err := e.dispatcher.Run(ctx, kind, args)
		if err != nil {
			return fail(string(tools.KindOf(err)), err.Error())
		}
		response := solver.Envelope(strings.TrimSpace(result.Output))
		meta.Route = "tool"
		meta.RouteReason = "explicit tool command"
		meta.ToolsUsed = []string{string(kind)}
		meta.ToolDurationsMs = map[string]int64{string(kind): result.DurationMs}
		emit(Event{Type: EventToken, RequestID: req.RequestID, Token: response})
		return finish(response)
	}

	// Instant conversation, riddles, then the local solver chain. The
	// first hit short-circuits the pipeline with no backend call.
	if response := solver.InstantConversation(req.Normalized); response != "" {
		meta.Route = "greeting"
		meta.RouteReason = "instant conversation"
		emit(Event{Type: EventToken, RequestID: req.RequestID, Token: response})
		return finish(response)
	}
	if response := solver.SolveRiddle(req.Normalized); response != "" {
		meta.Route = "fast"
		meta.RouteReason = "riddle table"
		emit(Event{Type: EventToken, RequestID: req.RequestID, Token: response})
		return finish(response)
	}
	if response := solver.TrySolve(req.Normalized); response != "" {
		meta.Route = "fast"
		meta.RouteReason = "local solver"
		emit(Event{Type: EventToken, RequestID: req.RequestID, Token: response})
		return finish(response)
	}

	// Intent classification
	var prevIntent intent.Intent
	if hist := e.tracker.History(req.UserID); len(hist) > 0 {
		for i := len(hist) - 1; i >= 0; i-- {
			if hist[i].Role == "user" && hist[i].Intent != "" {
				prevIntent = intent.Intent(hist[i].Intent)
				break
			}
		}
	}
	verdict := intent.Classify(req.Normalized, &intent.Context{PreviousIntent: prevIntent})
	emit(Event{Type: EventIntent, RequestID: req.RequestID, Data: map[string]interface{}{
		"intent":     verdict.Intent,
		"confidence": verdict.Confidence,
		"complexity": verdict.Complexity,
		"score":      verdict.Score,
	}})

	// Word problems answered by the local math solver
	if verdict.Intent == intent.MathReasoning {
		if answer := solver.SolveWordProblem(req.Normalized); answer != "" {
			response := solver.EnvelopeWithThinking(
				[]string{"extracted the quantities and applied each change in order"}, answer)
			meta.Route = "fast"
			meta.RouteReason = "local word-problem solver"
			meta.Model = LocalMathModel
			e.recordTurn(req, verdict, response)
			emit(Event{Type: EventToken, RequestID: req.RequestID, Token: response})
			return finish(response)
		}
	}

	// Cache probe: exact, then semantic
	cacheKey := cache.Key(string(verdict.Intent), req.Normalized)
	if cached, ok := e.cache.Get(cacheKey, req.Fast); ok {
		meta.Route = "cache"
		meta.RouteReason = "exact cache hit"
		meta.CacheHit = true
		emit(Event{Type: EventToken, RequestID: req.RequestID, Token: cached})
		return finish(cached)
	}
	var promptEmbedding []float64
	if req.UseEmbeddings {
		if vec, err := e.backend.Embed(ctx, e.cfg.Models.Embedding, req.Normalized); err == nil {
			promptEmbedding = vec
			if cached, ok := e.cache.GetSemantic(vec, req.Fast); ok {
				meta.Route = "cache"
				meta.RouteReason = "semantic cache hit"
				meta.CacheHit = true
				emit(Event{Type: EventToken, RequestID: req.RequestID, Token: cached})
				return finish(cached)
			}
		}
	}

	meta.MemoryRequested = memory.SaveTrigger(req.Normalized)

	// Route selection
	route := router.Pick(verdict, router.Params{
		TaskOverride:     req.Task,
		ModelOverride:    req.Model,
		ImageDescription: req.ImageDescription,
		PreferFast:       req.Fast,
		PromptLen:        len(req.Normalized),
	}, e.cfg.Models)
	meta.Route = route.Task
	meta.RouteReason = route.Reason
	meta.Model = route.Model

	// Context assembly
	in := assemble.Input{
		Prompt:        req.Normalized,
		UserID:        req.UserID,
		TeamID:        req.TeamID,
		TeamMode:      req.TeamMode,
		AutoFiles:     req.AutoFiles,
		AutoWeb:       req.AutoWeb,
		UseDocIndex:   req.UseDocIndex,
		UseEmbeddings: req.UseEmbeddings,
		FilePaths:     req.FilePaths,
	}
	if memory.IsFollowUp(req.Normalized) {
		if prevUser, prevReply, ok := e.tracker.LastTurn(req.UserID); ok {
			in.IsFollowUp = true
			in.PreviousUser = prevUser
			in.PreviousReply = prevReply
		}
	}
	assembled := e.assembler.Build(ctx, in, verdict, route)
	meta.Files = assembled.Files
	meta.AutoFiles = assembled.AutoFiles
	meta.MemoryHits = assembled.MemoryHits
	meta.WebUsed = assembled.WebUsed
	meta.RAGSources = assembled.RAGSources

	if assembled.WebUsed {
		emit(Event{Type: EventWebSearchResults, RequestID: req.RequestID, Data: map[string]interface{}{
			"results": assembled.WebSources,
		}})
	}

	// Ranking without sources refuses rather than fabricates
	if verdict.Intent == intent.RankingQuery && len(assembled.WebSources) == 0 {
		e.recordTurn(req, verdict, rankingRefusal)
		emit(Event{Type: EventToken, RequestID: req.RequestID, Token: rankingRefusal})
		return finish(rankingRefusal)
	}

	composed := assembled.Prompt
	if req.ImageDescription != "" {
		composed = "Image description: " + req.ImageDescription + "\n\n" + composed
	}

	// The user message is recorded before generation; the reply only
	// after a successful done.
	e.tracker.Append(req.UserID, memory.Message{
		Role:     "user",
		Content:  req.Normalized,
		Intent:   string(verdict.Intent),
		Quality:  verdict.Score,
		Language: req.Language,
	})

	opts := llm.Options{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	text, usedModel, err := e.generate(ctx, req, route, verdict, composed, opts, assembled.WebUsed, emit)
	if err != nil {
		if llm.IsCancelled(err) || ctx.Err() != nil {
			return fail("cancelled", "request cancelled")
		}
		if be, ok := err.(*llm.BackendError); ok {
			return fail("backend_error", be.Error())
		}
		if pe, ok := err.(*PipelineError); ok {
			return fail(pe.Kind, pe.Message)
		}
		return fail("backend_error", err.Error())
	}
	meta.Model = usedModel

	// Post-validation, format detection, egress
	text = e.validate(ctx, req, verdict, route, composed, assembled, opts, text, meta)

	formatted := e.formatResponse(text)
	meta.Format = formatted

	e.tracker.Append(req.UserID, memory.Message{Role: "assistant", Content: text})

	if verdict.Intent != intent.RankingQuery {
		e.cache.Set(cacheKey, text, string(verdict.Intent), promptEmbedding)
	}

	if meta.MemoryRequested {
		if _, err := e.store.Save(req.Normalized, summarizeForMemory(text), promptEmbedding, memory.EntryMeta{
			UserID: req.UserID,
			TeamID: req.TeamID,
			Type:   "saved",
		}); err != nil {
			log.Warn("failed to save memory entry", "error", err)
		}
	}

	return finish(text)
}

// recordTurn appends both halves of a locally-answered turn
func (e *Engine) recordTurn(req *Request, verdict intent.Verdict, response string) {
	e.tracker.Append(req.UserID, memory.Message{
		Role:    "user",
		Content: req.Normalized,
		Intent:  string(verdict.Intent),
		Quality: verdict.Score,
	})
	e.tracker.Append(req.UserID, memory.Message{Role: "assistant", Content: response})
}

// summarizeForMemory trims the response body for durable storage
func summarizeForMemory(text string) string {
	if idx := strings.Index(text, "Result"); idx >= 0 {
		text = text[idx:]
	}
	if len(text) > 600 {
		text = text[:600] + "…"
	}
	return text
}

// PipelineError is a typed boundary error
type PipelineError struct {
	Kind    string
	Message string
}

func (e *PipelineError) Error() string { return e.Kind + ": " + e.Message }
