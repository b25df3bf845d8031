package engine

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/promptd/promptd/internal/intent"
	"github.com/promptd/promptd/internal/llm"
	"github.com/promptd/promptd/internal/router"
)

const phaseDelay = 80 * time.Millisecond

// retryReason classifies why an attempt failed recoverably
type retryReason string

const (
	reasonMemory  retryReason = "insufficient_memory"
	reasonTimeout retryReason = "timeout"
)

// phasesFor returns the cosmetic reasoning-phase sequence for a request
func phasesFor(verdict intent.Verdict, webUsed bool) []string {
	if verdict.Intent == intent.MathReasoning {
		switch verdict.Complexity {
		case intent.ComplexityLow:
			return []string{PhaseReasoning}
		case intent.ComplexityMedium:
			return []string{PhaseUnderstanding, PhaseReasoning}
		}
	}
	if verdict.Intent == intent.SimpleQA {
		return []string{PhaseGenerating}
	}
	phases := []string{PhaseUnderstanding, PhasePlanning}
	if webUsed {
		phases = append(phases, PhaseResearch)
	}
	return append(phases, PhaseReasoning, PhaseGenerating)
}

// generate streams from the selected model with the fallback state
// machine: one recoverable failure (memory sentinel or per-attempt
// deadline) retries on the deterministic fallback model; a second
// failure is terminal. Phase events are emitted concurrently and never
// block token delivery.
func (e *Engine) generate(ctx context.Context, req *Request, route router.Route, verdict intent.Verdict, prompt string, opts llm.Options, webUsed bool, emit Emitter) (string, string, error) {
	// Phase emission runs beside the stream; tokens and phases share the
	// emitter through a serializing channel.
	events := make(chan Event, 64)
	emitterDone := make(chan struct{})
	go func() {
		defer close(emitterDone)
		for ev := range events {
			emit(ev)
		}
	}()

	phaseCtx, stopPhases := context.WithCancel(ctx)
	phasesDone := make(chan struct{})
	defer func() {
		stopPhases()
		<-phasesDone
		close(events)
		<-emitterDone
	}()
	go func() {
		defer close(phasesDone)
		for _, phase := range phasesFor(verdict, webUsed) {
			select {
			case <-phaseCtx.Done():
				return
			case <-time.After(phaseDelay):
			}
			select {
			case events <- Event{Type: EventReasoningPhase, RequestID: req.RequestID, Phase: phase}:
			case <-phaseCtx.Done():
				return
			}
		}
	}()

	send := func(ev Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	model := route.Model
	text, reason, err := e.attempt(ctx, model, route, prompt, opts, req.RequestID, send)
	if err == nil {
		return text, model, nil
	}
	if ctx.Err() != nil {
		return "", model, llm.ErrCancelled
	}
	if reason == "" {
		return "", model, err
	}

	// Recoverable failure: retry once on the fallback model. The retry
	// events instruct clients to drop previously streamed tokens.
	fallback := router.Fallback(verdict, model, e.cfg.Models)
	log.Info("model fallback", "from", model, "to", fallback, "reason", string(reason))
	send(Event{Type: EventModelFallback, RequestID: req.RequestID, Data: map[string]interface{}{
		"from": model, "to": fallback, "reason": string(reason),
	}})
	send(Event{Type: EventModelRetryStart, RequestID: req.RequestID, Data: map[string]interface{}{
		"model": fallback,
	}})

	text, _, err = e.attempt(ctx, fallback, route, prompt, opts, req.RequestID, send)
	if err != nil {
		if ctx.Err() != nil {
			return "", fallback, llm.ErrCancelled
		}
		send(Event{Type: EventModelRetryFailed, RequestID: req.RequestID, Data: map[string]interface{}{
			"model": fallback,
		}})
		return "", fallback, &PipelineError{Kind: "timeout", Message: "generation failed after fallback: " + err.Error()}
	}
	send(Event{Type: EventModelRetryDone, RequestID: req.RequestID, Data: map[string]interface{}{
		"model": fallback,
	}})
	return text, fallback, nil
}

// attempt streams one generation pass. A non-empty retryReason marks
// the failure recoverable.
func (e *Engine) attempt(ctx context.Context, model string, route router.Route, prompt string, opts llm.Options, requestID string, send func(Event)) (string, retryReason, error) {
	start := time.Now()

	attemptCtx := ctx
	var cancelAttempt context.CancelFunc
	if deadline := e.cfg.AttemptTimeout(model); deadline > 0 {
		attemptCtx, cancelAttempt = context.WithTimeout(ctx, deadline)
		defer cancelAttempt()
	}

	system := router.SystemPrompt(route.SystemPromptID)
	stream, err := e.backend.StreamGenerate(attemptCtx, model, system,
		[]llm.Message{{Role: "user", Content: prompt}}, opts)
	if err != nil {
		e.Stats.Record(model, time.Since(start), true)
		return "", classifyFailure(err, attemptCtx, ctx), err
	}

	var sb strings.Builder
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				e.Stats.Record(model, time.Since(start), false)
				return sb.String(), "", nil
			}
			switch c := chunk.(type) {
			case llm.TextChunk:
				sb.WriteString(c.Text)
				send(Event{Type: EventToken, RequestID: requestID, Token: c.Text})
			case llm.ErrorChunk:
				e.Stats.Record(model, time.Since(start), true)
				return "", classifyFailure(c.Err, attemptCtx, ctx), c.Err
			}
		case <-attemptCtx.Done():
			e.Stats.Record(model, time.Since(start), true)
			if ctx.Err() != nil {
				return "", "", llm.ErrCancelled
			}
			return "", reasonTimeout, attemptCtx.Err()
		}
	}
}

// classifyFailure decides whether an attempt failure is recoverable.
// Client cancellation is never retried.
func classifyFailure(err error, attemptCtx, parent context.Context) retryReason {
	if parent.Err() != nil {
		return ""
	}
	if llm.IsInsufficientMemory(err) {
		return reasonMemory
	}
	if attemptCtx.Err() == context.DeadlineExceeded {
		return reasonTimeout
	}
	return ""
}
