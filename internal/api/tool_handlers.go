package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/promptd/promptd/internal/llm"
	"github.com/promptd/promptd/internal/tools"
)

// toolHandler returns a handler for one tool endpoint
func (s *Server) toolHandler(name string) http.HandlerFunc {
	kind, _ := tools.ParseKind(name)
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.app.Dispatcher.Enabled() {
			s.writeError(w, "tools_disabled", "tool subsystem is disabled", http.StatusForbidden)
			return
		}
		var args tools.Args
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			s.writeError(w, "bad_request", "invalid JSON body", http.StatusBadRequest)
			return
		}
		result, err := s.app.Dispatcher.Run(r.Context(), kind, args)
		if err != nil {
			errKind := string(tools.KindOf(err))
			if errKind == string(tools.ErrTimeout) {
				errKind = "sandbox_timeout"
			}
			s.writeError(w, errKind, err.Error(), statusFor(errKind))
			return
		}
		s.writeJSON(w, result)
	}
}

// handleToolChain runs an ordered tool chain, then passes the aggregate
// context to the model for the final answer.
func (s *Server) handleToolChain(w http.ResponseWriter, r *http.Request) {
	if !s.app.Dispatcher.Enabled() {
		s.writeError(w, "tools_disabled", "tool subsystem is disabled", http.StatusForbidden)
		return
	}
	var req struct {
		Steps  []tools.Step `json:"steps"`
		Prompt string       `json:"prompt,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Steps) == 0 {
		s.writeError(w, "bad_request", "missing steps", http.StatusBadRequest)
		return
	}

	outcome := s.app.Dispatcher.RunChain(r.Context(), req.Steps)

	finalPrompt := req.Prompt
	if finalPrompt == "" {
		finalPrompt = "Summarize the tool results below and answer the implied question."
	}
	answer, err := s.app.Backend.Generate(r.Context(), s.app.Config.Models.Chat,
		"Use the tool results to answer. Format with a Thinking section and a Result section.",
		finalPrompt+"\n\nTool results:\n"+outcome.Context, llm.Options{})
	if err != nil {
		// The chain results still have value without the final pass
		answer = "Tool chain completed; model summary unavailable: " + err.Error()
	}

	s.writeJSON(w, map[string]interface{}{
		"steps":    outcome.Steps,
		"response": strings.TrimSpace(answer),
	})
}
