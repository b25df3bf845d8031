package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/promptd/promptd/internal/llm"
)

// handleImage generates an image artifact
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		s.writeError(w, "bad_request", "missing prompt", http.StatusBadRequest)
		return
	}
	path, err := s.app.Media.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		s.writeError(w, "upstream_unavailable", err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, map[string]string{"path": path})
}

// handleVideo renders a short video artifact
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
		Frames int    `json:"frames,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		s.writeError(w, "bad_request", "missing prompt", http.StatusBadRequest)
		return
	}
	path, err := s.app.Media.GenerateVideo(r.Context(), req.Prompt, req.Frames)
	if err != nil {
		s.writeError(w, "upstream_unavailable", err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, map[string]string{"path": path})
}

// handleAgentRun plans with the planner model, then executes each step
// with the chat model, aggregating into a final answer.
func (s *Server) handleAgentRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal   string `json:"goal"`
		UserID string `json:"userId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Goal == "" {
		s.writeError(w, "bad_request", "missing goal", http.StatusBadRequest)
		return
	}

	plan, err := s.app.Backend.Generate(r.Context(), s.app.Config.Models.Planner,
		"Produce a short numbered plan (3-5 steps) to accomplish the goal. Reply with the plan only.",
		req.Goal, llm.Options{MaxTokens: 256})
	if err != nil {
		s.writeError(w, "backend_error", err.Error(), http.StatusBadGateway)
		return
	}

	var steps []string
	for _, line := range strings.Split(plan, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		steps = append(steps, line)
		if len(steps) >= 5 {
			break
		}
	}

	var transcript strings.Builder
	for i, step := range steps {
		out, err := s.app.Backend.Generate(r.Context(), s.app.Config.Models.Chat,
			"Execute this step of a plan and report the outcome briefly.",
			fmt.Sprintf("Goal: %s\nPlan:\n%s\n\nExecute step %d: %s", req.Goal, plan, i+1, step),
			llm.Options{MaxTokens: 512})
		if err != nil {
			transcript.WriteString(fmt.Sprintf("step %d failed: %v\n", i+1, err))
			continue
		}
		transcript.WriteString(fmt.Sprintf("step %d: %s\n", i+1, strings.TrimSpace(out)))
	}

	final, err := s.app.Backend.Generate(r.Context(), s.app.Config.Models.Chat,
		"Combine the step outcomes into a final answer. Format with a Thinking section and a Result section.",
		"Goal: "+req.Goal+"\n\n"+transcript.String(), llm.Options{})
	if err != nil {
		s.writeError(w, "backend_error", err.Error(), http.StatusBadGateway)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"plan":     plan,
		"steps":    steps,
		"response": final,
	})
}

// handleCancel fires the cancel handle for a request id. Unknown ids
// report not_found in the body rather than a 404.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		s.writeError(w, "bad_request", "missing requestId", http.StatusBadRequest)
		return
	}
	if s.app.Engine.Active.Cancel(req.RequestID) {
		s.writeJSON(w, map[string]string{"status": "cancelled", "requestId": req.RequestID})
		return
	}
	s.writeJSON(w, map[string]string{"status": "not_found", "requestId": req.RequestID})
}

// handleStats exposes per-model accounting
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"models":         s.app.Engine.Stats.Snapshot(),
		"activeRequests": s.app.Engine.Active.Len(),
		"cacheEntries":   s.app.Cache.Len(),
		"memoryEntries":  s.app.Store.Count(),
	})
}
