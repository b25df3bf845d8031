package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/promptd/promptd/internal/engine"
	"github.com/promptd/promptd/internal/llm"
	"github.com/promptd/promptd/internal/router"
)

// autoRequest is the JSON body shared by /api/auto, its aliases and the
// streaming endpoint.
type autoRequest struct {
	Prompt           string   `json:"prompt"`
	Task             string   `json:"task,omitempty"`
	Model            string   `json:"model,omitempty"`
	Fast             bool     `json:"fast,omitempty"`
	AutoFiles        bool     `json:"autoFiles,omitempty"`
	AutoWeb          bool     `json:"autoWeb,omitempty"`
	FilePaths        []string `json:"filePaths,omitempty"`
	ImageDescription string   `json:"imageDescription,omitempty"`
	UserID           string   `json:"userId,omitempty"`
	TeamID           string   `json:"teamId,omitempty"`
	TeamMode         bool     `json:"teamMode,omitempty"`
	UseDocIndex      bool     `json:"useDocIndex,omitempty"`
	UseEmbeddings    bool     `json:"useEmbeddings,omitempty"`
	Language         string   `json:"language,omitempty"`
	ResponseSpec     string   `json:"responseSpec,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        int      `json:"maxTokens,omitempty"`
	RequestID        string   `json:"requestId,omitempty"`
}

// toEngineRequest converts the wire form to the internal request
func (r *autoRequest) toEngineRequest() *engine.Request {
	return &engine.Request{
		RequestID:        r.RequestID,
		UserID:           r.UserID,
		TeamID:           r.TeamID,
		Prompt:           r.Prompt,
		Language:         r.Language,
		Task:             r.Task,
		Model:            r.Model,
		Temperature:      r.Temperature,
		MaxTokens:        r.MaxTokens,
		Fast:             r.Fast,
		AutoWeb:          r.AutoWeb,
		AutoFiles:        r.AutoFiles,
		UseDocIndex:      r.UseDocIndex,
		UseEmbeddings:    r.UseEmbeddings,
		TeamMode:         r.TeamMode,
		FilePaths:        r.FilePaths,
		ImageDescription: r.ImageDescription,
		ResponseSpec:     r.ResponseSpec,
	}
}

// handleAuto is the primary synchronous pipeline endpoint
func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	s.runPipeline(w, r, "")
}

// aliasHandler returns a handler that forces the task for a specialized
// endpoint.
func (s *Server) aliasHandler(task string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.runPipeline(w, r, task)
	}
}

// handleCustom accepts an explicit task in the body and validates it
func (s *Server) handleCustom(w http.ResponseWriter, r *http.Request) {
	var req autoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "bad_request", "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Task == "" {
		s.writeError(w, "bad_request", "missing task", http.StatusBadRequest)
		return
	}
	if _, ok := router.TaskFor(req.Task); !ok {
		s.writeError(w, "bad_request", "unknown task "+req.Task, http.StatusBadRequest)
		return
	}
	s.execute(w, r, &req)
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request, forcedTask string) {
	var req autoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "bad_request", "invalid JSON body", http.StatusBadRequest)
		return
	}
	if forcedTask != "" {
		req.Task = forcedTask
	}
	s.execute(w, r, &req)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, req *autoRequest) {
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, "bad_request", "missing prompt", http.StatusBadRequest)
		return
	}

	// The synchronous path drops intermediate events; the response body
	// carries the final text and meta.
	response, meta, err := s.app.Engine.Process(r.Context(), req.toEngineRequest(), func(engine.Event) {})
	if err != nil {
		kind := "backend_error"
		if pe, ok := err.(*engine.PipelineError); ok {
			kind = pe.Kind
		} else if llm.IsCancelled(err) {
			kind = "cancelled"
		}
		s.writeError(w, kind, err.Error(), statusFor(kind))
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"model":    meta.Model,
		"response": response,
		"meta":     meta,
	})
}
