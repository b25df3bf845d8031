package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/promptd/promptd/internal/memory"
)

// handleMemoryStore writes an entry explicitly (force:true semantics)
func (s *Server) handleMemoryStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt   string `json:"prompt"`
		Response string `json:"response"`
		UserID   string `json:"userId"`
		TeamID   string `json:"teamId,omitempty"`
		Type     string `json:"type,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		s.writeError(w, "bad_request", "missing prompt", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = "default"
	}

	var embedding []float64
	if vec, err := s.app.Backend.Embed(r.Context(), s.app.Config.Models.Embedding, req.Prompt); err == nil {
		embedding = vec
	}

	entry, err := s.app.Store.Save(req.Prompt, req.Response, embedding, memory.EntryMeta{
		UserID: req.UserID,
		TeamID: req.TeamID,
		Type:   req.Type,
	})
	if err != nil {
		s.writeError(w, "internal", err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, entry)
}

// handleMemoryEntries lists entries with query filters
func (s *Server) handleMemoryEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries := s.app.Store.List(q.Get("userId"), q.Get("teamId"), q.Get("type"))
	s.writeJSON(w, map[string]interface{}{"entries": entries, "count": len(entries)})
}

// handleMemoryDelete removes one entry by id
func (s *Server) handleMemoryDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	removed, err := s.app.Store.Delete(id)
	if err != nil {
		s.writeError(w, "internal", err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		s.writeError(w, "not_found", "no entry with id "+id, http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]string{"status": "deleted", "id": id})
}

// handleMemoryTTL bulk-updates expiry per user or team
func (s *Server) handleMemoryTTL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"userId,omitempty"`
		TeamID  string `json:"teamId,omitempty"`
		TTLDays int    `json:"ttlDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.UserID == "" && req.TeamID == "") {
		s.writeError(w, "bad_request", "userId or teamId required", http.StatusBadRequest)
		return
	}
	updated, err := s.app.Store.UpdateTTL(req.UserID, req.TeamID, time.Duration(req.TTLDays)*24*time.Hour)
	if err != nil {
		s.writeError(w, "internal", err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]interface{}{"updated": updated})
}

// handleMemoryPurge drops expired entries
func (s *Server) handleMemoryPurge(w http.ResponseWriter, r *http.Request) {
	removed, err := s.app.Store.Purge()
	if err != nil {
		s.writeError(w, "internal", err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]interface{}{"purged": removed})
}

// handleMemoryMessage appends a conversation message directly
func (s *Server) handleMemoryMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"userId"`
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" || req.Role == "" {
		s.writeError(w, "bad_request", "role and content required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = "default"
	}
	s.app.Tracker.Append(req.UserID, memory.Message{Role: req.Role, Content: req.Content})
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// handleMemoryContext renders the recent conversation window
func (s *Server) handleMemoryContext(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.writeJSON(w, map[string]string{
		"userId":  userID,
		"context": s.app.Tracker.Context(userID, 10),
	})
}

// handleIsFollowUp exposes the follow-up detector
func (s *Server) handleIsFollowUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		s.writeError(w, "bad_request", "missing prompt", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, map[string]bool{"isFollowUp": memory.IsFollowUp(req.Prompt)})
}

// handleMemoryHistory returns the raw conversation ring
func (s *Server) handleMemoryHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.writeJSON(w, map[string]interface{}{
		"userId":   userID,
		"messages": s.app.Tracker.History(userID),
	})
}

// handleMemoryExport renders history as text, json, markdown or csv
func (s *Server) handleMemoryExport(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	format := r.URL.Query().Get("format")
	out, err := s.app.Tracker.Export(userID, format)
	if err != nil {
		s.writeError(w, "bad_request", err.Error(), http.StatusBadRequest)
		return
	}
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Write([]byte(out))
}

// handleMemoryClear wipes a user's conversation state
func (s *Server) handleMemoryClear(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.app.Tracker.Clear(userID)
	s.writeJSON(w, map[string]string{"status": "cleared", "userId": userID})
}
