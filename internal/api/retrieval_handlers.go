package api

import (
	"encoding/json"
	"net/http"

	"github.com/promptd/promptd/internal/retrieval"
)

// handleDocsIndex rebuilds (POST) or inspects (GET) the keyword index
func (s *Server) handleDocsIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.writeJSON(w, map[string]interface{}{
			"files": s.app.DocIndex.Count(),
			"stale": s.app.DocIndex.Stale(),
		})
		return
	}

	var req struct {
		Root string `json:"root"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Root == "" {
		s.writeError(w, "bad_request", "missing root", http.StatusBadRequest)
		return
	}
	count, err := s.app.DocIndex.Build(req.Root)
	if err != nil {
		s.writeError(w, "internal", err.Error(), http.StatusInternalServerError)
		return
	}
	if s.app.Watcher != nil {
		s.app.Watcher.WatchPaths(s.app.DocIndex.Paths())
	}
	s.writeJSON(w, map[string]interface{}{"indexed": count})
}

// handleDocsQuery queries the keyword index
func (s *Server) handleDocsQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		s.writeError(w, "bad_request", "missing query", http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}
	hits := s.app.DocIndex.Query(req.Query, req.Limit)
	s.writeJSON(w, map[string]interface{}{"hits": hits})
}

// handleEmbeddingsIndex rebuilds (POST) or inspects (GET) the embedding
// index over the keyword index's file set.
func (s *Server) handleEmbeddingsIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.writeJSON(w, map[string]interface{}{
			"chunks": s.app.EmbedIndex.Count(),
			"stale":  s.app.EmbedIndex.Stale(),
		})
		return
	}

	paths := s.app.DocIndex.Paths()
	if len(paths) == 0 {
		s.writeError(w, "bad_request", "keyword index is empty; build /api/docs/index first", http.StatusBadRequest)
		return
	}
	count, err := s.app.EmbedIndex.Build(r.Context(), paths, s.app.Backend, retrieval.DefaultChunkConfig())
	if err != nil {
		s.writeError(w, "backend_error", err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, map[string]interface{}{"chunks": count})
}

// handleEmbeddingsQuery queries the embedding index
func (s *Server) handleEmbeddingsQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		s.writeError(w, "bad_request", "missing query", http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}
	hits, err := s.app.EmbedIndex.Query(r.Context(), req.Query, s.app.Backend, req.Limit)
	if err != nil {
		s.writeError(w, "backend_error", err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, map[string]interface{}{"hits": hits})
}
