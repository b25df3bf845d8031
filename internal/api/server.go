package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/promptd/promptd/internal/app"
)

// Server is the HTTP and WebSocket surface
type Server struct {
	app        *app.App
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates the API server around an initialized application
func NewServer(application *app.App) *Server {
	return &Server{
		app: application,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start begins serving on the configured port
func (s *Server) Start(port int) error {
	router := s.setupRoutes()
	addr := fmt.Sprintf(":%d", port)
	log.Info("starting API server", "addr", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the configured router (tests serve it directly)
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/ws", s.handleWebSocket)

	api := router.PathPrefix("/api").Subrouter()

	// Primary pipeline endpoint plus task aliases
	api.HandleFunc("/auto", s.handleAuto).Methods("POST")
	for _, alias := range []string{"chat", "reason", "code", "sql", "vision", "debug",
		"fast", "report", "chart", "image_prompt", "video_prompt", "research", "grammar", "personal"} {
		api.HandleFunc("/"+alias, s.aliasHandler(alias)).Methods("POST")
	}
	api.HandleFunc("/dashboard", s.aliasHandler("dashboard")).Methods("POST")
	api.HandleFunc("/dashboard/vanilla", s.aliasHandler("dashboard_vanilla")).Methods("POST")
	api.HandleFunc("/custom", s.handleCustom).Methods("POST")

	// Memory
	api.HandleFunc("/memory/store", s.handleMemoryStore).Methods("POST")
	api.HandleFunc("/memory/entries", s.handleMemoryEntries).Methods("GET")
	api.HandleFunc("/memory/entries/ttl", s.handleMemoryTTL).Methods("POST")
	api.HandleFunc("/memory/entries/purge", s.handleMemoryPurge).Methods("POST")
	api.HandleFunc("/memory/entries/{id}", s.handleMemoryDelete).Methods("DELETE")
	api.HandleFunc("/memory/message", s.handleMemoryMessage).Methods("POST")
	api.HandleFunc("/memory/context/{userId}", s.handleMemoryContext).Methods("GET")
	api.HandleFunc("/memory/is-followup", s.handleIsFollowUp).Methods("POST")
	api.HandleFunc("/memory/history/{userId}", s.handleMemoryHistory).Methods("GET")
	api.HandleFunc("/memory/export/{userId}", s.handleMemoryExport).Methods("GET")
	api.HandleFunc("/memory/{userId}", s.handleMemoryClear).Methods("DELETE")

	// Tools
	api.HandleFunc("/tools/python", s.toolHandler("python")).Methods("POST")
	api.HandleFunc("/tools/execute", s.toolHandler("code_execute")).Methods("POST")
	api.HandleFunc("/tools/analyze", s.toolHandler("code_analysis")).Methods("POST")
	api.HandleFunc("/tools/summarize", s.toolHandler("summarize")).Methods("POST")
	api.HandleFunc("/tools/sql", s.toolHandler("sql")).Methods("POST")
	api.HandleFunc("/tools/schema", s.toolHandler("sql_schema")).Methods("POST")
	api.HandleFunc("/tools/sympy", s.toolHandler("sympy")).Methods("POST")
	api.HandleFunc("/tools/ingest", s.toolHandler("ingest")).Methods("POST")
	api.HandleFunc("/tools/search", s.toolHandler("search")).Methods("POST")
	api.HandleFunc("/tools/fetch", s.toolHandler("fetch")).Methods("POST")
	api.HandleFunc("/tools/visualize", s.toolHandler("visualize")).Methods("POST")
	api.HandleFunc("/tools/chain", s.handleToolChain).Methods("POST")

	// Retrieval
	api.HandleFunc("/docs/index", s.handleDocsIndex).Methods("POST", "GET")
	api.HandleFunc("/docs/query", s.handleDocsQuery).Methods("POST")
	api.HandleFunc("/embeddings/index", s.handleEmbeddingsIndex).Methods("POST", "GET")
	api.HandleFunc("/embeddings/query", s.handleEmbeddingsQuery).Methods("POST")

	// Media
	api.HandleFunc("/image", s.handleImage).Methods("POST")
	api.HandleFunc("/video", s.handleVideo).Methods("POST")

	// Reports
	api.HandleFunc("/reports/generate", s.handleReportGenerate).Methods("POST")
	api.HandleFunc("/reports/export/html", s.handleReportExportHTML).Methods("POST")
	api.HandleFunc("/reports/export/pdf", s.handleReportExportPDF).Methods("POST")
	api.HandleFunc("/reports/{reportId}", s.handleReportGet).Methods("GET")

	// Agent, cancel, stats
	api.HandleFunc("/agent/run", s.handleAgentRun).Methods("POST")
	api.HandleFunc("/cancel", s.handleCancel).Methods("POST")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	return router
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"service": "promptd",
		"time":    time.Now().Unix(),
	})
}

// writeJSON encodes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeError reports a typed boundary error
func (s *Server) writeError(w http.ResponseWriter, kind, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}

// statusFor maps boundary error kinds to HTTP status codes
func statusFor(kind string) int {
	switch kind {
	case "bad_request", "unsafe_code", "invalid_path":
		return http.StatusBadRequest
	case "tools_disabled":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "sandbox_timeout", "timeout":
		return http.StatusGatewayTimeout
	case "backend_error", "sandbox_error", "upstream_unavailable":
		return http.StatusBadGateway
	case "cancelled":
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
