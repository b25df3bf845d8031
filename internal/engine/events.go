package engine

// Event is one typed message on a request's event stream. Events appear
// in write order; "done" or "error" is always last.
type Event struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"requestId,omitempty"`
	Token     string                 `json:"token,omitempty"`
	Phase     string                 `json:"phase,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind string                 `json:"errorKind,omitempty"`
	Meta      *Meta                  `json:"meta,omitempty"`
}

// Event types
const (
	EventIntent           = "intent_classification"
	EventReasoningPhase   = "reasoning_phase"
	EventWebSearchResults = "web_search_results"
	EventToken            = "token"
	EventModelFallback    = "model_fallback"
	EventModelRetryStart  = "model_retry_start"
	EventModelRetryDone   = "model_retry_done"
	EventModelRetryFailed = "model_retry_failed"
	EventDone             = "done"
	EventError            = "error"
)

// Meta is attached to the final done event and to HTTP responses
type Meta struct {
	Route            string            `json:"route"`
	RouteReason      string            `json:"routeReason"`
	Model            string            `json:"model"`
	DurationMs       int64             `json:"durationMs"`
	Files            []string          `json:"files,omitempty"`
	AutoFiles        []string          `json:"autoFiles,omitempty"`
	MemoryHits       int               `json:"memoryHits"`
	MemoryRequested  bool              `json:"memoryRequested"`
	WebUsed          bool              `json:"webUsed"`
	RAGSources       []string          `json:"ragSources,omitempty"`
	CacheHit         bool              `json:"cacheHit"`
	ToolsUsed        []string          `json:"toolsUsed,omitempty"`
	ToolDurationsMs  map[string]int64  `json:"toolDurationsMs,omitempty"`
	Format           string            `json:"format"`
}

// Emitter receives events in order. Implementations must be safe for a
// single writer; the engine never emits concurrently to one emitter.
type Emitter func(Event)

// reasoning phases
const (
	PhaseUnderstanding = "UNDERSTANDING"
	PhasePlanning      = "PLANNING"
	PhaseResearch      = "RESEARCH"
	PhaseReasoning     = "REASONING"
	PhaseGenerating    = "GENERATING"
)
