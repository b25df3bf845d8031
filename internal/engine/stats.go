package engine

import (
	"sync"
	"time"
)

// ModelStat is advisory per-model accounting, process-local
type ModelStat struct {
	Count      int64 `json:"count"`
	Errors     int64 `json:"errors"`
	TotalMs    int64 `json:"totalMs"`
	AvgMs      int64 `json:"avgMs"`
}

// ModelStats aggregates generation attempts per model
type ModelStats struct {
	mu    sync.Mutex
	stats map[string]*ModelStat
}

// NewModelStats creates the stats table
func NewModelStats() *ModelStats {
	return &ModelStats{stats: make(map[string]*ModelStat)}
}

// Record accounts one generation attempt
func (m *ModelStats) Record(model string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[model]
	if !ok {
		s = &ModelStat{}
		m.stats[model] = s
	}
	s.Count++
	if failed {
		s.Errors++
	}
	s.TotalMs += duration.Milliseconds()
	s.AvgMs = s.TotalMs / s.Count
}

// Snapshot returns a copy of the table
func (m *ModelStats) Snapshot() map[string]ModelStat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ModelStat, len(m.stats))
	for model, s := range m.stats {
		out[model] = *s
	}
	return out
}
