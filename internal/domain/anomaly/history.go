package anomaly

import (
	"sync"
	"time"

	"github.com/tracepulse/backend/internal/shared/types"
)

// History is the bounded in-memory anomaly log. Records are immutable once
// appended; the "active set" is a time-windowed query over this log, not a
// separate mutable structure.
type History struct {
	mu      sync.RWMutex
	records []types.Anomaly
	limit   int
}

// NewHistory creates a history retaining at most limit records.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 10000
	}
	return &History{limit: limit}
}

// Add appends one anomaly, evicting the oldest record when full.
func (h *History) Add(a types.Anomaly) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, a)
	if len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}
}

// Active returns anomalies created within window, newest first, filtered to
// severity ≤ minSeverity. minSeverity 5 means "show everything"; values
// outside 1..5 are clamped.
func (h *History) Active(window time.Duration, minSeverity int) []types.Anomaly {
	if minSeverity < int(types.SeverityCritical) || minSeverity > int(types.SeverityLow) {
		minSeverity = int(types.SeverityLow)
	}
	cutoff := time.Now().Add(-window)

	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.Anomaly, 0, 32)
	for i := len(h.records) - 1; i >= 0; i-- {
		rec := h.records[i]
		if rec.CreatedAt.Before(cutoff) {
			break
		}
		if int(rec.Severity) <= minSeverity {
			out = append(out, rec)
		}
	}
	return out
}

// Get returns one anomaly by ID.
func (h *History) Get(id string) (types.Anomaly, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].ID == id {
			return h.records[i], true
		}
	}
	return types.Anomaly{}, false
}

// GetByTrace returns the most recent anomaly for a trace ID.
func (h *History) GetByTrace(traceID string) (types.Anomaly, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].TraceID == traceID {
			return h.records[i], true
		}
	}
	return types.Anomaly{}, false
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// ServiceHealth derives a per-service status from anomalies within window.
func (h *History) ServiceHealth(window time.Duration) []types.ServiceHealth {
	recent := h.Active(window, int(types.SeverityLow))

	byService := make(map[string]*types.ServiceHealth)
	totals := make(map[string]float64)
	for _, a := range recent {
		sh, ok := byService[a.Service]
		if !ok {
			sh = &types.ServiceHealth{Service: a.Service, WorstSeverity: int(a.Severity)}
			byService[a.Service] = sh
		}
		sh.RecentCount++
		totals[a.Service] += a.DurationMs
		if int(a.Severity) < sh.WorstSeverity {
			sh.WorstSeverity = int(a.Severity)
		}
	}

	out := make([]types.ServiceHealth, 0, len(byService))
	for svc, sh := range byService {
		sh.AvgDurationMs = totals[svc] / float64(sh.RecentCount)
		switch {
		case sh.WorstSeverity <= int(types.SeverityMajor):
			sh.Status = "critical"
		case sh.WorstSeverity <= int(types.SeverityMinor):
			sh.Status = "degraded"
		default:
			sh.Status = "healthy"
		}
		out = append(out, *sh)
	}
	return out
}
