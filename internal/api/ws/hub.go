// Package ws implements the live channel: a persistent per-dashboard
// websocket broadcasting streaming explanation fragments and new-anomaly
// alerts. Fan-out is independent per connection; a slow or dead client never
// blocks the others.
package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tracepulse/backend/internal/infrastructure/logging"
	"github.com/tracepulse/backend/internal/infrastructure/monitoring"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Server→client event kinds.
const (
	EventAnalysisStart    = "analysis-start"
	EventAnalysisChunk    = "analysis-chunk"
	EventAnalysisComplete = "analysis-complete"
	EventAlert            = "alert"
)

// Event is one JSON-encoded live-channel message.
type Event struct {
	Type       string   `json:"type"`
	Timestamp  int64    `json:"timestamp,omitempty"`
	AnomalyIDs []string `json:"anomaly_ids,omitempty"` // analysis-start
	Content    string   `json:"content,omitempty"`     // analysis-chunk
	Severity   int      `json:"severity,omitempty"`    // alert
	Message    string   `json:"message,omitempty"`     // alert
}

// sendBuffer is the per-connection queue depth. Events published to a full
// buffer are dropped; the connection is closed if its writer falls behind
// entirely.
const sendBuffer = 256

type connection struct {
	id   string
	send chan Event
}

// Hub fans events out to every connected dashboard. It implements the
// detector's AlertSink and the explanation pipeline's StreamPublisher.
type Hub struct {
	mu      sync.RWMutex
	conns   map[string]*connection
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Hub{
		conns:   make(map[string]*connection),
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) register(id string) *connection {
	c := &connection{id: id, send: make(chan Event, sendBuffer)}

	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
	}
	h.logger.Debug("live channel connected", zap.String("conn_id", id))
	return c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		if h.metrics != nil {
			h.metrics.WSConnections.Dec()
		}
		h.logger.Debug("live channel disconnected", zap.String("conn_id", id))
	}
}

// ConnCount returns the number of connected dashboards.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// broadcast delivers ev to every connection without blocking. Chunk order is
// preserved per connection because each connection has a single FIFO queue
// drained by a single writer.
func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.conns {
		select {
		case c.send <- ev:
			if h.metrics != nil {
				h.metrics.WSMessages.WithLabelValues(ev.Type).Inc()
			}
		default:
			if h.metrics != nil {
				h.metrics.WSDropped.Inc()
			}
		}
	}
}

// PublishAnalysisStart announces which anomalies a streaming explanation covers.
func (h *Hub) PublishAnalysisStart(anomalyIDs []string) {
	h.broadcast(Event{
		Type:       EventAnalysisStart,
		Timestamp:  time.Now().Unix(),
		AnomalyIDs: anomalyIDs,
	})
}

// PublishAnalysisChunk delivers one generated fragment, appended client-side
// in arrival order.
func (h *Hub) PublishAnalysisChunk(fragment string) {
	h.broadcast(Event{
		Type:    EventAnalysisChunk,
		Content: fragment,
	})
}

// PublishAnalysisComplete marks the end of a streaming explanation.
func (h *Hub) PublishAnalysisComplete() {
	h.broadcast(Event{
		Type:      EventAnalysisComplete,
		Timestamp: time.Now().Unix(),
	})
}

// PublishAlert pushes a newly detected actionable anomaly.
func (h *Hub) PublishAlert(severity types.Severity, message string, at time.Time) {
	h.broadcast(Event{
		Type:      EventAlert,
		Timestamp: at.Unix(),
		Severity:  int(severity),
		Message:   message,
	})
}
