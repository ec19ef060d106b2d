// Package http provides the dashboard-facing query surface.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tracepulse/backend/internal/domain/anomaly"
	"github.com/tracepulse/backend/internal/domain/baseline"
	"github.com/tracepulse/backend/internal/domain/correlation"
	"github.com/tracepulse/backend/internal/domain/explain"
	"github.com/tracepulse/backend/internal/domain/training"
	"github.com/tracepulse/backend/internal/infrastructure/config"
	"github.com/tracepulse/backend/internal/infrastructure/logging"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	engine     *baseline.Engine
	detector   *anomaly.Detector
	history    *anomaly.History
	correlator *correlation.Service
	pipeline   *explain.Pipeline
	trainStore *training.Store
	detection  config.DetectionConfig
	logger     *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	engine *baseline.Engine,
	detector *anomaly.Detector,
	history *anomaly.History,
	correlator *correlation.Service,
	pipeline *explain.Pipeline,
	trainStore *training.Store,
	detection config.DetectionConfig,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Handlers{
		engine:     engine,
		detector:   detector,
		history:    history,
		correlator: correlator,
		pipeline:   pipeline,
		trainStore: trainStore,
		detection:  detection,
		logger:     logger,
	}
}

// Root reports basic liveness.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "TracePulse Anomaly Service",
		"version": "0.3.0",
	})
}

// Health returns the aggregate per-service health snapshot.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"baseline_keys": h.engine.KeyCount(),
		"anomalies":     h.history.Len(),
		"services":      h.history.ServiceHealth(h.detection.ActiveWindow),
	})
}

// IngestSpan accepts one finished span from the trace source. Detection-path
// failures are logged, never surfaced: ingestion always succeeds for a
// well-formed span.
func (h *Handlers) IngestSpan(c *gin.Context) {
	var span types.Span
	if err := c.ShouldBindJSON(&span); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed span: " + err.Error()})
		return
	}
	if span.Service == "" || span.Operation == "" || span.DurationMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "span requires service, operation, and a non-negative duration"})
		return
	}
	if span.Timestamp.IsZero() {
		span.Timestamp = time.Now()
	}

	anom := h.detector.Evaluate(span)

	resp := gin.H{"accepted": true}
	if anom != nil {
		resp["anomaly"] = anom
	}
	c.JSON(http.StatusAccepted, resp)
}

// ListBaselines returns all overall baselines sorted by service/operation.
func (h *Handlers) ListBaselines(c *gin.Context) {
	baselines := h.engine.List()
	c.JSON(http.StatusOK, gin.H{
		"baselines": baselines,
		"count":     len(baselines),
	})
}

// ActiveAnomalies returns anomalies within the recency window. Query params:
// window (duration, default from config), min_severity (1..5, default 5 =
// show everything).
func (h *Handlers) ActiveAnomalies(c *gin.Context) {
	window := h.detection.ActiveWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window: " + err.Error()})
			return
		}
		window = parsed
	}

	minSeverity := int(types.SeverityLow)
	if raw := c.Query("min_severity"); raw != "" {
		var err error
		minSeverity, err = parseSeverity(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	anomalies := h.history.Active(window, minSeverity)
	c.JSON(http.StatusOK, gin.H{
		"anomalies": anomalies,
		"count":     len(anomalies),
		"window":    window.String(),
	})
}

// Analyze runs the explanation pipeline synchronously for a trace.
func (h *Handlers) Analyze(c *gin.Context) {
	traceID := c.Param("traceId")
	if traceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trace id is required"})
		return
	}

	explanation, err := h.pipeline.Analyze(c.Request.Context(), traceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, explanation)
}

type correlateRequest struct {
	AnomalyID string    `json:"anomaly_id" binding:"required"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// Correlate fetches infra metrics around an anomaly and derives insights.
func (h *Handlers) Correlate(c *gin.Context) {
	var req correlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Fill service/timestamp from history when the caller sent only the ID.
	if req.Service == "" || req.Timestamp.IsZero() {
		if anom, ok := h.history.Get(req.AnomalyID); ok {
			if req.Service == "" {
				req.Service = anom.Service
			}
			if req.Timestamp.IsZero() {
				req.Timestamp = anom.CreatedAt
			}
		}
	}
	if req.Service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service is required for an unknown anomaly id"})
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	c.JSON(http.StatusOK, h.correlator.Correlate(c.Request.Context(), req.AnomalyID, req.Service, req.Timestamp))
}

// Recalculate triggers a full baseline rebuild from the trace source.
func (h *Handlers) Recalculate(c *gin.Context) {
	result := h.engine.Recompute(c.Request.Context(), h.detection.RecomputeWindow)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

type rateRequest struct {
	Anomaly    types.AnomalySummary `json:"anomaly" binding:"required"`
	Prompt     string               `json:"prompt" binding:"required"`
	Completion string               `json:"completion" binding:"required"`
	Rating     types.Rating         `json:"rating" binding:"required"`
	Correction string               `json:"correction"`
	Notes      string               `json:"notes"`
}

// RateExplanation appends a human feedback entry to the training corpus.
func (h *Handlers) RateExplanation(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	example, err := h.trainStore.AddExample(req.Anomaly, req.Prompt, req.Completion, req.Rating, req.Correction, req.Notes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, example)
}

// TrainingStats returns the derived corpus summary.
func (h *Handlers) TrainingStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.trainStore.GetStats())
}

// ExportTraining streams the fine-tuning JSONL corpus.
func (h *Handlers) ExportTraining(c *gin.Context) {
	out, err := h.trainStore.ExportJSONL()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="training.jsonl"`)
	c.Data(http.StatusOK, "application/x-ndjson", []byte(out))
}

// DeleteTrainingExample removes one feedback entry.
func (h *Handlers) DeleteTrainingExample(c *gin.Context) {
	removed, err := h.trainStore.Delete(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "example not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ClearTraining empties the feedback corpus.
func (h *Handlers) ClearTraining(c *gin.Context) {
	if err := h.trainStore.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func parseSeverity(raw string) (int, error) {
	switch raw {
	case "1", "2", "3", "4", "5":
		return int(raw[0] - '0'), nil
	default:
		return 0, errInvalidSeverity
	}
}
