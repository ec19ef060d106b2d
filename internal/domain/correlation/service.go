// Package correlation derives human-readable infrastructure insights for an
// anomaly by sampling infra metrics around its timestamp and applying fixed
// threshold rules.
package correlation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tracepulse/backend/internal/infrastructure/logging"
	"github.com/tracepulse/backend/internal/shared/types"
)

// MetricsReader is the infra-metrics collaborator boundary.
type MetricsReader interface {
	FetchServiceMetrics(ctx context.Context, service string, ts time.Time) (types.InfraMetrics, error)
}

// Threshold rules applied to the sampled metrics. Values above a cutoff add
// an insight line; a result with no insights is healthy.
const (
	cpuThreshold         = 80.0  // percent
	memoryThresholdMB    = 512.0 // MB
	errorRateThreshold   = 5.0   // percent
	connectionsThreshold = 100.0
	requestRateThreshold = 1000.0 // req/s
	p99LatencyThreshold  = 2000.0 // ms
)

// Service computes CorrelatedMetrics on demand. Results are never cached.
type Service struct {
	metrics MetricsReader
	logger  *logging.Logger
}

// NewService creates a correlation service. metrics may be nil; Correlate
// then degrades to an empty result.
func NewService(metrics MetricsReader, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Service{metrics: metrics, logger: logger}
}

// Correlate samples infra metrics for service at ts and applies the rules.
// Collaborator failure degrades to a best-effort result with no metrics and
// no insights; it never propagates an error into the anomaly workflow.
func (s *Service) Correlate(ctx context.Context, anomalyID, service string, ts time.Time) types.CorrelatedMetrics {
	result := types.CorrelatedMetrics{
		AnomalyID: anomalyID,
		Timestamp: ts,
		Service:   service,
		Insights:  []string{},
		Healthy:   true,
	}

	if s.metrics == nil {
		return result
	}

	sampled, err := s.metrics.FetchServiceMetrics(ctx, service, ts)
	if err != nil {
		s.logger.Warn("metrics source unavailable, returning best-effort correlation",
			zap.String("anomaly_id", anomalyID),
			zap.String("service", service),
			zap.Error(err),
		)
		return result
	}

	result.Metrics = sampled
	result.Insights = deriveInsights(sampled)
	result.Healthy = len(result.Insights) == 0
	return result
}

func deriveInsights(m types.InfraMetrics) []string {
	insights := []string{}

	if m.CPUPercent != nil && *m.CPUPercent >= cpuThreshold {
		insights = append(insights, fmt.Sprintf("high CPU usage: %.1f%%", *m.CPUPercent))
	}
	if m.MemoryMB != nil && *m.MemoryMB >= memoryThresholdMB {
		insights = append(insights, fmt.Sprintf("elevated memory usage: %.0f MB", *m.MemoryMB))
	}
	if m.ErrorRate != nil && *m.ErrorRate >= errorRateThreshold {
		insights = append(insights, fmt.Sprintf("error rate spike: %.1f%%", *m.ErrorRate))
	}
	if m.ActiveConnections != nil && *m.ActiveConnections >= connectionsThreshold {
		insights = append(insights, fmt.Sprintf("connection saturation: %.0f active connections", *m.ActiveConnections))
	}
	if m.RequestRate != nil && *m.RequestRate >= requestRateThreshold {
		insights = append(insights, fmt.Sprintf("traffic surge: %.0f req/s", *m.RequestRate))
	}
	if m.P99LatencyMs != nil && *m.P99LatencyMs >= p99LatencyThreshold {
		insights = append(insights, fmt.Sprintf("service-wide p99 latency elevated: %.0f ms", *m.P99LatencyMs))
	}

	return insights
}
