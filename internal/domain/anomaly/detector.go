// Package anomaly implements span evaluation against learned baselines:
// deviation scoring, severity classification, the anomaly history, and alert
// emission for actionable tiers.
package anomaly

import (
	"time"

	"go.uber.org/zap"

	"github.com/tracepulse/backend/internal/domain/baseline"
	"github.com/tracepulse/backend/internal/infrastructure/logging"
	"github.com/tracepulse/backend/internal/infrastructure/monitoring"
	"github.com/tracepulse/backend/internal/shared/id"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Policy carries the deviation→severity cutoffs, ordered most severe first,
// and the stdDev floor guarding against degenerate baselines.
type Policy struct {
	CriticalDeviation float64
	MajorDeviation    float64
	ModerateDeviation float64
	MinorDeviation    float64
	LowDeviation      float64
	MinStdDevMs       float64
}

// Classify maps a deviation score to a severity tier. ok is false below the
// lowest cutoff: the span is not an anomaly.
func (p Policy) Classify(deviation float64) (types.Severity, bool) {
	switch {
	case deviation >= p.CriticalDeviation:
		return types.SeverityCritical, true
	case deviation >= p.MajorDeviation:
		return types.SeverityMajor, true
	case deviation >= p.ModerateDeviation:
		return types.SeverityModerate, true
	case deviation >= p.MinorDeviation:
		return types.SeverityMinor, true
	case deviation >= p.LowDeviation:
		return types.SeverityLow, true
	default:
		return 0, false
	}
}

// AlertSink receives alert notifications for actionable anomalies. The live
// channel hub implements it; tests substitute a recorder.
type AlertSink interface {
	PublishAlert(severity types.Severity, message string, at time.Time)
}

// Detector evaluates spans on the ingestion path.
type Detector struct {
	engine  *baseline.Engine
	history *History
	policy  Policy
	alerts  AlertSink
	logger  *logging.Logger
	metrics *monitoring.Metrics

	// onActionable is invoked fire-and-forget for SEV1-SEV3 anomalies; the
	// server wires it to the explanation pipeline's streaming trigger.
	onActionable func(types.Anomaly)
}

// NewDetector creates a detector. alerts may be nil (no live channel).
func NewDetector(engine *baseline.Engine, history *History, policy Policy, logger *logging.Logger, metrics *monitoring.Metrics) *Detector {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Detector{
		engine:  engine,
		history: history,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// WithAlerts attaches the live-channel alert sink.
func (d *Detector) WithAlerts(alerts AlertSink) *Detector {
	d.alerts = alerts
	return d
}

// OnActionable registers the proactive-analysis hook for SEV1-SEV3
// anomalies. The hook must not block; it is called from the ingestion path.
func (d *Detector) OnActionable(fn func(types.Anomaly)) {
	d.onActionable = fn
}

// Evaluate compares one span against its baseline. It returns nil when the
// span is normal or no baseline exists yet (cold start). The observation is
// always fed back into the statistics engine so baselines keep adapting.
func (d *Detector) Evaluate(span types.Span) *types.Anomaly {
	exp, ok := d.engine.Lookup(span.Key(), span.Timestamp)
	if !ok {
		// Cold start: learn, don't judge.
		d.engine.Observe(span)
		return nil
	}

	stdDev := exp.StdDev
	if stdDev < d.policy.MinStdDevMs {
		stdDev = d.policy.MinStdDevMs
	}
	deviation := (span.DurationMs - exp.Mean) / stdDev

	// The observation adapts the baseline whether or not it is anomalous.
	d.engine.Observe(span)

	severity, anomalous := d.policy.Classify(deviation)
	if !anomalous {
		return nil
	}

	anom := types.Anomaly{
		ID:             id.NewAnomalyID().String(),
		TraceID:        span.TraceID,
		SpanID:         span.SpanID,
		Service:        span.Service,
		Operation:      span.Operation,
		DurationMs:     span.DurationMs,
		ExpectedMean:   exp.Mean,
		ExpectedStdDev: stdDev,
		Deviation:      deviation,
		Severity:       severity,
		SeverityName:   severity.Name(),
		Attributes:     span.Attributes,
		DayOfWeek:      int(span.Timestamp.Weekday()),
		HourOfDay:      span.Timestamp.Hour(),
		CreatedAt:      time.Now().UTC(),
	}
	d.history.Add(anom)

	if d.metrics != nil {
		d.metrics.RecordAnomaly(anom.SeverityName)
	}
	d.logger.Info("anomaly detected",
		zap.String("id", anom.ID),
		zap.String("span_key", span.Key()),
		zap.Float64("duration_ms", span.DurationMs),
		zap.Float64("deviation", deviation),
		zap.Int("severity", int(severity)),
		zap.String("baseline", string(exp.Source)),
	)

	if severity.Actionable() {
		if d.alerts != nil {
			d.alerts.PublishAlert(severity, alertMessage(anom), anom.CreatedAt)
		}
		if d.onActionable != nil {
			d.onActionable(anom)
		}
	}

	return &anom
}

func alertMessage(a types.Anomaly) string {
	return a.SeverityName + " latency anomaly: " + a.Service + " " + a.Operation
}
