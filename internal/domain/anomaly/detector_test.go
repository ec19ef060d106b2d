package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracepulse/backend/internal/domain/baseline"
	"github.com/tracepulse/backend/internal/shared/types"
)

var testPolicy = Policy{
	CriticalDeviation: 6,
	MajorDeviation:    4,
	ModerateDeviation: 3,
	MinorDeviation:    2,
	LowDeviation:      1,
	MinStdDevMs:       1,
}

var tuesdayAfternoon = time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)

type alertRecorder struct {
	severities []types.Severity
	messages   []string
}

func (r *alertRecorder) PublishAlert(severity types.Severity, message string, at time.Time) {
	r.severities = append(r.severities, severity)
	r.messages = append(r.messages, message)
}

// seededDetector returns a detector whose checkout:charge baseline has
// mean 100 ms and stdDev 10 ms.
func seededDetector(t *testing.T) (*Detector, *History, *alertRecorder) {
	t.Helper()

	engine := baseline.NewEngine(nil, baseline.Policy{BucketFloor: 30}, nil, nil)
	for _, d := range []float64{90, 90, 100, 110, 110} {
		engine.Observe(types.Span{
			Service:    "checkout",
			Operation:  "charge",
			DurationMs: d,
			Timestamp:  tuesdayAfternoon,
		})
	}

	history := NewHistory(100)
	alerts := &alertRecorder{}
	detector := NewDetector(engine, history, testPolicy, nil, nil).WithAlerts(alerts)
	return detector, history, alerts
}

func span(durationMs float64) types.Span {
	return types.Span{
		TraceID:    "trace-abc",
		SpanID:     "span-abc",
		Service:    "checkout",
		Operation:  "charge",
		DurationMs: durationMs,
		Timestamp:  tuesdayAfternoon,
	}
}

func TestEvaluateNormalSpan(t *testing.T) {
	detector, history, alerts := seededDetector(t)

	// Duration equal to the mean deviates by zero.
	anom := detector.Evaluate(span(100))
	assert.Nil(t, anom)
	assert.Equal(t, 0, history.Len())
	assert.Empty(t, alerts.severities)
}

func TestEvaluateBelowLowestCutoff(t *testing.T) {
	detector, history, _ := seededDetector(t)

	// 105 ms is half a standard deviation above the mean.
	anom := detector.Evaluate(span(105))
	assert.Nil(t, anom)
	assert.Equal(t, 0, history.Len())
}

func TestEvaluateCriticalAnomaly(t *testing.T) {
	detector, history, alerts := seededDetector(t)

	anom := detector.Evaluate(span(170))
	require.NotNil(t, anom)

	assert.InDelta(t, 7.0, anom.Deviation, 1e-9)
	assert.Equal(t, types.SeverityCritical, anom.Severity)
	assert.Equal(t, "Critical", anom.SeverityName)
	assert.Equal(t, "trace-abc", anom.TraceID)
	assert.InDelta(t, 100.0, anom.ExpectedMean, 1e-9)
	assert.InDelta(t, 10.0, anom.ExpectedStdDev, 1e-9)
	assert.Equal(t, int(tuesdayAfternoon.Weekday()), anom.DayOfWeek)
	assert.Equal(t, tuesdayAfternoon.Hour(), anom.HourOfDay)
	assert.NotEmpty(t, anom.ID)

	assert.Equal(t, 1, history.Len())
	require.Len(t, alerts.severities, 1)
	assert.Equal(t, types.SeverityCritical, alerts.severities[0])
	assert.Contains(t, alerts.messages[0], "checkout")
}

func TestEvaluateMinorAnomalyIsNotAlerted(t *testing.T) {
	detector, history, alerts := seededDetector(t)

	anom := detector.Evaluate(span(125))
	require.NotNil(t, anom)

	assert.InDelta(t, 2.5, anom.Deviation, 1e-9)
	assert.Equal(t, types.SeverityMinor, anom.Severity)

	// Recorded but below the actionable tiers, so no alert.
	assert.Equal(t, 1, history.Len())
	assert.Empty(t, alerts.severities)
}

func TestEvaluateColdStartLearnsWithoutJudging(t *testing.T) {
	engine := baseline.NewEngine(nil, baseline.Policy{BucketFloor: 30}, nil, nil)
	detector := NewDetector(engine, NewHistory(100), testPolicy, nil, nil)

	anom := detector.Evaluate(types.Span{
		Service:    "search",
		Operation:  "query",
		DurationMs: 9999,
		Timestamp:  tuesdayAfternoon,
	})
	assert.Nil(t, anom, "first span for a key is never anomalous")
	assert.Equal(t, 1, engine.KeyCount())
}

func TestEvaluateStdDevFloor(t *testing.T) {
	engine := baseline.NewEngine(nil, baseline.Policy{BucketFloor: 30}, nil, nil)
	for i := 0; i < 5; i++ {
		engine.Observe(types.Span{
			Service:    "checkout",
			Operation:  "charge",
			DurationMs: 100,
			Timestamp:  tuesdayAfternoon,
		})
	}
	detector := NewDetector(engine, NewHistory(100), testPolicy, nil, nil)

	// True stdDev is zero; the 1 ms floor keeps the score finite.
	anom := detector.Evaluate(span(103))
	require.NotNil(t, anom)
	assert.InDelta(t, 3.0, anom.Deviation, 1e-9)
	assert.Equal(t, types.SeverityModerate, anom.Severity)
	assert.Equal(t, 1.0, anom.ExpectedStdDev)
}

func TestEvaluateFeedsObservationBack(t *testing.T) {
	detector, _, _ := seededDetector(t)

	before, ok := detector.engine.Lookup("checkout:charge", tuesdayAfternoon)
	require.True(t, ok)

	detector.Evaluate(span(170))

	after, ok := detector.engine.Lookup("checkout:charge", tuesdayAfternoon)
	require.True(t, ok)
	assert.Equal(t, before.SampleCount+1, after.SampleCount, "anomalous spans still adapt the baseline")
	assert.Greater(t, after.Mean, before.Mean)
}

func TestOnActionableHook(t *testing.T) {
	detector, _, _ := seededDetector(t)

	var got []types.Anomaly
	detector.OnActionable(func(a types.Anomaly) { got = append(got, a) })

	detector.Evaluate(span(125)) // SEV4, not actionable
	assert.Empty(t, got)

	detector.Evaluate(span(170)) // SEV1
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)
}

func TestClassifySeverityMonotonic(t *testing.T) {
	tests := []struct {
		deviation float64
		severity  types.Severity
		anomalous bool
	}{
		{0.5, 0, false},
		{0.99, 0, false},
		{1.0, types.SeverityLow, true},
		{1.5, types.SeverityLow, true},
		{2.0, types.SeverityMinor, true},
		{2.5, types.SeverityMinor, true},
		{3.0, types.SeverityModerate, true},
		{4.0, types.SeverityMajor, true},
		{5.9, types.SeverityMajor, true},
		{6.0, types.SeverityCritical, true},
		{100, types.SeverityCritical, true},
	}

	prev := types.SeverityLow + 1
	for _, tt := range tests {
		sev, ok := testPolicy.Classify(tt.deviation)
		assert.Equal(t, tt.anomalous, ok, "deviation %.2f", tt.deviation)
		assert.Equal(t, tt.severity, sev, "deviation %.2f", tt.deviation)
		if ok {
			assert.LessOrEqual(t, sev, prev, "severity must not decrease in urgency as deviation grows")
			prev = sev
		}
	}
}
