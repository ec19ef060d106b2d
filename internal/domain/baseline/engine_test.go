package baseline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracepulse/backend/internal/shared/types"
)

var testThresholds = types.SeverityThresholds{
	Critical: 6, Major: 4, Moderate: 3, Minor: 2, Low: 1,
}

// Tuesday 14:00 UTC, a fixed point so every span lands in one bucket.
var tuesdayAfternoon = time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)

func testSpan(service, operation string, durationMs float64, ts time.Time) types.Span {
	return types.Span{
		TraceID:    "trace-1",
		SpanID:     "span-1",
		Service:    service,
		Operation:  operation,
		DurationMs: durationMs,
		Timestamp:  ts,
	}
}

type fakeTraceReader struct {
	spans []types.Span
	err   error
	calls int
}

func (f *fakeTraceReader) FetchSpans(ctx context.Context, start, end time.Time) ([]types.Span, error) {
	f.calls++
	return f.spans, f.err
}

func TestLookupColdStart(t *testing.T) {
	engine := NewEngine(nil, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	_, ok := engine.Lookup("checkout:charge", tuesdayAfternoon)
	assert.False(t, ok, "unknown key has no expectation")
}

func TestObserveThenLookupOverall(t *testing.T) {
	engine := NewEngine(nil, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	for _, d := range []float64{90, 90, 100, 110, 110} {
		engine.Observe(testSpan("checkout", "charge", d, tuesdayAfternoon))
	}

	exp, ok := engine.Lookup("checkout:charge", tuesdayAfternoon)
	require.True(t, ok)
	assert.InDelta(t, 100.0, exp.Mean, 1e-9)
	assert.InDelta(t, 10.0, exp.StdDev, 1e-9)
	assert.Equal(t, int64(5), exp.SampleCount)
	// 5 samples in the bucket is below the confidence floor of 30.
	assert.Equal(t, SourceOverall, exp.Source)
}

func TestLookupPrefersConfidentBucket(t *testing.T) {
	engine := NewEngine(nil, Policy{BucketFloor: 3, Thresholds: testThresholds}, nil, nil)

	morning := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	// Afternoon traffic is slow, morning traffic is fast. The overall baseline
	// mixes both; the bucket isolates each.
	for i := 0; i < 4; i++ {
		engine.Observe(testSpan("checkout", "charge", 200, tuesdayAfternoon))
		engine.Observe(testSpan("checkout", "charge", 50, morning))
	}

	afternoon, ok := engine.Lookup("checkout:charge", tuesdayAfternoon)
	require.True(t, ok)
	assert.Equal(t, SourceBucket, afternoon.Source)
	assert.InDelta(t, 200.0, afternoon.Mean, 1e-9)
	assert.Equal(t, int64(4), afternoon.SampleCount)

	early, ok := engine.Lookup("checkout:charge", morning)
	require.True(t, ok)
	assert.Equal(t, SourceBucket, early.Source)
	assert.InDelta(t, 50.0, early.Mean, 1e-9)

	// An hour with no confident bucket falls back to the overall baseline.
	evening := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	overall, ok := engine.Lookup("checkout:charge", evening)
	require.True(t, ok)
	assert.Equal(t, SourceOverall, overall.Source)
	assert.InDelta(t, 125.0, overall.Mean, 1e-9)
}

func TestListSortedByServiceThenOperation(t *testing.T) {
	engine := NewEngine(nil, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	engine.Observe(testSpan("payments", "refund", 10, tuesdayAfternoon))
	engine.Observe(testSpan("auth", "login", 10, tuesdayAfternoon))
	engine.Observe(testSpan("auth", "verify", 10, tuesdayAfternoon))
	engine.Observe(testSpan("payments", "charge", 10, tuesdayAfternoon))

	baselines := engine.List()
	require.Len(t, baselines, 4)
	assert.Equal(t, "auth:login", baselines[0].SpanKey)
	assert.Equal(t, "auth:verify", baselines[1].SpanKey)
	assert.Equal(t, "payments:charge", baselines[2].SpanKey)
	assert.Equal(t, "payments:refund", baselines[3].SpanKey)
}

func TestRecomputeRebuildsWithPercentiles(t *testing.T) {
	spans := make([]types.Span, 0, 100)
	for i := 1; i <= 100; i++ {
		spans = append(spans, testSpan("checkout", "charge", float64(i), tuesdayAfternoon))
	}
	reader := &fakeTraceReader{spans: spans}

	engine := NewEngine(reader, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	// Pre-existing live observations are replaced by the rebuild.
	engine.Observe(testSpan("stale", "op", 1, tuesdayAfternoon))

	result := engine.Recompute(context.Background(), 24*time.Hour)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, 1, result.BaselinesCount)
	assert.Equal(t, 1, reader.calls)

	baselines := engine.List()
	require.Len(t, baselines, 1)
	b := baselines[0]
	assert.Equal(t, "checkout:charge", b.SpanKey)
	assert.Equal(t, int64(100), b.SampleCount)
	assert.InDelta(t, 50.5, b.Mean, 1e-9)
	assert.InDelta(t, 50.0, b.P50, 1e-9)
	assert.InDelta(t, 95.0, b.P95, 1e-9)
	assert.InDelta(t, 99.0, b.P99, 1e-9)
	assert.Equal(t, 1.0, b.Min)
	assert.Equal(t, 100.0, b.Max)

	_, ok := engine.Lookup("stale:op", tuesdayAfternoon)
	assert.False(t, ok, "old generation is discarded on swap")
}

func TestRecomputeIdempotent(t *testing.T) {
	spans := []types.Span{
		testSpan("checkout", "charge", 90, tuesdayAfternoon),
		testSpan("checkout", "charge", 110, tuesdayAfternoon),
	}
	reader := &fakeTraceReader{spans: spans}
	engine := NewEngine(reader, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	first := engine.Recompute(context.Background(), 24*time.Hour)
	require.True(t, first.Success)
	before := engine.List()

	second := engine.Recompute(context.Background(), 24*time.Hour)
	require.True(t, second.Success)
	after := engine.List()

	require.Len(t, after, len(before))
	assert.Equal(t, before[0].Mean, after[0].Mean)
	assert.Equal(t, before[0].StdDev, after[0].StdDev)
	assert.Equal(t, before[0].SampleCount, after[0].SampleCount)
	assert.Equal(t, before[0].P95, after[0].P95)
}

func TestRecomputeWithoutTraceSource(t *testing.T) {
	engine := NewEngine(nil, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	result := engine.Recompute(context.Background(), 24*time.Hour)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not configured")
}

func TestRecomputeFetchFailureKeepsCurrentBaselines(t *testing.T) {
	reader := &fakeTraceReader{err: errors.New("connection refused")}
	engine := NewEngine(reader, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	engine.Observe(testSpan("checkout", "charge", 100, tuesdayAfternoon))

	result := engine.Recompute(context.Background(), 24*time.Hour)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "connection refused")

	// The live baselines survive a failed rebuild.
	assert.Equal(t, 1, engine.KeyCount())
}

func TestTimeBaselineRendering(t *testing.T) {
	engine := NewEngine(nil, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)

	engine.Observe(testSpan("checkout", "charge", 100, tuesdayAfternoon))
	engine.Observe(testSpan("checkout", "charge", 120, tuesdayAfternoon))

	day := int(tuesdayAfternoon.Weekday())
	hour := tuesdayAfternoon.Hour()

	tb, ok := engine.TimeBaseline("checkout:charge", day, hour)
	require.True(t, ok)
	assert.Equal(t, day, tb.DayOfWeek)
	assert.Equal(t, hour, tb.HourOfDay)
	assert.Equal(t, int64(2), tb.SampleCount)
	assert.InDelta(t, 110.0, tb.Mean, 1e-9)
	assert.Equal(t, testThresholds, tb.Thresholds)

	_, ok = engine.TimeBaseline("checkout:charge", day, (hour+1)%24)
	assert.False(t, ok, "empty bucket has no record")
}

func TestReset(t *testing.T) {
	engine := NewEngine(nil, Policy{BucketFloor: 30, Thresholds: testThresholds}, nil, nil)
	engine.Observe(testSpan("checkout", "charge", 100, tuesdayAfternoon))
	require.Equal(t, 1, engine.KeyCount())

	engine.Reset()
	assert.Equal(t, 0, engine.KeyCount())
}

func TestBucketIndexBounds(t *testing.T) {
	assert.Equal(t, 0, bucketIndex(0, 0))
	assert.Equal(t, 167, bucketIndex(6, 23))
	assert.Equal(t, 2*24+14, bucketIndex(2, 14))
}
