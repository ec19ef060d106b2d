// Package baseline implements the statistics engine: online per-operation
// latency baselines, time-of-week buckets, and full rebuilds from the trace
// source. It owns the only long-lived mutable shared state in the core; all
// mutation happens through Observe and Recompute.
package baseline

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/tracepulse/backend/internal/infrastructure/logging"
	"github.com/tracepulse/backend/internal/infrastructure/monitoring"
	"github.com/tracepulse/backend/internal/shared/types"
)

// TraceReader supplies historical spans for full rebuilds. The live span feed
// does not go through this interface; spans are pushed into Observe.
type TraceReader interface {
	FetchSpans(ctx context.Context, start, end time.Time) ([]types.Span, error)
}

// Policy carries the tunable statistics knobs.
type Policy struct {
	// BucketFloor is the minimum bucket sample count before a time bucket is
	// trusted for detection.
	BucketFloor int64
	// Thresholds seed new time buckets' per-severity cutoffs.
	Thresholds types.SeverityThresholds
}

// Source labels which baseline backed an expectation.
type Source string

const (
	SourceBucket  Source = "time_bucket"
	SourceOverall Source = "overall"
)

// Expectation is the distribution a span is judged against.
type Expectation struct {
	Mean        float64
	StdDev      float64
	SampleCount int64
	Source      Source
}

// Engine computes and serves latency baselines.
type Engine struct {
	current atomic.Pointer[set]
	traces  TraceReader
	policy  Policy
	logger  *logging.Logger
	metrics *monitoring.Metrics

	rebuilding atomic.Bool
}

// NewEngine creates a statistics engine. traces may be nil; Recompute then
// reports failure instead of rebuilding.
func NewEngine(traces TraceReader, policy Policy, logger *logging.Logger, metrics *monitoring.Metrics) *Engine {
	if logger == nil {
		logger = logging.NewDefault()
	}
	e := &Engine{
		traces:  traces,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
	e.current.Store(newSet())
	return e
}

// Observe feeds one span duration into both the overall baseline and the
// (dayOfWeek, hourOfDay) bucket derived from the span timestamp. Percentile
// fields are untouched; they refresh on Recompute only.
func (e *Engine) Observe(span types.Span) {
	s := e.current.Load()
	ks := s.get(span.Key(), span.Service, span.Operation)

	day := int(span.Timestamp.Weekday())
	hour := span.Timestamp.Hour()

	ks.mu.Lock()
	ks.overall.add(span.DurationMs)
	ks.updatedAt = time.Now().UTC()

	idx := bucketIndex(day, hour)
	b := ks.buckets[idx]
	if b == nil {
		b = &bucketState{thresholds: e.policy.Thresholds}
		ks.buckets[idx] = b
	}
	b.stats.add(span.DurationMs)
	b.updatedAt = ks.updatedAt
	ks.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SpansObserved.Inc()
		e.metrics.BaselineKeys.Set(float64(s.size()))
	}
}

// Lookup resolves the expected distribution for a span key at a point in
// time. The time bucket wins when its sample count reaches the confidence
// floor; otherwise the overall baseline is used. ok is false on cold start.
func (e *Engine) Lookup(key string, at time.Time) (Expectation, bool) {
	ks, ok := e.current.Load().lookup(key)
	if !ok {
		return Expectation{}, false
	}

	day := int(at.Weekday())
	hour := at.Hour()

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if b := ks.buckets[bucketIndex(day, hour)]; b != nil && b.stats.count >= e.policy.BucketFloor {
		return Expectation{
			Mean:        b.stats.mean,
			StdDev:      b.stats.stdDev(),
			SampleCount: b.stats.count,
			Source:      SourceBucket,
		}, true
	}

	if ks.overall.count == 0 {
		return Expectation{}, false
	}
	return Expectation{
		Mean:        ks.overall.mean,
		StdDev:      ks.overall.stdDev(),
		SampleCount: ks.overall.count,
		Source:      SourceOverall,
	}, true
}

// List returns every overall baseline, sorted by service then operation.
func (e *Engine) List() []types.OverallBaseline {
	return e.current.Load().snapshotOverall()
}

// TimeBaseline returns one bucket's record, if the bucket has samples.
func (e *Engine) TimeBaseline(key string, day, hour int) (types.TimeBaseline, bool) {
	ks, ok := e.current.Load().lookup(key)
	if !ok {
		return types.TimeBaseline{}, false
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.timeBaselineLocked(key, day, hour)
}

// KeyCount returns the number of span keys with learned baselines.
func (e *Engine) KeyCount() int {
	return e.current.Load().size()
}

// Reset discards all learned baselines.
func (e *Engine) Reset() {
	e.current.Store(newSet())
	if e.metrics != nil {
		e.metrics.BaselineKeys.Set(0)
	}
}

// Recompute performs a full rebuild from the trace source over window. The
// new baseline set is built in a scratch structure and swapped in atomically;
// concurrent Observe calls keep landing in the old set until the swap and are
// absorbed by the next rebuild. Only one rebuild runs at a time.
func (e *Engine) Recompute(ctx context.Context, window time.Duration) types.RecomputeResult {
	start := time.Now()

	if !e.rebuilding.CompareAndSwap(false, true) {
		return types.RecomputeResult{
			Success:    false,
			DurationMs: time.Since(start).Milliseconds(),
			Message:    "recompute already in progress",
		}
	}
	defer e.rebuilding.Store(false)

	if e.traces == nil {
		return types.RecomputeResult{
			Success:    false,
			DurationMs: time.Since(start).Milliseconds(),
			Message:    "trace source not configured",
		}
	}

	end := time.Now().UTC()
	spans, err := e.traces.FetchSpans(ctx, end.Add(-window), end)
	if err != nil {
		e.logger.Warn("recompute: trace source unavailable", zap.Error(err))
		if e.metrics != nil {
			e.metrics.RecomputeRuns.WithLabelValues("failure").Inc()
		}
		return types.RecomputeResult{
			Success:    false,
			DurationMs: time.Since(start).Milliseconds(),
			Message:    fmt.Sprintf("fetch historical spans: %v", err),
		}
	}

	scratch := newSet()
	samples := make(map[string][]float64, 64)
	for _, span := range spans {
		key := span.Key()
		ks := scratch.get(key, span.Service, span.Operation)

		ks.mu.Lock()
		ks.overall.add(span.DurationMs)
		ks.updatedAt = end
		idx := bucketIndex(int(span.Timestamp.Weekday()), span.Timestamp.Hour())
		b := ks.buckets[idx]
		if b == nil {
			b = &bucketState{thresholds: e.policy.Thresholds}
			ks.buckets[idx] = b
		}
		b.stats.add(span.DurationMs)
		b.updatedAt = end
		ks.mu.Unlock()

		samples[key] = append(samples[key], span.DurationMs)
	}

	for key, durations := range samples {
		ks, ok := scratch.lookup(key)
		if !ok {
			continue
		}
		sort.Float64s(durations)
		ks.mu.Lock()
		ks.p50 = stat.Quantile(0.50, stat.Empirical, durations, nil)
		ks.p95 = stat.Quantile(0.95, stat.Empirical, durations, nil)
		ks.p99 = stat.Quantile(0.99, stat.Empirical, durations, nil)
		ks.min = durations[0]
		ks.max = durations[len(durations)-1]
		ks.hasRange = true
		ks.mu.Unlock()
	}

	e.current.Store(scratch)

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecomputeRuns.WithLabelValues("success").Inc()
		e.metrics.RecomputeTime.Observe(elapsed.Seconds())
		e.metrics.BaselineKeys.Set(float64(scratch.size()))
	}
	e.logger.Info("baselines rebuilt",
		zap.Int("keys", scratch.size()),
		zap.Int("spans", len(spans)),
		zap.Duration("elapsed", elapsed),
	)

	return types.RecomputeResult{
		Success:        true,
		BaselinesCount: scratch.size(),
		DurationMs:     elapsed.Milliseconds(),
		Message:        fmt.Sprintf("rebuilt %d baselines from %d spans", scratch.size(), len(spans)),
	}
}
