package baseline

import (
	"sort"
	"sync"
	"time"

	"github.com/tracepulse/backend/internal/shared/types"
)

// bucketIndex flattens (dayOfWeek, hourOfDay) into 0..167.
func bucketIndex(day, hour int) int {
	return day*24 + hour
}

// keyState holds all mutable statistics for one span key. Its mutex
// serializes updates for that key only; different keys never contend.
type keyState struct {
	mu sync.Mutex

	service   string
	operation string

	overall   welford
	updatedAt time.Time

	// Percentile snapshot, refreshed only by recompute.
	p50, p95, p99 float64
	min, max      float64
	hasRange      bool

	// Lazily created (day, hour) buckets, nil until first sample.
	buckets [168]*bucketState
}

type bucketState struct {
	stats      welford
	thresholds types.SeverityThresholds
	updatedAt  time.Time
}

// set is one immutable-identity generation of the baseline store. Recompute
// builds a fresh set and swaps it in whole, so readers never observe a
// partially rebuilt state.
type set struct {
	mu   sync.RWMutex
	keys map[string]*keyState
}

func newSet() *set {
	return &set{keys: make(map[string]*keyState)}
}

// get returns the keyState for key, creating it on first observation.
func (s *set) get(key, service, operation string) *keyState {
	s.mu.RLock()
	ks, ok := s.keys[key]
	s.mu.RUnlock()
	if ok {
		return ks
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ks, ok = s.keys[key]; ok {
		return ks
	}
	ks = &keyState{service: service, operation: operation}
	s.keys[key] = ks
	return ks
}

func (s *set) lookup(key string) (*keyState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ks, ok := s.keys[key]
	return ks, ok
}

func (s *set) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// snapshotOverall renders every key's overall baseline, sorted by
// service then operation.
func (s *set) snapshotOverall() []types.OverallBaseline {
	s.mu.RLock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	out := make([]types.OverallBaseline, 0, len(keys))
	for _, k := range keys {
		ks, ok := s.lookup(k)
		if !ok {
			continue
		}
		ks.mu.Lock()
		out = append(out, ks.overallBaselineLocked(k))
		ks.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Service != out[j].Service {
			return out[i].Service < out[j].Service
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// overallBaselineLocked renders the overall record; caller holds ks.mu.
func (ks *keyState) overallBaselineLocked(key string) types.OverallBaseline {
	variance := ks.overall.variance()
	return types.OverallBaseline{
		SpanKey:     key,
		Service:     ks.service,
		Operation:   ks.operation,
		Mean:        ks.overall.mean,
		StdDev:      ks.overall.stdDev(),
		Variance:    variance,
		P50:         ks.p50,
		P95:         ks.p95,
		P99:         ks.p99,
		Min:         ks.min,
		Max:         ks.max,
		SampleCount: ks.overall.count,
		UpdatedAt:   ks.updatedAt,
	}
}

// timeBaselineLocked renders one bucket record; caller holds ks.mu.
func (ks *keyState) timeBaselineLocked(key string, day, hour int) (types.TimeBaseline, bool) {
	b := ks.buckets[bucketIndex(day, hour)]
	if b == nil {
		return types.TimeBaseline{}, false
	}
	return types.TimeBaseline{
		SpanKey:     key,
		Service:     ks.service,
		Operation:   ks.operation,
		DayOfWeek:   day,
		HourOfDay:   hour,
		Mean:        b.stats.mean,
		StdDev:      b.stats.stdDev(),
		SampleCount: b.stats.count,
		Thresholds:  b.thresholds,
		UpdatedAt:   b.updatedAt,
	}, true
}
