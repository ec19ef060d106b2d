package types

import "time"

// OverallBaseline is the learned latency distribution for one span key.
// Percentile fields are refreshed only by a full recompute; incremental
// observation keeps mean/stdDev/variance current.
type OverallBaseline struct {
	SpanKey     string    `json:"span_key"`
	Service     string    `json:"service"`
	Operation   string    `json:"operation"`
	Mean        float64   `json:"mean_ms"`
	StdDev      float64   `json:"std_dev_ms"`
	Variance    float64   `json:"variance"`
	P50         float64   `json:"p50_ms"`
	P95         float64   `json:"p95_ms"`
	P99         float64   `json:"p99_ms"`
	Min         float64   `json:"min_ms"`
	Max         float64   `json:"max_ms"`
	SampleCount int64     `json:"sample_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SeverityThresholds are the per-tier deviation cutoffs attached to a time
// bucket. They can be tuned independently of the bucket's mean/stdDev.
type SeverityThresholds struct {
	Critical float64 `json:"critical"`
	Major    float64 `json:"major"`
	Moderate float64 `json:"moderate"`
	Minor    float64 `json:"minor"`
	Low      float64 `json:"low"`
}

// TimeBaseline is the latency distribution for one span key within a single
// (day-of-week, hour-of-day) bucket. At most 168 buckets exist per key.
type TimeBaseline struct {
	SpanKey     string             `json:"span_key"`
	Service     string             `json:"service"`
	Operation   string             `json:"operation"`
	DayOfWeek   int                `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	HourOfDay   int                `json:"hour_of_day"` // 0..23
	Mean        float64            `json:"mean_ms"`
	StdDev      float64            `json:"std_dev_ms"`
	SampleCount int64              `json:"sample_count"`
	Thresholds  SeverityThresholds `json:"thresholds"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// RecomputeResult reports the outcome of a full baseline rebuild.
type RecomputeResult struct {
	Success        bool   `json:"success"`
	BaselinesCount int    `json:"baselines_count"`
	DurationMs     int64  `json:"duration_ms"`
	Message        string `json:"message"`
}
