// Package types provides shared data structures for the TracePulse backend.
//
// This package defines core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Span: Finished trace span as delivered by the tracing backend
//   - OverallBaseline: Learned latency distribution per service:operation
//   - TimeBaseline: Day-of-week / hour-of-day bucketed distribution
//   - Anomaly: Immutable record of a flagged span
//   - CorrelatedMetrics: Infra metrics sampled around an anomaly
//   - TrainingExample: Human-rated (prompt, completion) pair
//
// State Management:
//   - Severity: Ordinal anomaly tier (SEV1 most severe)
//   - Rating: Feedback verdict on an explanation (good, bad)
package types
