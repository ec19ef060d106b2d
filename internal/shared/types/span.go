package types

import "time"

// Span is a finished trace span as delivered by the tracing backend.
type Span struct {
	TraceID    string            `json:"trace_id"`
	SpanID     string            `json:"span_id"`
	Service    string            `json:"service"`
	Operation  string            `json:"operation"`
	DurationMs float64           `json:"duration_ms"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Key returns the service:operation identity used for all statistics grouping.
func (s Span) Key() string {
	return SpanKey(s.Service, s.Operation)
}

// SpanKey derives the stable grouping identity for a service and operation.
func SpanKey(service, operation string) string {
	return service + ":" + operation
}
