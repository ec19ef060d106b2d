package types

import "time"

// Severity is the ordinal anomaly tier. Smaller numbers are more severe:
// SEV1 is critical, SEV5 is barely worth recording.
type Severity int

const (
	SeverityCritical Severity = 1
	SeverityMajor    Severity = 2
	SeverityModerate Severity = 3
	SeverityMinor    Severity = 4
	SeverityLow      Severity = 5
)

// Name returns the human-readable tier name.
func (s Severity) Name() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityMajor:
		return "Major"
	case SeverityModerate:
		return "Moderate"
	case SeverityMinor:
		return "Minor"
	case SeverityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// Actionable reports whether this tier warrants a live alert and a proactive
// explanation. SEV4/SEV5 are recorded but not pushed.
func (s Severity) Actionable() bool {
	return s >= SeverityCritical && s <= SeverityModerate
}

// Anomaly is an immutable record of a span flagged against its baseline.
// Deviation and severity are fixed at creation and never revised.
type Anomaly struct {
	ID             string            `json:"id"`
	TraceID        string            `json:"trace_id"`
	SpanID         string            `json:"span_id"`
	Service        string            `json:"service"`
	Operation      string            `json:"operation"`
	DurationMs     float64           `json:"duration_ms"`
	ExpectedMean   float64           `json:"expected_mean_ms"`
	ExpectedStdDev float64           `json:"expected_std_dev_ms"`
	Deviation      float64           `json:"deviation"`
	Severity       Severity          `json:"severity"`
	SeverityName   string            `json:"severity_name"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	DayOfWeek      int               `json:"day_of_week"`
	HourOfDay      int               `json:"hour_of_day"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CorrelatedMetrics is the ephemeral infra-metric view computed for one
// anomaly. Individual metrics are nil when the collaborator had no data.
type CorrelatedMetrics struct {
	AnomalyID string       `json:"anomaly_id"`
	Timestamp time.Time    `json:"timestamp"`
	Service   string       `json:"service"`
	Metrics   InfraMetrics `json:"metrics"`
	Insights  []string     `json:"insights"`
	Healthy   bool         `json:"healthy"`
}

// InfraMetrics holds the six infrastructure measurements sampled around an
// anomaly. Each is independently nullable.
type InfraMetrics struct {
	CPUPercent        *float64 `json:"cpu_percent,omitempty"`
	MemoryMB          *float64 `json:"memory_mb,omitempty"`
	RequestRate       *float64 `json:"request_rate,omitempty"`
	ErrorRate         *float64 `json:"error_rate,omitempty"`
	P99LatencyMs      *float64 `json:"p99_latency_ms,omitempty"`
	ActiveConnections *float64 `json:"active_connections,omitempty"`
}

// ServiceHealth is a per-service status line in the health snapshot, derived
// from recent anomaly counts and average duration.
type ServiceHealth struct {
	Service       string  `json:"service"`
	Status        string  `json:"status"` // healthy, degraded, critical
	RecentCount   int     `json:"recent_anomalies"`
	WorstSeverity int     `json:"worst_severity,omitempty"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}
