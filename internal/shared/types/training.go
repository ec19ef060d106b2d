package types

import "time"

// Rating is the human verdict on a generated explanation.
type Rating string

const (
	RatingGood Rating = "good"
	RatingBad  Rating = "bad"
)

// Valid reports whether the rating is one of the accepted values.
func (r Rating) Valid() bool {
	return r == RatingGood || r == RatingBad
}

// AnomalySummary is the denormalized slice of an anomaly carried on a
// training example, so the corpus stays meaningful if anomaly history ages out.
type AnomalySummary struct {
	AnomalyID  string  `json:"anomaly_id"`
	TraceID    string  `json:"trace_id"`
	Service    string  `json:"service"`
	Operation  string  `json:"operation"`
	DurationMs float64 `json:"duration_ms"`
	Deviation  float64 `json:"deviation"`
	Severity   int     `json:"severity"`
}

// TrainingExample is one entry of the append-only feedback log.
type TrainingExample struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Anomaly    AnomalySummary `json:"anomaly"`
	Prompt     string         `json:"prompt"`
	Completion string         `json:"completion"`
	Rating     Rating         `json:"rating"`
	Correction string         `json:"correction,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// TrainingStats is the derived view over the feedback log.
type TrainingStats struct {
	TotalExamples  int       `json:"total_examples"`
	GoodExamples   int       `json:"good_examples"`
	BadExamples    int       `json:"bad_examples"`
	UniqueServices []string  `json:"unique_services"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Explanation is the structured result of the explanation pipeline. Prompt
// and RawResponse are always retained; they are the ground truth that
// feedback ratings attach to.
type Explanation struct {
	TraceID         string   `json:"trace_id"`
	AnomalyID       string   `json:"anomaly_id,omitempty"`
	Summary         string   `json:"summary"`
	PossibleCauses  []string `json:"possible_causes"`
	Recommendations []string `json:"recommendations"`
	Confidence      string   `json:"confidence"` // low, medium, high
	Prompt          string   `json:"prompt"`
	RawResponse     string   `json:"raw_response"`
}
