// Package explain builds analysis prompts from anomalies and correlated
// context, invokes the LLM collaborator, and parses the response into a
// structured explanation. The streaming variant pushes fragments to the live
// channel as they arrive.
package explain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tracepulse/backend/internal/domain/anomaly"
	"github.com/tracepulse/backend/internal/domain/correlation"
	"github.com/tracepulse/backend/internal/infrastructure/logging"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Completer is the LLM collaborator boundary.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, fn func(fragment string) error) (string, error)
}

// StreamPublisher receives streaming analysis events for fan-out to
// connected dashboards.
type StreamPublisher interface {
	PublishAnalysisStart(anomalyIDs []string)
	PublishAnalysisChunk(fragment string)
	PublishAnalysisComplete()
}

// Pipeline orchestrates prompt construction, inference, and parsing.
type Pipeline struct {
	llm        Completer
	correlator *correlation.Service
	history    *anomaly.History
	publisher  StreamPublisher
	logger     *logging.Logger
	timeout    time.Duration
}

// NewPipeline creates an explanation pipeline. publisher may be nil
// (no live channel; streaming analyses still run, silently).
func NewPipeline(llm Completer, correlator *correlation.Service, history *anomaly.History, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Pipeline{
		llm:        llm,
		correlator: correlator,
		history:    history,
		logger:     logger,
		timeout:    3 * time.Minute,
	}
}

// WithPublisher attaches the live channel.
func (p *Pipeline) WithPublisher(pub StreamPublisher) *Pipeline {
	p.publisher = pub
	return p
}

// Analyze produces a structured explanation for the most recent anomaly on
// traceID. The prompt and raw response are always retained on the result; a
// collaborator failure degrades to a low-confidence fallback summary.
func (p *Pipeline) Analyze(ctx context.Context, traceID string) (types.Explanation, error) {
	anom, ok := p.history.GetByTrace(traceID)
	if !ok {
		return types.Explanation{}, fmt.Errorf("no anomaly recorded for trace %s", traceID)
	}
	return p.analyze(ctx, anom, nil), nil
}

// AnalyzeStream runs the proactive streaming analysis for an actionable
// anomaly. It is called fire-and-forget from the detection path and runs to
// completion or failure; dashboard disconnects do not cancel it.
func (p *Pipeline) AnalyzeStream(anom types.Anomaly) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if p.publisher != nil {
		p.publisher.PublishAnalysisStart([]string{anom.ID})
		defer p.publisher.PublishAnalysisComplete()
	}

	var deliver func(string) error
	if p.publisher != nil {
		deliver = func(fragment string) error {
			p.publisher.PublishAnalysisChunk(fragment)
			return nil
		}
	}

	p.analyze(ctx, anom, deliver)
}

func (p *Pipeline) analyze(ctx context.Context, anom types.Anomaly, deliver func(string) error) types.Explanation {
	var correlated *types.CorrelatedMetrics
	if p.correlator != nil {
		c := p.correlator.Correlate(ctx, anom.ID, anom.Service, anom.CreatedAt)
		correlated = &c
	}

	prompt := BuildPrompt(anom, correlated)

	var raw string
	var err error
	if deliver != nil {
		raw, err = p.llm.Stream(ctx, prompt, deliver)
	} else {
		raw, err = p.llm.Complete(ctx, prompt)
	}
	if err != nil {
		p.logger.Warn("llm collaborator unavailable, returning fallback explanation",
			zap.String("anomaly_id", anom.ID),
			zap.Error(err),
		)
		return types.Explanation{
			TraceID:   anom.TraceID,
			AnomalyID: anom.ID,
			Summary: fmt.Sprintf(
				"%s anomaly on %s %s: observed %.1f ms against an expected %.1f ms (%.1f standard deviations). Automated analysis is unavailable.",
				anom.SeverityName, anom.Service, anom.Operation,
				anom.DurationMs, anom.ExpectedMean, anom.Deviation,
			),
			PossibleCauses:  []string{},
			Recommendations: []string{},
			Confidence:      "low",
			Prompt:          prompt,
			RawResponse:     raw,
		}
	}

	parsed := parseResponse(raw)
	return types.Explanation{
		TraceID:         anom.TraceID,
		AnomalyID:       anom.ID,
		Summary:         parsed.summary,
		PossibleCauses:  parsed.possibleCauses,
		Recommendations: parsed.recommendations,
		Confidence:      parsed.confidence,
		Prompt:          prompt,
		RawResponse:     raw,
	}
}
