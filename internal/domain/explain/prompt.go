package explain

import (
	"fmt"
	"strings"

	"github.com/tracepulse/backend/internal/shared/types"
)

// BuildPrompt renders the deterministic analysis prompt for an anomaly and
// its optional correlated context. Identical inputs always yield an
// identical prompt; rated feedback on the output depends on that.
func BuildPrompt(anom types.Anomaly, correlated *types.CorrelatedMetrics) string {
	var b strings.Builder

	b.WriteString("You are a site reliability engineer analyzing a latency anomaly in a distributed system.\n\n")
	b.WriteString("Anomaly details:\n")
	fmt.Fprintf(&b, "- Service: %s\n", anom.Service)
	fmt.Fprintf(&b, "- Operation: %s\n", anom.Operation)
	fmt.Fprintf(&b, "- Observed duration: %.1f ms\n", anom.DurationMs)
	fmt.Fprintf(&b, "- Expected duration: %.1f ms (stddev %.1f ms)\n", anom.ExpectedMean, anom.ExpectedStdDev)
	fmt.Fprintf(&b, "- Deviation: %.1f standard deviations above baseline\n", anom.Deviation)
	fmt.Fprintf(&b, "- Severity: SEV%d (%s)\n", int(anom.Severity), anom.SeverityName)

	if correlated != nil && len(correlated.Insights) > 0 {
		b.WriteString("\nInfrastructure signals at the time of the anomaly:\n")
		for _, insight := range correlated.Insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
	}

	b.WriteString("\nRespond with exactly these sections:\n")
	b.WriteString("Summary: <one-paragraph diagnosis>\n")
	b.WriteString("Possible causes:\n- <cause>\n")
	b.WriteString("Recommendations:\n- <action>\n")
	b.WriteString("Confidence: <low|medium|high>\n")

	return b.String()
}
