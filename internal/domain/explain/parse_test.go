package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredResponse(t *testing.T) {
	raw := `Summary: The checkout service saw a latency spike during peak traffic.
Possible causes:
- Database connection pool exhaustion
- Garbage collection pause
Recommendations:
- Increase the connection pool size
- Review GC settings
Confidence: High`

	p := parseResponse(raw)

	assert.Equal(t, "The checkout service saw a latency spike during peak traffic.", p.summary)
	require.Len(t, p.possibleCauses, 2)
	assert.Equal(t, "Database connection pool exhaustion", p.possibleCauses[0])
	require.Len(t, p.recommendations, 2)
	assert.Equal(t, "Increase the connection pool size", p.recommendations[0])
	assert.Equal(t, "high", p.confidence)
}

func TestParseMultilineSummary(t *testing.T) {
	raw := `Summary:
The spike coincides with a deploy.
Rollback is in progress.
Confidence: medium`

	p := parseResponse(raw)
	assert.Equal(t, "The spike coincides with a deploy. Rollback is in progress.", p.summary)
	assert.Equal(t, "medium", p.confidence)
}

func TestParseBulletVariants(t *testing.T) {
	raw := `Summary: s
Possible causes:
- dash bullet
* star bullet
1. numbered bullet
2) paren numbered
Confidence: high`

	p := parseResponse(raw)
	require.Len(t, p.possibleCauses, 4)
	assert.Equal(t, "dash bullet", p.possibleCauses[0])
	assert.Equal(t, "star bullet", p.possibleCauses[1])
	assert.Equal(t, "numbered bullet", p.possibleCauses[2])
	assert.Equal(t, "paren numbered", p.possibleCauses[3])
}

func TestParseUnstructuredFallback(t *testing.T) {
	raw := "The model rambled without any recognizable structure at all."

	p := parseResponse(raw)
	assert.Equal(t, raw, p.summary)
	assert.Empty(t, p.possibleCauses)
	assert.Empty(t, p.recommendations)
	assert.Equal(t, "low", p.confidence)
}

func TestParseEmptyResponse(t *testing.T) {
	p := parseResponse("")
	assert.Equal(t, "", p.summary)
	assert.Equal(t, "low", p.confidence)
}

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"High", "high"},
		{"  medium ", "medium"},
		{"Moderate", "medium"},
		{"low", "low"},
		{"certain", "low"},
		{"", "low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeConfidence(tt.in), "input %q", tt.in)
	}
}
