package explain

import "strings"

// parsed holds the structure extracted from a free-form LLM response.
type parsed struct {
	summary         string
	possibleCauses  []string
	recommendations []string
	confidence      string
}

// parseResponse extracts the expected sections from raw. Parsing is
// best-effort: a response that fits no structure at all falls back to
// summary = raw with low confidence. The raw text is never discarded by the
// caller either way.
func parseResponse(raw string) parsed {
	p := parsed{
		possibleCauses:  []string{},
		recommendations: []string{},
		confidence:      "low",
	}

	type section int
	const (
		none section = iota
		inSummary
		inCauses
		inRecommendations
	)

	current := none
	var summaryLines []string

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)

		switch {
		case strings.HasPrefix(lower, "summary"):
			current = inSummary
			if rest := afterColon(trimmed); rest != "" {
				summaryLines = append(summaryLines, rest)
			}
			continue
		case strings.HasPrefix(lower, "possible causes"):
			current = inCauses
			continue
		case strings.HasPrefix(lower, "recommendations"):
			current = inRecommendations
			continue
		case strings.HasPrefix(lower, "confidence"):
			current = none
			p.confidence = normalizeConfidence(afterColon(trimmed))
			continue
		}

		switch current {
		case inSummary:
			summaryLines = append(summaryLines, trimmed)
		case inCauses:
			if item := bulletItem(trimmed); item != "" {
				p.possibleCauses = append(p.possibleCauses, item)
			}
		case inRecommendations:
			if item := bulletItem(trimmed); item != "" {
				p.recommendations = append(p.recommendations, item)
			}
		}
	}

	p.summary = strings.Join(summaryLines, " ")
	if p.summary == "" {
		// Nothing recognizable: fall back to the whole response.
		p.summary = strings.TrimSpace(raw)
		p.possibleCauses = []string{}
		p.recommendations = []string{}
		p.confidence = "low"
	}
	return p
}

func afterColon(s string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return ""
}

func bulletItem(s string) string {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	// Numbered lists: "1. cause"
	if len(s) > 2 && s[0] >= '0' && s[0] <= '9' {
		if i := strings.IndexAny(s, ".)"); i > 0 && i < 4 {
			return strings.TrimSpace(s[i+1:])
		}
	}
	return ""
}

func normalizeConfidence(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return "high"
	case "medium", "moderate":
		return "medium"
	default:
		return "low"
	}
}
