package decision

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	becauseRe    = regexp.MustCompile(`(?i)\bbecause\b`)
	confidenceRe = regexp.MustCompile(`(?i)confidence[^.]*?\d{1,3}\s?%`)
)

// ApplyGuardrails rewrites text so it always carries a "because" clause and,
// when confidence is below threshold, an explicit confidence percentage.
// Text that already satisfies both is returned trimmed but otherwise unchanged.
func ApplyGuardrails(text, because string, confidence, threshold int) string {
	out := strings.TrimSpace(text)
	if !HasBecause(out) {
		if because == "" {
			because = "of today's readiness signals"
		}
		out = withPeriod(out) + " This is because " + because + "."
	}
	if confidence < threshold && !HasConfidence(out) {
		out = withPeriod(out) + fmt.Sprintf(" Confidence is about %d%%.", confidence)
	}
	return strings.TrimSpace(out)
}

// HasBecause reports whether text contains a "because" clause.
func HasBecause(text string) bool {
	return becauseRe.MatchString(text)
}

// HasConfidence reports whether text states a confidence percentage.
func HasConfidence(text string) bool {
	return confidenceRe.MatchString(text)
}

func withPeriod(s string) string {
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
