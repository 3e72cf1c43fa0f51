package llm

import (
	"strings"
	"unicode/utf8"
)

// Confidence scores how usable an analysis looks, from 0.5 (bare minimum)
// to 0.95. It is a surface heuristic over length, the presence of the two
// Korean analysis/evaluation and improvement/feedback keyword pairs, and
// line count; it says nothing about correctness.
func Confidence(analysis string) float64 {
	score := 0.5
	if utf8.RuneCountInString(analysis) > 100 {
		score += 0.2
	}
	if strings.Contains(analysis, "분석") || strings.Contains(analysis, "평가") {
		score += 0.1
	}
	if strings.Contains(analysis, "개선") || strings.Contains(analysis, "피드백") {
		score += 0.1
	}
	if len(strings.Split(analysis, "\n")) > 3 {
		score += 0.1
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}
