// Package analysis extracts structured feedback from the free-form text the
// AI model returns and formats it for display.
package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// ParsedAnalysis is the structured form of one raw AI analysis response.
// IndividualSteps holds only the step keys whose headings were found; an
// absent key means the model produced no content for that step.
type ParsedAnalysis struct {
	StepByStep      string            `json:"step_by_step"`
	Comprehensive   string            `json:"comprehensive"`
	Educational     string            `json:"educational"`
	IndividualSteps map[string]string `json:"individual_steps"`
}

// labelToKey maps every step heading label any of the seven routines can
// produce to its canonical step key. The parser tries all of them against
// section 1 regardless of which routine was requested, so it needs no
// routine parameter.
var labelToKey = map[string]string{
	"see":             "see",
	"think":           "think",
	"wonder":          "wonder",
	"connect":         "connect",
	"challenge":       "challenge",
	"concepts":        "concepts",
	"changes":         "changes",
	"viewpoints":      "viewpoints",
	"perspective":     "perspective",
	"questions":       "questions",
	"extend":          "extend",
	"definition":      "definition",
	"characteristics": "characteristics",
	"examples":        "examples",
	"used to think":   "used_to_think",
	"now think":       "now_think",
	"why changed":     "why_changed",
	"puzzle":          "puzzle",
	"explore":         "explore",
}

var (
	sectionRes = [3]*regexp.Regexp{
		sectionHeading(1, `step[- ]by[- ]step analysis`),
		sectionHeading(2, `comprehensive evaluation`),
		sectionHeading(3, `educational suggestions?`),
	}
	stepHeadingRe = buildStepHeadingRe()
)

// sectionHeading matches a numbered top-level section heading on its own
// line, with or without markdown decoration.
func sectionHeading(n int, title string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*)?` +
		string(rune('0'+n)) + `[.)][ \t]*` + title + `[^\n]*$`)
}

func buildStepHeadingRe() *regexp.Regexp {
	labels := make([]string, 0, len(labelToKey))
	for l := range labelToKey {
		labels = append(labels, l)
	}
	// Longer labels first so "used to think" is never shadowed by "think".
	sort.Slice(labels, func(i, j int) bool { return len(labels[i]) > len(labels[j]) })
	for i, l := range labels {
		labels[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*)?(?:step[ \t]*\d+[ \t]*[:.)][ \t]*|\d+[.)][ \t]*)?(` +
		strings.Join(labels, "|") + `)(?:\*\*)?[ \t]*(?::[ \t]*(?:\*\*)?[ \t]*([^\n]*))?$`)
}

// Parse decomposes a raw AI analysis into its three sections and per-step
// blocks. It never fails: missing sections come back empty, and input with
// no recognizable structure at all degrades to the whole text in StepByStep
// so the reviewer always sees something.
func Parse(raw string) (result ParsedAnalysis) {
	defer func() {
		if recover() != nil {
			result = wholeTextFallback(raw)
		}
	}()

	type boundary struct {
		section int
		start   int
		end     int // end of the heading line
	}
	var bounds []boundary
	for i, re := range sectionRes {
		if loc := re.FindStringIndex(raw); loc != nil {
			bounds = append(bounds, boundary{section: i, start: loc[0], end: loc[1]})
		}
	}
	if len(bounds) == 0 {
		return wholeTextFallback(raw)
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i].start < bounds[j].start })

	var sections [3]string
	for i, b := range bounds {
		end := len(raw)
		if i+1 < len(bounds) {
			end = bounds[i+1].start
		}
		sections[b.section] = strings.TrimSpace(raw[b.end:end])
	}

	return ParsedAnalysis{
		StepByStep:      sections[0],
		Comprehensive:   sections[1],
		Educational:     sections[2],
		IndividualSteps: splitSteps(sections[0]),
	}
}

// splitSteps extracts per-step blocks from the section-1 text by locating
// every known step heading and capturing up to the next heading or the end
// of the section.
func splitSteps(section string) map[string]string {
	steps := make(map[string]string)
	if section == "" {
		return steps
	}

	matches := stepHeadingRe.FindAllStringSubmatchIndex(section, -1)
	for i, m := range matches {
		label := strings.ToLower(section[m[2]:m[3]])
		key, ok := labelToKey[label]
		if !ok {
			continue
		}
		end := len(section)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := section[m[1]:end]
		// Text after the heading's colon belongs to the step body.
		if m[4] >= 0 {
			content = section[m[4]:m[5]] + content
		}
		if _, dup := steps[key]; !dup {
			steps[key] = strings.TrimSpace(content)
		}
	}
	return steps
}

func wholeTextFallback(raw string) ParsedAnalysis {
	return ParsedAnalysis{
		StepByStep:      strings.TrimSpace(raw),
		IndividualSteps: map[string]string{},
	}
}
