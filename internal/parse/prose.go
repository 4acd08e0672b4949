package parse

import (
	"regexp"
	"strings"
)

// Header phrase variants that open the issues and points regions.
// Longer variants come first so the refined forms are not swallowed by
// their shorter suffixes.
var issueHeaders = []string{
	"refined compliance issues",
	"compliance issues",
	"compliance problems",
	"violations",
	"issues",
}

var pointHeaders = []string{
	"refined compliance strengths",
	"compliance strengths",
	"compliance points",
	"strengths",
	"points",
}

// Sentinel phrases meaning "nothing found". Matching is substring
// based over normalized text, so markdown bolding and trailing
// punctuation do not defeat it.
var issueSentinels = []string{
	"no compliance issues detected",
	"no compliance issues",
	"no issues found",
	"no issues detected",
	"no violations found",
	"no clear violations",
}

var pointSentinels = []string{
	"no compliance points detected",
	"no compliance points",
	"no compliance strengths",
	"no points found",
	"no strengths identified",
}

// parseProse handles sentinel and sectioned free-text responses. The
// response is split into an issues region and a points region at
// header phrases; each region runs from its header to the next header
// or end of text. A sentinel inside a region empties that region
// regardless of trailing noise. A response with no recognizable
// headers is checked for whole-text sentinels and otherwise treated
// as commentary, yielding nothing.
func parseProse(raw string) (issues, points []candidate) {
	issuesRegion, pointsRegion, found := splitRegions(raw)
	if !found {
		// No headers anywhere: bare sentinels and plain commentary
		// both mean nothing to report.
		return nil, nil
	}

	if !containsAny(normalizeProse(issuesRegion), issueSentinels) {
		issues = splitCandidates(issuesRegion)
	}
	if !containsAny(normalizeProse(pointsRegion), pointSentinels) {
		points = splitCandidates(pointsRegion)
	}
	return issues, points
}

// headerKind classifies a line as an issues header, points header, or
// neither. Headers may carry markdown bolding, list markers, numbering
// and trailing punctuation.
func headerKind(line string) (kind int, ok bool) {
	norm := normalizeProse(line)
	norm = strings.TrimLeft(norm, "0123456789.) ")
	for _, h := range issueHeaders {
		if strings.HasPrefix(norm, h) {
			return 0, true
		}
	}
	for _, h := range pointHeaders {
		if strings.HasPrefix(norm, h) {
			return 1, true
		}
	}
	return 0, false
}

// splitRegions walks the response line by line, routing text into the
// region opened by the most recent header.
func splitRegions(raw string) (issuesRegion, pointsRegion string, found bool) {
	var regions [2]strings.Builder
	current := -1
	for _, line := range strings.Split(raw, "\n") {
		if kind, ok := headerKind(line); ok {
			current = kind
			found = true
			continue
		}
		if current >= 0 {
			regions[current].WriteString(line)
			regions[current].WriteString("\n")
		}
	}
	return regions[0].String(), regions[1].String(), found
}

var listMarkerRe = regexp.MustCompile(`^\s*(?:\d+[.)]\s+|[-*•]\s+)`)

// boilerplate phrases that are commentary, not findings.
var boilerplate = []string{
	"no issues", "no points", "none", "n/a", "not applicable",
	"see below", "see above", "as noted above", "none found",
	"none identified",
}

// splitCandidates divides a region into finding candidates. Numbered
// or bulleted items each start a candidate (continuation lines are
// appended); without list markers every non-empty line stands alone.
// Empty, boilerplate and truncated trailing candidates are dropped.
func splitCandidates(region string) []candidate {
	lines := strings.Split(region, "\n")

	numbered := false
	for _, line := range lines {
		if listMarkerRe.MatchString(line) {
			numbered = true
			break
		}
	}

	var texts []string
	if numbered {
		var cur strings.Builder
		flush := func() {
			if s := strings.TrimSpace(cur.String()); s != "" {
				texts = append(texts, s)
			}
			cur.Reset()
		}
		started := false
		for _, line := range lines {
			if listMarkerRe.MatchString(line) {
				flush()
				started = true
				cur.WriteString(listMarkerRe.ReplaceAllString(line, ""))
				continue
			}
			if started && strings.TrimSpace(line) != "" {
				cur.WriteString(" ")
				cur.WriteString(strings.TrimSpace(line))
			}
		}
		flush()
	} else {
		for _, line := range lines {
			if s := strings.TrimSpace(line); s != "" {
				texts = append(texts, s)
			}
		}
	}

	var out []candidate
	for i, text := range texts {
		if isBoilerplate(text) {
			continue
		}
		if i == len(texts)-1 && looksTruncated(text) {
			continue
		}
		out = append(out, candidate{text: text})
	}
	return out
}

func isBoilerplate(text string) bool {
	norm := normalizeProse(text)
	norm = strings.Trim(norm, " .")
	for _, b := range boilerplate {
		if norm == b {
			return true
		}
	}
	return false
}

// looksTruncated reports whether a trailing candidate was cut off
// mid-sentence: an unclosed quote, or no sentence-ending punctuation.
func looksTruncated(text string) bool {
	if strings.Count(text, `"`)%2 != 0 {
		return true
	}
	trimmed := strings.TrimRight(text, " *_")
	if trimmed == "" {
		return true
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?', '"', ')', ']':
		return false
	}
	return true
}

var proseStripRe = regexp.MustCompile(`[*_` + "`" + `#]+`)

// normalizeProse lowercases and removes markdown markup so phrase
// matching tolerates bolding and fencing.
func normalizeProse(s string) string {
	s = proseStripRe.ReplaceAllString(s, "")
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(norm string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}
