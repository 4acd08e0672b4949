package model

import "strings"

// RiskTier is the discrete compliance-relevance tier assigned to a chunk
type RiskTier string

const (
	RiskLow    RiskTier = "low"    // Skipped - not worth a model call
	RiskMedium RiskTier = "medium" // Analyzed with standard depth
	RiskHigh   RiskTier = "high"   // Analyzed thoroughly
)

// Escalate raises a tier by one level (low->medium, medium->high).
func (t RiskTier) Escalate() RiskTier {
	switch t {
	case RiskLow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// PatternMatch records a violation pattern detected in a chunk,
// with the exact substring that triggered it.
type PatternMatch struct {
	Pattern   string `json:"pattern"`   // ViolationPattern name
	Indicator string `json:"indicator"` // The indicator phrase that matched
	Matched   string `json:"matched"`   // Exact matched substring from the chunk text
}

// DocumentChunk is a contiguous, labeled slice of a document's text.
// Created by the chunker; RiskTier and DetectedPatterns are populated
// by the risk classifier and immutable once analysis starts.
type DocumentChunk struct {
	Text             string         `json:"text"`
	Section          string         `json:"section"` // Human-readable section label
	Index            int            `json:"index"`   // Sequence position, strictly increasing
	RiskTier         RiskTier       `json:"risk_tier,omitempty"`
	DetectedPatterns []PatternMatch `json:"detected_patterns,omitempty"`
}

// ContainsVerbatim reports whether s occurs exactly in the chunk text.
func (c *DocumentChunk) ContainsVerbatim(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.Contains(c.Text, s)
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `*_"'.,:;!`)))
}
