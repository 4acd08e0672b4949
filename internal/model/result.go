package model

import "time"

// ChunkReport preserves per-chunk content, risk and pattern metadata
// for report detail and debug tooling.
type ChunkReport struct {
	Index    int            `json:"index"`
	Section  string         `json:"section"`
	Text     string         `json:"text"`
	RiskTier RiskTier       `json:"risk_tier"`
	Patterns []PatternMatch `json:"patterns,omitempty"`
	Analyzed bool           `json:"analyzed"` // False when skipped as low risk
	Issues   int            `json:"issues"`
	Points   int            `json:"points"`
	Err      string         `json:"error,omitempty"` // Chunk-level failure note
}

// SectionFailure annotates a chunk whose analysis failed after retries.
type SectionFailure struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
	Reason  string `json:"reason"`
}

// Summary holds derived counts for the whole run.
type Summary struct {
	Chunks      int `json:"chunks"`
	Analyzed    int `json:"analyzed"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Issues      int `json:"issues"`
	Points      int `json:"points"`
	RawFindings int `json:"raw_findings"` // Before deduplication
}

// AnalysisResult is the complete output of one document analysis run.
type AnalysisResult struct {
	RunID        string           `json:"run_id"`
	Document     string           `json:"document"`
	DocumentType string           `json:"document_type,omitempty"`
	Framework    string           `json:"framework"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Findings     []Finding        `json:"findings"`
	Chunks       []ChunkReport    `json:"chunks"`
	Failed       []SectionFailure `json:"failed_sections,omitempty"`
	Summary      Summary          `json:"summary"`
}

// Issues returns only the issue findings.
func (r *AnalysisResult) Issues() []Finding {
	return r.byKind(KindIssue)
}

// Points returns only the compliance-point findings.
func (r *AnalysisResult) Points() []Finding {
	return r.byKind(KindPoint)
}

func (r *AnalysisResult) byKind(kind FindingKind) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
