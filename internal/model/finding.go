package model

// FindingKind separates reported problems from reported strengths
type FindingKind string

const (
	KindIssue FindingKind = "issue" // A statement that appears to violate the framework
	KindPoint FindingKind = "point" // A statement that demonstrates compliance
)

// Confidence is the reported certainty of a finding
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence normalizes a model-stated confidence value.
// Anything unrecognized defaults to medium.
func ParseConfidence(s string) Confidence {
	switch normalizeToken(s) {
	case "high":
		return ConfidenceHigh
	case "low":
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// CompareConfidence returns >0 if a is stronger than b, <0 if weaker, 0 if equal.
func CompareConfidence(a, b Confidence) int {
	return confidenceRank(a) - confidenceRank(b)
}

func confidenceRank(c Confidence) int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// UnknownRegulation marks a finding whose regulation could not be resolved.
// Findings are never dropped for lacking a regulation reference.
const UnknownRegulation = "Unknown regulation"

// Finding represents a single reported issue or compliance point
type Finding struct {
	Kind             FindingKind `json:"kind"`                  // issue or point
	Description      string      `json:"description"`           // What was found
	RegulationID     string      `json:"regulation"`            // e.g. "Article 5(1)(e)", or UnknownRegulation
	Confidence       Confidence  `json:"confidence"`            // low, medium, high
	Explanation      string      `json:"explanation,omitempty"` // Optional reasoning from the model
	Citation         string      `json:"citation"`              // Quote backing the finding
	CitationVerified bool        `json:"citation_verified"`     // Citation occurs verbatim in the source chunk
	Section          string      `json:"section"`               // Originating chunk's section label
	Sections         []string    `json:"sections,omitempty"`    // All sections after dedup merge
	ChunkIndex       int         `json:"chunk_index"`           // First chunk of occurrence, document order
}

// AllSections returns the merged section list, falling back to the
// originating section when the finding was never merged.
func (f *Finding) AllSections() []string {
	if len(f.Sections) > 0 {
		return f.Sections
	}
	if f.Section != "" {
		return []string{f.Section}
	}
	return nil
}
