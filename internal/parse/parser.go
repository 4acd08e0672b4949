package parse

import (
	"regexp"
	"strings"

	"github.com/mpetrov/reglens/internal/model"
)

// Parser turns raw model responses into findings. Extraction is a
// fixed chain of pure strategies tried in priority order: structured
// JSON, explicit no-findings sentinels, then sectioned prose. The
// parser never fails; anything it cannot recognize yields empty
// results. Extraction is deterministic: the same (response, chunk)
// pair always produces the same findings.
type Parser struct {
	// patternRegs maps violation-pattern names to regulation ids for
	// inference when the response omits a regulation reference.
	patternRegs map[string][]string

	minDescLen int
}

// New creates a parser. patterns supply the pattern name to regulation
// id mapping used as the third step of regulation resolution.
func New(patterns []model.ViolationPattern) *Parser {
	m := make(map[string][]string, len(patterns))
	for _, p := range patterns {
		if len(p.RegulationIDs) > 0 {
			m[p.Name] = p.RegulationIDs
		}
	}
	return &Parser{patternRegs: m, minDescLen: 15}
}

// candidate is one potential finding pulled out of the response before
// regulation, citation and confidence resolution.
type candidate struct {
	text       string
	regulation string // Explicit regulation field, when the shape provides one
	citation   string // Explicit citation field, when the shape provides one
}

// Extract parses the raw response against its source chunk and returns
// issues and compliance points. A nil chunk is treated as an empty one.
func (p *Parser) Extract(raw string, chunk *model.DocumentChunk) (issues, points []model.Finding) {
	if chunk == nil {
		chunk = &model.DocumentChunk{}
	}

	issueCands, pointCands, ok := parseJSON(raw)
	if !ok {
		issueCands, pointCands = parseProse(raw)
	}

	seen := map[string]bool{}
	for _, c := range issueCands {
		if f, ok := p.resolve(c, model.KindIssue, chunk, seen); ok {
			issues = append(issues, f)
		}
	}
	for _, c := range pointCands {
		if f, ok := p.resolve(c, model.KindPoint, chunk, seen); ok {
			points = append(points, f)
		}
	}
	return issues, points
}

// resolve fills in the regulation, citation and confidence for one
// candidate. Duplicate candidates (same kind and normalized text,
// e.g. repeated across overlapping region boundaries) are dropped.
func (p *Parser) resolve(c candidate, kind model.FindingKind, chunk *model.DocumentChunk, seen map[string]bool) (model.Finding, bool) {
	desc := strings.TrimSpace(c.text)
	if len(desc) < p.minDescLen && c.citation == "" {
		return model.Finding{}, false
	}

	key := string(kind) + "\x1f" + normalizeForDedup(desc)
	if seen[key] {
		return model.Finding{}, false
	}
	seen[key] = true

	f := model.Finding{
		Kind:         kind,
		Description:  desc,
		RegulationID: p.resolveRegulation(c, chunk),
		ChunkIndex:   chunk.Index,
		Section:      chunk.Section,
	}
	if chunk.Section != "" {
		f.Sections = []string{chunk.Section}
	}

	f.Citation, f.CitationVerified = p.resolveCitation(c, chunk)

	f.Confidence = statedConfidence(desc)
	if !f.CitationVerified && model.CompareConfidence(f.Confidence, model.ConfidenceMedium) > 0 {
		// Never report high confidence on an unverified citation.
		f.Confidence = model.ConfidenceMedium
	}

	// Strip the citation out of the description when the model inlined
	// it, so the two fields stay independently renderable.
	if f.Citation != "" {
		f.Description = strings.TrimSpace(strings.ReplaceAll(f.Description, `"`+f.Citation+`"`, ""))
		if f.Description == "" {
			f.Description = desc
		}
	}

	return f, true
}

var confidenceRe = regexp.MustCompile(`(?i)\bconfidence\s*[:(-]?\s*(high|medium|low)\b|\b(high|medium|low)\s+confidence\b`)

// statedConfidence picks up an explicit confidence marker in the
// candidate text, defaulting to medium.
func statedConfidence(text string) model.Confidence {
	m := confidenceRe.FindStringSubmatch(text)
	if m == nil {
		return model.ConfidenceMedium
	}
	level := m[1]
	if level == "" {
		level = m[2]
	}
	return model.ParseConfidence(level)
}

var dedupStripRe = regexp.MustCompile(`[^a-z0-9 ]+`)

func normalizeForDedup(s string) string {
	s = strings.ToLower(s)
	s = dedupStripRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
