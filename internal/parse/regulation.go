package parse

import (
	"regexp"
	"strings"

	"github.com/mpetrov/reglens/internal/model"
)

// Parenthesized reference in candidate text, e.g. "(Article 5(1)(e))".
// Balanced inner parens up to one level deep.
var parenRegRe = regexp.MustCompile(`\(((?:Article|Art\.?|Section|Recital|§)\s*[0-9][0-9a-zA-Z.]*(?:\([^()]*\))*)\)`)

// Labeled field inside prose, e.g. "Regulation: Article 17".
var labeledRegRe = regexp.MustCompile(`(?i)\bregulation\s*:\s*([^\n.;]+)`)

var articleRefRe = regexp.MustCompile(`(?i)(?:article|art\.?)\s*(\d+(?:\([^()]+\))*)`)

// resolveRegulation finds the regulation id for a candidate, trying a
// parenthesized reference in the text, then an explicit field or
// labeled "Regulation:" line, then the chunk's detected violation
// patterns, and finally the unknown marker. A finding is never dropped
// for lacking a regulation reference.
func (p *Parser) resolveRegulation(c candidate, chunk *model.DocumentChunk) string {
	if m := parenRegRe.FindStringSubmatch(c.text); m != nil {
		return standardizeRegulation(m[1])
	}

	if c.regulation != "" {
		return standardizeRegulation(c.regulation)
	}
	if m := labeledRegRe.FindStringSubmatch(c.text); m != nil {
		return standardizeRegulation(m[1])
	}

	for _, pm := range chunk.DetectedPatterns {
		if regs, ok := p.patternRegs[pm.Pattern]; ok && len(regs) > 0 {
			return standardizeRegulation(regs[0])
		}
	}

	return model.UnknownRegulation
}

// standardizeRegulation normalizes the reference variants models emit:
// "Art. 5", "GDPR Article 5(1)(e)", bare "5" all become "Article ...".
// References that already carry their own unit (Section, Recital) are
// kept as written.
func standardizeRegulation(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.UnknownRegulation
	}

	if m := articleRefRe.FindStringSubmatch(ref); m != nil {
		return "Article " + m[1]
	}

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "section") || strings.HasPrefix(lower, "recital") || strings.HasPrefix(lower, "§") {
		return ref
	}

	// A bare leading number means an article reference.
	if ref[0] >= '0' && ref[0] <= '9' {
		return "Article " + ref
	}

	if strings.EqualFold(ref, "unknown") || strings.EqualFold(ref, model.UnknownRegulation) {
		return model.UnknownRegulation
	}
	return ref
}
