package pipeline

import (
	"regexp"
	"strings"

	"github.com/mpetrov/reglens/internal/model"
)

// citationOverlapThreshold is the token-overlap ratio above which two
// citations are considered the same evidence.
const citationOverlapThreshold = 0.7

// dedupFindings merges duplicate findings. Two findings are duplicates
// when they report the same kind against the same regulation id and
// either their citations overlap heavily or they describe the same
// thing in the same section. The merged finding keeps the highest
// confidence, prefers a verified citation, combines section labels and
// keeps the earliest chunk index. Findings against the same regulation
// with distinct citations stay separate.
func dedupFindings(findings []model.Finding) []model.Finding {
	var merged []model.Finding
	for _, f := range findings {
		matched := false
		for i := range merged {
			if isDuplicate(&merged[i], &f) {
				mergeInto(&merged[i], &f)
				matched = true
				break
			}
		}
		if !matched {
			if len(f.Sections) == 0 && f.Section != "" {
				f.Sections = []string{f.Section}
			}
			merged = append(merged, f)
		}
	}
	return merged
}

func isDuplicate(a, b *model.Finding) bool {
	if a.Kind != b.Kind || a.RegulationID != b.RegulationID {
		return false
	}
	if citationOverlap(a.Citation, b.Citation) >= citationOverlapThreshold {
		return true
	}
	return a.Section == b.Section &&
		normalizeText(a.Description) == normalizeText(b.Description)
}

func mergeInto(dst *model.Finding, src *model.Finding) {
	if model.CompareConfidence(src.Confidence, dst.Confidence) > 0 {
		dst.Confidence = src.Confidence
	}
	if src.CitationVerified && !dst.CitationVerified {
		dst.Citation = src.Citation
		dst.CitationVerified = true
	}
	if src.ChunkIndex < dst.ChunkIndex {
		dst.ChunkIndex = src.ChunkIndex
		dst.Section = src.Section
	}
	for _, s := range src.AllSections() {
		if !containsString(dst.Sections, s) {
			dst.Sections = append(dst.Sections, s)
		}
	}
}

// citationOverlap computes token-set overlap between two citations,
// relative to the smaller set.
func citationOverlap(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	small, large := ta, tb
	if len(tb) < len(ta) {
		small, large = tb, ta
	}
	common := 0
	for t := range small {
		if large[t] {
			common++
		}
	}
	return float64(common) / float64(len(small))
}

var dedupTokenRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, t := range dedupTokenRe.FindAllString(strings.ToLower(s), -1) {
		if len(t) > 2 {
			set[t] = true
		}
	}
	return set
}

func normalizeText(s string) string {
	return strings.Join(dedupTokenRe.FindAllString(strings.ToLower(s), -1), " ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
