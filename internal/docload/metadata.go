package docload

import (
	"regexp"
	"sort"
	"strings"
)

// Metadata holds document-level signals surfaced before analysis.
type Metadata struct {
	DocumentType         string   `json:"document_type"`
	DataMentions         []string `json:"potential_data_mentions,omitempty"`
	ComplianceIndicators []string `json:"compliance_indicators,omitempty"`
}

var docTypePatterns = []struct {
	pattern *regexp.Regexp
	docType string
}{
	{regexp.MustCompile(`privacy policy`), "privacy_policy"},
	{regexp.MustCompile(`terms (of use|of service)`), "terms_of_service"},
	{regexp.MustCompile(`agreement`), "agreement"},
	{regexp.MustCompile(`proposal`), "proposal"},
	{regexp.MustCompile(`contract`), "contract"},
	{regexp.MustCompile(`report`), "report"},
	{regexp.MustCompile(`policy`), "policy"},
}

var dataMentionRe = regexp.MustCompile(
	`\b(personal data|information|data|email|address|name|phone|user|customer|profile|account|location|tracking)\b`)

var complianceIndicatorRe = regexp.MustCompile(
	`\b(consent|opt-in|opt-out|privacy|compliance|regulation|rights|retain|delete|access|security|cookie)\b`)

// ExtractMetadata sniffs the document type and the data/compliance
// vocabulary present in the text. Purely informational; the risk
// classifier does its own scoring per chunk.
func ExtractMetadata(text string) Metadata {
	lower := strings.ToLower(text)

	meta := Metadata{DocumentType: "unknown"}
	for _, p := range docTypePatterns {
		if p.pattern.MatchString(lower) {
			meta.DocumentType = p.docType
			break
		}
	}

	meta.DataMentions = uniqueSorted(dataMentionRe.FindAllString(lower, -1))
	meta.ComplianceIndicators = uniqueSorted(complianceIndicatorRe.FindAllString(lower, -1))

	return meta
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}
