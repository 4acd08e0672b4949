package parse

import (
	"regexp"
	"strings"

	"github.com/mpetrov/reglens/internal/chunk"
	"github.com/mpetrov/reglens/internal/model"
)

// maxInferredCitation bounds the length of a citation taken from the
// chunk rather than quoted by the model.
const maxInferredCitation = 240

var quotedRe = regexp.MustCompile(`"([^"]{3,})"`)

// resolveCitation finds the supporting quote for a candidate. An
// explicit or in-text double-quoted citation is re-verified against
// the chunk before it is labeled verbatim; a quote the chunk does not
// contain is kept but marked unverified. With no quote at all, the
// most relevant chunk sentence is used as an inferred, unverified
// citation.
func (p *Parser) resolveCitation(c candidate, src *model.DocumentChunk) (string, bool) {
	quote := strings.Trim(strings.TrimSpace(c.citation), `"`)
	if quote == "" {
		if m := quotedRe.FindStringSubmatch(c.text); m != nil {
			quote = strings.TrimSpace(m[1])
		}
	}

	if quote != "" {
		return quote, src.ContainsVerbatim(quote)
	}

	inferred := bestSentence(src.Text, c.text)
	return inferred, false
}

// bestSentence picks the source sentence with the highest keyword
// overlap against the description. Ties keep the earliest sentence so
// inference is deterministic and follows document order.
func bestSentence(source, description string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}

	want := bagOfWords(description)
	if len(want) == 0 {
		return ""
	}

	best := ""
	bestScore := 0
	for _, sentence := range chunk.SplitSentences(source) {
		score := 0
		for w := range bagOfWords(sentence) {
			if want[w] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = sentence
		}
	}

	best = strings.TrimSpace(best)
	if len(best) > maxInferredCitation {
		best = best[:maxInferredCitation] + "..."
	}
	return best
}

var citationStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "for": true, "is": true,
	"are": true, "will": true, "that": true, "this": true, "with": true,
	"document": true, "states": true, "violating": true, "which": true,
	"does": true, "not": true, "has": true, "have": true, "its": true,
}

var wordRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z-]+`)

func bagOfWords(text string) map[string]bool {
	words := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) > 2 && !citationStopwords[w] {
			words[w] = true
		}
	}
	return words
}
