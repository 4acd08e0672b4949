package risk

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/mpetrov/reglens/internal/model"
)

// Classifier assigns a risk tier to document chunks using keyword
// categories and violation patterns from the active framework.
// Classification is purely lexical: no model calls, no shared state
// mutation, and the same chunk text always yields the same tier.
type Classifier struct {
	categories map[string][]string
	patterns   []model.ViolationPattern
	threshold  int
	minLength  int

	mu      sync.Mutex
	matchRe map[string]*regexp.Regexp
}

// NewClassifier creates a classifier over the given keyword categories
// and violation patterns. threshold is the number of distinct matched
// categories that promotes a chunk to medium risk; twice the threshold
// promotes to high. minLength is the chunk length below which a chunk
// stays low risk unless a violation pattern fires.
func NewClassifier(categories map[string][]string, patterns []model.ViolationPattern, threshold, minLength int) *Classifier {
	if threshold < 1 {
		threshold = 1
	}
	return &Classifier{
		categories: categories,
		patterns:   patterns,
		threshold:  threshold,
		minLength:  minLength,
		matchRe:    make(map[string]*regexp.Regexp),
	}
}

// Classify scores a chunk and returns its tier along with the
// violation patterns detected in it. The result depends only on the
// chunk text, never on other chunks or prior calls.
func (c *Classifier) Classify(chunk *model.DocumentChunk) (model.RiskTier, []model.PatternMatch) {
	matched := c.matchedCategories(chunk.Text)
	matches := c.matchPatterns(chunk.Text)

	tier := model.RiskLow
	if len(chunk.Text) >= c.minLength {
		switch {
		case len(matched) >= 2*c.threshold:
			tier = model.RiskHigh
		case len(matched) >= c.threshold:
			tier = model.RiskMedium
		}
	}

	// A detected violation pattern always raises the tier one level,
	// even for short chunks.
	if len(matches) > 0 {
		tier = tier.Escalate()
	}

	return tier, matches
}

// matchedCategories returns the names of keyword categories with at
// least one word-boundary match in the text, sorted for determinism.
func (c *Classifier) matchedCategories(text string) []string {
	var names []string
	for name, keywords := range c.categories {
		for _, kw := range keywords {
			if c.matchKeyword(text, kw) != "" {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// matchPatterns scans the text for violation-pattern indicators and
// records the exact substring that matched each one. Each pattern is
// reported at most once, keyed on its first matching indicator.
func (c *Classifier) matchPatterns(text string) []model.PatternMatch {
	var matches []model.PatternMatch
	for _, p := range c.patterns {
		for _, ind := range p.Indicators {
			if hit := c.matchKeyword(text, ind); hit != "" {
				matches = append(matches, model.PatternMatch{
					Pattern:   p.Name,
					Indicator: ind,
					Matched:   hit,
				})
				break
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Pattern != matches[j].Pattern {
			return matches[i].Pattern < matches[j].Pattern
		}
		return matches[i].Indicator < matches[j].Indicator
	})
	return matches
}

// matchKeyword returns the exact substring of text matching the phrase
// on word boundaries, case-insensitively, or "" when absent.
func (c *Classifier) matchKeyword(text, phrase string) string {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return ""
	}
	re := c.keywordRe(phrase)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return text[loc[0]:loc[1]]
}

// keywordRe compiles and caches the boundary-anchored pattern for a
// phrase. Internal whitespace in the phrase matches any run of
// whitespace in the text.
func (c *Classifier) keywordRe(phrase string) *regexp.Regexp {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.matchRe[phrase]; ok {
		return re
	}
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
	c.matchRe[phrase] = re
	return re
}
