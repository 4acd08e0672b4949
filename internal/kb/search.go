package kb

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mpetrov/reglens/internal/cache"
	"github.com/mpetrov/reglens/internal/model"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "any": true, "are": true,
	"as": true, "at": true, "be": true, "by": true, "for": true,
	"from": true, "has": true, "have": true, "in": true, "is": true,
	"it": true, "its": true, "may": true, "not": true, "of": true,
	"on": true, "or": true, "shall": true, "such": true, "that": true,
	"the": true, "their": true, "this": true, "to": true, "which": true,
	"will": true, "with": true, "where": true, "when": true, "other": true,
	"been": true, "being": true, "was": true, "were": true, "than": true,
}

var tokenRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z-]+`)

// tokenize lowercases the text and returns its alphabetic tokens,
// stopwords removed.
func tokenize(text string) []string {
	var out []string
	for _, t := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if !stopwords[t] && len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

// Search returns the topK entries most relevant to the query, ranked
// by stopword-filtered token overlap with a boost for matches on the
// entry's extracted concepts. Results for a (framework, query, topK)
// triple are cached when a cache was configured.
func (k *KnowledgeBase) Search(fw *Framework, query string, topK int) []model.RegulationEntry {
	if topK <= 0 || len(fw.Entries) == 0 {
		return nil
	}

	var key string
	if k.cache != nil {
		key = cache.Key("kb-search", fw.Info.ID, query, strconv.Itoa(topK))
		if raw, ok := k.cache.Get(key); ok {
			var ids []string
			if json.Unmarshal(raw, &ids) == nil {
				if entries, ok := fw.resolveAll(ids); ok {
					return entries
				}
			}
		}
	}

	queryTokens := tokenize(query)
	querySet := map[string]bool{}
	for _, t := range queryTokens {
		querySet[t] = true
	}

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i := range fw.Entries {
		s := scoreEntry(&fw.Entries[i], querySet)
		if s > 0 {
			ranked = append(ranked, scored{idx: i, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].idx < ranked[j].idx
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	results := make([]model.RegulationEntry, 0, len(ranked))
	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, fw.Entries[r.idx])
		ids = append(ids, fw.Entries[r.idx].ID)
	}

	if k.cache != nil && len(ids) > 0 {
		if raw, err := json.Marshal(ids); err == nil {
			_ = k.cache.Set(key, raw, 24*time.Hour)
		}
	}
	return results
}

// scoreEntry counts query tokens present in the entry text, weighting
// concept matches triple. Overlap is normalized by entry length so
// short focused articles outrank long catch-alls.
func scoreEntry(e *model.RegulationEntry, querySet map[string]bool) float64 {
	entryTokens := tokenize(e.Title + " " + e.Text)
	if len(entryTokens) == 0 {
		return 0
	}
	entrySet := map[string]bool{}
	for _, t := range entryTokens {
		entrySet[t] = true
	}

	overlap := 0
	for t := range querySet {
		if entrySet[t] {
			overlap++
		}
	}

	boost := 0
	for _, c := range e.Concepts {
		for _, w := range strings.Fields(c) {
			if querySet[w] {
				boost++
				break
			}
		}
	}

	if overlap == 0 && boost == 0 {
		return 0
	}
	return (float64(overlap) + 3*float64(boost)) / float64(1+len(entrySet)/50)
}

// resolveAll maps cached ids back to entries; false when any id no
// longer resolves, which forces a fresh search.
func (f *Framework) resolveAll(ids []string) ([]model.RegulationEntry, bool) {
	entries := make([]model.RegulationEntry, 0, len(ids))
	for _, id := range ids {
		e, ok := f.Entry(id)
		if !ok {
			return nil, false
		}
		entries = append(entries, *e)
	}
	return entries, true
}
