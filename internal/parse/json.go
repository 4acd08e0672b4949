package parse

import (
	"encoding/json"
	"strings"
)

// parseJSON tries to read the response as a structured payload. Two
// shapes are accepted: a bare array of [description, regulation,
// quote] triples and an object with a "violations" array whose items
// are either triples or objects. Returns ok=false when no parseable
// JSON payload is present, which hands the response to the prose
// strategies. A valid empty payload returns ok=true with no
// candidates.
func parseJSON(raw string) (issues, points []candidate, ok bool) {
	cleaned := stripNoise(raw)

	if payload := matchDelimited(cleaned, '{', '}'); payload != "" {
		if iss, valid := parseViolationsObject(payload); valid {
			return iss, nil, true
		}
	}
	if payload := matchDelimited(cleaned, '[', ']'); payload != "" {
		if iss, valid := parseTripleArray(payload); valid {
			return iss, nil, true
		}
	}
	return nil, nil, false
}

// jsonPrefixes is the noise models commonly put before a payload.
var jsonPrefixes = []string{
	"here is the json output:",
	"here's the json:",
	"json output:",
	"```json",
	"```",
}

// stripNoise removes markdown fences and lead-in phrases around a
// JSON payload.
func stripNoise(raw string) string {
	cleaned := strings.TrimSpace(raw)
	for changed := true; changed; {
		changed = false
		for _, prefix := range jsonPrefixes {
			if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
				cleaned = strings.TrimSpace(cleaned[len(prefix):])
				changed = true
			}
		}
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// matchDelimited extracts the first balanced open..close region, or ""
// when the delimiters never balance (e.g. a truncated response).
func matchDelimited(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// parseTripleArray reads a JSON array of [description, regulation,
// quote] triples. An empty array is a valid no-findings payload.
func parseTripleArray(payload string) ([]candidate, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, false
	}
	if len(items) == 0 {
		return nil, true
	}

	var out []candidate
	for _, item := range items {
		var triple []string
		if err := json.Unmarshal(item, &triple); err != nil {
			// One malformed item invalidates the triple-array reading;
			// something else is inside the brackets.
			return nil, false
		}
		if len(triple) < 3 {
			continue
		}
		desc := strings.TrimSpace(triple[0])
		if len(desc) <= 5 {
			continue
		}
		out = append(out, candidate{
			text:       desc,
			regulation: strings.TrimSpace(triple[1]),
			citation:   strings.TrimSpace(triple[2]),
		})
	}
	return out, true
}

// violationItem tolerates the field-name drift seen across model
// outputs for object-shaped violations.
type violationItem struct {
	Issue      string `json:"issue"`
	Problem    string `json:"problem"`
	Violation  string `json:"violation"`
	Regulation string `json:"regulation"`
	Section    string `json:"section"`
	Rule       string `json:"rule"`
	Quote      string `json:"quote"`
	Citation   string `json:"citation"`
	Text       string `json:"text"`
}

func (v *violationItem) description() string {
	for _, s := range []string{v.Issue, v.Problem, v.Violation} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func (v *violationItem) regulationRef() string {
	for _, s := range []string{v.Regulation, v.Section, v.Rule} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func (v *violationItem) quoteText() string {
	for _, s := range []string{v.Quote, v.Citation, v.Text} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// parseViolationsObject reads a {"violations": [...]} object where the
// array holds triples or violation objects.
func parseViolationsObject(payload string) ([]candidate, bool) {
	var obj struct {
		Violations []json.RawMessage `json:"violations"`
	}
	if err := json.Unmarshal([]byte(payload), &obj); err != nil || obj.Violations == nil {
		return nil, false
	}

	var out []candidate
	for _, item := range obj.Violations {
		var triple []string
		if err := json.Unmarshal(item, &triple); err == nil {
			if len(triple) >= 3 && len(strings.TrimSpace(triple[0])) > 5 {
				out = append(out, candidate{
					text:       strings.TrimSpace(triple[0]),
					regulation: strings.TrimSpace(triple[1]),
					citation:   strings.TrimSpace(triple[2]),
				})
			}
			continue
		}
		var v violationItem
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		desc := v.description()
		if desc == "" {
			continue
		}
		out = append(out, candidate{
			text:       desc,
			regulation: v.regulationRef(),
			citation:   v.quoteText(),
		})
	}
	return out, true
}
