package model

// RegulationEntry is one addressable passage of a regulatory corpus.
// Entries are loaded once per framework and shared read-only across
// all chunk analyses.
type RegulationEntry struct {
	ID        string   `json:"id"` // e.g. "Article 5(1)(e)"
	Title     string   `json:"title,omitempty"`
	Text      string   `json:"text"`
	Framework string   `json:"framework"`
	Concepts  []string `json:"concepts,omitempty"` // Key regulatory concepts found in the entry
}

// ViolationPattern is a named heuristic used both to score chunk risk
// and to infer regulation ids when model output under-specifies them.
type ViolationPattern struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Indicators    []string `yaml:"indicators" json:"indicators"`
	RegulationIDs []string `yaml:"regulations" json:"regulations"`
}

// FrameworkInfo describes one entry of the knowledge-base index.
type FrameworkInfo struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Region      string `yaml:"region,omitempty" json:"region,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}
