package model

import (
	"fmt"
	"sort"
	"time"
)

// TierConfig describes one named model capability tier. All fields are
// explicit and validated at load time; there are no ad hoc optional keys.
type TierConfig struct {
	ModelName     string  `yaml:"model" json:"model" mapstructure:"model"` // Backend model identifier
	BatchSize     int     `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	ContextWindow int     `yaml:"context_window" json:"context_window" mapstructure:"context_window"` // Tokens
	Temperature   float64 `yaml:"temperature" json:"temperature" mapstructure:"temperature"`
	Description   string  `yaml:"description,omitempty" json:"description,omitempty" mapstructure:"description"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	Size      int    `yaml:"size" json:"size"`       // Target chunk size in characters
	Overlap   int    `yaml:"overlap" json:"overlap"` // Overlap for fixed-window fallback
	Method    string `yaml:"method" json:"method"`   // smart, paragraph, sentence, simple
	MaxChunks int    `yaml:"max_chunks" json:"max_chunks"`
}

// RiskConfig controls progressive risk classification.
type RiskConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	CategoryThreshold int  `yaml:"category_threshold" json:"category_threshold"` // Distinct categories needed for analysis
	MinSectionLength  int  `yaml:"min_section_length" json:"min_section_length"` // Shorter chunks are skipped outright
}

// RetrievalConfig controls regulation retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" json:"top_k"` // Regulation passages shown to the model
}

// LLMConfig selects and configures the text-generation backend.
type LLMConfig struct {
	Provider      string        `yaml:"provider" json:"provider"` // openai, anthropic, ollama
	Tier          string        `yaml:"tier" json:"tier"`         // Default tier name
	APIKey        string        `yaml:"-" json:"-"`
	BaseURL       string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens     int           `yaml:"max_tokens" json:"max_tokens"`
	RatePerSecond float64       `yaml:"rate_per_second" json:"rate_per_second"` // Invocation rate limit per backend
	RateBurst     int           `yaml:"rate_burst" json:"rate_burst"`
}

// ConcurrencyConfig bounds chunk-level parallelism and retries.
type ConcurrencyConfig struct {
	ChunkWorkers  int           `yaml:"chunk_workers" json:"chunk_workers"`
	InvokeRetries int           `yaml:"invoke_retries" json:"invoke_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

// CacheConfig controls the layered response/search cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Dir     string        `yaml:"dir,omitempty" json:"dir,omitempty"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" json:"verbose"`
	IncludeFooter bool `yaml:"include_footer" json:"include_footer"`
}

// Config is the complete RegLens configuration.
type Config struct {
	KnowledgeBaseDir string                `yaml:"knowledge_base_dir" json:"knowledge_base_dir"`
	Chunking         ChunkingConfig        `yaml:"chunking" json:"chunking"`
	Risk             RiskConfig            `yaml:"risk" json:"risk"`
	Retrieval        RetrievalConfig       `yaml:"retrieval" json:"retrieval"`
	LLM              LLMConfig             `yaml:"llm" json:"llm"`
	Tiers            map[string]TierConfig `yaml:"tiers" json:"tiers"`
	Concurrency      ConcurrencyConfig     `yaml:"concurrency" json:"concurrency"`
	Cache            CacheConfig           `yaml:"cache" json:"cache"`
	Output           OutputConfig          `yaml:"output" json:"output"`
}

// DefaultConfig returns sensible defaults for all settings.
func DefaultConfig() *Config {
	return &Config{
		KnowledgeBaseDir: "knowledge_base",
		Chunking: ChunkingConfig{
			Size:      1500,
			Overlap:   100,
			Method:    "smart",
			MaxChunks: 100,
		},
		Risk: RiskConfig{
			Enabled:           true,
			CategoryThreshold: 2,
			MinSectionLength:  80,
		},
		Retrieval: RetrievalConfig{TopK: 3},
		LLM: LLMConfig{
			Provider:      "ollama",
			Tier:          "small",
			Timeout:       90 * time.Second,
			MaxTokens:     1500,
			RatePerSecond: 2,
			RateBurst:     4,
		},
		Tiers: map[string]TierConfig{
			"small": {
				ModelName:     "llama3:8b",
				BatchSize:     4,
				ContextWindow: 4096,
				Temperature:   0.1,
				Description:   "Fast model suitable for most analyses",
			},
			"medium": {
				ModelName:     "llama3:70b-instruct-q4_0",
				BatchSize:     2,
				ContextWindow: 8192,
				Temperature:   0.1,
				Description:   "Balanced model with improved accuracy",
			},
			"large": {
				ModelName:     "llama3:70b-instruct",
				BatchSize:     1,
				ContextWindow: 8192,
				Temperature:   0.1,
				Description:   "High-accuracy model (requires 32GB+ RAM)",
			},
		},
		Concurrency: ConcurrencyConfig{
			ChunkWorkers:  4,
			InvokeRetries: 2,
			RetryBackoff:  2 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Output: OutputConfig{IncludeFooter: true},
	}
}

// TierOrder lists capability tiers from smallest to largest. Tiers not
// listed here sort after the known ones, alphabetically.
var TierOrder = []string{"small", "medium", "large"}

// TierRank returns the capability rank of a tier name (0 = smallest).
func TierRank(tier string) int {
	for i, name := range TierOrder {
		if name == tier {
			return i
		}
	}
	return len(TierOrder)
}

// SmallerTiers returns the tiers strictly below the given tier,
// largest first, for fallback ordering. Unrecognized tiers have no
// smaller tiers.
func SmallerTiers(tier string) []string {
	rank := TierRank(tier)
	if rank >= len(TierOrder) {
		return nil
	}
	var out []string
	for i := rank - 1; i >= 0; i-- {
		out = append(out, TierOrder[i])
	}
	return out
}

// Validate checks the configuration for inconsistencies. It is called
// once at load time so the pipeline can assume a well-formed config.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap)
	}
	switch c.Chunking.Method {
	case "smart", "paragraph", "sentence", "simple":
	default:
		return fmt.Errorf("unknown chunking.method: %q", c.Chunking.Method)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one model tier must be configured")
	}
	if _, ok := c.Tiers[c.LLM.Tier]; !ok {
		return fmt.Errorf("llm.tier %q is not a configured tier (have: %v)", c.LLM.Tier, c.TierNames())
	}
	for name, tier := range c.Tiers {
		if tier.ModelName == "" {
			return fmt.Errorf("tier %q has no model identifier", name)
		}
		if tier.BatchSize <= 0 {
			return fmt.Errorf("tier %q has invalid batch_size %d", name, tier.BatchSize)
		}
		if tier.ContextWindow <= 0 {
			return fmt.Errorf("tier %q has invalid context_window %d", name, tier.ContextWindow)
		}
		if tier.Temperature < 0 || tier.Temperature > 2 {
			return fmt.Errorf("tier %q has out-of-range temperature %v", name, tier.Temperature)
		}
	}
	if c.Concurrency.ChunkWorkers <= 0 {
		return fmt.Errorf("concurrency.chunk_workers must be positive, got %d", c.Concurrency.ChunkWorkers)
	}
	if c.Concurrency.InvokeRetries < 0 {
		return fmt.Errorf("concurrency.invoke_retries must not be negative, got %d", c.Concurrency.InvokeRetries)
	}
	return nil
}

// TierNames returns the configured tier names in capability order.
func (c *Config) TierNames() []string {
	names := make([]string, 0, len(c.Tiers))
	for name := range c.Tiers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := TierRank(names[i]), TierRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

// ApplyPreset adjusts the configuration for a named performance preset.
func (c *Config) ApplyPreset(name string) error {
	switch name {
	case "accuracy":
		c.Retrieval.TopK = 5
		c.Risk.CategoryThreshold = 1
		c.LLM.Tier = c.bestAvailableTier("large")
	case "speed":
		c.Retrieval.TopK = 2
		c.Risk.CategoryThreshold = 3
		c.LLM.Tier = c.bestAvailableTier("small")
	case "balanced":
		c.Retrieval.TopK = 3
		c.Risk.CategoryThreshold = 2
	case "comprehensive":
		c.Retrieval.TopK = 5
		c.Risk.Enabled = false
		c.LLM.Tier = c.bestAvailableTier("large")
	default:
		return fmt.Errorf("unknown preset: %q (supported: accuracy, speed, balanced, comprehensive)", name)
	}
	return nil
}

func (c *Config) bestAvailableTier(want string) string {
	if _, ok := c.Tiers[want]; ok {
		return want
	}
	for _, name := range SmallerTiers(want) {
		if _, ok := c.Tiers[name]; ok {
			return name
		}
	}
	return c.LLM.Tier
}
