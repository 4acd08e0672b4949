package model

import (
	"reflect"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default configuration must validate: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }},
		{"overlap at size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"unknown method", func(c *Config) { c.Chunking.Method = "clever" }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"no tiers", func(c *Config) { c.Tiers = nil }},
		{"default tier missing", func(c *Config) { c.LLM.Tier = "huge" }},
		{"tier without model", func(c *Config) {
			tc := c.Tiers["small"]
			tc.ModelName = ""
			c.Tiers["small"] = tc
		}},
		{"tier temperature out of range", func(c *Config) {
			tc := c.Tiers["small"]
			tc.Temperature = 3.0
			c.Tiers["small"] = tc
		}},
		{"zero workers", func(c *Config) { c.Concurrency.ChunkWorkers = 0 }},
		{"negative retries", func(c *Config) { c.Concurrency.InvokeRetries = -1 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestTierNames_CapabilityOrder(t *testing.T) {
	cfg := DefaultConfig()
	got := cfg.TierNames()
	want := []string{"small", "medium", "large"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TierNames() = %v, want %v", got, want)
	}
}

func TestSmallerTiers(t *testing.T) {
	if got := SmallerTiers("large"); !reflect.DeepEqual(got, []string{"medium", "small"}) {
		t.Errorf("SmallerTiers(large) = %v", got)
	}
	if got := SmallerTiers("small"); len(got) != 0 {
		t.Errorf("SmallerTiers(small) = %v", got)
	}
	// Unrecognized tier names must not fall back through real tiers.
	if got := SmallerTiers("colossal"); got != nil {
		t.Errorf("SmallerTiers(colossal) = %v, want nil", got)
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ApplyPreset("accuracy"); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Tier != "large" || cfg.Retrieval.TopK != 5 || cfg.Risk.CategoryThreshold != 1 {
		t.Errorf("accuracy preset misapplied: %+v", cfg.LLM)
	}

	cfg = DefaultConfig()
	if err := cfg.ApplyPreset("speed"); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Tier != "small" || cfg.Risk.CategoryThreshold != 3 {
		t.Errorf("speed preset misapplied")
	}

	cfg = DefaultConfig()
	if err := cfg.ApplyPreset("comprehensive"); err != nil {
		t.Fatal(err)
	}
	if cfg.Risk.Enabled {
		t.Errorf("comprehensive preset should disable risk skipping")
	}

	if err := DefaultConfig().ApplyPreset("turbo"); err == nil {
		t.Errorf("Unknown preset should error")
	}
}

func TestApplyPreset_FallsBackToAvailableTier(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Tiers, "large")
	if err := cfg.ApplyPreset("accuracy"); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Tier != "medium" {
		t.Errorf("Expected fallback to medium, got %q", cfg.LLM.Tier)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Preset left invalid config: %v", err)
	}
}

func TestParseConfidence(t *testing.T) {
	cases := []struct {
		in   string
		want Confidence
	}{
		{"high", ConfidenceHigh},
		{"HIGH", ConfidenceHigh},
		{" **Low** ", ConfidenceLow},
		{"medium", ConfidenceMedium},
		{"certain", ConfidenceMedium},
		{"", ConfidenceMedium},
	}
	for _, c := range cases {
		if got := ParseConfidence(c.in); got != c.want {
			t.Errorf("ParseConfidence(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestCompareConfidence(t *testing.T) {
	if CompareConfidence(ConfidenceHigh, ConfidenceLow) <= 0 {
		t.Errorf("high should outrank low")
	}
	if CompareConfidence(ConfidenceMedium, ConfidenceMedium) != 0 {
		t.Errorf("equal levels should compare equal")
	}
	if CompareConfidence(ConfidenceLow, ConfidenceHigh) >= 0 {
		t.Errorf("low should rank below high")
	}
}

func TestRiskTier_Escalate(t *testing.T) {
	if RiskLow.Escalate() != RiskMedium {
		t.Errorf("low should escalate to medium")
	}
	if RiskMedium.Escalate() != RiskHigh {
		t.Errorf("medium should escalate to high")
	}
	if RiskHigh.Escalate() != RiskHigh {
		t.Errorf("high should stay high")
	}
}

func TestFinding_AllSections(t *testing.T) {
	f := Finding{Section: "Retention"}
	if got := f.AllSections(); len(got) != 1 || got[0] != "Retention" {
		t.Errorf("AllSections() = %v", got)
	}

	f.Sections = []string{"Retention", "Backups"}
	if got := f.AllSections(); len(got) != 2 {
		t.Errorf("Merged sections should win: %v", got)
	}

	var empty Finding
	if got := empty.AllSections(); got != nil {
		t.Errorf("Empty finding should have no sections: %v", got)
	}
}
