package prompt

import (
	"strings"
	"testing"

	"github.com/mpetrov/reglens/internal/model"
)

func testInput() Input {
	return Input{
		Chunk: &model.DocumentChunk{
			Text:     "Customer data is stored indefinitely for business purposes.",
			Section:  "Data Retention",
			Index:    2,
			RiskTier: model.RiskHigh,
			DetectedPatterns: []model.PatternMatch{
				{Pattern: "indefinite_retention", Indicator: "stored indefinitely", Matched: "stored indefinitely"},
			},
		},
		Regulations: []model.RegulationEntry{
			{
				ID:       "Article 5",
				Title:    "Principles relating to processing of personal data",
				Text:     "Personal data shall be kept no longer than necessary.",
				Concepts: []string{"storage limitation", "retention"},
			},
		},
		Context:      "EU regulation on data protection and privacy.",
		DocumentType: "privacy policy",
	}
}

func TestBuild_AnalyzeVariantsCarryContract(t *testing.T) {
	b := NewBuilder()
	in := testInput()

	for _, tier := range []string{"small", "medium", "large", ""} {
		prompt, err := b.Build(TaskAnalyze, tier, in)
		if err != nil {
			t.Fatalf("tier %q: %v", tier, err)
		}
		for _, want := range []string{
			"COMPLIANCE ISSUES:",
			"COMPLIANCE POINTS:",
			"NO COMPLIANCE ISSUES DETECTED.",
			"NO COMPLIANCE POINTS DETECTED.",
			"verbatim quote",
			in.Chunk.Text,
			"Data Retention",
			"Article 5",
		} {
			if !strings.Contains(prompt, want) {
				t.Errorf("tier %q prompt missing %q", tier, want)
			}
		}
	}
}

func TestBuild_TierFallback(t *testing.T) {
	b := NewBuilder()
	in := testInput()

	// "medium" has no analyze template; it must fall back to "small".
	medium, err := b.Build(TaskAnalyze, "medium", in)
	if err != nil {
		t.Fatal(err)
	}
	small, err := b.Build(TaskAnalyze, "small", in)
	if err != nil {
		t.Fatal(err)
	}
	if medium != small {
		t.Errorf("Medium tier should render the small template")
	}

	// An unknown tier falls through to the generic template.
	unknown, err := b.Build(TaskAnalyze, "colossal", in)
	if err != nil {
		t.Fatal(err)
	}
	generic, err := b.Build(TaskAnalyze, "", in)
	if err != nil {
		t.Fatal(err)
	}
	if unknown != generic {
		t.Errorf("Unknown tier should render the generic template")
	}
}

func TestBuild_UnknownTask(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(Task("summarize"), "large", testInput()); err == nil {
		t.Errorf("Unknown task should error")
	}
}

func TestBuild_MissingFieldsRenderMarkers(t *testing.T) {
	b := NewBuilder()

	prompt, err := b.Build(TaskAnalyze, "large", Input{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Unknown") {
		t.Errorf("Empty input should render explicit Unknown markers")
	}
	for _, bad := range []string{"%s", "%d", "{chunk", "{section", "<nil>"} {
		if strings.Contains(prompt, bad) {
			t.Errorf("Prompt leaks placeholder %q", bad)
		}
	}
}

func TestBuild_RiskGuidancePerTier(t *testing.T) {
	b := NewBuilder()
	in := testInput()

	in.Chunk.RiskTier = model.RiskHigh
	prompt, _ := b.Build(TaskAnalyze, "large", in)
	if !strings.Contains(prompt, "HIGH RISK") || !strings.Contains(prompt, "even subtle ones") {
		t.Errorf("High-risk guidance missing")
	}

	in.Chunk.RiskTier = model.RiskLow
	prompt, _ = b.Build(TaskAnalyze, "large", in)
	if !strings.Contains(prompt, "LOW RISK") || !strings.Contains(prompt, "conservative") {
		t.Errorf("Low-risk guidance missing")
	}
}

func TestBuild_DetectedPatternsSurface(t *testing.T) {
	b := NewBuilder()
	in := testInput()

	prompt, _ := b.Build(TaskAnalyze, "large", in)
	if !strings.Contains(prompt, "PRE-SCAN DETECTED POTENTIAL VIOLATIONS:") {
		t.Errorf("Detected patterns not surfaced")
	}
	if !strings.Contains(prompt, "indefinite_retention") {
		t.Errorf("Pattern name not surfaced")
	}

	in.Chunk.DetectedPatterns = nil
	prompt, _ = b.Build(TaskAnalyze, "large", in)
	if strings.Contains(prompt, "PRE-SCAN") {
		t.Errorf("Pattern block should be absent with no matches")
	}
}

func TestBuild_PatternCap(t *testing.T) {
	b := NewBuilder()
	in := testInput()
	in.Chunk.DetectedPatterns = nil
	for i := 0; i < 8; i++ {
		in.Chunk.DetectedPatterns = append(in.Chunk.DetectedPatterns, model.PatternMatch{
			Pattern:   "p" + string(rune('a'+i)),
			Indicator: "indicator",
			Matched:   "matched",
		})
	}

	prompt, _ := b.Build(TaskAnalyze, "large", in)
	if strings.Count(prompt, "pattern detected") != 5 {
		t.Errorf("Pattern list should cap at 5, got %d", strings.Count(prompt, "pattern detected"))
	}
}

func TestBuild_Reconcile(t *testing.T) {
	b := NewBuilder()
	in := testInput()
	in.Findings = []model.Finding{
		{
			Kind:         model.KindIssue,
			Description:  "Data is retained indefinitely",
			RegulationID: "Article 5(1)(e)",
			Confidence:   model.ConfidenceHigh,
			Citation:     "stored indefinitely for business purposes",
		},
		{
			Kind:        model.KindPoint,
			Description: "Policy names a DPO contact",
			Confidence:  model.ConfidenceMedium,
		},
	}

	prompt, err := b.Build(TaskReconcile, "large", in)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"1. [issue] [Article 5(1)(e)]",
		"2. [point] [" + model.UnknownRegulation + "]",
		"NO CHANGES REQUIRED.",
		"privacy policy",
		"Do not invent new findings",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Reconcile prompt missing %q", want)
		}
	}
}

func TestBuild_ReconcileNoFindings(t *testing.T) {
	b := NewBuilder()
	prompt, err := b.Build(TaskReconcile, "", Input{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "(no findings reported)") {
		t.Errorf("Empty findings should render a marker")
	}
}
