package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mpetrov/reglens/internal/model"
)

func renderResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		RunID:        "run-123",
		Document:     "policy.txt",
		DocumentType: "privacy policy",
		Framework:    "gdpr",
		FinishedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Findings: []model.Finding{
			{
				Kind:             model.KindIssue,
				Description:      "Data retained indefinitely",
				RegulationID:     "Article 5(1)(e)",
				Confidence:       model.ConfidenceHigh,
				Citation:         "stored indefinitely for business purposes",
				CitationVerified: true,
				Section:          "Data Retention",
			},
			{
				Kind:         model.KindIssue,
				Description:  "No lawful basis stated for partner sharing",
				RegulationID: "Article 6",
				Confidence:   model.ConfidenceMedium,
				Citation:     "We share data with trusted partners.",
				Section:      "Sharing",
			},
			{
				Kind:         model.KindPoint,
				Description:  "Policy names a DPO contact",
				RegulationID: "Article 37",
				Confidence:   model.ConfidenceMedium,
				Section:      "Contact",
			},
		},
		Failed: []model.SectionFailure{
			{Section: "Appendix", Index: 9, Reason: "ollama invocation failed"},
		},
		Summary: model.Summary{Chunks: 10, Analyzed: 8, Skipped: 1, Failed: 1, Issues: 2, Points: 1},
	}
}

func TestRenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := NewRenderer(true).RenderJSON(renderResult(), path); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.AnalysisResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-123" || len(decoded.Findings) != 3 {
		t.Errorf("Round-trip lost data: %+v", decoded)
	}
}

func TestRenderMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := NewRenderer(true).RenderMarkdown(renderResult(), path); err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)

	for _, want := range []string{
		"# Compliance Analysis Report",
		"policy.txt",
		"gdpr",
		"### Article 5(1)(e)",
		"### Article 6",
		"## Compliance Points",
		`quote: "stored indefinitely for business purposes"`,
		`inferred citation: "We share data with trusted partners."`,
		"## Failed Sections",
		"**Appendix** (chunk 9)",
		"require human review",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Markdown report missing %q", want)
		}
	}
}

func TestRenderMarkdown_NoFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := NewRenderer(false).RenderMarkdown(renderResult(), path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Generated by reglens") {
		t.Errorf("Footer rendered despite being disabled")
	}
}

func TestRenderMarkdown_EmptyFindings(t *testing.T) {
	res := renderResult()
	res.Findings = nil
	res.Failed = nil

	path := filepath.Join(t.TempDir(), "report.md")
	if err := NewRenderer(true).RenderMarkdown(res, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)
	if !strings.Contains(report, "None detected.") {
		t.Errorf("Empty sections should say none detected")
	}
	if strings.Contains(report, "## Failed Sections") {
		t.Errorf("Failed section header rendered with no failures")
	}
}
