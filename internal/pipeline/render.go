package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mpetrov/reglens/internal/model"
)

// Renderer writes analysis results to report files
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full result as indented JSON
func (r *Renderer) RenderJSON(res *model.AnalysisResult, path string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes a human-readable compliance report
func (r *Renderer) RenderMarkdown(res *model.AnalysisResult, path string) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Compliance Analysis Report\n\n")
	fmt.Fprintf(&sb, "- **Document:** %s\n", res.Document)
	if res.DocumentType != "" {
		fmt.Fprintf(&sb, "- **Document type:** %s\n", res.DocumentType)
	}
	fmt.Fprintf(&sb, "- **Framework:** %s\n", res.Framework)
	fmt.Fprintf(&sb, "- **Analyzed:** %s\n", res.FinishedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&sb, "- **Run ID:** %s\n\n", res.RunID)

	s := res.Summary
	fmt.Fprintf(&sb, "## Summary\n\n")
	fmt.Fprintf(&sb, "| Sections | Analyzed | Skipped | Failed | Issues | Compliance points |\n")
	fmt.Fprintf(&sb, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %d | %d |\n\n",
		s.Chunks, s.Analyzed, s.Skipped, s.Failed, s.Issues, s.Points)

	writeFindings(&sb, "Compliance Issues", res.Issues())
	writeFindings(&sb, "Compliance Points", res.Points())

	if len(res.Failed) > 0 {
		fmt.Fprintf(&sb, "## Failed Sections\n\n")
		for _, f := range res.Failed {
			fmt.Fprintf(&sb, "- **%s** (chunk %d): %s\n", f.Section, f.Index, f.Reason)
		}
		sb.WriteString("\n")
	}

	if r.includeFooter {
		sb.WriteString("---\n\nGenerated by reglens. Findings are model-assisted and require human review.\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeFindings(sb *strings.Builder, title string, findings []model.Finding) {
	fmt.Fprintf(sb, "## %s\n\n", title)
	if len(findings) == 0 {
		sb.WriteString("None detected.\n\n")
		return
	}

	group := ""
	n := 0
	for _, f := range findings {
		if f.RegulationID != group {
			group = f.RegulationID
			fmt.Fprintf(sb, "### %s\n\n", group)
		}
		n++
		fmt.Fprintf(sb, "%d. %s\n", n, f.Description)
		if f.Citation != "" {
			label := "quote"
			if !f.CitationVerified {
				label = "inferred citation"
			}
			fmt.Fprintf(sb, "   - %s: %q\n", label, f.Citation)
		}
		fmt.Fprintf(sb, "   - confidence: %s, sections: %s\n\n",
			f.Confidence, strings.Join(f.AllSections(), "; "))
	}
}
