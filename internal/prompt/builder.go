package prompt

import (
	"fmt"
	"strings"

	"github.com/mpetrov/reglens/internal/model"
)

// Task names a prompt family. Every task has a generic template, so
// Build always succeeds for a known task regardless of tier.
type Task string

const (
	// TaskAnalyze asks the model to audit one chunk for issues and points.
	TaskAnalyze Task = "analyze"

	// TaskReconcile asks the model to review aggregated findings for
	// contradictions and duplicates in a final pass.
	TaskReconcile Task = "reconcile"
)

// Input carries everything a template may substitute. Missing fields
// render as explicit "Unknown" markers, never as raw placeholders.
type Input struct {
	Chunk        *model.DocumentChunk
	Regulations  []model.RegulationEntry
	Context      string
	DocumentType string
	Findings     []model.Finding
}

type tmplKey struct {
	task Task
	tier string
}

// Builder renders prompts keyed by (task, tier) with fallback to the
// next-smaller tier and finally to a generic per-task template.
type Builder struct {
	templates map[tmplKey]func(Input) string
}

// NewBuilder creates a builder with the built-in template set.
func NewBuilder() *Builder {
	b := &Builder{templates: map[tmplKey]func(Input) string{}}
	b.templates[tmplKey{TaskAnalyze, ""}] = analyzeGeneric
	b.templates[tmplKey{TaskAnalyze, "small"}] = analyzeSmall
	b.templates[tmplKey{TaskAnalyze, "large"}] = analyzeLarge
	b.templates[tmplKey{TaskReconcile, ""}] = reconcileGeneric
	return b
}

// Build renders the prompt for a task at the given tier. Template
// lookup tries the exact tier, then each smaller tier largest-first,
// then the task's generic template. Unknown tasks are an error.
func (b *Builder) Build(task Task, tier string, in Input) (string, error) {
	if f, ok := b.templates[tmplKey{task, tier}]; ok {
		return f(in), nil
	}
	for _, t := range model.SmallerTiers(tier) {
		if f, ok := b.templates[tmplKey{task, t}]; ok {
			return f(in), nil
		}
	}
	if f, ok := b.templates[tmplKey{task, ""}]; ok {
		return f(in), nil
	}
	return "", fmt.Errorf("unknown prompt task %q", task)
}

// outputContract is the fixed response shape every analyze variant
// demands: verbatim quotes, separate headers, explicit sentinels.
const outputContract = `INSTRUCTIONS:
1. Analyze this section for compliance issues and compliance points based on the regulations provided.
2. For each finding, include a direct verbatim quote from the document text in double quotes.
3. List issues under a "COMPLIANCE ISSUES:" header and strengths under a "COMPLIANCE POINTS:" header.
4. Format every finding as one line: description, then the supporting quote. Do not add "Issue:" or "Regulation:" labels unless the regulation reference is in parentheses, e.g. (Article 5(1)(e)).
5. Never use placeholders like "see document text" - always quote the actual text.

If no issues are found, write "NO COMPLIANCE ISSUES DETECTED."
If no compliance points are found, write "NO COMPLIANCE POINTS DETECTED."`

func analyzeGeneric(in Input) string {
	return fmt.Sprintf(`You are an expert compliance auditor reviewing one section of a document.

SECTION: %s
TEXT:
%s

RELEVANT REGULATIONS:
%s

RISK LEVEL: %s

%s%s%s
`, section(in), chunkText(in), formatRegulations(in),
		strings.ToUpper(riskLevel(in)), riskGuidance(in), detectedPatterns(in), outputContract)
}

// analyzeSmall keeps the contract but trims context so the prompt fits
// small local models comfortably.
func analyzeSmall(in Input) string {
	return fmt.Sprintf(`You are a compliance auditor. Review this document section against the regulation excerpts.

SECTION: %s
TEXT:
%s

REGULATIONS:
%s

%s
`, section(in), chunkText(in), formatRegulationsBrief(in), outputContract)
}

// analyzeLarge adds framework context and document-type framing for
// models with room to use them.
func analyzeLarge(in Input) string {
	return fmt.Sprintf(`You are an expert compliance auditor. You are reviewing a %s section by section.

FRAMEWORK CONTEXT:
%s

SECTION: %s
TEXT:
%s

RELEVANT REGULATIONS:
%s

RISK LEVEL: %s

%s%sBe precise about which regulation each finding relates to, and cite the regulation reference in parentheses after the description.

%s
`, documentType(in), frameworkContext(in), section(in), chunkText(in),
		formatRegulations(in), strings.ToUpper(riskLevel(in)), riskGuidance(in), detectedPatterns(in), outputContract)
}

func reconcileGeneric(in Input) string {
	var sb strings.Builder
	if len(in.Findings) == 0 {
		sb.WriteString("(no findings reported)\n")
	}
	for i, f := range in.Findings {
		reg := f.RegulationID
		if reg == "" {
			reg = model.UnknownRegulation
		}
		fmt.Fprintf(&sb, "%d. [%s] [%s] %s (%s) \"%s\"\n", i+1, f.Kind, reg, f.Description, f.Confidence, f.Citation)
	}

	return fmt.Sprintf(`You are an expert compliance auditor performing a final review of findings collected across a full document.

DOCUMENT TYPE: %s

FINDINGS:
%s
INSTRUCTIONS:
1. Identify findings that duplicate or contradict each other.
2. For each finding that should be removed or merged, list its number and the reason.
3. Do not invent new findings.

If every finding should stand as-is, write "NO CHANGES REQUIRED."
`, documentType(in), sb.String())
}

// Substitution helpers. Each returns a concrete marker when its input
// is missing so no template slot is ever left blank.

func section(in Input) string {
	if in.Chunk == nil || strings.TrimSpace(in.Chunk.Section) == "" {
		return "Unknown"
	}
	return in.Chunk.Section
}

func chunkText(in Input) string {
	if in.Chunk == nil || strings.TrimSpace(in.Chunk.Text) == "" {
		return "Unknown"
	}
	return in.Chunk.Text
}

func riskLevel(in Input) string {
	if in.Chunk == nil || in.Chunk.RiskTier == "" {
		return string(model.RiskMedium)
	}
	return string(in.Chunk.RiskTier)
}

func documentType(in Input) string {
	if strings.TrimSpace(in.DocumentType) == "" {
		return "document"
	}
	return in.DocumentType
}

func frameworkContext(in Input) string {
	if strings.TrimSpace(in.Context) == "" {
		return "Unknown"
	}
	return in.Context
}

func riskGuidance(in Input) string {
	switch model.RiskTier(riskLevel(in)) {
	case model.RiskHigh:
		return "IMPORTANT: This section has been identified as HIGH RISK. Be thorough and identify all potential compliance issues, even subtle ones.\n\n"
	case model.RiskLow:
		return "IMPORTANT: This section has been identified as LOW RISK. Be conservative - only note clear, obvious violations.\n\n"
	default:
		return "IMPORTANT: This section has been identified as MEDIUM RISK. Focus on the most significant compliance issues.\n\n"
	}
}

// detectedPatterns surfaces the pre-scan violation matches, capped to
// keep token use bounded.
func detectedPatterns(in Input) string {
	if in.Chunk == nil || len(in.Chunk.DetectedPatterns) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("PRE-SCAN DETECTED POTENTIAL VIOLATIONS:\n")
	for i, p := range in.Chunk.DetectedPatterns {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "%d. Potential '%s' pattern detected (indicator: %q, matched: %q)\n", i+1, p.Pattern, p.Indicator, p.Matched)
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatRegulations(in Input) string {
	if len(in.Regulations) == 0 {
		return "Unknown"
	}
	var parts []string
	for i, r := range in.Regulations {
		head := fmt.Sprintf("REGULATION %d: %s", i+1, r.ID)
		if r.Title != "" {
			head += " - " + r.Title
		}
		if len(r.Concepts) > 0 {
			head += "\nRELATED CONCEPTS: " + strings.Join(r.Concepts, ", ")
		}
		parts = append(parts, head+"\n"+r.Text)
	}
	return strings.Join(parts, "\n\n")
}

func formatRegulationsBrief(in Input) string {
	if len(in.Regulations) == 0 {
		return "Unknown"
	}
	var parts []string
	for _, r := range in.Regulations {
		text := r.Text
		if len(text) > 600 {
			text = text[:600] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s: %s", r.ID, text))
	}
	return strings.Join(parts, "\n\n")
}
