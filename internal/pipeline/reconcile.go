package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mpetrov/reglens/internal/model"
	"github.com/mpetrov/reglens/internal/prompt"
)

var reconcileItemRe = regexp.MustCompile(`^\s*(\d+)[.)]\s+`)

// Reconcile runs a final review pass over the aggregated findings,
// asking the model which of them duplicate or contradict each other,
// and drops the ones it names. The pass runs on the default tier and
// is strictly subtractive; a failed or unparseable review leaves the
// result unchanged.
func (a *Analyzer) Reconcile(ctx context.Context, res *model.AnalysisResult) error {
	if len(res.Findings) < 2 {
		return nil
	}

	text, err := a.builder.Build(prompt.TaskReconcile, a.config.LLM.Tier, prompt.Input{
		DocumentType: res.DocumentType,
		Findings:     res.Findings,
	})
	if err != nil {
		return err
	}

	raw, err := a.invokeWithRetry(ctx, text, a.config.LLM.Tier)
	if err != nil {
		return err
	}

	if strings.Contains(strings.ToLower(raw), "no changes required") {
		return nil
	}

	drop := map[int]bool{}
	for _, line := range strings.Split(raw, "\n") {
		m := reconcileItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(res.Findings) {
			continue
		}
		drop[n-1] = true
	}
	if len(drop) == 0 || len(drop) == len(res.Findings) {
		// Nothing parseable, or the model wants everything gone;
		// neither is actionable.
		return nil
	}

	kept := res.Findings[:0]
	for i, f := range res.Findings {
		if !drop[i] {
			kept = append(kept, f)
		}
	}
	res.Findings = kept

	res.Summary.Issues = len(res.Issues())
	res.Summary.Points = len(res.Points())
	return nil
}
