package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mpetrov/reglens/internal/chunk"
	"github.com/mpetrov/reglens/internal/docload"
	"github.com/mpetrov/reglens/internal/kb"
	"github.com/mpetrov/reglens/internal/llm"
	"github.com/mpetrov/reglens/internal/model"
	"github.com/mpetrov/reglens/internal/parse"
	"github.com/mpetrov/reglens/internal/prompt"
	"github.com/mpetrov/reglens/internal/risk"
	"github.com/mpetrov/reglens/internal/worker"
)

// Analyzer orchestrates the full document analysis: chunk, classify,
// retrieve, prompt, invoke, parse, aggregate. Per-chunk failures are
// recorded and skipped over; only a missing framework or invalid
// configuration aborts a run.
type Analyzer struct {
	config  *model.Config
	kbase   *kb.KnowledgeBase
	chunker *chunk.Chunker
	builder *prompt.Builder
	invoker *llm.Invoker
}

// New creates an analyzer from validated configuration.
func New(cfg *model.Config, kbase *kb.KnowledgeBase, invoker *llm.Invoker) *Analyzer {
	return &Analyzer{
		config: cfg,
		kbase:  kbase,
		chunker: chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap,
			chunk.WithMethod(cfg.Chunking.Method),
			chunk.WithMaxChunks(cfg.Chunking.MaxChunks)),
		builder: prompt.NewBuilder(),
		invoker: invoker,
	}
}

// Run analyzes a document against the named framework. Cancelling ctx
// stops dispatching new chunks; in-flight invocations finish or time
// out on their own.
func (a *Analyzer) Run(ctx context.Context, doc *docload.Document, framework string) (*model.AnalysisResult, error) {
	started := time.Now().UTC()

	fw, err := a.kbase.Load(framework)
	if err != nil {
		return nil, err
	}

	meta := docload.ExtractMetadata(doc.Text)

	chunks := a.chunker.Chunk(doc.Text)

	classifier := risk.NewClassifier(fw.Categories, fw.Patterns,
		a.config.Risk.CategoryThreshold, a.config.Risk.MinSectionLength)
	for i := range chunks {
		tier, patterns := classifier.Classify(&chunks[i])
		if !a.config.Risk.Enabled && tier == model.RiskLow {
			// Progressive skipping disabled: analyze everything.
			tier = model.RiskMedium
		}
		chunks[i].RiskTier = tier
		chunks[i].DetectedPatterns = patterns
	}

	parser := parse.New(fw.Patterns)

	pool := worker.NewPool(ctx, a.config.Concurrency.ChunkWorkers)
	pool.Start()

	submitted := 0
	for i := range chunks {
		if chunks[i].RiskTier == model.RiskLow {
			continue
		}
		pool.Submit(&chunkJob{
			analyzer: a,
			fw:       fw,
			parser:   parser,
			chunk:    &chunks[i],
			// The model tier is fixed here, before dispatch, so
			// concurrent chunks never race on tier selection.
			tier:         a.tierFor(chunks[i].RiskTier),
			documentType: meta.DocumentType,
		})
		submitted++
	}

	results := pool.Wait()

	res := a.aggregate(doc, meta, framework, chunks, results)
	res.StartedAt = started
	res.FinishedAt = time.Now().UTC()
	res.RunID = uuid.NewString()
	return res, nil
}

// tierFor maps chunk risk to a model tier: high-risk chunks move one
// capability level above the configured default when a larger tier is
// available.
func (a *Analyzer) tierFor(riskTier model.RiskTier) string {
	def := a.config.LLM.Tier
	if riskTier != model.RiskHigh {
		return def
	}
	rank := model.TierRank(def)
	for i := rank + 1; i < len(model.TierOrder); i++ {
		if _, ok := a.config.Tiers[model.TierOrder[i]]; ok {
			return model.TierOrder[i]
		}
	}
	return def
}

// aggregate assembles the final result from per-chunk outcomes:
// chunk reports, failure notes, deduplicated and ordered findings,
// and summary counts.
func (a *Analyzer) aggregate(doc *docload.Document, meta docload.Metadata, framework string, chunks []model.DocumentChunk, results []worker.Result) *model.AnalysisResult {
	byIndex := make(map[int]*chunkResult, len(results))
	for _, r := range results {
		cr, ok := r.(*chunkResult)
		if !ok {
			continue
		}
		byIndex[cr.chunk.Index] = cr
	}

	res := &model.AnalysisResult{
		Document:     doc.Name,
		DocumentType: meta.DocumentType,
		Framework:    framework,
	}

	var raw []model.Finding
	for i := range chunks {
		c := &chunks[i]
		report := model.ChunkReport{
			Index:    c.Index,
			Section:  c.Section,
			Text:     c.Text,
			RiskTier: c.RiskTier,
			Patterns: c.DetectedPatterns,
		}

		if cr, ok := byIndex[c.Index]; ok {
			report.Analyzed = cr.err == nil
			if cr.err != nil {
				report.Err = cr.err.Error()
				res.Failed = append(res.Failed, model.SectionFailure{
					Section: c.Section,
					Index:   c.Index,
					Reason:  cr.err.Error(),
				})
				res.Summary.Failed++
			} else {
				report.Issues = len(cr.issues)
				report.Points = len(cr.points)
				raw = append(raw, cr.issues...)
				raw = append(raw, cr.points...)
				res.Summary.Analyzed++
			}
		} else {
			res.Summary.Skipped++
		}

		res.Chunks = append(res.Chunks, report)
	}

	res.Summary.Chunks = len(chunks)
	res.Summary.RawFindings = len(raw)

	res.Findings = orderFindings(dedupFindings(raw))
	for _, f := range res.Findings {
		switch f.Kind {
		case model.KindIssue:
			res.Summary.Issues++
		case model.KindPoint:
			res.Summary.Points++
		}
	}
	return res
}

// orderFindings groups findings by regulation id, groups in document
// order of their first occurrence, members in document order.
func orderFindings(findings []model.Finding) []model.Finding {
	firstIndex := map[string]int{}
	groupSeq := map[string]int{}
	seq := 0
	for _, f := range findings {
		if _, ok := firstIndex[f.RegulationID]; !ok {
			firstIndex[f.RegulationID] = f.ChunkIndex
			groupSeq[f.RegulationID] = seq
			seq++
		} else if f.ChunkIndex < firstIndex[f.RegulationID] {
			firstIndex[f.RegulationID] = f.ChunkIndex
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		gi, gj := findings[i].RegulationID, findings[j].RegulationID
		if gi != gj {
			if firstIndex[gi] != firstIndex[gj] {
				return firstIndex[gi] < firstIndex[gj]
			}
			return groupSeq[gi] < groupSeq[gj]
		}
		return findings[i].ChunkIndex < findings[j].ChunkIndex
	})
	return findings
}

// queryText trims the chunk to a retrieval query of sane length.
func queryText(c *model.DocumentChunk) string {
	const maxQuery = 800
	if len(c.Text) <= maxQuery {
		return c.Text
	}
	return c.Text[:maxQuery]
}

// invokeWithRetry sends the prompt, retrying transient invocation
// failures with a fixed backoff before giving up.
func (a *Analyzer) invokeWithRetry(ctx context.Context, text, tier string) (string, error) {
	var lastErr error
	attempts := a.config.Concurrency.InvokeRetries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("analysis cancelled: %w", ctx.Err())
			case <-time.After(a.config.Concurrency.RetryBackoff):
			}
		}
		raw, err := a.invoker.Invoke(ctx, text, tier)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}
