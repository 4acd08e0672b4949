package pipeline

import (
	"context"

	"github.com/mpetrov/reglens/internal/kb"
	"github.com/mpetrov/reglens/internal/model"
	"github.com/mpetrov/reglens/internal/parse"
	"github.com/mpetrov/reglens/internal/prompt"
	"github.com/mpetrov/reglens/internal/worker"
)

// chunkJob carries one chunk through retrieve, prompt, invoke and
// parse. The tier was decided before dispatch and never changes.
type chunkJob struct {
	analyzer     *Analyzer
	fw           *kb.Framework
	parser       *parse.Parser
	chunk        *model.DocumentChunk
	tier         string
	documentType string
}

// chunkResult is the outcome of one chunk analysis.
type chunkResult struct {
	chunk  *model.DocumentChunk
	issues []model.Finding
	points []model.Finding
	err    error
}

// GetError returns the chunk-level failure, if any.
func (r *chunkResult) GetError() error { return r.err }

// Execute runs the chunk analysis. Errors are captured in the result,
// never panicked or escalated; the pool keeps going.
func (j *chunkJob) Execute(ctx context.Context) worker.Result {
	a := j.analyzer

	regs := a.kbase.Search(j.fw, queryText(j.chunk), a.config.Retrieval.TopK)

	text, err := a.builder.Build(prompt.TaskAnalyze, j.tier, prompt.Input{
		Chunk:        j.chunk,
		Regulations:  regs,
		Context:      j.fw.Context,
		DocumentType: j.documentType,
	})
	if err != nil {
		return &chunkResult{chunk: j.chunk, err: err}
	}

	raw, err := a.invokeWithRetry(ctx, text, j.tier)
	if err != nil {
		return &chunkResult{chunk: j.chunk, err: err}
	}

	issues, points := j.parser.Extract(raw, j.chunk)
	return &chunkResult{chunk: j.chunk, issues: issues, points: points}
}
