package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpetrov/reglens/internal/cache"
	"github.com/mpetrov/reglens/internal/docload"
	"github.com/mpetrov/reglens/internal/kb"
	"github.com/mpetrov/reglens/internal/llm"
	"github.com/mpetrov/reglens/internal/model"
	"github.com/mpetrov/reglens/internal/pipeline"
)

var (
	framework     string
	modelTier     string
	provider      string
	preset        string
	chunkSize     int
	chunkOverlap  int
	chunkMethod   string
	topK          int
	riskThreshold int
	noProgressive bool
	reconcile     bool
	analyzeTO     time.Duration
	outJSON       string
	outMD         string
	noCache       bool
	noFooter      bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a document for compliance issues and strengths",
	Long: `Analyze splits a document into sections, classifies each section's
compliance risk, and runs the risky sections through a language model
against the selected regulatory framework.

Example:
  reglens analyze privacy-policy.md --framework gdpr
  reglens analyze proposal.txt --framework gdpr --preset accuracy --md report.md
  reglens analyze terms.html --framework gdpr --provider openai --model-tier large`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&framework, "framework", "f", "gdpr", "regulatory framework to check against")
	analyzeCmd.Flags().StringVar(&modelTier, "model-tier", "", "model tier (small, medium, large)")
	analyzeCmd.Flags().StringVar(&provider, "provider", "", "backend provider (openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&preset, "preset", "", "performance preset (accuracy, speed, balanced, comprehensive)")

	analyzeCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "target section size in characters")
	analyzeCmd.Flags().IntVar(&chunkOverlap, "overlap", -1, "overlap for fixed-window chunking")
	analyzeCmd.Flags().StringVar(&chunkMethod, "chunk-method", "", "chunking method (smart, paragraph, sentence, simple)")

	analyzeCmd.Flags().IntVar(&topK, "top-k", 0, "regulation passages retrieved per section")
	analyzeCmd.Flags().IntVar(&riskThreshold, "risk-threshold", 0, "distinct keyword categories required for analysis")
	analyzeCmd.Flags().BoolVar(&noProgressive, "no-progressive", false, "analyze every section regardless of risk")
	analyzeCmd.Flags().BoolVar(&reconcile, "reconcile", false, "run a final model pass to drop duplicate or contradictory findings")

	analyzeCmd.Flags().DurationVar(&analyzeTO, "timeout", 30*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response/retrieval cache")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), analyzeTO)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}

	doc, err := docload.Load(path)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s (%d chars)\n", doc.Name, len(doc.Text))
		fmt.Fprintf(os.Stderr, "Framework: %s, tier: %s, provider: %s\n\n", framework, cfg.LLM.Tier, cfg.LLM.Provider)
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	kbase := kb.New(cfg.KnowledgeBaseDir, c)

	prov, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return fmt.Errorf("configure provider: %w", err)
	}

	invoker := llm.NewInvoker(prov, cfg.Tiers, cfg.LLM.Tier, cfg.LLM.RatePerSecond, cfg.LLM.RateBurst)
	if c != nil {
		invoker.WithCache(c, cfg.Cache.TTL)
	}

	analyzer := pipeline.New(cfg, kbase, invoker)

	result, err := analyzer.Run(ctx, doc, framework)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if reconcile {
		if err := analyzer.Reconcile(ctx, result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: reconciliation pass failed: %v\n", err)
		}
	}

	if verbose {
		s := result.Summary
		fmt.Fprintf(os.Stderr, "✓ %d sections: %d analyzed, %d skipped, %d failed\n", s.Chunks, s.Analyzed, s.Skipped, s.Failed)
		fmt.Fprintf(os.Stderr, "✓ %d issues, %d compliance points (%d raw findings)\n\n", s.Issues, s.Points, s.RawFindings)
	}

	renderer := pipeline.NewRenderer(!noFooter && cfg.Output.IncludeFooter)
	if outJSON != "" {
		if err := renderer.RenderJSON(result, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(result, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)
		}
	}

	if result.Summary.Failed > 0 {
		fmt.Fprintf(os.Stderr, "Note: %d section(s) failed analysis; findings are partial.\n", result.Summary.Failed)
	}
	return nil
}

// buildConfig assembles the effective configuration: defaults, then
// config file values, then preset, then flags, validated at the end.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	applyConfigFile(cfg)

	if preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			return nil, err
		}
	}

	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if modelTier != "" {
		cfg.LLM.Tier = modelTier
	}
	if chunkSize > 0 {
		cfg.Chunking.Size = chunkSize
	}
	if chunkOverlap >= 0 {
		cfg.Chunking.Overlap = chunkOverlap
	}
	if chunkMethod != "" {
		cfg.Chunking.Method = chunkMethod
	}
	if topK > 0 {
		cfg.Retrieval.TopK = topK
	}
	if riskThreshold > 0 {
		cfg.Risk.CategoryThreshold = riskThreshold
	}
	if noProgressive {
		cfg.Risk.Enabled = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	cfg.Output.Verbose = verbose

	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	if cfg.Cache.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Cache.Dir = filepath.Join(home, ".reglens", "cache")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
