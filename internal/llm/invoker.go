package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mpetrov/reglens/internal/cache"
	"github.com/mpetrov/reglens/internal/model"
	"github.com/mpetrov/reglens/internal/worker"
)

// InvocationError wraps a failed backend call so callers can decide
// whether to retry, skip the chunk, or abort.
type InvocationError struct {
	Provider string
	Model    string
	TimedOut bool
	Err      error
}

func (e *InvocationError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s invocation timed out (model %s): %v", e.Provider, e.Model, e.Err)
	}
	return fmt.Sprintf("%s invocation failed (model %s): %v", e.Provider, e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Invoker sends prompts to a provider under a rate limit, resolving
// the model tier per call. The tier argument to Invoke is the only
// per-call model selection; Downshift and Restore exist for callers
// that run preliminary passes and only move the default tier, never
// state observed mid-flight by other calls.
type Invoker struct {
	provider Provider
	tiers    map[string]model.TierConfig
	limiter  *worker.Limiter
	cache    cache.Cache
	cacheTTL time.Duration

	mu          sync.Mutex
	defaultTier string
	savedTier   string // Non-empty only while downshifted
}

// NewInvoker creates an invoker over the provider with the configured
// tiers. defaultTier is used when Invoke is called with an empty tier.
func NewInvoker(p Provider, tiers map[string]model.TierConfig, defaultTier string, perSecond float64, burst int) *Invoker {
	return &Invoker{
		provider:    p,
		tiers:       tiers,
		limiter:     worker.NewLimiter(perSecond, burst),
		defaultTier: defaultTier,
	}
}

// WithCache enables response caching keyed on provider, model and prompt.
func (iv *Invoker) WithCache(c cache.Cache, ttl time.Duration) *Invoker {
	iv.cache = c
	iv.cacheTTL = ttl
	return iv
}

// Provider returns the underlying backend.
func (iv *Invoker) Provider() Provider { return iv.provider }

// DefaultTier returns the current default tier.
func (iv *Invoker) DefaultTier() string {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.defaultTier
}

// Downshift moves the default tier one capability level down for
// preliminary or low-stakes passes. Idempotent: downshifting while
// already downshifted is a no-op.
func (iv *Invoker) Downshift() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.savedTier != "" {
		return
	}
	for _, t := range model.SmallerTiers(iv.defaultTier) {
		if _, ok := iv.tiers[t]; ok {
			iv.savedTier = iv.defaultTier
			iv.defaultTier = t
			return
		}
	}
}

// Restore reverts a Downshift. Calling it when not downshifted is a no-op.
func (iv *Invoker) Restore() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.savedTier == "" {
		return
	}
	iv.defaultTier = iv.savedTier
	iv.savedTier = ""
}

// Invoke sends the prompt at the given tier and returns the raw
// response text. tier may be empty to use the default. Failures,
// including timeouts, come back as *InvocationError.
func (iv *Invoker) Invoke(ctx context.Context, prompt, tier string) (string, error) {
	if tier == "" {
		tier = iv.DefaultTier()
	}
	tc, ok := iv.tiers[tier]
	if !ok {
		return "", &InvocationError{
			Provider: iv.provider.Name(),
			Err:      fmt.Errorf("unknown model tier %q", tier),
		}
	}

	var key string
	if iv.cache != nil {
		key = cache.Key("llm-response", iv.provider.Name(), tc.ModelName, prompt)
		if raw, found := iv.cache.Get(key); found {
			return string(raw), nil
		}
	}

	if err := iv.limiter.Wait(ctx, iv.provider.Name()); err != nil {
		return "", &InvocationError{
			Provider: iv.provider.Name(),
			Model:    tc.ModelName,
			TimedOut: errors.Is(err, context.DeadlineExceeded),
			Err:      err,
		}
	}

	resp, err := iv.provider.Generate(ctx, GenerateRequest{
		Prompt:        prompt,
		Model:         tc.ModelName,
		ContextWindow: tc.ContextWindow,
		Temperature:   tc.Temperature,
	})
	if err != nil {
		return "", &InvocationError{
			Provider: iv.provider.Name(),
			Model:    tc.ModelName,
			TimedOut: errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
	}

	if iv.cache != nil {
		_ = iv.cache.Set(key, []byte(resp.Text), iv.cacheTTL)
	}
	return resp.Text, nil
}
