package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mpetrov/reglens/internal/cache"
	"github.com/mpetrov/reglens/internal/model"
)

// fakeProvider records calls and returns canned responses.
type fakeProvider struct {
	mu    sync.Mutex
	calls []GenerateRequest
	text  string
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &GenerateResponse{Text: f.text, Model: req.Model, TokensUsed: 10}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testTiers() map[string]model.TierConfig {
	return map[string]model.TierConfig{
		"small":  {ModelName: "llama3:8b", ContextWindow: 8192, Temperature: 0.2},
		"medium": {ModelName: "llama3:70b", ContextWindow: 8192, Temperature: 0.2},
		"large":  {ModelName: "llama3:405b", ContextWindow: 32768, Temperature: 0.1},
	}
}

func TestInvoker_TierResolution(t *testing.T) {
	fp := &fakeProvider{text: "ok"}
	iv := NewInvoker(fp, testTiers(), "medium", 100, 10)

	if _, err := iv.Invoke(context.Background(), "prompt", "large"); err != nil {
		t.Fatal(err)
	}
	if got := fp.calls[0].Model; got != "llama3:405b" {
		t.Errorf("Explicit tier ignored, model %q", got)
	}

	if _, err := iv.Invoke(context.Background(), "prompt", ""); err != nil {
		t.Fatal(err)
	}
	if got := fp.calls[1].Model; got != "llama3:70b" {
		t.Errorf("Empty tier should use the default, model %q", got)
	}
	if got := fp.calls[0].ContextWindow; got != 32768 {
		t.Errorf("Tier context window not forwarded, got %d", got)
	}
}

func TestInvoker_UnknownTier(t *testing.T) {
	fp := &fakeProvider{text: "ok"}
	iv := NewInvoker(fp, testTiers(), "medium", 100, 10)

	_, err := iv.Invoke(context.Background(), "prompt", "colossal")
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected InvocationError, got %v", err)
	}
	if ie.Provider != "fake" {
		t.Errorf("Error should carry the provider name, got %q", ie.Provider)
	}
	if fp.callCount() != 0 {
		t.Errorf("Unknown tier must not reach the backend")
	}
}

func TestInvoker_DownshiftRestore(t *testing.T) {
	fp := &fakeProvider{text: "ok"}
	iv := NewInvoker(fp, testTiers(), "large", 100, 10)

	iv.Downshift()
	if got := iv.DefaultTier(); got != "medium" {
		t.Errorf("Downshift from large should land on medium, got %q", got)
	}

	// Idempotent: a second downshift does not move again.
	iv.Downshift()
	if got := iv.DefaultTier(); got != "medium" {
		t.Errorf("Second downshift moved the tier to %q", got)
	}

	iv.Restore()
	if got := iv.DefaultTier(); got != "large" {
		t.Errorf("Restore should revert to large, got %q", got)
	}

	// Restore when not downshifted is a no-op.
	iv.Restore()
	if got := iv.DefaultTier(); got != "large" {
		t.Errorf("Extra restore moved the tier to %q", got)
	}
}

func TestInvoker_DownshiftSkipsMissingTier(t *testing.T) {
	tiers := map[string]model.TierConfig{
		"small": {ModelName: "llama3:8b"},
		"large": {ModelName: "llama3:405b"},
	}
	iv := NewInvoker(&fakeProvider{text: "ok"}, tiers, "large", 100, 10)

	iv.Downshift()
	if got := iv.DefaultTier(); got != "small" {
		t.Errorf("Downshift should skip unconfigured medium, got %q", got)
	}
}

func TestInvoker_ProviderErrorWrapped(t *testing.T) {
	backendErr := fmt.Errorf("backend unavailable")
	fp := &fakeProvider{err: backendErr}
	iv := NewInvoker(fp, testTiers(), "medium", 100, 10)

	_, err := iv.Invoke(context.Background(), "prompt", "")
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected InvocationError, got %v", err)
	}
	if ie.Model != "llama3:70b" {
		t.Errorf("Error should carry the model, got %q", ie.Model)
	}
	if !errors.Is(err, backendErr) {
		t.Errorf("Unwrap chain broken")
	}
	if ie.TimedOut {
		t.Errorf("Plain failure flagged as timeout")
	}
}

func TestInvoker_TimeoutFlagged(t *testing.T) {
	fp := &fakeProvider{err: context.DeadlineExceeded}
	iv := NewInvoker(fp, testTiers(), "medium", 100, 10)

	_, err := iv.Invoke(context.Background(), "prompt", "")
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected InvocationError, got %v", err)
	}
	if !ie.TimedOut {
		t.Errorf("Deadline error should be flagged as timeout")
	}
}

func TestInvoker_CacheHitSkipsBackend(t *testing.T) {
	fp := &fakeProvider{text: "cached answer"}
	iv := NewInvoker(fp, testTiers(), "medium", 100, 10).
		WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	first, err := iv.Invoke(context.Background(), "same prompt", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := iv.Invoke(context.Background(), "same prompt", "")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Cache returned different text: %q vs %q", first, second)
	}
	if fp.callCount() != 1 {
		t.Errorf("Expected 1 backend call, got %d", fp.callCount())
	}

	// Different tier means different model, so a fresh call.
	if _, err := iv.Invoke(context.Background(), "same prompt", "large"); err != nil {
		t.Fatal(err)
	}
	if fp.callCount() != 2 {
		t.Errorf("Distinct model should miss the cache, got %d calls", fp.callCount())
	}
}

func TestInvoker_CancelledContext(t *testing.T) {
	fp := &fakeProvider{text: "ok"}
	iv := NewInvoker(fp, testTiers(), "medium", 100, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := iv.Invoke(ctx, "prompt", "")
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected InvocationError, got %v", err)
	}
}
