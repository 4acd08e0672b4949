package llm

import (
	"context"
)

// systemPrompt frames every backend call. Findings must come from the
// supplied document text, not the model's general knowledge.
const systemPrompt = "You are an expert compliance auditor. You only report findings supported by verbatim quotes from the provided document text."

// Provider defines the interface for text-generation backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate produces a completion for the given request
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one model invocation
type GenerateRequest struct {
	// Prompt is the fully rendered prompt text
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// ContextWindow hints the prompt context size for backends that
	// take it per request (Ollama); others ignore it
	ContextWindow int

	// Temperature controls sampling; zero means provider default
	Temperature float64
}

// GenerateResponse contains the model's raw output
type GenerateResponse struct {
	// Text is the raw response text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation when the request leaves it zero
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "ollama",
		Timeout:   120,
		MaxTokens: 2000,
	}
}
