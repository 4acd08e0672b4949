package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Errorf("Expected error without API key")
	}
}

func TestAnthropicProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("Missing anthropic-version header")
		}

		var apiReq anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&apiReq); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if apiReq.System == "" {
			t.Errorf("Expected a system prompt")
		}
		if len(apiReq.Messages) != 1 || apiReq.Messages[0].Role != "user" {
			t.Errorf("Unexpected messages: %+v", apiReq.Messages)
		}

		resp := anthropicResponse{Model: apiReq.Model}
		resp.Content = []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{
			{Type: "text", Text: "COMPLIANCE ISSUES:\nNO COMPLIANCE ISSUES DETECTED."},
		}
		resp.Usage.InputTokens = 100
		resp.Usage.OutputTokens = 30
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{
		Prompt: "Analyze this section",
		Model:  "claude-3-5-sonnet-20241022",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(resp.Text, "NO COMPLIANCE ISSUES DETECTED.") {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 130 {
		t.Errorf("Expected 130 tokens, got %d", resp.TokensUsed)
	}
}

func TestAnthropicProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		var apiErr anthropicError
		apiErr.Type = "error"
		apiErr.Error.Type = "rate_limit_error"
		apiErr.Error.Message = "rate limited"
		_ = json.NewEncoder(w).Encode(apiErr)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("Expected error from API failure")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Expected API error message, got: %v", err)
	}
}

func TestNewProvider_Selection(t *testing.T) {
	// Default provider is ollama.
	p, err := NewProvider(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Expected ollama default, got %s", p.Name())
	}

	p, err = NewProvider(Config{Provider: "claude", APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "anthropic" {
		t.Errorf(`"claude" should select anthropic, got %s`, p.Name())
	}

	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Errorf("Unknown provider should error")
	}
}
