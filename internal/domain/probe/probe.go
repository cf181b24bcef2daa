package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnknownProvider indicates the provider tag has no entry in the catalog
	ErrUnknownProvider = errors.New("probe: unknown provider")
	// ErrMissingCredential indicates a cloud provider was probed without a credential
	ErrMissingCredential = errors.New("probe: credential required for cloud provider")
	// ErrMissingBaseURL indicates a local provider was probed without a base URL
	ErrMissingBaseURL = errors.New("probe: base URL required for local provider")
	// ErrLoopbackBaseURL indicates a caller-supplied base URL points at loopback
	ErrLoopbackBaseURL = errors.New("probe: base URL must not be a loopback address")
)

// Provider is the tag identifying an external provider family.
// Each tag maps to exactly one entry in the immutable probe catalog.
type Provider string

const (
	// ProviderOpenAI represents the OpenAI chat completion API
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic represents the Anthropic messages API
	ProviderAnthropic Provider = "anthropic"
	// ProviderGemini represents the Google Gemini generateContent API
	ProviderGemini Provider = "gemini"
	// ProviderGroq represents the Groq OpenAI-compatible API
	ProviderGroq Provider = "groq"
	// ProviderMistral represents the Mistral chat completion API
	ProviderMistral Provider = "mistral"
	// ProviderOpenRouter represents the OpenRouter aggregation API
	ProviderOpenRouter Provider = "openrouter"
	// ProviderOllama represents a locally hosted Ollama server
	ProviderOllama Provider = "ollama"
	// ProviderLMStudio represents a locally hosted LM Studio server
	ProviderLMStudio Provider = "lmstudio"
	// ProviderN8N represents an n8n workflow engine instance
	ProviderN8N Provider = "n8n"
	// ProviderTelegram represents the Telegram bot API
	ProviderTelegram Provider = "telegram"
)

// String returns the string representation of Provider
func (p Provider) String() string {
	return string(p)
}

// IsValid returns true if the provider tag is known
func (p Provider) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderGroq,
		ProviderMistral, ProviderOpenRouter, ProviderOllama, ProviderLMStudio,
		ProviderN8N, ProviderTelegram:
		return true
	default:
		return false
	}
}

// IsLocal returns true for providers hosted on the caller's own network.
// Local providers are configured with a base URL instead of a credential.
func (p Provider) IsLocal() bool {
	return p == ProviderOllama || p == ProviderLMStudio
}

// IsLLM returns true for providers that serve chat completion models
func (p Provider) IsLLM() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderGroq,
		ProviderMistral, ProviderOpenRouter, ProviderOllama, ProviderLMStudio:
		return true
	default:
		return false
	}
}

// LLMProviders returns the providers selectable as LLM connections,
// cloud providers first
func LLMProviders() []Provider {
	return []Provider{
		ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderGroq,
		ProviderMistral, ProviderOpenRouter, ProviderOllama, ProviderLMStudio,
	}
}

// Request describes a single one-shot connectivity check
type Request struct {
	// Provider selects the catalog entry to probe
	Provider Provider
	// Model is the model identifier for chat completion probes (may be empty
	// for list/read probes)
	Model string
	// Credential is the API key or token (empty for local providers)
	Credential string
	// BaseURL overrides the catalog endpoint (required for local providers
	// and self-hosted workflow engines)
	BaseURL string
}

// Result is the outcome of a single probe call
type Result struct {
	// Success is true when the provider accepted the call
	Success bool
	// Error carries a truncated, credential-free diagnostic on failure
	Error string
	// Latency is the wall-clock duration of the single round trip
	Latency time.Duration
}

// Prober runs one-shot connectivity and credential validation calls.
// A failed call is reported in the Result, never as a Go error; the error
// return is reserved for requests that cannot be dispatched at all
// (unknown provider, missing base URL).
type Prober interface {
	Probe(ctx context.Context, req Request) (Result, error)
}

// RejectLoopback validates that a caller-supplied base URL does not point at
// a loopback address. The probe itself does not police this; callers must
// run this check before dispatch.
func RejectLoopback(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ErrMissingBaseURL
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return ErrLoopbackBaseURL
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return ErrLoopbackBaseURL
	}
	return nil
}
