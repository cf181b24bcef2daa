package probe

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/crm/gateway/internal/domain/probe"
)

// authScheme describes how a provider expects its credential
type authScheme int

const (
	// authNone sends no credential (local providers)
	authNone authScheme = iota
	// authBearer sends Authorization: Bearer <credential>
	authBearer
	// authHeader sends the credential in a custom header
	authHeader
	// authQuery appends the credential as a query-string parameter
	authQuery
	// authPath interpolates the credential into the URL path
	authPath
)

// providerSpec is one entry in the immutable provider catalog: endpoint
// template, auth injection scheme and minimal probe payload. Adding a
// provider is a single new entry here.
type providerSpec struct {
	// baseURL is the default endpoint root; empty means the caller must
	// supply one
	baseURL string
	// path is appended to the base URL; %s placeholders are filled from
	// the request (model for gemini, credential for telegram)
	path string
	// method is the HTTP method of the probe call
	method string
	// scheme selects the auth-header injection
	scheme authScheme
	// headerName is the custom header for authHeader, the parameter name
	// for authQuery
	headerName string
	// extraHeaders are static headers some providers require
	extraHeaders map[string]string
	// payload builds the minimal request body; nil for GET probes
	payload func(model string) map[string]interface{}
}

// openAIStylePayload is the 1-token chat completion shared by all
// OpenAI-compatible providers
func openAIStylePayload(model string) map[string]interface{} {
	return map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": "ping"},
		},
		"max_tokens": 1,
	}
}

// providerCatalog is the single lookup keyed by provider tag.
// It is never mutated after init.
var providerCatalog = map[probe.Provider]providerSpec{
	probe.ProviderOpenAI: {
		baseURL: "https://api.openai.com",
		path:    "/v1/chat/completions",
		method:  http.MethodPost,
		scheme:  authBearer,
		payload: openAIStylePayload,
	},
	probe.ProviderGroq: {
		baseURL: "https://api.groq.com",
		path:    "/openai/v1/chat/completions",
		method:  http.MethodPost,
		scheme:  authBearer,
		payload: openAIStylePayload,
	},
	probe.ProviderMistral: {
		baseURL: "https://api.mistral.ai",
		path:    "/v1/chat/completions",
		method:  http.MethodPost,
		scheme:  authBearer,
		payload: openAIStylePayload,
	},
	probe.ProviderOpenRouter: {
		baseURL: "https://openrouter.ai",
		path:    "/api/v1/chat/completions",
		method:  http.MethodPost,
		scheme:  authBearer,
		payload: openAIStylePayload,
	},
	probe.ProviderAnthropic: {
		baseURL:    "https://api.anthropic.com",
		path:       "/v1/messages",
		method:     http.MethodPost,
		scheme:     authHeader,
		headerName: "x-api-key",
		extraHeaders: map[string]string{
			"anthropic-version": "2023-06-01",
		},
		payload: func(model string) map[string]interface{} {
			return map[string]interface{}{
				"model": model,
				"messages": []map[string]string{
					{"role": "user", "content": "ping"},
				},
				"max_tokens": 1,
			}
		},
	},
	probe.ProviderGemini: {
		baseURL:    "https://generativelanguage.googleapis.com",
		path:       "/v1beta/models/%s:generateContent",
		method:     http.MethodPost,
		scheme:     authQuery,
		headerName: "key",
		payload: func(string) map[string]interface{} {
			return map[string]interface{}{
				"contents": []map[string]interface{}{
					{"parts": []map[string]string{{"text": "ping"}}},
				},
			}
		},
	},
	probe.ProviderOllama: {
		path:   "/api/tags",
		method: http.MethodGet,
		scheme: authNone,
	},
	probe.ProviderLMStudio: {
		path:   "/v1/models",
		method: http.MethodGet,
		scheme: authNone,
	},
	probe.ProviderN8N: {
		path:       "/api/v1/workflows?limit=1",
		method:     http.MethodGet,
		scheme:     authHeader,
		headerName: "X-N8N-API-KEY",
	},
	probe.ProviderTelegram: {
		baseURL: "https://api.telegram.org",
		path:    "/bot%s/getMe",
		method:  http.MethodGet,
		scheme:  authPath,
	},
}

// resolveURL builds the full probe URL for a spec and request
func resolveURL(spec providerSpec, req probe.Request) (string, error) {
	base := spec.baseURL
	if req.BaseURL != "" {
		base = strings.TrimRight(req.BaseURL, "/")
	}
	if base == "" {
		return "", probe.ErrMissingBaseURL
	}
	path := spec.path
	switch {
	case strings.Contains(path, "%s") && spec.scheme == authPath:
		path = fmt.Sprintf(path, req.Credential)
	case strings.Contains(path, "%s"):
		path = fmt.Sprintf(path, req.Model)
	}
	return base + path, nil
}
