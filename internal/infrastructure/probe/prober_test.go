package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/gateway/internal/domain/probe"
)

func TestProbe_BearerChatCompletion(t *testing.T) {
	var got *http.Request
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderOpenAI,
		Model:      "gpt-4o",
		Credential: "sk-test",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Greater(t, result.Latency, time.Duration(0))
	assert.Equal(t, "/v1/chat/completions", got.URL.Path)
	assert.Equal(t, "Bearer sk-test", got.Header.Get("Authorization"))
	assert.Equal(t, "gpt-4o", payload["model"])
	assert.Equal(t, float64(1), payload["max_tokens"])
}

func TestProbe_AnthropicCustomHeader(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderAnthropic,
		Model:      "claude-sonnet",
		Credential: "ak-test",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "/v1/messages", got.URL.Path)
	assert.Equal(t, "ak-test", got.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", got.Header.Get("anthropic-version"))
	assert.Empty(t, got.Header.Get("Authorization"))
}

func TestProbe_GeminiQueryKeyAndModelPath(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderGemini,
		Model:      "gemini-1.5-pro",
		Credential: "g-key",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "/v1beta/models/gemini-1.5-pro:generateContent", got.URL.Path)
	assert.Equal(t, "g-key", got.URL.Query().Get("key"))
}

func TestProbe_TelegramTokenInPath(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderTelegram,
		Credential: "123:abc",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "/bot123:abc/getMe", got.URL.Path)
	assert.Equal(t, http.MethodGet, got.Method)
}

func TestProbe_N8NWorkflowList(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderN8N,
		Credential: "n8n-key",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "/api/v1/workflows", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("limit"))
	assert.Equal(t, "n8n-key", got.Header.Get("X-N8N-API-KEY"))
}

func TestProbe_LocalProviderNoAuth(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider: probe.ProviderOllama,
		BaseURL:  srv.URL,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "/api/tags", got.URL.Path)
	assert.Empty(t, got.Header.Get("Authorization"))
}

func TestProbe_RejectionRedactsCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key sk-leaked-key"}`))
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderOpenAI,
		Model:      "gpt-4o",
		Credential: "sk-leaked-key",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "401")
	assert.NotContains(t, result.Error, "sk-leaked-key")
	assert.Contains(t, result.Error, "[redacted]")
}

func TestProbe_LongDiagnosticTruncated(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write(long)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderGroq,
		Model:      "llama-3.1-70b",
		Credential: "gsk-test",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.LessOrEqual(t, len(result.Error), maxDiagnosticLen)
}

func TestProbe_TransportFailureIsResultNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	prober := NewHTTPProber(time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider: probe.ProviderLMStudio,
		BaseURL:  srv.URL,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestProbe_ValidationErrors(t *testing.T) {
	prober := NewHTTPProber(time.Second, nil)

	_, err := prober.Probe(context.Background(), probe.Request{Provider: "smalltalk"})
	assert.ErrorIs(t, err, probe.ErrUnknownProvider)

	_, err = prober.Probe(context.Background(), probe.Request{Provider: probe.ProviderOpenAI, Model: "gpt-4o"})
	assert.ErrorIs(t, err, probe.ErrMissingCredential)

	_, err = prober.Probe(context.Background(), probe.Request{Provider: probe.ProviderOllama})
	assert.ErrorIs(t, err, probe.ErrMissingBaseURL)
}

func TestProbe_QueryCredentialEscaped(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prober := NewHTTPProber(5*time.Second, nil)
	result, err := prober.Probe(context.Background(), probe.Request{
		Provider:   probe.ProviderGemini,
		Model:      "gemini-1.5-pro",
		Credential: "g&key#with=reserved",
		BaseURL:    srv.URL,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "g&key#with=reserved", got.URL.Query().Get("key"))
}
