package workflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullWorkflows_AuthenticatedListCall(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, nil)
	err := client.PullWorkflows(context.Background(), srv.URL, "n8n-key")

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/workflows", got.URL.Path)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "n8n-key", got.Header.Get("X-N8N-API-KEY"))
}

func TestPullWorkflows_RejectionSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, nil)
	err := client.PullWorkflows(context.Background(), srv.URL, "bad-key")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPullWorkflows_UnreachableEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(time.Second, nil)
	err := client.PullWorkflows(context.Background(), srv.URL, "key")
	assert.Error(t, err)
}
