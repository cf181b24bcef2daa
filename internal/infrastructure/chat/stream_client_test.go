package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_ForwardsPayloadAndReassemblesStream(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	var got request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"an\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"swer\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	client := NewStreamClient(srv.URL, 5*time.Second, nil)
	text, err := client.Complete(context.Background(), "what is up", userID, companyID, "telegram")

	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Equal(t, "what is up", got.Message)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, companyID, got.CompanyID)
	assert.Equal(t, "telegram", got.Source)
}

func TestComplete_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pipeline unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewStreamClient(srv.URL, 5*time.Second, nil)
	_, err := client.Complete(context.Background(), "hi", uuid.New(), uuid.New(), "telegram")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestComplete_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewStreamClient(srv.URL, time.Second, nil)
	_, err := client.Complete(context.Background(), "hi", uuid.New(), uuid.New(), "telegram")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion request failed")
}
