package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// request is the wire payload forwarded to the internal chat-completion
// endpoint
type request struct {
	Message   string    `json:"message"`
	UserID    uuid.UUID `json:"user_id"`
	CompanyID uuid.UUID `json:"company_id"`
	Source    string    `json:"source"`
}

// StreamClient consumes the internal chat-completion endpoint, which
// answers with an OpenAI-style SSE stream of delta chunks.
type StreamClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewStreamClient creates a chat-completion client for the given endpoint
func NewStreamClient(endpoint string, timeout time.Duration, logger *zap.Logger) *StreamClient {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Complete forwards the message and consumes the full response stream,
// returning the reassembled completion text
func (c *StreamClient) Complete(ctx context.Context, message string, userID, companyID uuid.UUID, source string) (string, error) {
	raw, err := json.Marshal(request{
		Message:   message,
		UserID:    userID,
		CompanyID: companyID,
		Source:    source,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat: completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat: completion endpoint returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	text, err := DecodeStream(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat: stream decode failed: %w", err)
	}

	c.logger.Debug("chat completion consumed",
		zap.Int("length", len(text)),
		zap.Duration("duration", time.Since(start)))
	return text, nil
}
