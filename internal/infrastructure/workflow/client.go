package workflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client pulls workflow metadata from an n8n instance. It backs the
// best-effort downstream sync fired after a successful integration test;
// callers log its failures and never escalate them.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a workflow-engine sync client
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PullWorkflows fetches the workflow list from the engine, refreshing the
// downstream view of available workflows
func (c *Client) PullWorkflows(ctx context.Context, endpointURL, apiKey string) error {
	url := endpointURL + "/api/v1/workflows"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-N8N-API-KEY", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("workflow: pull request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("workflow: pull returned %s", resp.Status)
	}

	c.logger.Debug("workflow pull completed", zap.String("endpoint", endpointURL))
	return nil
}
