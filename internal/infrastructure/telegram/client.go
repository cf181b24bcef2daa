package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// defaultAPIBaseURL is the public Telegram bot API endpoint
	defaultAPIBaseURL = "https://api.telegram.org"
	// maxResponseSize limits the response body read per API call
	maxResponseSize = 1 << 20
)

// Client is a minimal Telegram bot API client. The bot token is passed per
// call because each channel connection carries its own vault-stored token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures the client
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per-call HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a Telegram bot API client
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage sends a text message to a chat. parseMode may be empty for
// plain text.
func (c *Client) SendMessage(ctx context.Context, token string, chatID int64, text, parseMode string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	return c.call(ctx, token, "sendMessage", payload)
}

// SendChatAction sends a chat action such as the typing indicator
func (c *Client) SendChatAction(ctx context.Context, token string, chatID int64, action string) error {
	return c.call(ctx, token, "sendChatAction", map[string]interface{}{
		"chat_id": chatID,
		"action":  action,
	})
}

// call performs one bot API method invocation
func (c *Client) call(ctx context.Context, token, method string, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("telegram: %s returned unparseable response (status %d)", method, resp.StatusCode)
	}
	if !apiResp.OK {
		c.logger.Debug("telegram api error",
			zap.String("method", method),
			zap.Int("error_code", apiResp.ErrorCode),
			zap.String("description", apiResp.Description))
		return fmt.Errorf("telegram: %s failed: %s (code %d)", method, apiResp.Description, apiResp.ErrorCode)
	}
	return nil
}
