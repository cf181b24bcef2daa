package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	channelapp "github.com/crm/gateway/internal/application/channel"
	"github.com/crm/gateway/internal/infrastructure/telegram"
	"github.com/crm/gateway/internal/infrastructure/telemetry"
)

// secretTokenHeader carries the shared secret Telegram echoes back on
// every webhook delivery.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhookHandler receives Telegram webhook updates. It always
// answers 200 with a minimal ack: any other status would make Telegram
// redeliver, and redeliveries are already handled by update deduplication.
type TelegramWebhookHandler struct {
	bridge        *channelapp.BridgeService
	webhookSecret string
	logger        *zap.Logger
	metrics       *telemetry.GatewayMetrics
}

// NewTelegramWebhookHandler creates a new TelegramWebhookHandler. The
// metrics instance may be nil; instrumentation stays optional.
func NewTelegramWebhookHandler(bridge *channelapp.BridgeService, webhookSecret string, logger *zap.Logger, metrics *telemetry.GatewayMetrics) *TelegramWebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramWebhookHandler{
		bridge:        bridge,
		webhookSecret: webhookSecret,
		logger:        logger,
		metrics:       metrics,
	}
}

// HandleUpdate processes one webhook delivery
func (h *TelegramWebhookHandler) HandleUpdate(c *gin.Context) {
	// Answer first, reject silently: a mismatched secret must look exactly
	// like an accepted delivery to the caller.
	if !h.secretMatches(c.GetHeader(secretTokenHeader)) {
		h.logger.Warn("webhook secret mismatch", zap.String("remote_addr", c.ClientIP()))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Debug("malformed webhook payload", zap.Error(err))
		if h.metrics != nil {
			h.metrics.RecordWebhookUpdate(c.Request.Context(), telemetry.OutcomeMalformed)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if update.Message != nil {
		h.bridge.HandleUpdate(c.Request.Context(), channelapp.InboundMessage{
			UpdateID: update.UpdateID,
			ChatID:   update.Message.Chat.ID,
			Text:     update.Message.Text,
		})
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *TelegramWebhookHandler) secretMatches(got string) bool {
	if h.webhookSecret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) == 1
}
