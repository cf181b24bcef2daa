package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crm/gateway/internal/domain/channel"
	"github.com/crm/gateway/internal/domain/integration"
	"github.com/crm/gateway/internal/domain/shared"
	"github.com/crm/gateway/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SourceTelegram tags messages relayed from the Telegram channel
const SourceTelegram = "telegram"

// failureReply is sent when the downstream chat pipeline is unavailable
const failureReply = "Sorry, I could not process your message right now. Please try again in a moment."

// MessageSender is the outbound port to the external bot platform.
// The bot token is passed per call because each connection stores its own.
type MessageSender interface {
	SendMessage(ctx context.Context, token string, chatID int64, text, parseMode string) error
	SendChatAction(ctx context.Context, token string, chatID int64, action string) error
}

// ChatCompleter is the port to the internal chat-completion stream
type ChatCompleter interface {
	Complete(ctx context.Context, message string, userID, companyID uuid.UUID, source string) (string, error)
}

// InboundMessage is the bridge's view of one webhook update
type InboundMessage struct {
	UpdateID int64
	ChatID   int64
	Text     string
}

// Parse modes understood by the sender
const (
	parseModeMarkdown = "Markdown"
	parseModePlain    = ""
)

// chatActionTyping is the "working" indicator shown while the pipeline runs
const chatActionTyping = "typing"

// BridgeService relays between the external bot webhook and the internal
// chat-completion stream. Every branch swallows its errors: the webhook
// handler above must be able to answer 200 unconditionally, and redelivered
// updates must be safe no-ops.
type BridgeService struct {
	channels   channel.Repository
	secrets    integration.SecretStore
	sender     MessageSender
	completer  ChatCompleter
	dedupe     shared.IdempotencyStore
	dedupeTTL  time.Duration
	chunkLimit int
	metrics    *telemetry.GatewayMetrics
	logger     *zap.Logger
}

// BridgeOption configures the service
type BridgeOption func(*BridgeService)

// WithChunkLimit overrides the outbound message length ceiling
func WithChunkLimit(limit int) BridgeOption {
	return func(s *BridgeService) {
		s.chunkLimit = limit
	}
}

// WithDedupeTTL overrides how long processed update IDs are remembered
func WithDedupeTTL(ttl time.Duration) BridgeOption {
	return func(s *BridgeService) {
		s.dedupeTTL = ttl
	}
}

// WithMetrics attaches webhook and relay metrics
func WithMetrics(metrics *telemetry.GatewayMetrics) BridgeOption {
	return func(s *BridgeService) {
		s.metrics = metrics
	}
}

// NewBridgeService creates a BridgeService
func NewBridgeService(
	channels channel.Repository,
	secrets integration.SecretStore,
	sender MessageSender,
	completer ChatCompleter,
	dedupe shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...BridgeOption,
) *BridgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &BridgeService{
		channels:   channels,
		secrets:    secrets,
		sender:     sender,
		completer:  completer,
		dedupe:     dedupe,
		dedupeTTL:  shared.DefaultIdempotencyConfig().TTL,
		chunkLimit: channel.DefaultChunkLimit,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleUpdate processes one inbound webhook update. It never returns an
// error: verification, relay and no-match branches all resolve internally,
// by a best-effort chat message when the destination is known or a logged
// drop when it is not.
func (s *BridgeService) HandleUpdate(ctx context.Context, msg InboundMessage) {
	if strings.TrimSpace(msg.Text) == "" {
		s.logger.Debug("dropping update without text", zap.Int64("update_id", msg.UpdateID))
		s.recordUpdate(ctx, telemetry.OutcomeIgnored)
		return
	}

	if !s.markFresh(ctx, msg.UpdateID) {
		s.logger.Debug("dropping redelivered update", zap.Int64("update_id", msg.UpdateID))
		s.recordUpdate(ctx, telemetry.OutcomeDuplicate)
		return
	}

	conn, err := s.channels.FindVerifiedByChatID(ctx, msg.ChatID)
	switch err {
	case nil:
		s.recordUpdate(ctx, telemetry.OutcomeRelayed)
		s.relay(ctx, conn, msg)
	case channel.ErrNotFound:
		s.tryVerification(ctx, msg)
	default:
		s.logger.Error("channel lookup failed",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
		s.recordUpdate(ctx, telemetry.OutcomeFailed)
	}
}

// recordUpdate is nil-safe so instrumentation stays optional
func (s *BridgeService) recordUpdate(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhookUpdate(ctx, outcome)
	}
}

// markFresh records the update ID and reports whether this is its first
// delivery. Store failures fail open so a degraded dedupe store never
// blocks the relay.
func (s *BridgeService) markFresh(ctx context.Context, updateID int64) bool {
	if s.dedupe == nil {
		return true
	}
	key := fmt.Sprintf("telegram:update:%d", updateID)
	fresh, err := s.dedupe.MarkProcessed(ctx, key, s.dedupeTTL)
	if err != nil {
		s.logger.Warn("update dedupe check failed", zap.Int64("update_id", updateID), zap.Error(err))
		return true
	}
	return fresh
}

// tryVerification matches inbound text against a pending single-use code.
// Unmatched messages are silently dropped; the sender never learns whether
// a code exists.
func (s *BridgeService) tryVerification(ctx context.Context, msg InboundMessage) {
	pending, err := s.channels.FindPendingByCode(ctx, channel.NormalizeCode(msg.Text))
	if err != nil {
		if err != channel.ErrNotFound {
			s.logger.Error("verification lookup failed", zap.Error(err))
			s.recordUpdate(ctx, telemetry.OutcomeFailed)
			return
		}
		s.logger.Debug("dropping unmatched message", zap.Int64("chat_id", msg.ChatID))
		s.recordUpdate(ctx, telemetry.OutcomeIgnored)
		return
	}

	if err := pending.Verify(msg.ChatID, msg.Text); err != nil {
		s.logger.Debug("verification rejected", zap.Error(err))
		s.recordUpdate(ctx, telemetry.OutcomeRejected)
		return
	}
	if err := s.channels.Save(ctx, pending); err != nil {
		s.logger.Error("failed to persist verification",
			zap.String("connection_id", pending.ID.String()),
			zap.Error(err))
		s.recordUpdate(ctx, telemetry.OutcomeFailed)
		return
	}

	s.recordUpdate(ctx, telemetry.OutcomeVerified)
	s.logger.Info("channel connection verified",
		zap.String("connection_id", pending.ID.String()),
		zap.Int64("chat_id", msg.ChatID))

	token, err := s.secrets.Read(ctx, pending.BotTokenVaultID)
	if err != nil {
		s.logger.Warn("failed to read bot token for confirmation", zap.Error(err))
		return
	}
	confirmation := "Your Telegram account is now linked. Send me a message to get started."
	if err := s.sender.SendMessage(ctx, token, msg.ChatID, confirmation, parseModePlain); err != nil {
		s.logger.Warn("failed to send verification confirmation", zap.Error(err))
	}
}

// relay forwards the message through the chat pipeline and replies in
// ordered chunks. Within the request the order is fixed: typing indicator,
// forward, stream consume, chunked reply.
func (s *BridgeService) relay(ctx context.Context, conn *channel.ChannelConnection, msg InboundMessage) {
	token, err := s.secrets.Read(ctx, conn.BotTokenVaultID)
	if err != nil {
		s.logger.Error("failed to read bot token",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err))
		return
	}

	if err := s.sender.SendChatAction(ctx, token, msg.ChatID, chatActionTyping); err != nil {
		s.logger.Debug("failed to send typing indicator", zap.Error(err))
	}

	answer, err := s.completer.Complete(ctx, msg.Text, conn.UserID, conn.CompanyID, SourceTelegram)
	if err != nil {
		s.logger.Error("chat completion failed",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err))
		if sendErr := s.sender.SendMessage(ctx, token, msg.ChatID, failureReply, parseModePlain); sendErr != nil {
			s.logger.Warn("failed to deliver failure reply", zap.Error(sendErr))
		}
		if s.metrics != nil {
			s.metrics.RecordRelay(ctx, 0, false)
		}
		return
	}
	if strings.TrimSpace(answer) == "" {
		s.logger.Debug("empty completion, nothing to send",
			zap.String("connection_id", conn.ID.String()))
		return
	}

	chunks := channel.SplitMessage(answer, s.chunkLimit)
	delivered := true
	for _, chunk := range chunks {
		if err := s.sender.SendMessage(ctx, token, msg.ChatID, chunk, parseModeMarkdown); err != nil {
			// Markup parse errors are the common cause; the same chunk
			// goes out once more as plain text before being given up on.
			if err := s.sender.SendMessage(ctx, token, msg.ChatID, chunk, parseModePlain); err != nil {
				s.logger.Warn("failed to deliver reply chunk",
					zap.String("connection_id", conn.ID.String()),
					zap.Error(err))
				delivered = false
			}
		}
	}
	if s.metrics != nil {
		s.metrics.RecordRelay(ctx, len(chunks), delivered)
	}
}
