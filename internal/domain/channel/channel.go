package channel

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/crm/gateway/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrNotFound        = errors.New("channel: connection not found")
	ErrInvalidUserID   = errors.New("channel: invalid user ID")
	ErrMissingBotToken = errors.New("channel: bot token vault reference is required")
	ErrAlreadyVerified = errors.New("channel: connection already verified")
	ErrCodeMismatch    = errors.New("channel: verification code does not match")
)

// ---------------------------------------------------------------------------
// State machine
// ---------------------------------------------------------------------------

// State describes where a channel connection is in its verification
// handshake
type State string

const (
	// StateUnlinked means no verification code has been issued yet
	StateUnlinked State = "unlinked"
	// StatePendingVerification means a single-use code is waiting to be
	// sent back from the external chat
	StatePendingVerification State = "pending_verification"
	// StateVerified means the external chat identity is bound; chat_id is
	// immutable from here on
	StateVerified State = "verified"
)

// verificationCodeBytes sizes the random single-use code (hex-encoded)
const verificationCodeBytes = 4

// ---------------------------------------------------------------------------
// ChannelConnection entity
// ---------------------------------------------------------------------------

// ChannelConnection binds an external Telegram chat identity to an internal
// user and tenant through a one-time verification handshake.
type ChannelConnection struct {
	shared.BaseEntity
	UserID           uuid.UUID
	CompanyID        uuid.UUID
	TelegramChatID   *int64
	VerificationCode *string
	IsVerified       bool
	IsActive         bool
	BotTokenVaultID  string
}

// NewChannelConnection creates a pending connection with a fresh random
// single-use verification code
func NewChannelConnection(userID, companyID uuid.UUID, botTokenVaultID string) (*ChannelConnection, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if botTokenVaultID == "" {
		return nil, ErrMissingBotToken
	}
	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}
	return &ChannelConnection{
		BaseEntity:       shared.NewBaseEntity(),
		UserID:           userID,
		CompanyID:        companyID,
		VerificationCode: &code,
		IsActive:         true,
		BotTokenVaultID:  botTokenVaultID,
	}, nil
}

// generateVerificationCode produces a short random hex code
func generateVerificationCode() (string, error) {
	buf := make([]byte, verificationCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// State reports the connection's position in the handshake
func (c *ChannelConnection) State() State {
	if c.IsVerified {
		return StateVerified
	}
	if c.VerificationCode != nil && *c.VerificationCode != "" {
		return StatePendingVerification
	}
	return StateUnlinked
}

// NormalizeCode canonicalizes inbound text for code comparison:
// surrounding whitespace is trimmed and case is ignored
func NormalizeCode(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// MatchesCode reports whether inbound text matches the pending code.
// A verified connection or a cleared code matches nothing.
func (c *ChannelConnection) MatchesCode(text string) bool {
	if c.IsVerified || c.VerificationCode == nil {
		return false
	}
	return NormalizeCode(text) == NormalizeCode(*c.VerificationCode)
}

// Verify transitions PendingVerification to Verified exactly once: the
// sender's chat ID is bound, the code is cleared and cannot be replayed.
func (c *ChannelConnection) Verify(chatID int64, text string) error {
	if c.IsVerified {
		return ErrAlreadyVerified
	}
	if !c.MatchesCode(text) {
		return ErrCodeMismatch
	}
	c.TelegramChatID = &chatID
	c.IsVerified = true
	c.VerificationCode = nil
	c.Touch()
	return nil
}
