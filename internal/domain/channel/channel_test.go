package channel

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingConnection(t *testing.T) *ChannelConnection {
	t.Helper()
	conn, err := NewChannelConnection(uuid.New(), uuid.New(), "vault-secret-id")
	require.NoError(t, err)
	return conn
}

func TestNewChannelConnection(t *testing.T) {
	conn := newPendingConnection(t)

	assert.Equal(t, StatePendingVerification, conn.State())
	assert.False(t, conn.IsVerified)
	assert.True(t, conn.IsActive)
	assert.Nil(t, conn.TelegramChatID)
	require.NotNil(t, conn.VerificationCode)
	assert.Len(t, *conn.VerificationCode, verificationCodeBytes*2)
}

func TestNewChannelConnection_Validation(t *testing.T) {
	_, err := NewChannelConnection(uuid.Nil, uuid.New(), "vault-secret-id")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = NewChannelConnection(uuid.New(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrMissingBotToken)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "abc123", NormalizeCode("  ABC123  "))
	assert.Equal(t, "abc123", NormalizeCode("abc123"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestMatchesCode(t *testing.T) {
	conn := newPendingConnection(t)
	code := *conn.VerificationCode

	assert.True(t, conn.MatchesCode(code))
	assert.True(t, conn.MatchesCode("  "+strings.ToUpper(code)+"  "))
	assert.False(t, conn.MatchesCode("not-the-code"))
}

func TestVerify_TransitionsExactlyOnce(t *testing.T) {
	conn := newPendingConnection(t)
	code := *conn.VerificationCode

	require.NoError(t, conn.Verify(4242, code))

	assert.Equal(t, StateVerified, conn.State())
	assert.True(t, conn.IsVerified)
	require.NotNil(t, conn.TelegramChatID)
	assert.Equal(t, int64(4242), *conn.TelegramChatID)
	// The single-use code is cleared and cannot be replayed
	assert.Nil(t, conn.VerificationCode)

	err := conn.Verify(9999, code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	assert.Equal(t, int64(4242), *conn.TelegramChatID)
}

func TestVerify_WrongCode(t *testing.T) {
	conn := newPendingConnection(t)

	err := conn.Verify(4242, "wrong")
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.False(t, conn.IsVerified)
	assert.Nil(t, conn.TelegramChatID)
}

func TestState_Unlinked(t *testing.T) {
	conn := newPendingConnection(t)
	conn.VerificationCode = nil

	assert.Equal(t, StateUnlinked, conn.State())
	assert.False(t, conn.MatchesCode("anything"))
}
