package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crm/gateway/internal/domain/channel"
)

type mockChannelRepo struct {
	mock.Mock
}

func (m *mockChannelRepo) Save(ctx context.Context, conn *channel.ChannelConnection) error {
	return m.Called(ctx, conn).Error(0)
}

func (m *mockChannelRepo) FindVerifiedByChatID(ctx context.Context, chatID int64) (*channel.ChannelConnection, error) {
	args := m.Called(ctx, chatID)
	if v := args.Get(0); v != nil {
		return v.(*channel.ChannelConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockChannelRepo) FindPendingByCode(ctx context.Context, normalizedCode string) (*channel.ChannelConnection, error) {
	args := m.Called(ctx, normalizedCode)
	if v := args.Get(0); v != nil {
		return v.(*channel.ChannelConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSecretStore struct {
	mock.Mock
}

func (m *mockSecretStore) Create(ctx context.Context, name, value string) (string, error) {
	args := m.Called(ctx, name, value)
	return args.String(0), args.Error(1)
}

func (m *mockSecretStore) Read(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *mockSecretStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSecretStore) DeleteByName(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendMessage(ctx context.Context, token string, chatID int64, text, parseMode string) error {
	return m.Called(ctx, token, chatID, text, parseMode).Error(0)
}

func (m *mockSender) SendChatAction(ctx context.Context, token string, chatID int64, action string) error {
	return m.Called(ctx, token, chatID, action).Error(0)
}

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, message string, userID, companyID uuid.UUID, source string) (string, error) {
	args := m.Called(ctx, message, userID, companyID, source)
	return args.String(0), args.Error(1)
}

type mockDedupe struct {
	mock.Mock
}

func (m *mockDedupe) MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, deliveryID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockDedupe) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	args := m.Called(ctx, deliveryID)
	return args.Bool(0), args.Error(1)
}

func (m *mockDedupe) Close() error {
	return m.Called().Error(0)
}

func verifiedConnection(t *testing.T, chatID int64) *channel.ChannelConnection {
	t.Helper()
	conn, err := channel.NewChannelConnection(uuid.New(), uuid.New(), "bot-token-vault-id")
	require.NoError(t, err)
	require.NoError(t, conn.Verify(chatID, *conn.VerificationCode))
	return conn
}

func pendingConnection(t *testing.T) *channel.ChannelConnection {
	t.Helper()
	conn, err := channel.NewChannelConnection(uuid.New(), uuid.New(), "bot-token-vault-id")
	require.NoError(t, err)
	return conn
}

func TestHandleUpdate_RelayOrderAndChunking(t *testing.T) {
	repo := &mockChannelRepo{}
	secrets := &mockSecretStore{}
	sender := &mockSender{}
	completer := &mockCompleter{}
	conn := verifiedConnection(t, 42)

	repo.On("FindVerifiedByChatID", mock.Anything, int64(42)).Return(conn, nil)
	secrets.On("Read", mock.Anything, "bot-token-vault-id").Return("bot-token", nil)
	sender.On("SendChatAction", mock.Anything, "bot-token", int64(42), "typing").Return(nil)
	completer.On("Complete", mock.Anything, "hello", conn.UserID, conn.CompanyID, SourceTelegram).
		Return("first part\nsecond part", nil)
	// A tiny chunk limit forces the reply into two ordered sends
	sender.On("SendMessage", mock.Anything, "bot-token", int64(42), "first part\n", "Markdown").Return(nil)
	sender.On("SendMessage", mock.Anything, "bot-token", int64(42), "second part", "Markdown").Return(nil)

	svc := NewBridgeService(repo, secrets, sender, completer, nil, zap.NewNop(), WithChunkLimit(11))
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 1, ChatID: 42, Text: "hello"})

	sender.AssertExpectations(t)
	completer.AssertExpectations(t)
}

func TestHandleUpdate_MarkdownFallsBackToPlainPerChunk(t *testing.T) {
	repo := &mockChannelRepo{}
	secrets := &mockSecretStore{}
	sender := &mockSender{}
	completer := &mockCompleter{}
	conn := verifiedConnection(t, 42)

	repo.On("FindVerifiedByChatID", mock.Anything, int64(42)).Return(conn, nil)
	secrets.On("Read", mock.Anything, mock.Anything).Return("bot-token", nil)
	sender.On("SendChatAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("answer with _broken markup", nil)
	sender.On("SendMessage", mock.Anything, "bot-token", int64(42), "answer with _broken markup", "Markdown").
		Return(errors.New("400 can't parse entities"))
	sender.On("SendMessage", mock.Anything, "bot-token", int64(42), "answer with _broken markup", "").Return(nil)

	svc := NewBridgeService(repo, secrets, sender, completer, nil, zap.NewNop())
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 2, ChatID: 42, Text: "hi"})

	sender.AssertExpectations(t)
}

func TestHandleUpdate_CompletionFailureSendsApology(t *testing.T) {
	repo := &mockChannelRepo{}
	secrets := &mockSecretStore{}
	sender := &mockSender{}
	completer := &mockCompleter{}
	conn := verifiedConnection(t, 42)

	repo.On("FindVerifiedByChatID", mock.Anything, int64(42)).Return(conn, nil)
	secrets.On("Read", mock.Anything, mock.Anything).Return("bot-token", nil)
	sender.On("SendChatAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("stream closed"))
	sender.On("SendMessage", mock.Anything, "bot-token", int64(42), failureReply, "").Return(nil)

	svc := NewBridgeService(repo, secrets, sender, completer, nil, zap.NewNop())
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 3, ChatID: 42, Text: "hi"})

	sender.AssertExpectations(t)
}

func TestHandleUpdate_VerificationTransitionPersistedAndConfirmed(t *testing.T) {
	repo := &mockChannelRepo{}
	secrets := &mockSecretStore{}
	sender := &mockSender{}
	pending := pendingConnection(t)
	code := *pending.VerificationCode

	repo.On("FindVerifiedByChatID", mock.Anything, int64(99)).Return(nil, channel.ErrNotFound)
	repo.On("FindPendingByCode", mock.Anything, channel.NormalizeCode(code)).Return(pending, nil)
	repo.On("Save", mock.Anything, pending).Return(nil)
	secrets.On("Read", mock.Anything, "bot-token-vault-id").Return("bot-token", nil)
	sender.On("SendMessage", mock.Anything, "bot-token", int64(99), mock.Anything, "").Return(nil)

	svc := NewBridgeService(repo, secrets, sender, &mockCompleter{}, nil, zap.NewNop())
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 4, ChatID: 99, Text: "  " + code + "  "})

	assert.Equal(t, channel.StateVerified, pending.State())
	require.NotNil(t, pending.TelegramChatID)
	assert.Equal(t, int64(99), *pending.TelegramChatID)
	assert.Nil(t, pending.VerificationCode)
	repo.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestHandleUpdate_UnmatchedMessageDroppedSilently(t *testing.T) {
	repo := &mockChannelRepo{}
	sender := &mockSender{}

	repo.On("FindVerifiedByChatID", mock.Anything, int64(7)).Return(nil, channel.ErrNotFound)
	repo.On("FindPendingByCode", mock.Anything, "not a code").Return(nil, channel.ErrNotFound)

	svc := NewBridgeService(repo, &mockSecretStore{}, sender, &mockCompleter{}, nil, zap.NewNop())
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 5, ChatID: 7, Text: "Not A Code"})

	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUpdate_RedeliveredUpdateIsNoOp(t *testing.T) {
	repo := &mockChannelRepo{}
	dedupe := &mockDedupe{}

	dedupe.On("MarkProcessed", mock.Anything, "telegram:update:11", mock.Anything).Return(false, nil)

	svc := NewBridgeService(repo, &mockSecretStore{}, &mockSender{}, &mockCompleter{}, dedupe, zap.NewNop())
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 11, ChatID: 42, Text: "hello"})

	repo.AssertNotCalled(t, "FindVerifiedByChatID", mock.Anything, mock.Anything)
}

func TestHandleUpdate_DedupeFailureFailsOpen(t *testing.T) {
	repo := &mockChannelRepo{}
	dedupe := &mockDedupe{}

	dedupe.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).
		Return(false, errors.New("redis unreachable"))
	repo.On("FindVerifiedByChatID", mock.Anything, int64(42)).Return(nil, channel.ErrNotFound)
	repo.On("FindPendingByCode", mock.Anything, mock.Anything).Return(nil, channel.ErrNotFound)

	svc := NewBridgeService(repo, &mockSecretStore{}, &mockSender{}, &mockCompleter{}, dedupe, zap.NewNop())
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 12, ChatID: 42, Text: "hello"})

	repo.AssertCalled(t, "FindVerifiedByChatID", mock.Anything, int64(42))
}

func TestHandleUpdate_EmptyTextSkipsDedupeAndLookup(t *testing.T) {
	repo := &mockChannelRepo{}
	dedupe := &mockDedupe{}

	svc := NewBridgeService(repo, &mockSecretStore{}, &mockSender{}, &mockCompleter{}, dedupe, zap.NewNop())
	svc.HandleUpdate(context.Background(), InboundMessage{UpdateID: 13, ChatID: 42, Text: "   "})

	dedupe.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "FindVerifiedByChatID", mock.Anything, mock.Anything)
}
