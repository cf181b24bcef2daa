package connection

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

	"github.com/crm/gateway/internal/domain/connection"
	"github.com/crm/gateway/internal/domain/probe"
)

type mockConnectionRepo struct {
	mock.Mock
}

func (m *mockConnectionRepo) Upsert(ctx context.Context, conn *connection.LLMConnection) error {
	return m.Called(ctx, conn).Error(0)
}

func (m *mockConnectionRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*connection.LLMConnection, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*connection.LLMConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConnectionRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
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

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, req probe.Request) (probe.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(probe.Result), args.Error(1)
}

func TestConnect_CloudProviderStoresSecret(t *testing.T) {
	repo := &mockConnectionRepo{}
	secrets := &mockSecretStore{}
	prober := &mockProber{}
	userID := uuid.New()
	secretName := connection.SecretName(userID)

	prober.On("Probe", mock.Anything, probe.Request{
		Provider:   probe.ProviderOpenAI,
		Model:      "gpt-4o",
		Credential: "sk-test",
	}).Return(probe.Result{Success: true, Latency: 80 * time.Millisecond}, nil)
	secrets.On("DeleteByName", mock.Anything, secretName).Return(nil)
	secrets.On("Create", mock.Anything, secretName, "sk-test").Return("vault-id-1", nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(c *connection.LLMConnection) bool {
		return c.UserID == userID && c.APIKeyVaultID != nil && *c.APIKeyVaultID == "vault-id-1"
	})).Return(nil)

	svc := NewService(repo, secrets, prober, zap.NewNop())
	result, err := svc.Connect(context.Background(), ConnectInput{
		UserID:     userID,
		CompanyID:  uuid.New(),
		Provider:   probe.ProviderOpenAI,
		Model:      "gpt-4o",
		Credential: "sk-test",
	})

	require.NoError(t, err)
	assert.Equal(t, probe.ProviderOpenAI, result.Provider)
	assert.Equal(t, 80*time.Millisecond, result.ResponseTime)
	repo.AssertExpectations(t)
	secrets.AssertExpectations(t)
}

func TestConnect_FailedProbePersistsNothing(t *testing.T) {
	repo := &mockConnectionRepo{}
	secrets := &mockSecretStore{}
	prober := &mockProber{}

	prober.On("Probe", mock.Anything, mock.Anything).
		Return(probe.Result{Success: false, Error: "401 invalid api key"}, nil)

	svc := NewService(repo, secrets, prober, zap.NewNop())
	_, err := svc.Connect(context.Background(), ConnectInput{
		UserID:     uuid.New(),
		CompanyID:  uuid.New(),
		Provider:   probe.ProviderAnthropic,
		Model:      "claude-sonnet",
		Credential: "bad-key",
	})

	require.Error(t, err)
	assert.True(t, IsProbeError(err))
	assert.Contains(t, err.Error(), "401 invalid api key")
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	secrets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnect_LocalProviderNeverStoresSecret(t *testing.T) {
	repo := &mockConnectionRepo{}
	secrets := &mockSecretStore{}
	prober := &mockProber{}
	userID := uuid.New()

	prober.On("Probe", mock.Anything, probe.Request{
		Provider: probe.ProviderOllama,
		Model:    "llama3",
		BaseURL:  "http://ollama.internal:11434",
	}).Return(probe.Result{Success: true}, nil)
	secrets.On("DeleteByName", mock.Anything, connection.SecretName(userID)).Return(nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(c *connection.LLMConnection) bool {
		return c.APIKeyVaultID == nil
	})).Return(nil)

	svc := NewService(repo, secrets, prober, zap.NewNop())
	_, err := svc.Connect(context.Background(), ConnectInput{
		UserID:    userID,
		CompanyID: uuid.New(),
		Provider:  probe.ProviderOllama,
		Model:     "llama3",
		BaseURL:   "http://ollama.internal:11434",
	})

	require.NoError(t, err)
	secrets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnect_CloudWithoutCredentialRejected(t *testing.T) {
	prober := &mockProber{}
	svc := NewService(&mockConnectionRepo{}, &mockSecretStore{}, prober, zap.NewNop())

	_, err := svc.Connect(context.Background(), ConnectInput{
		UserID:    uuid.New(),
		CompanyID: uuid.New(),
		Provider:  probe.ProviderOpenAI,
		Model:     "gpt-4o",
	})

	assert.ErrorIs(t, err, connection.ErrMissingCredential)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestConnect_UpsertFailureCleansUpSecret(t *testing.T) {
	repo := &mockConnectionRepo{}
	secrets := &mockSecretStore{}
	prober := &mockProber{}
	userID := uuid.New()

	prober.On("Probe", mock.Anything, mock.Anything).Return(probe.Result{Success: true}, nil)
	secrets.On("DeleteByName", mock.Anything, mock.Anything).Return(nil)
	secrets.On("Create", mock.Anything, mock.Anything, mock.Anything).Return("vault-id-1", nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("db down"))
	secrets.On("Delete", mock.Anything, "vault-id-1").Return(nil)

	svc := NewService(repo, secrets, prober, zap.NewNop())
	_, err := svc.Connect(context.Background(), ConnectInput{
		UserID:     userID,
		CompanyID:  uuid.New(),
		Provider:   probe.ProviderGroq,
		Model:      "llama-3.1-70b",
		Credential: "gsk-test",
	})

	require.Error(t, err)
	secrets.AssertCalled(t, "Delete", mock.Anything, "vault-id-1")
}

func TestDisconnect_NoConnectionIsNoOp(t *testing.T) {
	repo := &mockConnectionRepo{}
	userID := uuid.New()
	repo.On("FindByUserID", mock.Anything, userID).Return(nil, connection.ErrNotFound)

	svc := NewService(repo, &mockSecretStore{}, &mockProber{}, zap.NewNop())
	assert.NoError(t, svc.Disconnect(context.Background(), userID))
	repo.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
}

func TestDisconnect_RemovesSecretAndRow(t *testing.T) {
	repo := &mockConnectionRepo{}
	secrets := &mockSecretStore{}
	userID := uuid.New()
	conn := storedConnection(t, userID, probe.ProviderOpenAI, "gpt-4o")
	conn.AttachSecret("vault-id-1")

	repo.On("FindByUserID", mock.Anything, userID).Return(conn, nil)
	secrets.On("Delete", mock.Anything, "vault-id-1").Return(nil)
	secrets.On("DeleteByName", mock.Anything, connection.SecretName(userID)).Return(nil)
	repo.On("DeleteByUserID", mock.Anything, userID).Return(nil)

	svc := NewService(repo, secrets, &mockProber{}, zap.NewNop())
	require.NoError(t, svc.Disconnect(context.Background(), userID))
	repo.AssertExpectations(t)
	secrets.AssertExpectations(t)
}

func TestTest_ReReadsStoredCredential(t *testing.T) {
	repo := &mockConnectionRepo{}
	secrets := &mockSecretStore{}
	prober := &mockProber{}
	userID := uuid.New()
	conn := storedConnection(t, userID, probe.ProviderMistral, "mistral-large")
	conn.AttachSecret("vault-id-1")

	repo.On("FindByUserID", mock.Anything, userID).Return(conn, nil)
	secrets.On("Read", mock.Anything, "vault-id-1").Return("stored-key", nil)
	prober.On("Probe", mock.Anything, probe.Request{
		Provider:   probe.ProviderMistral,
		Model:      "mistral-large",
		Credential: "stored-key",
	}).Return(probe.Result{Success: true, Latency: 50 * time.Millisecond}, nil)

	svc := NewService(repo, secrets, prober, zap.NewNop())
	result, err := svc.Test(context.Background(), userID)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 50*time.Millisecond, result.ResponseTime)
}

func TestGetStatus_NilWhenNotConnected(t *testing.T) {
	repo := &mockConnectionRepo{}
	userID := uuid.New()
	repo.On("FindByUserID", mock.Anything, userID).Return(nil, connection.ErrNotFound)

	svc := NewService(repo, &mockSecretStore{}, &mockProber{}, zap.NewNop())
	status, err := svc.GetStatus(context.Background(), userID)

	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestGetStatus_OmitsSecretFields(t *testing.T) {
	repo := &mockConnectionRepo{}
	userID := uuid.New()
	conn := storedConnection(t, userID, probe.ProviderOpenAI, "gpt-4o")
	conn.AttachSecret("vault-id-1")
	repo.On("FindByUserID", mock.Anything, userID).Return(conn, nil)

	svc := NewService(repo, &mockSecretStore{}, &mockProber{}, zap.NewNop())
	status, err := svc.GetStatus(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, probe.ProviderOpenAI, status.Provider)
	assert.Equal(t, "gpt-4o", status.Model)
	assert.Empty(t, status.BaseURL)
}

func TestProviders_ListsOnlyLLMProviders(t *testing.T) {
	svc := NewService(&mockConnectionRepo{}, &mockSecretStore{}, &mockProber{}, zap.NewNop())
	providers := svc.Providers()

	assert.Len(t, providers, 8)
	assert.NotContains(t, providers, probe.ProviderN8N)
	assert.NotContains(t, providers, probe.ProviderTelegram)
}

func storedConnection(t *testing.T, userID uuid.UUID, provider probe.Provider, model string) *connection.LLMConnection {
	t.Helper()
	conn, err := connection.NewLLMConnection(userID, uuid.New(), provider, model, "")
	require.NoError(t, err)
	return conn
}
