package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/gateway/internal/domain/connection"
	"github.com/crm/gateway/internal/domain/probe"
)

func newConnection(t *testing.T, userID uuid.UUID, provider probe.Provider, model, baseURL string) *connection.LLMConnection {
	t.Helper()
	conn, err := connection.NewLLMConnection(userID, uuid.New(), provider, model, baseURL)
	require.NoError(t, err)
	return conn
}

func TestConnectionRepository_UpsertAndFind(t *testing.T) {
	repo := NewGormConnectionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	conn := newConnection(t, userID, probe.ProviderOpenAI, "gpt-4o", "")
	conn.AttachSecret("vault-id-1")

	require.NoError(t, repo.Upsert(ctx, conn))

	found, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, probe.ProviderOpenAI, found.Provider)
	assert.Equal(t, "gpt-4o", found.Model)
	require.NotNil(t, found.APIKeyVaultID)
	assert.Equal(t, "vault-id-1", *found.APIKeyVaultID)
	assert.Nil(t, found.BaseURL)
}

func TestConnectionRepository_UpsertReplacesExistingRow(t *testing.T) {
	repo := NewGormConnectionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	first := newConnection(t, userID, probe.ProviderOpenAI, "gpt-4o", "")
	first.AttachSecret("vault-id-1")
	require.NoError(t, repo.Upsert(ctx, first))

	// Same user switches to a local provider; the credential column must
	// go back to null, not linger from the previous row.
	second := newConnection(t, userID, probe.ProviderOllama, "llama3", "http://ollama.internal:11434")
	require.NoError(t, repo.Upsert(ctx, second))

	found, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, probe.ProviderOllama, found.Provider)
	assert.Nil(t, found.APIKeyVaultID)
	require.NotNil(t, found.BaseURL)
	assert.Equal(t, "http://ollama.internal:11434", *found.BaseURL)
}

func TestConnectionRepository_FindByUserIDNotFound(t *testing.T) {
	repo := NewGormConnectionRepository(newTestDB(t))

	_, err := repo.FindByUserID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestConnectionRepository_DeleteByUserIDIsIdempotent(t *testing.T) {
	repo := NewGormConnectionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	conn := newConnection(t, userID, probe.ProviderMistral, "mistral-large", "")
	conn.AttachSecret("vault-id-1")
	require.NoError(t, repo.Upsert(ctx, conn))

	require.NoError(t, repo.DeleteByUserID(ctx, userID))
	require.NoError(t, repo.DeleteByUserID(ctx, userID))

	_, err := repo.FindByUserID(ctx, userID)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}
