package connection

import (
	"context"
	"time"

	"github.com/crm/gateway/internal/domain/connection"
	"github.com/crm/gateway/internal/domain/integration"
	"github.com/crm/gateway/internal/domain/probe"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the per-user singleton LLM connection. The probe always
// runs before anything is persisted: a failed probe means zero rows and
// zero secrets.
type Service struct {
	connections connection.Repository
	secrets     integration.SecretStore
	prober      probe.Prober
	logger      *zap.Logger
}

// NewService creates a connection Service
func NewService(
	connections connection.Repository,
	secrets integration.SecretStore,
	prober probe.Prober,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		connections: connections,
		secrets:     secrets,
		prober:      prober,
		logger:      logger,
	}
}

// ConnectInput carries the fields for a new LLM connection
type ConnectInput struct {
	UserID     uuid.UUID
	CompanyID  uuid.UUID
	Provider   probe.Provider
	Model      string
	Credential string
	BaseURL    string
}

// ConnectResult reports a successful connect with the probe's latency
type ConnectResult struct {
	Provider     probe.Provider `json:"provider"`
	Model        string         `json:"model"`
	ResponseTime time.Duration  `json:"response_time_ms"`
}

// TestResult reports a connection test
type TestResult struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	ResponseTime time.Duration `json:"response_time_ms"`
}

// Status is the non-secret view of a connection
type Status struct {
	Provider  probe.Provider `json:"provider"`
	Model     string         `json:"model"`
	BaseURL   string         `json:"base_url,omitempty"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
}

// Connect validates provider rules (cloud needs a credential, local needs a
// reachable non-loopback base URL), probes the exact configuration, and
// only then replaces the user's previous connection. Local providers never
// store a secret.
func (s *Service) Connect(ctx context.Context, input ConnectInput) (*ConnectResult, error) {
	conn, err := connection.NewLLMConnection(input.UserID, input.CompanyID, input.Provider, input.Model, input.BaseURL)
	if err != nil {
		return nil, err
	}
	if conn.RequiresCredential() && input.Credential == "" {
		return nil, connection.ErrMissingCredential
	}

	req := probe.Request{
		Provider:   input.Provider,
		Model:      conn.Model,
		Credential: input.Credential,
	}
	if conn.BaseURL != nil {
		req.BaseURL = *conn.BaseURL
	}
	result, err := s.prober.Probe(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		s.logger.Info("llm connect probe rejected",
			zap.String("user_id", input.UserID.String()),
			zap.String("provider", input.Provider.String()),
			zap.String("error", result.Error))
		return nil, &probeError{message: result.Error}
	}

	secretName := connection.SecretName(input.UserID)
	// The previous connection's secret (if any) lives under the same
	// deterministic name regardless of provider, so this covers both the
	// replace path and crash recovery.
	if err := s.secrets.DeleteByName(ctx, secretName); err != nil {
		return nil, err
	}
	if conn.RequiresCredential() {
		secretID, err := s.secrets.Create(ctx, secretName, input.Credential)
		if err != nil {
			return nil, err
		}
		conn.AttachSecret(secretID)
	}

	if err := s.connections.Upsert(ctx, conn); err != nil {
		if conn.APIKeyVaultID != nil {
			if cleanupErr := s.secrets.Delete(ctx, *conn.APIKeyVaultID); cleanupErr != nil {
				s.logger.Warn("failed to clean up credential after upsert failure",
					zap.String("user_id", input.UserID.String()),
					zap.Error(cleanupErr))
			}
		}
		return nil, err
	}

	s.logger.Info("llm connection established",
		zap.String("user_id", input.UserID.String()),
		zap.String("provider", input.Provider.String()),
		zap.String("model", conn.Model))
	return &ConnectResult{
		Provider:     input.Provider,
		Model:        conn.Model,
		ResponseTime: result.Latency,
	}, nil
}

// Disconnect deletes the vault secret (by ID, then defensively by name)
// and removes the connection row. Disconnecting without a connection is a
// no-op.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID) error {
	conn, err := s.connections.FindByUserID(ctx, userID)
	if err != nil {
		if err == connection.ErrNotFound {
			return nil
		}
		return err
	}

	if conn.APIKeyVaultID != nil {
		if err := s.secrets.Delete(ctx, *conn.APIKeyVaultID); err != nil {
			s.logger.Warn("failed to delete credential by id",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
	if err := s.secrets.DeleteByName(ctx, connection.SecretName(userID)); err != nil {
		s.logger.Warn("failed to delete credential by name",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	if err := s.connections.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("llm connection removed", zap.String("user_id", userID.String()))
	return nil
}

// Test re-reads the stored credential through the canonical vault read and
// re-runs the probe against the stored configuration
func (s *Service) Test(ctx context.Context, userID uuid.UUID) (*TestResult, error) {
	conn, err := s.connections.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	req := probe.Request{Provider: conn.Provider, Model: conn.Model}
	if conn.BaseURL != nil {
		req.BaseURL = *conn.BaseURL
	}
	if conn.APIKeyVaultID != nil {
		credential, err := s.secrets.Read(ctx, *conn.APIKeyVaultID)
		if err != nil {
			return nil, err
		}
		req.Credential = credential
	}

	result, err := s.prober.Probe(ctx, req)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		Success:      result.Success,
		Error:        result.Error,
		ResponseTime: result.Latency,
	}, nil
}

// GetStatus returns the non-secret connection metadata, or nil when the
// user has no connection
func (s *Service) GetStatus(ctx context.Context, userID uuid.UUID) (*Status, error) {
	conn, err := s.connections.FindByUserID(ctx, userID)
	if err != nil {
		if err == connection.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	status := &Status{
		Provider:  conn.Provider,
		Model:     conn.Model,
		IsActive:  conn.IsActive,
		CreatedAt: conn.CreatedAt,
	}
	if conn.BaseURL != nil {
		status.BaseURL = *conn.BaseURL
	}
	return status, nil
}

// Providers lists the selectable LLM providers from the probe catalog
func (s *Service) Providers() []probe.Provider {
	return probe.LLMProviders()
}

// probeError carries a probe rejection as an error without losing the
// provider's truncated diagnostic
type probeError struct {
	message string
}

func (e *probeError) Error() string {
	if e.message == "" {
		return "provider probe failed"
	}
	return e.message
}

// IsProbeError reports whether err is a probe rejection
func IsProbeError(err error) bool {
	_, ok := err.(*probeError)
	return ok
}
