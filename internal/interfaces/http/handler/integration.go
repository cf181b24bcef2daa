package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/crm/gateway/internal/application/integration"
	"github.com/crm/gateway/internal/domain/integration"
	"github.com/crm/gateway/internal/interfaces/http/dto"
)

// IntegrationHandler handles tenant integration endpoints
type IntegrationHandler struct {
	BaseHandler
	registry *integrationapp.RegistryService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(registry *integrationapp.RegistryService) *IntegrationHandler {
	return &IntegrationHandler{registry: registry}
}

// CreateIntegrationRequest is the payload for creating an integration
type CreateIntegrationRequest struct {
	TenantID    string `json:"tenant_id" binding:"required,uuid"`
	Type        string `json:"type" binding:"required,oneof=workflow_engine telegram webhook"`
	EndpointURL string `json:"endpoint_url"`
	APIKey      string `json:"api_key" binding:"required"`
}

// IntegrationResponse is the metadata view of an integration. The
// credential never appears here, only the vault reference.
type IntegrationResponse struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Type           string     `json:"type"`
	EndpointURL    string     `json:"endpoint_url,omitempty"`
	VaultSecretID  string     `json:"vault_secret_id"`
	IsActive       bool       `json:"is_active"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toIntegrationResponse(integ *integration.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:             integ.ID.String(),
		TenantID:       integ.TenantID.String(),
		Type:           integ.Type.String(),
		EndpointURL:    integ.EndpointURL,
		VaultSecretID:  integ.VaultSecretID,
		IsActive:       integ.IsActive,
		LastVerifiedAt: integ.LastVerifiedAt,
		CreatedAt:      integ.CreatedAt,
		UpdatedAt:      integ.UpdatedAt,
	}
}

// Create registers a new integration for a tenant
func (h *IntegrationHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	integ, err := h.registry.Create(c.Request.Context(), actor, integrationapp.CreateInput{
		TenantID:    tenantID,
		Type:        integration.Type(req.Type),
		EndpointURL: req.EndpointURL,
		Secret:      req.APIKey,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toIntegrationResponse(integ))
}

// List returns the tenant's integrations without credentials
func (h *IntegrationHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	tenantID := actor.TenantID
	if raw := c.Query("tenant_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid tenant ID")
			return
		}
		tenantID = parsed
	}

	items, err := h.registry.List(c.Request.Context(), actor, tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	responses := make([]IntegrationResponse, 0, len(items))
	for i := range items {
		responses = append(responses, toIntegrationResponse(&items[i]))
	}
	h.Success(c, responses)
}

// Get returns a single integration
func (h *IntegrationHandler) Get(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	integ, err := h.registry.Get(c.Request.Context(), actor, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toIntegrationResponse(integ))
}

// Test probes the integration's endpoint with its stored credential
func (h *IntegrationHandler) Test(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	result, err := h.registry.Test(c.Request.Context(), actor, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"success":          result.Success,
		"error":            result.Error,
		"response_time_ms": result.Latency.Milliseconds(),
	})
}

// Activate enables the integration
func (h *IntegrationHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate disables the integration without touching its secret
func (h *IntegrationHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *IntegrationHandler) setActive(c *gin.Context, active bool) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	integ, err := h.registry.SetActive(c.Request.Context(), actor, uuid.MustParse(req.ID), active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toIntegrationResponse(integ))
}

// Delete removes the integration and its secret. Repeating a delete is not
// an error.
func (h *IntegrationHandler) Delete(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	if err := h.registry.Delete(c.Request.Context(), actor, uuid.MustParse(req.ID)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
