package handler

import (
	"github.com/gin-gonic/gin"

	connectionapp "github.com/crm/gateway/internal/application/connection"
	"github.com/crm/gateway/internal/domain/probe"
)

// LLMConnectionHandler handles the per-user LLM connection endpoints
type LLMConnectionHandler struct {
	BaseHandler
	connections *connectionapp.Service
}

// NewLLMConnectionHandler creates a new LLMConnectionHandler
func NewLLMConnectionHandler(connections *connectionapp.Service) *LLMConnectionHandler {
	return &LLMConnectionHandler{connections: connections}
}

// ConnectRequest is the payload for establishing an LLM connection
type ConnectRequest struct {
	Provider string `json:"provider" binding:"required"`
	Model    string `json:"model" binding:"required"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
}

// Connect probes the requested configuration and replaces the caller's
// previous connection on success. A failed probe leaves nothing behind.
func (h *LLMConnectionHandler) Connect(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.connections.Connect(c.Request.Context(), connectionapp.ConnectInput{
		UserID:     actor.UserID,
		CompanyID:  actor.TenantID,
		Provider:   probe.Provider(req.Provider),
		Model:      req.Model,
		Credential: req.APIKey,
		BaseURL:    req.BaseURL,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, gin.H{
		"provider":         result.Provider,
		"model":            result.Model,
		"response_time_ms": result.ResponseTime.Milliseconds(),
	})
}

// Disconnect removes the caller's connection and its credential.
// Disconnecting without a connection is a no-op.
func (h *LLMConnectionHandler) Disconnect(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if err := h.connections.Disconnect(c.Request.Context(), actor.UserID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Test re-probes the caller's stored connection
func (h *LLMConnectionHandler) Test(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	result, err := h.connections.Test(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"success":          result.Success,
		"error":            result.Error,
		"response_time_ms": result.ResponseTime.Milliseconds(),
	})
}

// Status returns the non-secret view of the caller's connection
func (h *LLMConnectionHandler) Status(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	status, err := h.connections.GetStatus(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if status == nil {
		h.Success(c, gin.H{"connected": false})
		return
	}
	h.Success(c, gin.H{
		"connected":  true,
		"provider":   status.Provider,
		"model":      status.Model,
		"base_url":   status.BaseURL,
		"is_active":  status.IsActive,
		"created_at": status.CreatedAt,
	})
}

// Providers lists the selectable LLM providers
func (h *LLMConnectionHandler) Providers(c *gin.Context) {
	h.Success(c, gin.H{"providers": h.connections.Providers()})
}
