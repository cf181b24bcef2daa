package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crm/gateway/internal/interfaces/http/dto"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping() error
}

// VaultChecker reports whether the secret store is initialized and unsealed
type VaultChecker interface {
	Healthy(ctx context.Context) bool
}

// SystemHandler handles liveness and readiness endpoints
type SystemHandler struct {
	BaseHandler
	db        Pinger
	vault     VaultChecker
	appName   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, vault VaultChecker, appName string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		vault:     vault,
		appName:   appName,
		startTime: time.Now(),
	}
}

// Health reports process liveness. It never touches dependencies.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"status":     "ok",
		"name":       h.appName,
		"go_version": runtime.Version(),
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
	}))
}

// Ready reports whether the gateway can serve traffic: the database must
// answer a ping and the vault must be unsealed.
func (h *SystemHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "unreachable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.vault != nil {
		if !h.vault.Healthy(c.Request.Context()) {
			checks["vault"] = "unavailable"
			healthy = false
		} else {
			checks["vault"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(gin.H{
		"ready":  healthy,
		"checks": checks,
	}))
}
