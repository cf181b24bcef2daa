package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crm/gateway/internal/application/connection"
	channeldomain "github.com/crm/gateway/internal/domain/channel"
	connectiondomain "github.com/crm/gateway/internal/domain/connection"
	integrationdomain "github.com/crm/gateway/internal/domain/integration"
	"github.com/crm/gateway/internal/domain/probe"
	"github.com/crm/gateway/internal/domain/shared"
	"github.com/crm/gateway/internal/interfaces/http/dto"
	"github.com/crm/gateway/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getActor extracts the authenticated actor set by the JWT middleware
func getActor(c *gin.Context) (shared.Actor, bool) {
	return middleware.GetActor(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// sentinelCodes maps domain sentinel errors onto transport error codes.
// Sentinels are plain errors; only DomainError values carry their own code.
var sentinelCodes = []struct {
	err  error
	code string
}{
	{integrationdomain.ErrNotFound, dto.ErrCodeNotFound},
	{integrationdomain.ErrAlreadyExists, dto.ErrCodeAlreadyExists},
	{connectiondomain.ErrNotFound, dto.ErrCodeNotFound},
	{channeldomain.ErrNotFound, dto.ErrCodeNotFound},
	{integrationdomain.ErrSecretNotFound, dto.ErrCodeVault},
	{integrationdomain.ErrSecretExists, dto.ErrCodeVault},
	{integrationdomain.ErrVaultUnavailable, dto.ErrCodeVault},
	{integrationdomain.ErrInvalidTenantID, dto.ErrCodeValidation},
	{integrationdomain.ErrInvalidType, dto.ErrCodeValidation},
	{integrationdomain.ErrInvalidEndpoint, dto.ErrCodeValidation},
	{integrationdomain.ErrMissingCredential, dto.ErrCodeValidationRequired},
	{connectiondomain.ErrInvalidUserID, dto.ErrCodeValidation},
	{connectiondomain.ErrInvalidProvider, dto.ErrCodeValidation},
	{connectiondomain.ErrInvalidModel, dto.ErrCodeValidationRequired},
	{connectiondomain.ErrMissingCredential, dto.ErrCodeValidationRequired},
	{connectiondomain.ErrMissingBaseURL, dto.ErrCodeValidationRequired},
	{probe.ErrUnknownProvider, dto.ErrCodeValidation},
	{probe.ErrMissingCredential, dto.ErrCodeValidationRequired},
	{probe.ErrMissingBaseURL, dto.ErrCodeValidationRequired},
	{probe.ErrLoopbackBaseURL, dto.ErrCodeValidation},
}

// HandleError maps domain errors to the standard error envelope
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	if connection.IsProbeError(err) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeProbeFailed, err.Error(), requestID))
		return
	}

	for _, m := range sentinelCodes {
		if errors.Is(err, m.err) {
			c.JSON(dto.GetHTTPStatus(m.code), dto.NewErrorResponseWithRequestID(m.code, err.Error(), requestID))
			return
		}
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}
