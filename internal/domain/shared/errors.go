package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors. Validation, probe and dependency failures carry
// package sentinels in their own domains; only the cross-cutting pair
// lives here.
var (
	ErrNotFound  = NewDomainError("NOT_FOUND", "Resource not found")
	ErrForbidden = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
)
