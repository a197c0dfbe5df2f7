package domain

import (
	"errors"
	"net/http"
)

// Domain-specific errors returned by the trust client and services.
var (
	// Lookup errors
	ErrAgentNotFound       = errors.New("agent not found")
	ErrAssociationNotFound = errors.New("association not found")

	// Association errors
	ErrAssociationUnrelated = errors.New("association does not involve account")

	// Chain errors
	ErrUnsupportedChain = errors.New("unsupported chain")

	// Upstream errors
	ErrUpstream            = errors.New("upstream request failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a validation or request error carrying its HTTP status.
// Details is optional structured context returned to the client.
type APIError struct {
	Message string
	Status  int
	Details any
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates an APIError.
func NewAPIError(message string, status int, details any) *APIError {
	return &APIError{Message: message, Status: status, Details: details}
}

// BadRequest is shorthand for a 400 APIError.
func BadRequest(message string, details any) *APIError {
	return NewAPIError(message, http.StatusBadRequest, details)
}

// Unprocessable is shorthand for a 422 APIError.
func Unprocessable(message string, details any) *APIError {
	return NewAPIError(message, http.StatusUnprocessableEntity, details)
}
