package dto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code, message and optional structured details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// MapDomainError maps service errors to HTTP status codes and error bodies.
func MapDomainError(err error) (status int, body ErrorResponse) {
	message := err.Error()

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, NewErrorResponse(apiErrorCode(apiErr.Status), apiErr.Message, apiErr.Details)
	}

	switch {
	// Lookup errors
	case errors.Is(err, domain.ErrAgentNotFound):
		return http.StatusNotFound, NewErrorResponse("AGENT_NOT_FOUND", message, nil)
	case errors.Is(err, domain.ErrAssociationNotFound):
		return http.StatusNotFound, NewErrorResponse("ASSOCIATION_NOT_FOUND", message, nil)

	// Request errors
	case errors.Is(err, domain.ErrUnsupportedChain):
		return http.StatusBadRequest, NewErrorResponse("UNSUPPORTED_CHAIN", message, nil)
	case errors.Is(err, chain.ErrInvalidDID):
		return http.StatusBadRequest, NewErrorResponse("INVALID_DID", message, nil)
	case errors.Is(err, chain.ErrInvalidAddress), errors.Is(err, chain.ErrInvalidInteropAddress):
		return http.StatusBadRequest, NewErrorResponse("INVALID_ADDRESS", message, nil)

	// Auth errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, NewErrorResponse("UNAUTHORIZED", message, nil)

	// Upstream errors
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, NewErrorResponse("UPSTREAM_UNAVAILABLE", message, nil)
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, NewErrorResponse("UPSTREAM_ERROR", message, nil)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewErrorResponse("UPSTREAM_TIMEOUT", "upstream request timed out", nil)

	// Default: internal server error
	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, NewErrorResponse("INTERNAL_ERROR", "Internal server error", nil)
	}
}

func apiErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "UNAUTHORIZED"
	default:
		if status >= http.StatusInternalServerError {
			return "UPSTREAM_ERROR"
		}
		return "REQUEST_REJECTED"
	}
}
