// Package handler exposes the agent and association services over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/handler/dto"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/metrics"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/middleware"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/service"
)

// maxBodyBytes bounds request bodies; registration files are the largest payloads.
const maxBodyBytes = 1 << 20

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handler. DB, Auth and SearchLimiter are optional.
type Deps struct {
	Agents        *service.AgentService
	Associations  *service.AssociationService
	DB            Pinger
	Auth          *middleware.APIKeyAuth
	SearchLimiter *middleware.RateLimiter
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	agents        *service.AgentService
	associations  *service.AssociationService
	db            Pinger
	auth          *middleware.APIKeyAuth
	searchLimiter *middleware.RateLimiter
}

// New creates a new Handler instance with all dependencies.
func New(d Deps) *Handler {
	if d.Auth == nil {
		d.Auth = middleware.NewAPIKeyAuth(nil)
	}
	if d.SearchLimiter == nil {
		d.SearchLimiter = middleware.NewRateLimiter(0, 0)
	}
	return &Handler{
		agents:        d.Agents,
		associations:  d.Associations,
		db:            d.DB,
		auth:          d.Auth,
		searchLimiter: d.SearchLimiter,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health and metrics
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	// Agent registry writes require an API key
	mux.Handle("POST /api/agents/create", h.protected(h.createAgentHandler(domain.CreateModeServer)))
	mux.Handle("POST /api/agents/create-direct", h.protected(h.createAgentHandler(domain.CreateModeDirect)))
	mux.Handle("POST /api/agents/create-for-aa", h.protected(h.createAgentHandler(domain.CreateModeAA)))
	mux.Handle("PUT /api/agents/{did8004}/registration", h.protected(http.HandlerFunc(h.handleUpdateRegistration)))
	mux.Handle("GET /api/agents/{did8004}/feedback-auth", h.protected(http.HandlerFunc(h.handleFeedbackAuth)))
	mux.Handle("POST /api/agents/{did8004}/feedback", h.protected(http.HandlerFunc(h.handlePrepareFeedback)))
	mux.Handle("POST /api/agents/{did8004}/validations/request", h.protected(http.HandlerFunc(h.handleValidationRequest)))

	// Agent reads
	mux.HandleFunc("GET /api/agents/{did8004}", h.handleGetAgent)
	mux.HandleFunc("GET /api/agents/{did8004}/validations", h.handleListValidations)
	mux.HandleFunc("GET /api/agents/{did8004}/operations", h.handleListOperations)

	// Search is public and rate limited
	mux.Handle("GET /api/agents/search", h.searchLimiter.Limit(http.HandlerFunc(h.handleSearch)))
	mux.Handle("POST /api/agents/search", h.searchLimiter.Limit(http.HandlerFunc(h.handleSearch)))
	mux.Handle("GET /api/agents/search/semantic", h.searchLimiter.Limit(http.HandlerFunc(h.handleSemanticSearch)))
	mux.Handle("POST /api/agents/search/semantic", h.searchLimiter.Limit(http.HandlerFunc(h.handleSemanticSearch)))

	// Associations
	mux.HandleFunc("GET /api/associations", h.handleListAssociations)
	mux.HandleFunc("GET /api/associations/graph", h.handleTrustGraph)
	mux.Handle("POST /api/associations/request", h.protected(http.HandlerFunc(h.handleAssociationRequest)))
	mux.Handle("POST /api/associations/revoke", h.protected(http.HandlerFunc(h.handleRevokeAssociation)))
}

func (h *Handler) protected(next http.Handler) http.Handler {
	return h.auth.Authenticate(next)
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			slog.Error("database health check failed", "error", err)
			respondError(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message, nil))
}

// respondServiceError maps err and writes it.
func respondServiceError(w http.ResponseWriter, err error) {
	status, body := dto.MapDomainError(err)
	respondJSON(w, status, body)
}

// decodeJSON reads a single JSON document into v. It writes the 400 itself
// and returns false on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		case errors.Is(err, io.EOF):
			respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is empty")
		default:
			respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		}
		return false
	}
	if dec.More() {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body must hold a single JSON document")
		return false
	}
	return true
}
