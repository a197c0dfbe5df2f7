package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/handler/dto"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/service"
)

// createAgentHandler serves the three creation routes, which differ only in mode.
// @Summary Create an agent
// @Description Registers an agent in the identity registry. create signs through the gateway's relayer,
// @Description create-direct mints from the gateway's EOA, create-for-aa returns calls for a smart account.
// @Tags agents
// @Accept json
// @Produce json
// @Param request body dto.CreateAgentRequest true "Agent creation request"
// @Success 201 {object} dto.CreateAgentResponse
// @Success 200 {object} dto.CreateAgentResponse "create-for-aa"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /agents/create [post]
// @Router /agents/create-direct [post]
// @Router /agents/create-for-aa [post]
func (h *Handler) createAgentHandler(mode domain.CreateMode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateAgentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in, err := req.ToInput()
		if err != nil {
			respondServiceError(w, err)
			return
		}

		res, err := h.agents.CreateAgent(r.Context(), mode, in)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		status := http.StatusCreated
		if mode == domain.CreateModeAA {
			status = http.StatusOK
		}
		respondJSON(w, status, dto.ToCreateAgentResponse(res))
	})
}

// handleGetAgent returns an agent with its reputation summary.
// @Summary Get agent details
// @Tags agents
// @Produce json
// @Param did8004 path string true "Agent DID (did:8004:<chainId>:<agentId>, may be URL-encoded)"
// @Success 200 {object} dto.AgentDetailsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /agents/{did8004} [get]
func (h *Handler) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	details, err := h.agents.GetAgentDetails(r.Context(), r.PathValue("did8004"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToAgentDetailsResponse(details))
}

// handleUpdateRegistration replaces an agent's registration file. The body is
// either {"registration": {...}, "mode": "..."} or the registration file itself.
// @Summary Update agent registration
// @Tags agents
// @Accept json
// @Produce json
// @Param did8004 path string true "Agent DID"
// @Param request body dto.UpdateRegistrationRequest true "New registration file"
// @Success 200 {object} dto.UpdateRegistrationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /agents/{did8004}/registration [put]
func (h *Handler) handleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if !decodeJSON(w, r, &body) {
		return
	}
	var req dto.UpdateRegistrationRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Registration) == 0 {
		// Bare registration file.
		req = dto.UpdateRegistrationRequest{Registration: body}
	}

	res, err := h.agents.UpdateRegistration(r.Context(), r.PathValue("did8004"), req.Registration, domain.CreateMode(req.Mode))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToUpdateRegistrationResponse(res))
}

// handleFeedbackAuth issues the owner's authorization for a client's feedback.
// @Summary Get feedback authorization
// @Tags feedback
// @Produce json
// @Param did8004 path string true "Agent DID"
// @Param clientAddress query string true "Address that will submit feedback"
// @Param indexLimit query int false "Highest feedback index the authorization covers"
// @Param expirySeconds query int false "Authorization lifetime in seconds (default 3600)"
// @Success 200 {object} dto.FeedbackAuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /agents/{did8004}/feedback-auth [get]
func (h *Handler) handleFeedbackAuth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := service.FeedbackAuthInput{ClientAddress: q.Get("clientAddress")}

	if v := q.Get("indexLimit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "indexLimit must be a non-negative integer")
			return
		}
		in.IndexLimit = n
	}
	if v := q.Get("expirySeconds"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "expirySeconds must be a non-negative integer")
			return
		}
		in.ExpirySeconds = n
	}

	did := r.PathValue("did8004")
	auth, err := h.agents.GetFeedbackAuth(r.Context(), did, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToFeedbackAuthResponse(auth.DID.String(), auth))
}

// handlePrepareFeedback prepares a giveFeedback call.
// @Summary Prepare feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Param did8004 path string true "Agent DID"
// @Param request body dto.FeedbackRequest true "Feedback"
// @Success 200 {object} dto.PreparedCallsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /agents/{did8004}/feedback [post]
func (h *Handler) handlePrepareFeedback(w http.ResponseWriter, r *http.Request) {
	var req dto.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	prepared, err := h.agents.PrepareFeedback(r.Context(), r.PathValue("did8004"), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToPreparedCallsResponse(prepared))
}

// handleListValidations lists validation requests split by status.
// @Summary List validations
// @Tags validations
// @Produce json
// @Param did8004 path string true "Agent DID"
// @Success 200 {object} dto.ValidationsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /agents/{did8004}/validations [get]
func (h *Handler) handleListValidations(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("did8004")
	v, err := h.agents.ListValidations(r.Context(), raw)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToValidationsResponse(canonicalDID(raw), v))
}

// handleValidationRequest prepares a validationRequest call.
// @Summary Request validation
// @Tags validations
// @Accept json
// @Produce json
// @Param did8004 path string true "Agent DID"
// @Param request body dto.ValidationRequestRequest true "Validation request"
// @Success 200 {object} dto.PreparedCallsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /agents/{did8004}/validations/request [post]
func (h *Handler) handleValidationRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidationRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prepared, err := h.agents.PrepareValidationRequest(r.Context(), r.PathValue("did8004"), req.ToInput())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToPreparedCallsResponse(prepared))
}

// handleListOperations returns the agent's audit log.
// @Summary List agent operations
// @Tags agents
// @Produce json
// @Param did8004 path string true "Agent DID"
// @Param limit query int false "Maximum entries (default 50, max 200)"
// @Success 200 {object} dto.OperationsResponse
// @Router /agents/{did8004}/operations [get]
func (h *Handler) handleListOperations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ops, err := h.agents.ListOperations(r.Context(), r.PathValue("did8004"), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToOperationsResponse(ops))
}

// handleSearch searches agents from query parameters (GET) or a JSON body (POST).
// @Summary Search agents
// @Tags search
// @Accept json
// @Produce json
// @Param query query string false "Free-text filter"
// @Param chainId query int false "Chain filter"
// @Param owner query string false "Owner address filter"
// @Param page query int false "Page, from 1"
// @Param pageSize query int false "Page size, 1..100 (default 20)"
// @Param orderBy query string false "createdAt, agentId or name"
// @Param orderDirection query string false "asc or desc"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /agents/search [get]
// @Router /agents/search [post]
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req dto.SearchRequest
	if r.Method == http.MethodPost {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		req = dto.SearchRequestFromQuery(r.URL.Query())
	}

	in, err := req.ToInput()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	res, err := h.agents.SearchAgents(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToSearchResponse(res))
}

// handleSemanticSearch ranks agents against a natural-language description.
// @Summary Semantic agent search
// @Tags search
// @Accept json
// @Produce json
// @Param text query string false "Description to match (GET)"
// @Param topK query int false "Result count, 1..50 (default 10)"
// @Param minScore query number false "Minimum similarity, 0..1"
// @Success 200 {object} dto.SemanticSearchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /agents/search/semantic [get]
// @Router /agents/search/semantic [post]
func (h *Handler) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req dto.SemanticSearchRequest
	if r.Method == http.MethodPost {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		var err error
		if req, err = dto.SemanticSearchRequestFromQuery(r.URL.Query()); err != nil {
			respondServiceError(w, err)
			return
		}
	}

	in, err := req.ToInput()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	matches, err := h.agents.SemanticSearch(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToSemanticSearchResponse(matches))
}

// canonicalDID renders a path DID in canonical form, or returns it unchanged
// when it does not parse.
func canonicalDID(raw string) string {
	did, err := chain.ParseDID8004(raw)
	if err != nil {
		return raw
	}
	return did.String()
}
