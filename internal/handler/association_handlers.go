package handler

import (
	"net/http"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/handler/dto"
)

// handleListAssociations lists the associations an account takes part in.
// @Summary List associations
// @Tags associations
// @Produce json
// @Param account query string true "Account address"
// @Param chainId query int true "Chain ID"
// @Success 200 {object} dto.AssociationsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /associations [get]
func (h *Handler) handleListAssociations(w http.ResponseWriter, r *http.Request) {
	q, err := dto.AssociationQueryFromValues(r.URL.Query())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views, err := h.associations.ListAssociations(r.Context(), q)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToAssociationsResponse(q.Account, q.ChainID, views))
}

// handleTrustGraph builds the association graph around an account.
// @Summary Get trust graph
// @Description Center account, its counterparties (at most 12) and their associations.
// @Description Counterparty lookups are best effort; failures are counted in failedLookups.
// @Tags associations
// @Produce json
// @Param account query string true "Center account address"
// @Param chainId query int true "Chain ID"
// @Success 200 {object} dto.TrustGraphResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /associations/graph [get]
func (h *Handler) handleTrustGraph(w http.ResponseWriter, r *http.Request) {
	q, err := dto.AssociationQueryFromValues(r.URL.Query())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	g, err := h.associations.BuildTrustGraph(r.Context(), q)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToTrustGraphResponse(g))
}

// handleAssociationRequest prepares an association record for the initiator to sign.
// @Summary Prepare association request
// @Tags associations
// @Accept json
// @Produce json
// @Param request body dto.AssociationRequestRequest true "Association parties and validity"
// @Success 200 {object} dto.PreparedAssociationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /associations/request [post]
func (h *Handler) handleAssociationRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.AssociationRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	prepared, err := h.associations.PrepareAssociationRequest(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToPreparedAssociationResponse(prepared))
}

// @Summary Revoke association
// @Tags associations
// @Accept json
// @Produce json
// @Param request body dto.RevokeAssociationRequest true "Association to revoke"
// @Success 200 {object} dto.RevokeAssociationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /associations/revoke [post]
func (h *Handler) handleRevokeAssociation(w http.ResponseWriter, r *http.Request) {
	var req dto.RevokeAssociationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	res, err := h.associations.RevokeAssociation(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ToRevokeAssociationResponse(res))
}
