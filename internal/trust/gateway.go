package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

func (c *HTTPClient) agentPath(did chain.DID8004, suffix string) string {
	return c.gatewayURL + "/api/v1/agents/" + strconv.FormatInt(did.ChainID, 10) + "/" +
		url.PathEscape(did.AgentID.String()) + suffix
}

// CreateAgent registers a new agent. The gateway signs for CreateModeServer and
// CreateModeDirect; for CreateModeAA it only returns the calls to bundle.
func (c *HTTPClient) CreateAgent(ctx context.Context, p domain.CreateAgentParams, reg domain.Registration) (*domain.CreateAgentResult, error) {
	in := map[string]any{
		"mode":         p.Mode,
		"chainId":      p.ChainID,
		"agentAccount": p.Account,
		"registration": reg,
	}
	var out wirePrepared
	endpoint := c.gatewayURL + "/api/v1/agents"
	var err error
	if p.Mode == domain.CreateModeAA {
		err = c.do(ctx, "gateway", "create_agent", http.MethodPost, endpoint, in, &out, nil)
	} else {
		err = c.send(ctx, "create_agent", http.MethodPost, endpoint, in, &out, nil)
	}
	if err != nil {
		return nil, err
	}

	result := &domain.CreateAgentResult{
		ChainID:  p.ChainID,
		AgentID:  out.AgentID,
		TxHash:   out.TxHash,
		TokenURI: out.TokenURI,
		Prepared: out.calls(p.ChainID),
	}
	if p.Mode == domain.CreateModeAA && result.Prepared == nil {
		return nil, fmt.Errorf("%w: create_agent returned no calls for smart account", domain.ErrUpstream)
	}
	if p.Mode != domain.CreateModeAA && result.TxHash == "" {
		return nil, fmt.Errorf("%w: create_agent returned no transaction hash", domain.ErrUpstream)
	}
	return result, nil
}

// UpdateRegistration uploads a new registration file and points the token URI at it.
func (c *HTTPClient) UpdateRegistration(ctx context.Context, p domain.UpdateRegistrationParams) (*domain.UpdateRegistrationResult, error) {
	in := map[string]any{
		"mode":         p.Mode,
		"registration": json.RawMessage(p.Registration),
	}
	var out wirePrepared
	endpoint := c.agentPath(p.DID, "/registration")
	var err error
	if p.Mode == domain.CreateModeAA {
		err = c.do(ctx, "gateway", "update_registration", http.MethodPut, endpoint, in, &out, domain.ErrAgentNotFound)
	} else {
		err = c.send(ctx, "update_registration", http.MethodPut, endpoint, in, &out, domain.ErrAgentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &domain.UpdateRegistrationResult{
		TokenURI: out.TokenURI,
		TxHash:   out.TxHash,
		Prepared: out.calls(p.DID.ChainID),
	}, nil
}

// SemanticSearch ranks agents against a natural-language query.
func (c *HTTPClient) SemanticSearch(ctx context.Context, q domain.SemanticQuery) ([]*domain.SemanticMatch, error) {
	in := map[string]any{
		"text":     q.Text,
		"topK":     q.TopK,
		"minScore": q.MinScore,
	}
	if q.ChainID != nil {
		in["chainId"] = *q.ChainID
	}
	var out struct {
		Matches []wireSemanticMatch `json:"matches"`
	}
	if err := c.do(ctx, "gateway", "semantic_search", http.MethodPost, c.gatewayURL+"/api/v1/agents/semantic-search", in, &out, nil); err != nil {
		return nil, err
	}
	matches := make([]*domain.SemanticMatch, 0, len(out.Matches))
	for i := range out.Matches {
		m := &out.Matches[i]
		matches = append(matches, &domain.SemanticMatch{
			Agent:        m.Agent.toDomain(),
			Score:        m.Score,
			MatchReasons: m.MatchReasons,
		})
	}
	return matches, nil
}

// RequestFeedbackAuth has the agent owner's key sign a feedbackAuth for a client.
func (c *HTTPClient) RequestFeedbackAuth(ctx context.Context, req domain.FeedbackAuthRequest) (*domain.FeedbackAuth, error) {
	in := map[string]any{
		"clientAddress": req.ClientAddress,
		"indexLimit":    strconv.FormatUint(req.IndexLimit, 10),
		"expirySeconds": req.ExpirySeconds,
	}
	var out wireFeedbackAuth
	if err := c.do(ctx, "gateway", "feedback_auth", http.MethodPost, c.agentPath(req.DID, "/feedback-auth"), in, &out, domain.ErrAgentNotFound); err != nil {
		return nil, err
	}
	if out.Signature == "" {
		return nil, fmt.Errorf("%w: feedback_auth returned no signature", domain.ErrUpstream)
	}
	auth := &domain.FeedbackAuth{
		DID:           req.DID,
		ClientAddress: req.ClientAddress,
		SignerAddress: out.SignerAddress,
		IndexLimit:    toUint64(out.IndexLimit),
		Signature:     out.Signature,
	}
	if exp := toUint64(out.Expiry); exp > 0 {
		auth.Expiry = time.Unix(int64(exp), 0).UTC()
	}
	return auth, nil
}

// PrepareFeedback encodes a giveFeedback call for the client to submit.
func (c *HTTPClient) PrepareFeedback(ctx context.Context, req domain.FeedbackRequest) (*domain.PreparedCalls, error) {
	in := map[string]any{
		"clientAddress": req.ClientAddress,
		"score":         req.Score,
		"tag1":          req.Tag1,
		"tag2":          req.Tag2,
		"feedbackUri":   req.FeedbackURI,
		"feedbackHash":  req.FeedbackHash,
		"feedbackAuth":  req.FeedbackAuth,
	}
	return c.prepare(ctx, "prepare_feedback", c.agentPath(req.DID, "/feedback/prepare"), in, req.DID.ChainID, domain.ErrAgentNotFound)
}

// PrepareValidationRequest encodes a validationRequest call against the validation registry.
func (c *HTTPClient) PrepareValidationRequest(ctx context.Context, req domain.ValidationRequest) (*domain.PreparedCalls, error) {
	in := map[string]any{
		"validatorAddress": req.ValidatorAddress,
		"requestUri":       req.RequestURI,
		"requestHash":      req.RequestHash,
	}
	return c.prepare(ctx, "prepare_validation_request", c.agentPath(req.DID, "/validations/prepare"), in, req.DID.ChainID, domain.ErrAgentNotFound)
}

// PrepareAssociationRequest encodes the store call for an association record.
func (c *HTTPClient) PrepareAssociationRequest(ctx context.Context, req domain.AssociationRequest, rec *domain.AssociationRecord) (*domain.PreparedCalls, error) {
	in := map[string]any{
		"chainId": req.ChainID,
		"record": map[string]any{
			"initiator":   chain.EncodeHex(rec.Initiator),
			"approver":    chain.EncodeHex(rec.Approver),
			"validAt":     rec.ValidAt,
			"validUntil":  rec.ValidUntil,
			"interfaceId": chain.EncodeHex(rec.InterfaceID[:]),
			"data":        chain.EncodeHex(rec.Data),
		},
		"digest": chain.EncodeHex(rec.Digest()),
	}
	return c.prepare(ctx, "prepare_association", c.gatewayURL+"/api/v1/associations/prepare", in, req.ChainID, nil)
}

// RevokeAssociation revokes a stored record.
func (c *HTTPClient) RevokeAssociation(ctx context.Context, req domain.RevokeAssociationRequest) (*domain.RevokeAssociationResult, error) {
	in := map[string]any{
		"chainId":       req.ChainID,
		"associationId": req.AssociationID,
		"account":       req.Account,
		"revokedAt":     req.RevokedAt,
	}
	var out wirePrepared
	if err := c.send(ctx, "revoke_association", http.MethodPost, c.gatewayURL+"/api/v1/associations/revoke", in, &out, domain.ErrAssociationNotFound); err != nil {
		return nil, err
	}
	result := &domain.RevokeAssociationResult{TxHash: out.TxHash, Prepared: out.calls(req.ChainID)}
	if result.TxHash == "" && result.Prepared == nil {
		return nil, fmt.Errorf("%w: revoke_association returned neither transaction nor calls", domain.ErrUpstream)
	}
	return result, nil
}

func (c *HTTPClient) prepare(ctx context.Context, op, endpoint string, in any, chainID int64, notFound error) (*domain.PreparedCalls, error) {
	var out wirePrepared
	if err := c.do(ctx, "gateway", op, http.MethodPost, endpoint, in, &out, notFound); err != nil {
		return nil, err
	}
	prepared := out.calls(chainID)
	if prepared == nil {
		return nil, fmt.Errorf("%w: %s returned no calls", domain.ErrUpstream, op)
	}
	return prepared, nil
}
