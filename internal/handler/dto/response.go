package dto

import (
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/service"
)

// Field names follow the dashboard's camelCase contract. uint256 values
// (agent ids, call values) are rendered as decimal strings.

// EndpointResponse is an advertised service endpoint.
type EndpointResponse struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Version  string `json:"version,omitempty"`
}

// AgentResponse represents an agent in search results and detail views.
type AgentResponse struct {
	DID            string             `json:"did8004"`
	ChainID        int64              `json:"chainId"`
	AgentID        chain.BigInt       `json:"agentId"`
	Name           string             `json:"agentName"`
	Account        string             `json:"agentAccount"`
	Owner          string             `json:"agentOwner"`
	TokenURI       string             `json:"tokenUri"`
	Description    string             `json:"description"`
	Image          string             `json:"image"`
	Endpoints      []EndpointResponse `json:"endpoints"`
	SupportedTrust []string           `json:"supportedTrust"`
	CreatedAtBlock uint64             `json:"createdAtBlock"`
	CreatedAt      *time.Time         `json:"createdAt"`
}

// ToAgentResponse converts a domain agent.
func ToAgentResponse(a *domain.Agent) AgentResponse {
	resp := AgentResponse{
		DID:            a.DID(),
		ChainID:        a.ChainID,
		AgentID:        a.AgentID,
		Name:           a.Name,
		Account:        a.Account,
		Owner:          a.Owner,
		TokenURI:       a.TokenURI,
		Description:    a.Description,
		Image:          a.Image,
		Endpoints:      make([]EndpointResponse, 0, len(a.Endpoints)),
		SupportedTrust: a.SupportedTrust,
		CreatedAtBlock: a.CreatedAtBlock,
	}
	if resp.SupportedTrust == nil {
		resp.SupportedTrust = []string{}
	}
	for _, ep := range a.Endpoints {
		resp.Endpoints = append(resp.Endpoints, EndpointResponse(ep))
	}
	if !a.CreatedAt.IsZero() {
		t := a.CreatedAt
		resp.CreatedAt = &t
	}
	return resp
}

// FeedbackSummaryResponse is an agent's reputation aggregate.
type FeedbackSummaryResponse struct {
	Count        uint64  `json:"count"`
	AverageScore float64 `json:"averageScore"`
}

// AgentDetailsResponse represents the response for GET /api/agents/{did8004}.
// FeedbackSummary is null when the reputation lookup failed.
type AgentDetailsResponse struct {
	Agent           AgentResponse            `json:"agent"`
	FeedbackSummary *FeedbackSummaryResponse `json:"feedbackSummary"`
}

// ToAgentDetailsResponse converts agent details.
func ToAgentDetailsResponse(d *domain.AgentDetails) AgentDetailsResponse {
	resp := AgentDetailsResponse{Agent: ToAgentResponse(d.Agent)}
	if d.Summary != nil {
		resp.FeedbackSummary = &FeedbackSummaryResponse{Count: d.Summary.Count, AverageScore: d.Summary.AverageScore}
	}
	return resp
}

// CallResponse is one prepared contract call.
type CallResponse struct {
	To    string       `json:"to"`
	Data  string       `json:"data"`
	Value chain.BigInt `json:"value"`
}

// PreparedCallsResponse are unsigned calls for a smart account to bundle.
type PreparedCallsResponse struct {
	ChainID    int64          `json:"chainId"`
	Calls      []CallResponse `json:"calls"`
	BundlerURL string         `json:"bundlerUrl,omitempty"`
}

// ToPreparedCallsResponse converts prepared calls; nil stays nil.
func ToPreparedCallsResponse(p *domain.PreparedCalls) *PreparedCallsResponse {
	if p == nil {
		return nil
	}
	resp := &PreparedCallsResponse{
		ChainID:    p.ChainID,
		Calls:      make([]CallResponse, 0, len(p.Calls)),
		BundlerURL: p.BundlerURL,
	}
	for _, c := range p.Calls {
		resp.Calls = append(resp.Calls, CallResponse(c))
	}
	return resp
}

// CreateAgentResponse represents the response of the agent creation routes.
type CreateAgentResponse struct {
	Success  bool                   `json:"success"`
	ChainID  int64                  `json:"chainId"`
	AgentID  chain.BigInt           `json:"agentId"`
	DID      string                 `json:"did8004,omitempty"`
	TxHash   string                 `json:"txHash,omitempty"`
	TokenURI string                 `json:"tokenUri,omitempty"`
	Prepared *PreparedCallsResponse `json:"prepared,omitempty"`
}

// ToCreateAgentResponse converts a creation result.
func ToCreateAgentResponse(r *domain.CreateAgentResult) CreateAgentResponse {
	resp := CreateAgentResponse{
		Success:  true,
		ChainID:  r.ChainID,
		AgentID:  r.AgentID,
		TxHash:   r.TxHash,
		TokenURI: r.TokenURI,
		Prepared: ToPreparedCallsResponse(r.Prepared),
	}
	if !r.AgentID.IsNil() {
		resp.DID = chain.FormatDID8004(r.ChainID, r.AgentID)
	}
	return resp
}

// UpdateRegistrationResponse represents the response for PUT /api/agents/{did8004}/registration.
type UpdateRegistrationResponse struct {
	Success  bool                   `json:"success"`
	TokenURI string                 `json:"tokenUri,omitempty"`
	TxHash   string                 `json:"txHash,omitempty"`
	Prepared *PreparedCallsResponse `json:"prepared,omitempty"`
}

// ToUpdateRegistrationResponse converts an update result.
func ToUpdateRegistrationResponse(r *domain.UpdateRegistrationResult) UpdateRegistrationResponse {
	return UpdateRegistrationResponse{
		Success:  true,
		TokenURI: r.TokenURI,
		TxHash:   r.TxHash,
		Prepared: ToPreparedCallsResponse(r.Prepared),
	}
}

// FeedbackAuthResponse represents the response for GET /api/agents/{did8004}/feedback-auth.
type FeedbackAuthResponse struct {
	DID           string `json:"did8004"`
	ClientAddress string `json:"clientAddress"`
	SignerAddress string `json:"signerAddress,omitempty"`
	IndexLimit    uint64 `json:"indexLimit"`
	Expiry        int64  `json:"expiry"`
	FeedbackAuth  string `json:"feedbackAuth"`
}

// ToFeedbackAuthResponse converts a feedback authorization.
func ToFeedbackAuthResponse(did string, a *domain.FeedbackAuth) FeedbackAuthResponse {
	return FeedbackAuthResponse{
		DID:           did,
		ClientAddress: a.ClientAddress,
		SignerAddress: a.SignerAddress,
		IndexLimit:    a.IndexLimit,
		Expiry:        a.Expiry.Unix(),
		FeedbackAuth:  a.Signature,
	}
}

// ValidationResponse is one validation request.
type ValidationResponse struct {
	RequestHash      string       `json:"requestHash"`
	ValidatorAddress string       `json:"validatorAddress"`
	AgentID          chain.BigInt `json:"agentId"`
	RequestURI       string       `json:"requestUri"`
	Response         *uint8       `json:"response"`
	ResponseURI      string       `json:"responseUri,omitempty"`
	Tag              string       `json:"tag,omitempty"`
	Status           string       `json:"status"`
	LastUpdate       *time.Time   `json:"lastUpdate"`
}

// ValidationsResponse represents the response for GET /api/agents/{did8004}/validations.
type ValidationsResponse struct {
	DID       string               `json:"did8004"`
	Pending   []ValidationResponse `json:"pending"`
	Completed []ValidationResponse `json:"completed"`
}

func toValidationResponses(entries []*domain.ValidationEntry) []ValidationResponse {
	out := make([]ValidationResponse, 0, len(entries))
	for _, e := range entries {
		v := ValidationResponse{
			RequestHash:      e.RequestHash,
			ValidatorAddress: e.ValidatorAddress,
			AgentID:          e.AgentID,
			RequestURI:       e.RequestURI,
			Response:         e.Response,
			ResponseURI:      e.ResponseURI,
			Tag:              e.Tag,
			Status:           string(e.Status()),
		}
		if !e.LastUpdate.IsZero() {
			t := e.LastUpdate
			v.LastUpdate = &t
		}
		out = append(out, v)
	}
	return out
}

// ToValidationsResponse converts split validations.
func ToValidationsResponse(did string, v *service.Validations) ValidationsResponse {
	return ValidationsResponse{
		DID:       did,
		Pending:   toValidationResponses(v.Pending),
		Completed: toValidationResponses(v.Completed),
	}
}

// SearchResponse represents the response for /api/agents/search.
type SearchResponse struct {
	Agents   []AgentResponse `json:"agents"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	HasMore  bool            `json:"hasMore"`
}

// ToSearchResponse converts a search page.
func ToSearchResponse(r *domain.SearchResult) SearchResponse {
	resp := SearchResponse{
		Agents:   make([]AgentResponse, 0, len(r.Agents)),
		Total:    r.Total,
		Page:     r.Page,
		PageSize: r.PageSize,
		HasMore:  r.HasMore(),
	}
	for _, a := range r.Agents {
		resp.Agents = append(resp.Agents, ToAgentResponse(a))
	}
	return resp
}

// SemanticMatchResponse is one ranked semantic search result.
type SemanticMatchResponse struct {
	Agent        AgentResponse `json:"agent"`
	Score        float64       `json:"score"`
	MatchReasons []string      `json:"matchReasons"`
}

// SemanticSearchResponse represents the response for /api/agents/search/semantic.
type SemanticSearchResponse struct {
	Matches []SemanticMatchResponse `json:"matches"`
	Total   int                     `json:"total"`
}

// ToSemanticSearchResponse converts ranked matches.
func ToSemanticSearchResponse(matches []*domain.SemanticMatch) SemanticSearchResponse {
	resp := SemanticSearchResponse{Matches: make([]SemanticMatchResponse, 0, len(matches)), Total: len(matches)}
	for _, m := range matches {
		reasons := m.MatchReasons
		if reasons == nil {
			reasons = []string{}
		}
		resp.Matches = append(resp.Matches, SemanticMatchResponse{Agent: ToAgentResponse(m.Agent), Score: m.Score, MatchReasons: reasons})
	}
	return resp
}

// AssociationResponse is an association seen from the queried account.
type AssociationResponse struct {
	AssociationID      string `json:"associationId"`
	Initiator          string `json:"initiator"`
	Approver           string `json:"approver"`
	InitiatorAddress   string `json:"initiatorAddress"`
	InitiatorChainID   int64  `json:"initiatorChainId"`
	ApproverAddress    string `json:"approverAddress"`
	ApproverChainID    int64  `json:"approverChainId"`
	Counterparty       string `json:"counterparty"`
	Direction          string `json:"direction"`
	ValidAt            uint64 `json:"validAt"`
	ValidUntil         uint64 `json:"validUntil"`
	RevokedAt          uint64 `json:"revokedAt"`
	InterfaceID        string `json:"interfaceId"`
	Data               string `json:"data"`
	InitiatorKeyType   string `json:"initiatorKeyType,omitempty"`
	ApproverKeyType    string `json:"approverKeyType,omitempty"`
	InitiatorSignature string `json:"initiatorSignature,omitempty"`
	ApproverSignature  string `json:"approverSignature,omitempty"`
	Active             bool   `json:"active"`
	Revoked            bool   `json:"revoked"`
}

// AssociationsResponse represents the response for GET /api/associations.
type AssociationsResponse struct {
	Account      string                `json:"account"`
	ChainID      int64                 `json:"chainId"`
	Associations []AssociationResponse `json:"associations"`
}

// ToAssociationsResponse converts oriented associations.
func ToAssociationsResponse(account string, chainID int64, views []*domain.AssociationView) AssociationsResponse {
	resp := AssociationsResponse{
		Account:      account,
		ChainID:      chainID,
		Associations: make([]AssociationResponse, 0, len(views)),
	}
	for _, v := range views {
		a := v.Association
		resp.Associations = append(resp.Associations, AssociationResponse{
			AssociationID:      a.ID,
			Initiator:          a.Initiator,
			Approver:           a.Approver,
			InitiatorAddress:   v.InitiatorAddress,
			InitiatorChainID:   v.InitiatorChainID,
			ApproverAddress:    v.ApproverAddress,
			ApproverChainID:    v.ApproverChainID,
			Counterparty:       v.Counterparty,
			Direction:          string(v.Direction),
			ValidAt:            a.ValidAt,
			ValidUntil:         a.ValidUntil,
			RevokedAt:          a.RevokedAt,
			InterfaceID:        a.InterfaceID,
			Data:               a.Data,
			InitiatorKeyType:   a.InitiatorKeyType,
			ApproverKeyType:    a.ApproverKeyType,
			InitiatorSignature: a.InitiatorSignature,
			ApproverSignature:  a.ApproverSignature,
			Active:             v.Active,
			Revoked:            v.Revoked,
		})
	}
	return resp
}

// AssociationRecordResponse is the signable record with ERC-7930 encoded parties.
type AssociationRecordResponse struct {
	Initiator   string `json:"initiator"`
	Approver    string `json:"approver"`
	ValidAt     uint64 `json:"validAt"`
	ValidUntil  uint64 `json:"validUntil"`
	InterfaceID string `json:"interfaceId"`
	Data        string `json:"data"`
}

// PreparedAssociationResponse represents the response for POST /api/associations/request.
type PreparedAssociationResponse struct {
	Record     AssociationRecordResponse `json:"record"`
	RecordType string                    `json:"recordType"`
	Digest     string                    `json:"digest"`
	Prepared   *PreparedCallsResponse    `json:"prepared,omitempty"`
}

// ToPreparedAssociationResponse converts a prepared association.
func ToPreparedAssociationResponse(p *domain.PreparedAssociation) PreparedAssociationResponse {
	return PreparedAssociationResponse{
		Record: AssociationRecordResponse{
			Initiator:   chain.EncodeHex(p.Record.Initiator),
			Approver:    chain.EncodeHex(p.Record.Approver),
			ValidAt:     p.Record.ValidAt,
			ValidUntil:  p.Record.ValidUntil,
			InterfaceID: chain.EncodeHex(p.Record.InterfaceID[:]),
			Data:        chain.EncodeHex(p.Record.Data),
		},
		RecordType: domain.AssociationRecordType,
		Digest:     p.Digest,
		Prepared:   ToPreparedCallsResponse(p.Prepared),
	}
}

// RevokeAssociationResponse represents the response for POST /api/associations/revoke.
type RevokeAssociationResponse struct {
	Success  bool                   `json:"success"`
	TxHash   string                 `json:"txHash,omitempty"`
	Prepared *PreparedCallsResponse `json:"prepared,omitempty"`
}

// ToRevokeAssociationResponse converts a revocation result.
func ToRevokeAssociationResponse(r *domain.RevokeAssociationResult) RevokeAssociationResponse {
	return RevokeAssociationResponse{Success: true, TxHash: r.TxHash, Prepared: ToPreparedCallsResponse(r.Prepared)}
}

// GraphNodeResponse is a trust graph node.
type GraphNodeResponse struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Label    string `json:"label"`
	Hop      int    `json:"hop"`
	IsCenter bool   `json:"isCenter"`
}

// GraphEdgeResponse is a trust graph edge, directed initiator to approver.
type GraphEdgeResponse struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Active  bool   `json:"active"`
	Revoked bool   `json:"revoked"`
}

// TrustGraphResponse represents the response for GET /api/associations/graph.
type TrustGraphResponse struct {
	Center    string              `json:"center"`
	ChainID   int64               `json:"chainId"`
	Nodes     []GraphNodeResponse `json:"nodes"`
	Edges     []GraphEdgeResponse `json:"edges"`
	Truncated bool                `json:"truncated"`
	Failed    int                 `json:"failedLookups"`
}

// ToTrustGraphResponse converts a trust graph.
func ToTrustGraphResponse(g *domain.TrustGraph) TrustGraphResponse {
	resp := TrustGraphResponse{
		Center:    g.Center,
		ChainID:   g.ChainID,
		Nodes:     make([]GraphNodeResponse, 0, len(g.Nodes)),
		Edges:     make([]GraphEdgeResponse, 0, len(g.Edges)),
		Truncated: g.Truncated,
		Failed:    g.Failed,
	}
	for _, n := range g.Nodes {
		resp.Nodes = append(resp.Nodes, GraphNodeResponse(*n))
	}
	for _, e := range g.Edges {
		resp.Edges = append(resp.Edges, GraphEdgeResponse(*e))
	}
	return resp
}

// OperationResponse is an audit log entry.
type OperationResponse struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Status    string         `json:"status"`
	ChainID   int64          `json:"chainId"`
	AgentID   *string        `json:"agentId"`
	Account   *string        `json:"account"`
	TxHash    *string        `json:"txHash"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// OperationsResponse represents the response for GET /api/agents/{did8004}/operations.
type OperationsResponse struct {
	Operations []OperationResponse `json:"operations"`
}

// ToOperationsResponse converts audit log entries.
func ToOperationsResponse(ops []*domain.Operation) OperationsResponse {
	resp := OperationsResponse{Operations: make([]OperationResponse, 0, len(ops))}
	for _, op := range ops {
		resp.Operations = append(resp.Operations, OperationResponse{
			ID:        op.ID,
			Kind:      string(op.Kind),
			Status:    string(op.Status),
			ChainID:   op.ChainID,
			AgentID:   op.AgentID,
			Account:   op.Account,
			TxHash:    op.TxHash,
			Payload:   op.Payload,
			CreatedAt: op.CreatedAt,
		})
	}
	return resp
}
