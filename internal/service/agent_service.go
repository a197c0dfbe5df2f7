package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/cache"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/config"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/repository"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/trust"
)

// Cache namespaces.
const (
	nsAgent      = "agent"
	nsReputation = "reputation"
	nsSearch     = "search"
)

// Search defaults and bounds.
const (
	DefaultPageSize      = 20
	MaxPageSize          = 100
	DefaultTopK          = 10
	MaxTopK              = 50
	DefaultFeedbackTTL   = time.Hour
	DefaultOperationsMax = 50
)

// AgentService validates agent registry requests and delegates them to the trust client.
type AgentService struct {
	client    trust.Client
	chains    *config.Chains
	loader    *cache.Loader
	audit     auditLog
	validator *Validator
}

// NewAgentService creates a new AgentService. ops may be nil to disable the audit log.
func NewAgentService(client trust.Client, chains *config.Chains, loader *cache.Loader, ops OperationStore) *AgentService {
	return &AgentService{
		client:    client,
		chains:    chains,
		loader:    loader,
		audit:     auditLog{store: ops},
		validator: NewValidator(),
	}
}

// EndpointInput is one advertised service endpoint.
type EndpointInput struct {
	Name     string `json:"name" validate:"required,max=64"`
	Endpoint string `json:"endpoint" validate:"required,max=2048,endpoint_uri"`
	Version  string `json:"version" validate:"max=32"`
}

// CreateAgentInput is the body of the agent creation routes.
type CreateAgentInput struct {
	ChainID        int64           `json:"chainId" validate:"required,gt=0"`
	Name           string          `json:"name" validate:"required,max=128"`
	Account        string          `json:"account" validate:"required,eth_addr,nonzero_addr"`
	Description    string          `json:"description" validate:"max=4096"`
	Image          string          `json:"image" validate:"omitempty,max=2048,endpoint_uri"`
	Endpoints      []EndpointInput `json:"endpoints" validate:"max=32,dive"`
	SupportedTrust []string        `json:"supportedTrust" validate:"max=8,dive,oneof=reputation crypto-economic tee-attestation"`
}

// CreateAgent registers an agent in the identity registry. In CreateModeAA
// nothing is sent; the result carries the calls and the chain's bundler URL.
func (s *AgentService) CreateAgent(ctx context.Context, mode domain.CreateMode, in CreateAgentInput) (*domain.CreateAgentResult, error) {
	if !mode.IsValid() {
		return nil, domain.BadRequest(fmt.Sprintf("unknown create mode %q", mode), nil)
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	ch, err := lookupChain(s.chains, in.ChainID)
	if err != nil {
		return nil, err
	}

	account, err := chain.ChecksumAddress(in.Account)
	if err != nil {
		return nil, domain.BadRequest(err.Error(), nil)
	}

	params := domain.CreateAgentParams{
		ChainID:        in.ChainID,
		Name:           in.Name,
		Account:        account,
		Description:    strings.TrimSpace(in.Description),
		Image:          in.Image,
		SupportedTrust: in.SupportedTrust,
		Mode:           mode,
	}
	for _, ep := range in.Endpoints {
		params.Endpoints = append(params.Endpoints, domain.Endpoint{
			Name:     strings.TrimSpace(ep.Name),
			Endpoint: strings.TrimSpace(ep.Endpoint),
			Version:  ep.Version,
		})
	}

	res, err := s.client.CreateAgent(ctx, params, domain.BuildRegistration(params))
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	withBundler(res.Prepared, ch)

	op := &domain.Operation{
		Kind:    createKind(mode),
		Status:  preparedStatus(res.TxHash),
		ChainID: in.ChainID,
		Account: &account,
		TxHash:  optional(res.TxHash),
		Payload: map[string]any{"name": params.Name, "mode": string(mode)},
	}
	if !res.AgentID.IsNil() {
		id := res.AgentID.String()
		op.AgentID = &id
	}
	s.audit.record(ctx, op)

	slog.Info("agent created",
		"chain_id", in.ChainID,
		"account", account,
		"mode", mode,
		"tx_hash", res.TxHash,
	)
	return res, nil
}

func createKind(mode domain.CreateMode) domain.OperationKind {
	switch mode {
	case domain.CreateModeDirect:
		return domain.OperationAgentCreatedDirect
	case domain.CreateModeAA:
		return domain.OperationAgentPreparedAA
	default:
		return domain.OperationAgentCreated
	}
}

// UpdateRegistration replaces the registration file of the agent behind didRaw.
// registration must be a JSON object with a non-empty name; a missing type is
// filled with the registration-v1 URI.
func (s *AgentService) UpdateRegistration(ctx context.Context, didRaw string, registration json.RawMessage, mode domain.CreateMode) (*domain.UpdateRegistrationResult, error) {
	did, err := parseDID(didRaw)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = domain.CreateModeServer
	}
	if !mode.IsValid() {
		return nil, domain.BadRequest(fmt.Sprintf("unknown mode %q", mode), nil)
	}
	ch, err := lookupChain(s.chains, did.ChainID)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(registration, &doc); err != nil || doc == nil {
		return nil, domain.BadRequest("registration must be a JSON object", nil)
	}
	name, _ := doc["name"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, domain.BadRequest("registration.name is required", []FieldError{{Field: "registration.name", Rule: "required"}})
	}
	if _, ok := doc["type"]; !ok {
		doc["type"] = domain.RegistrationTypeV1
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode registration: %w", err)
	}

	res, err := s.client.UpdateRegistration(ctx, domain.UpdateRegistrationParams{DID: did, Registration: raw, Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("update registration %s: %w", did, err)
	}
	withBundler(res.Prepared, ch)
	s.loader.Invalidate(ctx, nsAgent, did.String())

	agentID := did.AgentID.String()
	s.audit.record(ctx, &domain.Operation{
		Kind:    domain.OperationRegistrationUpdated,
		Status:  preparedStatus(res.TxHash),
		ChainID: did.ChainID,
		AgentID: &agentID,
		TxHash:  optional(res.TxHash),
		Payload: map[string]any{"tokenUri": res.TokenURI, "mode": string(mode)},
	})
	return res, nil
}

// GetAgentDetails returns the agent and its reputation summary. A failed
// summary lookup leaves Summary nil rather than failing the request.
func (s *AgentService) GetAgentDetails(ctx context.Context, didRaw string) (*domain.AgentDetails, error) {
	did, err := parseDID(didRaw)
	if err != nil {
		return nil, err
	}
	if _, err := lookupChain(s.chains, did.ChainID); err != nil {
		return nil, err
	}

	agent, err := cache.Fetch(ctx, s.loader, nsAgent, did.String(), func(ctx context.Context) (*domain.Agent, error) {
		return s.client.GetAgent(ctx, did)
	})
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", did, err)
	}

	details := &domain.AgentDetails{Agent: agent}
	summary, err := cache.Fetch(ctx, s.loader, nsReputation, did.String(), func(ctx context.Context) (*domain.FeedbackSummary, error) {
		return s.client.GetReputationSummary(ctx, did)
	})
	if err != nil {
		slog.Warn("reputation summary unavailable", "did", did.String(), "error", err)
	} else {
		details.Summary = summary
	}
	return details, nil
}

// FeedbackAuthInput holds the query parameters of the feedback-auth route.
// A zero IndexLimit lets the gateway use the client's next feedback index.
type FeedbackAuthInput struct {
	ClientAddress string `json:"clientAddress" validate:"required,eth_addr,nonzero_addr"`
	IndexLimit    uint64 `json:"indexLimit"`
	ExpirySeconds int64  `json:"expirySeconds" validate:"omitempty,gte=60,lte=2592000"`
}

// GetFeedbackAuth asks the agent owner's key to authorize feedback from a client.
func (s *AgentService) GetFeedbackAuth(ctx context.Context, didRaw string, in FeedbackAuthInput) (*domain.FeedbackAuth, error) {
	did, err := parseDID(didRaw)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := lookupChain(s.chains, did.ChainID); err != nil {
		return nil, err
	}
	if in.ExpirySeconds == 0 {
		in.ExpirySeconds = int64(DefaultFeedbackTTL / time.Second)
	}

	client, _ := chain.ChecksumAddress(in.ClientAddress)
	auth, err := s.client.RequestFeedbackAuth(ctx, domain.FeedbackAuthRequest{
		DID:           did,
		ClientAddress: client,
		IndexLimit:    in.IndexLimit,
		ExpirySeconds: in.ExpirySeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("request feedback auth %s: %w", did, err)
	}

	agentID := did.AgentID.String()
	s.audit.record(ctx, &domain.Operation{
		Kind:    domain.OperationFeedbackAuthIssued,
		Status:  domain.OperationStatusPrepared,
		ChainID: did.ChainID,
		AgentID: &agentID,
		Account: &client,
		Payload: map[string]any{"indexLimit": auth.IndexLimit, "expiry": auth.Expiry.Unix()},
	})
	return auth, nil
}

// FeedbackInput is the body of the feedback route.
type FeedbackInput struct {
	ClientAddress string `json:"clientAddress" validate:"required,eth_addr,nonzero_addr"`
	Score         *int   `json:"score" validate:"required,gte=0,lte=100"`
	Tag1          string `json:"tag1" validate:"max=32"`
	Tag2          string `json:"tag2" validate:"max=32"`
	FeedbackURI   string `json:"feedbackUri" validate:"omitempty,max=2048,endpoint_uri"`
	FeedbackHash  string `json:"feedbackHash" validate:"omitempty,bytes32"`
	FeedbackAuth  string `json:"feedbackAuth" validate:"required,hexbytes"`
}

// PrepareFeedback builds the giveFeedback call for the client to sign.
func (s *AgentService) PrepareFeedback(ctx context.Context, didRaw string, in FeedbackInput) (*domain.PreparedCalls, error) {
	did, err := parseDID(didRaw)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	ch, err := lookupChain(s.chains, did.ChainID)
	if err != nil {
		return nil, err
	}

	client, _ := chain.ChecksumAddress(in.ClientAddress)
	prepared, err := s.client.PrepareFeedback(ctx, domain.FeedbackRequest{
		DID:           did,
		ClientAddress: client,
		Score:         uint8(*in.Score),
		Tag1:          in.Tag1,
		Tag2:          in.Tag2,
		FeedbackURI:   in.FeedbackURI,
		FeedbackHash:  strings.ToLower(in.FeedbackHash),
		FeedbackAuth:  in.FeedbackAuth,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare feedback %s: %w", did, err)
	}
	withBundler(prepared, ch)
	s.loader.Invalidate(ctx, nsReputation, did.String())

	agentID := did.AgentID.String()
	s.audit.record(ctx, &domain.Operation{
		Kind:    domain.OperationFeedbackPrepared,
		Status:  domain.OperationStatusPrepared,
		ChainID: did.ChainID,
		AgentID: &agentID,
		Account: &client,
		Payload: map[string]any{"score": *in.Score, "tag1": in.Tag1, "tag2": in.Tag2},
	})
	return prepared, nil
}

// Validations are an agent's validation requests split by status.
type Validations struct {
	Pending   []*domain.ValidationEntry
	Completed []*domain.ValidationEntry
}

// ListValidations returns the agent's validation requests, pending and completed.
func (s *AgentService) ListValidations(ctx context.Context, didRaw string) (*Validations, error) {
	did, err := parseDID(didRaw)
	if err != nil {
		return nil, err
	}
	if _, err := lookupChain(s.chains, did.ChainID); err != nil {
		return nil, err
	}

	entries, err := s.client.ListValidations(ctx, did)
	if err != nil {
		return nil, fmt.Errorf("list validations %s: %w", did, err)
	}
	pending, completed := domain.SplitValidations(entries)
	return &Validations{Pending: pending, Completed: completed}, nil
}

// ValidationRequestInput is the body of the validation request route.
// RequestHash defaults to keccak256(requestUri).
type ValidationRequestInput struct {
	ValidatorAddress string `json:"validatorAddress" validate:"required,eth_addr,nonzero_addr"`
	RequestURI       string `json:"requestUri" validate:"required,max=2048,endpoint_uri"`
	RequestHash      string `json:"requestHash" validate:"omitempty,bytes32"`
}

// PrepareValidationRequest builds the validationRequest call the agent owner submits.
func (s *AgentService) PrepareValidationRequest(ctx context.Context, didRaw string, in ValidationRequestInput) (*domain.PreparedCalls, error) {
	did, err := parseDID(didRaw)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	ch, err := lookupChain(s.chains, did.ChainID)
	if err != nil {
		return nil, err
	}

	hash := strings.ToLower(in.RequestHash)
	if hash == "" {
		hash = chain.EncodeHex(chain.Keccak256([]byte(in.RequestURI)))
	}
	validatorAddr, _ := chain.ChecksumAddress(in.ValidatorAddress)

	prepared, err := s.client.PrepareValidationRequest(ctx, domain.ValidationRequest{
		DID:              did,
		ValidatorAddress: validatorAddr,
		RequestURI:       in.RequestURI,
		RequestHash:      hash,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare validation request %s: %w", did, err)
	}
	withBundler(prepared, ch)

	agentID := did.AgentID.String()
	s.audit.record(ctx, &domain.Operation{
		Kind:    domain.OperationValidationRequested,
		Status:  domain.OperationStatusPrepared,
		ChainID: did.ChainID,
		AgentID: &agentID,
		Account: &validatorAddr,
		Payload: map[string]any{"requestUri": in.RequestURI, "requestHash": hash},
	})
	return prepared, nil
}

// SearchInput holds agent search filters from the query string or a POST body.
type SearchInput struct {
	Query          string  `json:"query" validate:"max=256"`
	ChainID        *int64  `json:"chainId" validate:"omitempty,gt=0"`
	Owner          *string `json:"owner" validate:"omitempty,eth_addr"`
	Page           int     `json:"page" validate:"omitempty,gte=1"`
	PageSize       int     `json:"pageSize" validate:"omitempty,gte=1,lte=100"`
	OrderBy        string  `json:"orderBy" validate:"omitempty,oneof=createdAt agentId name"`
	OrderDirection string  `json:"orderDirection" validate:"omitempty,oneof=asc desc"`
}

// params applies defaults to a validated input.
func (in SearchInput) params() domain.SearchParams {
	p := domain.SearchParams{
		Query:          strings.TrimSpace(in.Query),
		ChainID:        in.ChainID,
		Page:           in.Page,
		PageSize:       in.PageSize,
		OrderBy:        in.OrderBy,
		OrderDirection: in.OrderDirection,
	}
	if in.Owner != nil {
		owner := strings.ToLower(*in.Owner)
		p.Owner = &owner
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.OrderBy == "" {
		p.OrderBy = "createdAt"
	}
	if p.OrderDirection == "" {
		p.OrderDirection = "desc"
	}
	return p
}

func searchKey(p domain.SearchParams) string {
	var b strings.Builder
	b.WriteString(strconv.Quote(p.Query))
	b.WriteByte('|')
	if p.ChainID != nil {
		b.WriteString(strconv.FormatInt(*p.ChainID, 10))
	}
	b.WriteByte('|')
	if p.Owner != nil {
		b.WriteString(*p.Owner)
	}
	fmt.Fprintf(&b, "|%d|%d|%s|%s", p.Page, p.PageSize, p.OrderBy, p.OrderDirection)
	return b.String()
}

// SearchAgents returns one page of agents matching in.
func (s *AgentService) SearchAgents(ctx context.Context, in SearchInput) (*domain.SearchResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if in.ChainID != nil {
		if _, err := lookupChain(s.chains, *in.ChainID); err != nil {
			return nil, err
		}
	}

	p := in.params()
	res, err := cache.Fetch(ctx, s.loader, nsSearch, searchKey(p), func(ctx context.Context) (*domain.SearchResult, error) {
		return s.client.SearchAgents(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("search agents: %w", err)
	}
	return res, nil
}

// SemanticSearchInput is a natural-language search request.
type SemanticSearchInput struct {
	Text     string   `json:"text" validate:"required,max=1024"`
	TopK     int      `json:"topK" validate:"omitempty,gte=1,lte=50"`
	MinScore *float64 `json:"minScore" validate:"omitempty,gte=0,lte=1"`
	ChainID  *int64   `json:"chainId" validate:"omitempty,gt=0"`
}

// SemanticSearch ranks agents by similarity to a free-text description.
func (s *AgentService) SemanticSearch(ctx context.Context, in SemanticSearchInput) ([]*domain.SemanticMatch, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if in.ChainID != nil {
		if _, err := lookupChain(s.chains, *in.ChainID); err != nil {
			return nil, err
		}
	}

	q := domain.SemanticQuery{Text: in.Text, TopK: in.TopK, ChainID: in.ChainID}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	if in.MinScore != nil {
		q.MinScore = *in.MinScore
	}

	matches, err := s.client.SemanticSearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if matches == nil {
		matches = []*domain.SemanticMatch{}
	}
	return matches, nil
}

// ListOperations returns the newest audit log entries of an agent.
func (s *AgentService) ListOperations(ctx context.Context, didRaw string, limit int) ([]*domain.Operation, error) {
	did, err := parseDID(didRaw)
	if err != nil {
		return nil, err
	}
	if _, err := lookupChain(s.chains, did.ChainID); err != nil {
		return nil, err
	}
	if s.audit.store == nil {
		return []*domain.Operation{}, nil
	}
	if limit <= 0 {
		limit = DefaultOperationsMax
	}

	agentID := did.AgentID.String()
	ops, err := s.audit.store.List(ctx, repository.OperationFilter{
		ChainID: did.ChainID,
		AgentID: &agentID,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list operations %s: %w", did, err)
	}
	return ops, nil
}

func lookupChain(chains *config.Chains, id int64) (config.Chain, error) {
	ch, err := chains.Get(id)
	if err != nil {
		return config.Chain{}, fmt.Errorf("%w: chain %d", domain.ErrUnsupportedChain, id)
	}
	return ch, nil
}

// withBundler points prepared calls at the chain's bundler unless the gateway named one.
func withBundler(p *domain.PreparedCalls, ch config.Chain) {
	if p != nil && p.BundlerURL == "" {
		p.BundlerURL = ch.BundlerURL
	}
}
