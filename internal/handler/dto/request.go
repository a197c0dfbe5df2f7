package dto

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/service"
)

// Numeric request fields are chain.BigInt so clients may send either JSON
// numbers or decimal strings, as the dashboard does for uint256 values.

// EndpointRequest is an advertised service endpoint.
type EndpointRequest struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Version  string `json:"version,omitempty"`
}

// CreateAgentRequest represents the request body for POST /api/agents/create*.
type CreateAgentRequest struct {
	ChainID        chain.BigInt      `json:"chainId"`
	Name           string            `json:"name"`
	Account        string            `json:"account"`
	Description    string            `json:"description,omitempty"`
	Image          string            `json:"image,omitempty"`
	Endpoints      []EndpointRequest `json:"endpoints,omitempty"`
	SupportedTrust []string          `json:"supportedTrust,omitempty"`
}

// ToInput converts the request to service input.
func (r CreateAgentRequest) ToInput() (service.CreateAgentInput, error) {
	chainID, err := int64Field("chainId", r.ChainID)
	if err != nil {
		return service.CreateAgentInput{}, err
	}
	in := service.CreateAgentInput{
		ChainID:        chainID,
		Name:           r.Name,
		Account:        strings.TrimSpace(r.Account),
		Description:    r.Description,
		Image:          r.Image,
		SupportedTrust: r.SupportedTrust,
	}
	for _, ep := range r.Endpoints {
		in.Endpoints = append(in.Endpoints, service.EndpointInput(ep))
	}
	return in, nil
}

// UpdateRegistrationRequest represents the request body for PUT /api/agents/{did8004}/registration.
type UpdateRegistrationRequest struct {
	Registration json.RawMessage `json:"registration"`
	Mode         string          `json:"mode,omitempty"`
}

// FeedbackRequest represents the request body for POST /api/agents/{did8004}/feedback.
type FeedbackRequest struct {
	ClientAddress string       `json:"clientAddress"`
	Score         chain.BigInt `json:"score"`
	Tag1          string       `json:"tag1,omitempty"`
	Tag2          string       `json:"tag2,omitempty"`
	FeedbackURI   string       `json:"feedbackUri,omitempty"`
	FeedbackHash  string       `json:"feedbackHash,omitempty"`
	FeedbackAuth  string       `json:"feedbackAuth"`
}

// ToInput converts the request to service input. A missing score stays nil.
func (r FeedbackRequest) ToInput() (service.FeedbackInput, error) {
	in := service.FeedbackInput{
		ClientAddress: strings.TrimSpace(r.ClientAddress),
		Tag1:          r.Tag1,
		Tag2:          r.Tag2,
		FeedbackURI:   r.FeedbackURI,
		FeedbackHash:  r.FeedbackHash,
		FeedbackAuth:  r.FeedbackAuth,
	}
	if !r.Score.IsNil() {
		if !r.Score.IsInt64() || r.Score.Int64() > domain.MaxFeedbackScore {
			return in, domain.BadRequest("score must be between 0 and 100", []service.FieldError{{Field: "score", Rule: "lte", Param: "100"}})
		}
		score := int(r.Score.Int64())
		in.Score = &score
	}
	return in, nil
}

// ValidationRequestRequest represents the request body for POST /api/agents/{did8004}/validations/request.
type ValidationRequestRequest struct {
	ValidatorAddress string `json:"validatorAddress"`
	RequestURI       string `json:"requestUri"`
	RequestHash      string `json:"requestHash,omitempty"`
}

// ToInput converts the request to service input.
func (r ValidationRequestRequest) ToInput() service.ValidationRequestInput {
	return service.ValidationRequestInput{
		ValidatorAddress: strings.TrimSpace(r.ValidatorAddress),
		RequestURI:       strings.TrimSpace(r.RequestURI),
		RequestHash:      r.RequestHash,
	}
}

// SearchRequest represents the POST body of /api/agents/search.
type SearchRequest struct {
	Query          string        `json:"query,omitempty"`
	ChainID        *chain.BigInt `json:"chainId,omitempty"`
	Owner          *string       `json:"owner,omitempty"`
	Page           chain.BigInt  `json:"page"`
	PageSize       chain.BigInt  `json:"pageSize"`
	OrderBy        string        `json:"orderBy,omitempty"`
	OrderDirection string        `json:"orderDirection,omitempty"`
}

// ToInput converts the request to service input.
func (r SearchRequest) ToInput() (service.SearchInput, error) {
	in := service.SearchInput{
		Query:          r.Query,
		Owner:          r.Owner,
		OrderBy:        r.OrderBy,
		OrderDirection: r.OrderDirection,
	}
	if r.ChainID != nil && !r.ChainID.IsNil() {
		id, err := int64Field("chainId", *r.ChainID)
		if err != nil {
			return in, err
		}
		in.ChainID = &id
	}
	page, err := intField("page", r.Page)
	if err != nil {
		return in, err
	}
	size, err := intField("pageSize", r.PageSize)
	if err != nil {
		return in, err
	}
	in.Page, in.PageSize = page, size
	return in, nil
}

// SearchRequestFromQuery reads GET /api/agents/search parameters.
func SearchRequestFromQuery(q url.Values) SearchRequest {
	r := SearchRequest{
		Query:          q.Get("query"),
		OrderBy:        q.Get("orderBy"),
		OrderDirection: q.Get("orderDirection"),
		Page:           queryBigInt(q, "page"),
		PageSize:       queryBigInt(q, "pageSize"),
	}
	if r.Query == "" {
		r.Query = q.Get("q")
	}
	if v := q.Get("chainId"); v != "" {
		id := queryBigInt(q, "chainId")
		r.ChainID = &id
	}
	if v := q.Get("owner"); v != "" {
		r.Owner = &v
	}
	return r
}

// SemanticSearchRequest represents the POST body of /api/agents/search/semantic.
type SemanticSearchRequest struct {
	Text     string        `json:"text"`
	TopK     chain.BigInt  `json:"topK"`
	MinScore *float64      `json:"minScore,omitempty"`
	ChainID  *chain.BigInt `json:"chainId,omitempty"`
}

// ToInput converts the request to service input.
func (r SemanticSearchRequest) ToInput() (service.SemanticSearchInput, error) {
	in := service.SemanticSearchInput{Text: r.Text, MinScore: r.MinScore}
	topK, err := intField("topK", r.TopK)
	if err != nil {
		return in, err
	}
	in.TopK = topK
	if r.ChainID != nil && !r.ChainID.IsNil() {
		id, err := int64Field("chainId", *r.ChainID)
		if err != nil {
			return in, err
		}
		in.ChainID = &id
	}
	return in, nil
}

// SemanticSearchRequestFromQuery reads GET /api/agents/search/semantic parameters.
func SemanticSearchRequestFromQuery(q url.Values) (SemanticSearchRequest, error) {
	r := SemanticSearchRequest{
		Text: q.Get("text"),
		TopK: queryBigInt(q, "topK"),
	}
	if r.Text == "" {
		r.Text = q.Get("q")
	}
	if v := q.Get("minScore"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) {
			return r, domain.BadRequest("minScore must be a number", []service.FieldError{{Field: "minScore", Rule: "number"}})
		}
		r.MinScore = &f
	}
	if v := q.Get("chainId"); v != "" {
		id := queryBigInt(q, "chainId")
		r.ChainID = &id
	}
	return r, nil
}

// AssociationRequestRequest represents the request body for POST /api/associations/request.
type AssociationRequestRequest struct {
	ChainID     chain.BigInt  `json:"chainId"`
	Initiator   string        `json:"initiator"`
	Approver    string        `json:"approver"`
	ValidAt     *chain.BigInt `json:"validAt,omitempty"`
	ValidUntil  chain.BigInt  `json:"validUntil"`
	InterfaceID string        `json:"interfaceId,omitempty"`
	Data        string        `json:"data,omitempty"`
}

// ToInput converts the request to service input.
func (r AssociationRequestRequest) ToInput() (service.AssociationRequestInput, error) {
	chainID, err := int64Field("chainId", r.ChainID)
	if err != nil {
		return service.AssociationRequestInput{}, err
	}
	in := service.AssociationRequestInput{
		ChainID:     chainID,
		Initiator:   strings.TrimSpace(r.Initiator),
		Approver:    strings.TrimSpace(r.Approver),
		InterfaceID: r.InterfaceID,
		Data:        r.Data,
	}
	if r.ValidAt != nil && !r.ValidAt.IsNil() {
		v, err := uint64Field("validAt", *r.ValidAt)
		if err != nil {
			return in, err
		}
		in.ValidAt = &v
	}
	if in.ValidUntil, err = uint64Field("validUntil", r.ValidUntil); err != nil {
		return in, err
	}
	return in, nil
}

// RevokeAssociationRequest represents the request body for POST /api/associations/revoke.
type RevokeAssociationRequest struct {
	ChainID       chain.BigInt `json:"chainId"`
	AssociationID string       `json:"associationId"`
	Account       string       `json:"account"`
	RevokedAt     chain.BigInt `json:"revokedAt"`
}

// ToInput converts the request to service input.
func (r RevokeAssociationRequest) ToInput() (service.RevokeAssociationInput, error) {
	chainID, err := int64Field("chainId", r.ChainID)
	if err != nil {
		return service.RevokeAssociationInput{}, err
	}
	revokedAt, err := uint64Field("revokedAt", r.RevokedAt)
	if err != nil {
		return service.RevokeAssociationInput{}, err
	}
	return service.RevokeAssociationInput{
		ChainID:       chainID,
		AssociationID: strings.TrimSpace(r.AssociationID),
		Account:       strings.TrimSpace(r.Account),
		RevokedAt:     revokedAt,
	}, nil
}

// AssociationQueryFromValues reads the account and chainId query parameters.
func AssociationQueryFromValues(q url.Values) (service.AssociationQuery, error) {
	chainID, err := int64Field("chainId", queryBigInt(q, "chainId"))
	if err != nil {
		return service.AssociationQuery{}, err
	}
	return service.AssociationQuery{
		Account: strings.TrimSpace(q.Get("account")),
		ChainID: chainID,
	}, nil
}

// queryBigInt parses a query parameter; unparsable values come back as an
// invalid marker that the field converters reject.
func queryBigInt(q url.Values, key string) chain.BigInt {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return chain.BigInt{}
	}
	b, err := chain.ParseBigInt(v)
	if err != nil {
		return chain.NewBigInt(-1)
	}
	return b
}

func numberError(field, rule string) error {
	return domain.BadRequest(field+" must be a non-negative integer", []service.FieldError{{Field: field, Rule: rule}})
}

// int64Field converts b, treating a missing value as zero.
func int64Field(field string, b chain.BigInt) (int64, error) {
	if b.IsNil() {
		return 0, nil
	}
	if b.Sign() < 0 || !b.IsInt64() {
		return 0, numberError(field, "int64")
	}
	return b.Int64(), nil
}

func intField(field string, b chain.BigInt) (int, error) {
	v, err := int64Field(field, b)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, numberError(field, "int32")
	}
	return int(v), nil
}

func uint64Field(field string, b chain.BigInt) (uint64, error) {
	if b.IsNil() {
		return 0, nil
	}
	if b.Sign() < 0 || !b.IsUint64() {
		return 0, numberError(field, "uint64")
	}
	return b.Uint64(), nil
}
