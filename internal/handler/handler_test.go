package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/cache"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/config"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/handler"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/middleware"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/service"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/trust"
)

const (
	sepolia   = int64(11155111)
	vitalik   = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"
	vitalikCS = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
	apiKey    = "test-key"
)

// stubClient answers the calls exercised here; anything else panics through
// the embedded nil interface.
type stubClient struct {
	trust.Client

	agent      *domain.Agent
	agentErr   error
	summary    *domain.FeedbackSummary
	summaryErr error
	created    *domain.CreateAgentResult
	search     *domain.SearchResult
	assocs     map[string][]*domain.Association
	assocErr   map[string]error
}

func (c *stubClient) CreateAgent(_ context.Context, p domain.CreateAgentParams, _ domain.Registration) (*domain.CreateAgentResult, error) {
	if c.created == nil {
		return nil, fmt.Errorf("%w: gateway returned 500", domain.ErrUpstream)
	}
	res := *c.created
	res.ChainID = p.ChainID
	return &res, nil
}

func (c *stubClient) GetAgent(_ context.Context, _ chain.DID8004) (*domain.Agent, error) {
	return c.agent, c.agentErr
}

func (c *stubClient) GetReputationSummary(_ context.Context, _ chain.DID8004) (*domain.FeedbackSummary, error) {
	return c.summary, c.summaryErr
}

func (c *stubClient) SearchAgents(_ context.Context, p domain.SearchParams) (*domain.SearchResult, error) {
	res := *c.search
	res.Page, res.PageSize = p.Page, p.PageSize
	return &res, nil
}

func (c *stubClient) ListAssociations(_ context.Context, _ int64, account string) ([]*domain.Association, error) {
	if err := c.assocErr[account]; err != nil {
		return nil, err
	}
	return c.assocs[account], nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type HandlerTestSuite struct {
	suite.Suite
	client *stubClient
	db     *pinger
	mux    *http.ServeMux
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	chains, err := config.NewChains([]config.Chain{{ID: sepolia, Name: "sepolia", BundlerURL: "https://bundler.example/sepolia"}})
	s.Require().NoError(err)

	s.client = &stubClient{
		agent: &domain.Agent{
			ChainID: sepolia,
			AgentID: chain.NewBigInt(42),
			Name:    "scout",
			Account: vitalikCS,
			Owner:   vitalikCS,
		},
		summary: &domain.FeedbackSummary{Count: 3, AverageScore: 87.5},
		search:  &domain.SearchResult{Agents: []*domain.Agent{}, Total: 0},
	}
	s.db = &pinger{}

	loader := cache.NewLoader(cache.NewMemoryCache(), "test", 0)
	h := handler.New(handler.Deps{
		Agents:       service.NewAgentService(s.client, chains, loader, nil),
		Associations: service.NewAssociationService(s.client, chains, nil),
		DB:           s.db,
		Auth:         middleware.NewAPIKeyAuth([]string{apiKey}),
	})
	s.mux = http.NewServeMux()
	h.RegisterRoutes(s.mux)
}

func (s *HandlerTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

func (s *HandlerTestSuite) decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (s *HandlerTestSuite) TestHealthz() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())

	s.db.err = errors.New("connection refused")
	w = s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("DATABASE_UNAVAILABLE", s.decodeError(w).Error.Code)
}

func (s *HandlerTestSuite) TestGetAgent() {
	w := s.do(http.MethodGet, "/api/agents/did:8004:11155111:42", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Agent struct {
			DID     string `json:"did8004"`
			AgentID string `json:"agentId"`
			Name    string `json:"agentName"`
		} `json:"agent"`
		FeedbackSummary *struct {
			Count        uint64  `json:"count"`
			AverageScore float64 `json:"averageScore"`
		} `json:"feedbackSummary"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("did:8004:11155111:42", body.Agent.DID)
	s.Equal("42", body.Agent.AgentID, "agent ids travel as decimal strings")
	s.Equal("scout", body.Agent.Name)
	s.Require().NotNil(body.FeedbackSummary)
	s.Equal(uint64(3), body.FeedbackSummary.Count)
}

func (s *HandlerTestSuite) TestGetAgent_EncodedDID() {
	w := s.do(http.MethodGet, "/api/agents/did%253A8004%253A11155111%253A42", "", nil)
	s.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *HandlerTestSuite) TestGetAgent_SummaryFailureIsNull() {
	s.client.summaryErr = fmt.Errorf("%w: indexer timeout", domain.ErrUpstream)

	w := s.do(http.MethodGet, "/api/agents/did:8004:11155111:42", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("null", string(body["feedbackSummary"]))
}

func (s *HandlerTestSuite) TestGetAgent_Errors() {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		code   string
	}{
		{"malformed did", "/api/agents/did:8004:abc:1", nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unsupported chain", "/api/agents/did:8004:10:1", nil, http.StatusBadRequest, "UNSUPPORTED_CHAIN"},
		{"not found", "/api/agents/did:8004:11155111:7", domain.ErrAgentNotFound, http.StatusNotFound, "AGENT_NOT_FOUND"},
		{"upstream", "/api/agents/did:8004:11155111:7", fmt.Errorf("%w: status 500", domain.ErrUpstream), http.StatusBadGateway, "UPSTREAM_ERROR"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.client.agentErr = tt.err
			w := s.do(http.MethodGet, tt.path, "", nil)
			s.Equal(tt.status, w.Code, w.Body.String())
			s.Equal(tt.code, s.decodeError(w).Error.Code)
		})
	}
}

func (s *HandlerTestSuite) TestCreateAgent_RequiresAPIKey() {
	body := map[string]any{"chainId": sepolia, "name": "scout", "account": vitalik}

	w := s.do(http.MethodPost, "/api/agents/create", "", body)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", s.decodeError(w).Error.Code)

	w = s.do(http.MethodPost, "/api/agents/create", "wrong", body)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestCreateAgent() {
	s.client.created = &domain.CreateAgentResult{AgentID: chain.NewBigInt(42), TxHash: "0xabc"}

	w := s.do(http.MethodPost, "/api/agents/create", apiKey,
		map[string]any{"chainId": "11155111", "name": "scout", "account": vitalik})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Success bool   `json:"success"`
		DID     string `json:"did8004"`
		TxHash  string `json:"txHash"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.True(body.Success)
	s.Equal("did:8004:11155111:42", body.DID)
	s.Equal("0xabc", body.TxHash)
}

func (s *HandlerTestSuite) TestCreateAgent_InvalidAddress() {
	w := s.do(http.MethodPost, "/api/agents/create", apiKey,
		map[string]any{"chainId": sepolia, "name": "scout", "account": "vitalik.eth"})
	s.Require().Equal(http.StatusBadRequest, w.Code)

	body := s.decodeError(w)
	s.Equal("INVALID_REQUEST", body.Error.Code)
	s.Require().NotEmpty(body.Error.Details)

	var field service.FieldError
	s.Require().NoError(json.Unmarshal(body.Error.Details[0], &field))
	s.Equal("account", field.Field)
}

func (s *HandlerTestSuite) TestCreateAgent_UpstreamFailure() {
	w := s.do(http.MethodPost, "/api/agents/create-direct", apiKey,
		map[string]any{"chainId": sepolia, "name": "scout", "account": vitalik})
	s.Equal(http.StatusBadGateway, w.Code)
}

func (s *HandlerTestSuite) TestMalformedJSON() {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", `{"name":`},
		{"empty", ``},
		{"trailing document", `{"name":"a"} {"name":"b"}`},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/api/agents/create", apiKey, tt.body)
			s.Equal(http.StatusBadRequest, w.Code)
			s.Equal("INVALID_JSON", s.decodeError(w).Error.Code)
		})
	}
}

func (s *HandlerTestSuite) TestSearch_QueryDefaults() {
	w := s.do(http.MethodGet, "/api/agents/search?query=scout", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Agents   []json.RawMessage `json:"agents"`
		Page     int               `json:"page"`
		PageSize int               `json:"pageSize"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.NotNil(body.Agents)
	s.Equal(1, body.Page)
	s.Equal(service.DefaultPageSize, body.PageSize)
}

func (s *HandlerTestSuite) TestSearch_InvalidPageSize() {
	w := s.do(http.MethodPost, "/api/agents/search", "", map[string]any{"pageSize": 500})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestTrustGraph_BestEffort() {
	other := "0x0000000000000000000000000000000000000002"
	broken := "0x0000000000000000000000000000000000000003"
	ref := func(addr string) string {
		v, err := chain.FormatEvmV1(sepolia, addr)
		s.Require().NoError(err)
		return v
	}

	s.client.assocs = map[string][]*domain.Association{
		vitalik: {
			{ID: "0xa1", Initiator: ref(vitalik), Approver: ref(other)},
			{ID: "0xa2", Initiator: ref(broken), Approver: ref(vitalik)},
		},
		other: {{ID: "0xa1", Initiator: ref(vitalik), Approver: ref(other)}},
	}
	s.client.assocErr = map[string]error{broken: fmt.Errorf("%w: timeout", domain.ErrUpstreamUnavailable)}

	w := s.do(http.MethodGet, "/api/associations/graph?account="+vitalikCS+"&chainId=11155111", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Nodes  []json.RawMessage `json:"nodes"`
		Edges  []json.RawMessage `json:"edges"`
		Failed int               `json:"failedLookups"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Len(body.Nodes, 3)
	s.Len(body.Edges, 2)
	s.Equal(1, body.Failed)
}

func (s *HandlerTestSuite) TestAssociations_MissingChain() {
	w := s.do(http.MethodGet, "/api/associations?account="+vitalik, "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
