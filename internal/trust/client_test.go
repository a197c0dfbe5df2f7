package trust_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/trust"
)

const account = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

func newClient(t *testing.T, h http.HandlerFunc) *trust.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return trust.NewHTTPClient(trust.Options{
		IndexerURL:    srv.URL + "/graphql",
		GatewayURL:    srv.URL + "/",
		APIKey:        "secret",
		MaxTries:      3,
		RetryInterval: time.Millisecond,
	})
}

func mustDID(t *testing.T, s string) chain.DID8004 {
	t.Helper()
	did, err := chain.ParseDID8004(s)
	require.NoError(t, err)
	return did
}

type gqlBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func TestGetAgent(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body gqlBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "agent(chainId: $chainId, agentId: $agentId)")
		assert.Equal(t, float64(11155111), body.Variables["chainId"])
		assert.Equal(t, "42", body.Variables["agentId"])

		_, _ = w.Write([]byte(`{"data": {"agent": {
			"chainId": 11155111, "agentId": "42", "agentName": "scout",
			"agentAccount": "` + account + `", "agentOwner": "` + account + `",
			"tokenUri": "ipfs://cid", "endpoints": [{"name": "A2A", "endpoint": "https://a2a.example", "version": "0.3.0"}],
			"createdAtBlock": "9000000", "createdAtTime": 1700000000
		}}}`))
	})

	agent, err := c.GetAgent(context.Background(), mustDID(t, "did:8004:11155111:42"))
	require.NoError(t, err)
	assert.Equal(t, "scout", agent.Name)
	assert.Equal(t, "42", agent.AgentID.String())
	assert.Equal(t, uint64(9_000_000), agent.CreatedAtBlock)
	assert.Equal(t, int64(1_700_000_000), agent.CreatedAt.Unix())
	require.Len(t, agent.Endpoints, 1)
	assert.Equal(t, "did:8004:11155111:42", agent.DID())
}

func TestGetAgent_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"agent": null}}`))
	})

	_, err := c.GetAgent(context.Background(), mustDID(t, "did:8004:1:1"))
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestQuery_GraphQLErrors(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": null, "errors": [{"message": "unknown field"}]}`))
	})

	_, err := c.ListValidations(context.Background(), mustDID(t, "did:8004:1:1"))
	require.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data": {"feedbackSummary": {"count": "3", "averageScore": 87.5}}}`))
	})

	summary, err := c.GetReputationSummary(context.Background(), mustDID(t, "did:8004:1:1"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, uint64(3), summary.Count)
	assert.InDelta(t, 87.5, summary.AverageScore, 0.0001)
}

func TestDo_GivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetReputationSummary(context.Background(), mustDID(t, "did:8004:1:1"))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetReputationSummary_Missing(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"feedbackSummary": null}}`))
	})

	summary, err := c.GetReputationSummary(context.Background(), mustDID(t, "did:8004:1:1"))
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestCreateAgent_AA(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/agents", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "aa", body["mode"])
		reg := body["registration"].(map[string]any)
		assert.Equal(t, "scout", reg["name"])

		_, _ = w.Write([]byte(`{"chainId": 84532, "calls": [{"to": "0x8004a6090Cd10A7288092483047B097295Fb8847", "data": "0xabcdef"}]}`))
	})

	p := domain.CreateAgentParams{ChainID: 84532, Name: "scout", Account: account, Mode: domain.CreateModeAA}
	result, err := c.CreateAgent(context.Background(), p, domain.BuildRegistration(p))
	require.NoError(t, err)
	require.NotNil(t, result.Prepared)
	require.Len(t, result.Prepared.Calls, 1)
	assert.Equal(t, "0", result.Prepared.Calls[0].Value.String())
	assert.Equal(t, int64(84532), result.Prepared.ChainID)
}

func TestCreateAgent_ServerNeedsTxHash(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	p := domain.CreateAgentParams{ChainID: 84532, Name: "scout", Account: account, Mode: domain.CreateModeServer}
	_, err := c.CreateAgent(context.Background(), p, domain.BuildRegistration(p))
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestGateway_ValidationError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": {"message": "score out of range"}, "details": {"field": "score"}}`))
	})

	_, err := c.PrepareFeedback(context.Background(), domain.FeedbackRequest{DID: mustDID(t, "did:8004:1:1")})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "score out of range", apiErr.Message)
	assert.Equal(t, map[string]any{"field": "score"}, apiErr.Details)
}

func TestGateway_Unauthorized(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.PrepareValidationRequest(context.Background(), domain.ValidationRequest{DID: mustDID(t, "did:8004:1:1")})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestRevokeAssociation_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/associations/revoke", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "no such association"}`))
	})

	_, err := c.RevokeAssociation(context.Background(), domain.RevokeAssociationRequest{ChainID: 1, AssociationID: "0x01"})
	require.ErrorIs(t, err, domain.ErrAssociationNotFound)
	assert.Contains(t, err.Error(), "no such association")
}

func TestRequestFeedbackAuth(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/agents/11155111/7/feedback-auth", r.URL.Path)
		_, _ = w.Write([]byte(`{"signature": "0xsig", "signerAddress": "` + account + `", "indexLimit": "10", "expiry": "1700003600"}`))
	})

	auth, err := c.RequestFeedbackAuth(context.Background(), domain.FeedbackAuthRequest{
		DID:           mustDID(t, "did:8004:11155111:7"),
		ClientAddress: account,
		IndexLimit:    10,
		ExpirySeconds: 3600,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xsig", auth.Signature)
	assert.Equal(t, uint64(10), auth.IndexLimit)
	assert.Equal(t, int64(1_700_003_600), auth.Expiry.Unix())
}

func TestListAssociations(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"associations": [{
			"associationId": "0xaa", "initiator": "0x01", "approver": "0x02",
			"validAt": "1700000000", "validUntil": 0, "revokedAt": "0x10"
		}]}}`))
	})

	list, err := c.ListAssociations(context.Background(), 1, account)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(1_700_000_000), list[0].ValidAt)
	assert.Equal(t, uint64(0), list[0].ValidUntil)
	assert.Equal(t, uint64(16), list[0].RevokedAt)
}

func TestSearchAgents(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body gqlBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(20), body.Variables["skip"])
		assert.Equal(t, float64(10), body.Variables["first"])
		where := body.Variables["where"].(map[string]any)
		assert.Equal(t, "scout", where["query"])

		_, _ = w.Write([]byte(`{"data": {"searchAgents": {"total": 21, "agents": [{"chainId": 1, "agentId": "5", "agentName": "scout"}]}}}`))
	})

	res, err := c.SearchAgents(context.Background(), domain.SearchParams{Query: "scout", Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 21, res.Total)
	require.Len(t, res.Agents, 1)
	assert.False(t, res.HasMore())
}

func TestCreateAgent_ServerModeIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"txHash": "0xabc"}`))
	})

	p := domain.CreateAgentParams{ChainID: 84532, Name: "scout", Account: account, Mode: domain.CreateModeServer}
	_, err := c.CreateAgent(context.Background(), p, domain.BuildRegistration(p))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load(), "a relayed create must be sent once")
}

func TestCreateAgent_AAModeIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"calls": [{"to": "0x8004a6090Cd10A7288092483047B097295Fb8847", "data": "0x01"}]}`))
	})

	p := domain.CreateAgentParams{ChainID: 84532, Name: "scout", Account: account, Mode: domain.CreateModeAA}
	result, err := c.CreateAgent(context.Background(), p, domain.BuildRegistration(p))
	require.NoError(t, err)
	require.NotNil(t, result.Prepared)
	assert.Equal(t, int32(2), calls.Load())
}

func TestUpdateRegistration_ServerModeIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	})

	_, err := c.UpdateRegistration(context.Background(), domain.UpdateRegistrationParams{
		DID:          mustDID(t, "did:8004:1:1"),
		Registration: json.RawMessage(`{"name":"scout"}`),
		Mode:         domain.CreateModeServer,
	})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRevokeAssociation_IsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.RevokeAssociation(context.Background(), domain.RevokeAssociationRequest{ChainID: 1, AssociationID: "0x01"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}
