package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

const (
	alice = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
	bob   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	carol = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func interop(t *testing.T, chainID int64, addr string) string {
	t.Helper()
	s, err := chain.FormatEvmV1(chainID, addr)
	require.NoError(t, err)
	return s
}

func TestAssociation_IsActive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		name   string
		assoc  domain.Association
		active bool
	}{
		{"open ended", domain.Association{ValidAt: 1_600_000_000}, true},
		{"not yet valid", domain.Association{ValidAt: 1_800_000_000}, false},
		{"expired", domain.Association{ValidAt: 1, ValidUntil: 1_600_000_000}, false},
		{"within window", domain.Association{ValidAt: 1, ValidUntil: 1_800_000_000}, true},
		{"revoked", domain.Association{ValidAt: 1, RevokedAt: 1_650_000_000}, false},
		{"revocation scheduled", domain.Association{ValidAt: 1, RevokedAt: 1_750_000_000}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.active, tc.assoc.IsActive(now))
		})
	}
}

func TestResolveAssociation(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := &domain.Association{
		ID:        "0x01",
		Initiator: interop(t, 11155111, alice),
		Approver:  interop(t, 11155111, bob),
		ValidAt:   1,
	}

	view, err := domain.ResolveAssociation(a, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", now)
	require.NoError(t, err)
	assert.Equal(t, domain.AssociationInitiated, view.Direction)
	assert.Equal(t, bob, view.Counterparty)
	assert.Equal(t, int64(11155111), view.ApproverChainID)
	assert.True(t, view.Active)

	view, err = domain.ResolveAssociation(a, bob, now)
	require.NoError(t, err)
	assert.Equal(t, domain.AssociationApproved, view.Direction)
	assert.Equal(t, alice, view.Counterparty)

	_, err = domain.ResolveAssociation(a, carol, now)
	assert.ErrorIs(t, err, domain.ErrAssociationUnrelated)

	a.Approver = "0xdead"
	_, err = domain.ResolveAssociation(a, alice, now)
	assert.ErrorIs(t, err, chain.ErrInvalidInteropAddress)
}

func TestAssociationRecord_DigestKnownVector(t *testing.T) {
	rec, err := domain.AssociationRequest{
		ChainID:   11155111,
		Initiator: alice,
		Approver:  bob,
		ValidAt:   1_700_000_000,
	}.Record()
	require.NoError(t, err)

	assert.Equal(t, "0x0001000003aa36a714d8da6bf26964af9d7eed9e03e53415d37aa96045", chain.EncodeHex(rec.Initiator))
	assert.Equal(t, "0x0001000003aa36a7145aaeb6053f3e94c9b9a09f33669435e7ef1beaed", chain.EncodeHex(rec.Approver))
	assert.Equal(t, "0x188b6c69c1400731ef4d00aa74946aa34043f2e679c9cb7210cbe43cf08949c1", chain.EncodeHex(rec.Digest()))
}

func TestAssociationRecord_Digest(t *testing.T) {
	req := domain.AssociationRequest{
		ChainID:   11155111,
		Initiator: alice,
		Approver:  bob,
		ValidAt:   1_700_000_000,
	}
	rec, err := req.Record()
	require.NoError(t, err)
	assert.Equal(t, interop(t, 11155111, alice), chain.EncodeHex(rec.Initiator))

	d1 := rec.Digest()
	require.Len(t, d1, 32)
	assert.Equal(t, d1, rec.Digest())

	rec.ValidUntil = 1_800_000_000
	assert.NotEqual(t, d1, rec.Digest())

	req.Approver = "0x12"
	_, err = req.Record()
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)
}

func TestBuildRegistration(t *testing.T) {
	reg := domain.BuildRegistration(domain.CreateAgentParams{
		ChainID:   84532,
		Name:      "scout",
		Account:   alice,
		Endpoints: []domain.Endpoint{{Name: "A2A", Endpoint: "https://scout.example/.well-known/agent-card.json", Version: "0.3.0"}},
	})
	assert.Equal(t, domain.RegistrationTypeV1, reg.Type)
	require.Len(t, reg.Endpoints, 2)
	assert.Equal(t, "A2A", reg.Endpoints[0].Name)
	assert.Equal(t, domain.EndpointAgentWallet, reg.Endpoints[1].Name)
	assert.Equal(t, "eip155:84532:"+alice, reg.Endpoints[1].Endpoint)

	reg = domain.BuildRegistration(domain.CreateAgentParams{
		ChainID:   84532,
		Name:      "scout",
		Account:   alice,
		Endpoints: []domain.Endpoint{{Name: domain.EndpointAgentWallet, Endpoint: "eip155:1:" + bob}},
	})
	require.Len(t, reg.Endpoints, 1)
	assert.Equal(t, "eip155:1:"+bob, reg.Endpoints[0].Endpoint)
}

func TestSplitValidations(t *testing.T) {
	score := uint8(90)
	entries := []*domain.ValidationEntry{
		{RequestHash: "a"},
		{RequestHash: "b", Response: &score},
		{RequestHash: "c"},
	}
	pending, completed := domain.SplitValidations(entries)
	require.Len(t, pending, 2)
	require.Len(t, completed, 1)
	assert.Equal(t, "a", pending[0].RequestHash)
	assert.Equal(t, "c", pending[1].RequestHash)
	assert.Equal(t, domain.ValidationStatusCompleted, completed[0].Status())

	pending, completed = domain.SplitValidations(nil)
	assert.NotNil(t, pending)
	assert.NotNil(t, completed)
}

func TestSearchParams_Paging(t *testing.T) {
	p := domain.SearchParams{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.Offset())

	r := &domain.SearchResult{Page: 2, PageSize: 20, Total: 41}
	assert.True(t, r.HasMore())
	r.Total = 40
	assert.False(t, r.HasMore())
}
