package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/repository"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateAgent(ctx context.Context, p domain.CreateAgentParams, reg domain.Registration) (*domain.CreateAgentResult, error) {
	args := m.Called(ctx, p, reg)
	res, _ := args.Get(0).(*domain.CreateAgentResult)
	return res, args.Error(1)
}

func (m *mockClient) UpdateRegistration(ctx context.Context, p domain.UpdateRegistrationParams) (*domain.UpdateRegistrationResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*domain.UpdateRegistrationResult)
	return res, args.Error(1)
}

func (m *mockClient) GetAgent(ctx context.Context, did chain.DID8004) (*domain.Agent, error) {
	args := m.Called(ctx, did)
	res, _ := args.Get(0).(*domain.Agent)
	return res, args.Error(1)
}

func (m *mockClient) SearchAgents(ctx context.Context, p domain.SearchParams) (*domain.SearchResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*domain.SearchResult)
	return res, args.Error(1)
}

func (m *mockClient) SemanticSearch(ctx context.Context, q domain.SemanticQuery) ([]*domain.SemanticMatch, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).([]*domain.SemanticMatch)
	return res, args.Error(1)
}

func (m *mockClient) GetReputationSummary(ctx context.Context, did chain.DID8004) (*domain.FeedbackSummary, error) {
	args := m.Called(ctx, did)
	res, _ := args.Get(0).(*domain.FeedbackSummary)
	return res, args.Error(1)
}

func (m *mockClient) RequestFeedbackAuth(ctx context.Context, req domain.FeedbackAuthRequest) (*domain.FeedbackAuth, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.FeedbackAuth)
	return res, args.Error(1)
}

func (m *mockClient) PrepareFeedback(ctx context.Context, req domain.FeedbackRequest) (*domain.PreparedCalls, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.PreparedCalls)
	return res, args.Error(1)
}

func (m *mockClient) ListValidations(ctx context.Context, did chain.DID8004) ([]*domain.ValidationEntry, error) {
	args := m.Called(ctx, did)
	res, _ := args.Get(0).([]*domain.ValidationEntry)
	return res, args.Error(1)
}

func (m *mockClient) PrepareValidationRequest(ctx context.Context, req domain.ValidationRequest) (*domain.PreparedCalls, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.PreparedCalls)
	return res, args.Error(1)
}

func (m *mockClient) ListAssociations(ctx context.Context, chainID int64, account string) ([]*domain.Association, error) {
	args := m.Called(ctx, chainID, account)
	res, _ := args.Get(0).([]*domain.Association)
	return res, args.Error(1)
}

func (m *mockClient) PrepareAssociationRequest(ctx context.Context, req domain.AssociationRequest, rec *domain.AssociationRecord) (*domain.PreparedCalls, error) {
	args := m.Called(ctx, req, rec)
	res, _ := args.Get(0).(*domain.PreparedCalls)
	return res, args.Error(1)
}

func (m *mockClient) RevokeAssociation(ctx context.Context, req domain.RevokeAssociationRequest) (*domain.RevokeAssociationResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.RevokeAssociationResult)
	return res, args.Error(1)
}

// memoryStore is an in-process OperationStore.
type memoryStore struct {
	mu   sync.Mutex
	ops  []*domain.Operation
	fail bool
}

func (s *memoryStore) Create(_ context.Context, op *domain.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection refused")
	}
	op.ID = fmt.Sprintf("op-%d", len(s.ops)+1)
	s.ops = append(s.ops, op)
	return nil
}

func (s *memoryStore) List(_ context.Context, f repository.OperationFilter) ([]*domain.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Operation{}
	for i := len(s.ops) - 1; i >= 0; i-- {
		op := s.ops[i]
		if op.ChainID != f.ChainID {
			continue
		}
		if f.AgentID != nil && (op.AgentID == nil || *op.AgentID != *f.AgentID) {
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

func (s *memoryStore) recorded() []*domain.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Operation(nil), s.ops...)
}
