package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/database"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/repository"
)

type OperationRepositoryTestSuite struct {
	suite.Suite
	pool *pgxpool.Pool
	repo *repository.OperationRepository
}

func (s *OperationRepositoryTestSuite) SetupSuite() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		s.T().Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL)
	s.Require().NoError(err)
	s.pool = db.Pool()

	_, err = database.RunMigrations(ctx, s.pool)
	s.Require().NoError(err)

	s.repo = repository.NewOperationRepository(s.pool)
}

func (s *OperationRepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE agent_operations")
	s.Require().NoError(err)
}

func (s *OperationRepositoryTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func TestOperationRepositorySuite(t *testing.T) {
	suite.Run(t, new(OperationRepositoryTestSuite))
}

func strPtr(s string) *string { return &s }

func (s *OperationRepositoryTestSuite) TestCreateAndListByAgent() {
	ctx := context.Background()

	op := &domain.Operation{
		Kind:    domain.OperationAgentCreated,
		Status:  domain.OperationStatusSubmitted,
		ChainID: 11155111,
		AgentID: strPtr("42"),
		Account: strPtr("0xD8dA6BF26964aF9D7eEd9e03E53415D37aA96045"),
		TxHash:  strPtr("0xabc"),
		Payload: map[string]any{"name": "scout"},
	}
	s.Require().NoError(s.repo.Create(ctx, op))
	s.NotEmpty(op.ID)
	s.False(op.CreatedAt.IsZero())

	other := &domain.Operation{
		Kind:    domain.OperationFeedbackPrepared,
		Status:  domain.OperationStatusPrepared,
		ChainID: 11155111,
		AgentID: strPtr("43"),
	}
	s.Require().NoError(s.repo.Create(ctx, other))

	ops, err := s.repo.List(ctx, repository.OperationFilter{ChainID: 11155111, AgentID: strPtr("42")})
	s.Require().NoError(err)
	s.Require().Len(ops, 1)
	s.Equal(domain.OperationAgentCreated, ops[0].Kind)
	s.Equal("scout", ops[0].Payload["name"])
	s.Equal("0xd8da6bf26964af9d7eed9e03e53415d37aa96045", *ops[0].Account)
}

func (s *OperationRepositoryTestSuite) TestListByAccount_CaseInsensitive() {
	ctx := context.Background()

	for _, kind := range []domain.OperationKind{domain.OperationAssociationPrepared, domain.OperationAssociationRevoked} {
		s.Require().NoError(s.repo.Create(ctx, &domain.Operation{
			Kind:    kind,
			Status:  domain.OperationStatusPrepared,
			ChainID: 84532,
			Account: strPtr("0xd8da6bf26964af9d7eed9e03e53415d37aa96045"),
		}))
	}

	ops, err := s.repo.List(ctx, repository.OperationFilter{
		ChainID: 84532,
		Account: strPtr("0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045"),
	})
	s.Require().NoError(err)
	s.Len(ops, 2)
	s.Equal(domain.OperationAssociationRevoked, ops[0].Kind, "newest first")

	ops, err = s.repo.List(ctx, repository.OperationFilter{
		ChainID: 84532,
		Account: strPtr("0xd8da6bf26964af9d7eed9e03e53415d37aa96045"),
		Kinds:   []domain.OperationKind{domain.OperationAssociationPrepared},
	})
	s.Require().NoError(err)
	s.Len(ops, 1)
}

func (s *OperationRepositoryTestSuite) TestList_Empty() {
	ops, err := s.repo.List(context.Background(), repository.OperationFilter{ChainID: 1, AgentID: strPtr("1")})
	s.Require().NoError(err)
	s.NotNil(ops)
	s.Empty(ops)
}
