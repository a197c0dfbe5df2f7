package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

// Default and maximum page sizes for operation listings.
const (
	DefaultOperationsLimit = 50
	MaxOperationsLimit     = 200
)

// operationColumns is the shared list of columns for operation queries.
var operationColumns = []string{
	"id", "kind", "status", "chain_id", "agent_id", "account", "tx_hash", "payload", "created_at",
}

// OperationRepository handles database operations for the audit log.
type OperationRepository struct {
	pool *pgxpool.Pool
}

// NewOperationRepository creates a new OperationRepository.
func NewOperationRepository(pool *pgxpool.Pool) *OperationRepository {
	return &OperationRepository{pool: pool}
}

// OperationFilter selects audit log entries. Exactly one of AgentID or Account is expected.
type OperationFilter struct {
	ChainID int64
	AgentID *string
	Account *string
	Kinds   []domain.OperationKind
	Limit   int
}

// Create inserts op and fills its ID and CreatedAt.
func (r *OperationRepository) Create(ctx context.Context, op *domain.Operation) error {
	payload := op.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode operation payload: %w", err)
	}

	var account *string
	if op.Account != nil {
		lower := strings.ToLower(*op.Account)
		account = &lower
	}

	query, args, err := psql.
		Insert("agent_operations").
		Columns("kind", "status", "chain_id", "agent_id", "account", "tx_hash", "payload").
		Values(op.Kind, op.Status, op.ChainID, op.AgentID, account, op.TxHash, raw).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build Create query for operation: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&op.ID, &op.CreatedAt); err != nil {
		return fmt.Errorf("create operation: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (r *OperationRepository) List(ctx context.Context, f OperationFilter) ([]*domain.Operation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultOperationsLimit
	}
	if limit > MaxOperationsLimit {
		limit = MaxOperationsLimit
	}

	qb := psql.Select(operationColumns...).
		From("agent_operations").
		Where(sq.Eq{"chain_id": f.ChainID})
	if f.AgentID != nil {
		qb = qb.Where(sq.Eq{"agent_id": *f.AgentID})
	}
	if f.Account != nil {
		qb = qb.Where(sq.Eq{"lower(account)": strings.ToLower(*f.Account)})
	}
	if len(f.Kinds) > 0 {
		qb = qb.Where(sq.Eq{"kind": f.Kinds})
	}

	query, args, err := qb.
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build List query for operations: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	return scanOperations(rows)
}

func scanOperations(rows pgx.Rows) ([]*domain.Operation, error) {
	defer rows.Close()

	ops := []*domain.Operation{}
	for rows.Next() {
		var (
			op  domain.Operation
			raw []byte
		)
		err := rows.Scan(
			&op.ID,
			&op.Kind,
			&op.Status,
			&op.ChainID,
			&op.AgentID,
			&op.Account,
			&op.TxHash,
			&raw,
			&op.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &op.Payload); err != nil {
				return nil, fmt.Errorf("decode operation payload: %w", err)
			}
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ops, nil
}
