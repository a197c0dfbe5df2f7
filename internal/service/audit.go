package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/repository"
)

const auditTimeout = 5 * time.Second

// OperationStore persists the audit log. Implemented by repository.OperationRepository.
type OperationStore interface {
	Create(ctx context.Context, op *domain.Operation) error
	List(ctx context.Context, f repository.OperationFilter) ([]*domain.Operation, error)
}

// auditLog records mutating calls. A nil store disables recording.
type auditLog struct {
	store OperationStore
}

// record stores op without failing the caller. It survives cancellation of
// ctx so a client hanging up after the upstream call still leaves a trace.
func (a auditLog) record(ctx context.Context, op *domain.Operation) {
	if a.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := a.store.Create(ctx, op); err != nil {
		slog.Warn("failed to record operation",
			"kind", op.Kind,
			"chain_id", op.ChainID,
			"error", err,
		)
		return
	}

	slog.Info("operation recorded",
		"operation_id", op.ID,
		"kind", op.Kind,
		"status", op.Status,
		"chain_id", op.ChainID,
	)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// preparedStatus is submitted when a transaction went out, prepared otherwise.
func preparedStatus(txHash string) domain.OperationStatus {
	if txHash != "" {
		return domain.OperationStatusSubmitted
	}
	return domain.OperationStatusPrepared
}
