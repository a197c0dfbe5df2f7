package domain

import "time"

// OperationKind identifies a mutating API call recorded in the audit log.
type OperationKind string

const (
	OperationAgentCreated        OperationKind = "agent_created"
	OperationAgentCreatedDirect  OperationKind = "agent_created_direct"
	OperationAgentPreparedAA     OperationKind = "agent_prepared_aa"
	OperationRegistrationUpdated OperationKind = "registration_updated"
	OperationFeedbackAuthIssued  OperationKind = "feedback_auth_issued"
	OperationFeedbackPrepared    OperationKind = "feedback_prepared"
	OperationValidationRequested OperationKind = "validation_requested"
	OperationAssociationPrepared OperationKind = "association_prepared"
	OperationAssociationRevoked  OperationKind = "association_revoked"
)

// OperationStatus is the outcome recorded for an operation.
type OperationStatus string

const (
	OperationStatusSubmitted OperationStatus = "submitted"
	OperationStatusPrepared  OperationStatus = "prepared"
	OperationStatusFailed    OperationStatus = "failed"
)

// Operation is an audit log entry for a mutating call against the registries.
type Operation struct {
	ID        string
	Kind      OperationKind
	Status    OperationStatus
	ChainID   int64
	AgentID   *string // nil for account-scoped operations
	Account   *string
	TxHash    *string
	Payload   map[string]any
	CreatedAt time.Time
}
