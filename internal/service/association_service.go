package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/config"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/trust"
)

// AssociationService handles associated-account records: listing, proposing,
// revoking and the trust graph built from them.
type AssociationService struct {
	client    trust.Client
	chains    *config.Chains
	audit     auditLog
	validator *Validator
	now       func() time.Time
}

// NewAssociationService creates a new AssociationService. ops may be nil to disable the audit log.
func NewAssociationService(client trust.Client, chains *config.Chains, ops OperationStore) *AssociationService {
	return &AssociationService{
		client:    client,
		chains:    chains,
		audit:     auditLog{store: ops},
		validator: NewValidator(),
		now:       time.Now,
	}
}

// AssociationQuery selects the associations of one account.
type AssociationQuery struct {
	Account string `json:"account" validate:"required,eth_addr"`
	ChainID int64  `json:"chainId" validate:"required,gt=0"`
}

// ListAssociations returns the records involving q.Account, oriented around it.
// Records the indexer returns with undecodable endpoints are skipped.
func (s *AssociationService) ListAssociations(ctx context.Context, q AssociationQuery) ([]*domain.AssociationView, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, err
	}
	if _, err := lookupChain(s.chains, q.ChainID); err != nil {
		return nil, err
	}
	return s.views(ctx, q.ChainID, q.Account)
}

func (s *AssociationService) views(ctx context.Context, chainID int64, account string) ([]*domain.AssociationView, error) {
	records, err := s.client.ListAssociations(ctx, chainID, strings.ToLower(account))
	if err != nil {
		return nil, fmt.Errorf("list associations of %s: %w", account, err)
	}

	now := s.now()
	views := make([]*domain.AssociationView, 0, len(records))
	for _, rec := range records {
		v, err := domain.ResolveAssociation(rec, account, now)
		if err != nil {
			slog.Warn("skipping association",
				"association_id", rec.ID,
				"account", account,
				"error", err,
			)
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// AssociationRequestInput is the body of the association request route.
// ValidAt defaults to now; a zero ValidUntil means the record never expires.
type AssociationRequestInput struct {
	ChainID     int64   `json:"chainId" validate:"required,gt=0"`
	Initiator   string  `json:"initiator" validate:"required,eth_addr,nonzero_addr"`
	Approver    string  `json:"approver" validate:"required,eth_addr,nonzero_addr"`
	ValidAt     *uint64 `json:"validAt" validate:"omitempty,lte=1099511627775"`
	ValidUntil  uint64  `json:"validUntil" validate:"omitempty,lte=1099511627775"`
	InterfaceID string  `json:"interfaceId" validate:"omitempty,bytes4"`
	Data        string  `json:"data" validate:"omitempty,hexbytes"`
}

// PrepareAssociationRequest builds the association record, its EIP-712 digest
// for the initiator to sign, and the calls that store it.
func (s *AssociationService) PrepareAssociationRequest(ctx context.Context, in AssociationRequestInput) (*domain.PreparedAssociation, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	ch, err := lookupChain(s.chains, in.ChainID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(in.Initiator, in.Approver) {
		return nil, domain.BadRequest("initiator and approver must differ", []FieldError{{Field: "approver", Rule: "nefield", Param: "initiator"}})
	}

	validAt := uint64(s.now().Unix())
	if in.ValidAt != nil {
		validAt = *in.ValidAt
	}
	if in.ValidUntil != 0 && in.ValidUntil <= validAt {
		return nil, domain.BadRequest("validUntil must be after validAt", []FieldError{{Field: "validUntil", Rule: "gtfield", Param: "validAt"}})
	}

	req := domain.AssociationRequest{
		ChainID:    in.ChainID,
		ValidAt:    validAt,
		ValidUntil: in.ValidUntil,
	}
	req.Initiator, _ = chain.ChecksumAddress(in.Initiator)
	req.Approver, _ = chain.ChecksumAddress(in.Approver)
	if in.InterfaceID != "" {
		b, _ := chain.DecodeHex(in.InterfaceID)
		copy(req.InterfaceID[:], b)
	}
	if in.Data != "" {
		req.Data, _ = chain.DecodeHex(in.Data)
	}

	rec, err := req.Record()
	if err != nil {
		return nil, domain.BadRequest(err.Error(), nil)
	}

	prepared, err := s.client.PrepareAssociationRequest(ctx, req, rec)
	if err != nil {
		return nil, fmt.Errorf("prepare association %s -> %s: %w", req.Initiator, req.Approver, err)
	}
	withBundler(prepared, ch)

	digest := chain.EncodeHex(rec.Digest())
	s.audit.record(ctx, &domain.Operation{
		Kind:    domain.OperationAssociationPrepared,
		Status:  domain.OperationStatusPrepared,
		ChainID: in.ChainID,
		Account: &req.Initiator,
		Payload: map[string]any{"approver": req.Approver, "digest": digest, "validAt": validAt, "validUntil": in.ValidUntil},
	})

	return &domain.PreparedAssociation{Record: rec, Digest: digest, Prepared: prepared}, nil
}

// RevokeAssociationInput is the body of the association revoke route.
// RevokedAt defaults to now.
type RevokeAssociationInput struct {
	ChainID       int64  `json:"chainId" validate:"required,gt=0"`
	AssociationID string `json:"associationId" validate:"required,bytes32"`
	Account       string `json:"account" validate:"required,eth_addr,nonzero_addr"`
	RevokedAt     uint64 `json:"revokedAt" validate:"omitempty,lte=1099511627775"`
}

// RevokeAssociation revokes a stored record on behalf of one of its parties.
func (s *AssociationService) RevokeAssociation(ctx context.Context, in RevokeAssociationInput) (*domain.RevokeAssociationResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	ch, err := lookupChain(s.chains, in.ChainID)
	if err != nil {
		return nil, err
	}

	revokedAt := in.RevokedAt
	if revokedAt == 0 {
		revokedAt = uint64(s.now().Unix())
	}
	account, _ := chain.ChecksumAddress(in.Account)
	id := strings.ToLower(in.AssociationID)

	res, err := s.client.RevokeAssociation(ctx, domain.RevokeAssociationRequest{
		ChainID:       in.ChainID,
		AssociationID: id,
		Account:       account,
		RevokedAt:     revokedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("revoke association %s: %w", id, err)
	}
	withBundler(res.Prepared, ch)

	s.audit.record(ctx, &domain.Operation{
		Kind:    domain.OperationAssociationRevoked,
		Status:  preparedStatus(res.TxHash),
		ChainID: in.ChainID,
		Account: &account,
		TxHash:  optional(res.TxHash),
		Payload: map[string]any{"associationId": id, "revokedAt": revokedAt},
	})

	slog.Info("association revoked",
		"association_id", id,
		"chain_id", in.ChainID,
		"account", account,
		"tx_hash", res.TxHash,
	)
	return res, nil
}
