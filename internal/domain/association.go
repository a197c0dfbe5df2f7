package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
)

// EIP-712 definitions of the associated accounts store.
const (
	AssociationsDomainName    = "AssociatedAccounts"
	AssociationsDomainVersion = "1"
	AssociationRecordType     = "AssociatedAccountRecord(bytes initiator,bytes approver,uint40 validAt,uint40 validUntil,bytes4 interfaceId,bytes data)"

	// MaxUint40 bounds the record timestamps.
	MaxUint40 = 1<<40 - 1
)

// Association is a signed record linking an initiator and an approver account.
// Initiator and Approver are ERC-7930 hex payloads.
type Association struct {
	ID                 string
	Initiator          string
	Approver           string
	ValidAt            uint64
	ValidUntil         uint64 // 0 means no expiry
	RevokedAt          uint64 // 0 means not revoked
	InterfaceID        string
	Data               string
	InitiatorKeyType   string
	ApproverKeyType    string
	InitiatorSignature string
	ApproverSignature  string
}

// IsRevoked reports whether the revocation timestamp has passed.
func (a *Association) IsRevoked(now time.Time) bool {
	return a.RevokedAt != 0 && unixSeconds(now) >= a.RevokedAt
}

// IsActive reports whether now falls in the validity window and the record is not revoked.
func (a *Association) IsActive(now time.Time) bool {
	ts := unixSeconds(now)
	if a.IsRevoked(now) || ts < a.ValidAt {
		return false
	}
	return a.ValidUntil == 0 || ts <= a.ValidUntil
}

// AssociationDirection is the role an account plays in a record.
type AssociationDirection string

const (
	AssociationInitiated AssociationDirection = "initiated"
	AssociationApproved  AssociationDirection = "approved"
)

// AssociationView is an association seen from one account's side.
type AssociationView struct {
	Association      *Association
	InitiatorAddress string
	InitiatorChainID int64
	ApproverAddress  string
	ApproverChainID  int64
	Counterparty     string
	Direction        AssociationDirection
	Active           bool
	Revoked          bool
}

// ResolveAssociation decodes a's endpoints and orients it around account.
func ResolveAssociation(a *Association, account string, now time.Time) (*AssociationView, error) {
	initiator, err := chain.ParseEvmV1(a.Initiator)
	if err != nil {
		return nil, fmt.Errorf("association %s initiator: %w", a.ID, err)
	}
	approver, err := chain.ParseEvmV1(a.Approver)
	if err != nil {
		return nil, fmt.Errorf("association %s approver: %w", a.ID, err)
	}

	view := &AssociationView{
		Association:      a,
		InitiatorAddress: initiator.Address,
		InitiatorChainID: initiator.ChainID,
		ApproverAddress:  approver.Address,
		ApproverChainID:  approver.ChainID,
		Active:           a.IsActive(now),
		Revoked:          a.IsRevoked(now),
	}

	switch {
	case strings.EqualFold(initiator.Address, account):
		view.Direction = AssociationInitiated
		view.Counterparty = approver.Address
	case strings.EqualFold(approver.Address, account):
		view.Direction = AssociationApproved
		view.Counterparty = initiator.Address
	default:
		return nil, fmt.Errorf("%w: association %s does not involve %s", ErrAssociationUnrelated, a.ID, account)
	}
	return view, nil
}

// AssociationRecord is the EIP-712 struct the initiator and approver sign.
type AssociationRecord struct {
	Initiator   []byte
	Approver    []byte
	ValidAt     uint64
	ValidUntil  uint64
	InterfaceID [4]byte
	Data        []byte
}

// StructHash is hashStruct(record) per EIP-712.
func (r *AssociationRecord) StructHash() []byte {
	return chain.Keccak256(
		chain.Keccak256([]byte(AssociationRecordType)),
		chain.Keccak256(r.Initiator),
		chain.Keccak256(r.Approver),
		chain.Word(r.ValidAt),
		chain.Word(r.ValidUntil),
		chain.FixedBytesWord(r.InterfaceID[:]),
		chain.Keccak256(r.Data),
	)
}

// Digest is the EIP-712 message hash under the associations domain.
func (r *AssociationRecord) Digest() []byte {
	return chain.TypedDataDigest(
		chain.DomainSeparator(AssociationsDomainName, AssociationsDomainVersion),
		r.StructHash(),
	)
}

// AssociationRequest are the validated inputs of an association proposal.
type AssociationRequest struct {
	ChainID     int64
	Initiator   string
	Approver    string
	ValidAt     uint64
	ValidUntil  uint64
	InterfaceID [4]byte
	Data        []byte
}

// Record builds the signable record, packing both accounts as ERC-7930 addresses on ChainID.
func (r AssociationRequest) Record() (*AssociationRecord, error) {
	initiator, err := chain.EncodeEvmV1(r.ChainID, r.Initiator)
	if err != nil {
		return nil, fmt.Errorf("encode initiator: %w", err)
	}
	approver, err := chain.EncodeEvmV1(r.ChainID, r.Approver)
	if err != nil {
		return nil, fmt.Errorf("encode approver: %w", err)
	}
	return &AssociationRecord{
		Initiator:   initiator,
		Approver:    approver,
		ValidAt:     r.ValidAt,
		ValidUntil:  r.ValidUntil,
		InterfaceID: r.InterfaceID,
		Data:        r.Data,
	}, nil
}

// PreparedAssociation is an unsigned association proposal.
type PreparedAssociation struct {
	Record   *AssociationRecord
	Digest   string
	Prepared *PreparedCalls
}

// RevokeAssociationRequest revokes a stored record, effective at RevokedAt.
type RevokeAssociationRequest struct {
	ChainID       int64
	AssociationID string
	Account       string
	RevokedAt     uint64
}

// RevokeAssociationResult carries the sent transaction or the calls to bundle.
type RevokeAssociationResult struct {
	TxHash   string
	Prepared *PreparedCalls
}

func unixSeconds(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}
