package trust

import (
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

// Wire shapes of the indexer and gateway. Numeric fields the upstream may
// send as JS BigInt strings are decoded through chain.BigInt.

type wireEndpoint struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Version  string `json:"version"`
}

type wireAgent struct {
	ChainID        int64          `json:"chainId"`
	AgentID        chain.BigInt   `json:"agentId"`
	AgentName      string         `json:"agentName"`
	AgentAccount   string         `json:"agentAccount"`
	AgentOwner     string         `json:"agentOwner"`
	TokenURI       string         `json:"tokenUri"`
	Description    string         `json:"description"`
	Image          string         `json:"image"`
	Endpoints      []wireEndpoint `json:"endpoints"`
	SupportedTrust []string       `json:"supportedTrust"`
	CreatedAtBlock chain.BigInt   `json:"createdAtBlock"`
	CreatedAtTime  chain.BigInt   `json:"createdAtTime"`
}

func (w *wireAgent) toDomain() *domain.Agent {
	a := &domain.Agent{
		ChainID:        w.ChainID,
		AgentID:        w.AgentID,
		Name:           w.AgentName,
		Account:        w.AgentAccount,
		Owner:          w.AgentOwner,
		TokenURI:       w.TokenURI,
		Description:    w.Description,
		Image:          w.Image,
		SupportedTrust: w.SupportedTrust,
		CreatedAtBlock: toUint64(w.CreatedAtBlock),
	}
	if ts := toUint64(w.CreatedAtTime); ts > 0 {
		a.CreatedAt = time.Unix(int64(ts), 0).UTC()
	}
	for _, ep := range w.Endpoints {
		a.Endpoints = append(a.Endpoints, domain.Endpoint{Name: ep.Name, Endpoint: ep.Endpoint, Version: ep.Version})
	}
	return a
}

type wireFeedbackSummary struct {
	Count        chain.BigInt `json:"count"`
	AverageScore float64      `json:"averageScore"`
}

type wireValidation struct {
	RequestHash      string       `json:"requestHash"`
	ValidatorAddress string       `json:"validatorAddress"`
	AgentID          chain.BigInt `json:"agentId"`
	RequestURI       string       `json:"requestUri"`
	Response         *int         `json:"response"`
	ResponseURI      string       `json:"responseUri"`
	Tag              string       `json:"tag"`
	LastUpdate       chain.BigInt `json:"lastUpdate"`
}

func (w *wireValidation) toDomain() *domain.ValidationEntry {
	v := &domain.ValidationEntry{
		RequestHash:      w.RequestHash,
		ValidatorAddress: w.ValidatorAddress,
		AgentID:          w.AgentID,
		RequestURI:       w.RequestURI,
		ResponseURI:      w.ResponseURI,
		Tag:              w.Tag,
	}
	if w.Response != nil && *w.Response >= 0 && *w.Response <= domain.MaxFeedbackScore {
		r := uint8(*w.Response)
		v.Response = &r
	}
	if ts := toUint64(w.LastUpdate); ts > 0 {
		v.LastUpdate = time.Unix(int64(ts), 0).UTC()
	}
	return v
}

type wireAssociation struct {
	AssociationID      string       `json:"associationId"`
	Initiator          string       `json:"initiator"`
	Approver           string       `json:"approver"`
	ValidAt            chain.BigInt `json:"validAt"`
	ValidUntil         chain.BigInt `json:"validUntil"`
	RevokedAt          chain.BigInt `json:"revokedAt"`
	InterfaceID        string       `json:"interfaceId"`
	Data               string       `json:"data"`
	InitiatorKeyType   string       `json:"initiatorKeyType"`
	ApproverKeyType    string       `json:"approverKeyType"`
	InitiatorSignature string       `json:"initiatorSignature"`
	ApproverSignature  string       `json:"approverSignature"`
}

func (w *wireAssociation) toDomain() *domain.Association {
	return &domain.Association{
		ID:                 w.AssociationID,
		Initiator:          w.Initiator,
		Approver:           w.Approver,
		ValidAt:            toUint64(w.ValidAt),
		ValidUntil:         toUint64(w.ValidUntil),
		RevokedAt:          toUint64(w.RevokedAt),
		InterfaceID:        w.InterfaceID,
		Data:               w.Data,
		InitiatorKeyType:   w.InitiatorKeyType,
		ApproverKeyType:    w.ApproverKeyType,
		InitiatorSignature: w.InitiatorSignature,
		ApproverSignature:  w.ApproverSignature,
	}
}

type wireCall struct {
	To    string       `json:"to"`
	Data  string       `json:"data"`
	Value chain.BigInt `json:"value"`
}

// wirePrepared is the gateway's reply to write operations: either a sent
// transaction or unsigned calls, depending on the mode.
type wirePrepared struct {
	ChainID  int64        `json:"chainId"`
	TxHash   string       `json:"txHash"`
	AgentID  chain.BigInt `json:"agentId"`
	TokenURI string       `json:"tokenUri"`
	Calls    []wireCall   `json:"calls"`
}

func (w *wirePrepared) calls(chainID int64) *domain.PreparedCalls {
	if len(w.Calls) == 0 {
		return nil
	}
	if w.ChainID != 0 {
		chainID = w.ChainID
	}
	p := &domain.PreparedCalls{ChainID: chainID, Calls: make([]domain.Call, 0, len(w.Calls))}
	for _, c := range w.Calls {
		value := c.Value
		if value.IsNil() {
			value = chain.NewBigInt(0)
		}
		p.Calls = append(p.Calls, domain.Call{To: c.To, Data: c.Data, Value: value})
	}
	return p
}

type wireFeedbackAuth struct {
	Signature     string       `json:"signature"`
	SignerAddress string       `json:"signerAddress"`
	IndexLimit    chain.BigInt `json:"indexLimit"`
	Expiry        chain.BigInt `json:"expiry"`
}

type wireSemanticMatch struct {
	Agent        wireAgent `json:"agent"`
	Score        float64   `json:"score"`
	MatchReasons []string  `json:"matchReasons"`
}

func toUint64(b chain.BigInt) uint64 {
	if b.IsNil() || !b.IsUint64() {
		return 0
	}
	return b.Uint64()
}
