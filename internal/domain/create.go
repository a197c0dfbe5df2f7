package domain

import "github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"

// CreateMode selects who signs and pays for the registration transaction.
type CreateMode string

const (
	// CreateModeServer lets the gateway's relayer register on the caller's behalf.
	CreateModeServer CreateMode = "server"
	// CreateModeDirect mints from the gateway's EOA straight to the agent account.
	CreateModeDirect CreateMode = "direct"
	// CreateModeAA returns calls for the caller's smart account to bundle.
	CreateModeAA CreateMode = "aa"
)

// IsValid checks if the mode is one of the allowed values.
func (m CreateMode) IsValid() bool {
	switch m {
	case CreateModeServer, CreateModeDirect, CreateModeAA:
		return true
	default:
		return false
	}
}

// CreateAgentParams are the validated inputs of agent creation.
type CreateAgentParams struct {
	ChainID        int64
	Name           string
	Account        string
	Description    string
	Image          string
	Endpoints      []Endpoint
	SupportedTrust []string
	Mode           CreateMode
}

// CreateAgentResult reports the outcome of agent creation.
// Prepared is set only in CreateModeAA, the other fields only once a transaction was sent.
type CreateAgentResult struct {
	ChainID  int64
	AgentID  chain.BigInt
	TxHash   string
	TokenURI string
	Prepared *PreparedCalls
}

// UpdateRegistrationParams replaces an agent's registration file.
type UpdateRegistrationParams struct {
	DID          chain.DID8004
	Registration []byte
	Mode         CreateMode
}

// Call is one contract call of a prepared user operation.
type Call struct {
	To    string
	Data  string
	Value chain.BigInt
}

// PreparedCalls are unsigned calls handed back to a smart-account client,
// which signs and submits them through BundlerURL.
type PreparedCalls struct {
	ChainID    int64
	Calls      []Call
	BundlerURL string
}

// TxResult is the outcome of a transaction sent by the gateway.
type TxResult struct {
	ChainID int64
	TxHash  string
}

// UpdateRegistrationResult reports where the new registration file lives and
// either the sent transaction or the calls to bundle.
type UpdateRegistrationResult struct {
	TokenURI string
	TxHash   string
	Prepared *PreparedCalls
}
