package domain

import (
	"strconv"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
)

// RegistrationTypeV1 is the type URI of ERC-8004 registration files.
const RegistrationTypeV1 = "https://eips.ethereum.org/EIPS/eip-8004#registration-v1"

// EndpointAgentWallet is the endpoint name that advertises the agent's account.
const EndpointAgentWallet = "agentWallet"

// Registration is the ERC-8004 registration file stored behind an agent's token URI.
// Field names follow the EIP, so the struct is its own JSON wire format.
type Registration struct {
	Type           string                 `json:"type"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Image          string                 `json:"image,omitempty"`
	Endpoints      []RegistrationEndpoint `json:"endpoints,omitempty"`
	Registrations  []RegistrationRef      `json:"registrations,omitempty"`
	SupportedTrust []string               `json:"supportedTrust,omitempty"`
}

// RegistrationEndpoint is an entry of Registration.Endpoints.
type RegistrationEndpoint struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Version  string `json:"version,omitempty"`
}

// RegistrationRef points back at the registry entry that owns the file.
type RegistrationRef struct {
	AgentID       chain.BigInt `json:"agentId"`
	AgentRegistry string       `json:"agentRegistry"`
}

// CAIP10 formats an account as eip155:<chainId>:<address>.
func CAIP10(chainID int64, address string) string {
	return "eip155:" + strconv.FormatInt(chainID, 10) + ":" + address
}

// BuildRegistration assembles the registration file for a new agent.
// The account is advertised as the agentWallet endpoint unless one is already listed.
func BuildRegistration(p CreateAgentParams) Registration {
	reg := Registration{
		Type:           RegistrationTypeV1,
		Name:           p.Name,
		Description:    p.Description,
		Image:          p.Image,
		SupportedTrust: p.SupportedTrust,
	}

	hasWallet := false
	for _, ep := range p.Endpoints {
		if ep.Name == EndpointAgentWallet {
			hasWallet = true
		}
		reg.Endpoints = append(reg.Endpoints, RegistrationEndpoint{
			Name:     ep.Name,
			Endpoint: ep.Endpoint,
			Version:  ep.Version,
		})
	}
	if !hasWallet && p.Account != "" {
		reg.Endpoints = append(reg.Endpoints, RegistrationEndpoint{
			Name:     EndpointAgentWallet,
			Endpoint: CAIP10(p.ChainID, p.Account),
		})
	}
	return reg
}
