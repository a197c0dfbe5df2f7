package domain

import (
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
)

// ValidationStatus is whether a validator has answered a request.
type ValidationStatus string

const (
	ValidationStatusPending   ValidationStatus = "pending"
	ValidationStatusCompleted ValidationStatus = "completed"
)

// ValidationEntry is one request tracked by the validation registry.
type ValidationEntry struct {
	RequestHash      string
	ValidatorAddress string
	AgentID          chain.BigInt
	RequestURI       string
	Response         *uint8 // nil until the validator responds
	ResponseURI      string
	Tag              string
	LastUpdate       time.Time
}

// Status derives pending/completed from the presence of a response.
func (v *ValidationEntry) Status() ValidationStatus {
	if v.Response == nil {
		return ValidationStatusPending
	}
	return ValidationStatusCompleted
}

// SplitValidations partitions entries by status, preserving order.
func SplitValidations(entries []*ValidationEntry) (pending, completed []*ValidationEntry) {
	pending = []*ValidationEntry{}
	completed = []*ValidationEntry{}
	for _, e := range entries {
		if e.Status() == ValidationStatusPending {
			pending = append(pending, e)
		} else {
			completed = append(completed, e)
		}
	}
	return pending, completed
}

// ValidationRequest asks a validator to attest to an agent's work.
type ValidationRequest struct {
	DID              chain.DID8004
	ValidatorAddress string
	RequestURI       string
	RequestHash      string
}
