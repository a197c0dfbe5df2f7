package domain

import (
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
)

// MaxFeedbackScore is the upper bound of a feedback score.
const MaxFeedbackScore = 100

// FeedbackSummary aggregates the reputation registry entries of an agent.
type FeedbackSummary struct {
	Count        uint64
	AverageScore float64
}

// FeedbackAuthRequest asks the agent's owner key to authorize a client's feedback.
type FeedbackAuthRequest struct {
	DID           chain.DID8004
	ClientAddress string
	IndexLimit    uint64
	ExpirySeconds int64
}

// FeedbackAuth is the owner-signed authorization the reputation registry checks.
type FeedbackAuth struct {
	DID           chain.DID8004
	ClientAddress string
	SignerAddress string
	IndexLimit    uint64
	Expiry        time.Time
	Signature     string
}

// FeedbackRequest are the validated inputs of giveFeedback.
type FeedbackRequest struct {
	DID           chain.DID8004
	ClientAddress string
	Score         uint8
	Tag1          string
	Tag2          string
	FeedbackURI   string
	FeedbackHash  string
	FeedbackAuth  string
}
