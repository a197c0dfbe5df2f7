// Package trust talks to the external agentic trust stack: the GraphQL indexer
// that serves registry reads and the gateway that signs, relays and prepares
// registry writes.
package trust

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

// Client is the set of registry operations the API delegates.
type Client interface {
	CreateAgent(ctx context.Context, p domain.CreateAgentParams, reg domain.Registration) (*domain.CreateAgentResult, error)
	UpdateRegistration(ctx context.Context, p domain.UpdateRegistrationParams) (*domain.UpdateRegistrationResult, error)

	GetAgent(ctx context.Context, did chain.DID8004) (*domain.Agent, error)
	SearchAgents(ctx context.Context, p domain.SearchParams) (*domain.SearchResult, error)
	SemanticSearch(ctx context.Context, q domain.SemanticQuery) ([]*domain.SemanticMatch, error)

	GetReputationSummary(ctx context.Context, did chain.DID8004) (*domain.FeedbackSummary, error)
	RequestFeedbackAuth(ctx context.Context, req domain.FeedbackAuthRequest) (*domain.FeedbackAuth, error)
	PrepareFeedback(ctx context.Context, req domain.FeedbackRequest) (*domain.PreparedCalls, error)

	ListValidations(ctx context.Context, did chain.DID8004) ([]*domain.ValidationEntry, error)
	PrepareValidationRequest(ctx context.Context, req domain.ValidationRequest) (*domain.PreparedCalls, error)

	ListAssociations(ctx context.Context, chainID int64, account string) ([]*domain.Association, error)
	PrepareAssociationRequest(ctx context.Context, req domain.AssociationRequest, rec *domain.AssociationRecord) (*domain.PreparedCalls, error)
	RevokeAssociation(ctx context.Context, req domain.RevokeAssociationRequest) (*domain.RevokeAssociationResult, error)
}

// Options configures an HTTPClient.
type Options struct {
	IndexerURL string
	GatewayURL string
	APIKey     string
	Timeout    time.Duration

	// MaxTries bounds attempts per request, including the first. Zero means 3.
	MaxTries uint
	// RetryInterval is the initial backoff between attempts. Zero means 200ms.
	RetryInterval time.Duration
}

// HTTPClient implements Client over the indexer's GraphQL endpoint and the gateway's JSON API.
type HTTPClient struct {
	indexerURL    string
	gatewayURL    string
	apiKey        string
	http          *http.Client
	maxTries      uint
	retryInterval time.Duration
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 200 * time.Millisecond
	}
	return &HTTPClient{
		indexerURL:    opts.IndexerURL,
		gatewayURL:    strings.TrimSuffix(opts.GatewayURL, "/"),
		apiKey:        opts.APIKey,
		http:          &http.Client{Timeout: opts.Timeout},
		maxTries:      opts.MaxTries,
		retryInterval: opts.RetryInterval,
	}
}

var _ Client = (*HTTPClient)(nil)
