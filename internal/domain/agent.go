package domain

import (
	"time"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
)

// Endpoint is a named service endpoint advertised by an agent (A2A, MCP, ENS, ...).
type Endpoint struct {
	Name     string
	Endpoint string
	Version  string
}

// Agent represents an agent token in the identity registry, as seen by the indexer.
type Agent struct {
	ChainID        int64
	AgentID        chain.BigInt
	Name           string
	Account        string
	Owner          string
	TokenURI       string
	Description    string
	Image          string
	Endpoints      []Endpoint
	SupportedTrust []string
	CreatedAtBlock uint64
	CreatedAt      time.Time
}

// DID returns the agent's did:8004 identifier.
func (a *Agent) DID() string {
	return chain.FormatDID8004(a.ChainID, a.AgentID)
}

// AgentDetails bundles an agent with its reputation summary.
// Summary is nil when the reputation lookup failed or returned nothing.
type AgentDetails struct {
	Agent   *Agent
	Summary *FeedbackSummary
}

// SearchParams holds the normalized filters for agent search.
type SearchParams struct {
	Query          string
	ChainID        *int64
	Owner          *string
	Page           int
	PageSize       int
	OrderBy        string
	OrderDirection string
}

// Offset is the zero-based index of the first result on the requested page.
func (p SearchParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// SearchResult is one page of agents.
type SearchResult struct {
	Agents   []*Agent
	Total    int
	Page     int
	PageSize int
}

// HasMore reports whether pages follow the current one.
func (r *SearchResult) HasMore() bool {
	return r.Page*r.PageSize < r.Total
}

// SemanticQuery is a natural-language agent search.
type SemanticQuery struct {
	Text     string
	TopK     int
	MinScore float64
	ChainID  *int64
}

// SemanticMatch is one ranked result of a semantic search.
type SemanticMatch struct {
	Agent        *Agent
	Score        float64
	MatchReasons []string
}
