package trust

import (
	"context"
	"fmt"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

const agentFields = `
	chainId agentId agentName agentAccount agentOwner tokenUri description image
	endpoints { name endpoint version }
	supportedTrust createdAtBlock createdAtTime
`

const agentQuery = `query Agent($chainId: Int!, $agentId: String!) {
	agent(chainId: $chainId, agentId: $agentId) {` + agentFields + `}
}`

const searchAgentsQuery = `query SearchAgents($where: AgentWhereInput, $first: Int!, $skip: Int!, $orderBy: AgentOrderBy, $orderDirection: OrderDirection) {
	searchAgents(where: $where, first: $first, skip: $skip, orderBy: $orderBy, orderDirection: $orderDirection) {
		total
		agents {` + agentFields + `}
	}
}`

const feedbackSummaryQuery = `query FeedbackSummary($chainId: Int!, $agentId: String!) {
	feedbackSummary(chainId: $chainId, agentId: $agentId) { count averageScore }
}`

const validationsQuery = `query Validations($chainId: Int!, $agentId: String!) {
	validations(chainId: $chainId, agentId: $agentId) {
		requestHash validatorAddress agentId requestUri response responseUri tag lastUpdate
	}
}`

const associationsQuery = `query Associations($chainId: Int!, $account: String!) {
	associations(chainId: $chainId, account: $account) {
		associationId initiator approver validAt validUntil revokedAt interfaceId data
		initiatorKeyType approverKeyType initiatorSignature approverSignature
	}
}`

// GetAgent looks up one agent token.
func (c *HTTPClient) GetAgent(ctx context.Context, did chain.DID8004) (*domain.Agent, error) {
	var data struct {
		Agent *wireAgent `json:"agent"`
	}
	err := c.query(ctx, "get_agent", agentQuery, map[string]any{
		"chainId": did.ChainID,
		"agentId": did.AgentID.String(),
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Agent == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAgentNotFound, did)
	}
	return data.Agent.toDomain(), nil
}

// SearchAgents runs a paged keyword search.
func (c *HTTPClient) SearchAgents(ctx context.Context, p domain.SearchParams) (*domain.SearchResult, error) {
	where := map[string]any{}
	if p.Query != "" {
		where["query"] = p.Query
	}
	if p.ChainID != nil {
		where["chainId"] = *p.ChainID
	}
	if p.Owner != nil {
		where["agentOwner"] = *p.Owner
	}
	vars := map[string]any{
		"where": where,
		"first": p.PageSize,
		"skip":  p.Offset(),
	}
	if p.OrderBy != "" {
		vars["orderBy"] = p.OrderBy
		vars["orderDirection"] = p.OrderDirection
	}

	var data struct {
		SearchAgents struct {
			Total  int         `json:"total"`
			Agents []wireAgent `json:"agents"`
		} `json:"searchAgents"`
	}
	if err := c.query(ctx, "search_agents", searchAgentsQuery, vars, &data); err != nil {
		return nil, err
	}

	result := &domain.SearchResult{
		Agents:   make([]*domain.Agent, 0, len(data.SearchAgents.Agents)),
		Total:    data.SearchAgents.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	for i := range data.SearchAgents.Agents {
		result.Agents = append(result.Agents, data.SearchAgents.Agents[i].toDomain())
	}
	return result, nil
}

// GetReputationSummary aggregates feedback for an agent. It returns nil, nil
// when the indexer has no summary for the agent.
func (c *HTTPClient) GetReputationSummary(ctx context.Context, did chain.DID8004) (*domain.FeedbackSummary, error) {
	var data struct {
		FeedbackSummary *wireFeedbackSummary `json:"feedbackSummary"`
	}
	err := c.query(ctx, "feedback_summary", feedbackSummaryQuery, map[string]any{
		"chainId": did.ChainID,
		"agentId": did.AgentID.String(),
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.FeedbackSummary == nil {
		return nil, nil
	}
	return &domain.FeedbackSummary{
		Count:        toUint64(data.FeedbackSummary.Count),
		AverageScore: data.FeedbackSummary.AverageScore,
	}, nil
}

// ListValidations returns the validation requests recorded for an agent.
func (c *HTTPClient) ListValidations(ctx context.Context, did chain.DID8004) ([]*domain.ValidationEntry, error) {
	var data struct {
		Validations []wireValidation `json:"validations"`
	}
	err := c.query(ctx, "list_validations", validationsQuery, map[string]any{
		"chainId": did.ChainID,
		"agentId": did.AgentID.String(),
	}, &data)
	if err != nil {
		return nil, err
	}
	entries := make([]*domain.ValidationEntry, 0, len(data.Validations))
	for i := range data.Validations {
		entries = append(entries, data.Validations[i].toDomain())
	}
	return entries, nil
}

// ListAssociations returns the records where account is initiator or approver.
func (c *HTTPClient) ListAssociations(ctx context.Context, chainID int64, account string) ([]*domain.Association, error) {
	var data struct {
		Associations []wireAssociation `json:"associations"`
	}
	err := c.query(ctx, "list_associations", associationsQuery, map[string]any{
		"chainId": chainID,
		"account": account,
	}, &data)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Association, 0, len(data.Associations))
	for i := range data.Associations {
		out = append(out, data.Associations[i].toDomain())
	}
	return out, nil
}
