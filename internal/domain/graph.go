package domain

// GraphNode is an account in the trust graph. Hop is its distance from the center.
type GraphNode struct {
	ID       string
	Address  string
	Label    string
	Hop      int
	IsCenter bool
}

// GraphEdge is an association between two graph nodes, directed initiator to approver.
type GraphEdge struct {
	ID      string
	Source  string
	Target  string
	Active  bool
	Revoked bool
}

// TrustGraph is the association neighbourhood of an account.
type TrustGraph struct {
	Center  string
	ChainID int64
	Nodes   []*GraphNode
	Edges   []*GraphEdge

	// Truncated is set when the center had more counterparties than were expanded.
	Truncated bool
	// Failed counts counterparty lookups that errored and were skipped.
	Failed int
}
