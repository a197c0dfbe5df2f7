package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/metrics"
)

const (
	// MaxGraphCounterparties bounds how many of the center's counterparties are expanded.
	MaxGraphCounterparties = 12

	graphConcurrency = 6
)

// BuildTrustGraph assembles the association neighbourhood of q.Account: the
// center, its counterparties, and their counterparties. Only the center lookup
// can fail the call; counterparty lookups are best effort.
func (s *AssociationService) BuildTrustGraph(ctx context.Context, q AssociationQuery) (*domain.TrustGraph, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, err
	}
	if _, err := lookupChain(s.chains, q.ChainID); err != nil {
		return nil, err
	}

	centerViews, err := s.views(ctx, q.ChainID, q.Account)
	if err != nil {
		return nil, err
	}

	b := newGraphBuilder(q.Account, q.ChainID)

	var counterparties []string
	seen := map[string]bool{b.graph.Center: true}
	for _, v := range centerViews {
		id := strings.ToLower(v.Counterparty)
		if !seen[id] {
			if len(counterparties) == MaxGraphCounterparties {
				b.graph.Truncated = true
				continue
			}
			seen[id] = true
			counterparties = append(counterparties, v.Counterparty)
			b.addNode(v.Counterparty, 1)
		}
		b.addEdge(v)
	}

	results := make([][]*domain.AssociationView, len(counterparties))
	var (
		mu     sync.Mutex
		failed int
		g      errgroup.Group
	)
	g.SetLimit(graphConcurrency)
	for i, cp := range counterparties {
		g.Go(func() error {
			views, err := s.views(ctx, q.ChainID, cp)
			if err != nil {
				slog.Warn("trust graph counterparty lookup failed",
					"center", q.Account,
					"counterparty", cp,
					"error", err,
				)
				metrics.GraphLookupFailed()
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = views
			return nil
		})
	}
	_ = g.Wait()

	for _, views := range results {
		for _, v := range views {
			b.addNode(v.Counterparty, 2)
			b.addEdge(v)
		}
	}
	b.graph.Failed = failed
	return b.graph, nil
}

type graphBuilder struct {
	graph *domain.TrustGraph
	nodes map[string]bool
	edges map[string]bool
}

func newGraphBuilder(center string, chainID int64) *graphBuilder {
	b := &graphBuilder{
		graph: &domain.TrustGraph{
			Center:  strings.ToLower(center),
			ChainID: chainID,
			Nodes:   []*domain.GraphNode{},
			Edges:   []*domain.GraphEdge{},
		},
		nodes: map[string]bool{},
		edges: map[string]bool{},
	}
	b.addNode(center, 0)
	return b
}

// addNode adds address at hop unless it is already present at a lower hop.
func (b *graphBuilder) addNode(address string, hop int) {
	id := strings.ToLower(address)
	if b.nodes[id] {
		return
	}
	b.nodes[id] = true

	checksummed, err := chain.ChecksumAddress(address)
	if err != nil {
		checksummed = address
	}
	b.graph.Nodes = append(b.graph.Nodes, &domain.GraphNode{
		ID:       id,
		Address:  checksummed,
		Label:    shortAddress(checksummed),
		Hop:      hop,
		IsCenter: hop == 0,
	})
}

// addEdge adds the initiator -> approver edge of v once per association.
func (b *graphBuilder) addEdge(v *domain.AssociationView) {
	source := strings.ToLower(v.InitiatorAddress)
	target := strings.ToLower(v.ApproverAddress)
	id := v.Association.ID
	if id == "" {
		id = source + "->" + target
	}
	if b.edges[id] {
		return
	}
	b.edges[id] = true

	b.graph.Edges = append(b.graph.Edges, &domain.GraphEdge{
		ID:      id,
		Source:  source,
		Target:  target,
		Active:  v.Active,
		Revoked: v.Revoked,
	})
}

func shortAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
