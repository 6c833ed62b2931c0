package analysis

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/dataset"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

// NetworkAnalysis is the result of network analysis. Networks follows the
// breadth-first discovery order of the subgraphs; Outputs is keyed by
// subgraph digest.
type NetworkAnalysis struct {
	Networks []common.BasisNetwork
	Outputs  map[string]map[string]any
	Document map[string]any
	Skipped  int
}

// UniqueSubgraphs walks the graph breadth-first from root and returns the
// first non-leaf node seen for every subgraph hash, in discovery order.
func UniqueSubgraphs(ds *dataset.Dataset, root *dataset.GraphNode) []*dataset.GraphNode {
	var unique []*dataset.GraphNode
	seen := make(map[string]struct{})

	queue := []*dataset.GraphNode{root}
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]

		if g.IsLeaf() {
			continue
		}
		if _, ok := seen[g.SubgraphHash.String()]; !ok {
			seen[g.SubgraphHash.String()] = struct{}{}
			unique = append(unique, g)
		}
		queue = append(queue, ds.Children(g)...)
	}
	return unique
}

// basisCache memoizes basis node lookups for the duration of one phase.
type basisCache struct {
	mu    sync.Mutex
	nodes map[string]*common.BasisNode
}

func (c *Client) lookupBasisNode(ctx context.Context, cache *basisCache, lineage hash.Lineage) (*common.BasisNode, error) {
	id := lineage.ID()

	cache.mu.Lock()
	n, ok := cache.nodes[id]
	cache.mu.Unlock()
	if ok {
		return n, nil
	}

	n, err := c.provider.GetBasisNodeByLineage(ctx, lineage)
	if err != nil {
		return nil, fmt.Errorf("failed to get basis node for lineage %s: %w", lineage, err)
	}

	cache.mu.Lock()
	cache.nodes[id] = n
	cache.mu.Unlock()
	return n, nil
}

// AnalyzeNetworks classifies every unique non-leaf subgraph of meta and
// merges the transformed fields of each. Nodes without a basis node are
// logged and skipped.
func (c *Client) AnalyzeNetworks(ctx context.Context, meta *MetaContext) (*NetworkAnalysis, error) {
	ds := meta.Dataset
	unique := UniqueSubgraphs(ds, meta.Root)
	networks := make([]common.BasisNetwork, len(unique))
	outputs := make([]map[string]any, len(unique))
	skipped := make([]int, len(unique))
	cache := &basisCache{nodes: make(map[string]*common.BasisNode)}

	logger.Debug("[Analysis] Analyzing networks", "unique_subgraphs", len(unique), "parallel", c.parallelNetworks)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelNetworks)
	for i, rep := range unique {
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
			}

			out, n, err := c.mergeSubgraph(ctx, meta, cache, rep)
			if err != nil {
				return err
			}
			network, err := c.resolveNetwork(ctx, meta, rep)
			if err != nil {
				return err
			}
			networks[i] = network
			outputs[i] = out
			skipped[i] = n
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &NetworkAnalysis{
		Networks: networks,
		Outputs:  make(map[string]map[string]any, len(unique)),
	}
	for i, rep := range unique {
		result.Outputs[rep.SubgraphHash.String()] = outputs[i]
		result.Skipped += skipped[i]
	}

	if root := meta.Root; root.IsLeaf() {
		out, n, err := c.mergeSubgraph(ctx, meta, cache, root)
		if err != nil {
			return nil, err
		}
		result.Document = out
		result.Skipped += n
	} else {
		result.Document = result.Outputs[root.SubgraphHash.String()]
	}

	return result, nil
}

// mergeSubgraph walks the subtree of rep breadth-first and accumulates the
// output of every field transformation of every visited node.
func (c *Client) mergeSubgraph(ctx context.Context, meta *MetaContext, cache *basisCache, rep *dataset.GraphNode) (map[string]any, int, error) {
	acc := NewAccumulator()
	skipped := 0

	queue := []*dataset.GraphNode{rep}
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		queue = append(queue, meta.Dataset.Children(g)...)

		cx := meta.Context(g)
		if cx == nil {
			return nil, 0, fmt.Errorf("%w: graph node %s has no context", common.ErrInternal, g.ID)
		}

		basis, err := c.lookupBasisNode(ctx, cache, cx.Lineage)
		if err != nil {
			return nil, 0, err
		}
		if basis == nil {
			logger.Warn("[Analysis] No basis node for lineage, skipping node",
				"description", cx.Data.Description,
				"lineage", cx.Lineage.String(),
			)
			c.metrics.NodeSkipped()
			skipped++
			continue
		}

		for _, t := range basis.Transformations {
			res, err := c.runtime.Execute(t, cx.Data.Fields)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to apply transformation %s to %s: %w", t.ID, cx.Data.Description, err)
			}
			if res.Eliminated {
				continue
			}
			acc.Add(res.Key, res.Value)
		}
	}

	return acc.Map(), skipped, nil
}

// resolveNetwork returns the stored network for rep's subgraph hash or
// classifies and stores a new one.
func (c *Client) resolveNetwork(ctx context.Context, meta *MetaContext, rep *dataset.GraphNode) (common.BasisNetwork, error) {
	existing, err := c.provider.GetBasisNetworkBySubgraphHash(ctx, rep.SubgraphHash)
	if err != nil {
		return common.BasisNetwork{}, fmt.Errorf("failed to get basis network for %s: %w", rep.SubgraphHash.Short(), err)
	}
	if existing != nil {
		return *existing, nil
	}

	id, err := c.newID()
	if err != nil {
		return common.BasisNetwork{}, fmt.Errorf("%w: failed to mint basis network id: %w", common.ErrInternal, err)
	}

	relationship := Classify(meta.Dataset, rep)
	name, description := describeNetwork(meta, rep, relationship)
	network := common.BasisNetwork{
		ID:           id,
		Name:         name,
		Description:  description,
		SubgraphHash: rep.SubgraphHash,
		Relationship: relationship,
	}
	if err := c.provider.SaveBasisNetwork(ctx, rep.SubgraphHash, network); err != nil {
		return common.BasisNetwork{}, fmt.Errorf("failed to save basis network for %s: %w", rep.SubgraphHash.Short(), err)
	}
	c.metrics.NetworkDerived(relationship.Kind)

	logger.Debug("[Analysis] Derived basis network",
		"description", rep.Data.Description,
		"subgraph", rep.SubgraphHash.Short(),
		"kind", string(relationship.Kind),
	)
	return network, nil
}

// Classify derives the relationship of the subgraph rooted at rep from its
// non-leaf children. Two or more children sharing one subgraph hash and
// lineage make a recursion; otherwise two or more distinct child subgraph
// hashes make an association.
func Classify(ds *dataset.Dataset, rep *dataset.GraphNode) common.NetworkRelationship {
	type candidate struct {
		lineage hash.Lineage
		count   int
	}

	var (
		order      []string
		candidates = make(map[string]*candidate)
		distinct   []hash.Hash
		seen       = make(map[string]struct{})
	)
	for _, child := range ds.Children(rep) {
		if child.IsLeaf() {
			continue
		}

		sub := child.SubgraphHash.String()
		key := sub + "/" + child.Data.Lineage.ID()
		cand, ok := candidates[key]
		if !ok {
			cand = &candidate{lineage: child.Data.Lineage}
			candidates[key] = cand
			order = append(order, key)
		}
		cand.count++

		if _, ok := seen[sub]; !ok {
			seen[sub] = struct{}{}
			distinct = append(distinct, child.SubgraphHash)
		}
	}

	for _, key := range order {
		if cand := candidates[key]; cand.count >= 2 {
			return common.RecursionRelationship(cand.lineage)
		}
	}
	if len(distinct) >= 2 {
		return common.AssociationRelationship(distinct)
	}
	return common.NullRelationship()
}

func describeNetwork(meta *MetaContext, rep *dataset.GraphNode, r common.NetworkRelationship) (string, string) {
	switch r.Kind {
	case common.RelationshipRecursion:
		item := ""
		for _, child := range meta.Dataset.Children(rep) {
			if child.Data.Lineage.Equal(r.Recursion.Lineage) {
				item = child.Data.Description
				break
			}
		}
		return "recursion", fmt.Sprintf("Repeated %s items under %s", item, rep.Data.Description)
	case common.RelationshipAssociation:
		return "association", fmt.Sprintf("Association of %d subgraphs under %s", len(r.Association), rep.Data.Description)
	default:
		return "null", "Null network"
	}
}
