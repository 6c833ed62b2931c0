package memory

import (
	"context"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
	"github.com/OFFIS-RIT/parversion/pkg/store"
)

// CachedProvider answers basis lookups from memory and falls through to the
// backing Provider on a miss. Writes go to the backing Provider first and are
// cached only when they succeed.
//
// Profiles are not cached: a similarity search has no exact key.
type CachedProvider struct {
	backing store.Provider
	cache   *Provider
}

func NewCachedProvider(backing store.Provider) *CachedProvider {
	return &CachedProvider{
		backing: backing,
		cache:   NewProvider(),
	}
}

func (c *CachedProvider) GetProfile(ctx context.Context, features []string) (*common.Profile, error) {
	return c.backing.GetProfile(ctx, features)
}

func (c *CachedProvider) SaveProfile(ctx context.Context, profile common.Profile) error {
	return c.backing.SaveProfile(ctx, profile)
}

func (c *CachedProvider) GetBasisNodeByLineage(ctx context.Context, lineage hash.Lineage) (*common.BasisNode, error) {
	if n, _ := c.cache.GetBasisNodeByLineage(ctx, lineage); n != nil {
		return n, nil
	}

	n, err := c.backing.GetBasisNodeByLineage(ctx, lineage)
	if err != nil || n == nil {
		return n, err
	}
	_ = c.cache.SaveBasisNode(ctx, lineage, *n)
	return n, nil
}

func (c *CachedProvider) SaveBasisNode(ctx context.Context, lineage hash.Lineage, node common.BasisNode) error {
	if err := c.backing.SaveBasisNode(ctx, lineage, node); err != nil {
		return err
	}
	return c.cache.SaveBasisNode(ctx, lineage, node)
}

func (c *CachedProvider) GetBasisNetworkBySubgraphHash(ctx context.Context, subgraph hash.Hash) (*common.BasisNetwork, error) {
	if n, _ := c.cache.GetBasisNetworkBySubgraphHash(ctx, subgraph); n != nil {
		return n, nil
	}

	n, err := c.backing.GetBasisNetworkBySubgraphHash(ctx, subgraph)
	if err != nil || n == nil {
		return n, err
	}
	_ = c.cache.SaveBasisNetwork(ctx, subgraph, *n)
	return n, nil
}

func (c *CachedProvider) SaveBasisNetwork(ctx context.Context, subgraph hash.Hash, network common.BasisNetwork) error {
	if err := c.backing.SaveBasisNetwork(ctx, subgraph, network); err != nil {
		return err
	}
	return c.cache.SaveBasisNetwork(ctx, subgraph, network)
}

func (c *CachedProvider) Close() error {
	return c.backing.Close()
}
