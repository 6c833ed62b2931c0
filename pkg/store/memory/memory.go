// Package memory provides an in-process Provider and a read-through cache
// that layers one in front of any other Provider.
package memory

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
	"github.com/OFFIS-RIT/parversion/pkg/store"
)

// Provider keeps all records in memory. Profiles are matched in insertion order.
type Provider struct {
	mu       sync.RWMutex
	profiles []common.Profile
	nodes    map[string]common.BasisNode
	networks map[string]common.BasisNetwork
}

func NewProvider() *Provider {
	return &Provider{
		nodes:    make(map[string]common.BasisNode),
		networks: make(map[string]common.BasisNetwork),
	}
}

func (p *Provider) GetProfile(_ context.Context, features []string) (*common.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, ok := store.MatchProfile(p.profiles, features)
	if !ok {
		return nil, nil
	}
	return profile, nil
}

func (p *Provider) SaveProfile(_ context.Context, profile common.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.profiles {
		if p.profiles[i].ID == profile.ID {
			p.profiles[i] = profile
			return nil
		}
	}
	p.profiles = append(p.profiles, profile)
	return nil
}

func (p *Provider) GetBasisNodeByLineage(_ context.Context, lineage hash.Lineage) (*common.BasisNode, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, ok := p.nodes[lineage.ID()]
	if !ok {
		return nil, nil
	}
	clone := n.Clone()
	return &clone, nil
}

func (p *Provider) SaveBasisNode(_ context.Context, lineage hash.Lineage, node common.BasisNode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nodes[lineage.ID()] = node.Clone()
	return nil
}

func (p *Provider) GetBasisNetworkBySubgraphHash(_ context.Context, subgraph hash.Hash) (*common.BasisNetwork, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, ok := p.networks[subgraph.String()]
	if !ok {
		return nil, nil
	}
	clone := n.Clone()
	return &clone, nil
}

func (p *Provider) SaveBasisNetwork(_ context.Context, subgraph hash.Hash, network common.BasisNetwork) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.networks[subgraph.String()] = network.Clone()
	return nil
}

// BasisNodes returns a snapshot of all stored basis nodes keyed by lineage id.
func (p *Provider) BasisNodes() map[string]common.BasisNode {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]common.BasisNode, len(p.nodes))
	for k, v := range p.nodes {
		out[k] = v.Clone()
	}
	return out
}

// BasisNetworks returns a snapshot of all stored basis networks keyed by subgraph hash.
func (p *Provider) BasisNetworks() map[string]common.BasisNetwork {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]common.BasisNetwork, len(p.networks))
	for k, v := range p.networks {
		out[k] = v.Clone()
	}
	return out
}

func (p *Provider) Close() error {
	return nil
}
