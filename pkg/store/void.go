package store

import (
	"context"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
)

// VoidProvider stores nothing and finds nothing. Every run against it
// recomputes all basis data.
type VoidProvider struct{}

func NewVoidProvider() VoidProvider {
	return VoidProvider{}
}

func (VoidProvider) GetProfile(context.Context, []string) (*common.Profile, error) {
	return nil, nil
}

func (VoidProvider) SaveProfile(context.Context, common.Profile) error {
	return nil
}

func (VoidProvider) GetBasisNodeByLineage(context.Context, hash.Lineage) (*common.BasisNode, error) {
	return nil, nil
}

func (VoidProvider) SaveBasisNode(context.Context, hash.Lineage, common.BasisNode) error {
	return nil
}

func (VoidProvider) GetBasisNetworkBySubgraphHash(context.Context, hash.Hash) (*common.BasisNetwork, error) {
	return nil, nil
}

func (VoidProvider) SaveBasisNetwork(context.Context, hash.Hash, common.BasisNetwork) error {
	return nil
}

func (VoidProvider) Close() error {
	return nil
}
