package store

import (
	"context"
	"io"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
)

// Provider is the only seam through which analysis reads and writes durable
// state. Implementations must be safe for concurrent use.
//
// Getters return (nil, nil) when nothing is stored. Returned values are
// snapshots; callers may modify them freely.
//
// Saves are idempotent upserts: saving a BasisNode for a lineage that already
// has one replaces it, so a store never holds more than one record per lineage
// (and likewise per subgraph hash for networks).
type Provider interface {
	GetProfile(ctx context.Context, features []string) (*common.Profile, error)
	SaveProfile(ctx context.Context, profile common.Profile) error

	GetBasisNodeByLineage(ctx context.Context, lineage hash.Lineage) (*common.BasisNode, error)
	SaveBasisNode(ctx context.Context, lineage hash.Lineage, node common.BasisNode) error

	GetBasisNetworkBySubgraphHash(ctx context.Context, subgraph hash.Hash) (*common.BasisNetwork, error)
	SaveBasisNetwork(ctx context.Context, subgraph hash.Hash, network common.BasisNetwork) error

	io.Closer
}
