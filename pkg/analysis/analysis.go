// Package analysis derives basis nodes and basis networks for a document.
//
// Node analysis produces one BasisNode per lineage group, consulting the
// Provider first and the Oracle only on a miss. Network analysis classifies
// every unique non-leaf subgraph and merges the transformed fields of its
// nodes into a JSON object.
//
// Both phases fan out over a bounded number of workers and fail fast: the
// first error aborts the phase, work not yet started is skipped and results
// of work already running are discarded.
package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/store"
	"github.com/OFFIS-RIT/parversion/pkg/transform"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Oracle proposes field transformations for the representative of group.
type Oracle interface {
	ProposeTransformations(ctx context.Context, meta *MetaContext, group ContextGroup) ([]common.FieldTransformation, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, meta *MetaContext, group ContextGroup) ([]common.FieldTransformation, error)

func (f OracleFunc) ProposeTransformations(ctx context.Context, meta *MetaContext, group ContextGroup) ([]common.FieldTransformation, error) {
	return f(ctx, meta, group)
}

// Recorder receives run statistics. NopRecorder discards them.
type Recorder interface {
	OracleCall()
	BasisNodeHit()
	BasisNodeMiss()
	NetworkDerived(kind common.RelationshipKind)
	NodeSkipped()
	RunFinished(d time.Duration, err error)
}

type NopRecorder struct{}

func (NopRecorder) OracleCall() {}
func (NopRecorder) BasisNodeHit() {}
func (NopRecorder) BasisNodeMiss() {}
func (NopRecorder) NetworkDerived(common.RelationshipKind) {}
func (NopRecorder) NodeSkipped() {}
func (NopRecorder) RunFinished(time.Duration, error) {}

const (
	DefaultParallelNodes    = 8
	DefaultParallelNetworks = 8
)

// Client runs analyses against one Provider. It is safe for concurrent use;
// concurrent runs share in-process deduplication of lineage misses.
//
// A Client should be created using NewAnalysisClient.
type Client struct {
	provider store.Provider
	oracle   Oracle
	runtime  transform.Runtime
	metrics  Recorder

	parallelNodes    int
	parallelNetworks int

	flight singleflight.Group
	newID  func() (string, error)
}

// NewAnalysisClientParams defines the configuration parameters for creating
// a new Client.
//
// ParallelNodes and ParallelNetworks bound the number of lineage groups and
// subgraphs processed at once. Runtime defaults to a CEL runtime.
type NewAnalysisClientParams struct {
	Provider store.Provider
	Oracle   Oracle
	Runtime  transform.Runtime
	Metrics  Recorder

	ParallelNodes    int
	ParallelNetworks int
}

// NewAnalysisClient creates a Client. A nil Provider falls back to the void
// provider, which stores nothing.
//
// Example:
//
//	client, err := analysis.NewAnalysisClient(analysis.NewAnalysisClientParams{
//		Provider:      memory.NewProvider(),
//		Oracle:        llmOracle,
//		ParallelNodes: 4,
//	})
func NewAnalysisClient(params NewAnalysisClientParams) (*Client, error) {
	provider := params.Provider
	if provider == nil {
		provider = store.NewVoidProvider()
	}

	runtime := params.Runtime
	if runtime == nil {
		r, err := transform.NewCELRuntime()
		if err != nil {
			return nil, err
		}
		runtime = r
	}

	metrics := params.Metrics
	if metrics == nil {
		metrics = NopRecorder{}
	}

	parallelNodes := params.ParallelNodes
	if parallelNodes <= 0 {
		parallelNodes = DefaultParallelNodes
	}
	parallelNetworks := params.ParallelNetworks
	if parallelNetworks <= 0 {
		parallelNetworks = DefaultParallelNetworks
	}

	return &Client{
		provider:         provider,
		oracle:           params.Oracle,
		runtime:          runtime,
		metrics:          metrics,
		parallelNodes:    parallelNodes,
		parallelNetworks: parallelNetworks,
		newID: func() (string, error) {
			return gonanoid.New()
		},
	}, nil
}

// Provider returns the Provider the client reads from and writes to.
func (c *Client) Provider() store.Provider {
	return c.provider
}
