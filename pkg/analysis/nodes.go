package analysis

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

// AnalyzeNodes returns one BasisNode per lineage group of meta, in group
// order. Stored basis nodes are reused verbatim; the oracle is called only
// for lineages the Provider does not know.
func (c *Client) AnalyzeNodes(ctx context.Context, meta *MetaContext) ([]common.BasisNode, error) {
	groups := meta.Groups()
	results := make([]common.BasisNode, len(groups))

	logger.Debug("[Analysis] Analyzing nodes", "lineage_groups", len(groups), "parallel", c.parallelNodes)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelNodes)
	for i, group := range groups {
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
			}

			node, err := c.analyzeGroup(ctx, meta, group)
			if err != nil {
				return err
			}
			results[i] = node
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) analyzeGroup(ctx context.Context, meta *MetaContext, group ContextGroup) (common.BasisNode, error) {
	v, err, shared := c.flight.Do(group.Lineage.ID(), func() (any, error) {
		return c.deriveBasisNode(ctx, meta, group)
	})
	if err != nil {
		return common.BasisNode{}, err
	}
	if shared {
		logger.Debug("[Analysis] Shared in-flight basis node", "lineage", group.Lineage.String())
	}
	return v.(common.BasisNode).Clone(), nil
}

func (c *Client) deriveBasisNode(ctx context.Context, meta *MetaContext, group ContextGroup) (common.BasisNode, error) {
	existing, err := c.provider.GetBasisNodeByLineage(ctx, group.Lineage)
	if err != nil {
		return common.BasisNode{}, fmt.Errorf("failed to get basis node for lineage %s: %w", group.Lineage, err)
	}
	if existing != nil {
		c.metrics.BasisNodeHit()
		return *existing, nil
	}
	c.metrics.BasisNodeMiss()

	rep := group.Representative()
	if rep == nil {
		return common.BasisNode{}, fmt.Errorf("%w: empty context group for lineage %s", common.ErrInternal, group.Lineage)
	}
	if c.oracle == nil {
		return common.BasisNode{}, fmt.Errorf("%w: no oracle configured", common.ErrOracle)
	}

	c.metrics.OracleCall()
	transformations, err := c.oracle.ProposeTransformations(ctx, meta, group)
	if err != nil {
		if !errors.Is(err, common.ErrOracle) {
			err = fmt.Errorf("%w: %w", common.ErrOracle, err)
		}
		return common.BasisNode{}, fmt.Errorf("failed to propose transformations for %s: %w", rep.Data.Description, err)
	}

	for _, t := range transformations {
		if err := c.runtime.Compile(t); err != nil {
			return common.BasisNode{}, fmt.Errorf("%w: invalid transformation for field %s of %s: %w",
				common.ErrOracle, t.Field, rep.Data.Description, err)
		}
	}

	id, err := c.newID()
	if err != nil {
		return common.BasisNode{}, fmt.Errorf("%w: failed to mint basis node id: %w", common.ErrInternal, err)
	}

	node := common.BasisNode{
		ID:              id,
		Hash:            rep.Data.Hash,
		Description:     rep.Data.Description,
		Lineage:         group.Lineage,
		Transformations: transformations,
	}
	if err := c.provider.SaveBasisNode(ctx, group.Lineage, node); err != nil {
		return common.BasisNode{}, fmt.Errorf("failed to save basis node for lineage %s: %w", group.Lineage, err)
	}

	logger.Debug("[Analysis] Derived basis node",
		"description", node.Description,
		"lineage", group.Lineage.String(),
		"transformations", len(transformations),
		"group_size", len(group.Contexts),
	)
	return node, nil
}
