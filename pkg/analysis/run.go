package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/dataset"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/store"
)

// Stats summarizes one run.
type Stats struct {
	Nodes         int           `json:"nodes"`
	LineageGroups int           `json:"lineage_groups"`
	Subgraphs     int           `json:"subgraphs"`
	SkippedNodes  int           `json:"skipped_nodes"`
	Duration      time.Duration `json:"duration"`
}

// Result is the outcome of Analyze. Outputs is keyed by subgraph digest;
// Document is the merged output of the root subgraph.
type Result struct {
	Profile       common.Profile            `json:"profile"`
	BasisNodes    []common.BasisNode        `json:"basis_nodes"`
	BasisNetworks []common.BasisNetwork     `json:"basis_networks"`
	Outputs       map[string]map[string]any `json:"outputs"`
	Document      map[string]any            `json:"document"`
	Stats         Stats                     `json:"stats"`
}

// Analyze runs profile resolution, dataset construction, node analysis and
// network analysis over doc. Any failure aborts the run and no partial
// result is returned.
func (c *Client) Analyze(ctx context.Context, doc *document.Document) (res *Result, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RunFinished(time.Since(start), err)
	}()

	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("%w: document has no root", common.ErrInternal)
	}

	profile, err := c.resolveProfile(ctx, doc)
	if err != nil {
		return nil, err
	}

	root := document.WithPolicy(doc.Root, profile.ElementTransformation)
	ds, err := dataset.Build(root, profile.HashTransformation)
	if err != nil {
		return nil, err
	}
	meta := NewMetaContext(ds, doc)
	meta.Profile = profile

	nodes, err := c.AnalyzeNodes(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("node analysis failed: %w", err)
	}

	networks, err := c.AnalyzeNetworks(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("network analysis failed: %w", err)
	}

	res = &Result{
		Profile:       *profile,
		BasisNodes:    nodes,
		BasisNetworks: networks.Networks,
		Outputs:       networks.Outputs,
		Document:      networks.Document,
		Stats: Stats{
			Nodes:         ds.Len(),
			LineageGroups: len(nodes),
			Subgraphs:     len(networks.Networks),
			SkippedNodes:  networks.Skipped,
			Duration:      time.Since(start),
		},
	}

	logger.Info("[Analysis] Finished analysis",
		"url", doc.URL,
		"nodes", res.Stats.Nodes,
		"lineage_groups", res.Stats.LineageGroups,
		"subgraphs", res.Stats.Subgraphs,
		"skipped_nodes", res.Stats.SkippedNodes,
		"duration", res.Stats.Duration.String(),
	)
	return res, nil
}

// resolveProfile returns the stored profile matching the features of doc or
// saves a default profile carrying them. Features are taken from the tree as
// the default element policy filters it.
func (c *Client) resolveProfile(ctx context.Context, doc *document.Document) (*common.Profile, error) {
	features := document.Features(document.WithPolicy(doc.Root, common.DefaultElementTransformation()))

	profile, err := c.provider.GetProfile(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile != nil {
		profile.MeaningfulFields = store.DedupeStrings(profile.MeaningfulFields)
		logger.Debug("[Analysis] Reusing profile", "profile_id", profile.ID)
		return profile, nil
	}

	id, err := c.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to mint profile id: %w", common.ErrInternal, err)
	}
	description := "Default profile"
	if doc.URL != "" {
		description = "Default profile for " + doc.URL
	}
	profile = &common.Profile{
		ID:                    id,
		Description:           description,
		Features:              features,
		ElementTransformation: common.DefaultElementTransformation(),
		HashTransformation:    common.DefaultHashTransformation(),
	}
	if err := c.provider.SaveProfile(ctx, *profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	logger.Debug("[Analysis] Created profile", "profile_id", profile.ID, "features", len(features))
	return profile, nil
}
