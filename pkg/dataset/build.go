package dataset

import (
	"fmt"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
	"github.com/OFFIS-RIT/parversion/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type builder struct {
	ds    *Dataset
	ht    common.HashTransformation
	newID func() (string, error)
}

// Build walks root depth-first and returns the populated Dataset. The hash
// transformation computes each node's content hash from its fields and
// description.
func Build(root document.Node, ht common.HashTransformation) (*Dataset, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: document has no root", common.ErrInternal)
	}

	b := &builder{
		ds: newDataset(),
		ht: ht,
		newID: func() (string, error) {
			return gonanoid.New()
		},
	}

	g, err := b.visit(root, "", hash.RootLineage())
	if err != nil {
		return nil, err
	}
	b.ds.RootKey = g.Key

	logger.Debug("[Dataset] Built dataset", "nodes", b.ds.Len(), "lineage_groups", len(b.ds.LineageGroups))
	return b.ds, nil
}

func (b *builder) visit(n document.Node, parent Key, parentLineage hash.Lineage) (*GraphNode, error) {
	id, err := b.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to mint key: %w", common.ErrInternal, err)
	}
	key := Key(id)

	b.ds.DocumentNodes[key] = n
	b.ds.DocumentKeys[n.ID()] = key

	data, err := b.dataNode(key, n, parentLineage)
	if err != nil {
		return nil, err
	}
	b.ds.DataNodes[key] = data
	b.ds.DataKeys[data.ID] = key
	b.group(data.Lineage, key)

	children := n.Children()
	childKeys := make([]Key, 0, len(children))
	childSubgraphs := make([]hash.Hash, 0, len(children))
	for _, c := range children {
		cg, err := b.visit(c, key, data.Lineage)
		if err != nil {
			return nil, err
		}
		childKeys = append(childKeys, cg.Key)
		childSubgraphs = append(childSubgraphs, cg.SubgraphHash)
	}

	subgraph := hash.Open()
	if err := subgraph.Extend(data.Hash); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if err := subgraph.Extend(childSubgraphs...); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}

	graphID, err := b.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to mint graph id: %w", common.ErrInternal, err)
	}

	var parents []Key
	if parent != "" {
		parents = []Key{parent}
	}

	g := &GraphNode{
		ID:           graphID,
		Key:          key,
		Data:         data,
		Parents:      parents,
		Children:     childKeys,
		SubgraphHash: *subgraph.Finalize(),
	}
	b.ds.GraphNodes[key] = g
	b.ds.GraphKeys[g.ID] = key

	return g, nil
}

func (b *builder) dataNode(key Key, n document.Node, parentLineage hash.Lineage) (*DataNode, error) {
	id, err := b.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to mint data id: %w", common.ErrInternal, err)
	}

	fields := n.Fields()
	description := n.Description()
	h := b.ht.Apply(fields, description)

	lineage, err := parentLineage.Extend(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}

	return &DataNode{
		ID:          id,
		Key:         key,
		Fields:      fields,
		Description: description,
		Hash:        h,
		Lineage:     lineage,
	}, nil
}

func (b *builder) group(l hash.Lineage, key Key) {
	id := l.ID()
	g, ok := b.ds.LineageGroups[id]
	if !ok {
		g = &LineageGroup{Lineage: l}
		b.ds.LineageGroups[id] = g
		b.ds.lineageOrder = append(b.ds.lineageOrder, id)
	}
	g.Keys = append(g.Keys, key)
}
