// Package dataset walks a document once and builds the parallel document,
// data and graph node indices the analysis phases read.
//
// Every visited node receives one synthetic Key shared by all three indices.
// Graph nodes reference each other by Key only and are constructed exactly
// once, after their children, so nothing is mutated after construction.
package dataset

import (
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
)

// Key is the per-traversal synthetic identifier of one logical node.
type Key string

// DataNode is the normalized content of one document node.
type DataNode struct {
	ID          string
	Key         Key
	Fields      map[string]string
	Description string
	Hash        hash.Hash
	Lineage     hash.Lineage
}

// GraphNode wraps a DataNode with structural links and a subgraph hash that
// identifies the shape of the subtree rooted here.
type GraphNode struct {
	ID           string
	Key          Key
	Data         *DataNode
	Parents      []Key
	Children     []Key
	SubgraphHash hash.Hash
}

func (g *GraphNode) IsLeaf() bool {
	return len(g.Children) == 0
}

// LineageGroup lists the keys of all nodes sharing one lineage, in traversal order.
type LineageGroup struct {
	Lineage hash.Lineage
	Keys    []Key
}

// Dataset is the read-only result of one traversal.
type Dataset struct {
	DocumentNodes map[Key]document.Node
	DataNodes     map[Key]*DataNode
	GraphNodes    map[Key]*GraphNode

	DocumentKeys map[string]Key
	DataKeys     map[string]Key
	GraphKeys    map[string]Key

	LineageGroups map[string]*LineageGroup
	lineageOrder  []string

	RootKey Key
}

func newDataset() *Dataset {
	return &Dataset{
		DocumentNodes: make(map[Key]document.Node),
		DataNodes:     make(map[Key]*DataNode),
		GraphNodes:    make(map[Key]*GraphNode),
		DocumentKeys:  make(map[string]Key),
		DataKeys:      make(map[string]Key),
		GraphKeys:     make(map[string]Key),
		LineageGroups: make(map[string]*LineageGroup),
	}
}

// Root returns the graph node of the document root.
func (d *Dataset) Root() *GraphNode {
	return d.GraphNodes[d.RootKey]
}

// Groups returns the lineage groups in the order their lineage was first seen.
func (d *Dataset) Groups() []*LineageGroup {
	groups := make([]*LineageGroup, 0, len(d.lineageOrder))
	for _, id := range d.lineageOrder {
		groups = append(groups, d.LineageGroups[id])
	}
	return groups
}

// Children resolves the child keys of g.
func (d *Dataset) Children(g *GraphNode) []*GraphNode {
	children := make([]*GraphNode, 0, len(g.Children))
	for _, k := range g.Children {
		children = append(children, d.GraphNodes[k])
	}
	return children
}

// ParentDocument returns the document node of the first parent of key, if any.
func (d *Dataset) ParentDocument(key Key) document.Node {
	g, ok := d.GraphNodes[key]
	if !ok || len(g.Parents) == 0 {
		return nil
	}
	return d.DocumentNodes[g.Parents[0]]
}

// Len returns the number of nodes in the dataset.
func (d *Dataset) Len() int {
	return len(d.GraphNodes)
}
