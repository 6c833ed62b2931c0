package analysis

import (
	"sync"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/dataset"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
)

// Context pairs a data node with its lineage.
type Context struct {
	Key     dataset.Key
	Data    *dataset.DataNode
	Lineage hash.Lineage
}

// ContextGroup holds every Context sharing one lineage, in traversal order.
// Members are interchangeable for derivation; the first is the representative.
type ContextGroup struct {
	Lineage  hash.Lineage
	Contexts []*Context
}

// Representative returns the first member of the group.
func (g ContextGroup) Representative() *Context {
	if len(g.Contexts) == 0 {
		return nil
	}
	return g.Contexts[0]
}

// MetaContext is the whole-document view shared read-only by both analysis
// phases. Contexts is keyed by graph node id. Profile is nil outside Analyze.
type MetaContext struct {
	Dataset  *dataset.Dataset
	Document *document.Document
	Profile  *common.Profile
	Root     *dataset.GraphNode
	Contexts map[string]*Context

	groups []ContextGroup

	summaryOnce sync.Once
	summary     string
}

// NewMetaContext indexes every graph node of ds. doc may be nil.
func NewMetaContext(ds *dataset.Dataset, doc *document.Document) *MetaContext {
	m := &MetaContext{
		Dataset:  ds,
		Document: doc,
		Root:     ds.Root(),
		Contexts: make(map[string]*Context, ds.Len()),
	}

	byKey := make(map[dataset.Key]*Context, ds.Len())
	for key, g := range ds.GraphNodes {
		c := &Context{Key: key, Data: g.Data, Lineage: g.Data.Lineage}
		m.Contexts[g.ID] = c
		byKey[key] = c
	}

	for _, lg := range ds.Groups() {
		group := ContextGroup{Lineage: lg.Lineage, Contexts: make([]*Context, 0, len(lg.Keys))}
		for _, k := range lg.Keys {
			group.Contexts = append(group.Contexts, byKey[k])
		}
		m.groups = append(m.groups, group)
	}
	return m
}

// Groups returns the context groups in the order their lineage was first seen.
func (m *MetaContext) Groups() []ContextGroup {
	return m.groups
}

// Context resolves the Context of g.
func (m *MetaContext) Context(g *dataset.GraphNode) *Context {
	return m.Contexts[g.ID]
}

// DocumentNode returns the filtered document node behind c and its parent.
func (m *MetaContext) DocumentNode(c *Context) (node, parent document.Node) {
	return m.Dataset.DocumentNodes[c.Key], m.Dataset.ParentDocument(c.Key)
}

// Summary returns the readable text of the source document, computed once.
func (m *MetaContext) Summary() string {
	m.summaryOnce.Do(func() {
		if m.Document != nil {
			m.summary = document.Summarize(m.Document.Text, m.Document.URL)
		}
	})
	return m.summary
}

// URL returns the source annotation of the document, if any.
func (m *MetaContext) URL() string {
	if m.Document == nil {
		return ""
	}
	return m.Document.URL
}
