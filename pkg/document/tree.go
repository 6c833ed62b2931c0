package document

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// MemNode is an in-memory document node for trees assembled in code rather
// than parsed from text.
type MemNode struct {
	name     string
	fields   map[string]string
	children []*MemNode
}

// Element returns an element node with the given attributes and children.
func Element(name string, attrs map[string]string, children ...*MemNode) *MemNode {
	return &MemNode{name: name, fields: maps.Clone(attrs), children: children}
}

// Text returns a text node.
func Text(s string) *MemNode {
	return &MemNode{name: TextName, fields: map[string]string{TextField: s}}
}

func (n *MemNode) ID() string {
	return fmt.Sprintf("mem-%p", n)
}

func (n *MemNode) Name() string {
	return n.name
}

func (n *MemNode) Fields() map[string]string {
	return maps.Clone(n.fields)
}

func (n *MemNode) Description() string {
	if n.name == TextName {
		return TextName
	}
	return "<" + n.name + ">"
}

func (n *MemNode) Children() []Node {
	children := make([]Node, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c)
	}
	return children
}

func (n *MemNode) Markup() string {
	if n.name == TextName {
		return html.EscapeString(n.fields[TextField])
	}

	var b strings.Builder
	b.WriteString("<" + n.name)
	for _, k := range slices.Sorted(maps.Keys(n.fields)) {
		b.WriteString(" " + k + `="` + html.EscapeString(n.fields[k]) + `"`)
	}
	b.WriteString(">")
	for _, c := range n.children {
		b.WriteString(c.Markup())
	}
	b.WriteString("</" + n.name + ">")
	return b.String()
}
