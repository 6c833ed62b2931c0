package document

import (
	"slices"
	"strings"

	"github.com/OFFIS-RIT/parversion/pkg/common"
)

type filteredNode struct {
	Node
	policy common.ElementTransformation
}

// WithPolicy wraps root so that children and fields are filtered by the
// element transformation policy on every access.
func WithPolicy(root Node, policy common.ElementTransformation) Node {
	return &filteredNode{Node: root, policy: policy}
}

func (n *filteredNode) Fields() map[string]string {
	fields := n.Node.Fields()
	if IsText(n.Node) {
		return fields
	}
	for _, attr := range n.policy.BlacklistedAttributes {
		delete(fields, attr)
	}
	return fields
}

func (n *filteredNode) Children() []Node {
	var out []Node
	for _, child := range n.Node.Children() {
		if n.skip(child) {
			continue
		}
		out = append(out, &filteredNode{Node: child, policy: n.policy})
	}
	return out
}

func (n *filteredNode) skip(child Node) bool {
	if IsText(child) {
		if n.policy.KeepWhitespace {
			return false
		}
		return strings.TrimSpace(child.Fields()[TextField]) == ""
	}
	return slices.Contains(n.policy.SkipElements, strings.ToLower(child.Name()))
}
