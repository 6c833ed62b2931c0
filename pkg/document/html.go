package document

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/html"
)

type htmlNode struct {
	id   string
	node *html.Node
}

func parseHTML(text string) (Node, error) {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return &htmlNode{id: "0", node: c}, nil
		}
	}
	return nil, errors.New("document has no root element")
}

func (n *htmlNode) ID() string {
	return n.id
}

func (n *htmlNode) Name() string {
	if n.node.Type == html.TextNode {
		return TextName
	}
	return n.node.Data
}

func (n *htmlNode) Fields() map[string]string {
	if n.node.Type == html.TextNode {
		return map[string]string{TextField: n.node.Data}
	}

	fields := make(map[string]string, len(n.node.Attr))
	for _, attr := range n.node.Attr {
		key := attr.Key
		if attr.Namespace != "" {
			key = attr.Namespace + ":" + key
		}
		fields[key] = attr.Val
	}
	return fields
}

func (n *htmlNode) Description() string {
	if n.node.Type == html.TextNode {
		return TextName
	}
	return "<" + n.node.Data + ">"
}

func (n *htmlNode) Children() []Node {
	var children []Node
	i := 0
	for c := n.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode && c.Type != html.TextNode {
			continue
		}
		children = append(children, &htmlNode{id: childID(n.id, i), node: c})
		i++
	}
	return children
}

func (n *htmlNode) Markup() string {
	if n.node.Type == html.TextNode {
		return html.EscapeString(n.node.Data)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, n.node); err != nil {
		return ""
	}
	return buf.String()
}
