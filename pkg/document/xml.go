package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type xmlElement struct {
	name     string
	attrs    []xml.Attr
	text     string
	isText   bool
	children []*xmlElement
}

type xmlNode struct {
	id   string
	elem *xmlElement
}

func parseXML(text string) (Node, error) {
	dec := xml.NewDecoder(strings.NewReader(text))

	var (
		root  *xmlElement
		stack []*xmlElement
	)
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlElement{name: qualified(t.Name), attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("document has more than one root element")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %q", t.Name.Local)
			}
			if open := stack[len(stack)-1].name; open != qualified(t.Name) {
				return nil, fmt.Errorf("element <%s> closed by </%s>", open, qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, &xmlElement{
				name:   TextName,
				text:   string(t),
				isText: true,
			})
		}
	}

	if root == nil {
		return nil, errors.New("document has no root element")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("element <%s> is never closed", stack[len(stack)-1].name)
	}
	return &xmlNode{id: "0", elem: root}, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func (n *xmlNode) ID() string {
	return n.id
}

func (n *xmlNode) Name() string {
	return n.elem.name
}

func (n *xmlNode) Fields() map[string]string {
	if n.elem.isText {
		return map[string]string{TextField: n.elem.text}
	}
	fields := make(map[string]string, len(n.elem.attrs))
	for _, attr := range n.elem.attrs {
		fields[qualified(attr.Name)] = attr.Value
	}
	return fields
}

func (n *xmlNode) Description() string {
	if n.elem.isText {
		return TextName
	}
	return "<" + n.elem.name + ">"
}

func (n *xmlNode) Children() []Node {
	children := make([]Node, 0, len(n.elem.children))
	for i, c := range n.elem.children {
		children = append(children, &xmlNode{id: childID(n.id, i), elem: c})
	}
	return children
}

func (n *xmlNode) Markup() string {
	var buf bytes.Buffer
	writeXML(&buf, n.elem)
	return buf.String()
}

func writeXML(buf *bytes.Buffer, el *xmlElement) {
	if el.isText {
		_ = xml.EscapeText(buf, []byte(el.text))
		return
	}

	buf.WriteString("<" + el.name)
	for _, attr := range el.attrs {
		buf.WriteString(" " + qualified(attr.Name) + `="`)
		_ = xml.EscapeText(buf, []byte(attr.Value))
		buf.WriteString(`"`)
	}
	if len(el.children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	for _, c := range el.children {
		writeXML(buf, c)
	}
	buf.WriteString("</" + el.name + ">")
}
