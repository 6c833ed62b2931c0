// Package document adapts parsed HTML and XML trees to the node contract the
// dataset builder consumes.
package document

import (
	"fmt"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/parversion/pkg/common"
)

// TextField is the field name under which text nodes carry their content.
const TextField = "text"

// TextName is the name reported by text nodes.
const TextName = "#text"

// Node is one node of a parsed document.
//
// Element nodes expose their attributes as fields and "<tag>" as description.
// Text nodes expose a single TextField and the description "#text".
type Node interface {
	ID() string
	Name() string
	Fields() map[string]string
	Description() string
	Children() []Node
	Markup() string
}

type Format string

const (
	FormatAuto Format = "auto"
	FormatHTML Format = "html"
	FormatXML  Format = "xml"
)

// ParseFormat maps user input to a Format. Unknown values fall back to FormatAuto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatHTML:
		return FormatHTML
	case FormatXML:
		return FormatXML
	default:
		return FormatAuto
	}
}

// Document is a parsed input together with its source annotations.
type Document struct {
	Root   Node
	Format Format
	URL    string
	Text   string
}

// Parse builds a Document from raw text. With FormatAuto, text with an XML
// declaration is parsed as XML and everything else as HTML.
func Parse(text string, format Format, sourceURL string) (*Document, error) {
	if format == "" || format == FormatAuto {
		format = detectFormat(text)
	}

	var (
		root Node
		err  error
	)
	switch format {
	case FormatXML:
		root, err = parseXML(text)
	case FormatHTML:
		root, err = parseHTML(text)
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s document: %w", common.ErrInputIO, format, err)
	}

	return &Document{
		Root:   root,
		Format: format,
		URL:    sourceURL,
		Text:   text,
	}, nil
}

func detectFormat(text string) Format {
	if strings.HasPrefix(strings.TrimSpace(text), "<?xml") {
		return FormatXML
	}
	return FormatHTML
}

// IsText reports whether n is a text node.
func IsText(n Node) bool {
	return n.Name() == TextName
}

// FieldNames returns the sorted field names of n.
func FieldNames(n Node) []string {
	fields := n.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Features returns the sorted set of default shape digests over every node
// reachable from root.
func Features(root Node) []string {
	ht := common.DefaultHashTransformation()
	seen := make(map[string]struct{})

	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		seen[ht.Apply(n.Fields(), n.Description()).String()] = struct{}{}
		stack = append(stack, n.Children()...)
	}

	features := make([]string, 0, len(seen))
	for f := range seen {
		features = append(features, f)
	}
	slices.Sort(features)
	return features
}

// Snippet renders the markup of parent with target delimited by marker
// comments. If target cannot be located, only the target markup is returned
// inside the markers.
func Snippet(parent, target Node) string {
	const (
		start = "<!-- Target node: Start -->"
		end   = "<!-- Target node: End -->"
	)

	inner := target.Markup()
	marked := start + inner + end
	if parent == nil || inner == "" {
		return marked
	}

	outer := parent.Markup()
	if idx := strings.Index(outer, inner); idx >= 0 {
		return outer[:idx] + marked + outer[idx+len(inner):]
	}
	return marked
}

func childID(parent string, index int) string {
	if parent == "" {
		return fmt.Sprintf("%d", index)
	}
	return fmt.Sprintf("%s.%d", parent, index)
}
