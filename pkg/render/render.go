// Package render writes analysis results in the supported output formats.
package render

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/parversion/pkg/analysis"
	"github.com/OFFIS-RIT/parversion/pkg/common"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatText Format = "text"
)

// ParseFormat maps user input to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXML, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// Extension returns the file extension used for f.
func (f Format) Extension() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatText:
		return "txt"
	default:
		return "json"
	}
}

// Render writes res to w. JSON carries the full result; XML and text carry
// the merged document output only.
func Render(w io.Writer, res *analysis.Result, format Format) error {
	var err error
	switch format {
	case FormatJSON, "":
		err = renderJSON(w, res)
	case FormatXML:
		err = renderXML(w, res.Document)
	case FormatText:
		err = renderText(w, res.Document)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to write %s output: %w", common.ErrOutputIO, format, err)
	}
	return nil
}

func renderJSON(w io.Writer, res *analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func renderXML(w io.Writer, doc map[string]any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encodeValue(enc, "document", doc); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeValue(enc *xml.Encoder, name string, v any) error {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if err := encodeValue(enc, name, item); err != nil {
				return err
			}
		}
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: ElementName(name)}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	switch t := v.(type) {
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			if err := encodeValue(enc, k, t[k]); err != nil {
				return err
			}
		}
	case nil:
	default:
		if err := enc.EncodeToken(xml.CharData(scalar(t))); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// ElementName turns a JSON key into a valid XML element name.
func ElementName(key string) string {
	var b strings.Builder
	for i, r := range key {
		valid := unicode.IsLetter(r) || r == '_' || (i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'))
		if !valid {
			if i == 0 && unicode.IsDigit(r) {
				b.WriteRune('_')
				b.WriteRune(r)
				continue
			}
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func renderText(w io.Writer, doc map[string]any) error {
	for _, k := range slices.Sorted(maps.Keys(doc)) {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, scalar(doc[k])); err != nil {
			return err
		}
	}
	return nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, scalar(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
