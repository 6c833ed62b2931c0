package common

import (
	"slices"

	"github.com/OFFIS-RIT/parversion/pkg/hash"
)

// PresentationalAttributes are attributes that only affect rendering and are
// dropped before hashing and analysis.
var PresentationalAttributes = []string{
	"style",
	"bgcolor",
	"border",
	"cellpadding",
	"cellspacing",
	"width",
	"height",
}

// SkippedElements are elements whose whole subtree carries no content.
var SkippedElements = []string{
	"script",
	"style",
	"noscript",
	"template",
	"head",
}

// ElementTransformation is the policy applied to document nodes before they
// enter the dataset.
type ElementTransformation struct {
	ID                    string   `json:"id" yaml:"id"`
	Description           string   `json:"description" yaml:"description"`
	SkipElements          []string `json:"skip_elements" yaml:"skip_elements"`
	BlacklistedAttributes []string `json:"blacklisted_attributes" yaml:"blacklisted_attributes"`
	KeepWhitespace        bool     `json:"keep_whitespace" yaml:"keep_whitespace"`
}

func DefaultElementTransformation() ElementTransformation {
	return ElementTransformation{
		ID:                    "default",
		Description:           "Drops presentational attributes and non-content elements",
		SkipElements:          slices.Clone(SkippedElements),
		BlacklistedAttributes: slices.Clone(PresentationalAttributes),
	}
}

// HashTransformation computes the content hash of a data node from its fields
// and description.
//
// Only field names enter the hash unless a field is listed in IncludeValues,
// so nodes of one shape hash alike regardless of their text.
type HashTransformation struct {
	ID            string   `json:"id" yaml:"id"`
	Description   string   `json:"description" yaml:"description"`
	IncludeValues []string `json:"include_values" yaml:"include_values"`
	ExcludeFields []string `json:"exclude_fields" yaml:"exclude_fields"`
}

func DefaultHashTransformation() HashTransformation {
	return HashTransformation{
		ID:            "default",
		Description:   "Hashes description and field names, ignoring presentational attributes",
		ExcludeFields: slices.Clone(PresentationalAttributes),
	}
}

// Apply returns the finalized content hash for the given fields and description.
func (t HashTransformation) Apply(fields map[string]string, description string) hash.Hash {
	h := hash.Open()
	_ = h.Add("description:" + description)
	for name, value := range fields {
		if slices.Contains(t.ExcludeFields, name) {
			continue
		}
		_ = h.Add("field:" + name)
		if slices.Contains(t.IncludeValues, name) {
			_ = h.Add("value:" + name + "=" + value)
		}
	}
	return *h.Finalize()
}
