package common

import (
	"slices"

	"github.com/OFFIS-RIT/parversion/pkg/hash"
)

// Profile is a previously seen document fingerprint together with the
// transformations that were derived for documents of that shape.
//
// Features is the set of shape digests of every node in the document. A new
// document reuses a profile when the Jaccard similarity of the feature sets is
// above the match threshold.
type Profile struct {
	ID                    string                `json:"id" yaml:"id"`
	Description           string                `json:"description" yaml:"description"`
	Features              []string              `json:"features" yaml:"features"`
	ElementTransformation ElementTransformation `json:"element_transformation" yaml:"element_transformation"`
	HashTransformation    HashTransformation    `json:"hash_transformation" yaml:"hash_transformation"`

	// MeaningfulFields, when set, restricts node analysis to the named
	// fields. Other fields are eliminated without consulting the oracle.
	MeaningfulFields []string `json:"meaningful_fields,omitempty" yaml:"meaningful_fields,omitempty"`
}

// BasisNode is the persisted outcome of node analysis for one lineage: the
// ordered field transformations that normalize every node of that shape.
//
// A BasisNode is immutable once saved and is keyed by its lineage.
type BasisNode struct {
	ID              string                `json:"id" yaml:"id"`
	Hash            hash.Hash             `json:"hash" yaml:"hash"`
	Description     string                `json:"description" yaml:"description"`
	Lineage         hash.Lineage          `json:"lineage" yaml:"lineage"`
	Transformations []FieldTransformation `json:"transformations" yaml:"transformations"`
}

// Clone returns a copy that shares no slices with n.
func (n BasisNode) Clone() BasisNode {
	n.Lineage = n.Lineage.Clone()
	n.Transformations = slices.Clone(n.Transformations)
	return n
}

// BasisNetwork is the persisted classification of one unique subgraph shape.
// It is keyed by the subgraph hash.
type BasisNetwork struct {
	ID           string              `json:"id" yaml:"id"`
	Name         string              `json:"name" yaml:"name"`
	Description  string              `json:"description" yaml:"description"`
	SubgraphHash hash.Hash           `json:"subgraph_hash" yaml:"subgraph_hash"`
	Relationship NetworkRelationship `json:"relationship" yaml:"relationship"`
}

// Clone returns a copy that shares no slices with n.
func (n BasisNetwork) Clone() BasisNetwork {
	n.Relationship = n.Relationship.Clone()
	return n
}

// RelationshipKind enumerates the network relationship classifications.
type RelationshipKind string

const (
	RelationshipNull        RelationshipKind = "null"
	RelationshipRecursion   RelationshipKind = "recursion"
	RelationshipAssociation RelationshipKind = "association"
)

// Recursion describes a subgraph that repeats along one lineage, such as the
// items of a list.
type Recursion struct {
	Lineage        hash.Lineage         `json:"lineage" yaml:"lineage"`
	Transformation *FieldTransformation `json:"transformation,omitempty" yaml:"transformation,omitempty"`
}

// NetworkRelationship is a tagged union over the relationship kinds. Exactly
// the field matching Kind is populated.
type NetworkRelationship struct {
	Kind        RelationshipKind `json:"kind" yaml:"kind"`
	Recursion   *Recursion       `json:"recursion,omitempty" yaml:"recursion,omitempty"`
	Association []hash.Hash      `json:"association,omitempty" yaml:"association,omitempty"`
}

func NullRelationship() NetworkRelationship {
	return NetworkRelationship{Kind: RelationshipNull}
}

func RecursionRelationship(lineage hash.Lineage) NetworkRelationship {
	return NetworkRelationship{
		Kind:      RelationshipRecursion,
		Recursion: &Recursion{Lineage: lineage},
	}
}

func AssociationRelationship(subgraphs []hash.Hash) NetworkRelationship {
	return NetworkRelationship{
		Kind:        RelationshipAssociation,
		Association: subgraphs,
	}
}

func (r NetworkRelationship) Clone() NetworkRelationship {
	if r.Recursion != nil {
		rec := *r.Recursion
		rec.Lineage = rec.Lineage.Clone()
		if rec.Transformation != nil {
			t := *rec.Transformation
			rec.Transformation = &t
		}
		r.Recursion = &rec
	}
	r.Association = slices.Clone(r.Association)
	return r
}

// FieldTransformation maps one field of a data node to a normalized JSON
// key/value pair, or eliminates the field.
//
// Code is evaluated by the runtime named in Runtime. It sees the field name,
// its value and the full field map, and yields the value stored under Key.
type FieldTransformation struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Field       string `json:"field" yaml:"field"`
	Key         string `json:"key" yaml:"key"`
	Runtime     string `json:"runtime" yaml:"runtime"`
	Code        string `json:"code" yaml:"code"`
}
