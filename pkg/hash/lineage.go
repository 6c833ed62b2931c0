package hash

import (
	"fmt"
	"slices"
	"strconv"
)

// Lineage is the structural address of a node: the ordered sequence of
// ancestor content hashes plus an identity hash over that sequence.
//
// Two lineages are equal iff their identity hashes are equal. SourceHashes is
// kept for derivation and debugging only.
type Lineage struct {
	SourceHashes []Hash `json:"source_hashes" yaml:"source_hashes"`
	IdentityHash Hash   `json:"identity_hash" yaml:"identity_hash"`
}

// RootLineage returns the lineage of the empty sequence.
func RootLineage() Lineage {
	return Lineage{
		SourceHashes: []Hash{},
		IdentityHash: identity(nil),
	}
}

// Extend returns a new Lineage with h appended to the source sequence. The
// receiver is not modified.
func (l Lineage) Extend(h Hash) (Lineage, error) {
	if !h.IsFinalized() {
		return Lineage{}, fmt.Errorf("failed to extend lineage: %w", ErrNotFinalized)
	}

	sources := make([]Hash, 0, len(l.SourceHashes)+1)
	sources = append(sources, l.SourceHashes...)
	sources = append(sources, h)

	return Lineage{
		SourceHashes: sources,
		IdentityHash: identity(sources),
	}, nil
}

// ID returns the identity digest, suitable as a map or storage key.
func (l Lineage) ID() string {
	return l.IdentityHash.String()
}

// Equal compares identity hashes only.
func (l Lineage) Equal(other Lineage) bool {
	return l.IdentityHash.Equal(other.IdentityHash)
}

// Depth returns the number of source hashes.
func (l Lineage) Depth() int {
	return len(l.SourceHashes)
}

// Last returns the most recent source hash, if any.
func (l Lineage) Last() (Hash, bool) {
	if len(l.SourceHashes) == 0 {
		return Hash{}, false
	}
	return l.SourceHashes[len(l.SourceHashes)-1], true
}

// Clone returns a deep copy.
func (l Lineage) Clone() Lineage {
	return Lineage{
		SourceHashes: slices.Clone(l.SourceHashes),
		IdentityHash: l.IdentityHash,
	}
}

func (l Lineage) String() string {
	return l.IdentityHash.Short()
}

// identity hashes positional inputs so the order of ancestors is significant.
func identity(sources []Hash) Hash {
	h := Open()
	for i, s := range sources {
		_ = h.Add(strconv.Itoa(i) + ":" + s.String())
	}
	return *h.Finalize()
}
