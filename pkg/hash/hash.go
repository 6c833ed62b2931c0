// Package hash provides the content-addressed identity model: order-independent
// content digests and the lineages built from them.
//
// A Hash starts open and accumulates inputs. Once finalized it is immutable and
// can be compared, combined into other hashes, and serialized.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrNotFinalized is returned when an open Hash is used where a finalized one is required.
	ErrNotFinalized = errors.New("hash is not finalized")
	// ErrFinalized is returned when inputs are added to an already finalized Hash.
	ErrFinalized = errors.New("hash is already finalized")
)

// Hash is an order-independent content digest.
//
// The zero value is an open Hash with no inputs.
type Hash struct {
	inputs    []string
	digest    string
	finalized bool
}

// Open returns a new, empty, open Hash.
func Open() *Hash {
	return &Hash{}
}

// FromStrings returns a finalized Hash over the given inputs.
func FromStrings(inputs ...string) Hash {
	h := Hash{inputs: slices.Clone(inputs)}
	h.Finalize()
	return h
}

// FromDigest returns a finalized Hash carrying an already computed digest.
func FromDigest(digest string) Hash {
	return Hash{digest: digest, finalized: true}
}

// Add appends raw string inputs to an open Hash.
func (h *Hash) Add(inputs ...string) error {
	if h.finalized {
		return ErrFinalized
	}
	h.inputs = append(h.inputs, inputs...)
	return nil
}

// Extend folds finalized child hashes into h. If any child is still open,
// nothing is added and ErrNotFinalized is returned.
func (h *Hash) Extend(items ...Hash) error {
	if h.finalized {
		return ErrFinalized
	}
	for i, item := range items {
		if !item.finalized {
			return fmt.Errorf("child %d: %w", i, ErrNotFinalized)
		}
	}
	for _, item := range items {
		h.inputs = append(h.inputs, item.digest)
	}
	return nil
}

// Finalize closes the Hash. Calling it more than once has no effect.
func (h *Hash) Finalize() *Hash {
	if h.finalized {
		return h
	}

	sorted := slices.Clone(h.inputs)
	slices.Sort(sorted)

	sum := sha256.New()
	for _, in := range sorted {
		// length prefix keeps ("ab","c") and ("a","bc") apart
		fmt.Fprintf(sum, "%d:%s;", len(in), in)
	}

	h.digest = hex.EncodeToString(sum.Sum(nil))
	h.inputs = nil
	h.finalized = true
	return h
}

// IsFinalized reports whether the Hash has been closed.
func (h Hash) IsFinalized() bool {
	return h.finalized
}

// String returns the hex digest of a finalized Hash, or an empty string while open.
func (h Hash) String() string {
	return h.digest
}

// Short returns an abbreviated digest for log output.
func (h Hash) Short() string {
	if len(h.digest) <= 12 {
		return h.digest
	}
	return h.digest[:12]
}

// Equal reports whether both hashes are finalized and carry the same digest.
func (h Hash) Equal(other Hash) bool {
	return h.finalized && other.finalized && h.digest == other.digest
}

func (h Hash) MarshalText() ([]byte, error) {
	if !h.finalized {
		return nil, ErrNotFinalized
	}
	return []byte(h.digest), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	digest := strings.TrimSpace(string(text))
	if digest == "" {
		return errors.New("empty hash digest")
	}
	h.inputs = nil
	h.digest = digest
	h.finalized = true
	return nil
}
