package store

import (
	"github.com/OFFIS-RIT/parversion/pkg/common"
)

// ProfileThreshold is the Jaccard similarity a stored profile must exceed to
// match a document.
const ProfileThreshold = 0.8

// Jaccard returns |a ∩ b| / |a ∪ b| over the distinct elements of both sets.
// Two empty sets are identical.
func Jaccard(a, b []string) float64 {
	set := make(map[string]uint8, len(a)+len(b))
	for _, v := range a {
		set[v] |= 1
	}
	for _, v := range b {
		set[v] |= 2
	}
	if len(set) == 0 {
		return 1.0
	}

	intersection := 0
	for _, m := range set {
		if m == 3 {
			intersection++
		}
	}
	return float64(intersection) / float64(len(set))
}

// MatchProfile returns the first profile, in the given order, whose features
// are more similar than ProfileThreshold. It does not search for the best
// match.
func MatchProfile(profiles []common.Profile, features []string) (*common.Profile, bool) {
	for i := range profiles {
		if Jaccard(profiles[i].Features, features) > ProfileThreshold {
			p := profiles[i]
			return &p, true
		}
	}
	return nil, false
}

// DedupeStrings drops empty and repeated values, keeping first occurrences.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
