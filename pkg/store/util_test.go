package store

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{name: "both empty", want: 1.0},
		{name: "one empty", a: []string{"x"}, want: 0},
		{name: "identical", a: []string{"a", "b"}, b: []string{"b", "a"}, want: 1.0},
		{name: "half", a: []string{"a", "b"}, b: []string{"b", "c", "a", "d"}, want: 0.5},
		{name: "duplicates ignored", a: []string{"a", "a", "b"}, b: []string{"a"}, want: 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Jaccard(tc.a, tc.b); got != tc.want {
				t.Fatalf("Jaccard() got = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatchProfile_Threshold(t *testing.T) {
	features := []string{"a", "b", "c", "d", "e"}

	// 4 of 5 shared: exactly at the threshold, which does not exceed it
	atThreshold := common.Profile{ID: "at", Features: []string{"a", "b", "c", "d"}}
	if _, ok := MatchProfile([]common.Profile{atThreshold}, features); ok {
		t.Fatal("MatchProfile() matched at exactly the threshold")
	}

	above := common.Profile{ID: "above", Features: features}
	got, ok := MatchProfile([]common.Profile{atThreshold, above}, features)
	if !ok || got.ID != "above" {
		t.Fatalf("MatchProfile() got = %v, want above", got)
	}
}

// MatchProfile returns the first profile above the threshold even when a
// later one is a strictly better match.
func TestMatchProfile_FirstMatchNotBestMatch(t *testing.T) {
	features := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	good := common.Profile{ID: "good", Features: features[:9]}
	best := common.Profile{ID: "best", Features: features}

	got, ok := MatchProfile([]common.Profile{good, best}, features)
	if !ok {
		t.Fatal("MatchProfile() found nothing")
	}
	if got.ID != "good" {
		t.Fatalf("MatchProfile() got = %s, want good (first match wins)", got.ID)
	}
}

func TestVoidProvider(t *testing.T) {
	ctx := context.Background()
	p := NewVoidProvider()
	l, _ := hash.RootLineage().Extend(hash.FromStrings("x"))

	if err := p.SaveBasisNode(ctx, l, common.BasisNode{ID: "n"}); err != nil {
		t.Fatalf("SaveBasisNode() error = %v", err)
	}
	got, err := p.GetBasisNodeByLineage(ctx, l)
	if err != nil || got != nil {
		t.Fatalf("GetBasisNodeByLineage() got = %v, %v, want nil, nil", got, err)
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"a", "", "b", "a"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("DedupeStrings() got = %v, want [a b]", got)
	}
}
