package dataset

import (
	"testing"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/document"
)

func listTree() *document.MemNode {
	return document.Element("ul", map[string]string{"class": "items"},
		document.Element("li", nil, document.Text("A")),
		document.Element("li", nil, document.Text("B")),
		document.Element("li", nil, document.Text("C")),
	)
}

func TestBuild_SharedKeys(t *testing.T) {
	ds, err := Build(listTree(), common.DefaultHashTransformation())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if ds.Len() != 7 {
		t.Fatalf("Len() got = %d, want 7", ds.Len())
	}
	for key, g := range ds.GraphNodes {
		if _, ok := ds.DataNodes[key]; !ok {
			t.Fatalf("data index missing key %s", key)
		}
		if _, ok := ds.DocumentNodes[key]; !ok {
			t.Fatalf("document index missing key %s", key)
		}
		if ds.GraphKeys[g.ID] != key {
			t.Fatalf("graph id %s maps to %s, want %s", g.ID, ds.GraphKeys[g.ID], key)
		}
		if ds.DataKeys[g.Data.ID] != key {
			t.Fatalf("data id %s maps to %s, want %s", g.Data.ID, ds.DataKeys[g.Data.ID], key)
		}
	}
}

func TestBuild_LineageGroups(t *testing.T) {
	ds, err := Build(listTree(), common.DefaultHashTransformation())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	groups := ds.Groups()
	// ul, li, #text
	if len(groups) != 3 {
		t.Fatalf("Groups() got = %d groups, want 3", len(groups))
	}

	sizes := []int{1, 3, 3}
	for i, g := range groups {
		if len(g.Keys) != sizes[i] {
			t.Fatalf("group %d size got = %d, want %d", i, len(g.Keys), sizes[i])
		}
	}

	li := groups[1]
	for _, k := range li.Keys {
		if ds.DataNodes[k].Description != "<li>" {
			t.Fatalf("li group contains %s", ds.DataNodes[k].Description)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, _ := Build(listTree(), common.DefaultHashTransformation())
	b, _ := Build(listTree(), common.DefaultHashTransformation())

	ga, gb := a.Groups(), b.Groups()
	if len(ga) != len(gb) {
		t.Fatalf("group count got = %d, want %d", len(gb), len(ga))
	}
	for i := range ga {
		if !ga[i].Lineage.Equal(gb[i].Lineage) {
			t.Fatalf("group %d lineage got = %s, want %s", i, gb[i].Lineage, ga[i].Lineage)
		}
	}
	if !a.Root().SubgraphHash.Equal(b.Root().SubgraphHash) {
		t.Fatal("root subgraph hash differs between runs")
	}
}

func TestBuild_DistinctContent(t *testing.T) {
	root := document.Element("div", nil,
		document.Element("a", map[string]string{"href": "x"}),
		document.Element("a", map[string]string{"title": "x"}),
		document.Element("span", map[string]string{"href": "x"}),
	)
	ds, err := Build(root, common.DefaultHashTransformation())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	children := ds.Children(ds.Root())
	seen := map[string]bool{}
	for _, c := range children {
		d := c.Data.Hash.String()
		if seen[d] {
			t.Fatalf("hash collision for %s %v", c.Data.Description, c.Data.Fields)
		}
		seen[d] = true
	}
}

func TestBuild_IncludeValues(t *testing.T) {
	root := document.Element("div", nil,
		document.Element("input", map[string]string{"type": "text"}),
		document.Element("input", map[string]string{"type": "submit"}),
	)
	ht := common.DefaultHashTransformation()
	ht.IncludeValues = []string{"type"}

	ds, err := Build(root, ht)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	children := ds.Children(ds.Root())
	if children[0].Data.Lineage.Equal(children[1].Data.Lineage) {
		t.Fatal("included value did not separate lineages")
	}
}

func TestBuild_ExcludedFieldsIgnored(t *testing.T) {
	root := document.Element("div", nil,
		document.Element("td", map[string]string{"width": "10"}),
		document.Element("td", nil),
	)
	ds, err := Build(root, common.DefaultHashTransformation())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	children := ds.Children(ds.Root())
	if !children[0].Data.Lineage.Equal(children[1].Data.Lineage) {
		t.Fatal("presentational attribute changed lineage")
	}
}

func TestBuild_SubgraphHash(t *testing.T) {
	ds, err := Build(listTree(), common.DefaultHashTransformation())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	root := ds.Root()
	items := ds.Children(root)
	for _, li := range items[1:] {
		if !li.SubgraphHash.Equal(items[0].SubgraphHash) {
			t.Fatal("identical list items have different subgraph hashes")
		}
		if li.Parents[0] != root.Key {
			t.Fatalf("parent key got = %s, want %s", li.Parents[0], root.Key)
		}
	}
	if root.SubgraphHash.Equal(items[0].SubgraphHash) {
		t.Fatal("list and item share a subgraph hash")
	}

	shorter := document.Element("ul", map[string]string{"class": "items"},
		document.Element("li", nil, document.Text("A")),
		document.Element("li", nil, document.Text("B")),
	)
	ds2, _ := Build(shorter, common.DefaultHashTransformation())
	if ds2.Root().SubgraphHash.Equal(root.SubgraphHash) {
		t.Fatal("lists of different length share a subgraph hash")
	}
}

func TestBuild_NilRoot(t *testing.T) {
	if _, err := Build(nil, common.DefaultHashTransformation()); err == nil {
		t.Fatal("Build(nil) expected error")
	}
}
