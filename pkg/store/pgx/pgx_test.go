package pgx

import (
	"context"
	"errors"
	"strings"
	"testing"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
	"github.com/OFFIS-RIT/parversion/pkg/store"
)

var _ store.Provider = (*Provider)(nil)

// fakeConn keeps one payload table per collection and dispatches on the
// table name found in the statement.
type fakeConn struct {
	tables map[string]map[string][]byte
	order  []string
	execs  int
	err    error
}

func newFakeConn() *fakeConn {
	return &fakeConn{tables: map[string]map[string][]byte{
		"profiles":       {},
		"basis_nodes":    {},
		"basis_networks": {},
	}}
}

func tableOf(sql string) string {
	for _, name := range []string{"basis_networks", "basis_nodes", "profiles"} {
		if strings.Contains(sql, name) {
			return name
		}
	}
	return ""
}

func (f *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.execs++
	table := tableOf(sql)
	key := args[0].(string)
	if _, ok := f.tables[table][key]; !ok && table == "profiles" {
		f.order = append(f.order, key)
	}
	f.tables[table][key] = args[1].([]byte)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeConn) Query(_ context.Context, sql string, _ ...any) (pgxv5.Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	rows := &fakeRows{idx: -1}
	for _, id := range f.order {
		rows.payloads = append(rows.payloads, f.tables["profiles"][id])
	}
	return rows, nil
}

func (f *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgxv5.Row {
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	payload, ok := f.tables[tableOf(sql)][args[0].(string)]
	if !ok {
		return fakeRow{err: pgxv5.ErrNoRows}
	}
	return fakeRow{payload: payload}
}

type fakeRow struct {
	payload []byte
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.payload
	return nil
}

type fakeRows struct {
	payloads [][]byte
	idx      int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgxv5.Conn                            { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.payloads)
}

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*[]byte) = r.payloads[r.idx]
	return nil
}

func TestProvider_BasisNode(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	p := NewProviderWithConnection(conn)

	l, _ := hash.RootLineage().Extend(hash.FromStrings("description:<li>"))
	if got, err := p.GetBasisNodeByLineage(ctx, l); err != nil || got != nil {
		t.Fatalf("GetBasisNodeByLineage() got = %v, %v, want nil, nil", got, err)
	}

	_ = p.SaveBasisNode(ctx, l, common.BasisNode{ID: "a", Lineage: l})
	_ = p.SaveBasisNode(ctx, l, common.BasisNode{ID: "b", Lineage: l})

	got, err := p.GetBasisNodeByLineage(ctx, l)
	if err != nil {
		t.Fatalf("GetBasisNodeByLineage() error = %v", err)
	}
	if got == nil || got.ID != "b" || !got.Lineage.Equal(l) {
		t.Fatalf("GetBasisNodeByLineage() got = %+v, want b", got)
	}
	if n := len(conn.tables["basis_nodes"]); n != 1 {
		t.Fatalf("basis_nodes rows got = %d, want 1", n)
	}
}

func TestProvider_BasisNetwork(t *testing.T) {
	ctx := context.Background()
	p := NewProviderWithConnection(newFakeConn())
	sub := hash.FromStrings("sub")
	members := []hash.Hash{hash.FromStrings("a"), hash.FromStrings("b")}

	_ = p.SaveBasisNetwork(ctx, sub, common.BasisNetwork{
		ID:           "n",
		SubgraphHash: sub,
		Relationship: common.AssociationRelationship(members),
	})

	got, err := p.GetBasisNetworkBySubgraphHash(ctx, sub)
	if err != nil {
		t.Fatalf("GetBasisNetworkBySubgraphHash() error = %v", err)
	}
	if got == nil || len(got.Relationship.Association) != 2 || !got.Relationship.Association[1].Equal(members[1]) {
		t.Fatalf("GetBasisNetworkBySubgraphHash() got = %+v", got)
	}
}

func TestProvider_ProfilesInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	p := NewProviderWithConnection(newFakeConn())

	_ = p.SaveProfile(ctx, common.Profile{ID: "first", Features: []string{"a", "b", "c", "d", "e"}})
	_ = p.SaveProfile(ctx, common.Profile{ID: "second", Features: []string{"a", "b", "c", "d", "e", "f"}})

	got, err := p.GetProfile(ctx, []string{"a", "b", "c", "d", "e", "f"})
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if got == nil || got.ID != "first" {
		t.Fatalf("GetProfile() got = %v, want first", got)
	}
}

func TestProvider_Errors(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	p := NewProviderWithConnection(conn)
	l := hash.RootLineage()

	conn.tables["basis_nodes"][l.ID()] = []byte("{broken")
	if _, err := p.GetBasisNodeByLineage(ctx, l); !errors.Is(err, common.ErrStoreParse) {
		t.Fatalf("GetBasisNodeByLineage() got err = %v, want %v", err, common.ErrStoreParse)
	}

	conn.err = errors.New("connection reset")
	if err := p.SaveBasisNode(ctx, l, common.BasisNode{}); !errors.Is(err, common.ErrOutputIO) {
		t.Fatalf("SaveBasisNode() got err = %v, want %v", err, common.ErrOutputIO)
	}
	if _, err := p.GetProfile(ctx, nil); !errors.Is(err, common.ErrInputIO) {
		t.Fatalf("GetProfile() got err = %v, want %v", err, common.ErrInputIO)
	}
}
