// Package pgx implements a store.Provider on PostgreSQL. Records are kept as
// JSONB payloads keyed by lineage id, subgraph digest or profile id.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

const (
	selectProfiles = `SELECT payload FROM profiles ORDER BY seq`
	upsertProfile  = `INSERT INTO profiles (id, payload) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

	selectBasisNode = `SELECT payload FROM basis_nodes WHERE lineage_id = $1`
	upsertBasisNode = `INSERT INTO basis_nodes (lineage_id, payload) VALUES ($1, $2)
ON CONFLICT (lineage_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

	selectBasisNetwork = `SELECT payload FROM basis_networks WHERE subgraph_hash = $1`
	upsertBasisNetwork = `INSERT INTO basis_networks (subgraph_hash, payload) VALUES ($1, $2)
ON CONFLICT (subgraph_hash) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`
)

// Provider stores basis records in PostgreSQL. The schema is created by
// Migrate.
type Provider struct {
	conn  pgxIConn
	close func()
}

// NewProviderWithConnection wraps an existing connection or pool. Close does
// not close conn.
func NewProviderWithConnection(conn pgxIConn) *Provider {
	return &Provider{conn: conn}
}

// NewProvider opens a pool for databaseURL and owns it.
func NewProvider(ctx context.Context, databaseURL string) (*Provider, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %w", common.ErrInputIO, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", common.ErrInputIO, err)
	}
	return &Provider{conn: pool, close: pool.Close}, nil
}

func (p *Provider) GetProfile(ctx context.Context, features []string) (*common.Profile, error) {
	rows, err := p.conn.Query(ctx, selectProfiles)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query profiles: %w", common.ErrInputIO, err)
	}
	defer rows.Close()

	var profiles []common.Profile
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: failed to scan profile: %w", common.ErrInputIO, err)
		}
		var profile common.Profile
		if err := json.Unmarshal(payload, &profile); err != nil {
			return nil, fmt.Errorf("%w: failed to decode profile: %w", common.ErrStoreParse, err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read profiles: %w", common.ErrInputIO, err)
	}

	profile, ok := store.MatchProfile(profiles, features)
	if !ok {
		return nil, nil
	}
	return profile, nil
}

func (p *Provider) SaveProfile(ctx context.Context, profile common.Profile) error {
	return p.upsert(ctx, upsertProfile, profile.ID, profile)
}

func (p *Provider) GetBasisNodeByLineage(ctx context.Context, lineage hash.Lineage) (*common.BasisNode, error) {
	var node common.BasisNode
	found, err := p.get(ctx, selectBasisNode, lineage.ID(), &node)
	if err != nil || !found {
		return nil, err
	}
	return &node, nil
}

func (p *Provider) SaveBasisNode(ctx context.Context, lineage hash.Lineage, node common.BasisNode) error {
	if err := p.upsert(ctx, upsertBasisNode, lineage.ID(), node); err != nil {
		return err
	}
	logger.Debug("[Store] Saved basis node", "lineage", lineage.String())
	return nil
}

func (p *Provider) GetBasisNetworkBySubgraphHash(ctx context.Context, subgraph hash.Hash) (*common.BasisNetwork, error) {
	var network common.BasisNetwork
	found, err := p.get(ctx, selectBasisNetwork, subgraph.String(), &network)
	if err != nil || !found {
		return nil, err
	}
	return &network, nil
}

func (p *Provider) SaveBasisNetwork(ctx context.Context, subgraph hash.Hash, network common.BasisNetwork) error {
	return p.upsert(ctx, upsertBasisNetwork, subgraph.String(), network)
}

func (p *Provider) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}

func (p *Provider) get(ctx context.Context, query, key string, dst any) (bool, error) {
	var payload []byte
	err := p.conn.QueryRow(ctx, query, key).Scan(&payload)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to query %s: %w", common.ErrInputIO, key, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("%w: failed to decode %s: %w", common.ErrStoreParse, key, err)
	}
	return true, nil
}

func (p *Provider) upsert(ctx context.Context, query, key string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %w", common.ErrOutputIO, key, err)
	}
	if _, err := p.conn.Exec(ctx, query, key, payload); err != nil {
		return fmt.Errorf("%w: failed to upsert %s: %w", common.ErrOutputIO, key, err)
	}
	return nil
}
