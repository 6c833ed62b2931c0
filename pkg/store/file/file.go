// Package file implements Providers backed by a single YAML or JSON document
// with three top-level collections: profiles, basis_nodes and basis_networks.
//
// Every save reads the whole document, modifies it and writes it back. Wrap a
// file Provider in memory.CachedProvider to avoid re-reading on every lookup.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/hash"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/store"
)

// Layout is the persisted document.
type Layout struct {
	Profiles      []common.Profile      `json:"profiles" yaml:"profiles"`
	BasisNodes    []common.BasisNode    `json:"basis_nodes" yaml:"basis_nodes"`
	BasisNetworks []common.BasisNetwork `json:"basis_networks" yaml:"basis_networks"`
}

type codec struct {
	name      string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	yamlCodec = codec{name: "yaml", marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}
	jsonCodec = codec{
		name: "json",
		marshal: func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		},
		unmarshal: json.Unmarshal,
	}
)

// Provider is a file-backed store.Provider. A missing file is treated as an
// empty document and created on the first save.
type Provider struct {
	path  string
	codec codec
	mu    sync.Mutex
}

func NewYAMLProvider(path string) *Provider {
	return &Provider{path: path, codec: yamlCodec}
}

func NewJSONProvider(path string) *Provider {
	return &Provider{path: path, codec: jsonCodec}
}

// NewProvider picks the codec from the file extension: .json selects JSON,
// anything else YAML.
func NewProvider(path string) *Provider {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONProvider(path)
	}
	return NewYAMLProvider(path)
}

func (p *Provider) Path() string {
	return p.path
}

// Load reads the whole document.
func (p *Provider) Load() (*Layout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

func (p *Provider) load() (*Layout, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Layout{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", common.ErrInputIO, p.path, err)
	}

	var layout Layout
	if len(strings.TrimSpace(string(data))) == 0 {
		return &layout, nil
	}
	if err := p.codec.unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s as %s: %w", common.ErrStoreParse, p.path, p.codec.name, err)
	}
	return &layout, nil
}

func (p *Provider) write(layout *Layout) error {
	data, err := p.codec.marshal(layout)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %w", common.ErrOutputIO, p.codec.name, err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", common.ErrOutputIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", common.ErrOutputIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %w", common.ErrOutputIO, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", common.ErrOutputIO, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %w", common.ErrOutputIO, p.path, err)
	}
	return nil
}

func (p *Provider) modify(fn func(*Layout)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	layout, err := p.load()
	if err != nil {
		return err
	}
	fn(layout)
	return p.write(layout)
}

func (p *Provider) GetProfile(_ context.Context, features []string) (*common.Profile, error) {
	layout, err := p.Load()
	if err != nil {
		return nil, err
	}
	profile, ok := store.MatchProfile(layout.Profiles, features)
	if !ok {
		return nil, nil
	}
	return profile, nil
}

func (p *Provider) SaveProfile(_ context.Context, profile common.Profile) error {
	return p.modify(func(l *Layout) {
		for i := range l.Profiles {
			if l.Profiles[i].ID == profile.ID {
				l.Profiles[i] = profile
				return
			}
		}
		l.Profiles = append(l.Profiles, profile)
	})
}

func (p *Provider) GetBasisNodeByLineage(_ context.Context, lineage hash.Lineage) (*common.BasisNode, error) {
	layout, err := p.Load()
	if err != nil {
		return nil, err
	}
	for _, n := range layout.BasisNodes {
		if n.Lineage.Equal(lineage) {
			return &n, nil
		}
	}
	return nil, nil
}

func (p *Provider) SaveBasisNode(_ context.Context, lineage hash.Lineage, node common.BasisNode) error {
	err := p.modify(func(l *Layout) {
		for i := range l.BasisNodes {
			if l.BasisNodes[i].Lineage.Equal(lineage) {
				l.BasisNodes[i] = node
				return
			}
		}
		l.BasisNodes = append(l.BasisNodes, node)
	})
	if err == nil {
		logger.Debug("[Store] Saved basis node", "path", p.path, "lineage", lineage.String())
	}
	return err
}

func (p *Provider) GetBasisNetworkBySubgraphHash(_ context.Context, subgraph hash.Hash) (*common.BasisNetwork, error) {
	layout, err := p.Load()
	if err != nil {
		return nil, err
	}
	for _, n := range layout.BasisNetworks {
		if n.SubgraphHash.Equal(subgraph) {
			return &n, nil
		}
	}
	return nil, nil
}

func (p *Provider) SaveBasisNetwork(_ context.Context, subgraph hash.Hash, network common.BasisNetwork) error {
	return p.modify(func(l *Layout) {
		for i := range l.BasisNetworks {
			if l.BasisNetworks[i].SubgraphHash.Equal(subgraph) {
				l.BasisNetworks[i] = network
				return
			}
		}
		l.BasisNetworks = append(l.BasisNetworks, network)
	})
}

func (p *Provider) Close() error {
	return nil
}
