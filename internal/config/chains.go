package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownChain is returned when a chain id is not configured.
var ErrUnknownChain = errors.New("unknown chain")

// Chain describes one network the registries are deployed on.
type Chain struct {
	ID                 int64  `yaml:"id"`
	Name               string `yaml:"name"`
	BundlerURL         string `yaml:"bundler_url"`
	IdentityRegistry   string `yaml:"identity_registry"`
	ReputationRegistry string `yaml:"reputation_registry"`
	ValidationRegistry string `yaml:"validation_registry"`
	AssociationsStore  string `yaml:"associations_store"`
	ExplorerURL        string `yaml:"explorer_url"`
}

// Chains is the set of supported networks keyed by chain id.
type Chains struct {
	byID map[int64]Chain
}

type chainsFile struct {
	Chains []Chain `yaml:"chains"`
}

// DefaultChains returns the testnets the dashboard ships with.
func DefaultChains() *Chains {
	c, _ := NewChains([]Chain{
		{ID: 11155111, Name: "sepolia", ExplorerURL: "https://sepolia.etherscan.io"},
		{ID: 84532, Name: "base-sepolia", ExplorerURL: "https://sepolia.basescan.org"},
		{ID: 11155420, Name: "optimism-sepolia", ExplorerURL: "https://sepolia-optimism.etherscan.io"},
	})
	return c
}

// NewChains validates list and indexes it by id.
func NewChains(list []Chain) (*Chains, error) {
	if len(list) == 0 {
		return nil, errors.New("no chains configured")
	}
	byID := make(map[int64]Chain, len(list))
	for _, ch := range list {
		if ch.ID <= 0 {
			return nil, fmt.Errorf("chain %q: id must be positive", ch.Name)
		}
		if _, dup := byID[ch.ID]; dup {
			return nil, fmt.Errorf("chain %d declared twice", ch.ID)
		}
		byID[ch.ID] = ch
	}
	return &Chains{byID: byID}, nil
}

// LoadChains reads a YAML chains file. An empty path yields DefaultChains.
func LoadChains(path string) (*Chains, error) {
	if path == "" {
		return DefaultChains(), nil
	}
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read chains file: %w", err)
	}
	return ParseChains(raw)
}

// ParseChains decodes the YAML document form of a chains file.
func ParseChains(raw []byte) (*Chains, error) {
	var f chainsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse chains file: %w", err)
	}
	return NewChains(f.Chains)
}

// Get returns the chain registered under id.
func (c *Chains) Get(id int64) (Chain, error) {
	ch, ok := c.byID[id]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, id)
	}
	return ch, nil
}

// IDs lists the configured chain ids in ascending order.
func (c *Chains) IDs() []int64 {
	ids := make([]int64, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
