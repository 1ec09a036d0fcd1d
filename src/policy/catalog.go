package policy

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog resolves policy names. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

// NewCatalog returns a catalog holding the built-in tiers.
func NewCatalog() *Catalog {
	c := &Catalog{policies: make(map[string]*Policy)}
	for _, def := range Builtins() {
		p, err := New(def)
		if err != nil {
			panic(fmt.Sprintf("invalid built-in policy: %v", err))
		}
		c.policies[p.Name()] = p
	}
	return c
}

// Lookup returns the named policy. Unknown names fail with *ConfigError;
// there is no fallback tier.
func (c *Catalog) Lookup(name string) (*Policy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.policies[name]
	if !ok {
		return nil, &ConfigError{Policy: name, Reason: "unknown policy"}
	}
	return p, nil
}

// Names returns the registered policy names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.policies))
	for n := range c.policies {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Register validates def and adds it, replacing any policy with the same
// name. When def.Extends is set the named policy's lists are merged in
// first.
func (c *Catalog) Register(def Definition) (*Policy, error) {
	if def.Extends != "" {
		base, err := c.Lookup(def.Extends)
		if err != nil {
			return nil, &ConfigError{Policy: def.Name, Reason: fmt.Sprintf("extends %q: unknown policy", def.Extends)}
		}
		def = Merge(base.Definition(), def)
	}

	p, err := New(def)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.policies[p.Name()] = p
	c.mu.Unlock()
	return p, nil
}

// Pack is a file of custom policy definitions.
type Pack struct {
	Policies []Definition `yaml:"policies"`
}

// LoadPack reads a YAML policy pack and registers each definition in file
// order, so later entries may extend earlier ones.
func (c *Catalog) LoadPack(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading policy pack %s: %w", path, err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return fmt.Errorf("parsing policy pack %s: %w", path, err)
	}

	for i, def := range pack.Policies {
		if _, err := c.Register(def); err != nil {
			return fmt.Errorf("policy pack %s: policies[%d]: %w", path, i, err)
		}
	}
	return nil
}
