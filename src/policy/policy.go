// Package policy defines the named element and attribute allow-lists used
// by the sanitizer.
package policy

import (
	"fmt"
	"slices"
)

const (
	Strict   = "strict"
	Basic    = "basic"
	Advanced = "advanced"
)

// ConfigError reports an unknown policy name or an invalid definition.
type ConfigError struct {
	Policy string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("policy %q: %s", e.Policy, e.Reason)
}

// Definition is the serializable form of a policy.
type Definition struct {
	Name       string   `yaml:"name" json:"name"`
	Extends    string   `yaml:"extends,omitempty" json:"extends,omitempty"`
	Elements   []string `yaml:"allowed_elements" json:"allowedElements"`
	Attributes []string `yaml:"allowed_attributes" json:"allowedAttributes"`
}

// Policy is an immutable allow-list. Names are matched exactly, including
// case and any namespace prefix.
type Policy struct {
	name       string
	elements   map[string]struct{}
	attributes map[string]struct{}
}

// New builds a policy from a definition. The element set must include svg.
func New(def Definition) (*Policy, error) {
	if def.Name == "" {
		return nil, &ConfigError{Reason: "name is required"}
	}
	p := &Policy{
		name:       def.Name,
		elements:   toSet(def.Elements),
		attributes: toSet(def.Attributes),
	}
	if _, ok := p.elements["svg"]; !ok {
		return nil, &ConfigError{Policy: def.Name, Reason: "allowed elements must include svg"}
	}
	return p, nil
}

// Name returns the policy identifier.
func (p *Policy) Name() string { return p.name }

// AllowsElement reports whether an element name survives sanitization.
func (p *Policy) AllowsElement(name string) bool {
	_, ok := p.elements[name]
	return ok
}

// AllowsAttribute reports whether an attribute name survives sanitization.
func (p *Policy) AllowsAttribute(name string) bool {
	_, ok := p.attributes[name]
	return ok
}

// Definition returns the policy as sorted, de-duplicated lists.
func (p *Policy) Definition() Definition {
	return Definition{
		Name:       p.name,
		Elements:   sortedKeys(p.elements),
		Attributes: sortedKeys(p.attributes),
	}
}

// Merge returns base with the override's lists added. The override's name
// wins when set. The result is not validated; pass it to New.
func Merge(base, override Definition) Definition {
	merged := Definition{
		Name:       base.Name,
		Elements:   slices.Clone(base.Elements),
		Attributes: slices.Clone(base.Attributes),
	}
	if override.Name != "" {
		merged.Name = override.Name
	}
	merged.Elements = append(merged.Elements, override.Elements...)
	merged.Attributes = append(merged.Attributes, override.Attributes...)
	return merged
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
