package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stellarlinkco/rlgym/internal/config"
)

// Registry stores policies by name.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]Policy)}
}

// Register adds a policy under its own name.
func (r *Registry) Register(p Policy) {
	if p == nil {
		panic("policy: register nil policy")
	}
	r.RegisterAs(p.Name(), p)
}

// RegisterAs adds a policy under an explicit name, which may differ from
// the policy's own. Configured providers register under their config key.
func (r *Registry) RegisterAs(name string, p Policy) {
	if r == nil {
		panic("policy: register on nil registry")
	}
	if p == nil {
		panic("policy: register nil policy")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		panic("policy: register with empty name")
	}
	if r.policies == nil {
		r.policies = make(map[string]Policy)
	}
	r.policies[name] = p
}

// Get returns a named policy if present.
func (r *Registry) Get(name string) (Policy, bool) {
	if r == nil || r.policies == nil {
		return nil, false
	}
	p, ok := r.policies[strings.TrimSpace(name)]
	return p, ok
}

// NewRegistryFromConfig builds providers named in config.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("policy: nil config")
	}

	r := NewRegistry()
	for name, pcfg := range cfg.Policy.Providers {
		key := strings.ToLower(strings.TrimSpace(name))
		switch key {
		case "":
			continue
		case "claude", "anthropic":
			r.RegisterAs(key, NewClaude(pcfg.APIKey, pcfg.BaseURL, pcfg.Model))
		case "openai":
			r.RegisterAs(key, NewOpenAI(pcfg.APIKey, pcfg.BaseURL, pcfg.Model))
		default:
			return nil, fmt.Errorf("policy: unknown provider %q", name)
		}
	}
	return r, nil
}

// DefaultFromConfig returns the configured default policy.
func DefaultFromConfig(cfg *config.Config) (Policy, error) {
	if cfg == nil {
		return nil, errors.New("policy: nil config")
	}
	reg, err := NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(cfg.Policy.DefaultProvider)
	if name == "" {
		name = "claude"
	}
	if p, ok := reg.Get(name); ok {
		return p, nil
	}
	if len(reg.policies) == 1 {
		for _, p := range reg.policies {
			return p, nil
		}
	}

	available := make([]string, 0, len(reg.policies))
	for k := range reg.policies {
		available = append(available, k)
	}
	sort.Strings(available)
	return nil, fmt.Errorf("policy: default provider %q not configured (available: %s)", name, strings.Join(available, ", "))
}
