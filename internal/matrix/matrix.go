// Package matrix holds the compatibility rule table: predicates over an
// environment profile mapped to ordered launch candidates. Rules are data,
// loaded once and immutable for the session.
package matrix

import (
	"sort"

	"webuictl/pkg/types"
)

// Predicate gates a rule on environment facts. Unknown facts are treated
// conservatively: a constraint on a fact never matches when that fact is
// unknown.
type Predicate struct {
	// Accelerator lists acceptable classes; empty accepts any, including unknown.
	Accelerator []types.AcceleratorClass `json:"accelerator,omitempty" yaml:"accelerator,omitempty" toml:"accelerator,omitempty"`
	MinVRAMBytes int64                   `json:"min_vram_bytes,omitempty" yaml:"min_vram_bytes,omitempty" toml:"min_vram_bytes,omitempty"`
	MaxVRAMBytes int64                   `json:"max_vram_bytes,omitempty" yaml:"max_vram_bytes,omitempty" toml:"max_vram_bytes,omitempty"`
	// Requires lists capabilities that must be known present.
	Requires []types.Capability `json:"requires,omitempty" yaml:"requires,omitempty" toml:"requires,omitempty"`
	OS       []string           `json:"os,omitempty" yaml:"os,omitempty" toml:"os,omitempty"`
}

// Matches reports whether the profile satisfies every constraint.
func (p Predicate) Matches(prof types.Profile) bool {
	if len(p.Accelerator) > 0 {
		if prof.Accelerator == types.AcceleratorUnknown || !containsClass(p.Accelerator, prof.Accelerator) {
			return false
		}
	}
	if p.MinVRAMBytes > 0 && (prof.VRAMBytes <= 0 || prof.VRAMBytes < p.MinVRAMBytes) {
		return false
	}
	if p.MaxVRAMBytes > 0 && (prof.VRAMBytes <= 0 || prof.VRAMBytes > p.MaxVRAMBytes) {
		return false
	}
	for _, c := range p.Requires {
		if !prof.Has(c) {
			return false
		}
	}
	if len(p.OS) > 0 && !containsString(p.OS, prof.OS) {
		return false
	}
	return true
}

// Rule authorizes an ordered list of candidates for profiles its predicate
// matches. Candidate order within a rule is never changed at runtime.
type Rule struct {
	Name       string            `json:"name" yaml:"name" toml:"name"`
	Priority   int               `json:"priority" yaml:"priority" toml:"priority"`
	When       Predicate         `json:"when,omitempty" yaml:"when,omitempty" toml:"when,omitempty"`
	Candidates []types.Candidate `json:"candidates" yaml:"candidates" toml:"candidates"`
}

// Matrix is the loaded rule table.
type Matrix struct {
	Version int    `json:"version" yaml:"version" toml:"version"`
	Rules   []Rule `json:"rules" yaml:"rules" toml:"rules"`
}

// RulesFor returns every rule matching the profile, sorted by descending
// priority with ties broken by declaration order.
func (m *Matrix) RulesFor(prof types.Profile) []Rule {
	var out []Rule
	for _, r := range m.Rules {
		if r.When.Matches(prof) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

func containsClass(s []types.AcceleratorClass, v types.AcceleratorClass) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
