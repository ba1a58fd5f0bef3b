// Package resolve turns a probed environment profile into an ordered list of
// launch candidates, best first.
package resolve

import (
	"webuictl/internal/matrix"
	"webuictl/pkg/types"
)

// SafeMode is the built-in fallback when no rule matches: maximum
// compatibility, minimum performance. The resolver never returns an empty
// list while a runtime exists at all.
var SafeMode = types.Candidate{
	Label:     "safe mode (built-in)",
	Precision: types.PrecisionFull,
	Attention: types.AttentionStandard,
	Memory:    types.MemoryLow,
}

// Resolver resolves candidates against one immutable rule table.
type Resolver struct {
	m *matrix.Matrix
}

func New(m *matrix.Matrix) *Resolver { return &Resolver{m: m} }

// Resolve concatenates the candidates of every matching rule in
// priority-then-declaration order, de-duplicated by candidate identity with
// first-seen position kept. A candidate reachable through two rules is tried
// once, at its best-ranked position.
func (r *Resolver) Resolve(prof types.Profile) []types.Candidate {
	var out []types.Candidate
	seen := map[string]bool{}
	for _, rule := range r.m.RulesFor(prof) {
		for _, c := range rule.Candidates {
			if seen[c.Key()] {
				continue
			}
			seen[c.Key()] = true
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, SafeMode)
	}
	return out
}
