// Package match implements the constraint-satisfaction engine that, given a
// compiled query.Pattern and a tree.Tree, enumerates every assignment of
// pattern variables to tree words that satisfies the pattern: DFS with
// forward checking, MRV variable ordering, and a global AllDifferent
// constraint.
package match

import (
	"github.com/oxhq/treesearch/errs"
	"github.com/oxhq/treesearch/query"
	"github.com/oxhq/treesearch/tree"
)

// Bindings maps a pattern variable name to the tree word index it is bound
// to. A variable from an OPTIONAL block that failed to bind is simply
// absent from the map.
type Bindings map[string]int

// Clone returns an independent copy, so callers may extend one solution's
// bindings without mutating the original.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Match pairs one set of bindings with the tree it was found in.
type Match struct {
	Tree     *tree.Tree
	Bindings Bindings
}

// Tree runs the matcher's MATCH block plus every EXCEPT/OPTIONAL
// composition over t and returns every satisfying Match.
func Tree(t *tree.Tree, pat *query.Pattern) []Match {
	s := newSession(t, pat)
	base := s.solveWithBindings(pat, Bindings{})

	var out []Match
	for _, b := range base {
		if s.rejectedByExcept(pat, b) {
			continue
		}
		for _, extended := range s.extendWithOptionals(pat, b) {
			out = append(out, Match{Tree: t, Bindings: extended})
		}
	}
	return out
}

// ExistsMatch reports whether pat has at least one solution against t,
// honoring EXCEPT rejection. OPTIONAL blocks never affect existence,
// since they only extend an already-accepted base solution.
func ExistsMatch(t *tree.Tree, pat *query.Pattern) bool {
	s := newSession(t, pat)
	for _, b := range s.solveWithBindings(pat, Bindings{}) {
		if !s.rejectedByExcept(pat, b) {
			return true
		}
	}
	return false
}

// session holds the tree a single Tree() call is matching against; it is
// never shared across calls and carries no mutable state beyond the DFS's
// own call stack, keeping Tree reentrant and safe to call concurrently for
// different trees.
type session struct {
	t *tree.Tree
}

func newSession(t *tree.Tree, _ *query.Pattern) *session {
	return &session{t: t}
}

// rejectedByExcept reports whether any EXCEPT sub-pattern of pat has at
// least one solution under b. EXCEPT blocks are ANY: one matching
// sub-pattern is enough to discard the base solution.
func (s *session) rejectedByExcept(pat *query.Pattern, b Bindings) bool {
	for _, sub := range pat.Except {
		if s.existsMatch(sub, b) {
			return true
		}
	}
	return false
}

// extendWithOptionals implements the OPTIONAL cross-product: each
// OPTIONAL sub-pattern either contributes nothing (no solution: the base
// binding set is kept unchanged) or multiplies the current result set by
// its own solution set.
func (s *session) extendWithOptionals(pat *query.Pattern, b Bindings) []Bindings {
	results := []Bindings{b}
	for _, sub := range pat.Optional {
		extras := s.solveWithBindings(sub, b)
		if len(extras) == 0 {
			continue
		}
		next := make([]Bindings, 0, len(results)*len(extras))
		for _, r := range results {
			for _, e := range extras {
				merged := r.Clone()
				for name, idx := range e {
					if _, isBase := b[name]; !isBase {
						merged[name] = idx
					}
				}
				next = append(next, merged)
			}
		}
		results = next
	}
	return results
}

// existsMatch short-circuits on the first solution.
func (s *session) existsMatch(pat *query.Pattern, initial Bindings) bool {
	d := newDFS(s.t, pat, initial, true)
	d.run()
	return len(d.solutions) > 0
}

// solveWithBindings runs the DFS over pat's own variables with initial
// already assigned and their words reserved for AllDifferent.
func (s *session) solveWithBindings(pat *query.Pattern, initial Bindings) []Bindings {
	d := newDFS(s.t, pat, initial, false)
	d.run()
	return d.solutions
}

// globalChecksSatisfied checks every pattern-level GlobalEdgeCheck ("_ -> _" declarations):
// a tree-wide existence precondition that does not narrow any variable's
// domain. Evaluated once per DFS run since it does not depend on any
// binding.
func globalChecksSatisfied(t *tree.Tree, checks []query.GlobalEdgeCheck) bool {
	for _, gc := range checks {
		if !anyEdgeExists(t, gc) {
			return false
		}
	}
	return true
}

func anyEdgeExists(t *tree.Tree, gc query.GlobalEdgeCheck) bool {
	found := false
	for i := range t.Words {
		w := &t.Words[i]
		if !w.HasHead() {
			continue
		}
		if gc.HasLabel && !t.Pool.Equal(w.Deprel, []byte(gc.Label)) {
			continue
		}
		found = true
		break
	}
	if gc.Negated {
		return !found
	}
	return found
}

// CheckBinding verifies every constraint of pat (node constraints, edges,
// precedences, borrowed constraints, and global edge checks) against an
// already-complete binding set, independent of the solver. Useful in
// tests to confirm a solution really satisfies every constraint it claims
// to.
func CheckBinding(t *tree.Tree, pat *query.Pattern, b Bindings) bool {
	for _, v := range pat.Variables {
		idx, ok := b[v.Name]
		if !ok {
			continue
		}
		if !evalConstraint(t, v.Constraint, idx) {
			return false
		}
	}
	for _, bc := range pat.Borrowed {
		idx, ok := b[bc.Name]
		if !ok {
			continue
		}
		if !evalConstraint(t, bc.Constraint, idx) {
			return false
		}
	}
	for _, e := range pat.Edges {
		fromIdx, fok := b[e.From]
		toIdx, tok := b[e.To]
		if !fok || !tok {
			continue
		}
		if !evalEdge(t, e, fromIdx, toIdx) {
			return false
		}
	}
	for _, pr := range pat.Precedences {
		leftIdx, lok := b[pr.Left]
		rightIdx, rok := b[pr.Right]
		if !lok || !rok {
			continue
		}
		if !evalPrecedence(pr, leftIdx, rightIdx) {
			return false
		}
	}
	if !globalChecksSatisfied(t, pat.GlobalEdgeChecks) {
		return false
	}
	assigned := make(map[int]bool, len(b))
	for _, idx := range b {
		if assigned[idx] {
			errs.Bug("AllDifferent violated: two variables bound to the same word index")
		}
		assigned[idx] = true
	}
	return true
}
