package match

import (
	"github.com/oxhq/treesearch/query"
	"github.com/oxhq/treesearch/tree"
)

// dfsSolver runs one solve-with-bindings call: DFS over the pattern's own
// (not pre-bound) variables, MRV-ordered, with forward checking and a
// global AllDifferent constraint. One instance is scoped to a single
// Tree() call's sub-solve and is never reused.
type dfsSolver struct {
	t       *tree.Tree
	pat     *query.Pattern
	initial Bindings

	vars     []query.Variable // pat.Variables minus names already in initial, declaration order
	varIndex map[string]int   // name -> index into vars

	domains  [][]int // current (possibly forward-checking-pruned) domain per var
	assigned []int   // -1 if unassigned, else the word index bound to vars[i]

	usedWords map[int]bool // AllDifferent: word indices already claimed (initial ∪ this branch)

	stopAtFirst bool // true for exists-match
	solutions   []Bindings
}

func newDFS(t *tree.Tree, pat *query.Pattern, initial Bindings, stopAtFirst bool) *dfsSolver {
	d := &dfsSolver{
		t:           t,
		pat:         pat,
		initial:     initial,
		varIndex:    make(map[string]int),
		stopAtFirst: stopAtFirst,
		usedWords:   make(map[int]bool, len(initial)),
	}
	for _, idx := range initial {
		d.usedWords[idx] = true
	}
	for _, v := range pat.Variables {
		if _, already := initial[v.Name]; already {
			continue
		}
		d.varIndex[v.Name] = len(d.vars)
		d.vars = append(d.vars, v)
	}
	d.domains = make([][]int, len(d.vars))
	d.assigned = make([]int, len(d.vars))
	for i := range d.assigned {
		d.assigned[i] = -1
	}
	return d
}

// run computes initial domains (node consistency) and starts the search,
// after checking the preconditions that don't depend on any binding
// choice: the pattern's global edge checks and the borrowed constraints
// its anonymous edges placed on already-bound outer variables.
func (d *dfsSolver) run() {
	if !globalChecksSatisfied(d.t, d.pat.GlobalEdgeChecks) {
		return
	}
	if !d.borrowedSatisfied() {
		return
	}
	for i, v := range d.vars {
		d.domains[i] = d.computeDomain(v)
	}
	d.search()
}

func (d *dfsSolver) borrowedSatisfied() bool {
	for _, bc := range d.pat.Borrowed {
		idx, ok := d.initial[bc.Name]
		if !ok {
			continue
		}
		if !evalConstraint(d.t, bc.Constraint, idx) {
			return false
		}
	}
	return true
}

func (d *dfsSolver) computeDomain(v query.Variable) []int {
	var out []int
	for i := range d.t.Words {
		if evalConstraint(d.t, v.Constraint, i) {
			out = append(out, i)
		}
	}
	return out
}

// search implements the recursive descent. Its return value is a stop
// signal: true means "the caller should also stop trying further
// candidates", used to propagate exists-match's short-circuit (and
// otherwise always false, letting every branch run to exhaustion).
func (d *dfsSolver) search() bool {
	if d.stopAtFirst && len(d.solutions) > 0 {
		return true
	}

	vi, ok := d.selectUnassigned()
	if !ok {
		d.emit()
		return d.stopAtFirst
	}

	for _, w := range d.domains[vi] {
		if d.usedWords[w] {
			continue
		}
		if !d.checkCandidate(vi, w) {
			continue
		}

		d.assigned[vi] = w
		d.usedWords[w] = true

		saved, pruneOK := d.forwardCheck(vi)
		stop := false
		if pruneOK {
			stop = d.search()
		}
		d.restore(saved)
		d.usedWords[w] = false
		d.assigned[vi] = -1

		if stop {
			return true
		}
	}
	return false
}

// selectUnassigned implements MRV: ascending domain size, ties broken by
// declaration order (the first-seen smallest wins, since vars preserves
// declaration order and ties never replace best).
func (d *dfsSolver) selectUnassigned() (int, bool) {
	best, bestSize := -1, -1
	for i := range d.vars {
		if d.assigned[i] != -1 {
			continue
		}
		size := len(d.domains[i])
		if best == -1 || size < bestSize {
			best, bestSize = i, size
		}
	}
	return best, best != -1
}

// boundIndex resolves name to its currently-bound word index, whether it
// came from the outer solve-with-bindings call (initial) or was assigned
// earlier in this branch.
func (d *dfsSolver) boundIndex(name string) (int, bool) {
	if idx, ok := d.initial[name]; ok {
		return idx, true
	}
	if vi, ok := d.varIndex[name]; ok {
		if d.assigned[vi] != -1 {
			return d.assigned[vi], true
		}
	}
	return 0, false
}

// checkCandidate verifies every edge and precedence constraint that
// becomes fully bound if vars[vi] were assigned w, without mutating any
// state.
func (d *dfsSolver) checkCandidate(vi int, w int) bool {
	name := d.vars[vi].Name
	resolve := func(n string) (int, bool) {
		if n == name {
			return w, true
		}
		return d.boundIndex(n)
	}
	for _, e := range d.pat.Edges {
		fi, fok := resolve(e.From)
		ti, tok := resolve(e.To)
		if fok && tok && !evalEdge(d.t, e, fi, ti) {
			return false
		}
	}
	for _, pr := range d.pat.Precedences {
		li, lok := resolve(pr.Left)
		ri, rok := resolve(pr.Right)
		if lok && rok && !evalPrecedence(pr, li, ri) {
			return false
		}
	}
	return true
}

// domainSnapshot captures one unassigned variable's domain before forward
// checking prunes it, so search can restore it on backtrack.
type domainSnapshot struct {
	idx int
	old []int
}

// forwardCheck prunes every other unassigned variable's domain to values
// still consistent with the assignment just made. Returns false if any
// domain becomes empty.
func (d *dfsSolver) forwardCheck(vi int) ([]domainSnapshot, bool) {
	var saved []domainSnapshot
	for ui := range d.vars {
		if ui == vi || d.assigned[ui] != -1 {
			continue
		}
		old := d.domains[ui]
		var pruned []int
		for _, x := range old {
			if d.usedWords[x] {
				continue
			}
			if d.checkCandidate(ui, x) {
				pruned = append(pruned, x)
			}
		}
		if len(pruned) == len(old) {
			continue
		}
		saved = append(saved, domainSnapshot{idx: ui, old: old})
		d.domains[ui] = pruned
		if len(pruned) == 0 {
			return saved, false
		}
	}
	return saved, true
}

func (d *dfsSolver) restore(saved []domainSnapshot) {
	for _, s := range saved {
		d.domains[s.idx] = s.old
	}
}

func (d *dfsSolver) emit() {
	b := d.initial.Clone()
	for i, v := range d.vars {
		b[v.Name] = d.assigned[i]
	}
	d.solutions = append(d.solutions, b)
}
