package match

import (
	"github.com/oxhq/treesearch/pool"
	"github.com/oxhq/treesearch/query"
	"github.com/oxhq/treesearch/tree"
)

// evalConstraint reports whether word idx of t satisfies nc. Used both
// during domain computation (node consistency) and to re-verify a chosen
// candidate during forward checking.
func evalConstraint(t *tree.Tree, nc query.NodeConstraint, idx int) bool {
	w := t.Word(idx)
	switch c := nc.(type) {
	case nil:
		return true
	case query.AnyWord:
		return true
	case query.Attr:
		return evalAttr(t, w, c)
	case query.Feat:
		return evalFeat(t, w, c)
	case query.And:
		for _, sub := range c.Constraints {
			if !evalConstraint(t, sub, idx) {
				return false
			}
		}
		return true
	case query.HasEdge:
		return evalHasEdge(t, w, c)
	default:
		return false
	}
}

func evalAttr(t *tree.Tree, w *tree.Word, a query.Attr) bool {
	var sym pool.Symbol
	present := true
	switch a.Field {
	case query.FieldForm:
		sym = w.Form
	case query.FieldLemma:
		sym = w.Lemma
	case query.FieldUPOS:
		sym = w.UPOS
	case query.FieldXPOS:
		sym = w.XPOS
		present = w.HasXPOS()
	case query.FieldDeprel:
		sym = w.Deprel
	default:
		return false
	}
	return matchValuePresence(t, a.Value, sym, present, a.Negated)
}

func evalFeat(t *tree.Tree, w *tree.Word, f query.Feat) bool {
	kvs := w.Feats
	if f.Map == query.MapMisc {
		kvs = w.Misc
	}
	keySym := t.Pool.InternString(f.Key)
	valSym, ok := tree.FeatValue(kvs, keySym)
	return matchValuePresence(t, f.Value, valSym, ok, f.Negated)
}

// matchValuePresence: an absent attribute never satisfies a positive
// constraint (literal or regex), and always satisfies the negated form.
func matchValuePresence(t *tree.Tree, v query.ConstraintValue, sym pool.Symbol, present bool, negated bool) bool {
	if !present {
		return negated
	}
	matched := v.Match(t.Pool.Resolve(sym))
	if negated {
		return !matched
	}
	return matched
}

func evalHasEdge(t *tree.Tree, w *tree.Word, he query.HasEdge) bool {
	var found bool
	switch he.Direction {
	case query.EdgeIn:
		found = w.HasHead() && (!he.HasLabel || t.Pool.Equal(w.Deprel, []byte(he.Label)))
	case query.EdgeOut:
		for _, childIdx := range w.Children {
			child := t.Word(childIdx)
			if !he.HasLabel || t.Pool.Equal(child.Deprel, []byte(he.Label)) {
				found = true
				break
			}
		}
	}
	if he.Negated {
		return !found
	}
	return found
}

// evalEdge checks one EdgeConstraint against already-bound endpoints.
func evalEdge(t *tree.Tree, e query.EdgeConstraint, fromIdx, toIdx int) bool {
	child := t.Word(toIdx)
	holds := child.HasHead() && child.Head == fromIdx
	if holds && e.HasLabel {
		holds = t.Pool.Equal(child.Deprel, []byte(e.Label))
	}
	if e.Negated {
		return !holds
	}
	return holds
}

// evalPrecedence checks one PrecedenceConstraint against already-bound
// endpoints.
func evalPrecedence(pr query.PrecedenceConstraint, leftIdx, rightIdx int) bool {
	if pr.Immediate {
		return rightIdx == leftIdx+1
	}
	return rightIdx > leftIdx
}
