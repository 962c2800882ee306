// Package query implements the dependency-tree pattern language: its
// surface grammar, its compiled AST (Pattern), and compilation semantics
// for EXCEPT/OPTIONAL blocks and anonymous (`_`) endpoints.
package query

import "regexp"

// Field identifies a CoNLL-U attribute an Attr constraint compares.
type Field int

const (
	FieldForm Field = iota
	FieldLemma
	FieldUPOS
	FieldXPOS
	FieldDeprel
)

func (f Field) String() string {
	switch f {
	case FieldForm:
		return "form"
	case FieldLemma:
		return "lemma"
	case FieldUPOS:
		return "upos"
	case FieldXPOS:
		return "xpos"
	case FieldDeprel:
		return "deprel"
	default:
		return "?"
	}
}

// FeatMap selects which per-word key-value map a Feat constraint reads.
type FeatMap int

const (
	MapFeats FeatMap = iota
	MapMisc
)

// ConstraintValue is either a literal string or a compiled, fully-anchored
// regex, compared against a resolved attribute value.
type ConstraintValue struct {
	Literal string         // set iff Regex == nil
	Regex   *regexp.Regexp // compiled with implicit ^...$ anchoring
	Source  string         // original surface text, for diagnostics
}

// IsRegex reports whether this value is a regex rather than a literal.
func (v ConstraintValue) IsRegex() bool { return v.Regex != nil }

// Match reports whether b (the resolved attribute bytes) satisfies v.
func (v ConstraintValue) Match(b []byte) bool {
	if v.IsRegex() {
		return v.Regex.Match(b)
	}
	return string(b) == v.Literal
}

// NodeConstraint is a boolean predicate over a tree word, evaluated by the
// matcher during domain computation.
type NodeConstraint interface {
	isNodeConstraint()
}

// AnyWord matches every word; it is the constraint for `V []`.
type AnyWord struct{}

func (AnyWord) isNodeConstraint() {}

// Attr constrains one of the fixed CoNLL-U attribute fields.
type Attr struct {
	Field   Field
	Value   ConstraintValue
	Negated bool
}

func (Attr) isNodeConstraint() {}

// Feat constrains one key of the FEATS or MISC map.
type Feat struct {
	Map     FeatMap
	Key     string
	Value   ConstraintValue
	Negated bool
}

func (Feat) isNodeConstraint() {}

// And requires every sub-constraint to hold (the `&` conjunction).
type And struct {
	Constraints []NodeConstraint
}

func (And) isNodeConstraint() {}

// EdgeDirection distinguishes a HasEdge constraint's direction.
type EdgeDirection int

const (
	EdgeIn  EdgeDirection = iota // this word has a parent matching the edge
	EdgeOut                      // this word has a child matching the edge
)

// HasEdge is the constraint attached to a named endpoint by an anonymous
// `_` occurrence in edge position.
type HasEdge struct {
	Direction EdgeDirection
	Label     string // empty means "any label"
	HasLabel  bool
	Negated   bool
}

func (HasEdge) isNodeConstraint() {}

// EdgeConstraint is a named-variable-to-named-variable dependency edge.
type EdgeConstraint struct {
	From, To string
	Label    string
	HasLabel bool
	Negated  bool
}

// PrecedenceConstraint orders two named variables by word index.
type PrecedenceConstraint struct {
	Left, Right string
	Immediate   bool // true for `<`, false for `<<`
}

// Variable is one declared (name, constraint) pair from a MATCH/EXCEPT/
// OPTIONAL block, in declaration order.
type Variable struct {
	Name       string
	Constraint NodeConstraint
}

// BorrowedConstraint is an extra NodeConstraint contributed by an
// anonymous (`_`) edge endpoint whose *named* side belongs to an outer
// scope (e.g. a MATCH variable referenced from an EXCEPT/OPTIONAL block).
// Such a variable's domain is never computed inside this sub-pattern — it
// arrives pre-bound via solve-with-bindings — so its extra constraint is
// instead checked once, directly against the bound word, when solving
// begins.
type BorrowedConstraint struct {
	Name       string
	Constraint NodeConstraint
}

// Pattern is a compiled MATCH block plus its EXCEPT/OPTIONAL extensions.
type Pattern struct {
	Variables   []Variable
	Edges       []EdgeConstraint
	Precedences []PrecedenceConstraint
	Except      []*Pattern
	Optional    []*Pattern

	Borrowed []BorrowedConstraint

	// GlobalEdgeChecks holds edges of the form "_ -> _" (both endpoints
	// anonymous): a precondition on the tree as a whole ("does any edge
	// matching this label/negation exist anywhere"), since neither side
	// names a variable whose domain could carry the constraint.
	GlobalEdgeChecks []GlobalEdgeCheck
}

// GlobalEdgeCheck is the lowered form of an `_ -> _` edge declaration.
type GlobalEdgeCheck struct {
	Label    string
	HasLabel bool
	Negated  bool
}

// VariableNames returns the declared variable names in declaration order.
func (p *Pattern) VariableNames() []string {
	names := make([]string, len(p.Variables))
	for i, v := range p.Variables {
		names[i] = v.Name
	}
	return names
}

// Constraint returns the NodeConstraint for name, or nil if undeclared.
func (p *Pattern) Constraint(name string) (NodeConstraint, bool) {
	for _, v := range p.Variables {
		if v.Name == name {
			return v.Constraint, true
		}
	}
	return nil, false
}
