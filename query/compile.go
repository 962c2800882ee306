package query

import "github.com/oxhq/treesearch/errs"

// CompilePattern parses and compiles query text into a Pattern.
// Compilation is deterministic: textually equivalent inputs (modulo
// whitespace/comments) always produce an equal Pattern.
func CompilePattern(text string) (*Pattern, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	raw, err := parseQuery(toks)
	if err != nil {
		return nil, err
	}

	c := &compiler{matchNames: declaredNames(raw.match.variables)}
	pat, err := c.compileBlock(raw.match, nil)
	if err != nil {
		return nil, err
	}

	seenExtensionNames := map[string]bool{}
	for _, ext := range raw.extensions {
		for _, v := range ext.body.variables {
			if c.matchNames[v.Name] {
				return nil, errs.New(errs.ErrSemantic, "variable '"+v.Name+"' shadows a MATCH variable")
			}
			if seenExtensionNames[v.Name] {
				return nil, errs.New(errs.ErrSemantic, "variable '"+v.Name+"' shadows a name from another extension block")
			}
		}
		sub, err := c.compileBlock(ext.body, c.matchNames)
		if err != nil {
			return nil, err
		}
		for _, v := range ext.body.variables {
			seenExtensionNames[v.Name] = true
		}
		if ext.kind == "EXCEPT" {
			pat.Except = append(pat.Except, sub)
		} else {
			pat.Optional = append(pat.Optional, sub)
		}
	}

	return pat, nil
}

func declaredNames(vars []Variable) map[string]bool {
	m := make(map[string]bool, len(vars))
	for _, v := range vars {
		m[v.Name] = true
	}
	return m
}

// compiler holds the MATCH block's declared variable names, which are in
// scope (as borrowed, pre-bound names) for every extension block.
type compiler struct {
	matchNames map[string]bool
}

// compileBlock turns one parsed block into a Pattern: it validates that
// every named edge/precedence endpoint is declared in scope, lowers
// anonymous `_` endpoints into HasEdge constraints (attached directly to
// variables declared in this block, or recorded as BorrowedConstraint for
// names declared in an outer scope), and rejects duplicate declarations.
//
// outerScope is nil for the MATCH block itself, and the MATCH block's
// declared names for an EXCEPT/OPTIONAL block.
func (c *compiler) compileBlock(body blockBody, outerScope map[string]bool) (*Pattern, error) {
	ownNames := make(map[string]int, len(body.variables)) // name -> index in variables
	variables := make([]Variable, len(body.variables))
	copy(variables, body.variables)
	for i, v := range variables {
		if _, dup := ownNames[v.Name]; dup {
			return nil, errs.New(errs.ErrSemantic, "duplicate declaration of variable '"+v.Name+"'")
		}
		ownNames[v.Name] = i
	}

	declared := func(name string) bool {
		if _, ok := ownNames[name]; ok {
			return true
		}
		return outerScope[name]
	}

	var borrowed []BorrowedConstraint
	var globalChecks []GlobalEdgeCheck
	addConstraint := func(name string, nc NodeConstraint) error {
		if name == "_" {
			return nil
		}
		if idx, ok := ownNames[name]; ok {
			variables[idx].Constraint = conjoin(variables[idx].Constraint, nc)
			return nil
		}
		if outerScope[name] {
			borrowed = append(borrowed, BorrowedConstraint{Name: name, Constraint: nc})
			return nil
		}
		return errs.New(errs.ErrSemantic, "undeclared variable '"+name+"'")
	}

	for _, e := range body.edges {
		if e.From != "_" && !declared(e.From) {
			return nil, errs.New(errs.ErrSemantic, "undeclared variable '"+e.From+"' in edge")
		}
		if e.To != "_" && !declared(e.To) {
			return nil, errs.New(errs.ErrSemantic, "undeclared variable '"+e.To+"' in edge")
		}

		if e.From == "_" && e.To == "_" {
			globalChecks = append(globalChecks, GlobalEdgeCheck{Label: e.Label, HasLabel: e.HasLabel, Negated: e.Negated})
			continue
		}
		if e.From == "_" {
			nc := HasEdge{Direction: EdgeIn, Label: e.Label, HasLabel: e.HasLabel, Negated: e.Negated}
			if err := addConstraint(e.To, nc); err != nil {
				return nil, err
			}
		}
		if e.To == "_" {
			nc := HasEdge{Direction: EdgeOut, Label: e.Label, HasLabel: e.HasLabel, Negated: e.Negated}
			if err := addConstraint(e.From, nc); err != nil {
				return nil, err
			}
		}
	}

	for _, prec := range body.precedences {
		if !declared(prec.Left) {
			return nil, errs.New(errs.ErrSemantic, "undeclared variable '"+prec.Left+"' in precedence")
		}
		if !declared(prec.Right) {
			return nil, errs.New(errs.ErrSemantic, "undeclared variable '"+prec.Right+"' in precedence")
		}
	}

	// Real (non-anonymous-only) edges keep their EdgeConstraint entries
	// for the matcher's structural checks; anonymous-only edges (where
	// one side is "_") were fully absorbed above and are dropped here,
	// since HasEdge already captures their meaning on the named side.
	realEdges := make([]EdgeConstraint, 0, len(body.edges))
	for _, e := range body.edges {
		if e.From != "_" && e.To != "_" {
			realEdges = append(realEdges, e)
		}
	}

	return &Pattern{
		Variables:        variables,
		Edges:            realEdges,
		Precedences:      body.precedences,
		Borrowed:         borrowed,
		GlobalEdgeChecks: globalChecks,
	}, nil
}

// conjoin folds an additional NodeConstraint into an existing one.
func conjoin(existing NodeConstraint, extra NodeConstraint) NodeConstraint {
	if _, isAny := existing.(AnyWord); isAny || existing == nil {
		return extra
	}
	if and, ok := existing.(And); ok {
		return And{Constraints: append(append([]NodeConstraint{}, and.Constraints...), extra)}
	}
	return And{Constraints: []NodeConstraint{existing, extra}}
}
