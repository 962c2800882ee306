package query

import (
	"regexp"

	"github.com/oxhq/treesearch/errs"
)

// parser is a hand-rolled recursive-descent parser over a pre-tokenized
// token slice: peek/expect helpers plus one parse function per grammar
// construct.
type parser struct {
	toks []token
	pos  int
}

func newParser(toks []token) *parser { return &parser{toks: toks} }

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != k {
		return token{}, errs.AtLine(errs.ErrSyntax, "expected "+what, t.line)
	}
	return p.advance(), nil
}

func (p *parser) expectIdentText(text string) error {
	t := p.peek()
	if t.kind != tokIdent || t.text != text {
		return errs.AtLine(errs.ErrSyntax, "expected '"+text+"'", t.line)
	}
	p.advance()
	return nil
}

// blockBody is the intermediate parse of one {...} block's statements,
// before scope validation (compile.go) splits them against other blocks.
type blockBody struct {
	variables   []Variable
	edges       []EdgeConstraint
	precedences []PrecedenceConstraint
}

// extensionBlock is one parsed EXCEPT or OPTIONAL block, not yet
// validated against its enclosing scope.
type extensionBlock struct {
	kind string // "EXCEPT" or "OPTIONAL"
	body blockBody
}

// rawQuery is the direct result of parsing, before compile.go performs
// scope validation and lowers anonymous `_` endpoints into HasEdge
// constraints.
type rawQuery struct {
	match      blockBody
	extensions []extensionBlock
}

// parseQuery parses a full "MATCH {...} (EXCEPT {...} | OPTIONAL {...})*"
// program.
func parseQuery(toks []token) (*rawQuery, error) {
	p := newParser(toks)

	if err := p.expectIdentText("MATCH"); err != nil {
		return nil, err
	}
	matchBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	rq := &rawQuery{match: matchBody}

	for {
		t := p.peek()
		if t.kind != tokIdent || (t.text != "EXCEPT" && t.text != "OPTIONAL") {
			break
		}
		kind := t.text
		p.advance()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		rq.extensions = append(rq.extensions, extensionBlock{kind: kind, body: body})
	}

	if p.peek().kind != tokEOF {
		return nil, errs.AtLine(errs.ErrSyntax, "unexpected trailing input", p.peek().line)
	}
	return rq, nil
}

// parseBlock parses "{ statement* }".
func (p *parser) parseBlock() (blockBody, error) {
	var b blockBody
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return b, err
	}
	for p.peek().kind != tokRBrace {
		if p.peek().kind == tokEOF {
			return b, errs.AtLine(errs.ErrSyntax, "unterminated block", p.peek().line)
		}
		if err := p.parseStatement(&b); err != nil {
			return b, err
		}
	}
	p.advance() // '}'
	return b, nil
}

// parseStatement dispatches on lookahead to a node_decl, edge_decl, or
// precedence_decl.
func (p *parser) parseStatement(b *blockBody) error {
	first, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return err
	}

	switch p.peek().kind {
	case tokLBracket:
		return p.parseNodeDeclRest(first, b)
	case tokLt, tokLtLt:
		return p.parsePrecedenceRest(first, b)
	case tokMinus, tokBang, tokArrow:
		return p.parseEdgeRest(first, b)
	default:
		return errs.AtLine(errs.ErrSyntax, "expected '[', '<', '<<', '-', '!', or '->' after identifier", p.peek().line)
	}
}

// parseNodeDeclRest parses "'[' node_constraint? ']' ';'" after the
// declared identifier has already been consumed.
func (p *parser) parseNodeDeclRest(name token, b *blockBody) error {
	p.advance() // '['
	var nc NodeConstraint = AnyWord{}
	if p.peek().kind != tokRBracket {
		var err error
		nc, err = p.parseNodeConstraint()
		if err != nil {
			return err
		}
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return err
	}
	if _, err := p.expect(tokSemi, "';'"); err != nil {
		return err
	}
	b.variables = append(b.variables, Variable{Name: name.text, Constraint: nc})
	return nil
}

// parseNodeConstraint parses "atom ('&' atom)*".
func (p *parser) parseNodeConstraint() (NodeConstraint, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	atoms := []NodeConstraint{first}
	for p.peek().kind == tokAmp {
		p.advance()
		next, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, next)
	}
	if len(atoms) == 1 {
		return atoms[0], nil
	}
	return And{Constraints: atoms}, nil
}

var fieldNames = map[string]Field{
	"form":   FieldForm,
	"lemma":  FieldLemma,
	"upos":   FieldUPOS,
	"xpos":   FieldXPOS,
	"deprel": FieldDeprel,
}

// parseAtom parses "FIELD ('='|'!=') value" or "'feats'|'misc' '.' KEY
// ('='|'!=') value".
func (p *parser) parseAtom() (NodeConstraint, error) {
	name, err := p.expect(tokIdent, "field name")
	if err != nil {
		return nil, err
	}

	if name.text == "feats" || name.text == "misc" {
		if _, err := p.expect(tokDot, "'.'"); err != nil {
			return nil, err
		}
		key, err := p.expect(tokIdent, "feature key")
		if err != nil {
			return nil, err
		}
		negated, err := p.parseEqOrNeq()
		if err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		m := MapFeats
		if name.text == "misc" {
			m = MapMisc
		}
		return Feat{Map: m, Key: key.text, Value: value, Negated: negated}, nil
	}

	field, ok := fieldNames[name.text]
	if !ok {
		return nil, errs.AtLine(errs.ErrSemantic, "unknown field '"+name.text+"'", name.line)
	}
	negated, err := p.parseEqOrNeq()
	if err != nil {
		return nil, err
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return Attr{Field: field, Value: value, Negated: negated}, nil
}

func (p *parser) parseEqOrNeq() (negated bool, err error) {
	t := p.peek()
	switch t.kind {
	case tokEq:
		p.advance()
		return false, nil
	case tokNeq:
		p.advance()
		return true, nil
	default:
		return false, errs.AtLine(errs.ErrSyntax, "expected '=' or '!='", t.line)
	}
}

// parseValue parses a quoted literal or a /regex/, compiling the regex
// with implicit ^...$ anchoring.
func (p *parser) parseValue() (ConstraintValue, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.advance()
		return ConstraintValue{Literal: t.text, Source: t.text}, nil
	case tokRegex:
		p.advance()
		re, err := regexp.Compile("^(?:" + t.text + ")$")
		if err != nil {
			return ConstraintValue{}, errs.WrapAtLine(errs.ErrRegex, "invalid regex /"+t.text+"/", t.line, err)
		}
		return ConstraintValue{Regex: re, Source: t.text}, nil
	default:
		return ConstraintValue{}, errs.AtLine(errs.ErrSyntax, "expected a quoted literal or /regex/", t.line)
	}
}

// parsePrecedenceRest parses "('<'|'<<') IDENT ';'" after the left
// identifier has already been consumed.
func (p *parser) parsePrecedenceRest(left token, b *blockBody) error {
	immediate := p.peek().kind == tokLt
	p.advance() // '<' or '<<'
	right, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return err
	}
	if _, err := p.expect(tokSemi, "';'"); err != nil {
		return err
	}
	b.precedences = append(b.precedences, PrecedenceConstraint{Left: left.text, Right: right.text, Immediate: immediate})
	return nil
}

// parseEdgeRest parses "('!')? (('-' ('[' LABEL ']')?)? '->') endpoint ';'"
// after the left endpoint has already been consumed. Both endpoints may be
// the identifier "_", meaning an anonymous existential.
//
// An unlabeled edge's '-' and '>' are lexed as a single tokArrow (the
// lexer merges adjacent '-' '>'), so an unlabeled edge never produces a
// standalone tokMinus; only a labeled edge's '-[' does.
func (p *parser) parseEdgeRest(left token, b *blockBody) error {
	negated := false
	if p.peek().kind == tokBang {
		negated = true
		p.advance()
	}

	var label string
	hasLabel := false
	if p.peek().kind == tokMinus {
		p.advance()
		if p.peek().kind == tokLBracket {
			p.advance()
			lbl, err := p.expect(tokIdent, "edge label")
			if err != nil {
				return err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return err
			}
			label, hasLabel = lbl.text, true
		}
	}

	if _, err := p.expect(tokArrow, "'->'"); err != nil {
		return err
	}
	right, err := p.expect(tokIdent, "identifier or '_'")
	if err != nil {
		return err
	}
	if _, err := p.expect(tokSemi, "';'"); err != nil {
		return err
	}

	b.edges = append(b.edges, EdgeConstraint{
		From: left.text, To: right.text, Label: label, HasLabel: hasLabel, Negated: negated,
	})
	return nil
}
