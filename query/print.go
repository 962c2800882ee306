package query

import (
	"fmt"
	"strings"
)

// Print renders a Pattern back into query text. Compiling that text again
// yields an equal Pattern; Print is the canonical form used to check that
// round-trip property and to display compiled patterns in diagnostics.
func Print(p *Pattern) string {
	var sb strings.Builder
	sb.WriteString("MATCH ")
	printBlock(&sb, p.Variables, p.Edges, p.Precedences, p.GlobalEdgeChecks, nil)
	for _, sub := range p.Except {
		sb.WriteString("\nEXCEPT ")
		printBlock(&sb, sub.Variables, sub.Edges, sub.Precedences, sub.GlobalEdgeChecks, sub.Borrowed)
	}
	for _, sub := range p.Optional {
		sb.WriteString("\nOPTIONAL ")
		printBlock(&sb, sub.Variables, sub.Edges, sub.Precedences, sub.GlobalEdgeChecks, sub.Borrowed)
	}
	return sb.String()
}

func printBlock(sb *strings.Builder, vars []Variable, edges []EdgeConstraint, precs []PrecedenceConstraint, globals []GlobalEdgeCheck, borrowed []BorrowedConstraint) {
	sb.WriteString("{\n")
	for _, v := range vars {
		plain, hasEdges := splitHasEdges(v.Constraint)
		fmt.Fprintf(sb, "  %s[%s];\n", v.Name, printConstraint(plain))
		for _, he := range hasEdges {
			printHasEdgeLine(sb, v.Name, he)
		}
	}
	for _, e := range edges {
		printEdge(sb, e.From, e.To, e.Label, e.HasLabel, e.Negated)
	}
	for _, g := range globals {
		printEdge(sb, "_", "_", g.Label, g.HasLabel, g.Negated)
	}
	// Borrowed constraints are the HasEdge a `_`-edge in this block attaches
	// to a variable declared in an outer (MATCH) scope rather than here;
	// they must round-trip as the same `_ -[label]-> name;` / `name -[label]->
	// _;` edge syntax that produced them, since this block owns no node_decl
	// for name to carry the constraint inside brackets instead.
	for _, b := range borrowed {
		if he, ok := b.Constraint.(HasEdge); ok {
			printHasEdgeLine(sb, b.Name, he)
		}
	}
	for _, pr := range precs {
		op := "<<"
		if pr.Immediate {
			op = "<"
		}
		fmt.Fprintf(sb, "  %s %s %s;\n", pr.Left, op, pr.Right)
	}
	sb.WriteString("}")
}

// splitHasEdges separates the HasEdge constraints lowered from anonymous
// edge endpoints (printed as edge_decl lines) from every other constraint
// (printed inside the variable's own node_decl brackets).
func splitHasEdges(nc NodeConstraint) (NodeConstraint, []HasEdge) {
	and, ok := nc.(And)
	if !ok {
		if he, ok := nc.(HasEdge); ok {
			return AnyWord{}, []HasEdge{he}
		}
		return nc, nil
	}
	var plain []NodeConstraint
	var edges []HasEdge
	for _, sub := range and.Constraints {
		if he, ok := sub.(HasEdge); ok {
			edges = append(edges, he)
			continue
		}
		plain = append(plain, sub)
	}
	switch len(plain) {
	case 0:
		return AnyWord{}, edges
	case 1:
		return plain[0], edges
	default:
		return And{Constraints: plain}, edges
	}
}

func printHasEdgeLine(sb *strings.Builder, owner string, he HasEdge) {
	if he.Direction == EdgeIn {
		printEdge(sb, "_", owner, he.Label, he.HasLabel, he.Negated)
		return
	}
	printEdge(sb, owner, "_", he.Label, he.HasLabel, he.Negated)
}

func printEdge(sb *strings.Builder, from, to, label string, hasLabel, negated bool) {
	sb.WriteString("  ")
	sb.WriteString(from)
	sb.WriteString(" ")
	if negated {
		sb.WriteString("!")
	}
	sb.WriteString("-")
	if hasLabel {
		sb.WriteString("[")
		sb.WriteString(label)
		sb.WriteString("]")
	}
	sb.WriteString("-> ")
	sb.WriteString(to)
	sb.WriteString(";\n")
}

func printConstraint(nc NodeConstraint) string {
	switch c := nc.(type) {
	case nil:
		return ""
	case AnyWord:
		return ""
	case Attr:
		return printAttr(c.Field.String(), c.Value, c.Negated)
	case Feat:
		prefix := "feats"
		if c.Map == MapMisc {
			prefix = "misc"
		}
		return printAttr(prefix+"."+c.Key, c.Value, c.Negated)
	case And:
		parts := make([]string, len(c.Constraints))
		for i, sub := range c.Constraints {
			parts[i] = printConstraint(sub)
		}
		return strings.Join(parts, " & ")
	default:
		return ""
	}
}

func printAttr(name string, v ConstraintValue, negated bool) string {
	op := "="
	if negated {
		op = "!="
	}
	if v.IsRegex() {
		return fmt.Sprintf("%s%s/%s/", name, op, v.Source)
	}
	return name + op + `"` + v.Literal + `"`
}
