package query

import (
	"testing"

	"github.com/oxhq/treesearch/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errCode(t *testing.T, err error) string {
	t.Helper()
	qe, ok := err.(*errs.QueryError)
	require.True(t, ok, "expected *errs.QueryError, got %T", err)
	return qe.Code
}

func TestCompileBasicVerbNounEdge(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[upos="VERB"];
		n[upos="NOUN"];
		v -[nsubj]-> n;
	}`)
	require.NoError(t, err)
	require.Equal(t, []string{"v", "n"}, pat.VariableNames())
	require.Len(t, pat.Edges, 1)
	assert.Equal(t, "v", pat.Edges[0].From)
	assert.Equal(t, "n", pat.Edges[0].To)
	assert.Equal(t, "nsubj", pat.Edges[0].Label)
	assert.True(t, pat.Edges[0].HasLabel)
	assert.False(t, pat.Edges[0].Negated)
}

func TestCompileAnonymousInEndpointLowersToHasEdge(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[upos="VERB"];
		_ -[nsubj]-> v;
	}`)
	require.NoError(t, err)
	require.Empty(t, pat.Edges)
	nc, ok := pat.Constraint("v")
	require.True(t, ok)
	and, ok := nc.(And)
	require.True(t, ok)
	require.Len(t, and.Constraints, 2)
	he, ok := and.Constraints[1].(HasEdge)
	require.True(t, ok)
	assert.Equal(t, EdgeIn, he.Direction)
	assert.Equal(t, "nsubj", he.Label)
}

func TestCompileAnonymousOutEndpointLowersToHasEdge(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[];
		v -[obj]-> _;
	}`)
	require.NoError(t, err)
	nc, _ := pat.Constraint("v")
	he, ok := nc.(HasEdge)
	require.True(t, ok)
	assert.Equal(t, EdgeOut, he.Direction)
	assert.Equal(t, "obj", he.Label)
}

func TestCompileDoubleAnonymousEdgeBecomesGlobalCheck(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[upos="VERB"];
		_ -[nsubj]-> _;
	}`)
	require.NoError(t, err)
	require.Empty(t, pat.Edges)
	nc, _ := pat.Constraint("v")
	_, isHasEdge := nc.(HasEdge)
	assert.False(t, isHasEdge, "global check must not leak onto an unrelated variable")
	require.Len(t, pat.GlobalEdgeChecks, 1)
	assert.Equal(t, "nsubj", pat.GlobalEdgeChecks[0].Label)
	assert.True(t, pat.GlobalEdgeChecks[0].HasLabel)
}

func TestCompileNegatedEdge(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[upos="VERB"];
		n[upos="NOUN"];
		v !-[nsubj]-> n;
	}`)
	require.NoError(t, err)
	require.Len(t, pat.Edges, 1)
	assert.True(t, pat.Edges[0].Negated)
}

func TestCompileUnlabeledEdge(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		a[];
		b[];
		a -> b;
	}`)
	require.NoError(t, err)
	require.Len(t, pat.Edges, 1)
	assert.False(t, pat.Edges[0].HasLabel)
}

func TestCompilePrecedence(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		a[];
		b[];
		a < b;
		a << b;
	}`)
	require.NoError(t, err)
	require.Len(t, pat.Precedences, 2)
	assert.True(t, pat.Precedences[0].Immediate)
	assert.False(t, pat.Precedences[1].Immediate)
}

func TestCompileRegexValueIsFullyAnchored(t *testing.T) {
	pat, err := CompilePattern(`MATCH { v[form=/run/]; }`)
	require.NoError(t, err)
	nc, _ := pat.Constraint("v")
	attr := nc.(Attr)
	require.True(t, attr.Value.IsRegex())
	assert.True(t, attr.Value.Match([]byte("run")))
	assert.False(t, attr.Value.Match([]byte("running")))

	pat2, err := CompilePattern(`MATCH { v[form=/run.*/]; }`)
	require.NoError(t, err)
	nc2, _ := pat2.Constraint("v")
	attr2 := nc2.(Attr)
	assert.True(t, attr2.Value.Match([]byte("running")))
}

func TestCompileFeatAndMiscConstraints(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[feats.Number="Plur" & misc.SpaceAfter!="No"];
	}`)
	require.NoError(t, err)
	nc, _ := pat.Constraint("v")
	and := nc.(And)
	require.Len(t, and.Constraints, 2)
	f0 := and.Constraints[0].(Feat)
	assert.Equal(t, MapFeats, f0.Map)
	assert.Equal(t, "Number", f0.Key)
	f1 := and.Constraints[1].(Feat)
	assert.Equal(t, MapMisc, f1.Map)
	assert.True(t, f1.Negated)
}

func TestCompileUnknownFieldIsSemanticError(t *testing.T) {
	_, err := CompilePattern(`MATCH { v[bogus="x"]; }`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrSemantic, errCode(t, err))
}

func TestCompileUndeclaredVariableInEdgeIsSemanticError(t *testing.T) {
	_, err := CompilePattern(`MATCH {
		v[];
		v -> ghost;
	}`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrSemantic, errCode(t, err))
}

func TestCompileDuplicateDeclarationIsSemanticError(t *testing.T) {
	_, err := CompilePattern(`MATCH {
		v[];
		v[];
	}`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrSemantic, errCode(t, err))
}

func TestCompileInvalidRegexIsRegexError(t *testing.T) {
	_, err := CompilePattern(`MATCH { v[form=/(/]; }`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrRegex, errCode(t, err))
}

func TestCompileSyntaxErrorReportsLine(t *testing.T) {
	_, err := CompilePattern("MATCH {\n  v[form=\"x\"\n}")
	require.Error(t, err)
	qe := err.(*errs.QueryError)
	assert.Equal(t, errs.ErrSyntax, qe.Code)
	assert.Equal(t, 3, qe.Line)
}

func TestCompileExceptBlockMayReferenceMatchVariable(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[upos="VERB"];
		n[upos="NOUN"];
		v -[nsubj]-> n;
	}
	EXCEPT {
		neg[lemma="not"];
		neg -> v;
	}`)
	require.NoError(t, err)
	require.Len(t, pat.Except, 1)
	sub := pat.Except[0]
	require.Equal(t, []string{"neg"}, sub.VariableNames())
	require.Len(t, sub.Edges, 1)
	assert.Equal(t, "neg", sub.Edges[0].From)
	assert.Equal(t, "v", sub.Edges[0].To)
}

func TestCompileExceptVariableShadowingMatchIsError(t *testing.T) {
	_, err := CompilePattern(`MATCH {
		v[upos="VERB"];
	}
	EXCEPT {
		v[lemma="x"];
	}`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrSemantic, errCode(t, err))
}

func TestCompileExceptAnonymousEdgeOnMatchVariableIsBorrowed(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[upos="VERB"];
	}
	EXCEPT {
		_ -[aux]-> v;
	}`)
	require.NoError(t, err)
	require.Len(t, pat.Except, 1)
	sub := pat.Except[0]
	require.Len(t, sub.Borrowed, 1)
	assert.Equal(t, "v", sub.Borrowed[0].Name)
	he := sub.Borrowed[0].Constraint.(HasEdge)
	assert.Equal(t, EdgeIn, he.Direction)
	assert.Equal(t, "aux", he.Label)
}

func TestCompileOptionalBlockAddsCrossProductVariable(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		v[upos="VERB"];
	}
	OPTIONAL {
		adv[upos="ADV"];
		adv -> v;
	}`)
	require.NoError(t, err)
	require.Len(t, pat.Optional, 1)
	sub := pat.Optional[0]
	assert.Equal(t, []string{"adv"}, sub.VariableNames())
	require.Len(t, sub.Edges, 1)
}

func TestCompileTwoExtensionBlocksCannotReuseEachOthersNames(t *testing.T) {
	_, err := CompilePattern(`MATCH {
		v[];
	}
	EXCEPT {
		x[];
	}
	OPTIONAL {
		x[];
	}`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrSemantic, errCode(t, err))
}

func TestCompileAnyWordNodeDecl(t *testing.T) {
	pat, err := CompilePattern(`MATCH { v[]; }`)
	require.NoError(t, err)
	nc, _ := pat.Constraint("v")
	_, ok := nc.(AnyWord)
	assert.True(t, ok)
}

func TestPrintRoundTrip(t *testing.T) {
	src := `MATCH {
		v[upos="VERB"];
		n[upos="NOUN"];
		v -[nsubj]-> n;
		v < n;
	}
	EXCEPT {
		neg[lemma="not"];
		neg -> v;
	}`
	pat, err := CompilePattern(src)
	require.NoError(t, err)

	printed := Print(pat)
	pat2, err := CompilePattern(printed)
	require.NoError(t, err, "canonical form must itself be valid query text:\n%s", printed)
	assert.Equal(t, pat, pat2)
}

func TestPrintRoundTripWithBorrowedConstraint(t *testing.T) {
	src := `MATCH {
		v[upos="VERB"];
	}
	EXCEPT {
		_ -[aux]-> v;
	}
	OPTIONAL {
		v -[obj]-> _;
	}`
	pat, err := CompilePattern(src)
	require.NoError(t, err)
	require.Len(t, pat.Except[0].Borrowed, 1)
	require.Len(t, pat.Optional[0].Borrowed, 1)

	printed := Print(pat)
	pat2, err := CompilePattern(printed)
	require.NoError(t, err, "canonical form must itself be valid query text:\n%s", printed)
	assert.Equal(t, pat, pat2)
	require.Len(t, pat2.Except[0].Borrowed, 1, "borrowed constraint must survive print/recompile, not just the outer Equal check")
}

func TestPrintRoundTripWithAnonymousEdges(t *testing.T) {
	src := `MATCH {
		v[upos="VERB"];
		_ -[nsubj]-> v;
		v -[obj]-> _;
		_ -[aux]-> _;
	}`
	pat, err := CompilePattern(src)
	require.NoError(t, err)

	printed := Print(pat)
	pat2, err := CompilePattern(printed)
	require.NoError(t, err, "canonical form must itself be valid query text:\n%s", printed)
	assert.Equal(t, pat, pat2)
}
