package match

import (
	"sort"
	"strings"
	"testing"

	"github.com/oxhq/treesearch/conllu"
	"github.com/oxhq/treesearch/pool"
	"github.com/oxhq/treesearch/query"
	"github.com/oxhq/treesearch/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOneTree(t *testing.T, src string) *conllu.Reader {
	t.Helper()
	r, err := conllu.NewReader(strings.NewReader(src))
	require.NoError(t, err)
	return r
}

const verbNounTree = "1\tHe\the\tPRON\t_\t_\t2\tnsubj\t_\t_\n" +
	"2\thelps\thelp\tVERB\t_\t_\t0\troot\t_\t_\n" +
	"3\tus\twe\tPRON\t_\t_\t2\tobj\t_\t_\n"

func TestVerbNounNsubjExactlyOneMatch(t *testing.T) {
	r := parseOneTree(t, verbNounTree)
	tr, err := r.Next()
	require.NoError(t, err)

	pat, err := query.CompilePattern(`MATCH {
		V[upos="VERB"];
		N[upos="PRON"];
		V -[nsubj]-> N;
	}`)
	require.NoError(t, err)

	matches := Tree(tr, pat)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Bindings["V"])
	assert.Equal(t, 0, matches[0].Bindings["N"])
}

func TestNegatedEdgeRejectsWordWithMatchingChild(t *testing.T) {
	r := parseOneTree(t, verbNounTree)
	tr, err := r.Next()
	require.NoError(t, err)

	pat, err := query.CompilePattern(`MATCH {
		V[upos="VERB"];
		V !-[obj]-> _;
	}`)
	require.NoError(t, err)

	matches := Tree(tr, pat)
	assert.Empty(t, matches)
}

func TestRegexFullStringAnchoring(t *testing.T) {
	src := "1\trun\trun\tVERB\t_\t_\t0\troot\t_\t_\n" +
		"2\trunning\trunning\tVERB\t_\t_\t1\tconj\t_\t_\n" +
		"3\truns\truns\tVERB\t_\t_\t1\tconj\t_\t_\n" +
		"4\twalk\twalk\tVERB\t_\t_\t1\tconj\t_\t_\n"
	r := parseOneTree(t, src)
	tr, err := r.Next()
	require.NoError(t, err)

	exact, err := query.CompilePattern(`MATCH { V[lemma=/run/]; }`)
	require.NoError(t, err)
	matches := Tree(tr, exact)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Bindings["V"])

	prefix, err := query.CompilePattern(`MATCH { V[lemma=/run.*/]; }`)
	require.NoError(t, err)
	matches = Tree(tr, prefix)
	require.Len(t, matches, 3)
}

func TestOptionalBindsWhenPresentAndOmitsWhenAbsent(t *testing.T) {
	withoutObj := "1\thelps\thelp\tVERB\t_\t_\t0\troot\t_\t_\n"
	r := parseOneTree(t, withoutObj)
	tr, err := r.Next()
	require.NoError(t, err)

	pat, err := query.CompilePattern(`MATCH {
		V[upos="VERB"];
	}
	OPTIONAL {
		O[upos="NOUN"];
		V -[obj]-> O;
	}`)
	require.NoError(t, err)

	matches := Tree(tr, pat)
	require.Len(t, matches, 1)
	_, hasV := matches[0].Bindings["V"]
	assert.True(t, hasV)
	_, hasO := matches[0].Bindings["O"]
	assert.False(t, hasO)

	withObj := "1\thelps\thelp\tVERB\t_\t_\t0\troot\t_\t_\n" +
		"2\tit\tit\tNOUN\t_\t_\t1\tobj\t_\t_\n"
	r2 := parseOneTree(t, withObj)
	tr2, err := r2.Next()
	require.NoError(t, err)
	matches = Tree(tr2, pat)
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Bindings, 2)
	assert.Equal(t, 1, matches[0].Bindings["O"])
}

func TestExceptRejectsVerbsWithMatchingAdvmodChild(t *testing.T) {
	src := "1\tquickly\tquickly\tADV\t_\t_\t2\tadvmod\t_\t_\n" +
		"2\truns\trun\tVERB\t_\t_\t0\troot\t_\t_\n" +
		"3\twalks\twalk\tVERB\t_\t_\t0\troot\t_\t_\n"
	r := parseOneTree(t, src)
	tr, err := r.Next()
	require.NoError(t, err)

	pat, err := query.CompilePattern(`MATCH {
		V[upos="VERB"];
	}
	EXCEPT {
		A[upos="ADV"];
		V -[advmod]-> A;
	}`)
	require.NoError(t, err)

	matches := Tree(tr, pat)
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].Bindings["V"])
}

func TestImmediatePrecedenceMatchesOnlyAdjacentWords(t *testing.T) {
	adjacent := "1\tto\tto\tPART\t_\t_\t2\tmark\t_\t_\n" +
		"2\twrite\twrite\tVERB\t_\t_\t0\troot\t_\t_\n"
	r := parseOneTree(t, adjacent)
	tr, err := r.Next()
	require.NoError(t, err)

	pat, err := query.CompilePattern(`MATCH {
		T[lemma="to"];
		W[upos="VERB"];
		T < W;
	}`)
	require.NoError(t, err)
	matches := Tree(tr, pat)
	require.Len(t, matches, 1)

	notAdjacent := "1\tto\tto\tPART\t_\t_\t3\tmark\t_\t_\n" +
		"2\tquickly\tquickly\tADV\t_\t_\t3\tadvmod\t_\t_\n" +
		"3\twrite\twrite\tVERB\t_\t_\t0\troot\t_\t_\n"
	r2 := parseOneTree(t, notAdjacent)
	tr2, err := r2.Next()
	require.NoError(t, err)
	matches = Tree(tr2, pat)
	assert.Empty(t, matches)
}

func TestEmptyTreeYieldsEmptyMatchList(t *testing.T) {
	pat, err := query.CompilePattern(`MATCH { V[upos="VERB"]; }`)
	require.NoError(t, err)
	tr := emptyTree(t)
	matches := Tree(tr, pat)
	assert.Empty(t, matches)
}

func TestPatternWithNoVariablesYieldsOneEmptyBindingPerTree(t *testing.T) {
	pat, err := query.CompilePattern(`MATCH {}`)
	require.NoError(t, err)
	tr := emptyTree(t)
	matches := Tree(tr, pat)
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].Bindings)

	r := parseOneTree(t, verbNounTree)
	tr2, err := r.Next()
	require.NoError(t, err)
	matches = Tree(tr2, pat)
	require.Len(t, matches, 1)
}

func emptyTree(t *testing.T) *tree.Tree {
	t.Helper()
	return tree.New(nil, "", nil, pool.New())
}

func TestAllDifferentRejectsSameWordForTwoVariables(t *testing.T) {
	src := "1\trun\trun\tVERB\t_\t_\t0\troot\t_\t_\n"
	r := parseOneTree(t, src)
	tr, err := r.Next()
	require.NoError(t, err)

	pat, err := query.CompilePattern(`MATCH {
		A[upos="VERB"];
		B[upos="VERB"];
	}`)
	require.NoError(t, err)
	matches := Tree(tr, pat)
	assert.Empty(t, matches, "a single word cannot satisfy two distinct variables")
}

func TestCheckBindingAgreesWithSolver(t *testing.T) {
	r := parseOneTree(t, verbNounTree)
	tr, err := r.Next()
	require.NoError(t, err)

	pat, err := query.CompilePattern(`MATCH {
		V[upos="VERB"];
		N[upos="PRON"];
		V -[nsubj]-> N;
	}`)
	require.NoError(t, err)

	matches := Tree(tr, pat)
	require.Len(t, matches, 1)
	assert.True(t, CheckBinding(tr, pat, matches[0].Bindings))
}

func TestDeterministicRepeatedRunsProduceIdenticalOrder(t *testing.T) {
	src := "1\ta\ta\tNOUN\t_\t_\t0\troot\t_\t_\n" +
		"2\tb\tb\tNOUN\t_\t_\t1\tconj\t_\t_\n" +
		"3\tc\tc\tNOUN\t_\t_\t1\tconj\t_\t_\n"
	pat, err := query.CompilePattern(`MATCH { N[upos="NOUN"]; }`)
	require.NoError(t, err)

	var runs [][]int
	for i := 0; i < 3; i++ {
		r := parseOneTree(t, src)
		tr, err := r.Next()
		require.NoError(t, err)
		matches := Tree(tr, pat)
		idxs := make([]int, len(matches))
		for j, m := range matches {
			idxs[j] = m.Bindings["N"]
		}
		runs = append(runs, idxs)
	}
	assert.Equal(t, runs[0], runs[1])
	assert.Equal(t, runs[1], runs[2])
	assert.True(t, sort.IntsAreSorted(runs[0]))
}
