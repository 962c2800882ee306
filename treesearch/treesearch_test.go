package treesearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTree = "1\tHe\the\tPRON\t_\t_\t2\tnsubj\t_\t_\n" +
	"2\thelps\thelp\tVERB\t_\t_\t0\troot\t_\t_\n" +
	"3\tus\twe\tPRON\t_\t_\t2\tobj\t_\t_\n\n"

func TestCompilePatternSurfacesSyntaxError(t *testing.T) {
	_, err := CompilePattern(`MATCH { V[upos="VERB" }`)
	assert.Error(t, err)
}

func TestReadTreesFromBytesYieldsExpectedTrees(t *testing.T) {
	ch, err := ReadTrees(context.Background(), SourceBytes([]byte(sampleTree)), nil)
	require.NoError(t, err)

	var count int
	for r := range ch {
		require.NoError(t, r.Error)
		count++
	}
	assert.Equal(t, 1, count)
}

func TestReadTreesFromGlobStreamsEveryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.conllu"), []byte(sampleTree), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.conllu"), []byte(sampleTree), 0o644))

	ch, err := ReadTrees(context.Background(), SourceGlob(filepath.Join(dir, "*.conllu")), nil)
	require.NoError(t, err)

	var paths []string
	for r := range ch {
		require.NoError(t, r.Error)
		paths = append(paths, r.Path)
	}
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a.conllu"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.conllu"), paths[1])
}

func TestMatchTreeAndMatchSourceAgree(t *testing.T) {
	pat, err := CompilePattern(`MATCH {
		V[upos="VERB"];
		N[upos="PRON"];
		V -[nsubj]-> N;
	}`)
	require.NoError(t, err)

	ch, err := ReadTrees(context.Background(), SourceBytes([]byte(sampleTree)), nil)
	require.NoError(t, err)
	var parsed TreeResult
	for r := range ch {
		require.NoError(t, r.Error)
		parsed = r
	}
	require.NotNil(t, parsed.Tree)
	directMatches := MatchTree(parsed.Tree, pat)
	require.Len(t, directMatches, 1)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.conllu")
	require.NoError(t, os.WriteFile(path, []byte(sampleTree), 0o644))

	matches, err := MatchSource(context.Background(), SourcePath(path), pat, nil, true)
	require.NoError(t, err)
	var got []Match
	for m := range matches {
		require.NoError(t, m.Error)
		got = append(got, Match{Tree: m.Tree, Bindings: m.Bindings})
	}
	require.Len(t, got, 1)
	assert.Equal(t, directMatches[0].Bindings, got[0].Bindings)
}

func TestFilterSourceYieldsOnlyMatchingTrees(t *testing.T) {
	pat, err := CompilePattern(`MATCH { V[upos="VERB"]; }`)
	require.NoError(t, err)

	noVerb := "1\tit\tit\tPRON\t_\t_\t0\troot\t_\t_\n\n"
	withVerb := sampleTree

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.conllu"), []byte(noVerb), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.conllu"), []byte(withVerb), 0o644))

	ch, err := FilterSource(context.Background(), SourceGlob(filepath.Join(dir, "*.conllu")), pat, nil, true)
	require.NoError(t, err)

	var paths []string
	for item := range ch {
		require.NoError(t, item.Error)
		paths = append(paths, item.Path)
	}
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "b.conllu"), paths[0])
}
