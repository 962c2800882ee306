// Package treesearch is the stable public surface: five operations —
// compile_pattern, read_trees, match_tree, match_source, and
// filter_source — composing the conllu, query, match, and corpus
// packages behind one facade.
package treesearch

import (
	"context"
	"io"

	"github.com/oxhq/treesearch/config"
	"github.com/oxhq/treesearch/corpus"
	"github.com/oxhq/treesearch/match"
	"github.com/oxhq/treesearch/query"
	"github.com/oxhq/treesearch/tree"
)

// Pattern is a compiled query, ready to match against any tree.
type Pattern = query.Pattern

// Bindings maps a pattern variable name to the tree word index bound to it.
type Bindings = match.Bindings

// Match pairs a tree with one satisfying set of bindings.
type Match = match.Match

// Source is any of the forms the source parameter may take: a single
// file path, a list of paths, a glob string, or an in-memory byte blob.
type Source = corpus.Source

// SourcePath wraps a single file path.
func SourcePath(path string) Source { return corpus.FromPath(path) }

// SourcePaths wraps an explicit list of file paths.
func SourcePaths(paths []string) Source { return corpus.FromPaths(paths) }

// SourceGlob wraps a glob pattern.
func SourceGlob(pattern string) Source { return corpus.FromGlob(pattern) }

// SourceBytes wraps an in-memory CoNLL-U byte blob.
func SourceBytes(data []byte) Source { return corpus.FromBytes(data) }

// CompilePattern parses and compiles query text into a Pattern.
func CompilePattern(text string) (*Pattern, error) {
	return query.CompilePattern(text)
}

// TreeResult pairs a parsed tree with a possible per-sentence error.
type TreeResult struct {
	Tree  *tree.Tree
	Path  string
	Error error
}

// ReadTrees streams every tree of src, whichever of the four source forms
// it is: a single file path, a list of paths, a glob string, or an
// in-memory byte blob. A multi-file source is streamed in document order;
// cfg may be nil to use config.LoadConfig()'s environment-derived
// defaults. Cancelling ctx stops scheduling new files in the multi-file
// case.
func ReadTrees(ctx context.Context, src Source, cfg *config.Config) (<-chan TreeResult, error) {
	it, err := corpus.ReadTrees(ctx, src, cfg)
	if err != nil {
		return nil, err
	}
	out := make(chan TreeResult)
	go func() {
		defer close(out)
		defer it.Close()
		for {
			t, err := it.Next()
			if err != nil {
				if err == io.EOF {
					return
				}
				out <- TreeResult{Path: it.Path(), Error: err}
				continue
			}
			out <- TreeResult{Tree: t, Path: it.Path()}
		}
	}()
	return out, nil
}

// MatchTree enumerates every binding of pat against t.
func MatchTree(t *tree.Tree, pat *Pattern) []Match {
	return match.Tree(t, pat)
}

// MatchSource streams every (tree, bindings) solution of pat over every
// tree in src. cfg may be nil to use config.LoadConfig()'s
// environment-derived defaults.
func MatchSource(ctx context.Context, src Source, pat *Pattern, cfg *config.Config, ordered bool) (<-chan corpus.MatchItem, error) {
	return corpus.MatchSource(ctx, src, pat, cfg, ordered)
}

// FilterSource streams every tree in src that pat matches at least once,
// short-circuiting per tree.
func FilterSource(ctx context.Context, src Source, pat *Pattern, cfg *config.Config, ordered bool) (<-chan corpus.Item, error) {
	return corpus.FilterSource(ctx, src, pat, cfg, ordered)
}
