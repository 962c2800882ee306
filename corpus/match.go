package corpus

import (
	"context"

	"github.com/oxhq/treesearch/config"
	"github.com/oxhq/treesearch/match"
	"github.com/oxhq/treesearch/query"
	"github.com/oxhq/treesearch/tree"
)

// MatchItem is one emitted element of a match stream: a tree paired with
// one satisfying binding set, its source file, or an error.
type MatchItem struct {
	Tree     *tree.Tree
	Bindings match.Bindings
	Path     string
	Error    error
}

// MatchTree runs pat against a single already-parsed tree, eagerly
// materialising the solution list: it's bounded by pattern combinatorics,
// not corpus size.
func MatchTree(t *tree.Tree, pat *query.Pattern) []match.Match {
	return match.Tree(t, pat)
}

// MatchSource matches every tree in src against pat and emits every
// (tree, bindings) solution as a MatchItem. A tree with zero solutions
// contributes nothing to the stream. Parse errors are passed through as
// error items; a tree error never aborts the rest of the corpus.
func MatchSource(ctx context.Context, src Source, pat *query.Pattern, cfg *config.Config, ordered bool) (<-chan MatchItem, error) {
	trees, err := Trees(ctx, src, cfg, ordered)
	if err != nil {
		return nil, err
	}

	out := make(chan MatchItem, queueCapacityOf(cfg))
	go func() {
		defer close(out)
		for item := range trees {
			if item.Error != nil {
				if sendMatchItem(ctx, out, MatchItem{Path: item.Path, Error: item.Error}) {
					return
				}
				continue
			}
			for _, m := range match.Tree(item.Tree, pat) {
				if sendMatchItem(ctx, out, MatchItem{Tree: m.Tree, Bindings: m.Bindings, Path: item.Path}) {
					return
				}
			}
		}
	}()
	return out, nil
}

// FilterSource is a "filter" variant of the match iterator that yields
// whole trees, not individual bindings, short-circuiting per tree as soon
// as the first Match is produced.
func FilterSource(ctx context.Context, src Source, pat *query.Pattern, cfg *config.Config, ordered bool) (<-chan Item, error) {
	trees, err := Trees(ctx, src, cfg, ordered)
	if err != nil {
		return nil, err
	}

	out := make(chan Item, queueCapacityOf(cfg))
	go func() {
		defer close(out)
		for item := range trees {
			if item.Error != nil {
				if sendItem(ctx, out, item) {
					return
				}
				continue
			}
			if match.ExistsMatch(item.Tree, pat) {
				if sendItem(ctx, out, item) {
					return
				}
			}
		}
	}()
	return out, nil
}

func sendMatchItem(ctx context.Context, out chan<- MatchItem, item MatchItem) bool {
	select {
	case <-ctx.Done():
		return true
	case out <- item:
		return false
	}
}

func queueCapacityOf(cfg *config.Config) int {
	if cfg == nil {
		return config.LoadConfig().QueueCapacity
	}
	return cfg.QueueCapacity
}
