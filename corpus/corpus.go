package corpus

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/oxhq/treesearch/config"
	"github.com/oxhq/treesearch/tree"
)

// Item is one emitted element of a corpus stream: a parsed Tree, the file
// it came from, or an error surfaced in-band.
type Item struct {
	Tree  *tree.Tree
	Path  string
	Error error
}

// Trees resolves src to an ordered file list (or, for the bytes source, a
// single synthetic "file"), then streams every tree from every file
// through the returned channel. When ordered is true, emission is total
// order (file-sort-order, then document order); when false, files are
// distributed across a worker pool and multiplexed through a bounded
// queue.
//
// The channel is closed once every file has been drained or ctx is
// cancelled. Cancelling ctx stops scheduling new files; any file already
// being read finishes its current tree and exits.
func Trees(ctx context.Context, src Source, cfg *config.Config, ordered bool) (<-chan Item, error) {
	if cfg == nil {
		cfg = config.LoadConfig()
	}

	if src.IsBytes() {
		out := make(chan Item, 1)
		go streamBytesSource(ctx, src, out)
		return out, nil
	}

	files, err := src.resolvedFiles()
	if err != nil {
		return nil, err
	}
	out := make(chan Item, cfg.QueueCapacity)
	if len(files) == 0 {
		close(out)
		return out, nil
	}

	if ordered {
		go runOrdered(ctx, files, cfg, out)
	} else {
		go runUnordered(ctx, files, cfg, out)
	}
	return out, nil
}

func streamBytesSource(ctx context.Context, src Source, out chan<- Item) {
	defer close(out)
	it, err := ReadTrees(ctx, src, nil)
	if err != nil {
		sendItem(ctx, out, Item{Error: err})
		return
	}
	defer it.Close()
	streamFile(ctx, it, "", out)
}

// streamFile drains a single file's tree iterator into out, in document
// order, stopping early if ctx is cancelled.
func streamFile(ctx context.Context, it *TreeIterator, path string, out chan<- Item) {
	drainAll(it, func(t *tree.Tree, err error) bool {
		if err != nil {
			return sendItem(ctx, out, Item{Path: path, Error: err})
		}
		return sendItem(ctx, out, Item{Tree: t, Path: path})
	})
}

// sendItem pushes item onto out unless ctx is already cancelled; it
// reports whether the caller should stop (ctx cancelled).
func sendItem(ctx context.Context, out chan<- Item, item Item) bool {
	select {
	case <-ctx.Done():
		return true
	case out <- item:
		return false
	}
}

// runOrdered implements ordered mode: a bounded look-ahead of cfg.Workers
// files is read concurrently, each into its own buffered channel, and a
// single merger goroutine drains those channels in file-sort-order so the
// consumer sees total order despite the concurrency.
func runOrdered(ctx context.Context, files []string, cfg *config.Config, out chan<- Item) {
	defer close(out)

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	perFile := make([]chan Item, len(files))
	for i := range perFile {
		perFile[i] = make(chan Item, cfg.QueueCapacity)
	}

	g, gctx := errgroup.WithContext(ctx)
	go func() {
		defer g.Wait()
		for i, path := range files {
			// Slots are taken in file order, so the files being read are
			// always the next ones the merger will drain.
			if err := sem.Acquire(gctx, 1); err != nil {
				for _, ch := range perFile[i:] {
					close(ch)
				}
				return
			}
			i, path := i, path
			g.Go(func() error {
				defer sem.Release(1)
				defer close(perFile[i])

				it, err := openTreeIterator(path)
				if err != nil {
					slog.Warn("treesearch: file failed", "path", path, "err", err)
					sendItem(gctx, perFile[i], Item{Path: path, Error: err})
					return nil
				}
				defer it.Close()
				slog.Debug("treesearch: file started", "path", path, "mode", "ordered")
				streamFile(gctx, it, path, perFile[i])
				slog.Debug("treesearch: file completed", "path", path)
				return nil
			})
		}
	}()

	for _, ch := range perFile {
		for item := range ch {
			if sendItem(ctx, out, item) {
				return
			}
		}
	}
}

// runUnordered implements unordered mode: files are chunked (suggested
// size cfg.ChunkSize) and distributed across cfg.Workers goroutines, each
// streaming its chunk's files sequentially (preserving per-file order)
// into the shared bounded output channel.
func runUnordered(ctx context.Context, files []string, cfg *config.Config, out chan<- Item) {
	defer close(out)

	chunks := chunkFiles(files, cfg.ChunkSize)
	jobs := make(chan []string)

	g, gctx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for chunk := range jobs {
				for _, path := range chunk {
					select {
					case <-gctx.Done():
						return nil
					default:
					}
					it, err := openTreeIterator(path)
					if err != nil {
						slog.Warn("treesearch: file failed", "path", path, "err", err)
						if sendItem(gctx, out, Item{Path: path, Error: err}) {
							return nil
						}
						continue
					}
					slog.Debug("treesearch: file started", "path", path, "mode", "unordered")
					streamFile(gctx, it, path, out)
					it.Close()
					slog.Debug("treesearch: file completed", "path", path)
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, chunk := range chunks {
			select {
			case <-gctx.Done():
				return
			case jobs <- chunk:
			}
		}
	}()

	g.Wait()
}

func chunkFiles(files []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for i := 0; i < len(files); i += size {
		end := i + size
		if end > len(files) {
			end = len(files)
		}
		out = append(out, files[i:end])
	}
	return out
}
