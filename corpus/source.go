// Package corpus composes the conllu reader and the match engine into
// three streaming iterators: a tree iterator over one source, a match
// iterator over one tree, and a corpus iterator over many files, with
// ordered and unordered (worker-pool) traversal modes.
package corpus

import (
	"bytes"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oxhq/treesearch/errs"
)

// Source is any of the forms a corpus input may take: a single file path,
// a list of paths, a glob string, or an in-memory byte blob.
type Source struct {
	paths []string
	bytes []byte // set only for the in-memory-blob form; paths is empty then
}

// FromPath wraps a single file path.
func FromPath(path string) Source { return Source{paths: []string{path}} }

// FromPaths wraps an explicit list of file paths. They are processed in
// sorted order, with duplicates removed.
func FromPaths(paths []string) Source {
	cp := make([]string, len(paths))
	copy(cp, paths)
	return Source{paths: cp}
}

// FromGlob wraps a glob pattern; resolvedFiles expands it.
func FromGlob(pattern string) Source { return Source{paths: []string{pattern}} }

// FromBytes wraps an in-memory CoNLL-U byte blob. It never participates in
// multi-file globbing or worker distribution — it is always a single
// one-shot tree stream.
func FromBytes(data []byte) Source { return Source{bytes: data} }

// isGlobPattern reports whether s contains any glob metacharacter; paths
// and globs are distinguished by the syntactic presence of `*`, `?`, or `[`.
func isGlobPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// resolvedFiles returns the ordered, de-duplicated list of file paths this
// Source denotes. Only meaningful for the path/list/glob forms; callers
// must check IsBytes first.
func (s Source) resolvedFiles() ([]string, error) {
	if len(s.paths) == 1 && isGlobPattern(s.paths[0]) {
		matches, err := doublestar.FilepathGlob(s.paths[0])
		if err != nil {
			return nil, errs.Wrap(errs.ErrGlob, "expanding glob "+s.paths[0], err)
		}
		sort.Strings(matches)
		return matches, nil
	}
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	sort.Strings(out)
	return slices.Compact(out), nil
}

// IsBytes reports whether this Source is the in-memory-blob form.
func (s Source) IsBytes() bool { return s.bytes != nil }

// reader returns an io.Reader over the blob form.
func (s Source) reader() io.Reader { return bytes.NewReader(s.bytes) }
