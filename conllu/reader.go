// Package conllu streams dependency trees from a CoNLL-U byte source,
// with transparent gzip detection and line-accurate error reporting.
// Each Reader owns a private pool.Pool; every Tree it produces shares
// that pool, and no pool is ever shared across readers, matching the
// file-parallel design where each worker gets its own reader.
package conllu

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/oxhq/treesearch/errs"
	"github.com/oxhq/treesearch/pool"
	"github.com/oxhq/treesearch/tree"
)

const gzipMagic0, gzipMagic1 = 0x1F, 0x8B

// Reader streams Trees from a single byte source, one blank-line-delimited
// sentence at a time.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	pool    *pool.Pool
	line    int
	done    bool
}

// Open opens path and auto-detects gzip compression from content, not the
// file extension.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "opening "+path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps an arbitrary byte source (a file, an in-memory blob via
// bytes.NewReader, etc). The first two bytes are sniffed for the gzip
// magic number 0x1F 0x8B; if present the source is transparently
// decompressed.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == gzipMagic0 && magic[1] == gzipMagic1 {
		gz, gerr := gzip.NewReader(br)
		if gerr != nil {
			return nil, errs.Wrap(errs.ErrIO, "opening gzip stream", gerr)
		}
		br = bufio.NewReader(gz)
	}

	sc := bufio.NewScanner(br)
	// A single reusable buffer backs every Scan() call; token bytes are
	// only valid until the next call, which is why row parsing copies
	// into the pool immediately.
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	sc.Split(bufio.ScanLines)

	return &Reader{scanner: sc, pool: pool.New()}, nil
}

// Pool returns the string pool shared by every Tree this Reader produces.
func (r *Reader) Pool() *pool.Pool { return r.pool }

// Close releases the underlying byte source, if any.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Next parses and returns the next sentence. It returns io.EOF (with a nil
// Tree) once the source is exhausted. A parse error aborts the current
// tree only; the next call to Next resumes at the following sentence.
func (r *Reader) Next() (*tree.Tree, error) {
	if r.done {
		return nil, io.EOF
	}

	b := newSentenceBuilder(r.pool)

	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Text()

		if line == "" {
			if !b.hasContent() {
				// Stray/leading blank line between sentences: not a
				// sentence boundary for an empty sentence, just noise.
				continue
			}
			// End of sentence. A sentence whose rows were entirely
			// multiword/empty-node rows still yields a (possibly empty)
			// Tree.
			return b.finish()
		}

		if err := b.consumeLine(line, r.line); err != nil {
			// Abort this tree; resume scanning at the next sentence
			// boundary so later sentences are unaffected.
			r.skipToBlankLine()
			return nil, err
		}
	}

	if err := r.scanner.Err(); err != nil {
		r.done = true
		return nil, errs.Wrap(errs.ErrIO, "reading CoNLL-U source", err)
	}

	r.done = true
	if !b.hasContent() {
		return nil, io.EOF
	}
	return b.finish()
}

// skipToBlankLine discards the remainder of a malformed sentence so the
// next Next() call starts cleanly at the following one.
func (r *Reader) skipToBlankLine() {
	for r.scanner.Scan() {
		r.line++
		if r.scanner.Text() == "" {
			return
		}
	}
}
