// Package pool implements the byte-sequence interning pool shared by every
// tree produced by a single CoNLL-U reader. Two symbols compare equal iff
// their underlying bytes are equal; symbols from different pools are
// never compared against each other.
package pool

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// Symbol is an opaque handle into a Pool. The zero Symbol is never issued
// by Intern; it is reserved so callers can use it as a "no symbol" marker
// in optional fields (e.g. Word.XPOS).
type Symbol uint32

// entry is one interned byte sequence plus its assigned symbol.
type entry struct {
	bytes []byte
	sym   Symbol
}

// Pool interns byte sequences to small integer Symbols and resolves them
// back on demand. Safe for concurrent use; a single mutex is enough
// because the dominant workload, one pool per file-reader goroutine,
// never contends.
type Pool struct {
	mu      sync.Mutex
	buckets map[uint64][]int // hash -> indices into entries
	entries []entry
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{buckets: make(map[uint64][]int)}
}

// Intern returns the Symbol for b, inserting a new one if b has not been
// seen before by this pool. The returned Symbol is stable for the
// lifetime of the pool.
func (p *Pool) Intern(b []byte) Symbol {
	h := xxh3.Hash(b)

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, idx := range p.buckets[h] {
		if string(p.entries[idx].bytes) == string(b) {
			return p.entries[idx].sym
		}
	}

	owned := make([]byte, len(b))
	copy(owned, b)
	sym := Symbol(len(p.entries) + 1)
	idx := len(p.entries)
	p.entries = append(p.entries, entry{bytes: owned, sym: sym})
	p.buckets[h] = append(p.buckets[h], idx)
	return sym
}

// InternString is a convenience wrapper for string inputs; it converts s
// to a byte slice and calls Intern.
func (p *Pool) InternString(s string) Symbol {
	return p.Intern([]byte(s))
}

// Resolve returns the bytes interned under sym. The returned slice must
// not be mutated by the caller; it remains valid for the lifetime of the
// pool.
func (p *Pool) Resolve(sym Symbol) []byte {
	if sym == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := int(sym) - 1
	if idx < 0 || idx >= len(p.entries) {
		return nil
	}
	return p.entries[idx].bytes
}

// ResolveString is a convenience wrapper for Resolve that decodes the
// result as UTF-8.
func (p *Pool) ResolveString(sym Symbol) string {
	return string(p.Resolve(sym))
}

// Equal reports whether sym's interned bytes equal b, without going
// through a separate Intern call (avoids inserting b if it is new).
func (p *Pool) Equal(sym Symbol, b []byte) bool {
	return string(p.Resolve(sym)) == string(b)
}

// Len returns the number of distinct symbols interned so far.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
