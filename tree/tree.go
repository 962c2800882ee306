// Package tree holds the in-memory representation of one CoNLL-U sentence.
// Values are frozen once the conllu reader finishes parsing a sentence;
// nothing in this package mutates a Tree or Word after construction.
package tree

import "github.com/oxhq/treesearch/pool"

// KV is one ordered key-value pair parsed from a FEATS or MISC field.
type KV struct {
	Key, Value pool.Symbol
}

// Word represents one token row of a CoNLL-U sentence.
type Word struct {
	// Index is this word's 0-based position within its Tree.
	Index int
	// TokenID is the original CoNLL-U integer id (1-based).
	TokenID int

	Form   pool.Symbol
	Lemma  pool.Symbol
	UPOS   pool.Symbol
	Deprel pool.Symbol

	// XPOS is zero (no symbol) iff the CoNLL-U field was "_".
	XPOS pool.Symbol

	// Head is the 0-based index of this word's parent, or -1 if this word
	// is the sentence root (CoNLL-U HEAD == 0).
	Head int

	Feats []KV
	Misc  []KV

	// Children holds the indices of words whose Head equals Index, in
	// ascending order. Computed once after parsing.
	Children []int
}

// HasHead reports whether Word has a parent in its tree.
func (w *Word) HasHead() bool { return w.Head >= 0 }

// HasXPOS reports whether the XPOS field was present (not "_").
func (w *Word) HasXPOS() bool { return w.XPOS != 0 }

// FeatValue returns the value symbol for key in feats/misc (whichever the
// caller selected) along with whether the key was present. Linear scan
// over the ordered pairs is fine since n is small.
func FeatValue(kvs []KV, key pool.Symbol) (pool.Symbol, bool) {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return 0, false
}

// Tree is one parsed, frozen sentence.
type Tree struct {
	Words []Word

	// SentenceText is the reconstructed "# text = ..." comment, if present.
	SentenceText string

	// Metadata maps every "# key = value" comment key to its value,
	// including "text".
	Metadata map[string]string

	Pool *pool.Pool
}

// Word returns the word at idx. Panics on out-of-range idx: callers in
// this module only ever index with values already validated against
// len(Words) during parsing or matching.
func (t *Tree) Word(idx int) *Word { return &t.Words[idx] }

// Len returns the number of words in the tree.
func (t *Tree) Len() int { return len(t.Words) }

// finalizeChildren computes each Word's Children slice by inverting Head
// across the whole tree. Called once by the reader after parsing all rows
// of a sentence.
func finalizeChildren(words []Word) {
	for i := range words {
		if h := words[i].Head; h >= 0 {
			words[h].Children = append(words[h].Children, words[i].Index)
		}
	}
}

// New builds a Tree from already-parsed words, computing Children and
// freezing the result. p is the pool all of words' symbols were interned
// into.
func New(words []Word, sentenceText string, metadata map[string]string, p *pool.Pool) *Tree {
	finalizeChildren(words)
	return &Tree{Words: words, SentenceText: sentenceText, Metadata: metadata, Pool: p}
}
