package conllu

import (
	"strconv"
	"strings"

	"github.com/oxhq/treesearch/errs"
	"github.com/oxhq/treesearch/pool"
	"github.com/oxhq/treesearch/tree"
)

const numFields = 10

// rawRow is one kept (single-integer-ID) token row, pre-head-resolution.
type rawRow struct {
	tokenID     int
	form        pool.Symbol
	lemma       pool.Symbol
	upos        pool.Symbol
	xpos        pool.Symbol
	hasXPOS     bool
	deprel      pool.Symbol
	headTokenID int // 0 means root
	feats       []tree.KV
	misc        []tree.KV
	line        int // 1-based source line, for error reporting after head resolution
}

// sentenceBuilder accumulates one sentence's comments and kept rows
// across consumeLine calls, then resolves head references and freezes a
// tree.Tree in finish().
type sentenceBuilder struct {
	pool     *pool.Pool
	metadata map[string]string
	rows     []rawRow
	anyLine  bool // saw at least one comment or token row (of any kind)
}

func newSentenceBuilder(p *pool.Pool) *sentenceBuilder {
	return &sentenceBuilder{pool: p, metadata: make(map[string]string)}
}

func (b *sentenceBuilder) hasContent() bool { return b.anyLine }

// consumeLine parses one non-blank line of the sentence: a "# key = value"
// comment or a 10-field token row. lineNum is 1-based for error reporting.
func (b *sentenceBuilder) consumeLine(line string, lineNum int) error {
	b.anyLine = true

	if strings.HasPrefix(line, "#") {
		b.consumeComment(line)
		return nil
	}

	fields := strings.Split(line, "\t")
	if len(fields) != numFields {
		return errs.AtLine(errs.ErrConllu, "expected 10 tab-separated fields, got "+strconv.Itoa(len(fields)), lineNum)
	}

	row, keep, err := b.parseRow(fields, lineNum)
	if err != nil {
		return err
	}
	if keep {
		b.rows = append(b.rows, row)
	}
	return nil
}

// consumeComment records a "# key = value" line into metadata. Comments
// that don't match "key = value" are ignored; malformed comments are not
// a parse error, only token rows are format-checked.
func (b *sentenceBuilder) consumeComment(line string) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	eq := strings.Index(body, "=")
	if eq < 0 {
		return
	}
	key := strings.TrimSpace(body[:eq])
	value := strings.TrimSpace(body[eq+1:])
	if key == "" {
		return
	}
	b.metadata[key] = value
}

// parseRow parses one 10-field token row. keep is false for multiword
// (range) and empty-node (decimal) ID rows, which are recognized but
// excluded from the tree.
func (b *sentenceBuilder) parseRow(f []string, lineNum int) (rawRow, bool, error) {
	idField := f[0]
	if strings.Contains(idField, "-") || strings.Contains(idField, ".") {
		return rawRow{}, false, nil
	}

	tokenID, err := strconv.Atoi(idField)
	if err != nil {
		return rawRow{}, false, errs.AtLine(errs.ErrConllu, "invalid ID field "+strconv.Quote(idField), lineNum)
	}

	headField := f[6]
	head, err := strconv.Atoi(headField)
	if err != nil {
		return rawRow{}, false, errs.AtLine(errs.ErrConllu, "invalid HEAD field "+strconv.Quote(headField), lineNum)
	}

	row := rawRow{
		tokenID:     tokenID,
		form:        b.pool.InternString(f[1]),
		lemma:       b.pool.InternString(f[2]),
		upos:        b.pool.InternString(f[3]),
		deprel:      b.pool.InternString(f[7]),
		headTokenID: head,
		feats:       b.parseKVField(f[5]),
		misc:        b.parseKVField(f[9]),
		line:        lineNum,
	}
	if f[4] != "_" {
		row.xpos = b.pool.InternString(f[4])
		row.hasXPOS = true
	}
	return row, true, nil
}

// parseKVField parses a FEATS/MISC field ("_" or "K1=V1|K2=V2|...") into
// ordered key-value pairs.
func (b *sentenceBuilder) parseKVField(field string) []tree.KV {
	if field == "_" {
		return nil
	}
	parts := strings.Split(field, "|")
	kvs := make([]tree.KV, 0, len(parts))
	for _, part := range parts {
		eq := strings.Index(part, "=")
		if eq < 0 {
			// Keys without a value are recorded as key="" rather than
			// dropped, so a malformed MISC entry doesn't silently vanish.
			kvs = append(kvs, tree.KV{Key: b.pool.InternString(part), Value: b.pool.InternString("")})
			continue
		}
		kvs = append(kvs, tree.KV{
			Key:   b.pool.InternString(part[:eq]),
			Value: b.pool.InternString(part[eq+1:]),
		})
	}
	return kvs
}

// finish resolves head-token-ID references to 0-based indices and freezes
// a tree.Tree. A HEAD referring to a row absent from the tree (filtered
// as multiword/empty-node, or no such ID at all) is a CoNLL-U format
// error surfaced to the caller.
func (b *sentenceBuilder) finish() (*tree.Tree, error) {
	words, err := b.resolveHeads()
	if err != nil {
		return nil, err
	}
	text := b.metadata["text"]
	return tree.New(words, text, b.metadata, b.pool), nil
}

// resolveHeads maps each row's 1-based headTokenID to the 0-based index
// of the row it refers to, producing the final tree.Word slice.
func (b *sentenceBuilder) resolveHeads() ([]tree.Word, error) {
	byTokenID := make(map[int]int, len(b.rows))
	for i, r := range b.rows {
		byTokenID[r.tokenID] = i
	}

	words := make([]tree.Word, len(b.rows))
	for i, r := range b.rows {
		head := -1
		if r.headTokenID != 0 {
			idx, ok := byTokenID[r.headTokenID]
			if !ok {
				return nil, errs.AtLine(errs.ErrConllu, "HEAD refers to a row not present in the tree", r.line)
			}
			head = idx
		}
		words[i] = tree.Word{
			Index:   i,
			TokenID: r.tokenID,
			Form:    r.form,
			Lemma:   r.lemma,
			UPOS:    r.upos,
			XPOS:    r.xpos,
			Deprel:  r.deprel,
			Head:    head,
			Feats:   r.feats,
			Misc:    r.misc,
		}
	}
	return words, nil
}
