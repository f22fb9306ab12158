package textrange

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// view is a normalized rendition of a source string. Every byte of text
// maps back to the source rune it was produced from.
type view struct {
	text   string
	starts []int // source offset of the rune behind text[i]
	ends   []int // source offset just past that rune
}

// span maps n normalized bytes starting at i back to a source range.
func (v *view) span(i, n int) Range {
	return Range{Start: v.starts[i], End: v.ends[i+n-1]}
}

// segmenter feeds consecutive pieces of src to emit together with the
// source offsets each piece was read from.
type segmenter func(src string, emit func(piece string, start, end int))

// byRune emits every rune of src unchanged.
func byRune(src string, emit func(piece string, start, end int)) {
	for i := 0; i < len(src); {
		_, size := utf8.DecodeRuneInString(src[i:])
		emit(src[i:i+size], i, i+size)
		i += size
	}
}

// byComposed emits the NFC form of src one normalization segment at a
// time. A decomposed umlaut becomes one rune covering all of its source
// bytes.
func byComposed(src string, emit func(piece string, start, end int)) {
	var it norm.Iter
	it.InitString(norm.NFC, src)
	for !it.Done() {
		start := it.Pos()
		piece := string(it.Next())
		emit(piece, start, it.Pos())
	}
}

// collapse builds a view of src in which every maximal run of whitespace
// becomes a single ASCII space. fold, when non-nil, rewrites each rune
// first; returning a space from fold merges the rune into the surrounding
// whitespace run.
func collapse(src string, fold func(rune) rune) *view {
	return build(src, fold, byRune)
}

// collapseComposed is collapse over the NFC form of src. Offsets still
// point into src.
func collapseComposed(src string, fold func(rune) rune) *view {
	return build(src, fold, byComposed)
}

func build(src string, fold func(rune) rune, segments segmenter) *view {
	v := &view{
		starts: make([]int, 0, len(src)),
		ends:   make([]int, 0, len(src)),
	}
	var b strings.Builder
	b.Grow(len(src))

	prevSpace := false
	segments(src, func(piece string, start, end int) {
		for _, r := range piece {
			if fold != nil {
				r = fold(r)
			}

			if unicode.IsSpace(r) {
				if !prevSpace {
					b.WriteByte(' ')
					v.starts = append(v.starts, start)
					v.ends = append(v.ends, end)
					prevSpace = true
				}
				continue
			}
			n, _ := b.WriteRune(r)
			for j := 0; j < n; j++ {
				v.starts = append(v.starts, start)
				v.ends = append(v.ends, end)
			}
			prevSpace = false
		}
	})

	v.text = b.String()
	return v
}

// foldForMatch is the rune rewrite of the fuzzy pass.
func foldForMatch(r rune) rune {
	switch r {
	case '“', '”', '„', '«', '»', '‟':
		r = '"'
	case '’', '‘', '‚', '`', '´', 'ʼ', 'ʹ', '＇':
		r = '\''
	case '–', '—', '−', '‑', '‒', '﹘':
		r = '-'
	}
	r = unicode.ToLower(r)
	if !isWordRune(r) {
		return ' '
	}
	return r
}

// isWordRune reports whether r survives the fuzzy pass: ASCII letters and
// digits plus German umlauts and ß. Callers lowercase first.
func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == 'ä', r == 'ö', r == 'ü', r == 'ß':
		return true
	}
	return false
}

// sanitize strips what models like to append to a quote: surrounding
// whitespace, one trailing ellipsis and trailing closing brackets or quotes.
func sanitize(s string) string {
	out := strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(out, "…"):
		out = strings.TrimSuffix(out, "…")
	case strings.HasSuffix(out, "..."):
		out = strings.TrimSuffix(out, "...")
	}
	return strings.TrimRightFunc(out, func(r rune) bool {
		switch r {
		case ')', ']', '}', '"', '\'', '»':
			return true
		}
		return unicode.IsSpace(r)
	})
}
