package textrange

import "strings"

// Pass identifies which matching strategy located a snippet.
type Pass int

const (
	// PassExact is a literal substring match.
	PassExact Pass = iota + 1
	// PassWhitespace matched after collapsing whitespace runs.
	PassWhitespace
	// PassFuzzy matched after stripping punctuation, markup and case.
	PassFuzzy
)

// String returns the pass name.
func (p Pass) String() string {
	switch p {
	case PassExact:
		return "exact"
	case PassWhitespace:
		return "whitespace"
	case PassFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Match is a located snippet.
type Match struct {
	Range
	Pass Pass
}

// Locate finds needle in haystack. The passes run in order of increasing
// tolerance and the first one that hits wins, even when a later pass would
// have found a different region. Within a pass the leftmost match wins.
//
// An empty needle, or one that sanitizes to nothing, is never found.
func Locate(haystack, needle string) (Match, bool) {
	clean := sanitize(needle)
	if clean == "" {
		return Match{}, false
	}

	if i := strings.Index(haystack, clean); i >= 0 {
		return Match{Range: Range{Start: i, End: i + len(clean)}, Pass: PassExact}, true
	}

	h := collapse(haystack, nil)
	n := collapse(clean, nil)
	if k := strings.Index(h.text, n.text); k >= 0 {
		return Match{Range: h.span(k, len(n.text)), Pass: PassWhitespace}, true
	}

	hf := collapseComposed(haystack, foldForMatch)
	nf := strings.Trim(collapseComposed(clean, foldForMatch).text, " ")
	if nf == "" {
		return Match{}, false
	}
	if k := strings.Index(hf.text, nf); k >= 0 {
		return Match{Range: hf.span(k, len(nf)), Pass: PassFuzzy}, true
	}

	return Match{}, false
}

// Find is Locate without the pass information.
func Find(haystack, needle string) (Range, bool) {
	m, ok := Locate(haystack, needle)
	return m.Range, ok
}
