package check

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrMalformedResponse indicates the reply is not valid JSON.
	ErrMalformedResponse = errors.New("malformed check response")
	// ErrNoProvider indicates a checker without a chat provider.
	ErrNoProvider = errors.New("no chat provider configured")
)

// Field aliases, in lookup order. The first present, non-null key wins.
var (
	originalKeys    = []string{"original", "Stelle", "Original", "Abschnitt", "Aufgabe"}
	suggestionKeys  = []string{"suggestion", "Lösungsvorschlag", "Korrektur"}
	explanationKeys = []string{"explanation", "Fehlerbeschreibung", "Begründung"}
	sourcesKeys     = []string{"sources", "Quellen"}
)

// Decode parses a review reply. document is the reviewed markdown and is
// used to recover originals that name a label instead of the faulty text.
//
// Accepted shapes are an object with any of the arrays "fachlich",
// "sprachlich" and "guidelines"; an object {"errors": [...]}; and a bare
// array. Errors and bare arrays count as factual findings. Any other valid
// JSON yields empty results.
func Decode(content, document string) (Results, error) {
	content = stripFences(content)
	if strings.TrimSpace(content) == "" {
		return Empty(), nil
	}
	if !gjson.Valid(content) {
		return Empty(), fmt.Errorf("%w: %s", ErrMalformedResponse, preview(content))
	}

	root := gjson.Parse(content)
	res := Empty()
	d := decoder{document: document}

	switch {
	case root.IsObject() && anyArray(root, string(Factual), string(Language), string(Guidelines)):
		res.Factual = d.items(root.Get(string(Factual)), Factual)
		res.Language = d.items(root.Get(string(Language)), Language)
		res.Guidelines = d.items(root.Get(string(Guidelines)), Guidelines)
	case root.IsObject() && root.Get("errors").IsArray():
		res.Factual = d.items(root.Get("errors"), Factual)
	case root.IsArray():
		res.Factual = d.items(root, Factual)
	}
	return res, nil
}

func anyArray(obj gjson.Result, keys ...string) bool {
	for _, k := range keys {
		if obj.Get(k).IsArray() {
			return true
		}
	}
	return false
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func preview(s string) string {
	const limit = 80
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

type decoder struct {
	document string
}

func (d decoder) items(arr gjson.Result, c Category) []Suggestion {
	out := []Suggestion{}
	if !arr.IsArray() {
		return out
	}
	arr.ForEach(func(_, item gjson.Result) bool {
		out = append(out, d.item(item, c))
		return true
	})
	return out
}

func (d decoder) item(item gjson.Result, c Category) Suggestion {
	s := Suggestion{
		ID:          uuid.NewString(),
		Category:    c,
		Original:    nfc(field(item, originalKeys)),
		Suggestion:  nfc(field(item, suggestionKeys)),
		Explanation: nfc(field(item, explanationKeys)),
		Sources:     sources(item),
	}
	s.Original = deriveOriginal(s.Original, s.Explanation, s.Suggestion, d.document)
	return s
}

// field returns the first present, non-null alias as a string. Numbers and
// booleans are stringified; arrays and objects keep their JSON text.
func field(item gjson.Result, keys []string) string {
	if !item.IsObject() {
		return ""
	}
	for _, k := range keys {
		v := item.Get(gjson.Escape(k))
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Type == gjson.JSON {
			return v.Raw
		}
		return v.String()
	}
	return ""
}

func sources(item gjson.Result) []string {
	for _, k := range sourcesKeys {
		v := item.Get(k)
		if !v.IsArray() {
			continue
		}
		out := []string{}
		v.ForEach(func(_, s gjson.Result) bool {
			out = append(out, nfc(s.String()))
			return true
		})
		return out
	}
	return nil
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

var genericOriginals = map[string]bool{
	"Aufgabenstellung": true,
	"Lösungserklärung": true,
	"Alt-Text":         true,
	"Alt Text":         true,
	"Abschnitt":        true,
}

var taskLabel = regexp.MustCompile(`(?i)^Aufgabe\s*\d+$`)

// isGeneric reports whether an original names a place instead of quoting
// text.
func isGeneric(s string) bool {
	return utf8.RuneCountInString(s) < 8 || genericOriginals[s] || taskLabel.MatchString(s)
}

// quotePatterns extract quoted snippets from an explanation, in order of
// preference.
var quotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]{8,200})"`),
	regexp.MustCompile(`„([^“]{8,200})“`),
	regexp.MustCompile(`‚([^’]{8,200})’`),
	regexp.MustCompile(`'([^']{8,200})'`),
}

// deriveOriginal replaces a generic original with text found in the
// document: a quoted snippet from the explanation, the explanation itself,
// or the document line sharing the most salient words. If nothing is
// found the trimmed original is returned.
func deriveOriginal(original, explanation, suggestion, document string) string {
	o := strings.TrimSpace(original)
	if !isGeneric(o) {
		return o
	}

	for _, rx := range quotePatterns {
		if m := rx.FindStringSubmatch(explanation); m != nil {
			snippet := strings.TrimSpace(m[1])
			if snippet != "" && strings.Contains(document, snippet) {
				return snippet
			}
		}
	}

	if n := utf8.RuneCountInString(explanation); n >= 8 && n <= 400 && strings.Contains(document, explanation) {
		return explanation
	}

	if line := bestLine(document, salientTokens(explanation, suggestion)); line != "" {
		return line
	}
	return o
}

const (
	minTokenRunes = 6
	maxTokens     = 6
)

// salientTokens returns up to maxTokens distinct lowercase words of at
// least minTokenRunes runes from the given texts.
func salientTokens(texts ...string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, text := range texts {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !isTokenRune(r)
		})
		for _, w := range words {
			if utf8.RuneCountInString(w) < minTokenRunes || seen[w] {
				continue
			}
			seen[w] = true
			tokens = append(tokens, w)
			if len(tokens) == maxTokens {
				return tokens
			}
		}
	}
	return tokens
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		return true
	case r == 'ä', r == 'ö', r == 'ü', r == 'ß':
		return true
	}
	return false
}

// bestLine returns the trimmed document line containing the most tokens.
// Ties keep the earliest line.
func bestLine(document string, tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	best, bestScore := "", 0
	for _, line := range strings.Split(document, "\n") {
		line = strings.TrimFunc(line, unicode.IsSpace)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		score := 0
		for _, t := range tokens {
			if strings.Contains(lower, t) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = line, score
		}
	}
	return best
}
