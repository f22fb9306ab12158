package markdown

import (
	"strings"
	"unicode"

	"github.com/dshills/quizedit/internal/engine/textrange"
)

// Kind classifies a markdown line.
type Kind int

const (
	// KindText is any line not matching another kind.
	KindText Kind = iota
	// KindBlank is an empty or whitespace-only line.
	KindBlank
	// KindHeading is an ATX heading ("#" to "######" followed by a space).
	KindHeading
	// KindRule is a thematic break ("---").
	KindRule
	// KindOption is an answer option ("A. text" or "- [ ] text").
	KindOption
	// KindAnswer is an answer key line ("Richtige Antwort: B").
	KindAnswer
	// KindExplanation starts an explanation ("**Erklärung:**" or "### Erklärung").
	KindExplanation
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBlank:
		return "blank"
	case KindHeading:
		return "heading"
	case KindRule:
		return "rule"
	case KindOption:
		return "option"
	case KindAnswer:
		return "answer"
	case KindExplanation:
		return "explanation"
	default:
		return "unknown"
	}
}

const (
	answerMarker      = "Richtige Antwort:"
	explanationBold   = "**Erklärung:**"
	explanationHeader = "### Erklärung"
)

// Line is one classified source line.
type Line struct {
	Kind  Kind
	Text  string // Line content without the line terminator
	Level int    // Heading level for KindHeading and "### Erklärung"
	Start int    // Byte offset of the first byte of the line
	End   int    // Byte offset just past the line content
}

// Range returns the byte range of the line content.
func (l Line) Range() textrange.Range {
	return textrange.Range{Start: l.Start, End: l.End}
}

// HeadingText returns the heading text without the leading hashes.
func (l Line) HeadingText() string {
	if l.Level == 0 {
		return strings.TrimSpace(l.Text)
	}
	return strings.TrimSpace(l.Text[l.Level:])
}

// Tokenize splits src into classified lines. Both "\n" and "\r\n"
// terminators are accepted; a trailing terminator does not produce an
// extra line.
func Tokenize(src string) []Line {
	if src == "" {
		return nil
	}

	lines := make([]Line, 0, strings.Count(src, "\n")+1)
	start := 0
	for start <= len(src) {
		end := strings.IndexByte(src[start:], '\n')
		next := 0
		if end < 0 {
			end = len(src)
			next = len(src) + 1
		} else {
			end += start
			next = end + 1
		}

		contentEnd := end
		if contentEnd > start && src[contentEnd-1] == '\r' {
			contentEnd--
		}

		if start < len(src) || end > start {
			lines = append(lines, classify(src[start:contentEnd], start, contentEnd))
		}
		start = next
	}
	return lines
}

func classify(text string, start, end int) Line {
	l := Line{Kind: KindText, Text: text, Start: start, End: end}
	trimmed := strings.TrimSpace(text)

	switch {
	case trimmed == "":
		l.Kind = KindBlank
	case strings.HasPrefix(trimmed, explanationBold):
		l.Kind = KindExplanation
	case strings.HasPrefix(text, explanationHeader):
		l.Kind = KindExplanation
		l.Level = 3
	case headingLevel(text) > 0:
		l.Kind = KindHeading
		l.Level = headingLevel(text)
	case strings.HasPrefix(trimmed, "---"):
		l.Kind = KindRule
	case isOption(text):
		l.Kind = KindOption
	case answerLetter(text) != 0:
		l.Kind = KindAnswer
	}
	return l
}

// headingLevel returns the ATX heading level of line, or 0.
func headingLevel(line string) int {
	n := 0
	for n < len(line) && n < 7 && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n >= len(line) {
		return 0
	}
	if line[n] != ' ' && line[n] != '\t' {
		return 0
	}
	return n
}

// isOption reports whether line starts an answer option.
func isOption(line string) bool {
	if len(line) >= 3 && line[0] >= 'A' && line[0] <= 'Z' && line[1] == '.' && line[2] == ' ' {
		return true
	}
	return checkbox(line) != 0
}

// checkbox returns 'x' or ' ' for "- [x]" / "- [ ]" lines, else 0.
func checkbox(line string) byte {
	if len(line) < 5 || !strings.HasPrefix(line, "- [") || line[4] != ']' {
		return 0
	}
	switch c := line[3]; {
	case c == 'x':
		return 'x'
	case c < 0x80 && unicode.IsSpace(rune(c)):
		return ' '
	}
	return 0
}

// answerLetter returns the letter following "Richtige Antwort:", or 0.
func answerLetter(line string) byte {
	i := strings.Index(line, answerMarker)
	if i < 0 {
		return 0
	}
	rest := strings.TrimLeftFunc(line[i+len(answerMarker):], unicode.IsSpace)
	if rest == "" || rest[0] < 'A' || rest[0] > 'Z' {
		return 0
	}
	return rest[0]
}

// joinLines returns the source text spanning lines, trimmed.
func joinLines(src string, lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(src[lines[0].Start:lines[len(lines)-1].End])
}
