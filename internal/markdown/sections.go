package markdown

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dshills/quizedit/internal/engine/textrange"
)

// titleLimit is the maximum section title length in runes.
const titleLimit = 40

// Section is a block of an explanation text.
type Section struct {
	ID       string          `json:"id" yaml:"id"`
	Title    string          `json:"title" yaml:"title"`
	Markdown string          `json:"markdown" yaml:"markdown"`
	Range    textrange.Range `json:"range" yaml:"range"`
}

// ParseSections splits src before every heading and every line starting
// with "---". Whitespace-only blocks are skipped but still count towards
// the numbering of later sections.
func ParseSections(src string) []Section {
	if strings.TrimSpace(src) == "" {
		return nil
	}

	lines := Tokenize(src)
	var blocks [][]Line
	for _, l := range lines {
		if len(blocks) == 0 || startsSection(l) {
			blocks = append(blocks, []Line{l})
			continue
		}
		last := len(blocks) - 1
		blocks[last] = append(blocks[last], l)
	}

	sections := make([]Section, 0, len(blocks))
	for index, block := range blocks {
		r := blockRange(block)
		md := r.Text(src)
		if strings.TrimSpace(md) == "" {
			continue
		}
		sections = append(sections, Section{
			ID:       fmt.Sprintf("section-%d", index),
			Title:    truncateTitle(sectionTitle(block, index)),
			Markdown: md,
			Range:    r,
		})
	}
	return sections
}

func startsSection(l Line) bool {
	if l.Kind == KindHeading || (l.Kind == KindExplanation && l.Level > 0) {
		return true
	}
	return strings.HasPrefix(l.Text, "---")
}

func sectionTitle(block []Line, index int) string {
	for len(block) > 0 && block[0].Kind == KindBlank {
		block = block[1:]
	}
	fallback := fmt.Sprintf("Abschnitt %d", index+1)
	if len(block) == 0 {
		return fallback
	}

	first := strings.TrimSpace(block[0].Text)
	switch {
	case strings.HasPrefix(first, "#"):
		return stripHashes(first)
	case strings.HasPrefix(first, "---"):
		if len(block) > 1 && strings.HasPrefix(strings.TrimSpace(block[1].Text), "#") {
			return stripHashes(strings.TrimSpace(block[1].Text))
		}
		return fallback
	default:
		return strings.Map(func(r rune) rune {
			switch r {
			case '*', '_', '`', '#':
				return -1
			}
			return r
		}, first)
	}
}

func stripHashes(s string) string {
	n := 0
	for n < len(s) && n < 6 && s[n] == '#' {
		n++
	}
	return strings.TrimSpace(s[n:])
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= titleLimit {
		return title
	}
	return strings.TrimRightFunc(string(runes[:titleLimit]), unicode.IsSpace) + "..."
}
