// Package diff renders previews of document edits.
package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines shown around a change.
const contextLines = 2

var (
	delLine = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"})
	addLine = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "114"})
	delChar = delLine.Underline(true)
	addChar = addLine.Underline(true)
	faint   = lipgloss.NewStyle().Faint(true)
)

// painter decorates diff output. The plain painter marks changed spans
// in word-diff style so they stay visible without colour.
type painter struct {
	del, add, delSpan, addSpan, context func(string) string
}

var plain = painter{
	del:     identity,
	add:     identity,
	delSpan: func(s string) string { return "[-" + s + "-]" },
	addSpan: func(s string) string { return "{+" + s + "+}" },
	context: identity,
}

var coloured = painter{
	del:     render(delLine),
	add:     render(addLine),
	delSpan: render(delChar),
	addSpan: render(addChar),
	context: render(faint),
}

func identity(s string) string { return s }

func render(st lipgloss.Style) func(string) string {
	return func(s string) string { return st.Render(s) }
}

// Render returns a unified line diff of before and after. Runs of
// removed and added lines of equal length are paired and highlighted
// character by character. Unchanged lines further than two lines from a
// change are elided.
func Render(before, after string, color bool) string {
	if before == after {
		return "No changes\n"
	}
	p := plain
	if color {
		p = coloured
	}

	hunks := lineDiff(before, after)
	var sb strings.Builder
	for i := 0; i < len(hunks); i++ {
		h := hunks[i]
		switch h.Type {
		case dmp.DiffEqual:
			writeContext(&sb, p, h.lines, i == 0, i == len(hunks)-1)
		case dmp.DiffDelete:
			if i+1 < len(hunks) && hunks[i+1].Type == dmp.DiffInsert && len(hunks[i+1].lines) == len(h.lines) {
				for j := range h.lines {
					writePair(&sb, p, h.lines[j], hunks[i+1].lines[j])
				}
				i++
				continue
			}
			writeLines(&sb, p.del("- "), p.del, h.lines)
		case dmp.DiffInsert:
			writeLines(&sb, p.add("+ "), p.add, h.lines)
		}
	}
	return sb.String()
}

type hunk struct {
	Type  dmp.Operation
	lines []string
}

func lineDiff(before, after string) []hunk {
	d := dmp.New()
	a, b, lines := d.DiffLinesToChars(before, after)
	diffs := d.DiffCharsToLines(d.DiffMain(a, b, false), lines)

	hunks := make([]hunk, 0, len(diffs))
	for _, df := range diffs {
		hunks = append(hunks, hunk{Type: df.Type, lines: splitLines(df.Text)})
	}
	return hunks
}

// splitLines splits s into lines without their terminators.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

func writeLines(sb *strings.Builder, prefix string, style func(string) string, lines []string) {
	for _, l := range lines {
		sb.WriteString(prefix)
		sb.WriteString(style(l))
		sb.WriteByte('\n')
	}
}

func writeContext(sb *strings.Builder, p painter, lines []string, first, last bool) {
	head, tail := contextLines, contextLines
	if first {
		head = 0
	}
	if last {
		tail = 0
	}
	if len(lines) <= head+tail {
		writeLines(sb, "  ", p.context, lines)
		return
	}
	writeLines(sb, "  ", p.context, lines[:head])
	sb.WriteString(p.context("  …") + "\n")
	writeLines(sb, "  ", p.context, lines[len(lines)-tail:])
}

func writePair(sb *strings.Builder, p painter, before, after string) {
	d := dmp.New()
	diffs := d.DiffMain(before, after, false)
	diffs = d.DiffCleanupSemantic(diffs)

	var del, add strings.Builder
	for _, df := range diffs {
		switch df.Type {
		case dmp.DiffDelete:
			del.WriteString(p.delSpan(df.Text))
		case dmp.DiffInsert:
			add.WriteString(p.addSpan(df.Text))
		case dmp.DiffEqual:
			del.WriteString(p.del(df.Text))
			add.WriteString(p.add(df.Text))
		}
	}
	sb.WriteString(p.del("- ") + del.String() + "\n")
	sb.WriteString(p.add("+ ") + add.String() + "\n")
}

// Stats counts changed runes.
type Stats struct {
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
}

// Compute returns the number of runes inserted and deleted between
// before and after.
func Compute(before, after string) Stats {
	d := dmp.New()
	diffs := d.DiffCleanupSemantic(d.DiffMain(before, after, false))

	var s Stats
	for _, df := range diffs {
		switch df.Type {
		case dmp.DiffInsert:
			s.Inserted += utf8.RuneCountInString(df.Text)
		case dmp.DiffDelete:
			s.Deleted += utf8.RuneCountInString(df.Text)
		}
	}
	return s
}
