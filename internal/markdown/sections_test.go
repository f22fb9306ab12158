package markdown

import (
	"strings"
	"testing"
)

func TestParseSections(t *testing.T) {
	src := "Einführung in das **Löten** mit `Lot`\nmehr Text\n# Grundlagen\nInhalt\n---\n## Nach dem Trenner\nText\n### Ein sehr langer Abschnittstitel, der deutlich zu lang ist"
	sections := ParseSections(src)

	wantTitles := []string{
		"Einführung in das Löten mit Lot",
		"Grundlagen",
		"Abschnitt 3",
		"Nach dem Trenner",
		"Ein sehr langer Abschnittstitel, der deu...",
	}
	if len(sections) != len(wantTitles) {
		t.Fatalf("got %d sections, want %d", len(sections), len(wantTitles))
	}
	for i, s := range sections {
		if s.Title != wantTitles[i] {
			t.Errorf("section %d title = %q, want %q", i, s.Title, wantTitles[i])
		}
		if s.Range.Text(src) != s.Markdown {
			t.Errorf("section %d range does not cover its markdown", i)
		}
	}
	if sections[1].Markdown != "# Grundlagen\nInhalt" {
		t.Errorf("markdown = %q", sections[1].Markdown)
	}
	if sections[2].ID != "section-2" || sections[2].Markdown != "---" {
		t.Errorf("rule section = %+v", sections[2])
	}
}

func TestParseSectionsSkipsBlankBlocks(t *testing.T) {
	src := "\n\n# Eins\nText"
	sections := ParseSections(src)
	if len(sections) != 1 {
		t.Fatalf("got %d sections", len(sections))
	}
	if sections[0].ID != "section-1" {
		t.Errorf("id = %q, want numbering to count the blank block", sections[0].ID)
	}
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("ä", 45)
	got := truncateTitle(long)
	if got != strings.Repeat("ä", 40)+"..." {
		t.Errorf("truncateTitle() = %q", got)
	}
	if truncateTitle("kurz") != "kurz" {
		t.Error("short titles must stay")
	}
}
