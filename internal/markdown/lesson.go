package markdown

import (
	"fmt"
	"strings"

	"github.com/dshills/quizedit/internal/engine/textrange"
)

const (
	defaultLessonTitle = "Lektion"
	slidePrefix        = "Folie"
)

// Slide is one slide of a lesson.
type Slide struct {
	ID           string          `json:"id" yaml:"id"`
	Label        string          `json:"label" yaml:"label"`
	Title        string          `json:"title" yaml:"title"`
	DisplayTitle string          `json:"displayTitle" yaml:"displayTitle"`
	Markdown     string          `json:"markdown" yaml:"markdown"`
	Range        textrange.Range `json:"range" yaml:"range"`
}

// Lesson is a titled sequence of slides.
type Lesson struct {
	Title  string  `json:"title" yaml:"title"`
	Slides []Slide `json:"slides" yaml:"slides"`
}

// Slide returns the slide with the given id.
func (l Lesson) Slide(id string) (Slide, bool) {
	for _, s := range l.Slides {
		if s.ID == id {
			return s, true
		}
	}
	return Slide{}, false
}

// ParseLesson splits src into slides at every "## Folie..." heading. The
// first slide also owns everything before it, so the slides tile the whole
// source. A source without slide headings becomes a single slide.
func ParseLesson(src string) Lesson {
	if strings.TrimSpace(src) == "" {
		return Lesson{Slides: []Slide{}}
	}

	lines := Tokenize(src)
	lesson := Lesson{Title: defaultLessonTitle}
	for _, l := range lines {
		if l.Kind == KindHeading && l.Level == 1 && l.HeadingText() != "" {
			lesson.Title = l.HeadingText()
			break
		}
	}

	blocks := splitBlocks(lines, isSlideHeading)
	if len(blocks) == 0 {
		lesson.Slides = []Slide{{
			ID:           "slide-0",
			Label:        "Gesamtes Dokument",
			Title:        lesson.Title,
			DisplayTitle: lesson.Title,
			Markdown:     src,
			Range:        textrange.Range{Start: 0, End: len(src)},
		}}
		return lesson
	}

	lesson.Slides = make([]Slide, 0, len(blocks))
	for index, block := range blocks {
		start := block[0].Start
		if index == 0 {
			start = 0
		}
		end := len(src)
		if index+1 < len(blocks) {
			end = blocks[index+1][0].Start
		}
		r := textrange.Range{Start: start, End: end}

		label := block[0].HeadingText()
		if label == "" {
			label = fmt.Sprintf("Folie %d", index+1)
		}

		slide := Slide{
			ID:           fmt.Sprintf("slide-%d", index),
			Label:        label,
			Title:        label,
			DisplayTitle: label,
			Markdown:     r.Text(src),
			Range:        r,
		}
		// The first other heading inside the slide names it.
		for _, l := range block[1:] {
			if (l.Kind == KindHeading || l.Level > 0) && !isSlideHeadingFold(l) {
				slide.Title = stripHashes(strings.TrimSpace(l.Text))
				slide.DisplayTitle = label + " – " + slide.Title
				break
			}
		}
		lesson.Slides = append(lesson.Slides, slide)
	}
	return lesson
}

func isSlideHeading(l Line) bool {
	return l.Kind == KindHeading && l.Level == 2 && strings.HasPrefix(l.HeadingText(), slidePrefix)
}

func isSlideHeadingFold(l Line) bool {
	return l.Level == 2 && strings.HasPrefix(strings.ToLower(l.HeadingText()), strings.ToLower(slidePrefix))
}
