package editor

import (
	"errors"

	"github.com/dshills/quizedit/internal/check"
	"github.com/dshills/quizedit/internal/engine/textrange"
	"github.com/dshills/quizedit/internal/markdown"
)

// Applied describes an applied suggestion.
type Applied struct {
	Suggestion check.Suggestion
	// Match is the replaced range in the document before the edit.
	Match textrange.Match
	// Text is the document after the edit.
	Text string
}

// scopeFunc returns the part of doc a snippet is searched in.
type scopeFunc func(doc string) (textrange.Range, error)

func wholeDocument(doc string) (textrange.Range, error) {
	return textrange.NewRange(0, len(doc)), nil
}

// Apply replaces the suggestion's original text with its replacement.
// Locating and replacing happen in one history update, so a concurrent
// edit cannot change the document in between.
func (s *Session) Apply(sg check.Suggestion) (Applied, error) {
	return s.applyIn("apply", sg, wholeDocument)
}

// ApplyAll applies suggestions in order, each as its own undoable edit.
// Suggestions that cannot be located are skipped and reported in the
// joined error.
func (s *Session) ApplyAll(suggestions []check.Suggestion) ([]Applied, error) {
	var applied []Applied
	var errs []error
	for _, sg := range suggestions {
		a, err := s.Apply(sg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		applied = append(applied, a)
	}
	return applied, errors.Join(errs...)
}

// ApplyInSlide applies a suggestion inside one slide of a lesson. Text
// outside the slide is never touched, even if it also matches.
func (s *Session) ApplyInSlide(slideID string, sg check.Suggestion) (Applied, error) {
	return s.applyIn("apply", sg, func(doc string) (textrange.Range, error) {
		slide, ok := markdown.ParseLesson(doc).Slide(slideID)
		if !ok {
			return textrange.Range{}, newOpError("apply", slideID, ErrUnknownSlide)
		}
		return slide.Range, nil
	})
}

// ApplyInTask applies a suggestion inside one task.
func (s *Session) ApplyInTask(taskID string, sg check.Suggestion) (Applied, error) {
	return s.applyIn("apply", sg, func(doc string) (textrange.Range, error) {
		t, ok := findTask(s.kind, doc, taskID)
		if !ok {
			return textrange.Range{}, newOpError("apply", taskID, ErrUnknownTask)
		}
		return t.Range, nil
	})
}

func (s *Session) applyIn(op string, sg check.Suggestion, scope scopeFunc) (Applied, error) {
	var applied Applied
	var opErr error
	s.h.Update(func(doc string) string {
		r, err := scope(doc)
		if err != nil {
			opErr = err
			return doc
		}
		m, ok := textrange.Locate(r.Text(doc), sg.Original)
		if !ok {
			opErr = newOpError(op, sg.Original, ErrNotLocated)
			return doc
		}
		m.Range = m.Range.Shift(r.Start)
		next := textrange.Replace(doc, m.Range, sg.Suggestion)
		applied = Applied{Suggestion: sg, Match: m, Text: next}
		return next
	})
	if opErr != nil {
		s.log.Debug("%v", opErr)
		return Applied{}, opErr
	}
	s.log.Debug("applied %s suggestion at %s (%s)", sg.Category, applied.Match.Range, applied.Match.Pass)
	return applied, nil
}

// DeleteTask removes a task block from the document.
func (s *Session) DeleteTask(taskID string) error {
	var opErr error
	s.h.Update(func(doc string) string {
		t, ok := findTask(s.kind, doc, taskID)
		if !ok {
			opErr = newOpError("delete", taskID, ErrUnknownTask)
			return doc
		}
		return textrange.Replace(doc, withLineEnd(doc, t.Range), "")
	})
	return opErr
}

// withLineEnd extends r over the line terminator that follows it.
func withLineEnd(doc string, r textrange.Range) textrange.Range {
	if r.End < len(doc) && doc[r.End] == '\r' {
		r.End++
	}
	if r.End < len(doc) && doc[r.End] == '\n' {
		r.End++
	}
	return r
}

func findTask(kind Kind, doc, id string) (markdown.Task, bool) {
	for _, t := range tasksOf(kind, doc) {
		if t.ID == id {
			return t, true
		}
	}
	return markdown.Task{}, false
}
