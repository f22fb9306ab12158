// Package editor holds the markdown document being edited, with undo
// history, persistence, suggestion application and AI assistance.
package editor

import (
	"context"
	"strings"

	"github.com/dshills/quizedit/internal/check"
	"github.com/dshills/quizedit/internal/engine/history"
	"github.com/dshills/quizedit/internal/engine/textrange"
	"github.com/dshills/quizedit/internal/logging"
	"github.com/dshills/quizedit/internal/markdown"
	"github.com/dshills/quizedit/internal/store"
)

// Options configures a Session.
type Options struct {
	// Store persists the document after every change. Defaults to an
	// in-memory store.
	Store store.Store
	// Logger defaults to a no-op logger.
	Logger *logging.Logger
	// MaxHistory caps the undo stack. Zero means unbounded.
	MaxHistory int
}

// Session is an editable document of one kind. It is safe for concurrent
// use.
type Session struct {
	kind   Kind
	h      *history.History[string]
	log    *logging.Logger
	cancel func()
}

// New opens a session for kind, starting from the stored document if
// there is one.
func New(kind Kind, opts Options) *Session {
	st := opts.Store
	if st == nil {
		st = store.NewMemoryStore()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithComponent("editor").WithField("kind", string(kind))

	initial := store.LoadOr(st, kind.Schema(), "", log)
	s := &Session{
		kind: kind,
		h:    history.New(initial, history.WithMaxEntries[string](opts.MaxHistory)),
		log:  log,
	}
	s.cancel = store.Bind(s.h, st, kind.Schema(), log)
	return s
}

// Close stops persisting changes.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Kind returns the document kind.
func (s *Session) Kind() Kind { return s.kind }

// Text returns the current document.
func (s *Session) Text() string { return s.h.Present() }

// State returns the document with its undo and redo availability, read
// in one step.
func (s *Session) State() (text string, canUndo, canRedo bool) { return s.h.Status() }

// SetText replaces the document as an undoable edit. Returns false if
// text equals the current document.
func (s *Session) SetText(text string) bool { return s.h.Set(text) }

// Load replaces the document and discards the undo history.
func (s *Session) Load(text string) { s.h.Reset(text) }

// Undo reverts the last edit.
func (s *Session) Undo() bool { return s.h.Undo() }

// Redo re-applies the last undone edit.
func (s *Session) Redo() bool { return s.h.Redo() }

// CanUndo reports whether Undo would change the document.
func (s *Session) CanUndo() bool { return s.h.CanUndo() }

// CanRedo reports whether Redo would change the document.
func (s *Session) CanRedo() bool { return s.h.CanRedo() }

// OnChange registers fn to be called with the new document after every
// change. The returned function removes it.
func (s *Session) OnChange(fn func(text string)) (cancel func()) {
	return s.h.Subscribe(func(c history.Change[string]) { fn(c.Value) })
}

// Paste loads the clipboard text as a new document.
func (s *Session) Paste(clip Clipboard) error {
	text, err := clip.ReadAll()
	if err != nil {
		return newOpError("paste", "", err)
	}
	if strings.TrimSpace(text) == "" {
		return newOpError("paste", "", ErrEmptyClipboard)
	}
	s.Load(text)
	s.log.Info("pasted %d bytes", len(text))
	return nil
}

// Copy writes the document to the clipboard.
func (s *Session) Copy(clip Clipboard) error {
	if err := clip.WriteAll(s.Text()); err != nil {
		return newOpError("copy", "", err)
	}
	return nil
}

// Locate finds snippet in the document.
func (s *Session) Locate(snippet string) (textrange.Match, error) {
	m, ok := textrange.Locate(s.Text(), snippet)
	if !ok {
		return textrange.Match{}, newOpError("locate", snippet, ErrNotLocated)
	}
	return m, nil
}

// Tasks parses the document into tasks. Task sets of a mixed document
// are flattened.
func (s *Session) Tasks() []markdown.Task { return tasksOf(s.kind, s.Text()) }

// TaskSets parses the document into task sets.
func (s *Session) TaskSets() []markdown.TaskSet { return markdown.ParseTaskSets(s.Text()) }

// Sections parses the document into explanation sections.
func (s *Session) Sections() []markdown.Section { return markdown.ParseSections(s.Text()) }

// Lesson parses the document into slides.
func (s *Session) Lesson() markdown.Lesson { return markdown.ParseLesson(s.Text()) }

func tasksOf(kind Kind, doc string) []markdown.Task {
	if kind != KindMixed {
		return markdown.ParseTasks(doc)
	}
	var tasks []markdown.Task
	for _, set := range markdown.ParseTaskSets(doc) {
		tasks = append(tasks, set.Tasks...)
	}
	return tasks
}

// Check reviews the whole document.
func (s *Session) Check(ctx context.Context, c *check.Checker) (check.Results, error) {
	return c.Check(ctx, s.Text())
}

// CheckScope reviews only the part of the document matching snippet.
func (s *Session) CheckScope(ctx context.Context, c *check.Checker, snippet string) (check.Results, error) {
	doc := s.Text()
	m, ok := textrange.Locate(doc, snippet)
	if !ok {
		return check.Empty(), newOpError("check", snippet, ErrNotLocated)
	}
	return c.Check(ctx, m.Text(doc))
}

// CheckTasks reviews every task separately and returns the results by
// task id. It stops at the first failure.
func (s *Session) CheckTasks(ctx context.Context, c *check.Checker) (map[string]check.Results, error) {
	doc := s.Text()
	out := make(map[string]check.Results)
	for _, t := range tasksOf(s.kind, doc) {
		res, err := c.Check(ctx, t.Markdown(doc))
		if err != nil {
			return out, newOpError("check", t.ID, err)
		}
		out[t.ID] = res
	}
	return out, nil
}
