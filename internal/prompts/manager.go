package prompts

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/quizedit/internal/engine/history"
	"github.com/dshills/quizedit/internal/logging"
	"github.com/dshills/quizedit/internal/store"
)

// Schema is the storage schema of the prompt set.
var Schema = store.Schema{Key: "editorPrompts", Version: 1}

// Manager holds the prompt set with undo history and persists every change.
type Manager struct {
	h      *history.History[Prompts]
	now    func() time.Time
	cancel func()
}

// NewManager loads prompts from st (defaults if absent or unreadable) and
// saves every later change back to it.
func NewManager(st store.Store, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithComponent("prompts")

	initial := Defaults()
	var s stored
	ok, err := Schema.Load(st, &s)
	switch {
	case errors.Is(err, store.ErrVersionMismatch):
		log.Info("stored prompts have another version, using defaults")
	case err != nil:
		log.Warn("could not load prompts: %v", err)
	case ok:
		initial = s.overDefaults()
	}

	m := &Manager{h: history.New(initial), now: time.Now}
	m.cancel = store.Bind(m.h, st, Schema, log)
	return m
}

// Close stops persisting changes.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Prompts returns the current prompt set.
func (m *Manager) Prompts() Prompts { return m.h.Present().clone() }

// Set replaces the prompt set.
func (m *Manager) Set(p Prompts) bool { return m.h.Set(p.clone()) }

// Undo reverts the last change.
func (m *Manager) Undo() bool { return m.h.Undo() }

// Redo re-applies the last undone change.
func (m *Manager) Redo() bool { return m.h.Redo() }

// CanUndo reports whether Undo would change the prompts.
func (m *Manager) CanUndo() bool { return m.h.CanUndo() }

// CanRedo reports whether Redo would change the prompts.
func (m *Manager) CanRedo() bool { return m.h.CanRedo() }

// Reset restores the defaults as a new undoable change.
func (m *Manager) Reset() bool { return m.h.Set(Defaults()) }

// SetContent replaces the text of a built-in or custom prompt.
func (m *Manager) SetContent(id, content string) error {
	return m.update(id, func(p *Prompts) bool {
		switch id {
		case IDReview:
			p.Combined = content
		case IDSingleChoice:
			p.SingleChoice = content
		case IDMultiSingleChoice:
			p.MultiSingleChoice = content
		default:
			i := p.customIndex(id)
			if i < 0 {
				return false
			}
			p.Custom[i].Content = content
			p.Custom[i].UpdatedAt = m.now().UnixMilli()
		}
		return true
	})
}

// AddCustom creates an empty custom prompt at the top of the list.
func (m *Manager) AddCustom(title string) Definition {
	now := m.now().UnixMilli()
	d := Definition{ID: "prompt-" + uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now}
	m.h.Update(func(p Prompts) Prompts {
		p.Custom = append([]Definition{d}, p.Custom...)
		return p
	})
	return d
}

// UpdateCustom replaces the content of a custom prompt.
func (m *Manager) UpdateCustom(id, content string) error {
	if isBuiltin(id) {
		return fmt.Errorf("%w: %s is built in", ErrUnknownPrompt, id)
	}
	return m.SetContent(id, content)
}

// RenameCustom changes the title of a custom prompt.
func (m *Manager) RenameCustom(id, title string) error {
	return m.update(id, func(p *Prompts) bool {
		i := p.customIndex(id)
		if i < 0 {
			return false
		}
		p.Custom[i].Title = title
		p.Custom[i].UpdatedAt = m.now().UnixMilli()
		return true
	})
}

// RemoveCustom deletes a custom prompt.
func (m *Manager) RemoveCustom(id string) error {
	return m.update(id, func(p *Prompts) bool {
		i := p.customIndex(id)
		if i < 0 {
			return false
		}
		p.Custom = append(p.Custom[:i:i], p.Custom[i+1:]...)
		return true
	})
}

// update applies fn to a copy of the present inside a single history
// update. fn reports whether id was found.
func (m *Manager) update(id string, fn func(*Prompts) bool) error {
	found := false
	m.h.Update(func(p Prompts) Prompts {
		next := p.clone()
		if found = fn(&next); !found {
			return p
		}
		return next
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}
	return nil
}

func isBuiltin(id string) bool {
	return id == IDReview || id == IDSingleChoice || id == IDMultiSingleChoice
}
