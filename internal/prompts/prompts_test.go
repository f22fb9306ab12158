package prompts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/quizedit/internal/store"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if !strings.HasPrefix(d.Combined, "Du prüfst Ausbildungsinhalte") {
		t.Errorf("combined = %.40q", d.Combined)
	}
	if d.SingleChoice == "" || d.MultiSingleChoice == "" {
		t.Error("empty built-in prompt")
	}
	if strings.HasSuffix(d.Combined, "\n") {
		t.Error("defaults should be trimmed")
	}
	if len(d.Custom) == 0 {
		t.Error("no built-in custom prompts")
	}
}

func TestContent(t *testing.T) {
	p := Defaults()
	for _, id := range []string{IDReview, IDSingleChoice, IDMultiSingleChoice, "prompt-zuordnung"} {
		if c, ok := p.Content(id); !ok || c == "" {
			t.Errorf("Content(%q) = %q, %v", id, c, ok)
		}
	}
	if _, ok := p.Content("missing"); ok {
		t.Error("Content(missing) found a prompt")
	}
}

func TestParseYAMLMergesDefaults(t *testing.T) {
	p, err := ParseYAML([]byte("combined: Prüfe streng.\nsingleChoice: \"\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	d := Defaults()
	if p.Combined != "Prüfe streng." {
		t.Errorf("combined = %q", p.Combined)
	}
	if p.SingleChoice != "" {
		t.Errorf("explicit empty value must be kept, got %q", p.SingleChoice)
	}
	if p.MultiSingleChoice != d.MultiSingleChoice {
		t.Error("missing field must default")
	}
	if diff := cmp.Diff(d.Custom, p.Custom); diff != "" {
		t.Errorf("custom mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	src := Prompts{Combined: "c", SingleChoice: "s", MultiSingleChoice: "m", Custom: []Definition{{ID: "prompt-1", Title: "Eigener", Content: "x"}}}
	data, err := MarshalYAML(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(src, got); diff != "" {
		t.Errorf("LoadFile mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := ParseYAML([]byte("combined: [unclosed")); err == nil {
		t.Error("invalid YAML accepted")
	}
}

func newTestManager(t *testing.T, st store.Store) *Manager {
	t.Helper()
	m := NewManager(st, nil)
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }
	t.Cleanup(m.Close)
	return m
}

func TestManagerPersists(t *testing.T) {
	st := store.NewMemoryStore()
	m := newTestManager(t, st)

	if err := m.SetContent(IDReview, "Neu"); err != nil {
		t.Fatal(err)
	}

	reloaded := newTestManager(t, st)
	if got := reloaded.Prompts().Combined; got != "Neu" {
		t.Errorf("reloaded combined = %q", got)
	}
}

func TestManagerIgnoresOtherVersions(t *testing.T) {
	st := store.NewMemoryStore()
	_ = store.Schema{Key: Schema.Key, Version: 99}.Save(st, map[string]string{"combined": "alt"})

	m := newTestManager(t, st)
	if m.Prompts().Combined != Defaults().Combined {
		t.Error("record of another version must not be used")
	}
}

func TestManagerMergesStoredFields(t *testing.T) {
	st := store.NewMemoryStore()
	_ = Schema.Save(st, map[string]string{"singleChoice": "SC"})

	p := newTestManager(t, st).Prompts()
	if p.SingleChoice != "SC" || p.Combined != Defaults().Combined {
		t.Errorf("merge failed: %+v", p)
	}
}

func TestManagerCustomLifecycle(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())
	before := len(m.Prompts().Custom)

	d := m.AddCustom("Prompt 1")
	p := m.Prompts()
	if len(p.Custom) != before+1 || p.Custom[0].ID != d.ID {
		t.Fatalf("new prompt not prepended: %+v", p.Custom)
	}
	if !strings.HasPrefix(d.ID, "prompt-") || d.CreatedAt != 1700000000000 || d.Content != "" {
		t.Errorf("definition = %+v", d)
	}

	if err := m.UpdateCustom(d.ID, "Inhalt"); err != nil {
		t.Fatal(err)
	}
	if err := m.RenameCustom(d.ID, "Umbenannt"); err != nil {
		t.Fatal(err)
	}
	got := m.Prompts().Custom[0]
	if got.Content != "Inhalt" || got.Title != "Umbenannt" {
		t.Errorf("custom = %+v", got)
	}

	if err := m.RemoveCustom(d.ID); err != nil {
		t.Fatal(err)
	}
	if len(m.Prompts().Custom) != before {
		t.Error("custom prompt not removed")
	}

	// add, update, rename, remove
	for i := 0; i < 4; i++ {
		if !m.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if len(m.Prompts().Custom) != before || m.CanUndo() {
		t.Error("undo did not return to the initial prompts")
	}
	if !m.Redo() || m.Prompts().Custom[0].ID != d.ID {
		t.Error("redo did not restore the added prompt")
	}
}

func TestManagerUnknownIDs(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())

	tests := []struct {
		name string
		err  error
	}{
		{"set", m.SetContent("nope", "x")},
		{"update builtin", m.UpdateCustom(IDReview, "x")},
		{"update", m.UpdateCustom("nope", "x")},
		{"rename", m.RenameCustom("nope", "x")},
		{"remove", m.RemoveCustom("nope")},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, ErrUnknownPrompt) {
			t.Errorf("%s: error = %v, want ErrUnknownPrompt", tt.name, tt.err)
		}
	}
	if m.CanUndo() {
		t.Error("failed operations must not record history")
	}
}

func TestManagerPromptsAreCopies(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())
	p := m.Prompts()
	p.Custom[0].Title = "verändert"
	if m.Prompts().Custom[0].Title == "verändert" {
		t.Error("Prompts() exposes internal state")
	}
}

func TestManagerReset(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())
	_ = m.SetContent(IDSingleChoice, "x")
	m.Reset()
	if m.Prompts().SingleChoice != Defaults().SingleChoice {
		t.Error("Reset did not restore defaults")
	}
	m.Undo()
	if m.Prompts().SingleChoice != "x" {
		t.Error("Reset must be undoable")
	}
}
