// Package prompts manages the editable prompt texts used for reviews and
// task generation.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.md
var defaultFiles embed.FS

// Built-in prompt ids.
const (
	IDReview            = "review"
	IDSingleChoice      = "single-choice"
	IDMultiSingleChoice = "multi-single-choice"
)

// ErrUnknownPrompt indicates a prompt id that does not exist.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Definition is a user-defined prompt. Timestamps are Unix milliseconds.
type Definition struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Content   string `json:"content" yaml:"content"`
	CreatedAt int64  `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Prompts is the complete prompt set.
type Prompts struct {
	Combined          string       `json:"combined" yaml:"combined"`
	SingleChoice      string       `json:"singleChoice" yaml:"singleChoice"`
	MultiSingleChoice string       `json:"multiSingleChoice" yaml:"multiSingleChoice"`
	Custom            []Definition `json:"custom" yaml:"custom"`
}

// Content returns the text of the prompt with the given id, built-in or
// custom.
func (p Prompts) Content(id string) (string, bool) {
	switch id {
	case IDReview:
		return p.Combined, true
	case IDSingleChoice:
		return p.SingleChoice, true
	case IDMultiSingleChoice:
		return p.MultiSingleChoice, true
	}
	if i := p.customIndex(id); i >= 0 {
		return p.Custom[i].Content, true
	}
	return "", false
}

func (p Prompts) customIndex(id string) int {
	for i, d := range p.Custom {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// clone returns p with its own copy of Custom.
func (p Prompts) clone() Prompts {
	p.Custom = append([]Definition{}, p.Custom...)
	return p
}

// Defaults returns the built-in prompts.
func Defaults() Prompts {
	return Prompts{
		Combined:          mustDefault("combined.md"),
		SingleChoice:      mustDefault("single_choice.md"),
		MultiSingleChoice: mustDefault("multi_single_choice.md"),
		Custom:            builtinCustom(),
	}
}

func mustDefault(name string) string {
	b, err := defaultFiles.ReadFile("defaults/" + name)
	if err != nil {
		panic(fmt.Sprintf("prompts: missing default %s: %v", name, err))
	}
	return strings.TrimSpace(string(b))
}

func builtinCustom() []Definition {
	return []Definition{
		{ID: "prompt-multiple-choice", Title: "Multiple-Choice Prompt", Content: "Erstelle eine Multiple-Choice-Aufgabe mit Checkbox-Optionen (- [x] / - [ ]). Mehrere Optionen können richtig sein."},
		{ID: "prompt-wahr-falsch", Title: "Wahr/Falsch Prompt", Content: "Erstelle eine Aufgabe mit Aussagen, die als wahr oder falsch zu bewerten sind."},
		{ID: "prompt-lueckentext", Title: "Lückentext Prompt", Content: "Erstelle einen Lückentext. Markiere jede Lücke mit ___ und nenne die Lösungen in der Erklärung."},
		{ID: "prompt-reihenfolge", Title: "Reihenfolge Prompt", Content: "Erstelle eine Aufgabe, in der Arbeitsschritte in die richtige Reihenfolge zu bringen sind."},
		{ID: "prompt-zuordnung", Title: "Zuordnung Prompt", Content: "Erstelle eine Zuordnungsaufgabe mit zwei Spalten, deren Einträge einander zuzuordnen sind."},
	}
}

// stored mirrors Prompts with optional fields, so absent fields can fall
// back to defaults while empty ones are kept.
type stored struct {
	Combined          *string       `json:"combined" yaml:"combined"`
	SingleChoice      *string       `json:"singleChoice" yaml:"singleChoice"`
	MultiSingleChoice *string       `json:"multiSingleChoice" yaml:"multiSingleChoice"`
	Custom            *[]Definition `json:"custom" yaml:"custom"`
}

// overDefaults fills absent fields from Defaults.
func (s stored) overDefaults() Prompts {
	p := Defaults()
	if s.Combined != nil {
		p.Combined = *s.Combined
	}
	if s.SingleChoice != nil {
		p.SingleChoice = *s.SingleChoice
	}
	if s.MultiSingleChoice != nil {
		p.MultiSingleChoice = *s.MultiSingleChoice
	}
	if s.Custom != nil {
		p.Custom = append([]Definition{}, (*s.Custom)...)
	}
	return p
}

// LoadFile reads prompts from a YAML file. Fields missing from the file
// take their default.
func LoadFile(path string) (Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("reading prompts: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes prompts from YAML.
func ParseYAML(data []byte) (Prompts, error) {
	var s stored
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Prompts{}, fmt.Errorf("decoding prompts: %w", err)
	}
	return s.overDefaults(), nil
}

// MarshalYAML encodes p in the format LoadFile reads.
func MarshalYAML(p Prompts) ([]byte, error) {
	return yaml.Marshal(p)
}
