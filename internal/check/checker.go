package check

import (
	"context"
	"fmt"

	"github.com/dshills/quizedit/internal/chat"
	"github.com/dshills/quizedit/internal/logging"
)

// Temperature is the sampling temperature of review requests.
const Temperature = 0.2

// userPromptPrefix introduces the reviewed markdown.
const userPromptPrefix = "Hier ist die Aufgabe, die du prüfen sollst:\n\n---\n\n"

// DefaultSystemPrompt asks for findings in the three categories as a single
// JSON object.
const DefaultSystemPrompt = `Du bist ein professioneller Korrektor und Fachprüfer für Ausbildungsinhalte. Du prüfst jeden gelieferten Text gleichzeitig in drei Kategorien: fachlich, sprachlich (Rechtschreibung, Grammatik, Zeichensetzung) und simpleclub-Guidelines.

Für jeden gefundenen Fehler, gib ein JSON-Objekt mit den Feldern "original", "suggestion", "explanation" und "sources" zurück. "original" ist der exakte, fehlerhafte Textausschnitt. "suggestion" ist der korrigierte Text. "explanation" ist eine kurze Begründung. "sources" ist ein Array mit URLs zu verlässlichen Quellen (Fachliteratur, Normen, etc.), die deine Korrektur belegen.

Gib AUSSCHLIESSLICH EIN EINZIGES JSON-OBJEKT mit genau diesen Schlüsseln zurück: {
  "fachlich": [ { "original": string, "suggestion": string, "explanation": string, "sources": string[] }, ... ],
  "sprachlich": [ { "original": string, "suggestion": string, "explanation": string, "sources": string[] }, ... ],
  "guidelines": [ { "original": string, "suggestion": string, "explanation": string, "sources": string[] }, ... ]
}
Wenn es nichts zu bemängeln gibt, gib leere Arrays zurück. Keine Einleitung oder Nachsätze. Kein Markdown-Codeblock (keine ` + "```" + `).`

// Checker reviews markdown with a chat provider.
type Checker struct {
	Provider chat.Provider
	// Model overrides the provider's configured model when set.
	Model string
	// SystemPrompt defaults to DefaultSystemPrompt.
	SystemPrompt string
	Logger       *logging.Logger
}

// UserPrompt returns the user message sent for markdown.
func UserPrompt(markdown string) string {
	return userPromptPrefix + markdown
}

// Check reviews markdown and returns the decoded findings.
func (c *Checker) Check(ctx context.Context, markdown string) (Results, error) {
	if c.Provider == nil {
		return Empty(), fmt.Errorf("check: %w", ErrNoProvider)
	}
	system := c.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	log := c.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithComponent("check").WithField("provider", c.Provider.Name())

	log.Debug("checking %d bytes", len(markdown))
	reply, err := c.Provider.Complete(ctx, chat.Request{
		Model: c.Model,
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: system},
			{Role: chat.RoleUser, Content: UserPrompt(markdown)},
		},
		Temperature: Temperature,
		JSON:        true,
	})
	if err != nil {
		log.Error("check failed: %v", err)
		return Empty(), fmt.Errorf("check: %w", err)
	}

	res, err := Decode(reply, markdown)
	if err != nil {
		log.Warn("undecodable reply: %v", err)
		return Empty(), err
	}
	log.Info("check found %d suggestions", res.Len())
	return res, nil
}
