package editor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/quizedit/internal/chat"
)

const assistSystem = "Du bist ein hilfreicher KI-Editor. Du hilfst, den folgenden Markdown-Inhalt gezielt zu verbessern. Antworte präzise, liefere bei Bedarf direkt eine überarbeitete Fassung."

const generateSystem = "Du erstellst eine einzelne Single-Choice-Aufgabe im vorgegebenen Markdown-Format. Antworte ausschließlich mit dem fertigen Markdown der Aufgabe, ohne zusätzliche Erklärungen."

// AssistRequest is one turn of a conversation about the document.
type AssistRequest struct {
	// Prompt is an optional instruction added as a second system message.
	Prompt string
	// Context is the explanation text the document is based on.
	Context string
	// Label names the discussed part, e.g. a task title.
	Label string
	// Scope is the markdown under discussion. Defaults to the document.
	Scope string
	// History is the conversation so far, ending with the user's message.
	History []chat.Message
	Model   string
}

// AssistMessages returns the full message list sent for req.
func (s *Session) AssistMessages(req AssistRequest) []chat.Message {
	label := req.Label
	if label == "" {
		label = "Dokument"
	}
	scope := req.Scope
	if scope == "" {
		scope = s.Text()
	}

	msgs := []chat.Message{{Role: chat.RoleSystem, Content: assistSystem}}
	if p := strings.TrimSpace(req.Prompt); p != "" {
		msgs = append(msgs, chat.Message{Role: chat.RoleSystem, Content: p})
	}
	if strings.TrimSpace(req.Context) != "" {
		msgs = append(msgs, chat.Message{Role: chat.RoleUser, Content: "Kontext (TE):\n" + req.Context})
	}
	msgs = append(msgs, chat.Message{Role: chat.RoleUser, Content: fmt.Sprintf("Kontext (%s):\n\n%s", label, scope)})
	return append(msgs, req.History...)
}

// Assist sends a conversation about the document and returns the reply.
// The document itself is not changed.
func (s *Session) Assist(ctx context.Context, p chat.Provider, req AssistRequest) (string, error) {
	if len(req.History) == 0 {
		return "", newOpError("assist", "", chat.ErrNoMessages)
	}
	reply, err := chat.Chat(ctx, p, req.Model, s.AssistMessages(req))
	if err != nil {
		return "", newOpError("assist", req.Label, err)
	}
	return reply, nil
}

// GenerateRequest asks for a new single-choice task.
type GenerateRequest struct {
	// Prompt is the single-choice authoring prompt.
	Prompt string
	// Context is the explanation text the task should be based on.
	Context string
	// Instruction holds optional extra requirements of the user.
	Instruction string
	Model       string
}

var taskNumberRe = regexp.MustCompile(`##\s*Aufgabe\s+(\d+)`)

// NextTaskNumber returns one more than the highest "## Aufgabe N" in doc.
func NextTaskNumber(doc string) int {
	max := 0
	for _, m := range taskNumberRe.FindAllStringSubmatch(doc, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// GenerateMessages returns the messages sent to generate task number n.
func GenerateMessages(doc string, n int, req GenerateRequest) []chat.Message {
	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n\nZusatzvorgaben:\n")
	fmt.Fprintf(&b, "- Erzeuge exakt eine Aufgabe mit der Überschrift \"## Aufgabe %d\".\n", n)
	b.WriteString("- Verwende keine Inhalte, die bereits in den vorhandenen Aufgaben vorkommen.\n")
	b.WriteString("- Richte Inhalt thematisch am gegebenen Kontext (TE) aus, wenn sinnvoll.")
	if req.Instruction != "" {
		b.WriteString("\n\nZusätzliche Anforderungen des Nutzers:\n")
		b.WriteString(req.Instruction)
	}

	return []chat.Message{
		{Role: chat.RoleSystem, Content: generateSystem},
		{Role: chat.RoleUser, Content: b.String()},
		{Role: chat.RoleUser, Content: "Kontext (TE):\n" + req.Context + "\n\nBereits vorhandene Aufgaben (nur zur Vermeidung von Duplikaten):\n" + doc},
	}
}

// GenerateTask asks the model for a new task and appends it to the
// document as one undoable edit. It returns the appended markdown.
func (s *Session) GenerateTask(ctx context.Context, p chat.Provider, req GenerateRequest) (string, error) {
	doc := s.Text()
	n := NextTaskNumber(doc)

	reply, err := chat.Chat(ctx, p, req.Model, GenerateMessages(doc, n, req))
	if err != nil {
		return "", newOpError("generate", "", err)
	}
	task := strings.TrimSpace(reply)
	if task == "" {
		return "", newOpError("generate", "", ErrEmptyReply)
	}
	if !strings.HasPrefix(task, "## ") {
		task = fmt.Sprintf("## Aufgabe %d\n%s", n, task)
	}

	// The document may have changed while waiting for the reply.
	s.h.Update(func(cur string) string {
		sep := "\n\n"
		if strings.HasSuffix(cur, "\n") {
			sep = "\n"
		}
		return cur + sep + task + "\n"
	})
	s.log.Info("generated task %d", n)
	return task, nil
}
