package markdown

import (
	"fmt"
	"strings"
)

const (
	setHeadingPrefix  = "## **Aufgabensatz:"
	setTaskPrefix     = "## Aufgabe "
	solutionPromptTag = `(Solution prompt: "`
)

// TaskSet is a titled group of tasks.
type TaskSet struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// ParseTaskSets splits src into task sets. A set starts at a heading of the
// form "## **Aufgabensatz: ...**"; inside a set every "## Aufgabe N"
// heading starts a task. Sets without tasks are dropped.
func ParseTaskSets(src string) []TaskSet {
	if strings.TrimSpace(src) == "" {
		return nil
	}

	lines := Tokenize(src)
	setBlocks := splitBlocks(lines, isSetHeading)

	sets := make([]TaskSet, 0, len(setBlocks))
	for setIndex, block := range setBlocks {
		set := TaskSet{
			ID:    fmt.Sprintf("set-%d", setIndex),
			Title: setTitle(block[0].Text),
		}

		taskBlocks := splitBlocks(block[1:], isSetTask)
		for taskIndex, tb := range taskBlocks {
			set.Tasks = append(set.Tasks, parseSetTask(src, fmt.Sprintf("%s-task-%d", set.ID, taskIndex), tb))
		}

		if len(set.Tasks) > 0 {
			sets = append(sets, set)
		}
	}
	return sets
}

func isSetHeading(l Line) bool {
	return l.Kind == KindHeading && strings.HasPrefix(l.Text, setHeadingPrefix)
}

func isSetTask(l Line) bool {
	if l.Kind != KindHeading || !strings.HasPrefix(l.Text, setTaskPrefix) {
		return false
	}
	rest := l.Text[len(setTaskPrefix):]
	return rest != "" && isDigit(rune(rest[0]))
}

func setTitle(line string) string {
	title := strings.TrimPrefix(line, "## **")
	title = strings.TrimSpace(title)
	title = strings.TrimSuffix(title, "**")
	return strings.TrimSpace(title)
}

// parseSetTask builds a task from a "## Aufgabe N" block. A trailing rule
// closes the task and is not part of it.
func parseSetTask(src, id string, block []Line) Task {
	for len(block) > 1 {
		last := block[len(block)-1]
		if last.Kind != KindRule && last.Kind != KindBlank {
			break
		}
		block = block[:len(block)-1]
	}

	task := Task{
		ID:      id,
		Title:   block[0].HeadingText(),
		Options: []Option{},
		Range:   blockRange(block),
	}

	body := block[1:]
	question := body
	for i, l := range body {
		if l.Kind == KindExplanation && l.Level == 3 {
			task.Explanation = explanationText(src, l, body[i+1:])
			question = body[:i]
			break
		}
	}

	task.Question, task.SolutionPrompt = extractSolutionPrompt(joinLines(src, question))
	return task
}

// extractSolutionPrompt removes an embedded (Solution prompt: "...") note
// from text and returns it separately.
func extractSolutionPrompt(text string) (rest, prompt string) {
	start := strings.Index(text, solutionPromptTag)
	if start < 0 {
		return text, ""
	}
	bodyStart := start + len(solutionPromptTag)
	end := strings.Index(text[bodyStart:], `")`)
	if end < 0 {
		return text, ""
	}
	end += bodyStart

	prompt = strings.TrimSpace(text[bodyStart:end])
	rest = strings.TrimSpace(text[:start] + text[end+2:])
	return rest, prompt
}
