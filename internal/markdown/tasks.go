package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/quizedit/internal/engine/textrange"
)

// Option is an answer option of a task.
type Option struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
}

// Task is a single quiz task.
type Task struct {
	ID             string          `json:"id" yaml:"id"`
	Title          string          `json:"title" yaml:"title"`
	Question       string          `json:"question" yaml:"question"`
	Options        []Option        `json:"options" yaml:"options"`
	Explanation    string          `json:"explanation" yaml:"explanation"`
	SolutionPrompt string          `json:"solutionPrompt,omitempty" yaml:"solutionPrompt,omitempty"`
	Range          textrange.Range `json:"range" yaml:"range"`
}

// Markdown returns the task's source block in src.
func (t Task) Markdown(src string) string {
	return t.Range.Text(src)
}

// ParseTasks splits src into tasks at every level-2 heading. Text before
// the first such heading is ignored, as are blocks with an empty title.
func ParseTasks(src string) []Task {
	if strings.TrimSpace(src) == "" {
		return nil
	}

	lines := Tokenize(src)
	blocks := splitBlocks(lines, func(l Line) bool {
		return l.Kind == KindHeading && l.Level == 2
	})

	tasks := make([]Task, 0, len(blocks))
	for index, block := range blocks {
		title := block[0].HeadingText()
		if title == "" {
			continue
		}
		id := fmt.Sprintf("aufgabe-%s-%d", firstNumber(title, index), index)
		task := parseTaskBody(src, id, block[1:])
		task.Title = title
		task.Range = blockRange(block)
		tasks = append(tasks, task)
	}
	return tasks
}

// parseTaskBody fills question, options and explanation from the lines
// following a task heading.
func parseTaskBody(src, id string, body []Line) Task {
	task := Task{ID: id, Options: []Option{}}

	var (
		correct   byte
		question  []Line
		inOptions bool
	)
	for i, l := range body {
		if l.Kind == KindExplanation {
			task.Explanation = explanationText(src, l, body[i+1:])
			break
		}
		switch l.Kind {
		case KindAnswer:
			correct = answerLetter(l.Text)
			applyAnswer(task.Options, id, correct)
		case KindOption:
			inOptions = true
			task.Options = append(task.Options, newOption(id, l.Text, len(task.Options), correct))
		default:
			if !inOptions {
				question = append(question, l)
			}
		}
	}
	task.Question = joinLines(src, question)
	return task
}

func newOption(taskID, line string, index int, correct byte) Option {
	if mark := checkbox(line); mark != 0 {
		return Option{
			ID:        fmt.Sprintf("%s-opt-%d", taskID, index),
			Text:      strings.TrimSpace(line[5:]),
			IsCorrect: mark == 'x',
		}
	}
	letter := line[0]
	return Option{
		ID:        fmt.Sprintf("%s-opt-%c", taskID, letter),
		Text:      strings.TrimSpace(line[3:]),
		IsCorrect: correct != 0 && letter == correct,
	}
}

// applyAnswer marks lettered options once the answer key is known. The key
// may appear before or after the options.
func applyAnswer(options []Option, taskID string, correct byte) {
	prefix := taskID + "-opt-"
	for i := range options {
		suffix := strings.TrimPrefix(options[i].ID, prefix)
		if len(suffix) == 1 && suffix[0] >= 'A' && suffix[0] <= 'Z' {
			options[i].IsCorrect = suffix[0] == correct
		}
	}
}

// explanationText returns what follows an explanation marker: the rest of
// the marker line plus all remaining lines of the block.
func explanationText(src string, marker Line, rest []Line) string {
	inline := marker.Text
	switch {
	case strings.HasPrefix(strings.TrimSpace(inline), explanationBold):
		inline = strings.TrimPrefix(strings.TrimSpace(inline), explanationBold)
	default:
		inline = strings.TrimPrefix(inline, explanationHeader)
	}

	var b strings.Builder
	b.WriteString(inline)
	if len(rest) > 0 {
		b.WriteByte('\n')
		b.WriteString(src[rest[0].Start:rest[len(rest)-1].End])
	}
	return strings.TrimSpace(b.String())
}

// splitBlocks groups lines into blocks, each starting at a line for which
// isStart returns true. Lines before the first start are dropped.
func splitBlocks(lines []Line, isStart func(Line) bool) [][]Line {
	var blocks [][]Line
	for _, l := range lines {
		if isStart(l) {
			blocks = append(blocks, []Line{l})
			continue
		}
		if len(blocks) > 0 {
			last := len(blocks) - 1
			blocks[last] = append(blocks[last], l)
		}
	}
	return blocks
}

// blockRange returns the byte range from the first line of block to the
// end of its last line.
func blockRange(block []Line) textrange.Range {
	return textrange.Range{Start: block[0].Start, End: block[len(block)-1].End}
}

// firstNumber returns the first run of digits in s, or the fallback index.
func firstNumber(s string, fallback int) string {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return strconv.Itoa(fallback)
	}
	end := start
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}
	return s[start:end]
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
