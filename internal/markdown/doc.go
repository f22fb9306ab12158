// Package markdown derives quiz and lesson structure from markdown text.
//
// Parsing is line oriented. Tokenize classifies every line once (heading,
// rule, answer option, answer key, explanation marker, blank, text) and the
// parsers walk the resulting lines with a small amount of state instead of
// splitting the source with patterns. Every derived element carries the
// byte range of the source it was built from, so callers can scope a check
// or a replacement to one task or slide.
//
// Four views are provided:
//
//   - ParseTasks: single-choice tasks, one per level-2 heading
//   - ParseTaskSets: task sets introduced by "## **Aufgabensatz: ...**"
//   - ParseSections: explanation sections split at headings and rules
//   - ParseLesson: lesson slides introduced by "## Folie ..."
//
// The parsers never fail; malformed input yields fewer elements.
package markdown
