package editor

import (
	"fmt"
	"strings"

	"github.com/dshills/quizedit/internal/store"
)

// Kind is the type of document a session edits.
type Kind string

// Document kinds.
const (
	KindQuiz        Kind = "quiz"
	KindMixed       Kind = "mixed"
	KindExplanation Kind = "explanation"
	KindLesson      Kind = "lesson"
)

// Kinds lists all document kinds.
var Kinds = []Kind{KindQuiz, KindMixed, KindExplanation, KindLesson}

var storageKeys = map[Kind]string{
	KindQuiz:        "quizMarkdown",
	KindMixed:       "mixedQuizMarkdown",
	KindExplanation: "explanationMarkdown",
	KindLesson:      "lessonMarkdown",
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := storageKeys[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// StorageKey returns the store key holding documents of this kind.
func (k Kind) StorageKey() string { return storageKeys[k] }

// Schema returns the storage schema of documents of this kind.
func (k Kind) Schema() store.Schema {
	return store.Schema{Key: k.StorageKey(), Version: 1}
}
