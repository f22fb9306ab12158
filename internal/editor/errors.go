package editor

import (
	"errors"
	"fmt"
)

// Editor errors.
var (
	// ErrNotLocated indicates a snippet was not found in the document.
	ErrNotLocated = errors.New("snippet not found in document")

	// ErrEmptyClipboard indicates a paste from an empty clipboard.
	ErrEmptyClipboard = errors.New("clipboard is empty")

	// ErrUnknownSlide indicates a slide id that is not in the lesson.
	ErrUnknownSlide = errors.New("unknown slide")

	// ErrUnknownTask indicates a task id that is not in the document.
	ErrUnknownTask = errors.New("unknown task")

	// ErrUnknownKind indicates an unsupported document kind.
	ErrUnknownKind = errors.New("unknown document kind")

	// ErrEmptyReply indicates the model answered with nothing usable.
	ErrEmptyReply = errors.New("empty reply")
)

// OperationError records a failed session operation.
type OperationError struct {
	Op     string // Operation name, e.g. "apply", "paste"
	Target string // Snippet, slide or task the operation was aimed at
	Err    error
}

func newOpError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %q", e.Op, shorten(e.Target, 40))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
