package editor

import (
	"errors"

	"github.com/atotto/clipboard"
)

// Clipboard reads and writes plain text.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// ErrClipboardUnsupported indicates no clipboard utility is available.
var ErrClipboardUnsupported = errors.New("clipboard not supported on this system")

// SystemClipboard is the operating system clipboard.
type SystemClipboard struct{}

// ReadAll returns the clipboard text.
func (SystemClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", ErrClipboardUnsupported
	}
	return clipboard.ReadAll()
}

// WriteAll replaces the clipboard text.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// MemoryClipboard is an in-process clipboard.
type MemoryClipboard struct {
	Text string
}

// ReadAll returns the stored text.
func (c *MemoryClipboard) ReadAll() (string, error) { return c.Text, nil }

// WriteAll stores text.
func (c *MemoryClipboard) WriteAll(text string) error {
	c.Text = text
	return nil
}
