package editor

import (
	"context"
	"errors"
	"os"

	"github.com/dshills/quizedit/internal/watcher"
)

// Watch reloads the document whenever the file at path changes on disk,
// until ctx is done. Reloading discards the undo history. A removed file
// leaves the document as it is.
func (s *Session) Watch(ctx context.Context, path string, opts ...watcher.Option) error {
	w, err := watcher.New(path, opts...)
	if err != nil {
		return newOpError("watch", path, err)
	}
	log := s.log.WithField("path", w.Path())
	log.Info("watching for external changes")

	go func() {
		for err := range w.Errors() {
			log.Warn("watch error: %v", err)
		}
	}()

	err = w.Run(ctx, func(ev watcher.Event) {
		data, err := os.ReadFile(w.Path())
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn("reloading after %s: %v", ev.Op, err)
			}
			return
		}
		if text := string(data); text != s.Text() {
			s.Load(text)
			log.Info("reloaded %d bytes after %s", len(data), ev.Op)
		}
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
