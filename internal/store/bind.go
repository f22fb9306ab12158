package store

import (
	"errors"

	"github.com/dshills/quizedit/internal/engine/history"
	"github.com/dshills/quizedit/internal/logging"
)

// Bind saves the present value of h under schema after every change.
// Save failures are logged. The returned function stops saving.
func Bind[T any](h *history.History[T], st Store, schema Schema, log *logging.Logger) (cancel func()) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithComponent("store").WithField("key", schema.Key)

	return h.Subscribe(func(c history.Change[T]) {
		if err := schema.Save(st, c.Value); err != nil {
			log.Error("saving %s after %s: %v", schema.Key, c.Kind, err)
		}
	})
}

// LoadOr returns the stored value for schema, or def if it is absent,
// written by another version, or unreadable.
func LoadOr[T any](st Store, schema Schema, def T, log *logging.Logger) T {
	if log == nil {
		log = logging.Nop()
	}
	var v T
	ok, err := schema.Load(st, &v)
	switch {
	case errors.Is(err, ErrVersionMismatch):
		log.WithComponent("store").Info("ignoring %s: %v", schema.Key, err)
		return def
	case err != nil:
		log.WithComponent("store").Warn("loading %s: %v", schema.Key, err)
		return def
	case !ok:
		return def
	}
	return v
}
