package history

import "sync"

// ChangeKind describes what caused a change of the present value.
type ChangeKind int

const (
	// ChangeSet is an accepted Set or Update.
	ChangeSet ChangeKind = iota + 1
	// ChangeReset is a Reset that replaced the whole record.
	ChangeReset
	// ChangeUndo is an Undo.
	ChangeUndo
	// ChangeRedo is a Redo.
	ChangeRedo
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeSet:
		return "set"
	case ChangeReset:
		return "reset"
	case ChangeUndo:
		return "undo"
	case ChangeRedo:
		return "redo"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after the present value changed.
type Change[T any] struct {
	Kind    ChangeKind
	Value   T
	CanUndo bool
	CanRedo bool
}

// Record is a copy of the history state.
type Record[T any] struct {
	Past    []T // Oldest first
	Present T
	Future  []T // Nearest redo first
}

type subscriber[T any] struct {
	id int
	fn func(Change[T])
}

// History manages undo/redo state for a value of type T.
type History[T any] struct {
	mu sync.Mutex

	past    []T
	present T
	// future is kept as a stack: the nearest redo is the last element.
	future []T

	equal      func(a, b T) bool
	maxEntries int

	subs   []subscriber[T]
	nextID int

	committed uint64 // Changes made so far, guarded by mu

	// delivered is the last change whose subscribers have all returned.
	turnMu    sync.Mutex
	turn      *sync.Cond
	delivered uint64
}

// New creates a history whose present is initial.
func New[T any](initial T, opts ...Option[T]) *History[T] {
	h := &History[T]{
		present: initial,
		equal:   identical[T],
	}
	h.turn = sync.NewCond(&h.turnMu)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewFunc creates a history whose present is produced by init. init is
// called exactly once, before NewFunc returns.
func NewFunc[T any](init func() T, opts ...Option[T]) *History[T] {
	return New(init(), opts...)
}

// Present returns the current value.
func (h *History[T]) Present() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.present
}

// Set replaces the present value.
// Returns false if v is identical to the present; nothing is recorded then.
func (h *History[T]) Set(v T) bool {
	h.mu.Lock()
	if h.equal(v, h.present) {
		h.mu.Unlock()
		return false
	}
	h.pushLocked(v)
	change := h.changeLocked(ChangeSet)
	seq, subs := h.commitLocked()
	h.mu.Unlock()

	h.deliver(seq, subs, change)
	return true
}

// Update replaces the present value with fn(present).
// fn runs under the history's lock, so no other write can interleave
// between reading the present and adopting the result. fn must not call
// back into h.
func (h *History[T]) Update(fn func(T) T) bool {
	h.mu.Lock()
	v := fn(h.present)
	if h.equal(v, h.present) {
		h.mu.Unlock()
		return false
	}
	h.pushLocked(v)
	change := h.changeLocked(ChangeSet)
	seq, subs := h.commitLocked()
	h.mu.Unlock()

	h.deliver(seq, subs, change)
	return true
}

// pushLocked moves the present onto the past and adopts v.
// Clears the redo stack.
func (h *History[T]) pushLocked(v T) {
	h.past = append(h.past, h.present)
	h.present = v
	h.future = nil

	if h.maxEntries > 0 && len(h.past) > h.maxEntries {
		excess := len(h.past) - h.maxEntries
		h.past = append([]T(nil), h.past[excess:]...)
	}
}

// Reset discards all history and makes v the present.
func (h *History[T]) Reset(v T) {
	h.mu.Lock()
	h.past = nil
	h.present = v
	h.future = nil
	change := h.changeLocked(ChangeReset)
	seq, subs := h.commitLocked()
	h.mu.Unlock()

	h.deliver(seq, subs, change)
}

// Undo restores the previous value.
// Returns false if there is nothing to undo.
func (h *History[T]) Undo() bool {
	h.mu.Lock()
	if len(h.past) == 0 {
		h.mu.Unlock()
		return false
	}

	last := len(h.past) - 1
	h.future = append(h.future, h.present)
	h.present = h.past[last]
	h.past = h.past[:last]
	change := h.changeLocked(ChangeUndo)
	seq, subs := h.commitLocked()
	h.mu.Unlock()

	h.deliver(seq, subs, change)
	return true
}

// Redo re-applies the most recently undone value.
// Returns false if there is nothing to redo.
func (h *History[T]) Redo() bool {
	h.mu.Lock()
	if len(h.future) == 0 {
		h.mu.Unlock()
		return false
	}

	last := len(h.future) - 1
	h.past = append(h.past, h.present)
	h.present = h.future[last]
	h.future = h.future[:last]
	change := h.changeLocked(ChangeRedo)
	seq, subs := h.commitLocked()
	h.mu.Unlock()

	h.deliver(seq, subs, change)
	return true
}

// Status returns the present value together with the undo and redo
// availability, read in one step.
func (h *History[T]) Status() (present T, canUndo, canRedo bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.present, len(h.past) > 0, len(h.future) > 0
}

// CanUndo returns true if undo is available.
func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

// CanRedo returns true if redo is available.
func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// UndoCount returns the number of undo steps available.
func (h *History[T]) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past)
}

// RedoCount returns the number of redo steps available.
func (h *History[T]) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future)
}

// Snapshot returns a copy of the record.
func (h *History[T]) Snapshot() Record[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	future := make([]T, len(h.future))
	for i, v := range h.future {
		future[len(h.future)-1-i] = v
	}
	return Record[T]{
		Past:    append([]T(nil), h.past...),
		Present: h.present,
		Future:  future,
	}
}

// SetMaxEntries changes the maximum number of undo entries.
// Zero or less means unbounded. If the past is larger, oldest entries go.
func (h *History[T]) SetMaxEntries(max int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if max < 0 {
		max = 0
	}
	h.maxEntries = max
	if max > 0 && len(h.past) > max {
		excess := len(h.past) - max
		h.past = append([]T(nil), h.past[excess:]...)
	}
}

// MaxEntries returns the maximum number of undo entries, 0 if unbounded.
func (h *History[T]) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}

// Subscribe registers fn to be called after every change.
// Changes are delivered one at a time in the order they were made. fn may
// read h but must not write to it. The returned function removes the
// subscription.
func (h *History[T]) Subscribe(fn func(Change[T])) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

func (h *History[T]) changeLocked(kind ChangeKind) Change[T] {
	return Change[T]{
		Kind:    kind,
		Value:   h.present,
		CanUndo: len(h.past) > 0,
		CanRedo: len(h.future) > 0,
	}
}

// commitLocked numbers a change and captures its subscribers.
func (h *History[T]) commitLocked() (uint64, []subscriber[T]) {
	h.committed++
	var subs []subscriber[T]
	if len(h.subs) > 0 {
		subs = append(subs, h.subs...)
	}
	return h.committed, subs
}

// deliver notifies subs of change number seq once every earlier change
// has been delivered, so subscribers observe changes in commit order.
func (h *History[T]) deliver(seq uint64, subs []subscriber[T], change Change[T]) {
	h.turnMu.Lock()
	for h.delivered != seq-1 {
		h.turn.Wait()
	}
	h.turnMu.Unlock()

	defer func() {
		h.turnMu.Lock()
		h.delivered = seq
		h.turn.Broadcast()
		h.turnMu.Unlock()
	}()
	for _, s := range subs {
		s.fn(change)
	}
}
