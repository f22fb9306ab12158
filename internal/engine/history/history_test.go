package history

import (
	"runtime"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewHistory(t *testing.T) {
	h := New("v0")
	if h.Present() != "v0" {
		t.Errorf("Present() = %q, want v0", h.Present())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("new history should have no undo/redo")
	}
	if h.MaxEntries() != 0 {
		t.Errorf("MaxEntries() = %d, want unbounded", h.MaxEntries())
	}
}

func TestNewFuncEvaluatesOnce(t *testing.T) {
	calls := 0
	h := NewFunc(func() string {
		calls++
		return "loaded"
	})
	h.Set("edited")
	h.Undo()
	h.Reset("other")

	if calls != 1 {
		t.Errorf("initializer called %d times, want 1", calls)
	}
	if h.Present() != "other" {
		t.Errorf("Present() = %q", h.Present())
	}
}

func TestSetPushesAndClearsFuture(t *testing.T) {
	h := New("v0")
	if !h.Set("v1") {
		t.Fatal("Set should report a change")
	}
	h.Set("v2")

	if h.UndoCount() != 2 {
		t.Errorf("UndoCount() = %d, want 2", h.UndoCount())
	}

	h.Undo()
	if !h.CanRedo() {
		t.Fatal("expected redo after undo")
	}

	h.Set("v3")
	if h.CanRedo() {
		t.Error("fresh edit should discard redo history")
	}

	got := h.Snapshot()
	want := Record[string]{Past: []string{"v0", "v1"}, Present: "v3", Future: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestUndoRedoInverse(t *testing.T) {
	h := New("v0")
	h.Set("v1")
	h.Set("v2")

	steps := []struct {
		op      func() bool
		present string
		canUndo bool
		canRedo bool
	}{
		{h.Undo, "v1", true, true},
		{h.Undo, "v0", false, true},
		{h.Redo, "v1", true, true},
		{h.Redo, "v2", true, false},
	}

	for i, s := range steps {
		if !s.op() {
			t.Fatalf("step %d: operation reported no change", i)
		}
		if got := h.Present(); got != s.present {
			t.Errorf("step %d: Present() = %q, want %q", i, got, s.present)
		}
		if h.CanUndo() != s.canUndo {
			t.Errorf("step %d: CanUndo() = %v, want %v", i, h.CanUndo(), s.canUndo)
		}
		if h.CanRedo() != s.canRedo {
			t.Errorf("step %d: CanRedo() = %v, want %v", i, h.CanRedo(), s.canRedo)
		}
	}
}

func TestSnapshotFutureOrder(t *testing.T) {
	h := New(0)
	h.Set(1)
	h.Set(2)
	h.Set(3)
	h.Undo()
	h.Undo()

	got := h.Snapshot()
	want := Record[int]{Past: []int{0}, Present: 1, Future: []int{2, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyNavigationIsNoop(t *testing.T) {
	h := New("only")
	if h.Undo() {
		t.Error("Undo on empty past should report false")
	}
	if h.Redo() {
		t.Error("Redo on empty future should report false")
	}
	if h.Present() != "only" {
		t.Errorf("Present() = %q", h.Present())
	}
}

func TestIdentityShortCircuit(t *testing.T) {
	h := New("v0")
	h.Set("v1")
	h.Undo()

	notified := 0
	h.Subscribe(func(Change[string]) { notified++ })

	if h.Set("v0") {
		t.Error("writing the present should be absorbed")
	}
	if h.UndoCount() != 0 || h.RedoCount() != 1 {
		t.Errorf("stacks changed: undo=%d redo=%d", h.UndoCount(), h.RedoCount())
	}
	if h.Update(func(s string) string { return s }) {
		t.Error("identity update should be absorbed")
	}
	if notified != 0 {
		t.Errorf("notified %d times, want 0", notified)
	}
}

func TestIdentitySlicesAreByReference(t *testing.T) {
	tasks := []string{"a", "b"}
	h := New(tasks)

	if h.Set(tasks) {
		t.Error("same slice should be identical")
	}
	if !h.Set(append([]string(nil), tasks...)) {
		t.Error("equal copy should be a new value")
	}
}

func TestIdentityPointersAndStructs(t *testing.T) {
	type prompts struct{ Combined string }

	p := &prompts{Combined: "x"}
	hp := New(p)
	if hp.Set(p) {
		t.Error("same pointer should be identical")
	}
	if !hp.Set(&prompts{Combined: "x"}) {
		t.Error("distinct pointer should be new")
	}

	hv := New(prompts{Combined: "x"})
	if hv.Set(prompts{Combined: "x"}) {
		t.Error("equal comparable struct should be identical")
	}

	type withSlice struct {
		Title string
		Items []string
	}
	items := []string{"a"}
	hs := New(withSlice{Title: "t", Items: items})
	if hs.Set(withSlice{Title: "t", Items: items}) {
		t.Error("struct sharing its slice should be identical")
	}
	if !hs.Set(withSlice{Title: "t", Items: []string{"a"}}) {
		t.Error("struct with a copied slice should be new")
	}
	if !hs.Set(withSlice{Title: "u", Items: hs.Present().Items}) {
		t.Error("struct with a changed field should be new")
	}

	var a, b any = 1, 1
	ha := New(a)
	if ha.Set(b) {
		t.Error("equal interface values should be identical")
	}
}

func TestWithEqual(t *testing.T) {
	h := New([]string{"a"}, WithEqual(func(a, b []string) bool {
		return cmp.Equal(a, b)
	}))
	if h.Set([]string{"a"}) {
		t.Error("custom equality should absorb equal slices")
	}
}

func TestUpdateAppliesToPresent(t *testing.T) {
	h := New(1)
	h.Update(func(n int) int { return n + 1 })
	h.Update(func(n int) int { return n * 10 })

	if h.Present() != 20 {
		t.Errorf("Present() = %d, want 20", h.Present())
	}
	h.Undo()
	if h.Present() != 2 {
		t.Errorf("after undo Present() = %d, want 2", h.Present())
	}
}

func TestReset(t *testing.T) {
	h := New("v0")
	h.Set("v1")
	h.Set("v2")
	h.Undo()

	h.Reset("pasted")
	if h.Present() != "pasted" {
		t.Errorf("Present() = %q", h.Present())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("Reset should clear both stacks")
	}
}

func TestMaxEntries(t *testing.T) {
	h := New(0, WithMaxEntries[int](3))
	for i := 1; i <= 5; i++ {
		h.Set(i)
	}
	if h.UndoCount() != 3 {
		t.Errorf("UndoCount() = %d, want 3", h.UndoCount())
	}
	got := h.Snapshot().Past
	if diff := cmp.Diff([]int{2, 3, 4}, got); diff != "" {
		t.Errorf("past mismatch (-want +got):\n%s", diff)
	}

	h.SetMaxEntries(1)
	if h.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d after shrink, want 1", h.UndoCount())
	}
	h.SetMaxEntries(0)
	for i := 0; i < 10; i++ {
		h.Set(100 + i)
	}
	if h.UndoCount() != 11 {
		t.Errorf("UndoCount() = %d unbounded, want 11", h.UndoCount())
	}
}

func TestSubscribe(t *testing.T) {
	h := New("v0")

	var kinds []ChangeKind
	var values []string
	cancel := h.Subscribe(func(c Change[string]) {
		kinds = append(kinds, c.Kind)
		values = append(values, c.Value)
	})

	h.Set("v1")
	h.Undo()
	h.Redo()
	h.Reset("r")
	cancel()
	h.Set("ignored")

	wantKinds := []ChangeKind{ChangeSet, ChangeUndo, ChangeRedo, ChangeReset}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	wantValues := []string{"v1", "v0", "v1", "r"}
	if diff := cmp.Diff(wantValues, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriberMayReadHistory(t *testing.T) {
	h := New("v0")
	var seen string
	h.Subscribe(func(Change[string]) {
		seen = h.Present()
	})
	h.Set("v1")
	if seen != "v1" {
		t.Errorf("subscriber saw %q, want v1", seen)
	}
}

func TestChangeFlags(t *testing.T) {
	h := New("v0")
	var last Change[string]
	h.Subscribe(func(c Change[string]) { last = c })

	h.Set("v1")
	if !last.CanUndo || last.CanRedo {
		t.Errorf("after set: %+v", last)
	}
	h.Undo()
	if last.CanUndo || !last.CanRedo {
		t.Errorf("after undo: %+v", last)
	}
}

func TestChangeKindString(t *testing.T) {
	tests := map[ChangeKind]string{
		ChangeSet:     "set",
		ChangeReset:   "reset",
		ChangeUndo:    "undo",
		ChangeRedo:    "redo",
		ChangeKind(0): "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("ChangeKind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestConcurrentUpdates(t *testing.T) {
	h := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()

	if h.Present() != 50 {
		t.Errorf("Present() = %d, want 50", h.Present())
	}
	if h.UndoCount() != 50 {
		t.Errorf("UndoCount() = %d, want 50", h.UndoCount())
	}
}

func TestStatus(t *testing.T) {
	h := New("v0")
	h.Set("v1")
	h.Undo()

	present, canUndo, canRedo := h.Status()
	if present != "v0" || canUndo || !canRedo {
		t.Errorf("Status() = %q, %v, %v; want v0, false, true", present, canUndo, canRedo)
	}
}

func TestSubscribersSeeCommitOrder(t *testing.T) {
	h := New(0)
	var mu sync.Mutex
	var seen []int
	h.Subscribe(func(c Change[int]) {
		mu.Lock()
		seen = append(seen, c.Value)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()

	want := make([]int, 50)
	for i := range want {
		want[i] = i + 1
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("delivery order mismatch (-want +got):\n%s", diff)
	}
}

func TestSlowSubscriberKeepsOrder(t *testing.T) {
	h := New("v0")
	release := make(chan struct{})
	entered := make(chan struct{})

	var mu sync.Mutex
	var last string
	h.Subscribe(func(c Change[string]) {
		if c.Value == "v1" {
			close(entered)
			<-release
		}
		mu.Lock()
		last = c.Value
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		h.Set("v1")
		close(done)
	}()
	<-entered

	second := make(chan struct{})
	go func() {
		h.Set("v2")
		close(second)
	}()
	for h.Present() != "v2" {
		runtime.Gosched()
	}
	close(release)
	<-done
	<-second

	mu.Lock()
	defer mu.Unlock()
	if last != "v2" {
		t.Errorf("last delivered value = %q, want v2", last)
	}
}
