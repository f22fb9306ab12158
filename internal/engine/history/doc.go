// Package history provides linear undo/redo for arbitrary immutable values.
//
// A History holds a past/present/future record. Every accepted write moves
// the previous present onto the past and discards the future, so the model
// is a line, not a tree:
//
//	h := history.New("v0")
//	h.Set("v1")
//	h.Set("v2")
//	h.Undo()       // present "v1", redo available
//	h.Set("v3")    // redo discarded
//
// # Identity
//
// Writing a value identical to the present is absorbed without touching the
// stacks or notifying subscribers. Identity follows reference semantics:
// slices, maps, pointers and funcs are identical when they share storage,
// structs and arrays when their fields are, other values when they are ==.
// A NaN float is never identical, not even to itself. WithEqual replaces
// the rule.
//
// # Notification
//
// Subscribe registers a handler that runs after every change, outside the
// history's lock. Concurrent writers deliver their changes in commit order,
// one at a time, so the last value a handler sees is the present.
// Persistence layers use it to save the present.
//
// # Capacity
//
// Stacks are unbounded unless WithMaxEntries is given, in which case the
// oldest past entries are evicted first.
package history
