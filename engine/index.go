// Package engine implements the event-interpretation core: the delta
// stream interpreter that reconstructs conversation entries from
// block-lifecycle events, the notification throttler that bounds
// UI-visible change signals, and the turn/session lifecycle controller
// that reconciles usage, cost, compaction, and sub-agent completion into
// session state. All event handling runs on one logical sequence; only
// the throttler's timer callback is asynchronous, and it never mutates
// interpreter state.
package engine

import "github.com/loomcode/loom"

// ToolCallIndex maps tool-use ids to their in-flight entries. The
// interpreter registers an entry at block start; an external
// result-pairing step later consumes it. Ids are expected to be unique
// while open — a re-registration overwrites defensively rather than
// erroring.
type ToolCallIndex struct {
	entries map[string]*loom.ToolUseEntry
}

// NewToolCallIndex creates an empty index.
func NewToolCallIndex() *ToolCallIndex {
	return &ToolCallIndex{entries: make(map[string]*loom.ToolUseEntry)}
}

// Register records an entry under id, overwriting any previous entry.
func (x *ToolCallIndex) Register(id string, e *loom.ToolUseEntry) {
	x.entries[id] = e
}

// Get returns the entry registered under id, if any.
func (x *ToolCallIndex) Get(id string) (*loom.ToolUseEntry, bool) {
	e, ok := x.entries[id]
	return e, ok
}

// Take removes and returns the entry registered under id, if any. Used by
// the result-pairing collaborator to consume an id.
func (x *ToolCallIndex) Take(id string) (*loom.ToolUseEntry, bool) {
	e, ok := x.entries[id]
	if ok {
		delete(x.entries, id)
	}
	return e, ok
}

// Len returns the number of open registrations.
func (x *ToolCallIndex) Len() int {
	return len(x.entries)
}
