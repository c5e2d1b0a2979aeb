// Package memlog provides an in-memory conversation log with mutation
// observers. It is the concrete ConversationLog used by the TUI and by
// tests.
package memlog

import (
	"sync"

	"github.com/loomcode/loom"
)

// Log stores entries per conversation, append-only, and fans mutation
// notifications out to observers.
type Log struct {
	mu        sync.RWMutex
	entries   map[loom.ConversationID][]loom.Entry
	observers []func(loom.ConversationID)
}

var _ loom.ConversationLog = (*Log)(nil)

// New creates an empty log.
func New() *Log {
	return &Log{entries: make(map[loom.ConversationID][]loom.Entry)}
}

// Append adds e to the conversation's entry list. The entry pointer is
// stored as-is: the interpreter keeps mutating content while the entry
// streams.
func (l *Log) Append(id loom.ConversationID, e loom.Entry) {
	l.mu.Lock()
	l.entries[id] = append(l.entries[id], e)
	l.mu.Unlock()
}

// NotifyMutation invokes every observer with the mutated conversation.
func (l *Log) NotifyMutation(id loom.ConversationID) {
	l.mu.RLock()
	obs := l.observers
	l.mu.RUnlock()
	for _, fn := range obs {
		fn(id)
	}
}

// Observe registers fn to receive mutation notifications. Not safe to
// call concurrently with NotifyMutation.
func (l *Log) Observe(fn func(loom.ConversationID)) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

// Entries returns a snapshot of the conversation's entry list. Entry
// pointers are shared; callers must not mutate entry content.
func (l *Log) Entries(id loom.ConversationID) []loom.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]loom.Entry, len(l.entries[id]))
	copy(out, l.entries[id])
	return out
}

// Conversations returns the ids of all conversations with entries.
func (l *Log) Conversations() []loom.ConversationID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]loom.ConversationID, 0, len(l.entries))
	for id := range l.entries {
		out = append(out, id)
	}
	return out
}
