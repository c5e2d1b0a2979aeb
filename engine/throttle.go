package engine

import (
	"sync"
	"time"

	"github.com/loomcode/loom"
)

// DefaultFlushInterval bounds how often a mutated conversation emits a
// flush signal while deltas stream in.
const DefaultFlushInterval = 50 * time.Millisecond

// Clock schedules periodic callbacks. The real implementation runs fn on
// a ticker goroutine; tests substitute a manual clock and drive ticks
// themselves.
type Clock interface {
	Schedule(interval time.Duration, fn func()) Task
}

// Task is a cancellable scheduled callback.
type Task interface {
	Cancel()
}

// RealClock schedules callbacks on a time.Ticker.
type RealClock struct{}

// Schedule runs fn every interval until the returned task is cancelled.
func (RealClock) Schedule(interval time.Duration, fn func()) Task {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	return &tickerTask{ticker: t, done: done}
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Cancel() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

// FlushFunc emits one "conversation mutated" signal.
type FlushFunc func(loom.ConversationID)

// Throttler coalesces repeated mutation marks into a bounded-rate stream
// of flush signals. The first mark after a quiescent period arms a
// periodic timer; marks before the next tick only set a pending flag;
// each tick that finds the flag set clears it and emits one flush for the
// marked conversation. Stop disarms the timer and performs one last flush
// if a mark is still pending, so no mutation is ever silently lost.
//
// The mutex exists because ticks arrive on the clock's goroutine while
// marks arrive on the event sequence; it guards only the pending flag and
// timer handle, never interpreter state.
type Throttler struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	flush    FlushFunc

	task    Task
	pending bool
	conv    loom.ConversationID
}

// NewThrottler creates a throttler emitting through flush at most once
// per interval.
func NewThrottler(clock Clock, interval time.Duration, flush FlushFunc) *Throttler {
	return &Throttler{clock: clock, interval: interval, flush: flush}
}

// Mark records a mutation of conv and arms the timer if it isn't running.
func (t *Throttler) Mark(conv loom.ConversationID) {
	t.mu.Lock()
	t.pending = true
	t.conv = conv
	if t.task == nil {
		t.task = t.clock.Schedule(t.interval, t.tick)
	}
	t.mu.Unlock()
}

// tick is the periodic timer callback.
func (t *Throttler) tick() {
	t.mu.Lock()
	if !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	conv := t.conv
	t.mu.Unlock()
	t.flush(conv)
}

// Stop disarms the timer and flushes a still-pending mark. Idempotent.
func (t *Throttler) Stop() {
	t.mu.Lock()
	if t.task != nil {
		t.task.Cancel()
		t.task = nil
	}
	pending := t.pending
	conv := t.conv
	t.pending = false
	t.mu.Unlock()
	if pending {
		t.flush(conv)
	}
}

// Discard disarms the timer and drops any pending mark without flushing.
// Used when the marked conversation is being torn down.
func (t *Throttler) Discard() {
	t.mu.Lock()
	if t.task != nil {
		t.task.Cancel()
		t.task = nil
	}
	t.pending = false
	t.mu.Unlock()
}
