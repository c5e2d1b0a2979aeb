package mock

import (
	"time"

	"github.com/loomcode/loom/engine"
)

// Clock is a manual engine.Clock. Scheduled callbacks fire only when the
// test calls Tick, so throttle behavior is exercised with virtual time.
type Clock struct {
	tasks []*Task
}

var _ engine.Clock = (*Clock)(nil)

// NewClock creates a manual clock.
func NewClock() *Clock {
	return &Clock{}
}

// Schedule records fn as an active task.
func (c *Clock) Schedule(_ time.Duration, fn func()) engine.Task {
	t := &Task{fn: fn}
	c.tasks = append(c.tasks, t)
	return t
}

// Tick fires every active task once, simulating one timer interval.
func (c *Clock) Tick() {
	for _, t := range c.tasks {
		if !t.cancelled {
			t.fn()
		}
	}
}

// Active returns the number of scheduled, uncancelled tasks.
func (c *Clock) Active() int {
	n := 0
	for _, t := range c.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Task is a manually driven scheduled callback.
type Task struct {
	fn        func()
	cancelled bool
}

// Cancel stops the task from firing on future ticks.
func (t *Task) Cancel() {
	t.cancelled = true
}
