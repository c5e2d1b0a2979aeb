package mock

import "github.com/loomcode/loom"

// Bridge records forwarded turn completions. If Panic is set, every call
// panics, for exercising failure isolation at the call boundary.
type Bridge struct {
	Panic bool
	Calls []loom.TurnComplete
}

var _ loom.TaskBridge = (*Bridge)(nil)

// OnTurnComplete implements loom.TaskBridge.
func (b *Bridge) OnTurnComplete(_ *loom.Session, ev loom.TurnComplete) {
	if b.Panic {
		panic("bridge failure")
	}
	b.Calls = append(b.Calls, ev)
}
