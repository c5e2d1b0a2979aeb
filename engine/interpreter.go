package engine

import "github.com/loomcode/loom"

// blockKey identifies one streaming block: valid only for the lifetime of
// a single message.
type blockKey struct {
	conv  loom.ConversationID
	index int
}

// Interpreter consumes ordered block-lifecycle events for one logical
// message and reconstructs structured entries in the conversation log.
//
// It is a two-state machine: idle (no active message) and streaming
// (between MessageStart and MessageStop for one conversation). Only one
// message may be active at a time; a MessageStart while streaming
// overwrites the previous context. Events referencing an unknown block or
// conversation are dropped — protocol delivery is best-effort, and a
// late or duplicate event must never corrupt reconstructed state.
type Interpreter struct {
	session  *loom.Session
	log      loom.ConversationLog
	resolver loom.ConversationResolver
	index    *ToolCallIndex
	throttle *Throttler

	// onOutput is invoked once per assistant output entry produced for
	// the main turn. Wired to the lifecycle controller, which owns the
	// session's turn bookkeeping; the interpreter itself never mutates
	// session state.
	onOutput func()

	streaming  bool
	mainTurn   bool
	activeConv loom.ConversationID
	blocks     map[blockKey]loom.Entry
	open       map[loom.ConversationID]map[loom.Entry]struct{}
}

// NewInterpreter creates an interpreter writing into log. onOutput may be
// nil.
func NewInterpreter(session *loom.Session, log loom.ConversationLog, resolver loom.ConversationResolver, index *ToolCallIndex, throttle *Throttler, onOutput func()) *Interpreter {
	return &Interpreter{
		session:  session,
		log:      log,
		resolver: resolver,
		index:    index,
		throttle: throttle,
		onOutput: onOutput,
		blocks:   make(map[blockKey]loom.Entry),
		open:     make(map[loom.ConversationID]map[loom.Entry]struct{}),
	}
}

// HandleMessageStart transitions idle → streaming and resolves the target
// conversation for the message.
func (in *Interpreter) HandleMessageStart(ev loom.MessageStart) {
	in.activeConv = in.resolver.Resolve(in.session, ev.ParentCallID)
	in.mainTurn = ev.ParentCallID == ""
	in.streaming = true
	in.blocks = make(map[blockKey]loom.Entry)
}

// HandleBlockStart creates exactly one entry for the block and appends it
// to the conversation log. Precedence: a CallID makes a tool-use entry, a
// thinking block type makes a thinking text entry, anything else plain
// text.
func (in *Interpreter) HandleBlockStart(ev loom.BlockStart) {
	if !in.streaming {
		return
	}

	var e loom.Entry
	switch {
	case ev.CallID != "":
		t := &loom.ToolUseEntry{
			ToolUseID: ev.CallID,
			ToolName:  ev.Meta.ToolName,
			ToolKind:  loom.KindOfTool(ev.Meta.ToolName),
			Streaming: true,
		}
		in.index.Register(ev.CallID, t)
		e = t
	case ev.Meta.BlockType == "thinking":
		e = &loom.TextEntry{ContentType: loom.ContentThinking, Streaming: true}
	default:
		e = &loom.TextEntry{ContentType: loom.ContentText, Streaming: true}
	}

	in.blocks[blockKey{in.activeConv, ev.Index}] = e
	set, ok := in.open[in.activeConv]
	if !ok {
		set = make(map[loom.Entry]struct{})
		in.open[in.activeConv] = set
	}
	set[e] = struct{}{}

	in.log.Append(in.activeConv, e)
	if in.mainTurn && in.onOutput != nil {
		in.onOutput()
	}
}

// HandleTextDelta appends a text fragment to the block at the event's
// index. Unknown blocks and non-text entries drop the fragment.
func (in *Interpreter) HandleTextDelta(ev loom.TextDelta) {
	in.appendText(ev.Index, ev.Text)
}

// HandleThinkingDelta appends a reasoning fragment. Thinking deltas land
// in the same text entry the block start created.
func (in *Interpreter) HandleThinkingDelta(ev loom.ThinkingDelta) {
	in.appendText(ev.Index, ev.Text)
}

func (in *Interpreter) appendText(index int, text string) {
	if !in.streaming {
		return
	}
	e, ok := in.blocks[blockKey{in.activeConv, index}]
	if !ok {
		return
	}
	te, ok := e.(*loom.TextEntry)
	if !ok || !te.Streaming {
		return
	}
	te.Text += text
	in.throttle.Mark(in.activeConv)
}

// HandleToolInputDelta appends a raw JSON fragment to the tool-use block
// at the event's index.
func (in *Interpreter) HandleToolInputDelta(ev loom.ToolInputDelta) {
	if !in.streaming {
		return
	}
	e, ok := in.blocks[blockKey{in.activeConv, ev.Index}]
	if !ok {
		return
	}
	te, ok := e.(*loom.ToolUseEntry)
	if !ok || !te.Streaming {
		return
	}
	te.Input += ev.JSON
	in.throttle.Mark(in.activeConv)
}

// HandleBlockStop marks the block's entry as no longer streaming. The
// entry stays in the log; a pending flush still lands on the throttler's
// own cadence or at message stop.
func (in *Interpreter) HandleBlockStop(ev loom.BlockStop) {
	if !in.streaming {
		return
	}
	e, ok := in.blocks[blockKey{in.activeConv, ev.Index}]
	if !ok {
		return
	}
	setStreaming(e, false)
	if set, ok := in.open[in.activeConv]; ok {
		delete(set, e)
		if len(set) == 0 {
			delete(in.open, in.activeConv)
		}
	}
}

// HandleMessageStop disarms the throttle timer, performs one final flush
// if a mutation is pending, and returns the interpreter to idle.
func (in *Interpreter) HandleMessageStop(loom.MessageStop) {
	if !in.streaming {
		return
	}
	in.throttle.Stop()
	// A well-formed sequence closed every block; close stragglers anyway.
	for e := range in.open[in.activeConv] {
		setStreaming(e, false)
	}
	delete(in.open, in.activeConv)
	in.blocks = make(map[blockKey]loom.Entry)
	in.activeConv = ""
	in.mainTurn = false
	in.streaming = false
}

// ClearStreamingState is the hard reset for user cancel or a dropped
// connection: it disarms the timer, flushes a pending mutation, forces
// every still-open entry out of streaming, and clears all interpreter
// state. Safe to call from any state; idempotent.
func (in *Interpreter) ClearStreamingState() {
	in.throttle.Stop()
	for _, set := range in.open {
		for e := range set {
			setStreaming(e, false)
		}
	}
	in.open = make(map[loom.ConversationID]map[loom.Entry]struct{})
	in.blocks = make(map[blockKey]loom.Entry)
	in.activeConv = ""
	in.mainTurn = false
	in.streaming = false
}

// ClearConversations discards streaming state belonging to the given
// conversations, for use when those conversations are torn down. If the
// active conversation is among them the interpreter returns to idle
// without a final flush.
func (in *Interpreter) ClearConversations(ids ...loom.ConversationID) {
	for _, id := range ids {
		for e := range in.open[id] {
			setStreaming(e, false)
		}
		delete(in.open, id)
		for k := range in.blocks {
			if k.conv == id {
				delete(in.blocks, k)
			}
		}
		if in.streaming && in.activeConv == id {
			in.throttle.Discard()
			in.activeConv = ""
			in.mainTurn = false
			in.streaming = false
		}
	}
}

func setStreaming(e loom.Entry, v bool) {
	switch e := e.(type) {
	case *loom.TextEntry:
		e.Streaming = v
	case *loom.ToolUseEntry:
		e.Streaming = v
	}
}
