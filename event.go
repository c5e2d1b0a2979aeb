package loom

// Event is a sealed interface over every protocol event this core
// consumes. Stream events carry block-lifecycle deltas for one message;
// session events carry turn and session lifecycle changes. Events are
// purely semantic. Transport errors come from EventSource.Next()'s error
// return, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// Meta carries the well-known optional side-channel fields backends attach
// to events, plus a passthrough bag for provider-specific keys this core
// doesn't interpret. Unknown keys are preserved, not dropped.
type Meta struct {
	ToolName       string
	BlockType      string
	PermissionMode string
	LastStepUsage  *Usage
	Extra          map[string]string
}

// MessageStart opens a streamed message. ParentCallID identifies the
// sub-agent turn that owns the message; empty means the main turn.
type MessageStart struct {
	ParentCallID string
	Backend      Backend
}

func (MessageStart) event() {}

// BlockStart opens one content block at Index. CallID is set only for
// tool-use blocks; Meta.BlockType distinguishes thinking from text.
type BlockStart struct {
	Index  int
	CallID string
	Meta   Meta
}

func (BlockStart) event() {}

// TextDelta appends a text fragment to the block at Index.
type TextDelta struct {
	Index int
	Text  string
}

func (TextDelta) event() {}

// ThinkingDelta appends a reasoning fragment to the block at Index.
type ThinkingDelta struct {
	Index int
	Text  string
}

func (ThinkingDelta) event() {}

// ToolInputDelta appends a raw JSON argument fragment to the tool-use
// block at Index.
type ToolInputDelta struct {
	Index int
	JSON  string
}

func (ToolInputDelta) event() {}

// BlockStop closes the block at Index. The block's content is immutable
// from this point on.
type BlockStop struct {
	Index int
}

func (BlockStop) event() {}

// MessageStop closes the streamed message.
type MessageStop struct{}

func (MessageStop) event() {}

// Interface compliance checks.
var (
	_ Event = MessageStart{}
	_ Event = BlockStart{}
	_ Event = TextDelta{}
	_ Event = ThinkingDelta{}
	_ Event = ToolInputDelta{}
	_ Event = BlockStop{}
	_ Event = MessageStop{}
)
