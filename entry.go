package loom

// Entry is a sealed interface over conversation-log entries. The stream
// interpreter creates entries and appends them to a ConversationLog at
// block start; while an entry's Streaming flag is true the interpreter is
// its only mutator, and once the flag flips to false the content is
// immutable.
// The unexported marker method prevents external implementations.
type Entry interface {
	entry()
}

// ContentType distinguishes user-visible text from internal reasoning.
type ContentType int

const (
	ContentText ContentType = iota
	ContentThinking
)

// TextEntry holds accumulated streamed text, either visible output or
// thinking content.
type TextEntry struct {
	ContentType ContentType
	Text        string
	Streaming   bool
}

func (*TextEntry) entry() {}

// TaskStatus is the lifecycle state of a tool call or the sub-agent turn
// it spawned.
type TaskStatus int

const (
	TaskRunning TaskStatus = iota
	TaskCompleted
	TaskError
)

// ToolUseEntry holds a tool invocation with its argument JSON accumulated
// fragment by fragment. Status is updated by the lifecycle controller
// when the tool spawned a sub-agent turn.
type ToolUseEntry struct {
	ToolUseID string
	ToolName  string
	ToolKind  ToolKind
	Input     string
	Streaming bool
	Status    TaskStatus
}

func (*ToolUseEntry) entry() {}

// PromptEntry holds a user prompt, appended by the host when input is
// submitted.
type PromptEntry struct {
	Text string
}

func (*PromptEntry) entry() {}

// NoticeKind classifies a non-streamed marker entry.
type NoticeKind int

const (
	// NoticeContextCleared marks a full context clear.
	NoticeContextCleared NoticeKind = iota
	// NoticeCompaction marks an automatic or manual context compaction.
	NoticeCompaction
	// NoticeSummary carries the compaction summary text.
	NoticeSummary
	// NoticeSystem carries a system-level message, e.g. a turn result for
	// agents that stream no content.
	NoticeSystem
)

// NoticeEntry is a marker appended by the lifecycle controller, never
// streamed.
type NoticeEntry struct {
	Kind          NoticeKind
	Text          string
	UserInitiated bool
}

func (*NoticeEntry) entry() {}

// Interface compliance checks.
var (
	_ Entry = (*TextEntry)(nil)
	_ Entry = (*ToolUseEntry)(nil)
	_ Entry = (*PromptEntry)(nil)
	_ Entry = (*NoticeEntry)(nil)
)
