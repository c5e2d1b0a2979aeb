package loom

// SessionInit reports backend-resolved session configuration. The backend
// is authoritative: a reported model or reasoning effort that differs from
// the current selection is a correction, not a user action.
type SessionInit struct {
	ModelID         string
	ReasoningEffort string
}

func (SessionInit) event() {}

// ConfigOptionsChanged replaces the session's config-option snapshot.
type ConfigOptionsChanged struct {
	Options []ConfigOption
}

func (ConfigOptionsChanged) event() {}

// AvailableCommandsChanged replaces the session's command snapshot.
type AvailableCommandsChanged struct {
	Commands []CommandInfo
}

func (AvailableCommandsChanged) event() {}

// SessionModeChanged replaces the session mode.
type SessionModeChanged struct {
	Mode SessionMode
}

func (SessionModeChanged) event() {}

// StatusCompacting is the status value reported while the backend is
// compacting context.
const StatusCompacting = "compacting"

// SessionStatus reports a backend status change. Meta.PermissionMode, when
// present, carries a permission-mode change piggybacked on the status.
type SessionStatus struct {
	Status string
	Meta   Meta
}

func (SessionStatus) event() {}

// CompactionTrigger identifies what initiated a context compaction.
type CompactionTrigger string

const (
	TriggerAuto    CompactionTrigger = "auto"
	TriggerManual  CompactionTrigger = "manual"
	TriggerCleared CompactionTrigger = "cleared"
)

// ContextCompaction reports that the backend summarized or cleared prior
// context. PreTokens is the context size before compaction, zero if
// unreported. Summary may arrive later as session-level text, in which
// case it is empty here.
type ContextCompaction struct {
	Trigger   CompactionTrigger
	PreTokens int
	Summary   string
}

func (ContextCompaction) event() {}

// SessionText carries session-level text not tied to a streamed block,
// e.g. a compaction summary delivered after the compaction event.
type SessionText struct {
	Text string
}

func (SessionText) event() {}

// TurnComplete closes a turn. ParentCallID is empty for the main turn and
// set to the owning tool-use id for a sub-agent turn. Usage and ModelUsage
// are nil/empty when the backend reports none.
type TurnComplete struct {
	ParentCallID string
	Subtype      string
	Result       string
	Usage        *Usage
	ModelUsage   []ModelUsage
	Meta         Meta
}

func (TurnComplete) event() {}

// UsageUpdate reports incremental usage mid-turn. A set ParentCallID marks
// usage belonging to a sub-agent turn.
type UsageUpdate struct {
	ParentCallID string
	Usage        Usage
}

func (UsageUpdate) event() {}

// Interface compliance checks.
var (
	_ Event = SessionInit{}
	_ Event = ConfigOptionsChanged{}
	_ Event = AvailableCommandsChanged{}
	_ Event = SessionModeChanged{}
	_ Event = SessionStatus{}
	_ Event = ContextCompaction{}
	_ Event = SessionText{}
	_ Event = TurnComplete{}
	_ Event = UsageUpdate{}
)
