package loom

// ModelInfo describes a selectable model.
type ModelInfo struct {
	ID      string
	Label   string
	Backend Backend
}

// ReasoningEffort is the backend's reasoning-effort setting.
type ReasoningEffort string

const (
	EffortLow    ReasoningEffort = "low"
	EffortMedium ReasoningEffort = "medium"
	EffortHigh   ReasoningEffort = "high"
)

// ParseReasoningEffort maps a reported effort value to a known level.
func ParseReasoningEffort(s string) (ReasoningEffort, bool) {
	switch ReasoningEffort(s) {
	case EffortLow, EffortMedium, EffortHigh:
		return ReasoningEffort(s), true
	}
	return "", false
}

// PermissionMode is the backend's tool-permission policy.
type PermissionMode string

const (
	PermissionDefault     PermissionMode = "default"
	PermissionAcceptEdits PermissionMode = "acceptEdits"
	PermissionPlan        PermissionMode = "plan"
	PermissionBypass      PermissionMode = "bypassPermissions"
)

// ParsePermissionMode maps a reported permission-mode value to a known
// mode.
func ParsePermissionMode(s string) (PermissionMode, bool) {
	switch PermissionMode(s) {
	case PermissionDefault, PermissionAcceptEdits, PermissionPlan, PermissionBypass:
		return PermissionMode(s), true
	}
	return "", false
}

// SessionMode is an opaque backend-defined session mode (e.g. a custom
// agent persona). Replaced verbatim from session events.
type SessionMode string

// CommandInfo describes one slash command the backend exposes.
type CommandInfo struct {
	Name        string
	Description string
}

// ConfigOption is one backend-reported configuration option.
type ConfigOption struct {
	Name  string
	Value string
}

// Session holds the mutable state for one chat session. It is mutated
// only by the lifecycle controller in response to session events; the
// stream interpreter reads it but never writes.
type Session struct {
	ID             string
	Model          ModelInfo
	Effort         ReasoningEffort
	PermissionMode PermissionMode
	Mode           SessionMode
	Compacting     bool
	Commands       []CommandInfo
	Options        []ConfigOption

	// Cumulative usage and cost across all completed turns, with the
	// per-model breakdown keyed by model id.
	Usage      Usage
	ModelUsage map[string]ModelUsage

	// Context accounting. ContextTokens tracks the current context
	// footprint from step usage; ContextWindow is the active model's
	// token budget.
	ContextWindow    int
	ContextTokens    int
	TurnOutputTokens int

	// Turn bookkeeping. Working is set while a turn is in progress;
	// HasOutput records whether any assistant output entry was produced
	// this turn. AwaitingSummary is set when a compaction event promised
	// a summary that has not arrived yet.
	Working         bool
	HasOutput       bool
	AwaitingSummary bool
}
