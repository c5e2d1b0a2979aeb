package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcode/loom"
	"github.com/loomcode/loom/catalog"
	"github.com/loomcode/loom/engine"
	"github.com/loomcode/loom/memlog"
	"github.com/loomcode/loom/mock"
)

// fixedPricing prices every token batch at a flat per-model cost.
type fixedPricing map[string]float64

func (p fixedPricing) Lookup(model string) (loom.ModelPricing, bool) {
	c, ok := p[model]
	return fixedCost(c), ok
}

type fixedCost float64

func (c fixedCost) Cost(_, _, _ int) float64 { return float64(c) }

type ctrlFixture struct {
	session *loom.Session
	log     *memlog.Log
	index   *engine.ToolCallIndex
	ctrl    *engine.Controller
	conv    loom.ConversationID
}

func newCtrlFixture(t *testing.T, backend loom.Backend, pricing loom.Pricing, bridge loom.TaskBridge) *ctrlFixture {
	t.Helper()
	session := &loom.Session{
		ID:    "s1",
		Model: loom.ModelInfo{ID: "m0", Label: "m0", Backend: backend},
	}
	log := memlog.New()
	index := engine.NewToolCallIndex()
	ctrl := engine.NewController(session, log, loom.DefaultResolver{}, index, catalog.Default(), pricing, bridge)
	return &ctrlFixture{
		session: session,
		log:     log,
		index:   index,
		ctrl:    ctrl,
		conv:    loom.DefaultResolver{}.Resolve(session, ""),
	}
}

func TestController_SessionInitResolvesModel(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleSessionInit(loom.SessionInit{ModelID: "claude-sonnet-4-5", ReasoningEffort: "high"})

	assert.Equal(t, "claude-sonnet-4-5", f.session.Model.ID)
	assert.NotEqual(t, "claude-sonnet-4-5", f.session.Model.Label, "catalog supplies a display label")
	assert.Equal(t, loom.BackendClaude, f.session.Model.Backend)
	assert.Equal(t, loom.EffortHigh, f.session.Effort)
}

func TestController_SessionInitSynthesizesUnknownModel(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleSessionInit(loom.SessionInit{ModelID: "claude-experimental-9"})

	assert.Equal(t, "claude-experimental-9", f.session.Model.ID)
	assert.Equal(t, "claude-experimental-9", f.session.Model.Label)
	assert.Equal(t, loom.BackendClaude, f.session.Model.Backend)
}

func TestController_SessionInitIgnoresBogusEffort(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)
	f.session.Effort = loom.EffortMedium

	f.ctrl.HandleSessionInit(loom.SessionInit{ReasoningEffort: "turbo"})

	assert.Equal(t, loom.EffortMedium, f.session.Effort)
}

func TestController_SessionStatusCompacting(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleSessionStatus(loom.SessionStatus{Status: loom.StatusCompacting})
	assert.True(t, f.session.Compacting)

	f.ctrl.HandleSessionStatus(loom.SessionStatus{Status: ""})
	assert.False(t, f.session.Compacting)
}

func TestController_SessionStatusAdoptsPermissionMode(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleSessionStatus(loom.SessionStatus{Meta: loom.Meta{PermissionMode: "acceptEdits"}})
	assert.Equal(t, loom.PermissionAcceptEdits, f.session.PermissionMode)

	// An unrecognized mode leaves the current one alone.
	f.ctrl.HandleSessionStatus(loom.SessionStatus{Meta: loom.Meta{PermissionMode: "yolo"}})
	assert.Equal(t, loom.PermissionAcceptEdits, f.session.PermissionMode)
}

func TestController_SnapshotHandlers(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	cmds := []loom.CommandInfo{{Name: "compact"}}
	opts := []loom.ConfigOption{{Name: "verbose", Value: "true"}}
	f.ctrl.HandleAvailableCommands(loom.AvailableCommandsChanged{Commands: cmds})
	f.ctrl.HandleConfigOptions(loom.ConfigOptionsChanged{Options: opts})
	f.ctrl.HandleSessionMode(loom.SessionModeChanged{Mode: "plan"})

	assert.Equal(t, cmds, f.session.Commands)
	assert.Equal(t, opts, f.session.Options)
	assert.Equal(t, loom.SessionMode("plan"), f.session.Mode)
}

func TestController_CompactionCleared(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)
	f.session.ContextTokens = 120000
	f.session.TurnOutputTokens = 900
	f.session.AwaitingSummary = true

	f.ctrl.HandleContextCompaction(loom.ContextCompaction{Trigger: loom.TriggerCleared})

	assert.Zero(t, f.session.ContextTokens)
	assert.Zero(t, f.session.TurnOutputTokens)
	assert.False(t, f.session.AwaitingSummary)

	entries := f.log.Entries(f.conv)
	require.Len(t, entries, 1)
	ne := entries[0].(*loom.NoticeEntry)
	assert.Equal(t, loom.NoticeContextCleared, ne.Kind)
}

func TestController_CompactionWithInlineSummary(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleContextCompaction(loom.ContextCompaction{
		Trigger:   loom.TriggerManual,
		PreTokens: 155000,
		Summary:   "We refactored the parser.",
	})

	entries := f.log.Entries(f.conv)
	require.Len(t, entries, 2)
	marker := entries[0].(*loom.NoticeEntry)
	assert.Equal(t, loom.NoticeCompaction, marker.Kind)
	assert.True(t, marker.UserInitiated)
	assert.Equal(t, "was 155K tokens", marker.Text)

	summary := entries[1].(*loom.NoticeEntry)
	assert.Equal(t, loom.NoticeSummary, summary.Kind)
	assert.Equal(t, "We refactored the parser.", summary.Text)
	assert.False(t, f.session.AwaitingSummary)
}

func TestController_CompactionTokenDetail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		preTokens int
		want      string
	}{
		{0, ""},
		{900, "was 900 tokens"},
		{1000, "was 1000 tokens"},
		{1001, "was 1K tokens"},
		{155000, "was 155K tokens"},
	}
	for _, tt := range tests {
		f := newCtrlFixture(t, loom.BackendClaude, nil, nil)
		f.ctrl.HandleContextCompaction(loom.ContextCompaction{
			Trigger:   loom.TriggerAuto,
			PreTokens: tt.preTokens,
		})
		marker := f.log.Entries(f.conv)[0].(*loom.NoticeEntry)
		assert.Equal(t, tt.want, marker.Text, "pre tokens %d", tt.preTokens)
	}
}

func TestController_CompactionDeferredSummary(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleContextCompaction(loom.ContextCompaction{Trigger: loom.TriggerAuto})
	require.True(t, f.session.AwaitingSummary)

	f.ctrl.HandleSessionText(loom.SessionText{Text: "Summary of the session."})
	assert.False(t, f.session.AwaitingSummary)

	entries := f.log.Entries(f.conv)
	require.Len(t, entries, 2)
	summary := entries[1].(*loom.NoticeEntry)
	assert.Equal(t, loom.NoticeSummary, summary.Kind)
	assert.Equal(t, "Summary of the session.", summary.Text)

	// Further session text is not a summary anymore.
	f.ctrl.HandleSessionText(loom.SessionText{Text: "chatter"})
	assert.Len(t, f.log.Entries(f.conv), 2)
}

func TestController_SessionTextDroppedWhenNotAwaiting(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleSessionText(loom.SessionText{Text: "hello"})

	assert.Empty(t, f.log.Entries(f.conv))
}

func TestController_TurnCompleteAccumulatesUsage(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)
	f.ctrl.BeginTurn()

	f.ctrl.HandleTurnComplete(loom.TurnComplete{
		Usage: &loom.Usage{InputTokens: 100, OutputTokens: 40, CostUSD: 0.01},
		ModelUsage: []loom.ModelUsage{
			{Model: "claude-sonnet-4-5", Usage: loom.Usage{InputTokens: 100, OutputTokens: 40}, ContextWindow: 200000},
		},
	})
	f.ctrl.BeginTurn()
	f.ctrl.HandleTurnComplete(loom.TurnComplete{
		Usage: &loom.Usage{InputTokens: 50, OutputTokens: 10, CostUSD: 0.002},
	})

	assert.Equal(t, 150, f.session.Usage.InputTokens)
	assert.Equal(t, 50, f.session.Usage.OutputTokens)
	assert.InDelta(t, 0.012, f.session.Usage.CostUSD, 1e-9)
	assert.Equal(t, 200000, f.session.ContextWindow)
	assert.False(t, f.session.Working)

	mu, ok := f.session.ModelUsage["claude-sonnet-4-5"]
	require.True(t, ok)
	assert.Equal(t, 100, mu.Usage.InputTokens)
}

func TestController_TurnCompleteDerivesCost(t *testing.T) {
	t.Parallel()
	pricing := fixedPricing{"gemini-2.5-pro": 0.002, "gemini-2.5-flash": 0.003}
	f := newCtrlFixture(t, loom.BackendGemini, pricing, nil)

	f.ctrl.HandleTurnComplete(loom.TurnComplete{
		Usage: &loom.Usage{InputTokens: 1000, OutputTokens: 200},
		ModelUsage: []loom.ModelUsage{
			{Model: "gemini-2.5-pro", Usage: loom.Usage{InputTokens: 800, OutputTokens: 150}},
			{Model: "gemini-2.5-flash", Usage: loom.Usage{InputTokens: 200, OutputTokens: 50}},
		},
	})

	assert.InDelta(t, 0.005, f.session.Usage.CostUSD, 1e-9)
}

func TestController_TurnCompleteKeepsReportedCost(t *testing.T) {
	t.Parallel()
	pricing := fixedPricing{"claude-sonnet-4-5": 99.0}
	f := newCtrlFixture(t, loom.BackendClaude, pricing, nil)

	f.ctrl.HandleTurnComplete(loom.TurnComplete{
		Usage: &loom.Usage{InputTokens: 100, CostUSD: 0.01},
		ModelUsage: []loom.ModelUsage{
			{Model: "claude-sonnet-4-5", Usage: loom.Usage{InputTokens: 100}},
		},
	})

	assert.InDelta(t, 0.01, f.session.Usage.CostUSD, 1e-9, "self-reporting backend is never re-priced")
}

func TestController_TurnCompleteDefaultsContextWindow(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleTurnComplete(loom.TurnComplete{
		ModelUsage: []loom.ModelUsage{{Model: "claude-sonnet-4-5"}},
	})

	assert.Equal(t, loom.DefaultContextWindow, f.session.ContextWindow)
}

func TestController_TurnCompleteFeedsContextFromLastStep(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleTurnComplete(loom.TurnComplete{
		Meta: loom.Meta{LastStepUsage: &loom.Usage{
			InputTokens:      1000,
			OutputTokens:     200,
			CacheReadTokens:  30000,
			CacheWriteTokens: 500,
		}},
	})

	assert.Equal(t, 31700, f.session.ContextTokens)
}

func TestController_TurnCompleteResultOnlyNotice(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.BeginTurn()
	f.ctrl.HandleTurnComplete(loom.TurnComplete{Result: "Done: nothing to do."})

	entries := f.log.Entries(f.conv)
	require.Len(t, entries, 1)
	ne := entries[0].(*loom.NoticeEntry)
	assert.Equal(t, loom.NoticeSystem, ne.Kind)
	assert.Equal(t, "Done: nothing to do.", ne.Text)
}

func TestController_TurnCompleteNoNoticeWhenOutputSeen(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.BeginTurn()
	f.ctrl.NoteOutput()
	f.ctrl.HandleTurnComplete(loom.TurnComplete{Result: "Done."})

	assert.Empty(t, f.log.Entries(f.conv))
}

func TestController_TurnCompleteForwardsToBridge(t *testing.T) {
	t.Parallel()
	bridge := &mock.Bridge{}
	f := newCtrlFixture(t, loom.BackendClaude, nil, bridge)

	ev := loom.TurnComplete{Subtype: "success", Result: "ok"}
	f.ctrl.NoteOutput()
	f.ctrl.HandleTurnComplete(ev)

	require.Len(t, bridge.Calls, 1)
	assert.Equal(t, ev, bridge.Calls[0])
}

func TestController_BridgePanicIsIsolated(t *testing.T) {
	t.Parallel()
	bridge := &mock.Bridge{Panic: true}
	f := newCtrlFixture(t, loom.BackendClaude, nil, bridge)
	f.ctrl.BeginTurn()

	assert.NotPanics(t, func() {
		f.ctrl.HandleTurnComplete(loom.TurnComplete{
			Usage: &loom.Usage{InputTokens: 10, CostUSD: 0.001},
		})
	})
	assert.False(t, f.session.Working, "bookkeeping completes despite the bridge failure")
	assert.Equal(t, 10, f.session.Usage.InputTokens)
}

func TestController_SubAgentCompletionStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		subtype string
		want    loom.TaskStatus
	}{
		{"success", loom.TaskCompleted},
		{"error_max_turns", loom.TaskError},
		{"error_tool", loom.TaskError},
		{"error_api", loom.TaskError},
		{"error_budget", loom.TaskError},
		{"bogus_unknown", loom.TaskCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.subtype, func(t *testing.T) {
			t.Parallel()
			f := newCtrlFixture(t, loom.BackendClaude, nil, nil)
			entry := &loom.ToolUseEntry{ToolUseID: "t1", Status: loom.TaskRunning}
			f.index.Register("t1", entry)

			f.ctrl.HandleTurnComplete(loom.TurnComplete{ParentCallID: "t1", Subtype: tt.subtype})

			assert.Equal(t, tt.want, entry.Status)
		})
	}
}

func TestController_SubAgentCompletionUnknownCallID(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	assert.NotPanics(t, func() {
		f.ctrl.HandleTurnComplete(loom.TurnComplete{ParentCallID: "ghost", Subtype: "success"})
	})
	assert.Zero(t, f.session.Usage, "sub-agent completions never touch session usage")
}

func TestController_UsageUpdate(t *testing.T) {
	t.Parallel()
	f := newCtrlFixture(t, loom.BackendClaude, nil, nil)

	f.ctrl.HandleUsageUpdate(loom.UsageUpdate{
		Usage: loom.Usage{InputTokens: 500, OutputTokens: 120, CacheReadTokens: 20000},
	})
	assert.Equal(t, 120, f.session.TurnOutputTokens)
	assert.Equal(t, 20620, f.session.ContextTokens)

	// A sub-agent's step usage counts toward output but not the main
	// context gauge.
	f.ctrl.HandleUsageUpdate(loom.UsageUpdate{
		ParentCallID: "t1",
		Usage:        loom.Usage{OutputTokens: 80, InputTokens: 9999},
	})
	assert.Equal(t, 200, f.session.TurnOutputTokens)
	assert.Equal(t, 20620, f.session.ContextTokens)
}
