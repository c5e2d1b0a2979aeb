package engine

import (
	"strconv"

	"github.com/loomcode/loom"
)

// Controller reconciles turn and session lifecycle events into session
// state: model/effort sync, compaction markers, cumulative usage and
// derived cost, context accounting, and sub-agent status transitions. It
// is the only mutator of the Session.
type Controller struct {
	session  *loom.Session
	log      loom.ConversationLog
	resolver loom.ConversationResolver
	index    *ToolCallIndex
	catalog  loom.ModelCatalog
	pricing  loom.Pricing
	bridge   loom.TaskBridge
}

// NewController creates a controller. catalog, pricing, and bridge may be
// nil, disabling model resolution, cost derivation, and turn forwarding
// respectively.
func NewController(session *loom.Session, log loom.ConversationLog, resolver loom.ConversationResolver, index *ToolCallIndex, catalog loom.ModelCatalog, pricing loom.Pricing, bridge loom.TaskBridge) *Controller {
	return &Controller{
		session:  session,
		log:      log,
		resolver: resolver,
		index:    index,
		catalog:  catalog,
		pricing:  pricing,
		bridge:   bridge,
	}
}

// BeginTurn marks a turn in progress and resets per-turn counters. Called
// by the host when a prompt is submitted.
func (c *Controller) BeginTurn() {
	c.session.Working = true
	c.session.HasOutput = false
	c.session.TurnOutputTokens = 0
}

// NoteOutput records that an assistant output entry was produced this
// turn. Wired as the interpreter's output callback.
func (c *Controller) NoteOutput() {
	c.session.HasOutput = true
}

// HandleSessionInit adopts backend-reported model and reasoning effort.
// The server is authoritative: a differing model id is resolved against
// the catalog, or a minimal descriptor is synthesized so the selection UI
// can still display it.
func (c *Controller) HandleSessionInit(ev loom.SessionInit) {
	s := c.session
	if ev.ModelID != "" && ev.ModelID != s.Model.ID {
		if mi, ok := c.lookupModel(s.Model.Backend, ev.ModelID); ok {
			s.Model = mi
		} else {
			s.Model = loom.ModelInfo{ID: ev.ModelID, Label: ev.ModelID, Backend: s.Model.Backend}
		}
	}
	if effort, ok := loom.ParseReasoningEffort(ev.ReasoningEffort); ok && effort != s.Effort {
		s.Effort = effort
	}
}

func (c *Controller) lookupModel(b loom.Backend, id string) (loom.ModelInfo, bool) {
	if c.catalog == nil {
		return loom.ModelInfo{}, false
	}
	return c.catalog.Lookup(b, id)
}

// HandleConfigOptions replaces the session's config-option snapshot.
func (c *Controller) HandleConfigOptions(ev loom.ConfigOptionsChanged) {
	c.session.Options = ev.Options
}

// HandleAvailableCommands replaces the session's command snapshot.
func (c *Controller) HandleAvailableCommands(ev loom.AvailableCommandsChanged) {
	c.session.Commands = ev.Commands
}

// HandleSessionMode replaces the session mode.
func (c *Controller) HandleSessionMode(ev loom.SessionModeChanged) {
	c.session.Mode = ev.Mode
}

// HandleSessionStatus tracks the compacting flag and adopts a
// piggybacked permission-mode change.
func (c *Controller) HandleSessionStatus(ev loom.SessionStatus) {
	c.session.Compacting = ev.Status == loom.StatusCompacting
	if ev.Meta.PermissionMode != "" {
		if mode, ok := loom.ParsePermissionMode(ev.Meta.PermissionMode); ok {
			c.session.PermissionMode = mode
		}
	}
}

// HandleContextCompaction appends the appropriate marker entry. A full
// clear resets context accounting and produces no compaction marker. A
// compaction without an inline summary defers it: the next session-level
// text is captured as the summary.
func (c *Controller) HandleContextCompaction(ev loom.ContextCompaction) {
	conv := c.resolver.Resolve(c.session, "")

	if ev.Trigger == loom.TriggerCleared {
		c.append(conv, &loom.NoticeEntry{Kind: loom.NoticeContextCleared})
		c.session.ContextTokens = 0
		c.session.TurnOutputTokens = 0
		c.session.AwaitingSummary = false
		return
	}

	var detail string
	if ev.PreTokens > 0 {
		detail = "was " + formatTokens(ev.PreTokens) + " tokens"
	}
	c.append(conv, &loom.NoticeEntry{
		Kind:          loom.NoticeCompaction,
		Text:          detail,
		UserInitiated: ev.Trigger == loom.TriggerManual,
	})

	if ev.Summary != "" {
		c.append(conv, &loom.NoticeEntry{Kind: loom.NoticeSummary, Text: ev.Summary})
	} else {
		c.session.AwaitingSummary = true
	}
}

// HandleSessionText captures a deferred compaction summary; any other
// session-level text is dropped.
func (c *Controller) HandleSessionText(ev loom.SessionText) {
	if !c.session.AwaitingSummary || ev.Text == "" {
		return
	}
	c.session.AwaitingSummary = false
	conv := c.resolver.Resolve(c.session, "")
	c.append(conv, &loom.NoticeEntry{Kind: loom.NoticeSummary, Text: ev.Text})
}

// HandleTurnComplete closes a turn. Main turns update cumulative usage,
// derive cost when the backend doesn't self-report it, feed context
// accounting, and forward to the task bridge. Sub-agent turns map the
// completion subtype to a status on the spawning tool call.
func (c *Controller) HandleTurnComplete(ev loom.TurnComplete) {
	if ev.ParentCallID != "" {
		c.completeSubAgent(ev)
		return
	}

	s := c.session

	var usage loom.Usage
	if ev.Usage != nil {
		usage = *ev.Usage
	}

	mu := ev.ModelUsage
	if len(mu) > 0 {
		if w := mu[0].ContextWindow; w > 0 {
			s.ContextWindow = w
		} else {
			s.ContextWindow = loom.DefaultContextWindow
		}
	}

	if usage.CostUSD == 0 && !s.Model.Backend.ReportsCost() && len(mu) > 0 && c.pricing != nil {
		if derived := c.deriveCost(mu); derived > 0 {
			usage.CostUSD = derived
		}
	}

	s.Usage.Add(usage)
	c.mergeModelUsage(mu)

	if ev.Meta.LastStepUsage != nil {
		s.ContextTokens = ev.Meta.LastStepUsage.ContextTokens()
	}

	s.Working = false

	if !s.HasOutput && ev.Result != "" {
		conv := c.resolver.Resolve(s, "")
		c.append(conv, &loom.NoticeEntry{Kind: loom.NoticeSystem, Text: ev.Result})
	}
	s.HasOutput = false

	c.forwardTurn(ev)
}

// deriveCost recomputes per-model cost via the pricing table. Entries
// with no pricing match keep their reported (possibly zero) cost.
func (c *Controller) deriveCost(mu []loom.ModelUsage) float64 {
	var total float64
	for i := range mu {
		u := mu[i].Usage
		if p, ok := c.pricing.Lookup(mu[i].Model); ok {
			cached := u.CacheReadTokens + u.CacheWriteTokens
			mu[i].Usage.CostUSD = p.Cost(u.InputTokens, cached, u.OutputTokens)
		}
		total += mu[i].Usage.CostUSD
	}
	return total
}

func (c *Controller) mergeModelUsage(mu []loom.ModelUsage) {
	if len(mu) == 0 {
		return
	}
	s := c.session
	if s.ModelUsage == nil {
		s.ModelUsage = make(map[string]loom.ModelUsage)
	}
	for _, m := range mu {
		prev := s.ModelUsage[m.Model]
		prev.Model = m.Model
		prev.Usage.Add(m.Usage)
		if m.ContextWindow > 0 {
			prev.ContextWindow = m.ContextWindow
		} else if prev.ContextWindow == 0 {
			prev.ContextWindow = loom.DefaultContextWindow
		}
		s.ModelUsage[m.Model] = prev
	}
}

// forwardTurn hands the completed turn to the task bridge. Bridge
// failures are swallowed at the boundary so turn bookkeeping, which has
// already completed, is never disturbed.
func (c *Controller) forwardTurn(ev loom.TurnComplete) {
	if c.bridge == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	c.bridge.OnTurnComplete(c.session, ev)
}

func (c *Controller) completeSubAgent(ev loom.TurnComplete) {
	if e, ok := c.index.Get(ev.ParentCallID); ok {
		e.Status = statusForSubtype(ev.Subtype)
	}
}

// statusForSubtype maps a sub-agent completion subtype to a status.
// Unknown subtypes map to completed, matching current backend behavior;
// see DESIGN.md for the tradeoff.
func statusForSubtype(subtype string) loom.TaskStatus {
	switch subtype {
	case "error_max_turns", "error_tool", "error_api", "error_budget":
		return loom.TaskError
	default:
		return loom.TaskCompleted
	}
}

// HandleUsageUpdate accumulates mid-turn output tokens and, for the main
// turn only, feeds step usage into context accounting.
func (c *Controller) HandleUsageUpdate(ev loom.UsageUpdate) {
	c.session.TurnOutputTokens += ev.Usage.OutputTokens
	if ev.ParentCallID != "" {
		return
	}
	c.session.ContextTokens = ev.Usage.ContextTokens()
}

func (c *Controller) append(conv loom.ConversationID, e loom.Entry) {
	c.log.Append(conv, e)
	c.log.NotifyMutation(conv)
}

// formatTokens renders a token count compactly, with a K suffix above a
// thousand.
func formatTokens(n int) string {
	if n > 1000 {
		return strconv.Itoa(n/1000) + "K"
	}
	return strconv.Itoa(n)
}
