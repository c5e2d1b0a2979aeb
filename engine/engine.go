package engine

import (
	"time"

	"github.com/loomcode/loom"
)

// Engine wires the interpreter, throttler, and lifecycle controller
// around one session and dispatches protocol events to them. Each shared
// structure (tool-call index, conversation log, session) is injected once
// here and handed to the components that need it.
type Engine struct {
	session  *loom.Session
	log      loom.ConversationLog
	index    *ToolCallIndex
	throttle *Throttler
	interp   *Interpreter
	ctrl     *Controller
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	clock    Clock
	interval time.Duration
	catalog  loom.ModelCatalog
	pricing  loom.Pricing
	bridge   loom.TaskBridge
}

// WithClock substitutes the throttler's clock, letting tests drive ticks
// with virtual time.
func WithClock(c Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithFlushInterval overrides the throttle interval.
func WithFlushInterval(d time.Duration) Option {
	return func(cfg *config) { cfg.interval = d }
}

// WithCatalog sets the model catalog used for session-init resolution.
func WithCatalog(c loom.ModelCatalog) Option {
	return func(cfg *config) { cfg.catalog = c }
}

// WithPricing sets the pricing table used to derive cost for backends
// that don't self-report it.
func WithPricing(p loom.Pricing) Option {
	return func(cfg *config) { cfg.pricing = p }
}

// WithTaskBridge sets the bridge that receives completed main turns.
func WithTaskBridge(b loom.TaskBridge) Option {
	return func(cfg *config) { cfg.bridge = b }
}

// New creates an engine for session, writing entries into log and
// resolving conversations through resolver.
func New(session *loom.Session, log loom.ConversationLog, resolver loom.ConversationResolver, opts ...Option) *Engine {
	cfg := config{clock: RealClock{}, interval: DefaultFlushInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	index := NewToolCallIndex()
	throttle := NewThrottler(cfg.clock, cfg.interval, func(id loom.ConversationID) {
		log.NotifyMutation(id)
	})
	ctrl := NewController(session, log, resolver, index, cfg.catalog, cfg.pricing, cfg.bridge)
	interp := NewInterpreter(session, log, resolver, index, throttle, ctrl.NoteOutput)

	return &Engine{
		session:  session,
		log:      log,
		index:    index,
		throttle: throttle,
		interp:   interp,
		ctrl:     ctrl,
	}
}

// Dispatch routes one protocol event to the interpreter or the lifecycle
// controller. Events arrive in order and are handled one at a time;
// unrecognized events are dropped.
func (e *Engine) Dispatch(ev loom.Event) {
	switch ev := ev.(type) {
	case loom.MessageStart:
		e.interp.HandleMessageStart(ev)
	case loom.BlockStart:
		e.interp.HandleBlockStart(ev)
	case loom.TextDelta:
		e.interp.HandleTextDelta(ev)
	case loom.ThinkingDelta:
		e.interp.HandleThinkingDelta(ev)
	case loom.ToolInputDelta:
		e.interp.HandleToolInputDelta(ev)
	case loom.BlockStop:
		e.interp.HandleBlockStop(ev)
	case loom.MessageStop:
		e.interp.HandleMessageStop(ev)
	case loom.SessionInit:
		e.ctrl.HandleSessionInit(ev)
	case loom.ConfigOptionsChanged:
		e.ctrl.HandleConfigOptions(ev)
	case loom.AvailableCommandsChanged:
		e.ctrl.HandleAvailableCommands(ev)
	case loom.SessionModeChanged:
		e.ctrl.HandleSessionMode(ev)
	case loom.SessionStatus:
		e.ctrl.HandleSessionStatus(ev)
	case loom.ContextCompaction:
		e.ctrl.HandleContextCompaction(ev)
	case loom.SessionText:
		e.ctrl.HandleSessionText(ev)
	case loom.TurnComplete:
		e.ctrl.HandleTurnComplete(ev)
	case loom.UsageUpdate:
		e.ctrl.HandleUsageUpdate(ev)
	}
}

// BeginTurn marks a turn in progress. Called when a prompt is submitted.
func (e *Engine) BeginTurn() {
	e.ctrl.BeginTurn()
}

// ClearStreamingState hard-resets the interpreter; see
// Interpreter.ClearStreamingState.
func (e *Engine) ClearStreamingState() {
	e.interp.ClearStreamingState()
}

// ClearConversations discards streaming state for torn-down
// conversations; see Interpreter.ClearConversations.
func (e *Engine) ClearConversations(ids ...loom.ConversationID) {
	e.interp.ClearConversations(ids...)
}

// Session returns the session this engine mutates.
func (e *Engine) Session() *loom.Session {
	return e.session
}

// ToolCalls returns the tool-call index shared with result pairing.
func (e *Engine) ToolCalls() *ToolCallIndex {
	return e.index
}
