package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/loomcode/loom"
	"github.com/loomcode/loom/engine"
	"github.com/loomcode/loom/memlog"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the loom TUI. It renders one
// conversation from the log and re-renders on flush signals, so display
// updates arrive at the throttler's bounded rate rather than per delta.
//
// Backend events enter through eventMsg and are dispatched here in
// Update: entry mutation, session mutation, and rendering all happen on
// the program goroutine, never concurrently.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	run    TurnFunc
	eng    *engine.Engine
	log    *memlog.Log
	conv   loom.ConversationID
	theme  loom.Theme
	styles Styles

	running bool
	cancel  context.CancelFunc
	src     loom.EventSource
	err     error
	ready   bool
}

// New creates a TUI model over the main conversation conv.
func New(run TurnFunc, eng *engine.Engine, log *memlog.Log, conv loom.ConversationID, theme loom.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:  ti,
		run:    run,
		eng:    eng,
		log:    log,
		conv:   conv,
		theme:  theme,
		styles: NewStyles(theme),
	}
}

// Running returns whether a turn is currently in progress.
func (m Model) Running() bool { return m.running }

// Err returns the last turn error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnStartedMsg:
		m.src = msg.src
		return m, listenEvent(m.src)

	case eventMsg:
		if m.src == nil {
			return m, nil
		}
		m.eng.Dispatch(msg.ev)
		return m, listenEvent(m.src)

	case FlushMsg:
		if msg.Conversation == m.conv {
			m = m.refresh()
		}
		return m, nil

	case TurnDoneMsg:
		if m.src != nil {
			_ = m.src.Close()
			m.src = nil
		}
		m.running = false
		m.cancel = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		m = m.refresh()
		return m, m.Input.Focus()
	}

	// Pass remaining messages to sub-components. The viewport always
	// receives messages for scrolling.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	const chrome = 3 // status line, input line, separator
	vpHeight := msg.Height - chrome
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			// Interrupt: close out any half-streamed entries now rather
			// than waiting for the backend to wind down.
			m.eng.ClearStreamingState()
			return m.refresh(), nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)
	}

	if !m.running {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil

	m.log.Append(m.conv, &loom.PromptEntry{Text: text})
	m.eng.BeginTurn()
	m = m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.Input.Blur()

	return m, startTurn(ctx, m.run, text)
}

// startTurn spins the backend up off the program goroutine; the returned
// source is then consumed through listenEvent, one event per message.
func startTurn(ctx context.Context, run TurnFunc, prompt string) tea.Cmd {
	return func() tea.Msg {
		src, err := run(ctx, prompt)
		if err != nil {
			return TurnDoneMsg{Err: err}
		}
		return turnStartedMsg{src: src}
	}
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	content := renderEntries(m.log.Entries(m.conv), m.Viewport.Width, m.theme, m.styles)
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
	return m
}

func (m Model) statusLine() string {
	s := m.eng.Session()
	parts := []string{}
	if s.Model.Label != "" {
		parts = append(parts, s.Model.Label)
	}
	if s.PermissionMode != "" {
		parts = append(parts, string(s.PermissionMode))
	}
	if s.ContextWindow > 0 && s.ContextTokens > 0 {
		pct := s.ContextTokens * 100 / s.ContextWindow
		parts = append(parts, fmt.Sprintf("ctx %d%%", pct))
	}
	if s.Usage.CostUSD > 0 {
		parts = append(parts, fmt.Sprintf("$%.4f", s.Usage.CostUSD))
	}
	switch {
	case s.Compacting:
		parts = append(parts, "compacting…")
	case m.running:
		parts = append(parts, "working…")
	}
	if m.err != nil {
		parts = append(parts, m.styles.Error.Render(m.err.Error()))
	}
	return m.styles.Muted.Render(strings.Join(parts, " · "))
}
