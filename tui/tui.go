// Package tui provides the Bubble Tea conversation view over the engine's
// conversation log.
package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/loomcode/loom"
)

// TurnFunc starts one agent turn for the submitted prompt and returns the
// event source for it. The model pulls events from the source and
// dispatches them inside Update, so all engine and session mutation stays
// on the program goroutine; the returned source's Next only reads from
// the backend transport. Cancelling ctx aborts the turn.
type TurnFunc func(ctx context.Context, prompt string) (loom.EventSource, error)

// Run creates and runs the Bubble Tea program. It blocks until the
// program exits. The returned program pointer is handed to wire so the
// host can forward log notifications into it before the loop starts.
func Run(ctx context.Context, m Model, wire func(*tea.Program)) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	if wire != nil {
		wire(p)
	}
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// FlushMsg reports that a conversation's entries mutated. Sent by the
// host's log observer, at most once per throttle interval while deltas
// stream.
type FlushMsg struct {
	Conversation loom.ConversationID
}

// TurnDoneMsg signals that the running turn finished.
type TurnDoneMsg struct {
	Err error
}

// turnStartedMsg delivers the turn's event source once the backend is up.
type turnStartedMsg struct {
	src loom.EventSource
}

// eventMsg carries one backend event into Update for dispatch.
type eventMsg struct {
	ev loom.Event
}

// listenEvent pulls the next backend event. Next blocks on a command
// goroutine; the event itself is handled in Update.
func listenEvent(src loom.EventSource) tea.Cmd {
	return func() tea.Msg {
		ev, err := src.Next()
		switch {
		case err == nil:
			return eventMsg{ev: ev}
		case errors.Is(err, io.EOF):
			return TurnDoneMsg{}
		default:
			return TurnDoneMsg{Err: err}
		}
	}
}
