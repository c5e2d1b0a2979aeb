package tui_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcode/loom"
	"github.com/loomcode/loom/engine"
	"github.com/loomcode/loom/memlog"
	"github.com/loomcode/loom/mock"
	"github.com/loomcode/loom/tui"
)

func newTestModel(t *testing.T, run tui.TurnFunc) (tui.Model, *memlog.Log, loom.ConversationID) {
	t.Helper()
	session := &loom.Session{
		ID:    "s1",
		Model: loom.ModelInfo{ID: "claude-sonnet-4-5", Label: "Sonnet 4.5", Backend: loom.BackendClaude},
	}
	log := memlog.New()
	eng := engine.New(session, log, loom.DefaultResolver{}, engine.WithClock(mock.NewClock()))
	conv := loom.DefaultResolver{}.Resolve(session, "")
	return tui.New(run, eng, log, conv, loom.DefaultTheme()), log, conv
}

// scriptedTurn returns a TurnFunc that records the prompt and replays the
// given events.
func scriptedTurn(prompts chan<- string, events ...loom.Event) tui.TurnFunc {
	return func(ctx context.Context, prompt string) (loom.EventSource, error) {
		if prompts != nil {
			prompts <- prompt
		}
		return mock.NewSource(events...), nil
	}
}

func TestModel_InitialView(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestModel(t, nil)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Type a message"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}

func TestModel_SubmitStreamsTurn(t *testing.T) {
	t.Parallel()
	prompts := make(chan string, 1)
	m, log, conv := newTestModel(t, scriptedTurn(prompts,
		loom.MessageStart{},
		loom.BlockStart{Index: 0},
		loom.TextDelta{Index: 0, Text: "Streamed"},
		loom.TextDelta{Index: 0, Text: " reply"},
		loom.BlockStop{Index: 0},
		loom.MessageStop{},
	))

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
	tm.Type("hello agent")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	select {
	case prompt := <-prompts:
		assert.Equal(t, "hello agent", prompt)
	case <-time.After(3 * time.Second):
		t.Fatal("turn never started")
	}

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("hello agent")) &&
			bytes.Contains(bts, []byte("Streamed reply"))
	}, teatest.WithDuration(3*time.Second))

	entries := log.Entries(conv)
	require.Len(t, entries, 2)
	pe, ok := entries[0].(*loom.PromptEntry)
	require.True(t, ok)
	assert.Equal(t, "hello agent", pe.Text)
	te, ok := entries[1].(*loom.TextEntry)
	require.True(t, ok)
	assert.Equal(t, "Streamed reply", te.Text)
	assert.False(t, te.Streaming)

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}

// High-frequency deltas while teatest's reader drains output on its own
// goroutine: with dispatch routed through Update, the race detector stays
// quiet here.
func TestModel_HighFrequencyDeltas(t *testing.T) {
	t.Parallel()
	events := []loom.Event{
		loom.MessageStart{},
		loom.BlockStart{Index: 0},
	}
	var want bytes.Buffer
	for i := 0; i < 200; i++ {
		frag := fmt.Sprintf("w%d ", i)
		want.WriteString(frag)
		events = append(events, loom.TextDelta{Index: 0, Text: frag})
	}
	events = append(events, loom.BlockStop{Index: 0}, loom.MessageStop{})

	m, log, conv := newTestModel(t, scriptedTurn(nil, events...))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 40))
	tm.Type("go")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("w199"))
	}, teatest.WithDuration(5*time.Second))

	entries := log.Entries(conv)
	require.Len(t, entries, 2)
	te := entries[1].(*loom.TextEntry)
	assert.Equal(t, want.String(), te.Text)

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}

func TestModel_TurnStartFailureSurfaces(t *testing.T) {
	t.Parallel()
	boom := errors.New("backend unavailable")
	m, _, _ := newTestModel(t, func(ctx context.Context, prompt string) (loom.EventSource, error) {
		return nil, boom
	})

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
	tm.Type("hi")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("backend unavailable"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}

func TestModel_EmptySubmitIsIgnored(t *testing.T) {
	t.Parallel()
	started := make(chan string, 1)
	m, log, conv := newTestModel(t, scriptedTurn(started))

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	select {
	case <-started:
		t.Fatal("empty prompt must not start a turn")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Empty(t, log.Entries(conv))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}
