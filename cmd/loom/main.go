// Command loom is a terminal client for AI coding-agent backends.
//
// Usage:
//
//	loom [flags]
//
// Flags:
//
//	-backend string   Backend: claude, gemini (default claude)
//	-model string     Model ID (default: backend default)
//	-bin string       Path to the claude CLI binary (default "claude")
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"google.golang.org/genai"

	"github.com/loomcode/loom"
	"github.com/loomcode/loom/catalog"
	"github.com/loomcode/loom/claudecode"
	"github.com/loomcode/loom/engine"
	"github.com/loomcode/loom/gemini"
	"github.com/loomcode/loom/memlog"
	"github.com/loomcode/loom/pricing"
	"github.com/loomcode/loom/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "loom: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		backendFlag = flag.String("backend", "claude", "Backend: claude, gemini")
		modelFlag   = flag.String("model", "", "Model ID (backend-specific)")
		binFlag     = flag.String("bin", "claude", "Path to the claude CLI binary")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backend, err := parseBackend(*backendFlag)
	if err != nil {
		return err
	}

	session := &loom.Session{
		ID:    fmt.Sprintf("%d", time.Now().UnixNano()),
		Model: defaultModel(backend, *modelFlag),
	}

	log := memlog.New()
	resolver := loom.DefaultResolver{}
	eng := engine.New(session, log, resolver,
		engine.WithCatalog(catalog.Default()),
		engine.WithPricing(pricing.Default()),
	)
	conv := resolver.Resolve(session, "")

	turn, err := turnFunc(backend, *binFlag, session)
	if err != nil {
		return err
	}

	model := tui.New(turn, eng, log, conv, loom.DefaultTheme())
	// The observer runs on the throttler's clock goroutine; it only posts
	// a message, the render itself happens inside the program loop.
	wire := func(p *tea.Program) {
		log.Observe(func(id loom.ConversationID) {
			p.Send(tui.FlushMsg{Conversation: id})
		})
	}
	if err := tui.Run(ctx, model, wire); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

func parseBackend(s string) (loom.Backend, error) {
	switch s {
	case "claude":
		return loom.BackendClaude, nil
	case "gemini":
		return loom.BackendGemini, nil
	default:
		return loom.BackendUnknown, fmt.Errorf("unknown backend %q", s)
	}
}

func defaultModel(b loom.Backend, id string) loom.ModelInfo {
	if id != "" {
		if mi, ok := catalog.Default().Lookup(b, id); ok {
			return mi
		}
		return loom.ModelInfo{ID: id, Label: id, Backend: b}
	}
	switch b {
	case loom.BackendGemini:
		return loom.ModelInfo{ID: "gemini-2.5-pro", Label: "Gemini 2.5 Pro", Backend: b}
	default:
		return loom.ModelInfo{ID: "claude-sonnet-4-5", Label: "Sonnet 4.5", Backend: b}
	}
}

// turnFunc builds the per-backend turn starter. It returns the turn's
// event source; the TUI pulls from it and dispatches inside its own loop,
// so no goroutine here ever touches the engine.
func turnFunc(b loom.Backend, bin string, session *loom.Session) (tui.TurnFunc, error) {
	switch b {
	case loom.BackendGemini:
		client, err := genai.NewClient(context.Background(), nil)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return func(ctx context.Context, prompt string) (loom.EventSource, error) {
			it := client.Models.GenerateContentStream(ctx, session.Model.ID, genai.Text(prompt), nil)
			return gemini.NewStream(session.Model.ID, it), nil
		}, nil

	default:
		return func(ctx context.Context, prompt string) (loom.EventSource, error) {
			cmd := exec.CommandContext(ctx, bin,
				"--print",
				"--verbose",
				"--output-format", "stream-json",
				"--include-partial-messages",
				"--model", session.Model.ID,
				prompt,
			)
			stdout, err := cmd.StdoutPipe()
			if err != nil {
				return nil, fmt.Errorf("stdout pipe: %w", err)
			}
			if err := cmd.Start(); err != nil {
				return nil, fmt.Errorf("start %s: %w", bin, err)
			}
			return &processSource{
				ctx: ctx,
				src: claudecode.NewDecoder(stdout),
				cmd: cmd,
			}, nil
		}, nil
	}
}

// processSource couples a decoder to the CLI process behind it: end of
// stream reaps the process, and a process failure surfaces as the
// source's error.
type processSource struct {
	ctx    context.Context
	src    loom.EventSource
	cmd    *exec.Cmd
	waited bool
}

func (p *processSource) Next() (loom.Event, error) {
	ev, err := p.src.Next()
	if err == io.EOF {
		if werr := p.wait(); werr != nil {
			if p.ctx.Err() != nil {
				return nil, p.ctx.Err()
			}
			return nil, fmt.Errorf("%s: %w", p.cmd.Path, werr)
		}
	}
	return ev, err
}

func (p *processSource) Close() error {
	err := p.src.Close()
	_ = p.wait()
	return err
}

func (p *processSource) wait() error {
	if p.waited {
		return nil
	}
	p.waited = true
	return p.cmd.Wait()
}
