// Package gemini adapts the genai SDK's streaming iterator into loom
// events, so the engine consumes Gemini turns through the same
// EventSource surface as the primary backend.
package gemini

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/loomcode/loom"
	"google.golang.org/genai"
)

// blockKind tracks which kind of content block is currently open.
type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockThinking
)

// Stream translates genai response chunks into loom events. Gemini
// doesn't frame blocks explicitly, so the adapter opens a block when the
// part kind changes and closes it on the next change or at end of stream.
type Stream struct {
	pull func() (*genai.GenerateContentResponse, error, bool)
	stop func()

	model  string
	queue  []loom.Event
	opened bool
	done   bool
	closed bool
	err    error

	index int
	open  blockKind
	calls int
	usage loom.Usage
}

var _ loom.EventSource = (*Stream)(nil)

// NewStream creates a stream over the genai iterator for model.
func NewStream(model string, it iter.Seq2[*genai.GenerateContentResponse, error]) *Stream {
	next, stop := iter.Pull2(it)
	return &Stream{pull: next, stop: stop, model: model, open: blockNone, index: -1}
}

// Next returns the next translated event, or io.EOF after the turn
// completes.
func (s *Stream) Next() (loom.Event, error) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, nil
		}
		switch {
		case s.closed:
			return nil, loom.ErrSourceClosed
		case s.err != nil:
			return nil, s.err
		case s.done:
			return nil, io.EOF
		}

		resp, err, ok := s.pull()
		if !ok {
			s.finish()
			continue
		}
		if err != nil {
			s.err = fmt.Errorf("gemini: %w", err)
			return nil, s.err
		}
		s.translate(resp)
	}
}

// Close stops the underlying iterator.
func (s *Stream) Close() error {
	s.closed = true
	s.stop()
	return nil
}

func (s *Stream) translate(resp *genai.GenerateContentResponse) {
	if !s.opened {
		s.opened = true
		s.queue = append(s.queue, loom.MessageStart{Backend: loom.BackendGemini})
	}

	if u := resp.UsageMetadata; u != nil {
		s.usage = loom.Usage{
			InputTokens:     int(u.PromptTokenCount) - int(u.CachedContentTokenCount),
			OutputTokens:    int(u.CandidatesTokenCount),
			CacheReadTokens: int(u.CachedContentTokenCount),
		}
		if s.usage.InputTokens < 0 {
			s.usage.InputTokens = 0
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			s.emitCall(part.FunctionCall)
		case part.Text != "":
			kind := blockText
			if part.Thought {
				kind = blockThinking
			}
			s.ensureBlock(kind)
			if kind == blockThinking {
				s.queue = append(s.queue, loom.ThinkingDelta{Index: s.index, Text: part.Text})
			} else {
				s.queue = append(s.queue, loom.TextDelta{Index: s.index, Text: part.Text})
			}
		}
	}
}

// ensureBlock opens a block of the wanted kind, closing the current one
// if the kind changed.
func (s *Stream) ensureBlock(kind blockKind) {
	if s.open == kind {
		return
	}
	s.closeBlock()
	s.index++
	s.open = kind
	bs := loom.BlockStart{Index: s.index}
	if kind == blockThinking {
		bs.Meta.BlockType = "thinking"
	}
	s.queue = append(s.queue, bs)
}

func (s *Stream) closeBlock() {
	if s.open == blockNone {
		return
	}
	s.queue = append(s.queue, loom.BlockStop{Index: s.index})
	s.open = blockNone
}

// emitCall frames a complete function call as one tool-use block. The SDK
// delivers calls whole, so the block opens and closes in a single chunk.
func (s *Stream) emitCall(fc *genai.FunctionCall) {
	s.closeBlock()
	s.index++
	s.calls++
	id := fc.ID
	if id == "" {
		id = "call_" + strconv.Itoa(s.calls)
	}
	args, err := json.Marshal(fc.Args)
	if err != nil {
		args = []byte("{}")
	}
	s.queue = append(s.queue,
		loom.BlockStart{Index: s.index, CallID: id, Meta: loom.Meta{ToolName: fc.Name}},
		loom.ToolInputDelta{Index: s.index, JSON: string(args)},
		loom.BlockStop{Index: s.index},
	)
}

// finish closes any open block and emits the turn completion. Gemini does
// not self-report cost; the engine derives it from the per-model usage.
func (s *Stream) finish() {
	s.done = true
	if !s.opened {
		return
	}
	s.closeBlock()
	u := s.usage
	s.queue = append(s.queue,
		loom.MessageStop{},
		loom.TurnComplete{
			Subtype: "success",
			Usage:   &u,
			ModelUsage: []loom.ModelUsage{{
				Model:         s.model,
				Usage:         u,
				ContextWindow: contextWindow(s.model),
			}},
			Meta: loom.Meta{LastStepUsage: &u},
		},
	)
}

// contextWindow returns the known token budget for a model family.
func contextWindow(model string) int {
	if strings.HasPrefix(model, "gemini-2.5") {
		return 1048576
	}
	return loom.DefaultContextWindow
}
