// Package claudecode decodes the coding-agent CLI's line-delimited
// stream-json protocol into loom events. One wire record may translate to
// several events; the decoder queues them and hands them out one at a
// time through the pull iterator.
package claudecode

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/loomcode/loom"
)

// Decoder reads stream-json lines from an io.Reader and yields loom
// events in arrival order.
type Decoder struct {
	scanner *bufio.Scanner
	closer  io.Closer
	queue   []loom.Event
	closed  bool

	// synthesize controls whether full assistant-message snapshots are
	// expanded into block events. Off by default: when the CLI runs with
	// partial messages enabled, snapshots duplicate the already-streamed
	// deltas.
	synthesize bool
}

var _ loom.EventSource = (*Decoder)(nil)

// Option configures a Decoder.
type Option func(*Decoder)

// WithoutPartialMessages makes the decoder expand full assistant-message
// snapshots into synthetic block events, for CLI runs that do not stream
// partial messages.
func WithoutPartialMessages() Option {
	return func(d *Decoder) { d.synthesize = true }
}

// NewDecoder creates a decoder over r. If r is an io.Closer, Close
// forwards to it.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	sc := bufio.NewScanner(r)
	// Single records routinely exceed bufio's default line limit.
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	d := &Decoder{scanner: sc}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next decoded event, or io.EOF at end of stream.
func (d *Decoder) Next() (loom.Event, error) {
	for {
		if len(d.queue) > 0 {
			ev := d.queue[0]
			d.queue = d.queue[1:]
			return ev, nil
		}
		if d.closed {
			return nil, loom.ErrSourceClosed
		}
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return nil, fmt.Errorf("claudecode: %w", err)
			}
			return nil, io.EOF
		}
		raw := d.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ln line
		if err := json.Unmarshal(raw, &ln); err != nil {
			// Non-JSON noise on the pipe is skipped, not fatal.
			continue
		}
		d.queue = d.translate(ln)
	}
}

// Close stops the decoder and closes the underlying reader if it is
// closable.
func (d *Decoder) Close() error {
	d.closed = true
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// translate maps one wire record to zero or more loom events.
func (d *Decoder) translate(ln line) []loom.Event {
	switch ln.Type {
	case "system":
		return translateSystem(ln)
	case "stream_event":
		return translateStream(ln)
	case "assistant":
		return d.expandSnapshot(ln)
	case "result":
		return []loom.Event{translateResult(ln)}
	default:
		// user snapshots and unknown record types.
		return nil
	}
}

func (d *Decoder) expandSnapshot(ln line) []loom.Event {
	if !d.synthesize || ln.Message == nil {
		return nil
	}
	evs := []loom.Event{loom.MessageStart{ParentCallID: ln.ParentToolUseID, Backend: loom.BackendClaude}}
	for i, c := range ln.Message.Content {
		switch c.Type {
		case "tool_use":
			evs = append(evs,
				loom.BlockStart{Index: i, CallID: c.ID, Meta: loom.Meta{ToolName: c.Name}},
				loom.ToolInputDelta{Index: i, JSON: string(c.Input)},
			)
		case "thinking":
			evs = append(evs,
				loom.BlockStart{Index: i, Meta: loom.Meta{BlockType: "thinking"}},
				loom.ThinkingDelta{Index: i, Text: c.Thinking},
			)
		default:
			evs = append(evs,
				loom.BlockStart{Index: i},
				loom.TextDelta{Index: i, Text: c.Text},
			)
		}
		evs = append(evs, loom.BlockStop{Index: i})
	}
	return append(evs, loom.MessageStop{})
}

func translateSystem(ln line) []loom.Event {
	switch ln.Subtype {
	case "init":
		evs := []loom.Event{loom.SessionInit{ModelID: ln.Model, ReasoningEffort: ln.ReasoningEffort}}
		if len(ln.SlashCommands) > 0 {
			cmds := make([]loom.CommandInfo, len(ln.SlashCommands))
			for i, name := range ln.SlashCommands {
				cmds[i] = loom.CommandInfo{Name: name}
			}
			evs = append(evs, loom.AvailableCommandsChanged{Commands: cmds})
		}
		if ln.PermissionMode != "" {
			evs = append(evs, loom.SessionStatus{Meta: loom.Meta{PermissionMode: ln.PermissionMode}})
		}
		return evs
	case "status":
		return []loom.Event{loom.SessionStatus{Status: ln.Status, Meta: loom.Meta{PermissionMode: ln.PermissionMode}}}
	case "compact_boundary":
		ev := loom.ContextCompaction{Trigger: loom.TriggerAuto, Summary: ln.Summary}
		if ln.CompactMeta != nil {
			ev.Trigger = loom.CompactionTrigger(ln.CompactMeta.Trigger)
			ev.PreTokens = ln.CompactMeta.PreTokens
		}
		return []loom.Event{ev}
	default:
		return nil
	}
}

func translateStream(ln line) []loom.Event {
	var ev streamEvent
	if err := json.Unmarshal(ln.Event, &ev); err != nil {
		return nil
	}

	switch ev.Type {
	case "message_start":
		return []loom.Event{loom.MessageStart{ParentCallID: ln.ParentToolUseID, Backend: loom.BackendClaude}}
	case "content_block_start":
		bs := loom.BlockStart{Index: ev.Index}
		if ev.ContentBlock != nil {
			bs.Meta.BlockType = ev.ContentBlock.Type
			if ev.ContentBlock.Type == "tool_use" {
				bs.CallID = ev.ContentBlock.ID
				bs.Meta.ToolName = ev.ContentBlock.Name
			}
		}
		return []loom.Event{bs}
	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return []loom.Event{loom.TextDelta{Index: ev.Index, Text: ev.Delta.Text}}
		case "thinking_delta":
			return []loom.Event{loom.ThinkingDelta{Index: ev.Index, Text: ev.Delta.Thinking}}
		case "input_json_delta":
			return []loom.Event{loom.ToolInputDelta{Index: ev.Index, JSON: ev.Delta.PartialJSON}}
		default:
			// signature_delta and friends are internal.
			return nil
		}
	case "content_block_stop":
		return []loom.Event{loom.BlockStop{Index: ev.Index}}
	case "message_delta":
		if ev.Usage == nil {
			return nil
		}
		return []loom.Event{loom.UsageUpdate{
			ParentCallID: ln.ParentToolUseID,
			Usage:        fromWireUsage(*ev.Usage),
		}}
	case "message_stop":
		return []loom.Event{loom.MessageStop{}}
	default:
		return nil
	}
}

func translateResult(ln line) loom.Event {
	ev := loom.TurnComplete{
		ParentCallID: ln.ParentToolUseID,
		Subtype:      ln.Subtype,
		Result:       ln.Result,
	}
	if ln.Usage != nil {
		u := fromWireUsage(*ln.Usage)
		u.CostUSD = ln.TotalCostUSD
		ev.Usage = &u
	}
	if len(ln.ModelUsage) > 0 {
		models := make([]string, 0, len(ln.ModelUsage))
		for m := range ln.ModelUsage {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			w := ln.ModelUsage[m]
			ev.ModelUsage = append(ev.ModelUsage, loom.ModelUsage{
				Model: m,
				Usage: loom.Usage{
					InputTokens:      w.InputTokens,
					OutputTokens:     w.OutputTokens,
					CacheReadTokens:  w.CacheReadInputTokens,
					CacheWriteTokens: w.CacheCreationInputTokens,
					CostUSD:          w.CostUSD,
				},
				ContextWindow: w.ContextWindow,
			})
		}
	}
	return ev
}

func fromWireUsage(w wireUsage) loom.Usage {
	return loom.Usage{
		InputTokens:      w.InputTokens,
		OutputTokens:     w.OutputTokens,
		CacheReadTokens:  w.CacheReadInputTokens,
		CacheWriteTokens: w.CacheCreationInputTokens,
	}
}
