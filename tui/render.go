package tui

import (
	"strings"

	"github.com/loomcode/loom"
	"github.com/loomcode/loom/markdown"
)

// renderEntries renders a conversation's entries top to bottom, separated
// by blank lines.
func renderEntries(entries []loom.Entry, width int, theme loom.Theme, styles Styles) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if s := renderEntry(e, width, theme, styles); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderEntry(e loom.Entry, width int, theme loom.Theme, styles Styles) string {
	switch e := e.(type) {
	case *loom.PromptEntry:
		return styles.UserMsg.Render("> ") + e.Text

	case *loom.TextEntry:
		if e.ContentType == loom.ContentThinking {
			return renderThinking(e, width, styles)
		}
		out := markdown.Render(e.Text, width, theme)
		if e.Streaming {
			out += styles.Muted.Render("▌")
		}
		return out

	case *loom.ToolUseEntry:
		return renderToolUse(e, width, styles)

	case *loom.NoticeEntry:
		return renderNotice(e, styles)

	default:
		return ""
	}
}

func renderThinking(e *loom.TextEntry, width int, styles Styles) string {
	header := styles.Muted.Render("∴ thinking")
	body := styles.Thinking.Render(wrap(e.Text, width))
	if strings.TrimSpace(e.Text) == "" {
		return header
	}
	return header + "\n" + body
}

func renderToolUse(e *loom.ToolUseEntry, width int, styles Styles) string {
	header := styles.ToolCall.Render(toolGlyph(e.ToolKind)+" "+e.ToolName) + statusGlyph(e, styles)
	preview := inputPreview(e.Input)
	if preview == "" {
		return header
	}
	return header + "\n" + styles.Muted.Render(truncate(preview, width-2))
}

func statusGlyph(e *loom.ToolUseEntry, styles Styles) string {
	if e.Streaming {
		return styles.Muted.Render(" …")
	}
	switch e.Status {
	case loom.TaskError:
		return styles.Error.Render(" ✗")
	case loom.TaskCompleted:
		return styles.Success.Render(" ✓")
	default:
		return ""
	}
}

func toolGlyph(k loom.ToolKind) string {
	switch k {
	case loom.ToolKindFile:
		return "✎"
	case loom.ToolKindShell:
		return "$"
	case loom.ToolKindSearch:
		return "⌕"
	case loom.ToolKindWeb:
		return "⚓"
	case loom.ToolKindTask:
		return "◆"
	case loom.ToolKindMCP:
		return "⬡"
	default:
		return "•"
	}
}

// inputPreview extracts the first line of the accumulated argument JSON.
// The JSON may be a partial fragment while streaming; it is shown raw.
func inputPreview(input string) string {
	s := strings.TrimSpace(input)
	if s == "" || s == "{}" {
		return ""
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func renderNotice(e *loom.NoticeEntry, styles Styles) string {
	switch e.Kind {
	case loom.NoticeContextCleared:
		return styles.Notice.Render("── context cleared ──")
	case loom.NoticeCompaction:
		label := "context compacted"
		if e.UserInitiated {
			label = "context compacted (manual)"
		}
		if e.Text != "" {
			label += " · " + e.Text
		}
		return styles.Notice.Render("── " + label + " ──")
	case loom.NoticeSummary:
		return styles.Muted.Render(e.Text)
	default:
		return styles.Notice.Render(e.Text)
	}
}
