// Package markdown renders markdown text to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling. It covers the
// subset of markdown agent backends actually emit: paragraphs, headings,
// fenced code, lists, emphasis, inline code, and links.
package markdown

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/loomcode/loom"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Render parses markdown source and returns ANSI-styled terminal output
// word-wrapped to width. Code blocks are rendered verbatim behind a
// gutter, without reflow.
func Render(source string, width int, theme loom.Theme) string {
	if source == "" {
		return ""
	}
	r := renderer{
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		heading:   lipgloss.NewStyle().Foreground(ansi(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(ansi(theme.Muted)).Faint(true),
		underline: lipgloss.NewStyle().Underline(true),
		width:     width,
	}
	doc := goldmark.DefaultParser().Parse(text.NewReader([]byte(source)))
	var out bytes.Buffer
	r.blocks(doc, []byte(source), &out)
	return strings.TrimRight(out.String(), "\n")
}

func ansi(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

type renderer struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	heading   lipgloss.Style
	muted     lipgloss.Style
	underline lipgloss.Style
	width     int
}

func (r renderer) blocks(parent ast.Node, src []byte, out *bytes.Buffer) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(n, src, out)
		if n.NextSibling() != nil {
			out.WriteString("\n")
		}
	}
}

func (r renderer) block(n ast.Node, src []byte, out *bytes.Buffer) {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		wrapped := lipgloss.NewStyle().Width(r.width).Render(r.inlines(n, src))
		out.WriteString(wrapped + "\n")

	case *ast.Heading:
		styled := r.heading.Render(r.inlines(n, src))
		out.WriteString(lipgloss.NewStyle().Width(r.width).Render(styled) + "\n")

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(src)); lang != "" {
			out.WriteString(r.muted.Render(lang) + "\n")
		}
		r.codeLines(n, src, out)

	case *ast.CodeBlock:
		r.codeLines(n, src, out)

	case *ast.List:
		r.list(n, src, out, 0)

	case *ast.ThematicBreak:
		out.WriteString(r.muted.Render(strings.Repeat("─", min(r.width, 40))) + "\n")

	default:
		// Blockquotes and anything unrecognized: recurse unstyled.
		r.blocks(n, src, out)
	}
}

func (r renderer) codeLines(n interface {
	Lines() *text.Segments
}, src []byte, out *bytes.Buffer) {
	gutter := r.muted.Render("│") + " "
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		content := strings.TrimRight(string(line.Value(src)), "\n")
		out.WriteString(gutter + content + "\n")
	}
}

func (r renderer) list(n *ast.List, src []byte, out *bytes.Buffer, depth int) {
	num := n.Start
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		prefix := strings.Repeat("  ", depth) + marker

		var body bytes.Buffer
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.List:
				if body.Len() > 0 {
					r.item(prefix, body.String(), out)
					body.Reset()
					prefix = strings.Repeat(" ", runewidth.StringWidth(prefix))
				}
				r.list(c, src, out, depth+1)
			case *ast.Paragraph, *ast.TextBlock:
				body.WriteString(r.inlines(c, src))
			default:
				r.block(c, src, &body)
			}
		}
		if body.Len() > 0 {
			r.item(prefix, body.String(), out)
		}
	}
}

// item writes one list item with continuation lines indented under the
// marker. Marker width is measured in display cells, not bytes.
func (r renderer) item(prefix, content string, out *bytes.Buffer) {
	pad := runewidth.StringWidth(prefix)
	w := r.width - pad
	if w < 10 {
		w = 10
	}
	wrapped := lipgloss.NewStyle().Width(w).Render(content)
	cont := strings.Repeat(" ", pad)
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			out.WriteString(prefix + line + "\n")
		} else {
			out.WriteString(cont + line + "\n")
		}
	}
}

func (r renderer) inlines(parent ast.Node, src []byte) string {
	var out bytes.Buffer
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		r.inline(n, src, &out)
	}
	return out.String()
}

func (r renderer) inline(n ast.Node, src []byte, out *bytes.Buffer) {
	switch n := n.(type) {
	case *ast.Text:
		out.Write(n.Segment.Value(src))
		if n.SoftLineBreak() {
			out.WriteByte(' ')
		}
		if n.HardLineBreak() {
			out.WriteByte('\n')
		}
	case *ast.String:
		out.Write(n.Value)
	case *ast.Emphasis:
		inner := r.inlines(n, src)
		if n.Level == 1 {
			out.WriteString(r.italic.Render(inner))
		} else {
			out.WriteString(r.bold.Render(inner))
		}
	case *ast.CodeSpan:
		out.WriteString(r.bold.Render(r.inlines(n, src)))
	case *ast.Link:
		out.WriteString(r.underline.Render(r.inlines(n, src)))
		out.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	case *ast.AutoLink:
		out.WriteString(r.underline.Render(string(n.URL(src))))
	case *ast.Image:
		out.WriteString(r.underline.Render(r.inlines(n, src)))
		out.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.inline(c, src, out)
		}
	}
}
