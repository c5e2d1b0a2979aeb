package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// wrap breaks s into lines no wider than width display cells, splitting
// on spaces where possible. Grapheme clusters are never split.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(wrapLine(line, width))
	}
	return out.String()
}

func wrapLine(line string, width int) string {
	var out strings.Builder
	col := 0
	for _, word := range strings.Split(line, " ") {
		w := runewidth.StringWidth(word)
		switch {
		case col == 0:
			out.WriteString(word)
			col = w
		case col+1+w <= width:
			out.WriteString(" " + word)
			col += 1 + w
		default:
			out.WriteString("\n" + word)
			col = w
		}
	}
	return out.String()
}

// truncate cuts s to at most width display cells, appending an ellipsis
// when something was cut. Iterates grapheme clusters so multi-rune
// clusters are kept whole.
func truncate(s string, width int) string {
	if width <= 1 || runewidth.StringWidth(s) <= width {
		return s
	}
	var out strings.Builder
	col := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		w := runewidth.StringWidth(cluster)
		if col+w > width-1 {
			break
		}
		out.WriteString(cluster)
		col += w
	}
	return out.String() + "…"
}
