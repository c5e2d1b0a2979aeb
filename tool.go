package loom

import "github.com/bmatcuk/doublestar/v4"

// ToolKind is a coarse classification of a tool by name, used for display
// grouping and icons.
type ToolKind int

const (
	ToolKindOther ToolKind = iota
	ToolKindFile
	ToolKindShell
	ToolKindSearch
	ToolKindWeb
	ToolKindTask
	ToolKindMCP
)

// toolKindPatterns maps glob patterns over tool names to kinds. First
// match wins, so specific names precede wildcards.
var toolKindPatterns = []struct {
	pattern string
	kind    ToolKind
}{
	{"Read", ToolKindFile},
	{"Write", ToolKindFile},
	{"Edit", ToolKindFile},
	{"MultiEdit", ToolKindFile},
	{"NotebookEdit", ToolKindFile},
	{"Bash*", ToolKindShell},
	{"Kill*", ToolKindShell},
	{"Glob", ToolKindSearch},
	{"Grep", ToolKindSearch},
	{"Web*", ToolKindWeb},
	{"Task", ToolKindTask},
	{"Agent", ToolKindTask},
	{"mcp__*", ToolKindMCP},
}

// KindOfTool classifies a tool name. Unrecognized names map to
// ToolKindOther.
func KindOfTool(name string) ToolKind {
	for _, p := range toolKindPatterns {
		ok, err := doublestar.Match(p.pattern, name)
		if err == nil && ok {
			return p.kind
		}
	}
	return ToolKindOther
}
