package loom

// Backend identifies the agent backend a session or event originates from.
type Backend int

const (
	BackendUnknown Backend = iota
	BackendClaude
	BackendGemini
)

// String returns the backend's wire name.
func (b Backend) String() string {
	switch b {
	case BackendClaude:
		return "claude"
	case BackendGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// ReportsCost reports whether the backend self-reports aggregate turn
// cost. For backends that don't, cost is derived from per-model usage
// via a pricing table.
func (b Backend) ReportsCost() bool {
	return b == BackendClaude
}
