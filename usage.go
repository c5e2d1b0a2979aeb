package loom

// Usage tracks token consumption and cost.
//
// Invariant across all backends:
//
//	InputTokens      = non-cached input tokens
//	CacheReadTokens  = tokens served from cache (cache hit)
//	CacheWriteTokens = tokens written to cache (cache creation)
//
// Total input tokens = InputTokens + CacheReadTokens + CacheWriteTokens.
// Each category has a different cost rate. Transports normalize their
// API-specific fields to this invariant; absent source fields default
// to zero. CostUSD is zero for backends that do not self-report cost.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	CostUSD          float64
}

// Add accumulates o into u field by field.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CacheReadTokens += o.CacheReadTokens
	u.CacheWriteTokens += o.CacheWriteTokens
	u.CostUSD += o.CostUSD
}

// ContextTokens returns the context footprint of a step: everything that
// occupies the model's context window after the step completes.
func (u Usage) ContextTokens() int {
	return u.InputTokens + u.CacheReadTokens + u.CacheWriteTokens + u.OutputTokens
}

// DefaultContextWindow is assumed when a backend does not report a
// model's token budget.
const DefaultContextWindow = 200000

// ModelUsage is the per-model breakdown of a turn's usage.
type ModelUsage struct {
	Model         string
	Usage         Usage
	ContextWindow int
}
