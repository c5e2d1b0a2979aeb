package claudecode

import "encoding/json"

// Wire DTOs for the line-delimited stream-json protocol. Parsing is
// defensive: absent fields keep zero values, unknown record types are
// skipped.

// line is the envelope shared by every record.
type line struct {
	Type            string          `json:"type"`
	Subtype         string          `json:"subtype"`
	SessionID       string          `json:"session_id"`
	ParentToolUseID string          `json:"parent_tool_use_id"`
	Model           string          `json:"model"`
	PermissionMode  string          `json:"permissionMode"`
	ReasoningEffort string          `json:"reasoning_effort"`
	SlashCommands   []string        `json:"slash_commands"`
	Status          string          `json:"status"`
	CompactMeta     *compactMeta    `json:"compact_metadata"`
	Summary         string          `json:"summary"`
	Event           json.RawMessage `json:"event"`
	Message         *wireMessage    `json:"message"`

	// Result fields.
	Result       string               `json:"result"`
	TotalCostUSD float64              `json:"total_cost_usd"`
	Usage        *wireUsage           `json:"usage"`
	ModelUsage   map[string]wireModel `json:"modelUsage"`
}

type compactMeta struct {
	Trigger   string `json:"trigger"`
	PreTokens int    `json:"pre_tokens"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

type wireModel struct {
	InputTokens              int     `json:"inputTokens"`
	OutputTokens             int     `json:"outputTokens"`
	CacheReadInputTokens     int     `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int     `json:"cacheCreationInputTokens"`
	CostUSD                  float64 `json:"costUSD"`
	ContextWindow            int     `json:"contextWindow"`
}

// streamEvent is the nested SSE-shaped event inside a stream_event line.
type streamEvent struct {
	Type         string     `json:"type"`
	Index        int        `json:"index"`
	ContentBlock *wireBlock `json:"content_block"`
	Delta        *wireDelta `json:"delta"`
	Usage        *wireUsage `json:"usage"`
}

type wireBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Thinking    string `json:"thinking"`
	PartialJSON string `json:"partial_json"`
}

// wireMessage is the full-message snapshot on assistant lines.
type wireMessage struct {
	Model   string            `json:"model"`
	Content []wireFullContent `json:"content"`
}

type wireFullContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
}
