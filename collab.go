package loom

// ConversationID identifies one conversation in the log. Sub-agent turns
// stream into their own conversations, resolved per message.
type ConversationID string

// ConversationLog is the append-only sink the stream interpreter writes
// into. Append makes the entry visible to the UI layer; NotifyMutation
// triggers observers of the conversation. The log owns long-term entry
// storage, but the interpreter remains the sole mutator of an entry's
// content until its Streaming flag flips to false.
type ConversationLog interface {
	Append(id ConversationID, e Entry)
	NotifyMutation(id ConversationID)
}

// ConversationResolver maps a message's owning turn to its conversation.
// An empty parentCallID resolves to the session's main conversation.
type ConversationResolver interface {
	Resolve(s *Session, parentCallID string) ConversationID
}

// ModelCatalog resolves backend-reported model ids to full descriptors.
type ModelCatalog interface {
	Lookup(b Backend, id string) (ModelInfo, bool)
}

// Pricing resolves a model name to its price card. Lookup returns false
// when no pricing is known for the model.
type Pricing interface {
	Lookup(model string) (ModelPricing, bool)
}

// ModelPricing computes cost in USD from token counts.
type ModelPricing interface {
	Cost(inputTokens, cachedTokens, outputTokens int) float64
}

// TaskBridge receives completed main turns, fire-and-forget. Failures in
// the bridge must not disturb turn bookkeeping.
type TaskBridge interface {
	OnTurnComplete(s *Session, ev TurnComplete)
}
