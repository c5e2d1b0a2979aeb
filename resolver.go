package loom

// DefaultResolver maps the main turn to the session's own conversation
// and each sub-agent turn to a conversation derived from its parent call
// id.
type DefaultResolver struct{}

var _ ConversationResolver = DefaultResolver{}

// Resolve implements ConversationResolver.
func (DefaultResolver) Resolve(s *Session, parentCallID string) ConversationID {
	if parentCallID == "" {
		return ConversationID(s.ID)
	}
	return ConversationID(s.ID + "/" + parentCallID)
}
