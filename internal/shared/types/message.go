package types

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r may appear in a caller-supplied conversation.
// System messages are reserved for the proxy.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents a single conversation turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Exchange is a completed user/assistant pair handed to persistence
type Exchange struct {
	ConversationID string
	User           string
	Assistant      string
}

// CloneMessages returns a copy of msgs that shares no backing array.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
