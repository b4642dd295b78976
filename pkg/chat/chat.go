// Package chat defines the message shapes exchanged with an LLM
// backend. Every core component builds []Message values and treats the
// reply as untrusted text.
package chat

import "context"

// Service generates one completion for a conversation. Implementations
// live in internal/services; the core only depends on this contract.
type Service interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message in LLM wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System wraps content in a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User wraps content in a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Prompt builds the common two-message system+user exchange. An empty
// system prompt yields a single user message.
func Prompt(system, user string) []Message {
	if system == "" {
		return []Message{User(user)}
	}
	return []Message{System(system), User(user)}
}
