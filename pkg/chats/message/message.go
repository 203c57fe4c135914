// Package message defines the Message type used in model conversations.
package message

import "github.com/germanamz/autoprompt/pkg/chats/role"

// Message is a single role-tagged text message. It is a value type that
// copies cheaply.
type Message struct {
	Role    role.Role
	Content string
}

// New creates a message with the given role and text.
func New(r role.Role, text string) Message {
	return Message{Role: r, Content: text}
}

// System creates a system message.
func System(text string) Message { return New(role.System, text) }

// User creates a user (human) message.
func User(text string) Message { return New(role.User, text) }

// Assistant creates an assistant message.
func Assistant(text string) Message { return New(role.Assistant, text) }

// IsZero reports whether m has neither a role nor content.
func (m Message) IsZero() bool {
	return m.Role == "" && m.Content == ""
}
