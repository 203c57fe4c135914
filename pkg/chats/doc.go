// Package chats provides the provider-agnostic data model for conversations
// with a language model.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/autoprompt/pkg/chats/role]: conversation roles (system, user, assistant)
//   - [github.com/germanamz/autoprompt/pkg/chats/message]: role-tagged text messages
//   - [github.com/germanamz/autoprompt/pkg/chats/chat]: ordered conversation container
//
// No provider or storage code is included.
package chats
