// Package providers groups the concrete model server adapters.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/autoprompt/pkg/providers/ollama]: streaming chat, model pull, and model listing for a local Ollama server
//
// Every adapter embeds [github.com/germanamz/autoprompt/pkg/modeladapter.ModelAdapter]
// and implements [github.com/germanamz/autoprompt/pkg/modeladapter.Streamer].
package providers
