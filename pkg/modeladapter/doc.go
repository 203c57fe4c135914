// Package modeladapter defines the streaming contract between the reasoning
// pipeline and a model server, plus the embeddable HTTP base that concrete
// adapters build on.
//
// It contains:
//   - [Streamer] interface and the [Request] it consumes
//   - embeddable [ModelAdapter] base struct with JSON and streaming HTTP helpers
//   - [Lines], a lazy decoder for newline-delimited JSON bodies
//   - [github.com/germanamz/autoprompt/pkg/modeladapter/usage]: thread-safe token usage tracker
//
// This package contains no server-specific code; concrete adapters live in
// separate packages that import modeladapter.
package modeladapter
