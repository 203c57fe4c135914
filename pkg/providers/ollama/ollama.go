// Package ollama provides a Streamer implementation for the Ollama chat API,
// plus the model management calls behind the /ollama command.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/germanamz/autoprompt/pkg/chats/message"
	"github.com/germanamz/autoprompt/pkg/modeladapter"
	"github.com/germanamz/autoprompt/pkg/modeladapter/usage"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

const (
	chatPath = "/api/chat"
	pullPath = "/api/pull"
	tagsPath = "/api/tags"
	psPath   = "/api/ps"
)

var _ modeladapter.Streamer = (*Adapter)(nil)

// Adapter talks to one Ollama server.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter for baseURL. An empty baseURL selects
// DefaultBaseURL; see NormalizeHost for the accepted forms.
func New(baseURL string) *Adapter {
	a := &Adapter{}
	a.BaseURL = NormalizeHost(baseURL)
	return a
}

// NormalizeHost turns the forms accepted by OLLAMA_HOST ("host", "host:port",
// "http://host:port/") into a base URL without a trailing slash.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return DefaultBaseURL
	}

	if !strings.Contains(host, "://") {
		if !strings.Contains(host, ":") {
			host += ":11434"
		}
		host = "http://" + host
	}

	return strings.TrimRight(host, "/")
}

// Stream sends the conversation to /api/chat and yields the content of every
// streamed chunk. Token counts from the final chunk are added to a.Usage.
func (a *Adapter) Stream(ctx context.Context, req modeladapter.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, err := a.PostStream(ctx, chatPath, buildChatRequest(req))
		if err != nil {
			yield("", fmt.Errorf("ollama: chat: %w", err))
			return
		}
		defer func() { _ = body.Close() }()

		for chunk, err := range modeladapter.Lines[chatChunk](body) {
			if err != nil {
				yield("", fmt.Errorf("ollama: chat: %w", err))
				return
			}

			if chunk.Error != "" {
				yield("", fmt.Errorf("ollama: chat: %s", chunk.Error))
				return
			}

			if chunk.Message.Content != "" {
				if !yield(chunk.Message.Content, nil) {
					return
				}
			}

			if chunk.Done {
				a.Usage.Add(usage.TokenCount{
					PromptTokens:     chunk.PromptEvalCount,
					CompletionTokens: chunk.EvalCount,
					Duration:         time.Duration(chunk.TotalDuration),
				})
				return
			}
		}

		yield("", errors.New("ollama: chat: stream ended before done"))
	}
}

// PullProgress is one status update of a model download.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Pull downloads model, calling progress (when non-nil) for every status
// update the server reports.
func (a *Adapter) Pull(ctx context.Context, model string, progress func(PullProgress)) error {
	body, err := a.PostStream(ctx, pullPath, pullRequest{Model: model, Stream: true})
	if err != nil {
		return fmt.Errorf("ollama: pull %s: %w", model, err)
	}
	defer func() { _ = body.Close() }()

	for p, err := range modeladapter.Lines[PullProgress](body) {
		if err != nil {
			return fmt.Errorf("ollama: pull %s: %w", model, err)
		}
		if p.Error != "" {
			return fmt.Errorf("ollama: pull %s: %s", model, p.Error)
		}
		if progress != nil {
			progress(p)
		}
	}

	return nil
}

// Model describes an installed model.
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Details    struct {
		ParameterSize     string `json:"parameter_size"`
		QuantizationLevel string `json:"quantization_level"`
	} `json:"details"`
}

// List returns the models installed on the server.
func (a *Adapter) List(ctx context.Context) ([]Model, error) {
	var resp struct {
		Models []Model `json:"models"`
	}
	if err := a.GetJSON(ctx, tagsPath, &resp); err != nil {
		return nil, fmt.Errorf("ollama: list: %w", err)
	}
	return resp.Models, nil
}

// RunningModel describes a model currently loaded in memory.
type RunningModel struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SizeVRAM  int64     `json:"size_vram"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Running returns the models currently loaded by the server.
func (a *Adapter) Running(ctx context.Context) ([]RunningModel, error) {
	var resp struct {
		Models []RunningModel `json:"models"`
	}
	if err := a.GetJSON(ctx, psPath, &resp); err != nil {
		return nil, fmt.Errorf("ollama: ps: %w", err)
	}
	return resp.Models, nil
}

// --- wire types ---

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
	Options  apiOptions   `json:"options"`
}

type chatChunk struct {
	Message         apiMessage `json:"message"`
	Done            bool       `json:"done"`
	Error           string     `json:"error"`
	PromptEvalCount int        `json:"prompt_eval_count"`
	EvalCount       int        `json:"eval_count"`
	TotalDuration   int64      `json:"total_duration"`
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

func buildChatRequest(req modeladapter.Request) chatRequest {
	out := chatRequest{
		Model:    req.Model,
		Stream:   true,
		Messages: []apiMessage{},
		Options:  apiOptions{NumPredict: req.MaxTokens},
	}

	if req.Temperature != 0 {
		t := req.Temperature
		out.Options.Temperature = &t
	}

	if req.Chat != nil {
		for _, m := range req.Chat.Messages() {
			out.Messages = append(out.Messages, toAPIMessage(m))
		}
	}

	return out
}

func toAPIMessage(m message.Message) apiMessage {
	return apiMessage{Role: m.Role.String(), Content: m.Content}
}
