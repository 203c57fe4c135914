package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"

	"github.com/germanamz/autoprompt/pkg/chats/chat"
	"github.com/germanamz/autoprompt/pkg/modeladapter/usage"
)

// Request is one exchange with a model: the fully assembled conversation
// plus the sampling settings to apply.
type Request struct {
	Chat        *chat.Chat
	Model       string
	Temperature float64
	MaxTokens   int
}

// Streamer sends a conversation to a model and returns the reply as a lazy,
// finite sequence of text fragments. The sequence is not restartable and may
// yield a non-nil error mid-stream, after which it ends.
type Streamer interface {
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// StreamerFunc adapts a plain function to the Streamer interface.
type StreamerFunc func(ctx context.Context, req Request) iter.Seq2[string, error]

// Stream calls the underlying function.
func (f StreamerFunc) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return f(ctx, req)
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ModelAdapter holds shared state for model server adapters. Embed it in
// concrete adapter structs to get HTTP helpers, custom headers, and usage
// tracking.
type ModelAdapter struct {
	BaseURL string            // Server base URL (no trailing slash).
	Client  *http.Client      // HTTP client; falls back to a client without timeout.
	Headers map[string]string // Extra headers applied to every request.
	Usage   usage.Tracker     // Token usage tracker.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// New creates a ModelAdapter with the given settings.
// A nil client falls back to a default client at call time.
func New(baseURL string, client *http.Client) ModelAdapter {
	return ModelAdapter{
		BaseURL: baseURL,
		Client:  client,
	}
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// httpClient returns the configured client or a cached default client.
// Streams can run for minutes on local hardware, so the default client relies
// on the request context for cancellation instead of a fixed timeout.
func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}

	a.clientOnce.Do(func() {
		a.defaultClient = &http.Client{}
	})

	return a.defaultClient
}

// NewRequest builds an *http.Request with the base URL and custom headers
// already applied.
func (a *ModelAdapter) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (a *ModelAdapter) Do(req *http.Request) (*http.Response, error) {
	return a.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// PostJSON marshals payload as JSON, sends a POST to the given path,
// checks for a 2xx status, and unmarshals the response body into dest.
// If dest is nil the response body is discarded after the status check.
func (a *ModelAdapter) PostJSON(ctx context.Context, path string, payload, dest any) error {
	body, err := a.PostStream(ctx, path, payload)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	return decodeInto(body, dest)
}

// GetJSON sends a GET to the given path, checks for a 2xx status, and
// unmarshals the response body into dest.
func (a *ModelAdapter) GetJSON(ctx context.Context, path string, dest any) error {
	req, err := a.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	body, err := a.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	return decodeInto(body, dest)
}

// PostStream marshals payload as JSON, sends a POST to the given path and,
// on a 2xx status, returns the open response body. The caller must close it.
func (a *ModelAdapter) PostStream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := a.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return a.send(req)
}

func (a *ModelAdapter) send(req *http.Request) (io.ReadCloser, error) {
	resp, err := a.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	return resp.Body, nil
}

func decodeInto(r io.Reader, dest any) error {
	if dest == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}

	if err := json.NewDecoder(r).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
