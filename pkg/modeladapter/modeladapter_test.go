package modeladapter_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/germanamz/autoprompt/pkg/chats/chat"
	"github.com/germanamz/autoprompt/pkg/chats/message"
	"github.com/germanamz/autoprompt/pkg/modeladapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check: StreamerFunc satisfies Streamer.
var _ modeladapter.Streamer = modeladapter.StreamerFunc(nil)

func TestStreamerFunc(t *testing.T) {
	var got modeladapter.Request
	s := modeladapter.StreamerFunc(func(_ context.Context, req modeladapter.Request) iter.Seq2[string, error] {
		got = req
		return func(yield func(string, error) bool) {
			_ = yield("hi", nil) && yield(" there", nil)
		}
	})

	req := modeladapter.Request{Chat: chat.New(message.User("hello")), Model: "llama3.2", Temperature: 0.2, MaxTokens: 64}

	var parts []string
	for frag, err := range s.Stream(context.Background(), req) {
		require.NoError(t, err)
		parts = append(parts, frag)
	}

	assert.Equal(t, []string{"hi", " there"}, parts)
	assert.Equal(t, "llama3.2", got.Model)
}

func TestNew(t *testing.T) {
	a := modeladapter.New("http://localhost:11434", nil)
	assert.Equal(t, "http://localhost:11434", a.BaseURL)
	assert.Nil(t, a.Client)
	assert.NotNil(t, a.UsageTracker())
}

func TestNewRequest_AppliesHeaders(t *testing.T) {
	a := modeladapter.New("http://example.com", nil)
	a.Headers = map[string]string{"X-Trace": "abc"}

	req, err := a.NewRequest(context.Background(), http.MethodGet, "/api/tags", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/api/tags", req.URL.String())
	assert.Equal(t, "abc", req.Header.Get("X-Trace"))
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"llama3.2"}`, string(body))

		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	t.Cleanup(srv.Close)

	a := modeladapter.New(srv.URL, srv.Client())

	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, a.PostJSON(context.Background(), "/api/show", map[string]string{"name": "llama3.2"}, &out))
	assert.Equal(t, "ok", out.Status)

	require.NoError(t, a.PostJSON(context.Background(), "/api/show", map[string]string{"name": "llama3.2"}, nil))
}

func TestGetJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "model not found\n")
	}))
	t.Cleanup(srv.Close)

	a := modeladapter.New(srv.URL, nil)

	err := a.GetJSON(context.Background(), "/api/tags", &struct{}{})
	require.Error(t, err)

	var se *modeladapter.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "model not found", se.Body)
}

func TestPostStream_ReturnsOpenBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "{\"n\":1}\n{\"n\":2}\n")
	}))
	t.Cleanup(srv.Close)

	a := modeladapter.New(srv.URL, nil)

	body, err := a.PostStream(context.Background(), "/api/chat", struct{}{})
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	var ns []int
	for v, err := range modeladapter.Lines[struct{ N int }](body) {
		require.NoError(t, err)
		ns = append(ns, v.N)
	}
	assert.Equal(t, []int{1, 2}, ns)
}

func TestLines_SkipsBlankLines(t *testing.T) {
	r := strings.NewReader("\n{\"v\":\"a\"}\n\n  \n{\"v\":\"b\"}")

	var got []string
	for v, err := range modeladapter.Lines[struct{ V string }](r) {
		require.NoError(t, err)
		got = append(got, v.V)
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestLines_StopsAtMalformedLine(t *testing.T) {
	r := strings.NewReader("{\"v\":\"a\"}\nnot json\n{\"v\":\"c\"}\n")

	var got []string
	var errs []error
	for v, err := range modeladapter.Lines[struct{ V string }](r) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		got = append(got, v.V)
	}

	assert.Equal(t, []string{"a"}, got)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "decode stream line")
}

func TestLines_EarlyBreak(t *testing.T) {
	r := strings.NewReader("{\"v\":\"a\"}\n{\"v\":\"b\"}\n")

	count := 0
	for range modeladapter.Lines[struct{ V string }](r) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
