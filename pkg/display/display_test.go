package display

import (
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragments(parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, s iter.Seq2[string, error]) []string {
	t.Helper()

	var out []string
	for frag, err := range s {
		require.NoError(t, err)
		out = append(out, frag)
	}
	return out
}

func TestEcho_Visible(t *testing.T) {
	var b strings.Builder

	got := collect(t, Echo(&b, true, fragments("Hel", "lo", "!")))

	assert.Equal(t, []string{"Hel", "lo", "!"}, got)
	assert.Equal(t, "Hello!", b.String())
}

func TestEcho_Hidden(t *testing.T) {
	var b strings.Builder

	got := collect(t, Echo(&b, false, fragments("Hel", "lo", "!")))

	assert.Equal(t, []string{"Hel", "lo", "!"}, got, "hidden fragments are still yielded")
	assert.Equal(t, "Thinking...", b.String()[:len(ThinkingBanner)])
	assert.Equal(t, "Thinking......", b.String())
}

func TestEcho_ErrorNotWritten(t *testing.T) {
	var b strings.Builder
	boom := errors.New("boom")

	stream := func(yield func(string, error) bool) {
		if !yield("ok", nil) {
			return
		}
		yield("", boom)
	}

	var errs []error
	for _, err := range Echo(&b, true, stream) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	assert.Equal(t, []error{boom}, errs)
	assert.Equal(t, "ok", b.String())
}

func TestEcho_EarlyStop(t *testing.T) {
	var b strings.Builder

	for range Echo(&b, true, fragments("a", "b", "c")) {
		break
	}

	assert.Equal(t, "a", b.String())
}

func TestMarkdown_Render(t *testing.T) {
	m, err := NewMarkdown(80)
	require.NoError(t, err)

	out := m.Render("# Title\n\nbody text")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "body text")
}

func TestMarkdown_NilSafe(t *testing.T) {
	var m *Markdown
	assert.Equal(t, "plain", m.Render("plain"))
}
