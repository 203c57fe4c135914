package reasoning

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/germanamz/autoprompt/pkg/catalog"
	"github.com/germanamz/autoprompt/pkg/chats/chat"
	"github.com/germanamz/autoprompt/pkg/chats/message"
	"github.com/germanamz/autoprompt/pkg/chats/role"
	"github.com/germanamz/autoprompt/pkg/history"
	"github.com/germanamz/autoprompt/pkg/modeladapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test helpers ---

// scriptedModel answers the n-th exchange with replies[n] split into
// fragments, and fails the exchange at failAt (when non-negative).
type scriptedModel struct {
	mu       sync.Mutex
	replies  [][]string
	failAt   int
	requests []modeladapter.Request
}

func newScriptedModel(replies ...[]string) *scriptedModel {
	return &scriptedModel{replies: replies, failAt: -1}
}

func (m *scriptedModel) Stream(_ context.Context, req modeladapter.Request) iter.Seq2[string, error] {
	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	return func(yield func(string, error) bool) {
		if n == m.failAt {
			if !yield("partial", nil) {
				return
			}
			yield("", errors.New("connection reset"))
			return
		}

		var parts []string
		if n < len(m.replies) {
			parts = m.replies[n]
		}
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

const testCatalog = `{
  "categories": {
    "analytic": {
      "name": "Analytic",
      "preamble": "reason step by step.",
      "interaction_flow": [
        {"action": "Decompose", "prompt": "Split the problem."},
        {"action": "Evaluate", "prompt": "Weigh each part."}
      ],
      "meta": {
        "response_template": {"header": "Answer", "sections": ["Findings", "Risks"], "closing": "Bye"},
        "temperature": 0.3
      }
    },
    "empty": {"name": "Empty", "interaction_flow": []}
  },
  "global_meta": {"core_principles": ["be clear"]}
}`

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	c, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return c
}

type upperRenderer struct{}

func (upperRenderer) Render(text string) string { return strings.ToUpper(text) }

func snapshot(c *catalog.Catalog, reasoner string) Snapshot {
	return Snapshot{
		SessionID:   "s1",
		Model:       "llama3.2",
		Temperature: 0.2,
		MaxTokens:   100,
		Reasoner:    reasoner,
		Catalog:     c,
	}
}

// --- tests ---

func lastMessage(c *chat.Chat) message.Message {
	msgs := c.Messages()
	if len(msgs) == 0 {
		return message.Message{}
	}
	return msgs[len(msgs)-1]
}

func TestRun_Single(t *testing.T) {
	model := newScriptedModel([]string{"Hi", " there"})
	store := history.NewMemoryStore()
	var out strings.Builder

	e := New(Options{Model: model, History: store, Out: &out})

	text, err := e.Run(context.Background(), snapshot(loadCatalog(t), ""), "hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi there", text)
	assert.Equal(t, "Hi there", out.String())
	assert.Equal(t, 1, model.calls())

	req := model.requests[0]
	assert.Equal(t, "llama3.2", req.Model)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 100, req.MaxTokens)

	sent := req.Chat.Messages()
	require.NotEmpty(t, sent)
	assert.Equal(t, message.User("hello"), sent[len(sent)-1])
	assert.Equal(t, role.System, sent[0].Role)

	msgs, err := store.Get("s1").Messages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []message.Message{message.User("hello"), message.Assistant("Hi there")}, msgs)
}

func TestRun_SingleIncludesHistory(t *testing.T) {
	model := newScriptedModel([]string{"one"}, []string{"two"})
	e := New(Options{Model: model})
	snap := snapshot(nil, "")

	_, err := e.Run(context.Background(), snap, "first")
	require.NoError(t, err)
	_, err = e.Run(context.Background(), snap, "second")
	require.NoError(t, err)

	msgs := model.requests[1].Chat.Messages()
	assert.Equal(t, []message.Message{
		message.System("You are a helpful AI assistant.\n\n" +
			"With the following core principles:\n\n\n" +
			"With the following safeguards:\n\n\n" +
			"And the following performance metrics:\n\n\n" +
			"Perform your best to answer any questions."),
		message.User("first"),
		message.Assistant("one"),
		message.User("second"),
	}, msgs)
}

func TestRun_Pipeline_NPlusOneExchanges(t *testing.T) {
	model := newScriptedModel([]string{"step", "one"}, []string{"step two"}, []string{"final"})
	store := history.NewMemoryStore()
	var out strings.Builder
	resets := 0

	e := New(Options{
		Model:         model,
		History:       store,
		Out:           &out,
		ResetReasoner: func() { resets++ },
	})

	text, err := e.Run(context.Background(), snapshot(loadCatalog(t), "analytic"), "why?")
	require.NoError(t, err)

	assert.Equal(t, 3, model.calls())
	assert.Equal(t, "stepone\nstep two\nfinal", text)
	assert.Equal(t, 3, len(strings.Split(text, "\n")))
	assert.Equal(t, 1, resets)

	// Hidden steps show placeholders only.
	assert.Equal(t, "Thinking.....\n\nThinking....\n\nfinal", out.String())
	assert.NotContains(t, out.String(), "stepone")

	msgs, err := store.Get("s1").Messages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []message.Message{
		message.User("why?"),
		message.Assistant("stepone"),
		message.Assistant("step two"),
		message.Assistant("final"),
	}, msgs)
}

func TestRun_Pipeline_PromptShape(t *testing.T) {
	model := newScriptedModel([]string{"a"}, []string{"b"}, []string{"c"})
	e := New(Options{Model: model})
	c := loadCatalog(t)
	cat, err := c.Category("analytic")
	require.NoError(t, err)

	_, err = e.Run(context.Background(), snapshot(c, "analytic"), "why?")
	require.NoError(t, err)
	require.Len(t, model.requests, 3)

	first := model.requests[0].Chat.Messages()
	require.Len(t, first, 4)
	assert.Equal(t, role.System, first[0].Role)
	assert.Equal(t, message.User("why?"), first[1])
	assert.Equal(t, message.System(cat.Guidance()), first[2])
	assert.Equal(t, message.System(cat.Steps[0].Directive()), first[3])

	second := model.requests[1].Chat.Messages()
	assert.Equal(t, message.System(cat.Steps[1].Directive()), lastMessage(model.requests[1].Chat))
	assert.Equal(t, message.User("why?"), second[1], "history carries the first human turn")
	assert.Equal(t, message.Assistant("a"), second[2])

	final := lastMessage(model.requests[2].Chat)
	assert.Equal(t, message.System(SummaryDirective(cat.Response)), final)
	assert.Contains(t, final.Content, "Answer\n\nFindings\nRisks\n\nBye")

	for _, req := range model.requests {
		assert.Equal(t, role.System, lastMessage(req.Chat).Role, "no trailing human turn in hidden mode")
	}
}

func TestRun_Pipeline_ShowThinking(t *testing.T) {
	model := newScriptedModel([]string{"s1"}, []string{"s2"}, []string{"done"})
	var out strings.Builder
	e := New(Options{Model: model, Out: &out})

	snap := snapshot(loadCatalog(t), "analytic")
	snap.ShowThinking = true

	_, err := e.Run(context.Background(), snap, "q")
	require.NoError(t, err)

	assert.Equal(t, "s1\n\ns2\n\ndone", out.String())
}

func TestRun_Pipeline_ZeroSteps(t *testing.T) {
	model := newScriptedModel([]string{"summary"})
	store := history.NewMemoryStore()
	e := New(Options{Model: model, History: store})

	text, err := e.Run(context.Background(), snapshot(loadCatalog(t), "empty"), "q")
	require.NoError(t, err)

	assert.Equal(t, 1, model.calls())
	assert.Equal(t, "summary", text)

	msgs, err := store.Get("s1").Messages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []message.Message{message.User("q"), message.Assistant("summary")}, msgs)
}

func TestRun_Pipeline_FailureResetsReasoner(t *testing.T) {
	model := newScriptedModel([]string{"a"}, []string{"b"}, []string{"c"})
	model.failAt = 1
	store := history.NewMemoryStore()
	resets := 0

	e := New(Options{Model: model, History: store, ResetReasoner: func() { resets++ }})

	_, err := e.Run(context.Background(), snapshot(loadCatalog(t), "analytic"), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelExchange)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, resets)
	assert.Equal(t, 2, model.calls(), "no retries")

	msgs, err := store.Get("s1").Messages(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "the failed exchange is not persisted")
}

func TestRun_StaleReasonerFallsBack(t *testing.T) {
	model := newScriptedModel([]string{"plain"})
	resets := 0
	e := New(Options{Model: model, ResetReasoner: func() { resets++ }})

	text, err := e.Run(context.Background(), snapshot(loadCatalog(t), "removed"), "hi")
	require.NoError(t, err)

	assert.Equal(t, "plain", text)
	assert.Equal(t, 1, model.calls())
	assert.Equal(t, 1, resets)

	assert.Equal(t, message.User("hi"), lastMessage(model.requests[0].Chat))
}

func TestRun_SingleDoesNotReset(t *testing.T) {
	resets := 0
	e := New(Options{Model: newScriptedModel([]string{"x"}), ResetReasoner: func() { resets++ }})

	_, err := e.Run(context.Background(), snapshot(nil, ""), "hi")
	require.NoError(t, err)
	assert.Zero(t, resets)
}

func TestRun_RendersFinalAnswer(t *testing.T) {
	model := newScriptedModel([]string{"hid"}, []string{"den"}, []string{"fin", "al"})
	var out strings.Builder
	e := New(Options{Model: model, Out: &out, Render: upperRenderer{}})

	text, err := e.Run(context.Background(), snapshot(loadCatalog(t), "analytic"), "q")
	require.NoError(t, err)

	assert.Equal(t, "hid\nden\nfinal", text)
	assert.Equal(t, "Thinking....\n\nThinking....\n\nFINAL", out.String())
}
