// Package reasoning runs one user turn against a model, either as a single
// exchange or as a reasoning pipeline: every step of the active category is
// sent as a hidden exchange and a final exchange asks the model to summarize
// the hidden steps for the user.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/germanamz/autoprompt/pkg/catalog"
	"github.com/germanamz/autoprompt/pkg/chats/message"
	"github.com/germanamz/autoprompt/pkg/display"
	"github.com/germanamz/autoprompt/pkg/history"
	"github.com/germanamz/autoprompt/pkg/modeladapter"
	"github.com/germanamz/autoprompt/pkg/prompt"
)

// ErrModelExchange wraps every failure of a model exchange.
var ErrModelExchange = errors.New("model exchange failed")

// Snapshot is the immutable view of the session a run reads from.
type Snapshot struct {
	SessionID    string
	Model        string
	Temperature  float64
	MaxTokens    int
	ShowThinking bool
	Reasoner     string // Empty means single-turn mode.
	Catalog      *catalog.Catalog
}

// Options configures an Engine.
type Options struct {
	Model   modeladapter.Streamer
	History history.Store
	Out     io.Writer        // Fragment echo (default io.Discard).
	Logger  *slog.Logger     // Default discards.
	Render  display.Renderer // Optional. Renders the final answer instead of echoing it raw.

	// ResetReasoner is called after every run that had an active reasoner,
	// whether it succeeded or not.
	ResetReasoner func()
}

// Engine executes turns. It keeps no per-turn state, so concurrent runs for
// different sessions are safe as long as the collaborators are.
type Engine struct {
	model   modeladapter.Streamer
	history history.Store
	out     io.Writer
	log     *slog.Logger
	render  display.Renderer
	reset   func()
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		model:   opts.Model,
		history: opts.History,
		out:     opts.Out,
		log:     opts.Logger,
		render:  opts.Render,
		reset:   opts.ResetReasoner,
	}

	if e.history == nil {
		e.history = history.NewMemoryStore()
	}
	if e.out == nil {
		e.out = io.Discard
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	if e.reset == nil {
		e.reset = func() {}
	}

	return e
}

// Run executes one turn and returns its transcript. With an active reasoner
// the transcript holds every hidden step followed by the summary, joined by
// a newline; callers that are not the console must treat it as containing
// hidden reasoning.
func (e *Engine) Run(ctx context.Context, snap Snapshot, input string) (string, error) {
	if snap.Catalog == nil {
		snap.Catalog = catalog.Empty()
	}

	if snap.Reasoner == "" {
		return e.single(ctx, snap, input)
	}

	defer e.reset()

	directives, err := snap.Catalog.Steps(snap.Reasoner)
	if errors.Is(err, catalog.ErrCategoryNotFound) {
		e.log.WarnContext(ctx, "reasoner not in catalog, answering directly",
			"reasoner", snap.Reasoner,
			"session", snap.SessionID,
		)
		return e.single(ctx, snap, input)
	}
	if err != nil {
		return "", fmt.Errorf("reasoning: %w", err)
	}

	cat, err := snap.Catalog.Category(snap.Reasoner)
	if err != nil {
		return "", fmt.Errorf("reasoning: %w", err)
	}

	return e.pipeline(ctx, snap, cat, directives, input)
}

func (e *Engine) single(ctx context.Context, snap Snapshot, input string) (string, error) {
	tmpl := prompt.Build(prompt.Options{Global: snap.Catalog.Global.Guidance()})

	return e.final(ctx, snap, tmpl, prompt.Values{Input: input}, 0, "single")
}

func (e *Engine) pipeline(ctx context.Context, snap Snapshot, cat catalog.Category, directives []string, input string) (string, error) {
	tmpl := prompt.Build(prompt.Options{
		Global:   snap.Catalog.Global.Guidance(),
		Guidance: cat.Guidance(),
		Hidden:   true,
	})

	fragments := make([]string, 0, len(directives)+1)

	for i, d := range directives {
		v := prompt.Values{Directive: d}
		if i == 0 {
			v.Input = input
		}

		text, err := e.exchange(ctx, snap, tmpl, v, e.thinkingOut(snap), i, "hidden")
		if err != nil {
			return "", err
		}
		_, _ = io.WriteString(e.out, "\n\n")

		fragments = append(fragments, text)
	}

	summary := prompt.Values{Directive: SummaryDirective(cat.Response)}
	if len(directives) == 0 {
		summary.Input = input
	}

	text, err := e.final(ctx, snap, tmpl, summary, len(directives), "summary")
	if err != nil {
		return "", err
	}

	fragments = append(fragments, text)

	return strings.Join(fragments, "\n"), nil
}

// final runs the user-facing exchange. With a renderer the raw stream is not
// echoed and the rendered answer is written once it is complete.
func (e *Engine) final(ctx context.Context, snap Snapshot, tmpl prompt.Template, v prompt.Values, step int, mode string) (string, error) {
	if e.render == nil {
		return e.exchange(ctx, snap, tmpl, v, echo{w: e.out, visible: true}, step, mode)
	}

	text, err := e.exchange(ctx, snap, tmpl, v, echo{w: io.Discard, visible: true}, step, mode)
	if err != nil {
		return "", err
	}

	_, _ = io.WriteString(e.out, e.render.Render(text))

	return text, nil
}

type echo struct {
	w       io.Writer
	visible bool
}

func (e *Engine) thinkingOut(snap Snapshot) echo {
	return echo{w: e.out, visible: snap.ShowThinking}
}

// exchange sends one rendered prompt, echoes its fragments and, once the
// stream completes, appends the human turn (if any) and the reply to the
// session history.
func (e *Engine) exchange(ctx context.Context, snap Snapshot, tmpl prompt.Template, v prompt.Values, out echo, step int, mode string) (string, error) {
	h := e.history.Get(snap.SessionID)

	past, err := h.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("reasoning: step %d: %w", step, err)
	}

	req := modeladapter.Request{
		Chat:        tmpl.Render(past, v),
		Model:       snap.Model,
		Temperature: snap.Temperature,
		MaxTokens:   snap.MaxTokens,
	}

	start := time.Now()

	var (
		b     strings.Builder
		count int
	)

	for frag, err := range display.Echo(out.w, out.visible, e.model.Stream(ctx, req)) {
		if err != nil {
			e.log.ErrorContext(ctx, "exchange failed",
				"step", step,
				"mode", mode,
				"error", err,
			)
			return "", fmt.Errorf("reasoning: step %d: %w: %w", step, ErrModelExchange, err)
		}
		b.WriteString(frag)
		count++
	}

	text := b.String()

	msgs := append(tmpl.Pending(v), message.Assistant(text))
	if err := h.Append(ctx, msgs...); err != nil {
		return "", fmt.Errorf("reasoning: step %d: %w", step, err)
	}

	e.log.DebugContext(ctx, "exchange finished",
		"step", step,
		"mode", mode,
		"fragments", count,
		"duration", time.Since(start),
	)

	return text, nil
}

// SummaryDirective renders the instruction of the final exchange of a
// reasoning run from the category's response template.
func SummaryDirective(t catalog.ResponseTemplate) string {
	var b strings.Builder

	b.WriteString("Everything prior to this point was your thought only, and the user is not aware of it. ")
	b.WriteString("Loosely use the following template to summarize your findings and inform the user:\n")
	b.WriteString(t.Header)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(t.Sections, "\n"))
	b.WriteString("\n\n")
	b.WriteString(t.Closing)
	b.WriteString("\n\nInclude relevant information from before, remember that the user was not aware of any thoughts")

	return b.String()
}
