package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/germanamz/autoprompt/pkg/modeladapter/usage"
	"github.com/germanamz/autoprompt/pkg/providers/ollama"
)

// OllamaClient is the model management surface behind /ollama.
type OllamaClient interface {
	Pull(ctx context.Context, model string, progress func(ollama.PullProgress)) error
	List(ctx context.Context) ([]ollama.Model, error)
	Running(ctx context.Context) ([]ollama.RunningModel, error)
	UsageTracker() *usage.Tracker
}

var _ OllamaClient = (*ollama.Adapter)(nil)

type subcommand struct {
	name    string
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, out io.Writer, c OllamaClient, args []string) error
}

var ollamaSubcommands = []subcommand{
	{name: "help", help: "Show this help message"},
	{name: "pull", usage: "<model>", help: "Pulls an Ollama image", minArgs: 1, run: ollamaPull},
	{name: "list", help: "Lists installed models", run: ollamaList},
	{name: "ps", help: "Lists models loaded in memory", run: ollamaPs},
	{name: "usage", help: "Shows token usage of this session", run: ollamaUsage},
}

func runOllama(ctx context.Context, out io.Writer, c OllamaClient, args []string) error {
	if len(args) == 0 {
		_, err := fmt.Fprint(out, ollamaHelp())
		return err
	}

	for _, sc := range ollamaSubcommands {
		if sc.name != args[0] {
			continue
		}
		if sc.run == nil {
			_, err := fmt.Fprint(out, ollamaHelp())
			return err
		}
		if len(args)-1 < sc.minArgs {
			_, _ = fmt.Fprintf(out, "Usage: /ollama %s %s\n", sc.name, sc.usage)
			return fmt.Errorf("ollama %s: %w", sc.name, ErrUsage)
		}
		if c == nil {
			return fmt.Errorf("ollama %s: no server configured", sc.name)
		}
		return sc.run(ctx, out, c, args[1:])
	}

	_, _ = fmt.Fprintln(out, UnknownMessage)
	return fmt.Errorf("ollama %q: %w", args[0], ErrUnknownCommand)
}

func ollamaHelp() string {
	rows := make([][2]string, len(ollamaSubcommands))
	for i, sc := range ollamaSubcommands {
		left := "/ollama " + sc.name
		if sc.usage != "" {
			left += " " + sc.usage
		}
		rows[i] = [2]string{left, sc.help}
	}
	return columns(rows) + "\n"
}

func ollamaPull(ctx context.Context, out io.Writer, c OllamaClient, args []string) error {
	model := args[0]
	last := ""

	err := c.Pull(ctx, model, func(p ollama.PullProgress) {
		if p.Total > 0 {
			_, _ = fmt.Fprintf(out, "\r%s %3d%%", p.Status, p.Completed*100/p.Total)
			last = ""
			return
		}
		if p.Status != last {
			_, _ = fmt.Fprintf(out, "\n%s", p.Status)
			last = p.Status
		}
	})
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "Pulled %s\n", model)
	return err
}

func ollamaList(ctx context.Context, out io.Writer, c OllamaClient, _ []string) error {
	models, err := c.List(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		_, err := fmt.Fprintln(out, "No models installed.")
		return err
	}

	rows := make([][2]string, len(models))
	for i, m := range models {
		rows[i] = [2]string{m.Name, fmt.Sprintf("%-8s %s", fmtBytes(m.Size), m.Details.ParameterSize)}
	}
	_, err = fmt.Fprint(out, columns(rows))
	return err
}

func ollamaPs(ctx context.Context, out io.Writer, c OllamaClient, _ []string) error {
	models, err := c.Running(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		_, err := fmt.Fprintln(out, "No models loaded.")
		return err
	}

	rows := make([][2]string, len(models))
	for i, m := range models {
		rows[i] = [2]string{m.Name, fmt.Sprintf("%-8s vram %-8s until %s",
			fmtBytes(m.Size), fmtBytes(m.SizeVRAM), m.ExpiresAt.Format(time.Kitchen))}
	}
	_, err = fmt.Fprint(out, columns(rows))
	return err
}

func ollamaUsage(_ context.Context, out io.Writer, c OllamaClient, _ []string) error {
	tr := c.UsageTracker()
	total := tr.Total()

	last, ok := tr.Last()
	if !ok {
		_, err := fmt.Fprintln(out, "No exchanges yet.")
		return err
	}

	_, err := fmt.Fprintf(out, "last: ↑%s ↓%s · total: ↑%s ↓%s · exchanges: %d · %s\n",
		fmtTokens(last.PromptTokens),
		fmtTokens(last.CompletionTokens),
		fmtTokens(total.PromptTokens),
		fmtTokens(total.CompletionTokens),
		tr.Count(),
		fmtDuration(total.Duration),
	)
	return err
}
