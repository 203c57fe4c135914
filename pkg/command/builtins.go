package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/germanamz/autoprompt/pkg/catalog"
	"github.com/germanamz/autoprompt/pkg/session"
)

// Session is the part of session.Controller the commands drive.
type Session interface {
	Info() string
	ClearHistory(ctx context.Context) error
	UpdateSettings(partial map[string]any) error
	SetReasoner(name string) error
	Reasoners() []string
	LoadCatalog(path string) (string, error)
}

// Builtins registers the full command set on d. ollama may be nil, in which
// case /ollama reports that no server is configured.
func Builtins(d *Dispatcher, s Session, ollama OllamaClient) {
	out := d.Out()

	setting := func(key string, value any) error {
		if err := s.UpdateSettings(map[string]any{key: value}); err != nil {
			return err
		}
		printInfo(out, s)
		return nil
	}

	d.Register(
		Command{
			Name: Help,
			Help: "Show this help message",
			Run: func(_ context.Context, _ []string) error {
				_, err := fmt.Fprintln(out, d.HelpText())
				return err
			},
		},
		Command{
			Name: Info,
			Help: "Show information about the current model",
			Run: func(_ context.Context, _ []string) error {
				printInfo(out, s)
				return nil
			},
		},
		Command{
			Name: Clear,
			Help: "Clear the conversation history",
			Run: func(ctx context.Context, _ []string) error {
				if err := s.ClearHistory(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprint(out, "\nChat history cleared.\n\n")
				return err
			},
		},
		Command{
			Name:    Model,
			Usage:   "<model>",
			Help:    "Change the LLM model",
			MinArgs: 1,
			Run: func(_ context.Context, args []string) error {
				return setting(session.KeyModel, args[0])
			},
		},
		Command{
			Name:    Temp,
			Usage:   "<0.1-1.0>",
			Help:    "Set temperature",
			MinArgs: 1,
			Run: func(_ context.Context, args []string) error {
				return setting(session.KeyTemperature, args[0])
			},
		},
		Command{
			Name:    MaxTokens,
			Usage:   "<value>",
			Help:    "Set maximum tokens",
			MinArgs: 1,
			Run: func(_ context.Context, args []string) error {
				return setting(session.KeyMaxTokens, args[0])
			},
		},
		Command{
			Name:    ShowThink,
			Usage:   "<bool>",
			Help:    "Show thinking or not",
			MinArgs: 1,
			Run: func(_ context.Context, args []string) error {
				return setting(session.KeyShowThinking, ParseShowThinking(args[0]))
			},
		},
		Command{
			Name:    Reasoner,
			Usage:   "<reasoner>",
			Help:    "Set the current reasoner",
			MinArgs: 1,
			Run: func(_ context.Context, args []string) error {
				err := s.SetReasoner(args[0])
				if errors.Is(err, catalog.ErrCategoryNotFound) {
					_, _ = fmt.Fprintln(out, "Reasoner not found.")
					return nil
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "Reasoner set to: %s\n", args[0])
				return err
			},
		},
		Command{
			Name: Reasoners,
			Help: "Lists available reasoners",
			Run: func(_ context.Context, _ []string) error {
				_, err := fmt.Fprint(out, strings.Join(s.Reasoners(), "\n")+"\n\n")
				return err
			},
		},
		Command{
			Name:    Prompt,
			Usage:   "<path>",
			Help:    "Loads a prompt file",
			MinArgs: 1,
			Run: func(_ context.Context, args []string) error {
				diff, err := s.LoadCatalog(args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Loaded prompt file %s\n", args[0])
				if diff != "" {
					_, _ = fmt.Fprint(out, diff)
				}
				return nil
			},
		},
		Command{
			Name:  Ollama,
			Usage: "<subcommand>",
			Help:  "Manages the ollama instance",
			Run: func(ctx context.Context, args []string) error {
				return runOllama(ctx, out, ollama, args)
			},
		},
		Command{
			Name: Exit,
			Help: "Exit the chat",
		},
	)
}

// ParseShowThinking reads a show-thinking argument: anything starting with
// "t" (any case) is true, everything else false.
func ParseShowThinking(arg string) bool {
	return strings.HasPrefix(strings.ToLower(arg), "t")
}

func printInfo(out io.Writer, s Session) {
	_, _ = fmt.Fprintf(out, "\n%s\n\n", s.Info())
}
