// Autoprompt is a terminal chat client for a local Ollama server. Each turn
// is either answered directly or, when a reasoner is selected, expanded into
// hidden reasoning steps from a prompt catalog followed by a summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/germanamz/autoprompt/pkg/catalog"
	"github.com/germanamz/autoprompt/pkg/command"
	"github.com/germanamz/autoprompt/pkg/config"
	"github.com/germanamz/autoprompt/pkg/display"
	"github.com/germanamz/autoprompt/pkg/history"
	"github.com/germanamz/autoprompt/pkg/logging"
	"github.com/germanamz/autoprompt/pkg/providers/ollama"
	"github.com/germanamz/autoprompt/pkg/session"
)

const initHint = "Make sure Ollama is running if you're using local models."

// errInit marks a start-up failure that was already reported.
var errInit = errors.New("initialization failed")

type flags struct {
	config    string
	env       string
	catalog   string
	model     string
	sessionID string
	noColor   bool
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errInit) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "autoprompt",
		Short:         "Chat with a local Ollama model, optionally through a reasoning pipeline",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), in, out, f, cmd.Flags().Changed("config"))
		},
	}

	fl := root.Flags()
	fl.StringVar(&f.config, "config", "autoprompt.yaml", "path to configuration file (ignored if missing unless set)")
	fl.StringVar(&f.env, "env", ".env", "path to .env file (ignored if missing)")
	fl.StringVar(&f.catalog, "catalog", "", "prompt catalog to load at start (overrides config)")
	fl.StringVar(&f.model, "model", "", "model to chat with (overrides config)")
	fl.StringVar(&f.sessionID, "session", "", "history session id (default: a new random id)")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored output")

	return root
}

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// app is everything a chat session needs once start-up succeeded.
type app struct {
	repl    *repl
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer, f flags, configSet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	st := newStyles(out, f.noColor)

	a, err := setup(ctx, out, f, configSet, st)
	if err != nil {
		fmt.Fprintf(out, "Failed to initialize: %v\n%s\n", err, initHint)
		return errInit
	}
	defer a.close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	interrupts := make(chan struct{})
	go forwardInterrupts(ctx, sig, interrupts)

	a.repl.in = in
	a.repl.interrupts = interrupts

	return a.repl.run(ctx)
}

func forwardInterrupts(ctx context.Context, sig <-chan os.Signal, out chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// setup loads configuration and wires the session. Every failure here is a
// start-up failure.
func setup(ctx context.Context, out io.Writer, f flags, configSet bool, st styles) (*app, error) {
	if err := loadDotEnv(f.env); err != nil {
		return nil, err
	}

	load := config.LoadOptional
	if configSet {
		load = config.Load
	}
	cfg, err := load(f.config)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if f.catalog != "" {
		cfg.Catalog = f.catalog
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cat := catalog.Empty()
	if cfg.Catalog != "" {
		if cat, err = catalog.Load(cfg.Catalog); err != nil {
			return nil, err
		}
	}

	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	log, err := openLogger(cfg, a)
	if err != nil {
		return nil, err
	}

	store, err := history.OpenSQLite(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	var render display.Renderer
	if cfg.Markdown {
		md, err := display.NewMarkdown(100)
		if err != nil {
			return nil, err
		}
		render = md
	}

	id := f.sessionID
	if id == "" {
		id = uuid.NewString()
	}

	client := ollama.New(cfg.Ollama.BaseURL)
	probe(ctx, client, out, st, log)

	sess, err := session.New(cfg.Settings(id), session.Options{
		Catalog: cat,
		Model:   client,
		History: store,
		Out:     out,
		Logger:  log,
		Render:  render,
	})
	if err != nil {
		return nil, err
	}

	d := command.NewDispatcher(out)
	command.Builtins(d, sess, client)

	log.Info("session started",
		"session", id,
		"model", cfg.Model,
		"ollama", client.BaseURL,
		"reasoners", cat.Len(),
	)

	a.repl = &repl{
		out:        out,
		dispatcher: d,
		session:    sess,
		styles:     st,
		log:        log,
		model:      cfg.Model,
	}

	ok = true
	return a, nil
}

func openLogger(cfg config.Config, a *app) (*slog.Logger, error) {
	if logging.Disabled(cfg.LogLevel) || cfg.LogFile == "" {
		return logging.Nop(), nil
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	a.closers = append(a.closers, file.Close)

	return logging.New(file, level), nil
}

// probe warns when the Ollama server cannot be reached. Chatting will fail
// until it is, but local commands still work.
func probe(ctx context.Context, client *ollama.Adapter, out io.Writer, st styles, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := client.List(ctx); err != nil {
		log.Warn("ollama unreachable", "url", client.BaseURL, "error", err)
		fmt.Fprintln(out, st.warn.Render(fmt.Sprintf("Could not reach Ollama at %s. %s", client.BaseURL, initHint)))
	}
}
