package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/germanamz/autoprompt/pkg/command"
)

// Submitter runs one chat turn.
type Submitter interface {
	Submit(ctx context.Context, input string) (string, error)
}

// repl is the line-oriented chat loop. Lines are read in a separate
// goroutine so interrupts are noticed while waiting for input, and every
// turn runs in its own goroutine that the loop waits for before reading the
// next line.
type repl struct {
	in         io.Reader
	out        io.Writer
	dispatcher *command.Dispatcher
	session    Submitter
	interrupts <-chan struct{}
	styles     styles
	log        *slog.Logger
	model      string // Shown in the banner.

	// armed is set by an interrupt and cleared by the next input line. It
	// spans turns and prompts, so an interrupt during a turn followed by
	// one at the prompt exits.
	armed bool
}

type lineResult struct {
	line string
	err  error
}

// run drives the loop until /exit, end of input, two consecutive
// interrupts or ctx cancellation.
func (r *repl) run(ctx context.Context) error {
	r.banner()

	done := make(chan struct{})
	defer close(done)

	lines := r.readLines(done)

	for {
		r.print(r.styles.prompt.Render("You:") + " ")

		select {
		case <-ctx.Done():
			r.print("\n")
			return nil

		case <-r.interrupts:
			if r.interrupt() {
				return nil
			}

		case res, ok := <-lines:
			if !ok {
				r.print("\n")
				return nil
			}
			if res.err != nil {
				return fmt.Errorf("read input: %w", res.err)
			}
			r.armed = false

			if exit := r.handle(ctx, res.line); exit {
				return nil
			}
		}
	}
}

// handle processes one input line and reports whether the loop must stop.
func (r *repl) handle(ctx context.Context, line string) bool {
	res, err := r.dispatcher.Dispatch(ctx, line)
	if err != nil && !command.Reported(err) {
		r.error(err)
	}

	switch res {
	case command.ExitRequested:
		return true
	case command.Handled:
		return false
	}

	if strings.TrimSpace(line) == "" {
		return false
	}

	r.print("\n" + r.styles.answer.Render("AI:") + " ")

	exit := r.turn(ctx, line)
	r.print("\n\n")

	return exit
}

// turn runs one submission in its own goroutine and waits for it. An
// interrupt does not cancel the run; a second one with no input since
// abandons it and ends the session.
func (r *repl) turn(ctx context.Context, input string) bool {
	result := make(chan error, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				result <- fmt.Errorf("turn panicked: %v", p)
			}
		}()

		_, err := r.session.Submit(ctx, input)
		result <- err
	}()

	for {
		select {
		case err := <-result:
			if err != nil {
				r.log.ErrorContext(ctx, "turn failed", "error", err)
				r.error(err)
			}
			return false

		case <-r.interrupts:
			if r.interrupt() {
				r.log.WarnContext(ctx, "abandoning in-flight turn")
				return true
			}

		case <-ctx.Done():
			return true
		}
	}
}

// interrupt prints the exit hint and reports whether this is the second
// interrupt since the last input line.
func (r *repl) interrupt() bool {
	r.print("\n" + r.styles.dim.Render("Use /exit to quit or /help for commands") + "\n")
	if r.armed {
		return true
	}
	r.armed = true
	return false
}

// readLines scans r.in until EOF. The goroutine stops early once done is
// closed.
func (r *repl) readLines(done <-chan struct{}) <-chan lineResult {
	out := make(chan lineResult)

	go func() {
		defer close(out)

		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case out <- lineResult{line: sc.Text()}:
			case <-done:
				return
			}
		}

		if err := sc.Err(); err != nil {
			select {
			case out <- lineResult{err: err}:
			case <-done:
			}
		}
	}()

	return out
}

func (r *repl) banner() {
	r.print("\n" + r.styles.banner.Render("Welcome to the AutoPrompt CLI!") + "\n")
	r.print("Current model: " + r.model + "\n")
	r.print(r.styles.dim.Render("Type your message or /help for commands") + "\n\n")
}

func (r *repl) error(err error) {
	r.print("\n" + r.styles.err.Render("An error occurred: "+err.Error()) + "\n")
}

func (r *repl) print(s string) {
	_, _ = io.WriteString(r.out, s)
}
