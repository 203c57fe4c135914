// Package command routes "/word args..." input lines to a closed set of
// named commands.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
)

var (
	// ErrUnknownCommand is returned for a slash line whose first word is not
	// a registered command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command is missing a required argument.
	ErrUsage = errors.New("missing argument")
)

// UnknownMessage is written for a slash line naming no registered command.
const UnknownMessage = "Unknown command. Type /help for available commands."

// Name identifies a command.
type Name string

// The closed set of commands.
const (
	Help      Name = "help"
	Info      Name = "info"
	Clear     Name = "clear"
	Model     Name = "model"
	Temp      Name = "temp"
	MaxTokens Name = "maxtokens"
	ShowThink Name = "showthink"
	Reasoner  Name = "reasoner"
	Reasoners Name = "reasoners"
	Prompt    Name = "prompt"
	Ollama    Name = "ollama"
	Exit      Name = "exit"
)

var names = []Name{Help, Info, Clear, Model, Temp, MaxTokens, ShowThink, Reasoner, Reasoners, Prompt, Ollama, Exit}

// Names returns every command name in listing order.
func Names() []Name {
	return slices.Clone(names)
}

// Known reports whether n belongs to the command set.
func Known(n Name) bool {
	return slices.Contains(names, n)
}

// Handler runs a command with the words that followed its name.
type Handler func(ctx context.Context, args []string) error

// Command is one entry of a Dispatcher's table.
type Command struct {
	Name    Name
	Usage   string // Argument synopsis, e.g. "<model>".
	Help    string
	MinArgs int
	Run     Handler // May be nil for Exit.
}

// Result tells the caller what Dispatch did with a line.
type Result int

const (
	// NotCommand means the line is not a slash command and should be
	// submitted as a chat turn.
	NotCommand Result = iota
	// Handled means the line was consumed as a command.
	Handled
	// ExitRequested means the line asked to end the session.
	ExitRequested
)

// Reported reports whether Dispatch already wrote a message for err.
func Reported(err error) bool {
	return errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrUsage)
}

// Dispatcher holds the command table. Register every command before the
// first Dispatch; the table is not guarded for concurrent mutation.
type Dispatcher struct {
	out   io.Writer
	table map[Name]Command
}

// NewDispatcher creates a Dispatcher writing its own messages to out.
func NewDispatcher(out io.Writer) *Dispatcher {
	if out == nil {
		out = io.Discard
	}
	return &Dispatcher{out: out, table: make(map[Name]Command)}
}

// Out returns the writer commands report to.
func (d *Dispatcher) Out() io.Writer { return d.out }

// Register adds commands to the table. It panics when a name is outside the
// command set or already registered.
func (d *Dispatcher) Register(cmds ...Command) {
	for _, c := range cmds {
		if !Known(c.Name) {
			panic(fmt.Sprintf("command: register %q: not a known command", c.Name))
		}
		if _, dup := d.table[c.Name]; dup {
			panic(fmt.Sprintf("command: register %q: already registered", c.Name))
		}
		d.table[c.Name] = c
	}
}

// Get returns the registered command for n.
func (d *Dispatcher) Get(n Name) (Command, bool) {
	c, ok := d.table[n]
	return c, ok
}

// Commands returns the registered commands in listing order.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, 0, len(d.table))
	for _, n := range names {
		if c, ok := d.table[n]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Dispatch routes one input line. Lines that do not start with '/' yield
// NotCommand. The first word is matched case-insensitively.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (Result, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return NotCommand, nil
	}

	parts := strings.Fields(line[1:])

	var name Name
	if len(parts) > 0 {
		name = Name(strings.ToLower(parts[0]))
		parts = parts[1:]
	}

	cmd, ok := d.table[name]
	if !ok {
		_, _ = fmt.Fprintln(d.out, UnknownMessage)
		return Handled, fmt.Errorf("command: %q: %w", name, ErrUnknownCommand)
	}

	if cmd.Name == Exit {
		return ExitRequested, nil
	}

	if len(parts) < cmd.MinArgs {
		_, _ = fmt.Fprintf(d.out, "Usage: /%s %s\n", cmd.Name, cmd.Usage)
		return Handled, fmt.Errorf("command: %s: %w", cmd.Name, ErrUsage)
	}

	if cmd.Run == nil {
		return Handled, nil
	}

	if err := cmd.Run(ctx, parts); err != nil {
		return Handled, fmt.Errorf("command: %s: %w", cmd.Name, err)
	}

	return Handled, nil
}

// HelpText lists the registered commands with their synopsis and help in
// aligned columns.
func (d *Dispatcher) HelpText() string {
	cmds := d.Commands()
	rows := make([][2]string, len(cmds))
	for i, c := range cmds {
		rows[i] = [2]string{strings.TrimSpace("/" + string(c.Name) + " " + c.Usage), c.Help}
	}
	return columns(rows)
}

// columns renders two-column rows with the first column padded to its
// widest cell.
func columns(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r[0]))
	}

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(runewidth.FillRight(r[0], width))
		b.WriteString("  ")
		b.WriteString(r[1])
		b.WriteString("\n")
	}
	return b.String()
}
