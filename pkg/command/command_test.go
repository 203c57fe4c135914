package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_Exhaustive(t *testing.T) {
	got := Names()
	require.Len(t, got, 12)
	assert.Equal(t, Help, got[0])
	assert.Equal(t, Exit, got[len(got)-1])

	for _, n := range got {
		assert.True(t, Known(n), n)
	}
	assert.False(t, Known("quit"))

	got[0] = "mutated"
	assert.Equal(t, Help, Names()[0])
}

func TestRegister_Panics(t *testing.T) {
	d := NewDispatcher(nil)

	assert.Panics(t, func() { d.Register(Command{Name: "quit"}) })

	d.Register(Command{Name: Info})
	assert.Panics(t, func() { d.Register(Command{Name: Info}) })
}

func TestDispatch_NotCommand(t *testing.T) {
	d := NewDispatcher(nil)

	for _, line := range []string{"hello", "what is /help", ""} {
		res, err := d.Dispatch(context.Background(), line)
		require.NoError(t, err)
		assert.Equal(t, NotCommand, res, line)
	}
}

func TestDispatch_Unknown(t *testing.T) {
	var out strings.Builder
	d := NewDispatcher(&out)
	d.Register(Command{Name: Info, Run: func(context.Context, []string) error { return nil }})

	for _, line := range []string{"/nope", "/", "/  "} {
		out.Reset()

		res, err := d.Dispatch(context.Background(), line)
		assert.Equal(t, Handled, res)
		assert.ErrorIs(t, err, ErrUnknownCommand)
		assert.True(t, Reported(err))
		assert.Equal(t, UnknownMessage+"\n", out.String())
	}
}

func TestDispatch_RoutesArgsCaseInsensitive(t *testing.T) {
	d := NewDispatcher(nil)

	var got []string
	d.Register(Command{Name: Model, MinArgs: 1, Run: func(_ context.Context, args []string) error {
		got = args
		return nil
	}})

	res, err := d.Dispatch(context.Background(), "  /MODEL   mistral  extra ")
	require.NoError(t, err)
	assert.Equal(t, Handled, res)
	assert.Equal(t, []string{"mistral", "extra"}, got)
}

func TestDispatch_MissingArgument(t *testing.T) {
	var out strings.Builder
	d := NewDispatcher(&out)

	called := false
	d.Register(Command{Name: Temp, Usage: "<0.1-1.0>", MinArgs: 1, Run: func(context.Context, []string) error {
		called = true
		return nil
	}})

	res, err := d.Dispatch(context.Background(), "/temp")
	assert.Equal(t, Handled, res)
	assert.ErrorIs(t, err, ErrUsage)
	assert.True(t, Reported(err))
	assert.False(t, called)
	assert.Equal(t, "Usage: /temp <0.1-1.0>\n", out.String())
}

func TestDispatch_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	d := NewDispatcher(nil)
	d.Register(Command{Name: Info, Run: func(context.Context, []string) error { return boom }})

	res, err := d.Dispatch(context.Background(), "/info")
	assert.Equal(t, Handled, res)
	assert.ErrorIs(t, err, boom)
	assert.False(t, Reported(err))
}

func TestDispatch_Exit(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(Command{Name: Exit})

	res, err := d.Dispatch(context.Background(), "/exit")
	require.NoError(t, err)
	assert.Equal(t, ExitRequested, res)

	res, err = d.Dispatch(context.Background(), "/EXIT now")
	require.NoError(t, err)
	assert.Equal(t, ExitRequested, res)
}

func TestHelpText_Aligned(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(
		Command{Name: Exit, Help: "Exit the chat"},
		Command{Name: Info, Help: "Show info"},
		Command{Name: Temp, Usage: "<0.1-1.0>", Help: "Set temperature"},
	)

	lines := strings.Split(strings.TrimRight(d.HelpText(), "\n"), "\n")
	require.Len(t, lines, 3)

	// Listing order, not registration order.
	assert.Equal(t, "/info            Show info", lines[0])
	assert.Equal(t, "/temp <0.1-1.0>  Set temperature", lines[1])
	assert.Equal(t, "/exit            Exit the chat", lines[2])
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "999", fmtTokens(999))
	assert.Equal(t, "1.5k", fmtTokens(1500))
	assert.Equal(t, "2.0M", fmtTokens(2_000_000))

	assert.Equal(t, "512 B", fmtBytes(512))
	assert.Equal(t, "2.0 GB", fmtBytes(2_000_000_000))
}
