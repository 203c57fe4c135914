// Package logging builds the application logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Off disables logging when used as a level name.
const Off = "off"

// New creates a text logger writing to w. The "error" attribute key is
// renamed to "err".
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel reads a level name. Off parses as a level above error; callers
// check Disabled to skip opening a log file at all.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case Off:
		return slog.LevelError + 4, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", name)
	}
}

// Disabled reports whether name turns logging off.
func Disabled(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), Off)
}
