/*
Package logging
File: logging.go
Description:
    Sets up the two log channels used across the module:
    - Game: operational log. Info and above to the console, everything to
      an optional log file.
    - UI: player-facing messages. Only errors and info notices that a
      server operator should see; records are handed to a Notifier, which
      the companion process routes to HUD clients.

    Both channels are plain *slog.Logger values so packages never depend on
    a concrete sink.
*/

package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
)

// Notifier receives UI channel records.
type Notifier func(level slog.Level, msg string)

// Config selects the sinks for New.
type Config struct {
	Console      io.Writer  // Defaults to os.Stdout
	ConsoleLevel slog.Level // Minimum level written to Console
	FilePath     string     // Optional debug log file
	UILevel      slog.Level // Minimum level forwarded to Notify
	Notify       Notifier   // Optional; UI records are dropped without it
	ModName      string     // Attached to every Game record
}

// Channels bundles the two loggers.
type Channels struct {
	Game *slog.Logger
	UI   *slog.Logger
}

// Discard returns channels that drop everything. Used by tests and as the
// zero-config default.
func Discard() Channels {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Channels{Game: l, UI: l}
}

// New builds both channels. The returned closer releases the log file.
func New(cfg Config) (Channels, func() error, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: cfg.ConsoleLevel}),
	}

	closer := func() error { return nil }
	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return Channels{}, closer, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f.Close
	}

	game := slog.New(fanout(handlers))
	if cfg.ModName != "" {
		game = game.With("mod", cfg.ModName)
	}

	ui := slog.New(&notifyHandler{level: cfg.UILevel, notify: cfg.Notify})
	return Channels{Game: game, UI: ui}, closer, nil
}

// fanoutHandler writes each record to every child handler.
type fanoutHandler []slog.Handler

func fanout(hs []slog.Handler) slog.Handler {
	if len(hs) == 1 {
		return hs[0]
	}
	return fanoutHandler(hs)
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// notifyHandler forwards only the message; attributes are for the game log.
type notifyHandler struct {
	level  slog.Level
	notify Notifier
}

func (h *notifyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.notify != nil && level >= h.level
}

func (h *notifyHandler) Handle(_ context.Context, r slog.Record) error {
	h.notify(r.Level, r.Message)
	return nil
}

func (h *notifyHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *notifyHandler) WithGroup(string) slog.Handler      { return h }
