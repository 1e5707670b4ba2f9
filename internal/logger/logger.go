// ABOUTME: Structured logging for vidchat built on log/slog
// ABOUTME: Uses charmbracelet/log for pretty CLI output, slog JSON/text handlers otherwise
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Formats accepted by WithFormat
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatText   = "text"
)

type config struct {
	level   slog.Level
	format  string
	writers []io.Writer
	prefix  string
}

// Option configures a logger created with New
type Option func(*config)

// WithLevel sets the minimum level that is emitted
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithVerbosity maps the CLI --verbose/--quiet flags to a level
func WithVerbosity(verbose, quiet bool) Option {
	return func(c *config) {
		switch {
		case verbose:
			c.level = slog.LevelDebug
		case quiet:
			c.level = slog.LevelWarn
		default:
			c.level = slog.LevelInfo
		}
	}
}

// WithFormat selects pretty, json or text output. Unknown values fall back to pretty.
func WithFormat(format string) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithWriter overrides the output writer. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithPrefix sets a prefix shown by the pretty handler
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// New builds a *slog.Logger from the given options
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:   slog.LevelInfo,
		format:  FormatPretty,
		writers: []io.Writer{os.Stderr},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var w io.Writer
	if len(cfg.writers) == 1 {
		w = cfg.writers[0]
	} else {
		w = io.MultiWriter(cfg.writers...)
	}

	switch cfg.format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.level}))
	case FormatText:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.level}))
	default:
		handler := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(cfg.level),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          cfg.prefix,
		})
		return slog.New(handler)
	}
}

// Nop returns a logger that discards everything
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
