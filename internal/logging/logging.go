// Package logging builds the slog loggers used by the server and the CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/cirocosta/todos/internal/config"
)

// NewServerLogger returns a text or JSON slog logger writing to w.
func NewServerLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case config.FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case config.FormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// NewCLILogger returns a slog logger backed by charmbracelet/log, leveled
// and colored for people reading a terminal.
func NewCLILogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case config.FormatJSON:
		formatter = log.JSONFormatter
	case config.FormatText, "":
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           log.Level(level),
		Formatter:       formatter,
		ReportTimestamp: false,
		Prefix:          "todos",
	})
	return slog.New(handler), nil
}
