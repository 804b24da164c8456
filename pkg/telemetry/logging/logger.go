package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"astraguard/aegis/pkg/config"
)

// Format selects the log encoding.
type Format string

const (
	// FormatJSON outputs logs as one JSON object per line (the default).
	FormatJSON Format = "json"
	// FormatText outputs logs in slog's key=value text form.
	FormatText Format = "text"
)

// Config contains logger construction settings. It mirrors the telemetry
// logging section of the application configuration and adds test hooks.
type Config struct {
	// Level is the minimum level to log ("debug", "info", "warn", "error").
	Level string

	// Format is the output encoding ("json", "text").
	Format string

	// Output selects the destination ("stderr", "stdout"). Ignored when
	// Writer is set.
	Output string

	// AddSource includes file:line in every record.
	AddSource bool

	// Writer overrides Output with an explicit destination. Tests use this
	// to capture records.
	Writer io.Writer
}

// FromConfig converts the application logging configuration.
func FromConfig(c config.LoggingConfig) Config {
	return Config{
		Level:  c.Level,
		Format: c.Format,
		Output: c.Output,
	}
}

// New builds a structured logger from the configuration. The logger writes
// synchronously; the decision path only logs at debug level, so there is no
// buffering layer between the engine and the handler.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		switch cfg.Output {
		case "stdout":
			writer = os.Stdout
		default:
			writer = os.Stderr
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler), nil
}

// Setup builds the logger and installs it as the process default, so that
// packages constructing components with a nil logger inherit it.
func Setup(cfg Config) (*slog.Logger, error) {
	logger, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// Component returns a child logger tagged with the component name. Every
// subsystem logs under its own component field ("policy.engine",
// "mission.statemachine", "audit.recorder", ...).
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}

// ParseLevel parses a log level string into a slog.Level. An empty string
// means info.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// ParseFormat parses a log format string. An empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "JSON", "":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", s)
	}
}
