// Package logging provides structured logging with slog for bopokit.
//
// Features:
//   - JSON and text output formats
//   - Log levels (debug, info, warn, error)
//   - Component loggers
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the output format for logs.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON-structured logs.
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the output format (text or JSON).
	Format Format

	// Output is where logs are written; stderr if nil.
	Output io.Writer
}

// DefaultConfig returns info-level text logging to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: FormatText}
}

var (
	mu      sync.RWMutex
	current = New(DefaultConfig())
)

// New creates a logger from the config.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Init replaces the package-level logger.
func Init(cfg Config) {
	mu.Lock()
	current = New(cfg)
	mu.Unlock()
}

// Default returns the package-level logger.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Component returns a child of the package-level logger tagged with a
// component name.
func Component(name string) *slog.Logger {
	return Default().With("component", name)
}

// ParseLevel converts a level name to a Level; unknown names are info.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat converts a format name to a Format; unknown names are text.
func ParseFormat(name string) Format {
	if strings.EqualFold(name, "json") {
		return FormatJSON
	}
	return FormatText
}
