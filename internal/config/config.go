// Package config handles configuration loading and validation for bopokit.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds the complete engine configuration.
type Config struct {
	// Keyboard configuration for the reading accumulator.
	Keyboard KeyboardConfig `toml:"keyboard"`

	// Candidates configuration for candidate selection behavior.
	Candidates CandidatesConfig `toml:"candidates"`

	// Features toggles for the language model pipeline.
	Features FeaturesConfig `toml:"features"`

	// Dictionaries configuration for the loader.
	Dictionaries DictionariesConfig `toml:"dictionaries"`

	// Store configuration for override persistence.
	Store StoreConfig `toml:"store"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// KeyboardConfig selects the Bopomofo keyboard layout.
type KeyboardConfig struct {
	// Layout is "Standard" or "ETen".
	Layout string `toml:"layout"`
}

// CandidatesConfig controls how the candidate list anchors to the cursor.
type CandidatesConfig struct {
	// SelectPhrase is "before_cursor" or "after_cursor".
	SelectPhrase string `toml:"select_phrase"`

	// MoveCursorAfterSelection moves the grid cursor past the node
	// selected from the candidate list.
	MoveCursorAfterSelection bool `toml:"move_cursor_after_selection"`
}

// FeaturesConfig toggles optional language model pipeline stages.
type FeaturesConfig struct {
	// PhraseReplacementEnabled turns on the phrase replacement table.
	PhraseReplacementEnabled bool `toml:"phrase_replacement_enabled"`

	// ExternalConverterEnabled turns on the external value converter.
	ExternalConverterEnabled bool `toml:"external_converter_enabled"`
}

// DictionariesConfig points the loader at its data files.
type DictionariesConfig struct {
	// ManifestPath is the JSON manifest listing the dictionary files.
	ManifestPath string `toml:"manifest_path"`
}

// StoreConfig controls persistence of learned overrides.
type StoreConfig struct {
	// Enabled turns on the SQLite override store.
	Enabled bool `toml:"enabled"`

	// Path is the SQLite database path.
	Path string `toml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `toml:"level"`

	// Format is text or json.
	Format string `toml:"format"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Keyboard: KeyboardConfig{Layout: "Standard"},
		Candidates: CandidatesConfig{
			SelectPhrase:             "before_cursor",
			MoveCursorAfterSelection: false,
		},
		Features: FeaturesConfig{},
		Store: StoreConfig{
			Path: filepath.Join(PlatformDataDir(), "overrides.db"),
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a TOML config file over the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Keyboard.Layout {
	case "Standard", "standard", "ETen", "eten":
	default:
		return fmt.Errorf("keyboard.layout: unknown layout %q", c.Keyboard.Layout)
	}

	switch c.Candidates.SelectPhrase {
	case "before_cursor", "after_cursor":
	default:
		return fmt.Errorf("candidates.select_phrase: must be before_cursor or after_cursor, got %q", c.Candidates.SelectPhrase)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format: must be text or json, got %q", c.Logging.Format)
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return errors.New("store.path: required when store.enabled")
	}
	return nil
}

// SelectPhraseAfterCursor reports whether candidates anchor after the
// cursor.
func (c *Config) SelectPhraseAfterCursor() bool {
	return c.Candidates.SelectPhrase == "after_cursor"
}

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/bopokit/
//   - Linux:   ~/.local/share/bopokit/
//   - Windows: %APPDATA%\bopokit\
//
// Falls back to ~/.bopokit if platform detection fails.
func PlatformDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bopokit"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "bopokit")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "bopokit")
		}
		return filepath.Join(home, ".bopokit")
	case "linux":
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, "bopokit")
		}
		return filepath.Join(home, ".local", "share", "bopokit")
	default:
		return filepath.Join(home, ".bopokit")
	}
}
