package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Standard", cfg.Keyboard.Layout)
	assert.False(t, cfg.SelectPhraseAfterCursor())
	assert.False(t, cfg.Store.Enabled)
}

func TestValidateRejectsUnknownLayout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Keyboard.Layout = "Dvorak"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyboard.layout")
}

func TestValidateRejectsBadSelectPhrase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Candidates.SelectPhrase = "around_cursor"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidates.select_phrase")
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Format = "xml"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresStorePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Enabled = true
	cfg.Store.Path = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[keyboard]
layout = "ETen"

[candidates]
select_phrase = "after_cursor"
move_cursor_after_selection = true

[features]
phrase_replacement_enabled = true

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ETen", cfg.Keyboard.Layout)
	assert.True(t, cfg.SelectPhraseAfterCursor())
	assert.True(t, cfg.Candidates.MoveCursorAfterSelection)
	assert.True(t, cfg.Features.PhraseReplacementEnabled)
	assert.False(t, cfg.Features.ExternalConverterEnabled)

	// Sections omitted from the file keep their defaults.
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[keyboard]\nlayout = \"Colemak\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
