package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat(""))
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	log.Info("loaded", "path", "primary.txt")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "primary.txt", entry["path"])
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Component("loader").Info("ready")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "loader", entry["component"])
}
