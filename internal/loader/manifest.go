// Package loader feeds the language model facade from dictionary files:
// it parses the tables, watches the user phrase files for changes, and
// appends learned phrases. The decoding core itself never touches the
// filesystem; this is its loader collaborator.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchema describes the dictionary manifest. Only the primary
// dictionary is required; the user-facing tables are optional.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["primary"],
  "properties": {
    "primary": {"type": "string", "minLength": 1},
    "user_phrases": {"type": "string"},
    "excluded_phrases": {"type": "string"},
    "phrase_replacement": {"type": "string"}
  },
  "additionalProperties": false
}`

// Manifest lists the dictionary files the loader binds to the facade.
// Relative paths resolve against the manifest's own directory.
type Manifest struct {
	Primary           string `json:"primary"`
	UserPhrases       string `json:"user_phrases,omitempty"`
	ExcludedPhrases   string `json:"excluded_phrases,omitempty"`
	PhraseReplacement string `json:"phrase_replacement,omitempty"`
}

// LoadManifest reads and validates a manifest file against the embedded
// schema, then resolves its paths relative to the manifest directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.schema.json", bytes.NewReader([]byte(manifestSchema))); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	m.Primary = resolve(m.Primary)
	m.UserPhrases = resolve(m.UserPhrases)
	m.ExcludedPhrases = resolve(m.ExcludedPhrases)
	m.PhraseReplacement = resolve(m.PhraseReplacement)
	return &m, nil
}
