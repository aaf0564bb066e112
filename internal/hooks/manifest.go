// Package hooks discovers and manages user-defined shell hook handlers
// (§3 "Hook registry", §4.7 "Hook management").
package hooks

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// manifestSchemaJSON validates a HOOK.md manifest's YAML front matter, here
// marshaled to JSON before validation since jsonschema operates on decoded
// JSON values.
const manifestSchemaJSON = `{
  "type": "object",
  "required": ["name", "events", "command"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "events": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "os": {"type": "array", "items": {"type": "string"}},
    "requires_binary": {"type": "array", "items": {"type": "string"}},
    "requires_env": {"type": "array", "items": {"type": "string"}},
    "command": {"type": "string", "minLength": 1}
  }
}`

var manifestSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("hook-manifest.json", strings.NewReader(manifestSchemaJSON)); err != nil {
		panic("hooks: invalid embedded manifest schema: " + err.Error())
	}
	schema, err := compiler.Compile("hook-manifest.json")
	if err != nil {
		panic("hooks: could not compile embedded manifest schema: " + err.Error())
	}
	return schema
}()

// Manifest is a HOOK.md file's validated front matter.
type Manifest struct {
	Name            string   `yaml:"name" json:"name"`
	Description     string   `yaml:"description" json:"description"`
	Events          []string `yaml:"events" json:"events"`
	OS              []string `yaml:"os" json:"os"`
	RequiresBinary  []string `yaml:"requires_binary" json:"requires_binary"`
	RequiresEnv     []string `yaml:"requires_env" json:"requires_env"`
	Command         string   `yaml:"command" json:"command"`
	Body            string   `yaml:"-" json:"-"`
}

const frontMatterDelim = "---"

// ParseManifest splits content into YAML front matter and markdown body,
// validates the front matter against manifestSchema, and decodes it.
func ParseManifest(content []byte) (*Manifest, error) {
	frontMatter, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(frontMatter, &raw); err != nil {
		return nil, err
	}

	// jsonschema validates decoded JSON values; round-trip through JSON so
	// YAML-native types (e.g. map[any]any) don't trip the validator.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var instance any
	if err := json.Unmarshal(asJSON, &instance); err != nil {
		return nil, err
	}
	if err := manifestSchema.Validate(instance); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(frontMatter, &m); err != nil {
		return nil, err
	}
	m.Body = body
	return &m, nil
}

func splitFrontMatter(content []byte) (frontMatter []byte, body string, err error) {
	trimmed := bytes.TrimLeft(content, "\n")
	if !bytes.HasPrefix(trimmed, []byte(frontMatterDelim)) {
		return nil, "", errNoFrontMatter
	}
	rest := trimmed[len(frontMatterDelim):]
	end := bytes.Index(rest, []byte("\n"+frontMatterDelim))
	if end < 0 {
		return nil, "", errUnterminatedFrontMatter
	}
	frontMatter = bytes.TrimSpace(rest[:end])
	bodyStart := end + len("\n"+frontMatterDelim)
	return frontMatter, strings.TrimLeft(string(rest[bodyStart:]), "\n"), nil
}
