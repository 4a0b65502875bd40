package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the manifest location relative to the repository root.
const DefaultPath = "manifests/targets.yaml"

// Format is the on-disk encoding of a manifest.
type Format int

const (
	// FormatYAML is a YAML manifest (.yaml, .yml).
	FormatYAML Format = iota
	// FormatJSON is a JSON manifest; comments are allowed (.json, .jsonc).
	FormatJSON
)

// FormatOf picks the manifest format from a file name.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonc":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// LoadFile reads, parses and validates a manifest file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // manifest path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("reading manifest file %s: %w", path, err)
	}

	m, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}

	return m, nil
}

// Parse decodes and validates manifest content.
func Parse(data []byte, format Format) (*Manifest, error) {
	doc, err := parseNode(data, format)
	if err != nil {
		return nil, err
	}

	return fromNode(doc)
}

func parseNode(data []byte, format Format) (*yaml.Node, error) {
	if format == FormatJSON {
		data = jsonc.ToJSON(data)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if doc.Kind == 0 {
		return nil, fmt.Errorf("%w: manifest is empty", ErrInvalidManifest)
	}

	return &doc, nil
}

func fromNode(doc *yaml.Node) (*Manifest, error) {
	if err := validateSchema(plain(doc)); err != nil {
		return nil, err
	}

	m, err := decode(doc)
	if err != nil {
		return nil, err
	}

	if err := Validate(m); err != nil {
		return nil, err
	}

	return m, nil
}
