package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is an editable manifest file. Edits go through the YAML node tree
// so key order and comments survive a write.
type Document struct {
	path   string
	format Format
	root   *yaml.Node
}

// OpenDocument reads a manifest file for editing.
func OpenDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // manifest path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("reading manifest file %s: %w", path, err)
	}

	format := FormatOf(path)

	doc, err := parseNode(data, format)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}

	if documentRoot(doc).Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", ErrInvalidManifest, path)
	}

	return &Document{path: path, format: format, root: doc}, nil
}

// Path returns the file the document was read from.
func (d *Document) Path() string {
	return d.path
}

// Manifest decodes and validates the current document state.
func (d *Document) Manifest() (*Manifest, error) {
	return fromNode(d.root)
}

// Get returns a top-level scalar value and whether it is present.
func (d *Document) Get(key string) (string, bool) {
	top := documentRoot(d.root)

	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value == key {
			return resolveAlias(top.Content[i+1]).Value, true
		}
	}

	return "", false
}

// Set replaces a top-level scalar, appending the key when absent. It returns
// the previous value.
func (d *Document) Set(key, value string) string {
	top := documentRoot(d.root)

	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != key {
			continue
		}

		node := top.Content[i+1]
		old := node.Value
		node.Kind = yaml.ScalarNode
		node.Tag = "!!str"
		node.Value = value
		node.Content = nil
		node.Alias = nil

		return old
	}

	top.Content = append(top.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)

	return ""
}

// Bytes encodes the document in its original format.
func (d *Document) Bytes() ([]byte, error) {
	if d.format == FormatJSON {
		var buf bytes.Buffer
		if err := writeJSON(&buf, d.root, 0); err != nil {
			return nil, fmt.Errorf("encoding manifest JSON: %w", err)
		}

		buf.WriteByte('\n')

		return buf.Bytes(), nil
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encoding manifest YAML: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes the document back to its path.
func (d *Document) Save() error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}

	if err := os.WriteFile(d.path, data, 0o644); err != nil { //nolint:gosec // manifest is a tracked repository file
		return fmt.Errorf("writing manifest %s: %w", d.path, err)
	}

	return nil
}

// writeJSON emits a node tree as two-space indented JSON in document order.
func writeJSON(buf *bytes.Buffer, n *yaml.Node, depth int) error {
	n = resolveAlias(n)

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}

		return writeJSON(buf, n.Content[0], depth)
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			buf.WriteString("{}")
			return nil
		}

		buf.WriteString("{\n")

		for i := 0; i+1 < len(n.Content); i += 2 {
			indent(buf, depth+1)

			if err := writeString(buf, n.Content[i].Value); err != nil {
				return err
			}

			buf.WriteString(": ")

			if err := writeJSON(buf, n.Content[i+1], depth+1); err != nil {
				return err
			}

			if i+2 < len(n.Content) {
				buf.WriteByte(',')
			}

			buf.WriteByte('\n')
		}

		indent(buf, depth)
		buf.WriteByte('}')
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			buf.WriteString("[]")
			return nil
		}

		buf.WriteString("[\n")

		for i, c := range n.Content {
			indent(buf, depth+1)

			if err := writeJSON(buf, c, depth+1); err != nil {
				return err
			}

			if i+1 < len(n.Content) {
				buf.WriteByte(',')
			}

			buf.WriteByte('\n')
		}

		indent(buf, depth)
		buf.WriteByte(']')
	default:
		switch n.Tag {
		case "!!null":
			buf.WriteString("null")
		case "!!int", "!!float", "!!bool":
			buf.WriteString(n.Value)
		default:
			return writeString(buf, n.Value)
		}
	}

	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer

	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return err
	}

	buf.WriteString(strings.TrimSuffix(tmp.String(), "\n"))

	return nil
}

func indent(buf *bytes.Buffer, depth int) {
	buf.WriteString(strings.Repeat("  ", depth))
}
