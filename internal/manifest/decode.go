package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// rawRef is the wire form of a channel or default entry.
type rawRef struct {
	OS      string `yaml:"os"`
	Version string `yaml:"version"`
	Engine  string `yaml:"engine"`
}

// rawTarget is the wire form of a version entry. Packages stay a node so
// section order survives decoding.
type rawTarget struct {
	Base       string    `yaml:"base"`
	AliasPatch string    `yaml:"alias_patch"`
	Packages   yaml.Node `yaml:"packages"`
}

// pair is one key/value entry of a YAML mapping.
type pair struct {
	key   string
	value *yaml.Node
}

// pairs returns the entries of a mapping node in document order, rejecting
// duplicate keys.
func pairs(n *yaml.Node, path string) ([]pair, error) {
	n = resolveAlias(n)
	if n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil, nil
	}

	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: expected a mapping", ErrInvalidManifest, path)
	}

	seen := make(map[string]bool, len(n.Content)/2)
	out := make([]pair, 0, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if seen[key] {
			return nil, fmt.Errorf("%w: %s: duplicate key %q", ErrInvalidManifest, path, key)
		}

		seen[key] = true
		out = append(out, pair{key: key, value: n.Content[i+1]})
	}

	return out, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}

	return n
}

// documentRoot unwraps a document node to its top-level mapping.
func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}

	return doc
}

// decode converts a parsed document into a Manifest without validating
// semantic rules; see Validate.
func decode(doc *yaml.Node) (*Manifest, error) {
	top, err := pairs(documentRoot(doc), "manifest")
	if err != nil {
		return nil, err
	}

	m := &Manifest{}

	for _, p := range top {
		switch p.key {
		case "version":
			m.Version = resolveAlias(p.value).Value
		case "docker_compose_version":
			m.DockerComposeVersion = resolveAlias(p.value).Value
		case "targets":
			if m.Targets, err = decodeTargets(p.value); err != nil {
				return nil, err
			}
		case "channels":
			if m.Channels, err = decodeChannels(p.value); err != nil {
				return nil, err
			}
		case "defaults":
			if m.Defaults, err = decodeDefaults(p.value); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func decodeTargets(n *yaml.Node) ([]OSTargets, error) {
	osPairs, err := pairs(n, "targets")
	if err != nil {
		return nil, err
	}

	out := make([]OSTargets, 0, len(osPairs))

	for _, op := range osPairs {
		versionPairs, err := pairs(op.value, "targets."+op.key)
		if err != nil {
			return nil, err
		}

		ot := OSTargets{OS: OS(op.key)}

		for _, vp := range versionPairs {
			path := fmt.Sprintf("targets.%s.%s", op.key, vp.key)

			var raw rawTarget
			if err := resolveAlias(vp.value).Decode(&raw); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
			}

			sections, err := decodePackages(&raw.Packages, path+".packages")
			if err != nil {
				return nil, err
			}

			aliasPatch := raw.AliasPatch
			if aliasPatch == "" {
				aliasPatch = vp.key
			}

			ot.Versions = append(ot.Versions, VersionTarget{
				Key:        vp.key,
				Base:       raw.Base,
				AliasPatch: aliasPatch,
				Packages:   sections,
			})
		}

		out = append(out, ot)
	}

	return out, nil
}

func decodePackages(n *yaml.Node, path string) ([]PackageSection, error) {
	sectionPairs, err := pairs(n, path)
	if err != nil {
		return nil, err
	}

	out := make([]PackageSection, 0, len(sectionPairs))

	for _, sp := range sectionPairs {
		var pkgs []string
		if err := resolveAlias(sp.value).Decode(&pkgs); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidManifest, path, sp.key, err)
		}

		out = append(out, PackageSection{Name: sp.key, Packages: pkgs})
	}

	return out, nil
}

func decodeRef(n *yaml.Node, path string) (Ref, error) {
	var raw rawRef
	if err := resolveAlias(n).Decode(&raw); err != nil {
		return Ref{}, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}

	return Ref{OS: OS(raw.OS), Version: raw.Version, Engine: Engine(raw.Engine)}, nil
}

func decodeChannels(n *yaml.Node) ([]Channel, error) {
	ps, err := pairs(n, "channels")
	if err != nil {
		return nil, err
	}

	out := make([]Channel, 0, len(ps))

	for _, p := range ps {
		ref, err := decodeRef(p.value, "channels."+p.key)
		if err != nil {
			return nil, err
		}

		out = append(out, Channel{Alias: p.key, Ref: ref})
	}

	return out, nil
}

func decodeDefaults(n *yaml.Node) ([]Default, error) {
	ps, err := pairs(n, "defaults")
	if err != nil {
		return nil, err
	}

	out := make([]Default, 0, len(ps))

	for _, p := range ps {
		ref, err := decodeRef(p.value, "defaults."+p.key)
		if err != nil {
			return nil, err
		}

		out = append(out, Default{Path: p.key, Ref: ref})
	}

	return out, nil
}

// plain converts a node tree into maps, slices and strings for schema
// validation. Scalars stay strings so unquoted keys like 24.04 keep their
// spelling.
func plain(n *yaml.Node) any {
	n = resolveAlias(n)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}

		return plain(n.Content[0])
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			out[n.Content[i].Value] = plain(n.Content[i+1])
		}

		return out
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, plain(c))
		}

		return out
	default:
		if n.Tag == "!!null" {
			return nil
		}

		return n.Value
	}
}
