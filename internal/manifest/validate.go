package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidManifest marks configuration errors. Any error wrapping it is
// fatal to a resolution pass.
var ErrInvalidManifest = errors.New("invalid manifest")

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// validateSchema checks the structural shape of a decoded document.
func validateSchema(doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating manifest schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
}

// Validate checks the semantic invariants of a manifest: release version
// arity, OS and engine names, version key syntax and per-OS key arity.
// Channels and defaults pointing at undeclared targets are not errors here.
func Validate(m *Manifest) error {
	if _, err := ParseRelease(m.Version); err != nil {
		return err
	}

	for i := range m.Targets {
		if err := validateOSTargets(&m.Targets[i]); err != nil {
			return err
		}
	}

	for _, c := range m.Channels {
		if err := validateRef(c.Ref, "channels."+c.Alias); err != nil {
			return err
		}
	}

	for _, d := range m.Defaults {
		if err := validateRef(d.Ref, "defaults."+d.Path); err != nil {
			return err
		}
	}

	return nil
}

func validateOSTargets(ot *OSTargets) error {
	if _, err := ParseOS(string(ot.OS)); err != nil {
		return fmt.Errorf("%w: targets: %v", ErrInvalidManifest, err)
	}

	if len(ot.Versions) == 0 {
		return fmt.Errorf("%w: targets.%s: at least one version is required", ErrInvalidManifest, ot.OS)
	}

	want := 0

	for i := range ot.Versions {
		vt := &ot.Versions[i]
		path := fmt.Sprintf("targets.%s.%s", ot.OS, vt.Key)

		if _, err := ParseVersionKey(vt.Key); err != nil {
			return fmt.Errorf("targets.%s: %w", ot.OS, err)
		}

		switch n := arity(vt.Key); {
		case want == 0:
			want = n
		case n != want:
			return fmt.Errorf(
				"%w: %s: version key has %d components, other %s keys have %d",
				ErrInvalidManifest, path, n, ot.OS, want,
			)
		}

		if strings.TrimSpace(vt.Base) == "" {
			return fmt.Errorf("%w: %s: base is required", ErrInvalidManifest, path)
		}

		for _, s := range vt.Packages {
			if s.Name == CommonSection {
				continue
			}

			if _, err := ParseEngine(s.Name); err != nil {
				return fmt.Errorf("%w: %s.packages: %v", ErrInvalidManifest, path, err)
			}
		}
	}

	return nil
}

func validateRef(r Ref, path string) error {
	if _, err := ParseOS(string(r.OS)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}

	if _, err := ParseEngine(string(r.Engine)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}

	if strings.TrimSpace(r.Version) == "" {
		return fmt.Errorf("%w: %s: version is required", ErrInvalidManifest, path)
	}

	return nil
}
