// Package resolve derives the image matrix from a manifest snapshot: the
// buildable variants, each variant's tag set, the latest version per OS
// family and the retag operations that publish channels.
//
// Every function here is a pure computation over the manifest. Filesystem
// access goes through a Locator so the pass itself never blocks on I/O it
// does not own.
package resolve

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/donaldgifford/containeros/internal/manifest"
)

// BuildFileExt is the extension of a rendered build definition.
const BuildFileExt = ".Dockerfile"

// Variant is one buildable (os, version, engine) combination.
type Variant struct {
	OS         manifest.OS
	Version    string
	Engine     manifest.Engine
	AliasPatch string
	// BuildFile is the build-definition path as reported by the Locator.
	BuildFile string
}

// Ref returns the manifest reference naming this variant.
func (v Variant) Ref() manifest.Ref {
	return manifest.Ref{OS: v.OS, Version: v.Version, Engine: v.Engine}
}

// String renders the variant as "os version engine".
func (v Variant) String() string {
	return v.Ref().String()
}

// CanonicalTag returns the fully-qualified tag
// {release}-{os}-{alias_patch}-{engine}.
func (v Variant) CanonicalTag(release string) string {
	return fmt.Sprintf("%s-%s-%s-%s", release, v.OS, v.AliasPatch, v.Engine)
}

// Locator answers where the build definition of a variant lives and whether
// it has been materialized.
type Locator interface {
	Path(ref manifest.Ref) string
	Exists(ref manifest.Ref) (bool, error)
}

// FSLocator finds build definitions at {Dir}/{os}/{version}/{engine}.Dockerfile.
type FSLocator struct {
	Fs  afero.Fs
	Dir string
}

// NewFSLocator returns a locator rooted at dir on the OS filesystem.
func NewFSLocator(dir string) *FSLocator {
	return &FSLocator{Fs: afero.NewOsFs(), Dir: dir}
}

// Path returns the build-definition path for ref.
func (l *FSLocator) Path(ref manifest.Ref) string {
	return BuildFilePath(l.Dir, ref)
}

// Exists reports whether the build definition for ref is present.
func (l *FSLocator) Exists(ref manifest.Ref) (bool, error) {
	ok, err := afero.Exists(l.Fs, l.Path(ref))
	if err != nil {
		return false, fmt.Errorf("checking build file for %s: %w", ref, err)
	}

	return ok, nil
}

// BuildFilePath joins the conventional {os}/{version}/{engine} layout under dir.
func BuildFilePath(dir string, ref manifest.Ref) string {
	return filepath.Join(dir, string(ref.OS), ref.Version, string(ref.Engine)+BuildFileExt)
}

// Enumerate expands the manifest into every variant whose build definition
// exists. Order is OS then version key as written in the manifest, then
// engines in manifest.Engines order. Absent build files are skipped.
func Enumerate(m *manifest.Manifest, loc Locator) ([]Variant, error) {
	var out []Variant

	for _, ot := range m.Targets {
		for _, vt := range ot.Versions {
			for _, e := range manifest.Engines {
				ref := manifest.Ref{OS: ot.OS, Version: vt.Key, Engine: e}

				ok, err := loc.Exists(ref)
				if err != nil {
					return nil, err
				}

				if !ok {
					continue
				}

				out = append(out, Variant{
					OS:         ot.OS,
					Version:    vt.Key,
					Engine:     e,
					AliasPatch: vt.AliasPatch,
					BuildFile:  loc.Path(ref),
				})
			}
		}
	}

	return out, nil
}
