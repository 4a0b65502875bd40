// Package bump increments the manifest release version.
package bump

import (
	"fmt"
	"log/slog"

	"github.com/donaldgifford/containeros/internal/manifest"
)

// Kind selects which version component to increment.
type Kind string

const (
	Patch Kind = "patch"
	Minor Kind = "minor"
	Major Kind = "major"
)

// KindFromFlags maps --major/--minor to a Kind; major wins, patch is the
// default.
func KindFromFlags(minor, major bool) Kind {
	switch {
	case major:
		return Major
	case minor:
		return Minor
	default:
		return Patch
	}
}

// Next returns version incremented by kind. Lower components reset to zero.
func Next(version string, kind Kind) (string, error) {
	v, err := manifest.ParseRelease(version)
	if err != nil {
		return "", err
	}

	switch kind {
	case Major:
		return v.IncMajor().String(), nil
	case Minor:
		return v.IncMinor().String(), nil
	case Patch:
		return v.IncPatch().String(), nil
	default:
		return "", fmt.Errorf("unknown bump kind %q", kind)
	}
}

// Opts configures a bump.
type Opts struct {
	// Path is the manifest file to edit.
	Path string
	// Kind is the component to increment.
	Kind Kind
	// DryRun computes the new version without writing.
	DryRun bool
	// Logger for debug output.
	Logger *slog.Logger
}

// Result reports the version change.
type Result struct {
	Old string
	New string
}

// Run bumps the version key of the manifest at opts.Path in place.
func Run(opts *Opts) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := manifest.OpenDocument(opts.Path)
	if err != nil {
		return nil, err
	}

	old, ok := doc.Get("version")
	if !ok {
		return nil, fmt.Errorf("%w: %s: version is missing", manifest.ErrInvalidManifest, opts.Path)
	}

	next, err := Next(old, opts.Kind)
	if err != nil {
		return nil, err
	}

	res := &Result{Old: old, New: next}

	if opts.DryRun {
		logger.Debug("dry run, manifest not written", "path", opts.Path)
		return res, nil
	}

	doc.Set("version", next)

	if err := doc.Save(); err != nil {
		return nil, err
	}

	logger.Debug("version bumped", "path", opts.Path, "old", old, "new", next)

	return res, nil
}
