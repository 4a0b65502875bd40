package resolve

import (
	"fmt"

	"github.com/donaldgifford/containeros/internal/manifest"
)

// Opts configures a resolution pass.
type Opts struct {
	// Strict turns missing channel targets into a fatal error.
	Strict bool
}

// Build pairs a variant with its tag set.
type Build struct {
	Variant
	Tags TagSet
}

// Resolution is everything derived from one manifest snapshot.
type Resolution struct {
	Release     string
	Latest      map[manifest.OS]string
	Builds      []Build
	Retags      []Retag
	Diagnostics []Diagnostic
}

// Find returns the build for ref.
func (r *Resolution) Find(ref manifest.Ref) (*Build, bool) {
	for i := range r.Builds {
		if r.Builds[i].Ref() == ref {
			return &r.Builds[i], true
		}
	}

	return nil, false
}

// Resolve runs a full pass over m. Configuration errors abort the pass and
// no partial result is returned.
func Resolve(m *manifest.Manifest, loc Locator, opts Opts) (*Resolution, error) {
	if err := manifest.Validate(m); err != nil {
		return nil, err
	}

	latest, err := LatestVersions(m)
	if err != nil {
		return nil, err
	}

	variants, err := Enumerate(m, loc)
	if err != nil {
		return nil, fmt.Errorf("enumerating variants: %w", err)
	}

	retags, diags := ResolveChannels(m)

	if opts.Strict {
		for _, d := range diags {
			if d.Kind == DiagMissingChannelTarget {
				return nil, fmt.Errorf("%w: %s", ErrMissingChannelTarget, d.Message)
			}
		}
	}

	res := &Resolution{
		Release: m.Version,
		Latest:  latest,
		Builds:  make([]Build, 0, len(variants)),
		Retags:  retags,
	}

	for _, v := range variants {
		tags, tagDiags := ComposeTags(m.Version, v, latest, m.Channels)
		res.Builds = append(res.Builds, Build{Variant: v, Tags: tags})
		diags = append(diags, tagDiags...)
	}

	res.Diagnostics = diags

	return res, nil
}
