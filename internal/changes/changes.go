// Package changes reports whether a release carries changes worth publishing.
package changes

import (
	"fmt"
	"slices"

	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/pkgversions"
)

// Significant lists the packages whose version changes warrant a release.
var Significant = []string{
	"docker-ce",
	"docker",
	"podman",
	"containerd.io",
	"docker-compose-plugin",
	"docker-cli-compose",
}

// Kind classifies a change.
type Kind string

const (
	// KindCompose is the standalone docker-compose version.
	KindCompose Kind = "docker-compose"
	// KindPackage is a significant verified package version.
	KindPackage Kind = "package"
)

// Change is one significant item.
type Change struct {
	Kind    Kind
	Key     pkgversions.Key
	Package string
	Version string
}

func (c Change) String() string {
	if c.Kind == KindCompose {
		return "Docker Compose: " + c.Version
	}

	return fmt.Sprintf("%s %s (%s): %s = %s", c.Key.OS, c.Key.Version, c.Key.Section, c.Package, c.Version)
}

// Detect lists the compose version, when the manifest pins one, followed by
// every significant package recorded in pv.
func Detect(m *manifest.Manifest, pv *pkgversions.File) []Change {
	var out []Change

	if m != nil && m.DockerComposeVersion != "" {
		out = append(out, Change{Kind: KindCompose, Version: m.DockerComposeVersion})
	}

	if pv == nil {
		return out
	}

	for _, e := range pv.Entries() {
		if !slices.Contains(Significant, e.Package) {
			continue
		}

		out = append(out, Change{Kind: KindPackage, Key: e.Key, Package: e.Package, Version: e.Version})
	}

	return out
}
