// Package manifest loads, validates and edits the targets manifest that drives
// the image matrix.
package manifest

import "fmt"

// OS is a supported operating-system family.
type OS string

// Supported OS families.
const (
	OSUbuntu OS = "ubuntu"
	OSAlpine OS = "alpine"
)

// SupportedOS lists every OS family the manifest may declare.
var SupportedOS = []OS{OSUbuntu, OSAlpine}

// ParseOS converts a manifest string to an OS, rejecting unknown families.
func ParseOS(s string) (OS, error) {
	for _, o := range SupportedOS {
		if string(o) == s {
			return o, nil
		}
	}

	return "", fmt.Errorf("unsupported OS %q, must be one of: ubuntu, alpine", s)
}

// Alias returns the short OS alias used in tags. Ubuntu images are tracked by
// major release (ubuntu24), Alpine images by full point release (alpine3.20).
func (o OS) Alias(versionKey string) string {
	switch o {
	case OSUbuntu:
		major, _, _ := cutVersion(versionKey)
		return "ubuntu" + major
	case OSAlpine:
		return "alpine" + versionKey
	default:
		return string(o) + versionKey
	}
}

// LatestTag returns the bare tag that marks the newest version of the family.
func (o OS) LatestTag() string {
	if o == OSAlpine {
		return "latest-alpine"
	}

	return "latest"
}

// Title returns the display name of the family.
func (o OS) Title() string {
	switch o {
	case OSUbuntu:
		return "Ubuntu"
	case OSAlpine:
		return "Alpine"
	default:
		return string(o)
	}
}

// Engine is a container engine baked into an image.
type Engine string

// Supported engines. Dockerd is daemon based, podman is daemonless.
const (
	EngineDockerd Engine = "dockerd"
	EnginePodman  Engine = "podman"
)

// Engines lists the engines in enumeration order.
var Engines = []Engine{EngineDockerd, EnginePodman}

// ParseEngine converts a manifest string to an Engine.
func ParseEngine(s string) (Engine, error) {
	for _, e := range Engines {
		if string(e) == s {
			return e, nil
		}
	}

	return "", fmt.Errorf("unsupported engine %q, must be one of: dockerd, podman", s)
}

// Daemon reports whether the engine runs a daemon. Only daemon-based variants
// receive bare OS aliases and latest tags.
func (e Engine) Daemon() bool {
	return e == EngineDockerd
}

// CommonSection is the package section installed for every engine.
const CommonSection = "common"

// Manifest is the in-memory form of manifests/targets.yaml. Slices keep the
// order in which entries appear in the file.
type Manifest struct {
	Version              string
	DockerComposeVersion string
	Targets              []OSTargets
	Channels             []Channel
	Defaults             []Default
}

// OSTargets holds every declared version of one OS family.
type OSTargets struct {
	OS       OS
	Versions []VersionTarget
}

// VersionTarget is one OS version entry.
type VersionTarget struct {
	Key        string
	Base       string
	AliasPatch string
	Packages   []PackageSection
}

// PackageSection is an ordered package list keyed by "common" or an engine name.
type PackageSection struct {
	Name     string
	Packages []string
}

// Ref points at one (os, version, engine) combination.
type Ref struct {
	OS      OS
	Version string
	Engine  Engine
}

// String renders the ref as "os version engine".
func (r Ref) String() string {
	return fmt.Sprintf("%s %s %s", r.OS, r.Version, r.Engine)
}

// Channel is a named alias that tracks one variant.
type Channel struct {
	Alias string
	Ref
}

// Default maps an unqualified output file to the variant it is rendered from.
type Default struct {
	Path string
	Ref
}

// Target returns the version entry for os/key.
func (m *Manifest) Target(o OS, key string) (*VersionTarget, bool) {
	for i := range m.Targets {
		if m.Targets[i].OS != o {
			continue
		}

		for j := range m.Targets[i].Versions {
			if m.Targets[i].Versions[j].Key == key {
				return &m.Targets[i].Versions[j], true
			}
		}
	}

	return nil, false
}

// Section returns the packages of the named section, or nil.
func (t *VersionTarget) Section(name string) []string {
	for i := range t.Packages {
		if t.Packages[i].Name == name {
			return t.Packages[i].Packages
		}
	}

	return nil
}

// PackagesFor returns the common packages followed by the engine packages.
func (t *VersionTarget) PackagesFor(e Engine) []string {
	common := t.Section(CommonSection)
	engine := t.Section(string(e))

	out := make([]string, 0, len(common)+len(engine))
	out = append(out, common...)
	out = append(out, engine...)

	return out
}
