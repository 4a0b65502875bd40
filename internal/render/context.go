package render

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/resolve"
)

// DefaultDockerComposeVersion is used when the manifest does not pin one.
const DefaultDockerComposeVersion = "v2.31.0"

// packageIndent prefixes every package line inside a RUN instruction.
const packageIndent = "    "

const aptCleanup = "    && rm -rf /var/lib/apt/lists/*"

// ubuntuDockerRepo installs the Docker apt repository and signing key.
const ubuntuDockerRepo = "RUN apt-get update && apt-get install -y \\\n" +
	"    ca-certificates \\\n" +
	"    curl \\\n" +
	"    gnupg \\\n" +
	"    lsb-release \\\n" +
	"    && install -m 0755 -d /etc/apt/keyrings \\\n" +
	"    && curl -fsSL https://download.docker.com/linux/ubuntu/gpg | " +
	"gpg --dearmor -o /etc/apt/keyrings/docker.gpg \\\n" +
	"    && chmod a+r /etc/apt/keyrings/docker.gpg \\\n" +
	"    && echo \"deb [arch=$(dpkg --print-architecture) signed-by=/etc/apt/keyrings/docker.gpg] " +
	"https://download.docker.com/linux/ubuntu $(lsb_release -cs) stable\" | " +
	"tee /etc/apt/sources.list.d/docker.list > /dev/null"

// Context is the data a build-file template is executed with.
type Context struct {
	OS         string
	Version    string
	Engine     string
	AliasPatch string
	Release    string

	BaseImage            string
	DockerComposeVersion string

	// Packages is the formatted, continuation-joined package block.
	Packages string
	// PackageList is the de-duplicated package names in install order.
	PackageList []string

	EngineRepoSetup   string
	EnginePostInstall string
	EngineConfigCopy  string

	// Tags is the variant's tag set, canonical first.
	Tags []string
}

// Snippets are the engine specific fragments spliced into a template.
type Snippets struct {
	RepoSetup   string
	PostInstall string
	ConfigCopy  string
}

// EngineSnippets returns the install fragments for an OS family and engine.
func EngineSnippets(o manifest.OS, e manifest.Engine) (Snippets, error) {
	if _, err := manifest.ParseEngine(string(e)); err != nil {
		return Snippets{}, err
	}

	s := Snippets{
		ConfigCopy: fmt.Sprintf("COPY config/%s.conf /etc/supervisor/conf.d/%s.conf", e, e),
	}

	switch o {
	case manifest.OSUbuntu:
		s.PostInstall = aptCleanup
		if e == manifest.EngineDockerd {
			s.RepoSetup = ubuntuDockerRepo
		}
	case manifest.OSAlpine:
	default:
		return Snippets{}, fmt.Errorf("unsupported OS %q", o)
	}

	return s, nil
}

// FormatPackageLines renders packages one per line, indented, with shell
// continuations. Duplicates are dropped keeping first occurrence. With
// trailing set every line continues, so a following "&& ..." step can attach.
func FormatPackageLines(packages []string, trailing bool) string {
	ordered := unique(packages)
	if len(ordered) == 0 {
		return ""
	}

	lines := make([]string, len(ordered))
	for i, p := range ordered {
		lines[i] = packageIndent + p

		if trailing || i < len(ordered)-1 {
			lines[i] += " \\"
		}
	}

	return strings.Join(lines, "\n")
}

func unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))

	for _, it := range items {
		if seen[it] {
			continue
		}

		seen[it] = true
		out = append(out, it)
	}

	return out
}

// NewContext builds the template context for one (os, version, engine).
func NewContext(m *manifest.Manifest, ref manifest.Ref, latest map[manifest.OS]string) (*Context, error) {
	target, ok := m.Target(ref.OS, ref.Version)
	if !ok {
		return nil, fmt.Errorf("target %s %s is not declared in the manifest", ref.OS, ref.Version)
	}

	snippets, err := EngineSnippets(ref.OS, ref.Engine)
	if err != nil {
		return nil, fmt.Errorf("building context for %s: %w", ref, err)
	}

	compose := m.DockerComposeVersion
	if compose == "" {
		compose = DefaultDockerComposeVersion
	}

	pkgs := target.PackagesFor(ref.Engine)
	trailing := ref.OS == manifest.OSUbuntu && snippets.PostInstall != ""

	v := resolve.Variant{OS: ref.OS, Version: ref.Version, Engine: ref.Engine, AliasPatch: target.AliasPatch}
	tags, _ := resolve.ComposeTags(m.Version, v, latest, m.Channels)

	return &Context{
		OS:                   string(ref.OS),
		Version:              ref.Version,
		Engine:               string(ref.Engine),
		AliasPatch:           target.AliasPatch,
		Release:              m.Version,
		BaseImage:            target.Base,
		DockerComposeVersion: compose,
		Packages:             FormatPackageLines(pkgs, trailing),
		PackageList:          unique(pkgs),
		EngineRepoSetup:      snippets.RepoSetup,
		EnginePostInstall:    snippets.PostInstall,
		EngineConfigCopy:     snippets.ConfigCopy,
		Tags:                 tags,
	}, nil
}
