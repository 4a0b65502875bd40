package render_test

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/render"
)

const testManifest = `version: 2.0.0
targets:
  ubuntu:
    "24.04":
      base: ubuntu:24.04
      alias_patch: 24.04.1
      packages:
        common: [curl, supervisor]
        dockerd: [docker-ce, curl]
        podman: [podman]
  alpine:
    "3.20":
      base: alpine:3.20
      packages:
        common: [curl]
channels:
  stable: {os: ubuntu, version: "24.04", engine: dockerd}
defaults:
  Dockerfile: {os: ubuntu, version: "24.04", engine: dockerd}
`

const ubuntuTemplate = `FROM {{ .BaseImage }}
{{ .EngineRepoSetup }}
RUN apt-get install -y \
{{ .Packages }}
{{ .EnginePostInstall }}
{{ .EngineConfigCopy }}
# compose {{ .DockerComposeVersion }}
# tags {{ .Tags | join " " }}


`

const alpineTemplate = `FROM {{ .BaseImage }}
RUN apk add \
{{ .Packages }}
{{ .EngineConfigCopy }}
`

func setup(t *testing.T) (afero.Fs, *manifest.Manifest) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "templates/ubuntu.Dockerfile.tmpl", []byte(ubuntuTemplate), 0o644))
	require.NoError(t, afero.WriteFile(fs, "templates/alpine.Dockerfile.tmpl", []byte(alpineTemplate), 0o644))

	m, err := manifest.Parse([]byte(testManifest), manifest.FormatYAML)
	require.NoError(t, err)

	return fs, m
}

func TestRun_WritesEveryVariantAndDefault(t *testing.T) {
	t.Parallel()

	fs, m := setup(t)

	result, err := render.Run(&render.Opts{Manifest: m, Fs: fs})
	require.NoError(t, err)

	paths := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		paths = append(paths, f.Path)
		assert.Equal(t, render.StatusCreated, f.Status)
	}

	assert.Equal(t, []string{
		"Dockerfile",
		"dockerfiles/alpine/3.20/dockerd.Dockerfile",
		"dockerfiles/alpine/3.20/podman.Dockerfile",
		"dockerfiles/ubuntu/24.04/dockerd.Dockerfile",
		"dockerfiles/ubuntu/24.04/podman.Dockerfile",
	}, paths)
	assert.Equal(t, 5, result.Written)

	got, err := afero.ReadFile(fs, "dockerfiles/ubuntu/24.04/dockerd.Dockerfile")
	require.NoError(t, err)

	content := string(got)
	assert.Contains(t, content, "FROM ubuntu:24.04\n")
	assert.Contains(t, content, "RUN apt-get update && apt-get install -y \\\n    ca-certificates")
	assert.Contains(t, content, "    curl \\\n    supervisor \\\n    docker-ce \\\n    && rm -rf /var/lib/apt/lists/*")
	assert.Contains(t, content, "COPY config/dockerd.conf /etc/supervisor/conf.d/dockerd.conf")
	assert.Contains(t, content, "# compose v2.31.0")
	assert.Contains(t, content, "# tags 2.0.0-ubuntu-24.04.1-dockerd 2.0.0-ubuntu24-dockerd 2.0.0-ubuntu24 ubuntu24 latest stable")
	assert.Equal(t, byte('\n'), content[len(content)-1])
	assert.NotEqual(t, byte('\n'), content[len(content)-2])

	def, err := afero.ReadFile(fs, "Dockerfile")
	require.NoError(t, err)
	assert.Equal(t, got, def)

	alpine, err := afero.ReadFile(fs, "dockerfiles/alpine/3.20/podman.Dockerfile")
	require.NoError(t, err)
	assert.Equal(t, "FROM alpine:3.20\nRUN apk add \\\n    curl\nCOPY config/podman.conf /etc/supervisor/conf.d/podman.conf\n", string(alpine))
}

func TestRun_SecondPassIsUnchanged(t *testing.T) {
	t.Parallel()

	fs, m := setup(t)

	_, err := render.Run(&render.Opts{Manifest: m, Fs: fs})
	require.NoError(t, err)

	result, err := render.Run(&render.Opts{Manifest: m, Fs: fs, Check: true})
	require.NoError(t, err)
	assert.Zero(t, result.Stale)
	assert.Zero(t, result.Written)

	for _, f := range result.Files {
		assert.Equal(t, render.StatusUnchanged, f.Status)
	}
}

func TestRun_CheckReportsStale(t *testing.T) {
	t.Parallel()

	fs, m := setup(t)

	_, err := render.Run(&render.Opts{Manifest: m, Fs: fs})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "Dockerfile", []byte("FROM stale\n"), 0o644))

	result, err := render.Run(&render.Opts{Manifest: m, Fs: fs, Check: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stale)
	assert.Equal(t, render.StatusUpdated, result.Files[0].Status)

	data, err := afero.ReadFile(fs, "Dockerfile")
	require.NoError(t, err)
	assert.Equal(t, "FROM stale\n", string(data))
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	fs, m := setup(t)

	var buf bytes.Buffer

	result, err := render.Run(&render.Opts{Manifest: m, Fs: fs, DryRun: true, Writer: &buf})
	require.NoError(t, err)
	assert.Zero(t, result.Written)
	assert.Contains(t, buf.String(), "[dry-run] Would write dockerfiles/ubuntu/24.04/podman.Dockerfile\n")

	exists, err := afero.Exists(fs, "Dockerfile")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_MissingTemplate(t *testing.T) {
	t.Parallel()

	fs, m := setup(t)
	require.NoError(t, fs.Remove("templates/alpine.Dockerfile.tmpl"))

	_, err := render.Run(&render.Opts{Manifest: m, Fs: fs})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading alpine template")
}

func TestRun_DefaultWithUndeclaredTarget(t *testing.T) {
	t.Parallel()

	fs, m := setup(t)
	m.Defaults = append(m.Defaults, manifest.Default{
		Path: "Dockerfile.old",
		Ref:  manifest.Ref{OS: manifest.OSUbuntu, Version: "20.04", Engine: manifest.EngineDockerd},
	})

	_, err := render.Run(&render.Opts{Manifest: m, Fs: fs})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")

	exists, err := afero.Exists(fs, "Dockerfile")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFormatPackageLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pkgs     []string
		trailing bool
		want     string
	}{
		{"empty", nil, true, ""},
		{"single", []string{"curl"}, false, "    curl"},
		{"continued", []string{"curl", "git"}, false, "    curl \\\n    git"},
		{"trailing", []string{"curl", "git"}, true, "    curl \\\n    git \\"},
		{"dedup", []string{"curl", "git", "curl"}, false, "    curl \\\n    git"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, render.FormatPackageLines(tt.pkgs, tt.trailing))
		})
	}
}

func TestEngineSnippets(t *testing.T) {
	t.Parallel()

	s, err := render.EngineSnippets(manifest.OSUbuntu, manifest.EngineDockerd)
	require.NoError(t, err)
	assert.Contains(t, s.RepoSetup, "download.docker.com/linux/ubuntu/gpg")
	assert.Equal(t, "    && rm -rf /var/lib/apt/lists/*", s.PostInstall)

	s, err = render.EngineSnippets(manifest.OSUbuntu, manifest.EnginePodman)
	require.NoError(t, err)
	assert.Empty(t, s.RepoSetup)
	assert.Equal(t, "COPY config/podman.conf /etc/supervisor/conf.d/podman.conf", s.ConfigCopy)

	s, err = render.EngineSnippets(manifest.OSAlpine, manifest.EngineDockerd)
	require.NoError(t, err)
	assert.Empty(t, s.PostInstall)
	assert.Empty(t, s.RepoSetup)

	_, err = render.EngineSnippets(manifest.OSAlpine, "containerd")
	require.Error(t, err)
}
