package verify_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/containeros/internal/engine"
	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/pkgversions"
	"github.com/donaldgifford/containeros/internal/resolve"
	"github.com/donaldgifford/containeros/internal/verify"
)

const testManifest = `version: 1.0.0
targets:
  ubuntu:
    "24.04":
      base: ubuntu:24.04
      packages:
        common: [curl, supervisor]
        dockerd: [docker-ce, curl]
  alpine:
    "3.20":
      base: alpine:3.20
      packages:
        common: [curl]
        podman: [podman]
`

// fakeEngine answers package queries from a table keyed by image and package.
type fakeEngine struct {
	mu sync.Mutex

	buildFail map[string]bool
	versions  map[string]map[string]string

	built          []string
	started        map[string]string
	removed        []string
	removedImages  []string
	lastDockerfile string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		buildFail: map[string]bool{},
		versions:  map[string]map[string]string{},
		started:   map[string]string{},
	}
}

func (f *fakeEngine) Build(_ context.Context, opts engine.BuildOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.built = append(f.built, opts.Tag)
	f.lastDockerfile = opts.Dockerfile

	if f.buildFail[opts.Tag] {
		return errors.New("exit status 1")
	}

	return nil
}

func (f *fakeEngine) Start(_ context.Context, image string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := "c-" + image
	f.started[id] = image

	return id, nil
}

func (f *fakeEngine) Exec(_ context.Context, id string, cmd []string) (engine.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	image := f.started[id]
	pkg := cmd[len(cmd)-1]

	if strings.HasPrefix(image, "r:test-alpine") {
		// sh -c "apk list --installed <pkg> 2>/dev/null | cut ..."
		fields := strings.Fields(cmd[2])
		pkg = fields[3]

		v, ok := f.versions[image][pkg]
		if !ok {
			return engine.ExecResult{ExitCode: 0}, nil
		}

		return engine.ExecResult{Stdout: pkg + "-" + v + "\n"}, nil
	}

	v, ok := f.versions[image][pkg]
	if !ok {
		return engine.ExecResult{ExitCode: 1}, nil
	}

	return engine.ExecResult{Stdout: v}, nil
}

func (f *fakeEngine) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, id)

	return nil
}

func (f *fakeEngine) RemoveImage(_ context.Context, image string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removedImages = append(f.removedImages, image)

	return nil
}

func variants() []resolve.Variant {
	return []resolve.Variant{
		{OS: manifest.OSUbuntu, Version: "24.04", Engine: manifest.EngineDockerd, BuildFile: "dockerfiles/ubuntu/24.04/dockerd.Dockerfile"},
		{OS: manifest.OSAlpine, Version: "3.20", Engine: manifest.EnginePodman, BuildFile: "dockerfiles/alpine/3.20/podman.Dockerfile"},
	}
}

func opts(t *testing.T, eng engine.Engine) *verify.Opts {
	t.Helper()

	m, err := manifest.Parse([]byte(testManifest), manifest.FormatYAML)
	require.NoError(t, err)

	return &verify.Opts{
		Engine:              eng,
		Manifest:            m,
		Variants:            variants(),
		Repo:                "r",
		ContextDir:          ".",
		Fs:                  afero.NewMemMapFs(),
		PackageVersionsPath: pkgversions.DefaultPath,
		SettleDelay:         time.Millisecond,
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	eng.versions["r:test-ubuntu-24.04-dockerd"] = map[string]string{
		"curl":      "8.5.0-2ubuntu10.6",
		"docker-ce": "5:27.5.1-1~ubuntu.24.04~noble",
	}
	eng.versions["r:test-alpine-3.20-podman"] = map[string]string{
		"curl":   "8.9.1-r0",
		"podman": "5.2.5-r0",
	}

	o := opts(t, eng)

	report, err := verify.Run(t.Context(), o)
	require.NoError(t, err)
	require.Len(t, report.Variants, 2)

	ubuntu := report.Variants[0]
	assert.Equal(t, []string{"supervisor"}, ubuntu.Missing)
	assert.Equal(t, pkgversions.Packages{"curl": "8.5.0-2ubuntu10.6"},
		ubuntu.Versions[pkgversions.Key{OS: "ubuntu", Version: "24.04", Section: "common"}])
	assert.Equal(t, pkgversions.Packages{"docker-ce": "5:27.5.1-1~ubuntu.24.04~noble"},
		ubuntu.Versions[pkgversions.Key{OS: "ubuntu", Version: "24.04", Section: "dockerd"}])

	f, err := pkgversions.Load(o.Fs, pkgversions.DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "5.2.5-r0", f.Sections("alpine", "3.20")["podman"]["podman"])
	assert.Equal(t, "8.9.1-r0", f.Sections("alpine", "3.20")["common"]["curl"])

	assert.Len(t, eng.removed, 2)
	assert.Equal(t, []string{"r:test-ubuntu-24.04-dockerd", "r:test-alpine-3.20-podman"}, eng.removedImages)
}

func TestRun_BuildFailuresStopBeforeVerify(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	eng.buildFail["r:test-ubuntu-24.04-dockerd"] = true
	eng.buildFail["r:test-alpine-3.20-podman"] = true

	o := opts(t, eng)

	_, err := verify.Run(t.Context(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 images failed to build")
	assert.Contains(t, err.Error(), "ubuntu 24.04 dockerd")
	assert.Contains(t, err.Error(), "alpine 3.20 podman")

	// Every variant was attempted.
	assert.Len(t, eng.built, 2)
	assert.Empty(t, eng.started)

	exists, err := afero.Exists(o.Fs, pkgversions.DefaultPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_KeepImages(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	o := opts(t, eng)
	o.KeepImages = true

	_, err := verify.Run(t.Context(), o)
	require.NoError(t, err)
	assert.Empty(t, eng.removedImages)
}

func TestVariant_CancelledWhileSettling(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	o := opts(t, eng)
	o.SettleDelay = time.Hour

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := verify.Variant(ctx, o, variants()[0])
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, eng.removed, 1)
}

func TestTestImage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "miget/container-os:test-alpine-3.20-podman", verify.TestImage("miget/container-os", variants()[1]))
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		os     manifest.OS
		pkg    string
		output string
		want   string
		ok     bool
	}{
		{"ubuntu", manifest.OSUbuntu, "curl", "8.5.0-2ubuntu10.6", "8.5.0-2ubuntu10.6", true},
		{"ubuntu empty", manifest.OSUbuntu, "curl", "", "", false},
		{"alpine prefix", manifest.OSAlpine, "docker-cli-compose", "docker-cli-compose-2.29.7-r1\n", "2.29.7-r1", true},
		{"alpine name with digits", manifest.OSAlpine, "py3-pip", "py3-pip-24.0-r2", "24.0-r2", true},
		{"alpine fallback", manifest.OSAlpine, "iptables", "iptables-legacy-1.8.10-r3", "1.8.10-r3", true},
		{"alpine no digits", manifest.OSAlpine, "curl", "curl", "", false},
		{"alpine first line", manifest.OSAlpine, "curl", "curl-8.9.1-r0\ncurl-doc-8.9.1-r0", "8.9.1-r0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := verify.ParseVersion(tt.os, tt.pkg, tt.output)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryCommand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"dpkg-query", "-W", "-f", "${Version}", "curl"}, verify.QueryCommand(manifest.OSUbuntu, "curl"))
	assert.Equal(t,
		[]string{"sh", "-c", "apk list --installed curl 2>/dev/null | cut -d' ' -f1"},
		verify.QueryCommand(manifest.OSAlpine, "curl"))
}
