package upstream_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/pkgversions"
	"github.com/donaldgifford/containeros/internal/upstream"
)

func TestLatestComposeVersion(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name": "v2.32.1", "name": "v2.32.1"}`))
	}))
	t.Cleanup(srv.Close)

	l := &upstream.Lookup{URL: srv.URL + "/repos/docker/compose/releases/latest"}

	got, err := l.LatestComposeVersion(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v2.32.1", got)
}

func TestLatestComposeVersion_NoTag(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	l := &upstream.Lookup{URL: srv.URL + "/latest"}

	_, err := l.LatestComposeVersion(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tag_name")
}

func writeManifest(t *testing.T, compose string) string {
	t.Helper()

	src := "version: 1.0.0\n"
	if compose != "" {
		src += "docker_compose_version: " + compose + "\n"
	}

	src += "targets:\n  ubuntu:\n    \"24.04\": {base: ubuntu:24.04}\n"

	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	return path
}

func TestApply(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "v2.31.0")
	fs := afero.NewMemMapFs()

	pv := pkgversions.New()
	pv.DockerComposeVersion = "v2.31.0"
	require.NoError(t, pkgversions.Save(fs, "pv.json", pv))

	updates, err := upstream.Apply(&upstream.Opts{
		Version:             "v2.32.1",
		ManifestPath:        path,
		Fs:                  fs,
		PackageVersionsPath: "pv.json",
	})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.True(t, updates[0].Updated)
	assert.Equal(t, "v2.31.0", updates[0].Old)
	assert.True(t, updates[1].Updated)

	m, err := manifest.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2.32.1", m.DockerComposeVersion)

	got, err := pkgversions.Load(fs, "pv.json")
	require.NoError(t, err)
	assert.Equal(t, "v2.32.1", got.DockerComposeVersion)
}

func TestApply_AlreadyCurrent(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "v2.32.1")

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	updates, err := upstream.Apply(&upstream.Opts{
		Version:             "v2.32.1",
		ManifestPath:        path,
		Fs:                  afero.NewMemMapFs(),
		PackageVersionsPath: "missing.json",
	})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Updated)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestApply_DryRun(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "")

	updates, err := upstream.Apply(&upstream.Opts{Version: "v2.32.1", ManifestPath: path, DryRun: true})
	require.NoError(t, err)
	assert.True(t, updates[0].Updated)

	m, err := manifest.LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, m.DockerComposeVersion)
}
