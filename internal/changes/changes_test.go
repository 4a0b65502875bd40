package changes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/containeros/internal/changes"
	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/pkgversions"
)

func parse(t *testing.T, src string) *manifest.Manifest {
	t.Helper()

	m, err := manifest.Parse([]byte(src), manifest.FormatYAML)
	require.NoError(t, err)

	return m
}

func TestDetect(t *testing.T) {
	t.Parallel()

	m := parse(t, "version: 1.0.0\ndocker_compose_version: v2.31.0\ntargets:\n  ubuntu:\n    \"24.04\": {base: ubuntu:24.04}\n")

	pv := pkgversions.New()
	key := pkgversions.Key{OS: "ubuntu", Version: "24.04", Section: "dockerd"}
	pv.Merge(key, pkgversions.Packages{"docker-ce": "27.5.1", "curl": "8.5.0"})

	got := changes.Detect(m, pv)
	require.Len(t, got, 2)
	assert.Equal(t, "Docker Compose: v2.31.0", got[0].String())
	assert.Equal(t, changes.KindPackage, got[1].Kind)
	assert.Equal(t, key, got[1].Key)
	assert.Equal(t, "ubuntu 24.04 (dockerd): docker-ce = 27.5.1", got[1].String())
}

func TestDetect_None(t *testing.T) {
	t.Parallel()

	m := parse(t, "version: 1.0.0\ntargets:\n  alpine:\n    \"3.20\": {base: alpine:3.20}\n")

	pv := pkgversions.New()
	pv.Merge(pkgversions.Key{OS: "alpine", Version: "3.20", Section: "common"}, pkgversions.Packages{"curl": "8.9.1"})

	assert.Empty(t, changes.Detect(m, pv))
	assert.Empty(t, changes.Detect(m, nil))
}
