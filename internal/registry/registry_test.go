package registry_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/containeros/internal/registry"
	"github.com/donaldgifford/containeros/internal/resolve"
)

func TestArgs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"buildx", "imagetools", "create",
		"--tag", "miget/container-os:stable",
		"miget/container-os:3.2.0-ubuntu-24.04.1-dockerd",
	}, registry.Args("3.2.0-ubuntu-24.04.1-dockerd", "stable", "miget/container-os"))
}

func TestBuildx_DryRun(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	b := &registry.Buildx{DryRun: true, Stdout: &stdout}

	err := b.Retag(t.Context(), "1.0.0-alpine-3.20.3-dockerd", "edge", "acme/os")
	require.NoError(t, err)
	assert.Equal(t,
		"DRY-RUN: docker buildx imagetools create --tag acme/os:edge acme/os:1.0.0-alpine-3.20.3-dockerd\n",
		stdout.String())
}

func TestBuildx_RunsBinary(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	b := &registry.Buildx{Binary: "echo", Stdout: &stdout, Stderr: &bytes.Buffer{}}

	require.NoError(t, b.Retag(t.Context(), "src", "stable", "acme/os"))
	assert.Equal(t, "buildx imagetools create --tag acme/os:stable acme/os:src\n", stdout.String())
}

func TestBuildx_Failure(t *testing.T) {
	t.Parallel()

	b := &registry.Buildx{Binary: "false", Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	err := b.Retag(t.Context(), "src", "stable", "acme/os")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retagging acme/os:src as stable")
}

type call struct {
	source, target, repo string
}

type fakeClient struct {
	calls []call
	fail  map[string]bool
}

func (f *fakeClient) Retag(_ context.Context, source, target, repo string) error {
	f.calls = append(f.calls, call{source, target, repo})
	if f.fail[target] {
		return errors.New("registry unavailable")
	}

	return nil
}

func TestApply_CollectsFailures(t *testing.T) {
	t.Parallel()

	retags := []resolve.Retag{
		{Channel: "stable", Source: "a", Target: "stable"},
		{Channel: "edge", Source: "b", Target: "edge"},
		{Channel: "lts", Source: "c", Target: "lts"},
	}
	client := &fakeClient{fail: map[string]bool{"edge": true}}

	err := registry.Apply(t.Context(), client, retags, "acme/os", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `channel "edge"`)
	assert.NotContains(t, err.Error(), "stable")

	require.Len(t, client.calls, 3)
	assert.Equal(t, call{"c", "lts", "acme/os"}, client.calls[2])
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	retags := []resolve.Retag{{Channel: "stable", Source: "a", Target: "stable"}}
	client := &fakeClient{}

	require.NoError(t, registry.Apply(t.Context(), client, retags, "r", nil))
	require.NoError(t, registry.Apply(t.Context(), client, retags, "r", nil))
	assert.Equal(t, client.calls[0], client.calls[1])
}
