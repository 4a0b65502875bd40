package engine_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/containeros/internal/engine"
)

func contextFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"repo/dockerfiles/ubuntu/24.04/dockerd.Dockerfile": "FROM ubuntu:24.04\n",
		"repo/config/dockerd.conf":                         "[program:dockerd]\n",
		"repo/.git/HEAD":                                   "ref: refs/heads/main\n",
	}

	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	return fs
}

func tarNames(t *testing.T, r io.Reader) map[string]string {
	t.Helper()

	out := map[string]string{}
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}

		require.NoError(t, err)

		data, err := io.ReadAll(tr)
		require.NoError(t, err)

		out[hdr.Name] = string(data)
	}
}

func TestWriteContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, engine.WriteContext(&buf, contextFs(t), "repo", engine.DefaultExcludes))

	names := tarNames(t, &buf)
	assert.Equal(t, "FROM ubuntu:24.04\n", names["dockerfiles/ubuntu/24.04/dockerd.Dockerfile"])
	assert.Equal(t, "[program:dockerd]\n", names["config/dockerd.conf"])
	assert.Contains(t, names, "config/")

	for name := range names {
		assert.False(t, strings.HasPrefix(name, ".git"), "excluded entry %q archived", name)
	}
}

func TestWriteContext_MissingDir(t *testing.T) {
	t.Parallel()

	err := engine.WriteContext(io.Discard, afero.NewMemMapFs(), "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archiving build context")
}

// fakeAPI overrides the Docker API calls under test; anything else panics
// through the nil embedded interface.
type fakeAPI struct {
	client.APIClient

	buildStream  string
	buildErr     error
	buildOpts    build.ImageBuildOptions
	contextFiles map[string]string

	removed       []string
	removedImages []string
	removeOpts    container.RemoveOptions
	imageOpts     image.RemoveOptions
}

func (f *fakeAPI) ImageBuild(_ context.Context, buildContext io.Reader, options build.ImageBuildOptions) (build.ImageBuildResponse, error) {
	f.buildOpts = options

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, buildContext); err != nil {
		return build.ImageBuildResponse{}, err
	}

	f.contextFiles = map[string]string{}

	tr := tar.NewReader(&buf)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}

		data, _ := io.ReadAll(tr)
		f.contextFiles[hdr.Name] = string(data)
	}

	if f.buildErr != nil {
		return build.ImageBuildResponse{}, f.buildErr
	}

	return build.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(f.buildStream))}, nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, options container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	f.removeOpts = options

	return nil
}

func (f *fakeAPI) ImageRemove(_ context.Context, img string, options image.RemoveOptions) ([]image.DeleteResponse, error) {
	f.removedImages = append(f.removedImages, img)
	f.imageOpts = options

	return nil, nil
}

func TestDocker_Build(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{buildStream: `{"stream":"Step 1/1 : FROM ubuntu:24.04\n"}` + "\n"}
	d := engine.NewDockerWithClient(api, contextFs(t), nil)

	var out bytes.Buffer

	err := d.Build(t.Context(), engine.BuildOptions{
		ContextDir: "repo",
		Dockerfile: "dockerfiles/ubuntu/24.04/dockerd.Dockerfile",
		Tag:        "miget/container-os:test-ubuntu-24.04-dockerd",
		Output:     &out,
	})
	require.NoError(t, err)

	assert.Equal(t, "dockerfiles/ubuntu/24.04/dockerd.Dockerfile", api.buildOpts.Dockerfile)
	assert.Equal(t, []string{"miget/container-os:test-ubuntu-24.04-dockerd"}, api.buildOpts.Tags)
	assert.True(t, api.buildOpts.Remove)
	assert.Contains(t, api.contextFiles, "config/dockerd.conf")
	assert.Contains(t, out.String(), "Step 1/1")
}

func TestDocker_BuildStreamError(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{buildStream: `{"errorDetail":{"message":"package not found"},"error":"package not found"}` + "\n"}
	d := engine.NewDockerWithClient(api, contextFs(t), nil)

	err := d.Build(t.Context(), engine.BuildOptions{ContextDir: "repo", Dockerfile: "Dockerfile", Tag: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package not found")
}

func TestDocker_BuildRequestError(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{buildErr: errors.New("daemon gone")}
	d := engine.NewDockerWithClient(api, contextFs(t), nil)

	err := d.Build(t.Context(), engine.BuildOptions{ContextDir: "repo", Dockerfile: "Dockerfile", Tag: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building x")
}

func TestDocker_RemoveForces(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	d := engine.NewDockerWithClient(api, afero.NewMemMapFs(), nil)

	require.NoError(t, d.Remove(t.Context(), "abc123"))
	require.NoError(t, d.RemoveImage(t.Context(), "repo:test"))

	assert.Equal(t, []string{"abc123"}, api.removed)
	assert.True(t, api.removeOpts.Force)
	assert.Equal(t, []string{"repo:test"}, api.removedImages)
	assert.True(t, api.imageOpts.Force)
}
