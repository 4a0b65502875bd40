package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/spf13/afero"
)

const pingTimeout = 5 * time.Second

// Docker implements Engine on the Docker Engine API.
type Docker struct {
	api    client.APIClient
	fs     afero.Fs
	logger *slog.Logger
}

// NewDocker connects to the daemon named by the environment (DOCKER_HOST and
// friends, falling back to the platform socket) with API version negotiation.
func NewDocker(logger *slog.Logger) (*Docker, error) {
	c, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	return NewDockerWithClient(c, afero.NewOsFs(), logger), nil
}

// NewDockerWithClient wraps an existing API client. Build contexts are read
// from fs.
func NewDockerWithClient(api client.APIClient, fs afero.Fs, logger *slog.Logger) *Docker {
	if logger == nil {
		logger = slog.Default()
	}

	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Docker{api: api, fs: fs, logger: logger}
}

// Ping checks that the daemon answers.
func (d *Docker) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := d.api.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is not responding: %w", err)
	}

	return nil
}

// Close releases the API client.
func (d *Docker) Close() error {
	return d.api.Close()
}

// Build implements Engine.
func (d *Docker) Build(ctx context.Context, opts BuildOptions) error {
	d.logger.Debug("building image", "tag", opts.Tag, "dockerfile", opts.Dockerfile)

	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(WriteContext(pw, d.fs, opts.ContextDir, DefaultExcludes))
	}()

	resp, err := d.api.ImageBuild(ctx, pr, build.ImageBuildOptions{
		Dockerfile:  opts.Dockerfile,
		Tags:        []string{opts.Tag},
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("building %s: %w", opts.Tag, err)
	}
	defer resp.Body.Close()

	out := opts.Output
	if out == nil {
		out = io.Discard
	}

	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, nil); err != nil {
		return fmt.Errorf("building %s: %w", opts.Tag, err)
	}

	return nil
}

// Start implements Engine.
func (d *Docker) Start(ctx context.Context, img string) (string, error) {
	created, err := d.api.ContainerCreate(ctx,
		&container.Config{
			Image: img,
			Cmd:   []string{"sleep", "infinity"},
		},
		&container.HostConfig{Privileged: true},
		nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("creating container from %s: %w", img, err)
	}

	if err := d.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		_ = d.Remove(context.WithoutCancel(ctx), created.ID)
		return "", fmt.Errorf("starting container from %s: %w", img, err)
	}

	d.logger.Debug("container started", "image", img, "id", created.ID)

	return created.ID, nil
}

// Exec implements Engine.
func (d *Docker) Exec(ctx context.Context, containerID string, cmd []string) (ExecResult, error) {
	created, err := d.api.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("creating exec in %s: %w", containerID, err)
	}

	attach, err := d.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("attaching exec in %s: %w", containerID, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return ExecResult{}, fmt.Errorf("reading exec output in %s: %w", containerID, err)
	}

	inspect, err := d.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("inspecting exec in %s: %w", containerID, err)
	}

	return ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Remove implements Engine.
func (d *Docker) Remove(ctx context.Context, containerID string) error {
	if err := d.api.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("removing container %s: %w", containerID, err)
	}

	return nil
}

// RemoveImage implements Engine.
func (d *Docker) RemoveImage(ctx context.Context, img string) error {
	if _, err := d.api.ImageRemove(ctx, img, image.RemoveOptions{Force: true, PruneChildren: true}); err != nil {
		return fmt.Errorf("removing image %s: %w", img, err)
	}

	return nil
}
