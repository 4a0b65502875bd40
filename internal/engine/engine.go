// Package engine drives an external container engine to build variant
// images and run commands inside them.
package engine

import (
	"context"
	"io"
)

// BuildOptions describes one image build.
type BuildOptions struct {
	// ContextDir is the build context root.
	ContextDir string
	// Dockerfile is the build file path relative to ContextDir.
	Dockerfile string
	// Tag names the resulting image.
	Tag string
	// Output receives build progress.
	Output io.Writer
}

// ExecResult is the outcome of a command run inside a container.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Engine is the container engine collaborator. Every call blocks until the
// engine answers.
type Engine interface {
	// Build builds an image from a Dockerfile.
	Build(ctx context.Context, opts BuildOptions) error
	// Start runs image detached and privileged, kept alive with
	// `sleep infinity`, and returns the container ID.
	Start(ctx context.Context, image string) (string, error)
	// Exec runs cmd inside a running container.
	Exec(ctx context.Context, containerID string, cmd []string) (ExecResult, error)
	// Remove force-removes a container.
	Remove(ctx context.Context, containerID string) error
	// RemoveImage force-removes an image.
	RemoveImage(ctx context.Context, image string) error
}
