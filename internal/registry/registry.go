// Package registry publishes channel aliases in a remote image registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/donaldgifford/containeros/internal/resolve"
)

// DefaultRepo is the image repository channels are published to.
const DefaultRepo = "miget/container-os"

// Client creates target as an alias of source within repo.
type Client interface {
	Retag(ctx context.Context, source, target, repo string) error
}

// Buildx retags through `docker buildx imagetools create`, which copies the
// multi-platform manifest list without pulling layers.
type Buildx struct {
	// Binary is the docker CLI to invoke. Defaults to "docker".
	Binary string
	// DryRun prints the command instead of running it.
	DryRun bool
	// Stdout receives command output and dry-run lines.
	Stdout io.Writer
	// Stderr receives command errors.
	Stderr io.Writer
	// Logger for debug output.
	Logger *slog.Logger
}

// Args returns the docker arguments that publish target from source.
func Args(source, target, repo string) []string {
	return []string{
		"buildx", "imagetools", "create",
		"--tag", repo + ":" + target,
		repo + ":" + source,
	}
}

// Retag implements Client.
func (b *Buildx) Retag(ctx context.Context, source, target, repo string) error {
	bin := b.Binary
	if bin == "" {
		bin = "docker"
	}

	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := Args(source, target, repo)

	if b.DryRun {
		if b.Stdout != nil {
			if _, err := fmt.Fprintf(b.Stdout, "DRY-RUN: %s %s\n", bin, strings.Join(args, " ")); err != nil {
				return err
			}
		}

		return nil
	}

	logger.Debug("retagging", "source", source, "target", target, "repo", repo)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("retagging %s:%s as %s: %w", repo, source, target, err)
	}

	return nil
}

// Apply issues every retag in order. A failed retag does not stop the
// others; all failures are returned joined.
func Apply(ctx context.Context, c Client, retags []resolve.Retag, repo string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var errs []error

	for _, r := range retags {
		if err := c.Retag(ctx, r.Source, r.Target, repo); err != nil {
			logger.Warn("retag failed", "channel", r.Channel, "err", err)
			errs = append(errs, fmt.Errorf("channel %q: %w", r.Channel, err))

			continue
		}

		logger.Debug("channel published", "channel", r.Channel, "source", r.Source)
	}

	return errors.Join(errs...)
}
