package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/render"
	"github.com/donaldgifford/containeros/internal/watch"
)

var (
	renderCheck bool
	renderWatch bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render Dockerfiles from the OS templates",
	Long: `Render {dockerfiles-dir}/{os}/{version}/{engine}.Dockerfile for every target
and engine in the manifest, plus every defaults entry, from
{templates-dir}/{os}.Dockerfile.tmpl.

Use --check for CI mode: reports stale files and exits non-zero without
writing. Use --watch to re-render whenever the manifest or a template
changes.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().String("templates-dir", render.DefaultTemplatesDir, "directory holding {os}.Dockerfile.tmpl")
	renderCmd.Flags().String("dockerfiles-dir", render.DefaultDockerfilesDir, "output directory")
	renderCmd.Flags().BoolVar(&renderCheck, "check", false, "check-only mode: report stale files without writing")
	renderCmd.Flags().BoolVar(&renderWatch, "watch", false, "re-render on manifest or template changes")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	if err := renderOnce(cmd.Context(), e); err != nil {
		return err
	}

	if !renderWatch {
		return nil
	}

	manifestPath, err := e.localManifestPath()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(watch.Opts{
		Paths: []string{manifestPath, e.settings.Path(e.settings.TemplatesDir)},
		OnChange: func(ctx context.Context, changed []string) error {
			e.out.Stepf("%d file(s) changed, re-rendering", len(changed))
			return renderOnce(ctx, e)
		},
	})
	if err != nil {
		return err
	}

	e.out.Infof("Watching %s and %s", manifestPath, e.settings.TemplatesDir)

	return w.Run(ctx)
}

func renderOnce(ctx context.Context, e *env) error {
	m, err := e.loadManifest(ctx)
	if err != nil {
		return err
	}

	result, err := render.Run(&render.Opts{
		Manifest:     m,
		Fs:           e.fs,
		TemplatesDir: e.settings.TemplatesDir,
		OutputDir:    e.settings.DockerfilesDir,
		DryRun:       dryRun,
		Check:        renderCheck,
		Writer:       e.out.Out(),
	})
	if err != nil {
		return err
	}

	if renderCheck {
		for _, f := range result.Files {
			if f.Status != render.StatusUnchanged {
				e.out.Warningf("  %-45s %s", f.Path, f.Status)
			}
		}

		if result.Stale > 0 {
			return fmt.Errorf("rendered Dockerfiles are stale (%d file(s) need update)", result.Stale)
		}

		e.out.Success("All Dockerfiles up to date")

		return nil
	}

	if dryRun {
		return nil
	}

	e.out.Successf("Rendered %d Dockerfiles (%d written)", len(result.Files), result.Written)

	return nil
}
