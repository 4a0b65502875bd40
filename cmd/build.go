package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/engine"
	"github.com/donaldgifford/containeros/internal/pkgversions"
	"github.com/donaldgifford/containeros/internal/registry"
	"github.com/donaldgifford/containeros/internal/resolve"
	"github.com/donaldgifford/containeros/internal/verify"
)

var buildKeepImages bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build every variant locally and record its package versions",
	Long: `Build a test image for every variant that has a build file, then start
each image and query the installed version of every package the manifest
lists for it. Versions are merged into the package versions file and the
test images are removed.

Any build failure stops the run before verification; all failures are
reported together.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("repo", registry.DefaultRepo, "image repository used for test image names")
	buildCmd.Flags().String("package-versions", pkgversions.DefaultPath, "verified package versions file")
	buildCmd.Flags().String("dockerfiles-dir", "dockerfiles", "directory holding rendered Dockerfiles")
	buildCmd.Flags().BoolVar(&buildKeepImages, "keep-images", false, "keep test images after verification")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	m, res, err := e.resolve(cmd.Context(), false)
	if err != nil {
		return err
	}

	variants := make([]resolve.Variant, 0, len(res.Builds))
	for _, b := range res.Builds {
		variants = append(variants, b.Variant)
	}

	if dryRun {
		for _, v := range variants {
			e.out.Stepf("would build %s from %s", verify.TestImage(e.settings.Repo, v), v.BuildFile)
		}

		return nil
	}

	docker, err := engine.NewDocker(nil)
	if err != nil {
		return err
	}
	defer docker.Close() //nolint:errcheck // best-effort close

	if err := docker.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("connecting to docker: %w", err)
	}

	report, err := verify.Run(cmd.Context(), &verify.Opts{
		Engine:              docker,
		Manifest:            m,
		Variants:            variants,
		Repo:                e.settings.Repo,
		ContextDir:          e.settings.Root,
		Fs:                  e.fs,
		PackageVersionsPath: e.settings.PackageVersions,
		KeepImages:          buildKeepImages,
		Output:              os.Stderr,
	})
	if err != nil {
		return err
	}

	for _, vr := range report.Variants {
		for _, pkg := range vr.Missing {
			e.out.Warningf("%s: no version found for %s", vr.Variant, pkg)
		}
	}

	e.out.Successf("Verified %d images, versions written to %s", len(report.Variants), e.settings.PackageVersions)

	return nil
}
