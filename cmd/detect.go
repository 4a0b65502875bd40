package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/changes"
	"github.com/donaldgifford/containeros/internal/pkgversions"
)

// ExitNoChanges is the exit code of detect when nothing warrants a release.
const ExitNoChanges = 1

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report changes that warrant a release",
	Long: `List the pinned docker-compose version and every verified version of an
engine package (docker-ce, podman, containerd.io, compose plugins).

Exits with status 1 when there is nothing to report, so CI can skip the
release job.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().String("package-versions", pkgversions.DefaultPath, "verified package versions file")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	m, err := e.loadManifest(cmd.Context())
	if err != nil {
		return err
	}

	pv, err := pkgversions.Load(e.fs, e.settings.PackageVersions)
	if err != nil {
		return err
	}

	found := changes.Detect(m, pv)
	if len(found) == 0 {
		return &ExitError{Code: ExitNoChanges, Msg: "No significant changes detected"}
	}

	e.out.Success("Significant changes detected:")

	for _, c := range found {
		e.out.Infof("  - %s", c)
	}

	return nil
}
