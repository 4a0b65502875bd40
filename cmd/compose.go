package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/getter"
	"github.com/donaldgifford/containeros/internal/pkgversions"
	"github.com/donaldgifford/containeros/internal/upstream"
)

var (
	composeCheckOnly bool
	composeURL       string
)

var composeUpdateCmd = &cobra.Command{
	Use:   "compose-update",
	Short: "Pin the latest standalone docker-compose release",
	Long: `Look up the latest docker-compose release and record its tag as
docker_compose_version in the manifest and, when it exists, the package
versions file.

Use --check-only to print the latest release without modifying files.`,
	Args: cobra.NoArgs,
	RunE: runComposeUpdate,
}

func init() {
	composeUpdateCmd.Flags().BoolVar(&composeCheckOnly, "check-only", false, "only report the latest release")
	composeUpdateCmd.Flags().StringVar(&composeURL, "release-url", upstream.ComposeReleaseURL, "release metadata endpoint")
	composeUpdateCmd.Flags().String("package-versions", pkgversions.DefaultPath, "verified package versions file")
	rootCmd.AddCommand(composeUpdateCmd)
}

func runComposeUpdate(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	lookup := &upstream.Lookup{Getter: getter.New(nil), URL: composeURL}

	latest, err := lookup.LatestComposeVersion(cmd.Context())
	if err != nil {
		return err
	}

	e.out.Infof("Latest docker-compose version: %s", latest)

	if composeCheckOnly {
		return nil
	}

	path, err := e.localManifestPath()
	if err != nil {
		return err
	}

	updates, err := upstream.Apply(&upstream.Opts{
		Version:             latest,
		ManifestPath:        path,
		Fs:                  e.fs,
		PackageVersionsPath: e.settings.PackageVersions,
		DryRun:              dryRun,
	})
	if err != nil {
		return err
	}

	updated := 0

	for _, u := range updates {
		if !u.Updated {
			e.out.Infof("%s: already at %s", u.Path, latest)
			continue
		}

		updated++

		e.out.Successf("%s: %s -> %s", u.Path, u.Old, latest)
	}

	if updated == 0 {
		e.out.Info("No updates needed")
	}

	return nil
}
