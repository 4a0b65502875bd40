package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/changelog"
	"github.com/donaldgifford/containeros/internal/pkgversions"
)

var changelogAuto bool

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Add a release entry to the changelog",
	Long: `Add a dated entry for the manifest version listing the compose version,
every base image patch level and every verified package version.

--auto inserts the entry below the "# Changelog" title instead of at the
top of the file.`,
	Args: cobra.NoArgs,
	RunE: runChangelog,
}

func init() {
	changelogCmd.Flags().String("changelog", changelog.DefaultPath, "changelog file")
	changelogCmd.Flags().String("package-versions", pkgversions.DefaultPath, "verified package versions file")
	changelogCmd.Flags().BoolVar(&changelogAuto, "auto", false, "insert below the changelog title")
	rootCmd.AddCommand(changelogCmd)
}

func runChangelog(cmd *cobra.Command, _ []string) error {
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

	entry, err := changelog.Run(&changelog.Opts{
		Manifest:        m,
		PackageVersions: pv,
		Fs:              e.fs,
		Path:            e.settings.Changelog,
		Auto:            changelogAuto,
		DryRun:          dryRun,
		Writer:          e.out.Out(),
	})
	if err != nil {
		return err
	}

	switch {
	case entry == nil:
		e.out.Info("Nothing to add to the changelog")
	case !dryRun:
		e.out.Successf("Added %s to %s (%d notes)", m.Version, e.settings.Changelog, len(entry)-2)
	}

	return nil
}
