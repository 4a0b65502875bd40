package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/bump"
)

var (
	bumpMinor bool
	bumpMajor bool
)

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Increment the manifest release version",
	Long: `Increment the patch component of the manifest version, or the minor or
major component with --minor or --major. Lower components reset to zero.
The manifest keeps its key order and comments.`,
	Args: cobra.NoArgs,
	RunE: runBump,
}

func init() {
	bumpCmd.Flags().BoolVar(&bumpMinor, "minor", false, "bump the minor version (1.0.0 -> 1.1.0)")
	bumpCmd.Flags().BoolVar(&bumpMajor, "major", false, "bump the major version (1.0.0 -> 2.0.0)")
	rootCmd.AddCommand(bumpCmd)
}

func runBump(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	path, err := e.localManifestPath()
	if err != nil {
		return err
	}

	kind := bump.KindFromFlags(bumpMinor, bumpMajor)

	res, err := bump.Run(&bump.Opts{Path: path, Kind: kind, DryRun: dryRun})
	if err != nil {
		return err
	}

	e.out.Infof("Version: %s -> %s (%s bump)", res.Old, res.New, kind)

	if dryRun {
		e.out.Info("Dry run, manifest not written")
		return nil
	}

	e.out.Successf("Updated %s", e.settings.Manifest)

	return nil
}
