package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/registry"
)

var retagStrict bool

var retagCmd = &cobra.Command{
	Use:   "retag",
	Short: "Publish channel aliases",
	Long: `Point every channel alias at the canonical tag of its variant with
docker buildx imagetools. Channels whose target is not declared in the
manifest are skipped with a warning, or fail the run with --strict.

With --dry-run the commands are printed instead of executed.`,
	Args: cobra.NoArgs,
	RunE: runRetag,
}

func init() {
	retagCmd.Flags().String("repo", registry.DefaultRepo, "image repository")
	retagCmd.Flags().BoolVar(&retagStrict, "strict", false, "fail when a channel points at an undeclared target")
	rootCmd.AddCommand(retagCmd)
}

func runRetag(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	_, res, err := e.resolve(cmd.Context(), retagStrict)
	if err != nil {
		return err
	}

	if len(res.Retags) == 0 {
		e.out.Info("No channels to publish")
		return nil
	}

	client := &registry.Buildx{
		DryRun: dryRun,
		Stdout: e.out.Out(),
		Stderr: os.Stderr,
	}

	if err := registry.Apply(cmd.Context(), client, res.Retags, e.settings.Repo, nil); err != nil {
		return err
	}

	if !dryRun {
		e.out.Successf("Published %d channel(s) to %s", len(res.Retags), e.settings.Repo)
	}

	return nil
}
