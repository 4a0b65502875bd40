package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/matrix"
	"github.com/donaldgifford/containeros/internal/registry"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the CI build matrix as JSON",
	Long: `Print {"include": [...]} with one record per buildable variant: its
build file, tags, repository-qualified tags and target platforms.`,
	Args: cobra.NoArgs,
	RunE: runMatrix,
}

func init() {
	matrixCmd.Flags().String("repo", registry.DefaultRepo, "image repository used to qualify tags")
	matrixCmd.Flags().String("platforms", matrix.DefaultPlatforms, "buildx platform list")
	matrixCmd.Flags().String("dockerfiles-dir", "dockerfiles", "directory holding rendered Dockerfiles")
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	_, res, err := e.resolve(cmd.Context(), false)
	if err != nil {
		return err
	}

	return matrix.Write(cmd.OutOrStdout(), matrix.Build(res, e.settings.Repo, e.settings.Platforms))
}
