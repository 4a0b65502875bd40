package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/docs"
)

var (
	listOS           string
	listOutputFormat string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List buildable variants, their tags and channels",
	Long: `List every variant that has a build file, with its tags, followed by the
channels that would be published. Use --os to filter and --output to change
the format.`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringVar(&listOS, "os", "", "filter variants by OS family")
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "table", "output format (table, json)")
	listCmd.Flags().String("dockerfiles-dir", "dockerfiles", "directory holding rendered Dockerfiles")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	_, res, err := e.resolve(cmd.Context(), false)
	if err != nil {
		return err
	}

	return docs.List(&docs.Opts{
		Resolution:   res,
		OSFilter:     listOS,
		OutputFormat: listOutputFormat,
		Writer:       cmd.OutOrStdout(),
	})
}
