package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/docs"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Update the supported tags section of the README",
	Long: `Regenerate the "Supported tags and respective Dockerfiles" section of the
README from the manifest. The rest of the README is left untouched.

With --dry-run the section is printed instead of written.`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func init() {
	tagsCmd.Flags().String("readme", docs.DefaultReadme, "README to update")
	tagsCmd.Flags().String("dockerfiles-dir", "dockerfiles", "directory holding rendered Dockerfiles")
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	_, res, err := e.resolve(cmd.Context(), false)
	if err != nil {
		return err
	}

	if dryRun {
		_, err := fmt.Fprint(cmd.OutOrStdout(), docs.TagsSection(res))
		return err
	}

	changed, err := docs.UpdateReadme(e.fs, e.settings.Readme, res)
	if err != nil {
		return err
	}

	if changed {
		e.out.Successf("Updated %s (%d variants)", e.settings.Readme, len(res.Builds))
	} else {
		e.out.Infof("%s already up to date", e.settings.Readme)
	}

	return nil
}
