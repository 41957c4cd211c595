package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/presenter"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old-name> <new-name>",
	Short: "Rename a skill",
	Long: `Rename an online skill. The directory is moved and the name field in its
SKILL.md frontmatter is rewritten; everything else in the manifest is
preserved byte-for-byte.`,
	Args: cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		if err := manager.RenameSkill(context.Background(), args[0], args[1]); err != nil {
			presenter.Error(err, "Failed to rename skill")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Skill %q renamed to %q", args[0], args[1]))
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}
