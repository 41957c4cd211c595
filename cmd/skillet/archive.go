package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/presenter"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <name>",
	Short: "Archive a skill",
	Long: `Archive a skill: the directory is moved under the archive root with a
timestamp-suffixed name. Archived skills are excluded from normal listings
and block creation of a new skill with the same name until restored or
permanently deleted.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		if err := manager.DeleteSkill(context.Background(), args[0]); err != nil {
			presenter.Error(err, "Failed to archive skill")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Skill %q archived", args[0]))
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <archived-name>",
	Short: "Restore an archived skill",
	Long: `Restore an archived skill under its original name. Use "skillet archived"
to find the archived directory name.

Example:
  skillet restore code-review_2024-03-15T09-30-45-123Z`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		if err := manager.RestoreSkill(context.Background(), args[0]); err != nil {
			presenter.Error(err, "Failed to restore skill")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Skill %q restored", args[0]))
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
}
