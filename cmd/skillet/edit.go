package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/presenter"
)

var editCmd = &cobra.Command{
	Use:   "edit <name> <relative-path>",
	Short: "Write a file inside a skill directory",
	Long: `Write a file inside a skill directory. The content is read from the file
given with --from, or from stdin when --from is omitted. The path is
relative to the skill's root and may not escape it.

Examples:
  skillet edit code-review scripts/lint.sh --from ./lint.sh
  echo "notes" | skillet edit code-review references/notes.md`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, relPath := args[0], args[1]

		var content []byte
		var err error
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			content, err = os.ReadFile(from)
		} else {
			content, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			presenter.Error(err, "Failed to read content")
			os.Exit(1)
		}

		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		if err := manager.EditSkillFile(context.Background(), name, relPath, content); err != nil {
			presenter.Error(err, "Failed to write skill file")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Wrote %s in skill %q", relPath, name))
	},
}

func init() {
	editCmd.Flags().String("from", "", "Read content from this file instead of stdin")
	rootCmd.AddCommand(editCmd)
}
