package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/presenter"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new skill",
	Long: `Create a new skill directory skeleton with a generated SKILL.md manifest
plus references/, scripts/ and assets/ subdirectories.

Examples:
  skillet create code-review --description "Reviews pull requests"
  skillet create xlsx -d "Works with spreadsheets"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		description, _ := cmd.Flags().GetString("description")
		if description == "" {
			description = name
		}

		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		if err := manager.CreateSkill(context.Background(), name, description); err != nil {
			presenter.Error(err, "Failed to create skill")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Skill %q created", name))
	},
}

func init() {
	createCmd.Flags().StringP("description", "d", "", "Skill description for the manifest frontmatter")
	rootCmd.AddCommand(createCmd)
}
