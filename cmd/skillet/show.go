package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/presenter"
	"github.com/skillet-dev/skillet/pkg/sandbox"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show full details of a skill",
	Long:  `Show a skill's metadata, manifest body, and supporting files.`,
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		details, err := manager.GetSkillInfo(args[0])
		if err != nil {
			presenter.Error(err, "Failed to load skill")
			os.Exit(1)
		}

		presenter.Section(details.Name)
		presenter.Info(fmt.Sprintf("Description: %s", details.Description))
		presenter.Info(fmt.Sprintf("Directory:   %s", details.BaseDir))
		presenter.Info(fmt.Sprintf("Updated:     %s", details.UpdatedAt.Format("2006-01-02 15:04:05")))

		for _, group := range []struct {
			title string
			files []string
		}{
			{"References", details.References},
			{"Scripts", details.Scripts},
			{"Assets", details.Assets},
		} {
			if len(group.files) == 0 {
				continue
			}
			presenter.Separator()
			presenter.Info(group.title + ":")
			for _, file := range group.files {
				presenter.Info("  " + file)
			}
		}

		if details.Content != "" {
			presenter.Separator()
			presenter.Info(details.Content)
		}
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <name>",
	Short: "Show a skill's file tree",
	Long:  `Show the file tree of a skill, directories first.`,
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		nodes, err := manager.GetSkillFileTree(args[0])
		if err != nil {
			presenter.Error(err, "Failed to read skill file tree")
			os.Exit(1)
		}

		presenter.Info(args[0] + "/")
		printTree(nodes, "  ")
	},
}

func printTree(nodes []*sandbox.FileTreeNode, indent string) {
	for _, node := range nodes {
		if node.Type == sandbox.NodeTypeDir {
			presenter.Info(indent + node.Name + "/")
			printTree(node.Children, indent+"  ")
			continue
		}
		presenter.Info(fmt.Sprintf("%s%s (%d bytes)", indent, node.Name, node.Size))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(treeCmd)
}
