package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/presenter"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all online skills",
	Long:  `List all online skills with their names, descriptions, and last-modified times.`,
	Run: func(_ *cobra.Command, _ []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		skills, err := manager.ListSkills()
		if err != nil {
			presenter.Error(err, "Failed to list skills")
			os.Exit(1)
		}

		if len(skills) == 0 {
			presenter.Info("No skills found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION\tUPDATED")
		for _, s := range skills {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Description, s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
	},
}

var archivedCmd = &cobra.Command{
	Use:   "archived",
	Short: "List archived skills",
	Long:  `List archived skills, newest first, with their archived directory names.`,
	Run: func(_ *cobra.Command, _ []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		archived, err := manager.ListArchivedSkills()
		if err != nil {
			presenter.Error(err, "Failed to list archived skills")
			os.Exit(1)
		}

		if len(archived) == 0 {
			presenter.Info("No archived skills.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tARCHIVED AS\tARCHIVED AT")
		for _, entry := range archived {
			fmt.Fprintf(w, "%s\t%s\t%s\n", entry.OriginalName, entry.ArchivedName, entry.ArchivedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(archivedCmd)
}
