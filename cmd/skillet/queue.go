package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/presenter"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the operation queue status",
	Long: `Show a snapshot of the operation queue: whether a task is currently
processing and which tasks are still pending. Mostly useful against a
running "skillet serve" instance's API; for one-shot CLI invocations the
queue has always drained by the time a command returns.`,
	Run: func(_ *cobra.Command, _ []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		status := manager.QueueStatus()
		presenter.Info(fmt.Sprintf("Pending: %d  Processing: %v", status.Length, status.Processing))

		if len(status.Tasks) == 0 {
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tTARGET\tSTATUS")
		for _, task := range status.Tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", task.ID, task.Type, task.TargetSkill, task.Status)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
}
