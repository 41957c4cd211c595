package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/httpapi"
	"github.com/skillet-dev/skillet/pkg/presenter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skill lifecycle REST API",
	Long: `Serve the skill lifecycle operations over HTTP. All mutating endpoints
share one serializing operation queue, so concurrent API clients cannot
corrupt the skill tree.

Example:
  skillet serve --host 127.0.0.1 --port 7420`,
	Run: func(cmd *cobra.Command, _ []string) {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")

		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		server, err := httpapi.NewServer(manager, &httpapi.ServerConfig{Host: host, Port: port})
		if err != nil {
			presenter.Error(err, "Failed to create API server")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		presenter.Info(fmt.Sprintf("Serving skill API on http://%s:%d (skills dir: %s)", host, port, manager.SkillsDir()))
		if err := server.Start(ctx); err != nil {
			presenter.Error(err, "API server failed")
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().String("host", "localhost", "Host to bind the API server to")
	serveCmd.Flags().Int("port", 7420, "Port to bind the API server to")
	rootCmd.AddCommand(serveCmd)
}
