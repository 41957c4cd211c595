package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/skillet-dev/skillet/pkg/logger"
	"github.com/skillet-dev/skillet/pkg/presenter"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the skills root for changes",
	Long: `Watch the skills root and report skill directories being created, removed
or modified. Useful while editing skills by hand or verifying what another
process (for example a running "skillet serve") is doing to the tree.`,
	Run: func(_ *cobra.Command, _ []string) {
		manager, err := newManager()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill manager")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runWatch(ctx, manager.SkillsDir()); err != nil {
			presenter.Error(err, "Watch failed")
			os.Exit(1)
		}
	},
}

func runWatch(ctx context.Context, skillsDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(skillsDir); err != nil {
		return err
	}
	// watch immediate skill directories too, so manifest edits show up
	entries, err := os.ReadDir(skillsDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				_ = watcher.Add(filepath.Join(skillsDir, entry.Name()))
			}
		}
	}

	presenter.Info(fmt.Sprintf("Watching %s (ctrl-c to stop)", skillsDir))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(skillsDir, event.Name)
			if err != nil || strings.HasPrefix(rel, ".") {
				continue
			}

			presenter.Info(fmt.Sprintf("%s %s", strings.ToLower(event.Op.String()), rel))

			// new skill directory: start watching its contents
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
