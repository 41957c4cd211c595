// Command skillet manages a directory-backed collection of agent skills:
// creating, renaming, editing, archiving and restoring them, with every
// mutation serialized through an operation queue.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillet-dev/skillet/pkg/lifecycle"
	"github.com/skillet-dev/skillet/pkg/logger"
)

func init() {
	viper.SetEnvPrefix("SKILLET")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillet")
	viper.AddConfigPath(".")

	viper.SetDefault("skills.dir", "./.skillet/skills")
	viper.SetDefault("wait_timeout", lifecycle.DefaultWaitTimeout)

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Skillet manages directory-backed agent skills",
	Long: `Skillet is a lifecycle manager for agent skills: directories containing a
SKILL.md manifest plus supporting references, scripts and assets. Skills can
be created, renamed, edited, archived and restored; all mutations run
one-at-a-time through a serializing operation queue.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if level := viper.GetString("log_level"); level != "" {
			if err := logger.SetLogLevel(level); err != nil {
				fmt.Fprintf(os.Stderr, "invalid log level %q\n", level)
			}
		}
		if format := viper.GetString("log_format"); format != "" {
			logger.SetLogFormat(format)
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

// newManager builds a lifecycle manager from the resolved configuration.
func newManager() (*lifecycle.Manager, error) {
	return lifecycle.NewManager(lifecycle.Config{
		SkillsDir:         viper.GetString("skills.dir"),
		ArchiveDir:        viper.GetString("skills.archive_dir"),
		WaitTimeout:       viper.GetDuration("wait_timeout"),
		UnsafeDirectWrite: viper.GetBool("unsafe_direct_write"),
	})
}

func main() {
	rootCmd.PersistentFlags().String("skills-dir", "", "Skills root directory (overrides config)")
	rootCmd.PersistentFlags().String("archive-dir", "", "Archive directory (defaults to <skills-dir>/.archived)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")

	viper.BindPFlag("skills.dir", rootCmd.PersistentFlags().Lookup("skills-dir"))
	viper.BindPFlag("skills.archive_dir", rootCmd.PersistentFlags().Lookup("archive-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
