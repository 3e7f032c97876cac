// Package cli implements the tracksync command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Register the tracker and board backends.
	_ "github.com/calebroseland/tracksync/internal/board/github"
	_ "github.com/calebroseland/tracksync/internal/board/gitlab"
	_ "github.com/calebroseland/tracksync/internal/tracker/jira"
	_ "github.com/calebroseland/tracksync/internal/tracker/notion"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracksync",
	Short: "Reconcile a tracker with a development board",
	Long: `tracksync reconciles projects and items between a tracker (Notion, Jira)
and a development board (GitHub, GitLab milestones and issues).

Each run is a batch pass: it pairs entities by stored counterpart ids,
decides a direction per pair from the timestamps, propagates content, and
prints a summary. Runs are dry-run by default; pass --apply to write.

Quick start:
  tracksync check                 Verify credentials against both sides
  tracksync sync                  Preview what a sync would do (dry-run)
  tracksync sync --apply          Actually write both sides
  tracksync history               Show recent runs`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		PrintError(err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .tracksync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	// Add subcommands
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tracksync")
	}

	viper.SetEnvPrefix("TRACKSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	setupLogging()
}

func setupLogging() {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// configPath returns the config file to load: the --config flag if given,
// otherwise whatever viper located during initialization.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return viper.ConfigFileUsed()
}
