// Package cli implements the tracksync command-line interface.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calebroseland/tracksync/internal/history"
	"github.com/calebroseland/tracksync/internal/runner"
)

// newSyncCmd creates the sync command.
func newSyncCmd() *cobra.Command {
	var (
		apply       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "sync [BOARD_REPO]",
		Short: "Run one reconciliation pass",
		Long: `Run one reconciliation pass between the tracker and the board.

BOARD_REPO is the destination repository (OWNER/REPO, or a GitLab project
path). It overrides the configured board.repo for this run.

The run is a dry-run unless --apply is given or dry_run is disabled in the
configuration. Conflicts and per-entity failures are reported in the summary
and do not fail the command; only invalid configuration or a failure to list
the tracker's projects does.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			repoArg := ""
			if len(args) > 0 {
				repoArg = args[0]
			}
			repo, err := cfg.ResolveRepo(repoArg)
			if err != nil {
				return err
			}
			cfg.Board.Repo = repo

			if err := cfg.Validate(); err != nil {
				return err
			}

			if apply {
				cfg.DryRun = false
			}
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}

			trackerStore, boardStore, err := buildStores(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run := runner.New(trackerStore, boardStore, runner.Options{
				DryRun:         cfg.DryRun,
				Concurrency:    cfg.Concurrency,
				RequestTimeout: cfg.RequestTimeout,
			}, slog.Default())

			summary, runErr := run.Run(ctx)
			if summary != nil {
				recordHistory(cfg.HistoryDBPath(), summary)
				printSummary(cmd.OutOrStdout(), summary)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "write changes instead of previewing them")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "projects to reconcile in parallel (default from config)")

	return cmd
}

// recordHistory stores the summary locally. Best-effort: a history failure
// never fails the run that produced it.
func recordHistory(path string, summary *runner.Summary) {
	store, err := history.Open(path)
	if err != nil {
		slog.Warn("could not open run history", "path", path, "error", err)
		return
	}
	defer store.Close()

	if _, err := store.RecordRun(context.Background(), summary); err != nil {
		slog.Warn("could not record run history", "path", path, "error", err)
	}
}
