// Package cli implements the tracksync command-line interface.
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calebroseland/tracksync/internal/history"
)

// newHistoryCmd creates the history command.
func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATE\tMODE\tPROJECTS\tITEMS CREATED\tCONFLICTS\tERRORS\tID")
			for _, r := range runs {
				mode := "apply"
				if r.DryRun {
					mode = "dry-run"
				}
				state := r.State
				if r.Canceled {
					state += " (partial)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					state, mode, r.ProjectsSeen, r.ItemsCreated, r.Conflicts, r.Errors, r.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")

	return cmd
}
