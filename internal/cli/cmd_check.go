// Package cli implements the tracksync command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCheckCmd creates the check command.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify credentials against the tracker and the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			trackerStore, boardStore, err := buildStores(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			failed := false

			if err := trackerStore.CheckAuth(ctx); err != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "tracker (%s): FAILED: %v\n", trackerStore.Name(), err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "tracker (%s): ok\n", trackerStore.Name())
			}

			if err := boardStore.CheckAuth(ctx); err != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "board (%s): FAILED: %v\n", boardStore.Name(), err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "board (%s): ok\n", boardStore.Name())
			}

			if failed {
				return fmt.Errorf("credential check failed")
			}
			return nil
		},
	}
}
