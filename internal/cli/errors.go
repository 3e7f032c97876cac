// Package cli implements the tracksync command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/calebroseland/tracksync/internal/syncerr"
)

// PrintError writes err to stderr. Sync errors get their user-facing
// rendering, with the error code and cause added when running verbose;
// anything else falls back to a plain one-liner.
func PrintError(err error) {
	if syncErr := syncerr.AsSyncError(err); syncErr != nil {
		fmt.Fprintln(os.Stderr, syncErr.UserMessage())
		if verbose {
			fmt.Fprintf(os.Stderr, "\nCode: %s\n", syncErr.Code)
			if syncErr.Cause != nil {
				fmt.Fprintf(os.Stderr, "Cause: %v\n", syncErr.Cause)
			}
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
